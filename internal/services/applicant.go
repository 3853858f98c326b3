package services

import (
	"context"

	"github.com/contesthub/apiserver/internal/store"
	"github.com/contesthub/apiserver/types"
)

// ApplicantRepository defines persistence operations for host applications.
type ApplicantRepository interface {
	GetByID(ctx context.Context, id int) (types.Applicant, error)
	ListByStatus(ctx context.Context, status string) ([]types.Applicant, error)
	HasPending(ctx context.Context, userID int) (bool, error)
	Create(ctx context.Context, applicant types.Applicant) (types.Applicant, error)
	Decide(ctx context.Context, id int, status string) (types.Applicant, error)
}

// ApplicantService runs the host application workflow. Decided
// applications are retained with their final status for audit.
type ApplicantService struct {
	repo          ApplicantRepository
	users         UserRepository
	notifications *NotificationService
}

func NewApplicantService(repo ApplicantRepository, users UserRepository, notifications *NotificationService) *ApplicantService {
	return &ApplicantService{
		repo:          repo,
		users:         users,
		notifications: notifications,
	}
}

// Apply files a host application for the user. Users who already host or
// already have an undecided application cannot file another.
func (s *ApplicantService) Apply(ctx context.Context, userID int, reason string) (types.Applicant, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.Applicant{}, err
	}
	if user.HostAuth {
		return types.Applicant{}, store.ErrConflict
	}

	pending, err := s.repo.HasPending(ctx, userID)
	if err != nil {
		return types.Applicant{}, err
	}
	if pending {
		return types.Applicant{}, store.ErrConflict
	}

	return s.repo.Create(ctx, types.Applicant{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Reason:   reason,
		Status:   types.ApplicantPending,
	})
}

// ListPending returns undecided applications, oldest first.
func (s *ApplicantService) ListPending(ctx context.Context) ([]types.Applicant, error) {
	return s.repo.ListByStatus(ctx, types.ApplicantPending)
}

// Approve grants host authorization to the applicant's user and notifies
// them. Deciding an already-decided application fails with a conflict.
func (s *ApplicantService) Approve(ctx context.Context, applicantID int) (types.Applicant, error) {
	applicant, err := s.repo.Decide(ctx, applicantID, types.ApplicantApproved)
	if err != nil {
		return types.Applicant{}, err
	}
	if err := s.users.SetHostAuth(ctx, applicant.UserID, true); err != nil {
		return types.Applicant{}, err
	}

	const content = "Your request for host authorization has been approved"
	if err := s.notifications.Notify(ctx, applicant.UserID, types.NotificationHostApproved, content, 0); err != nil {
		return types.Applicant{}, err
	}
	return applicant, nil
}

// Reject declines the application and notifies the user. Host
// authorization is left untouched.
func (s *ApplicantService) Reject(ctx context.Context, applicantID int) (types.Applicant, error) {
	applicant, err := s.repo.Decide(ctx, applicantID, types.ApplicantRejected)
	if err != nil {
		return types.Applicant{}, err
	}

	const content = "Your request for host authorization has been rejected"
	if err := s.notifications.Notify(ctx, applicant.UserID, types.NotificationHostRejected, content, 0); err != nil {
		return types.Applicant{}, err
	}
	return applicant, nil
}
