package services

import (
	"context"
	"fmt"

	"github.com/contesthub/apiserver/internal/store"
	"github.com/contesthub/apiserver/types"
)

// JudgeService runs the judge invitation handshake. States per
// (competition, candidate) pair: none -> pending -> accepted|rejected.
// Resolved records are retained with their final status.
type JudgeService struct {
	repo          CompetitionRepository
	users         UserRepository
	notifications *NotificationService
}

func NewJudgeService(repo CompetitionRepository, users UserRepository, notifications *NotificationService) *JudgeService {
	return &JudgeService{
		repo:          repo,
		users:         users,
		notifications: notifications,
	}
}

// EligibleFollowers returns the users the host may invite: mutual
// connections (followers the host also follows) with no judge record on
// the competition in any status.
func (s *JudgeService) EligibleFollowers(ctx context.Context, compID, hostID int) ([]types.User, error) {
	comp, err := s.repo.Get(ctx, compID)
	if err != nil {
		return nil, err
	}
	if comp.HostID != hostID {
		return nil, ErrForbidden
	}

	host, err := s.users.GetByID(ctx, hostID)
	if err != nil {
		return nil, err
	}

	follows := make(map[int]bool, len(host.Follows))
	for _, id := range host.Follows {
		follows[id] = true
	}
	invited := make(map[int]bool, len(comp.Judges))
	for _, judge := range comp.Judges {
		invited[judge.UserID] = true
	}

	var candidateIDs []int
	for _, id := range host.Followers {
		if follows[id] && !invited[id] {
			candidateIDs = append(candidateIDs, id)
		}
	}

	return s.users.GetByIDs(ctx, candidateIDs)
}

// Request invites a candidate as judge. A record in any status blocks a
// new invitation. The candidate receives a judge-request notification
// carrying the competition id.
func (s *JudgeService) Request(ctx context.Context, compID, hostID, candidateID int) error {
	candidate, err := s.users.GetByID(ctx, candidateID)
	if err != nil {
		return err
	}

	comp, err := s.repo.Mutate(ctx, compID, func(comp *types.Competition) error {
		if comp.HostID != hostID {
			return ErrForbidden
		}
		for _, judge := range comp.Judges {
			if judge.UserID == candidateID {
				return store.ErrConflict
			}
		}
		comp.Judges = append(comp.Judges, types.Judge{
			UserID:   candidate.ID,
			Username: candidate.Username,
			Status:   types.JudgeStatusPending,
		})
		return nil
	})
	if err != nil {
		return err
	}

	content := fmt.Sprintf("%s invited you to judge %s", comp.HostUsername, comp.Title)
	return s.notifications.Notify(ctx, candidateID, types.NotificationJudgeRequest, content, comp.ID)
}

// Accept resolves the responder's pending invitation. The matching
// judge-request notification is rewritten in place (kept as history), the
// judge record flips to accepted, and the host is notified.
func (s *JudgeService) Accept(ctx context.Context, compID, responderID int) error {
	return s.resolve(ctx, compID, responderID, types.JudgeStatusAccepted)
}

// Reject mirrors Accept: the judge record is retained with status
// rejected and the notification history reflects the decision.
func (s *JudgeService) Reject(ctx context.Context, compID, responderID int) error {
	return s.resolve(ctx, compID, responderID, types.JudgeStatusRejected)
}

func (s *JudgeService) resolve(ctx context.Context, compID, responderID int, status string) error {
	notificationType := types.NotificationJudgeAccept
	verb := "accepted"
	if status == types.JudgeStatusRejected {
		notificationType = types.NotificationJudgeReject
		verb = "declined"
	}

	// The pending judge-request notification is the invitation handle; no
	// matching entry means there is nothing to resolve.
	responder, err := s.users.Mutate(ctx, responderID, func(user *types.User) error {
		for i, n := range user.Notifications {
			if n.Type == types.NotificationJudgeRequest && n.CompetitionID == compID {
				user.Notifications[i].Type = notificationType
				return nil
			}
		}
		return store.ErrNotFound
	})
	if err != nil {
		return err
	}

	comp, err := s.repo.Mutate(ctx, compID, func(comp *types.Competition) error {
		for i, judge := range comp.Judges {
			if judge.UserID == responderID && judge.Status == types.JudgeStatusPending {
				comp.Judges[i].Status = status
				return nil
			}
		}
		return store.ErrNotFound
	})
	if err != nil {
		return err
	}

	content := fmt.Sprintf("%s %s the judge invitation for %s", responder.Username, verb, comp.Title)
	return s.notifications.Notify(ctx, comp.HostID, notificationType, content, comp.ID)
}
