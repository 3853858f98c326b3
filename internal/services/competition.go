package services

import (
	"context"
	"fmt"
	"time"

	"github.com/contesthub/apiserver/types"
	"github.com/google/uuid"
)

// CompetitionRepository defines persistence operations for competitions.
type CompetitionRepository interface {
	List(ctx context.Context, search string) ([]types.Competition, error)
	Get(ctx context.Context, id int) (types.Competition, error)
	GetByIDs(ctx context.Context, ids []int) ([]types.Competition, error)
	Create(ctx context.Context, comp types.Competition) (types.Competition, error)
	Mutate(ctx context.Context, id int, fn func(*types.Competition) error) (types.Competition, error)
	Join(ctx context.Context, compID, userID int) (bool, error)
	Delete(ctx context.Context, id int) error
}

// CompetitionService encapsulates competition lifecycle use-cases.
type CompetitionService struct {
	repo          CompetitionRepository
	users         UserRepository
	notifications *NotificationService
}

func NewCompetitionService(repo CompetitionRepository, users UserRepository, notifications *NotificationService) *CompetitionService {
	return &CompetitionService{
		repo:          repo,
		users:         users,
		notifications: notifications,
	}
}

func (s *CompetitionService) List(ctx context.Context, search string) ([]types.Competition, error) {
	return s.repo.List(ctx, search)
}

func (s *CompetitionService) Get(ctx context.Context, id int) (types.Competition, error) {
	return s.repo.Get(ctx, id)
}

// Mine returns the competitions the user has joined or hosts, newest first.
func (s *CompetitionService) Mine(ctx context.Context, userID int) ([]types.Competition, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByIDs(ctx, user.Competitions)
}

// Create persists a new competition hosted by the given user. The host is
// recorded as an accepted judge, and the competition id lands on the
// host's competition list in the same transaction.
func (s *CompetitionService) Create(ctx context.Context, hostID int, title, genre, about string) (types.Competition, error) {
	host, err := s.users.GetByID(ctx, hostID)
	if err != nil {
		return types.Competition{}, err
	}
	if !host.HostAuth {
		return types.Competition{}, ErrForbidden
	}

	return s.repo.Create(ctx, types.Competition{
		Title:        title,
		Genre:        genre,
		About:        about,
		HostID:       host.ID,
		HostUsername: host.Username,
		Participants: []int{},
		Judges: []types.Judge{{
			UserID:   host.ID,
			Username: host.Username,
			Status:   types.JudgeStatusAccepted,
		}},
	})
}

// Join idempotently adds the user to the participant set and the
// competition to the user's list. The host is notified on a first join.
func (s *CompetitionService) Join(ctx context.Context, compID, userID int) (types.Competition, error) {
	comp, err := s.repo.Get(ctx, compID)
	if err != nil {
		return types.Competition{}, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.Competition{}, err
	}

	joined, err := s.repo.Join(ctx, compID, userID)
	if err != nil {
		return types.Competition{}, err
	}

	if joined && comp.HostID != userID {
		content := fmt.Sprintf("%s joined %s", user.Username, comp.Title)
		if err := s.notifications.Notify(ctx, comp.HostID, types.NotificationParticipantJoined, content, comp.ID); err != nil {
			return types.Competition{}, err
		}
	}

	return s.repo.Get(ctx, compID)
}

// End marks the competition finished and posts a closing system
// announcement. Only the host may end a competition.
func (s *CompetitionService) End(ctx context.Context, compID, actorID int) (types.Competition, error) {
	comp, err := s.repo.Mutate(ctx, compID, func(comp *types.Competition) error {
		if comp.HostID != actorID {
			return ErrForbidden
		}
		comp.Finished = true
		comp.Announcements = append(comp.Announcements, types.Announcement{
			ID:             uuid.NewString(),
			Content:        fmt.Sprintf("%s has ended. Thanks to everyone who took part.", comp.Title),
			AuthorID:       comp.HostID,
			AuthorUsername: comp.HostUsername,
			CreatedAt:      time.Now(),
			Comments:       []types.Comment{},
		})
		return nil
	})
	if err != nil {
		return types.Competition{}, err
	}

	content := fmt.Sprintf("%s has ended", comp.Title)
	for _, participantID := range comp.Participants {
		if participantID == comp.HostID {
			continue
		}
		if err := s.notifications.Notify(ctx, participantID, types.NotificationCompetitionEnded, content, comp.ID); err != nil {
			return types.Competition{}, err
		}
	}

	return comp, nil
}

// Delete removes the competition and strips its id from every user's
// competition list. Allowed for the host and for administrators.
func (s *CompetitionService) Delete(ctx context.Context, compID, actorID int, isAdmin bool) error {
	comp, err := s.repo.Get(ctx, compID)
	if err != nil {
		return err
	}
	if !isAdmin && comp.HostID != actorID {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, compID)
}
