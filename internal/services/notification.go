package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/contesthub/apiserver/internal/mq"
	"github.com/contesthub/apiserver/types"
	"github.com/google/uuid"
)

// NotificationRepository defines the persistence operation for inbox
// entries.
type NotificationRepository interface {
	AppendNotification(ctx context.Context, userID int, n types.Notification) error
}

// EventPublisher publishes notification fan-out events to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// NotificationService stores notifications on user records and taps each
// one onto the notifications channel when a broker is configured. The
// stored record is the source of truth; publishing is best-effort.
type NotificationService struct {
	repo   NotificationRepository
	events EventPublisher
}

// NewNotificationService constructs a NotificationService. events may be
// nil, in which case no fan-out events are published.
func NewNotificationService(repo NotificationRepository, events EventPublisher) *NotificationService {
	return &NotificationService{repo: repo, events: events}
}

// Notify appends an inbox entry to the user and publishes the matching
// event. competitionID is zero for notifications not tied to a competition.
func (s *NotificationService) Notify(ctx context.Context, userID int, notificationType, content string, competitionID int) error {
	n := types.Notification{
		ID:            uuid.NewString(),
		Type:          notificationType,
		Content:       content,
		CompetitionID: competitionID,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.AppendNotification(ctx, userID, n); err != nil {
		return err
	}

	if s.events != nil {
		payload, err := json.Marshal(types.NotificationEvent{UserID: userID, Notification: n})
		if err == nil {
			_, _ = s.events.Publish(ctx, mq.ChannelNotifications, payload, map[string]string{"type": notificationType})
		}
	}
	return nil
}
