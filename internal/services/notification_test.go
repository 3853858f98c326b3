package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/contesthub/apiserver/internal/mq"
	"github.com/contesthub/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyStoresAndPublishes(t *testing.T) {
	users := newFakeUserRepo()
	publisher := &fakePublisher{}
	svc := NewNotificationService(users, publisher)
	ctx := context.Background()

	user := users.add(types.User{Username: "alice"})

	require.NoError(t, svc.Notify(ctx, user.ID, types.NotificationParticipantJoined, "bob joined Spring Cup", 7))

	got, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, got.Notifications, 1)
	stored := got.Notifications[0]
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, 7, stored.CompetitionID)

	require.Len(t, publisher.published, 1)
	event := publisher.published[0]
	assert.Equal(t, mq.ChannelNotifications, event.Channel)
	assert.Equal(t, types.NotificationParticipantJoined, event.Attrs["type"])

	var payload types.NotificationEvent
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, user.ID, payload.UserID)
	assert.Equal(t, stored.ID, payload.Notification.ID)
}

func TestNotifyWithoutBroker(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewNotificationService(users, nil)
	ctx := context.Background()

	user := users.add(types.User{Username: "alice"})
	require.NoError(t, svc.Notify(ctx, user.ID, types.NotificationHostApproved, "approved", 0))

	got, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, got.Notifications, 1)
}
