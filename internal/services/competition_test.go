package services

import (
	"context"
	"testing"

	"github.com/contesthub/apiserver/internal/store"
	"github.com/contesthub/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompetitionFixture(t *testing.T) (*fakeUserRepo, *fakeCompetitionRepo, *CompetitionService) {
	t.Helper()
	users := newFakeUserRepo()
	comps := newFakeCompetitionRepo(users)
	notifications := NewNotificationService(users, nil)
	return users, comps, NewCompetitionService(comps, users, notifications)
}

func TestCreateRequiresHostAuth(t *testing.T) {
	users, _, svc := newCompetitionFixture(t)
	ctx := context.Background()

	user := users.add(types.User{Username: "plain"})

	_, err := svc.Create(ctx, user.ID, "Spring Cup", "algorithms", "a contest")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateRecordsHostAsAcceptedJudge(t *testing.T) {
	users, _, svc := newCompetitionFixture(t)
	ctx := context.Background()

	host := users.add(types.User{Username: "host", HostAuth: true})

	comp, err := svc.Create(ctx, host.ID, "Spring Cup", "algorithms", "a contest")
	require.NoError(t, err)
	require.Len(t, comp.Judges, 1)
	assert.Equal(t, host.ID, comp.Judges[0].UserID)
	assert.Equal(t, types.JudgeStatusAccepted, comp.Judges[0].Status)

	mine, err := svc.Mine(ctx, host.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, comp.ID, mine[0].ID)
}

func TestJoinIsIdempotentAndNotifiesHostOnce(t *testing.T) {
	users, _, svc := newCompetitionFixture(t)
	ctx := context.Background()

	host := users.add(types.User{Username: "host", HostAuth: true})
	player := users.add(types.User{Username: "player"})

	comp, err := svc.Create(ctx, host.ID, "Spring Cup", "algorithms", "a contest")
	require.NoError(t, err)

	joined, err := svc.Join(ctx, comp.ID, player.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{player.ID}, joined.Participants)

	joined, err = svc.Join(ctx, comp.ID, player.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{player.ID}, joined.Participants)

	hostUser, err := users.GetByID(ctx, host.ID)
	require.NoError(t, err)
	require.Len(t, hostUser.Notifications, 1)
	assert.Equal(t, types.NotificationParticipantJoined, hostUser.Notifications[0].Type)
	assert.Equal(t, comp.ID, hostUser.Notifications[0].CompetitionID)
}

func TestJoinByHostDoesNotNotify(t *testing.T) {
	users, _, svc := newCompetitionFixture(t)
	ctx := context.Background()

	host := users.add(types.User{Username: "host", HostAuth: true})
	comp, err := svc.Create(ctx, host.ID, "Spring Cup", "algorithms", "a contest")
	require.NoError(t, err)

	_, err = svc.Join(ctx, comp.ID, host.ID)
	require.NoError(t, err)

	hostUser, err := users.GetByID(ctx, host.ID)
	require.NoError(t, err)
	assert.Empty(t, hostUser.Notifications)
}

func TestEndIsHostOnly(t *testing.T) {
	users, _, svc := newCompetitionFixture(t)
	ctx := context.Background()

	host := users.add(types.User{Username: "host", HostAuth: true})
	other := users.add(types.User{Username: "other"})

	comp, err := svc.Create(ctx, host.ID, "Spring Cup", "algorithms", "a contest")
	require.NoError(t, err)

	_, err = svc.End(ctx, comp.ID, other.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestEndMarksFinishedAndNotifiesParticipants(t *testing.T) {
	users, _, svc := newCompetitionFixture(t)
	ctx := context.Background()

	host := users.add(types.User{Username: "host", HostAuth: true})
	player := users.add(types.User{Username: "player"})

	comp, err := svc.Create(ctx, host.ID, "Spring Cup", "algorithms", "a contest")
	require.NoError(t, err)
	_, err = svc.Join(ctx, comp.ID, player.ID)
	require.NoError(t, err)

	ended, err := svc.End(ctx, comp.ID, host.ID)
	require.NoError(t, err)
	assert.True(t, ended.Finished)
	require.Len(t, ended.Announcements, 1)
	assert.NotEmpty(t, ended.Announcements[0].ID)
	assert.Equal(t, host.ID, ended.Announcements[0].AuthorID)

	playerUser, err := users.GetByID(ctx, player.ID)
	require.NoError(t, err)
	found := false
	for _, n := range playerUser.Notifications {
		if n.Type == types.NotificationCompetitionEnded {
			found = true
		}
	}
	assert.True(t, found, "participant should be told the competition ended")
}

func TestDeleteStripsCompetitionFromUserLists(t *testing.T) {
	users, _, svc := newCompetitionFixture(t)
	ctx := context.Background()

	host := users.add(types.User{Username: "host", HostAuth: true})
	player := users.add(types.User{Username: "player"})

	comp, err := svc.Create(ctx, host.ID, "Spring Cup", "algorithms", "a contest")
	require.NoError(t, err)
	_, err = svc.Join(ctx, comp.ID, player.ID)
	require.NoError(t, err)

	err = svc.Delete(ctx, comp.ID, player.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.Delete(ctx, comp.ID, host.ID, false))

	playerUser, err := users.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Empty(t, playerUser.Competitions)

	_, err = svc.Get(ctx, comp.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
