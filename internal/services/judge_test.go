package services

import (
	"context"
	"testing"

	"github.com/contesthub/apiserver/internal/store"
	"github.com/contesthub/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJudgeFixture(t *testing.T) (*fakeUserRepo, *fakeCompetitionRepo, *JudgeService, types.User, types.Competition) {
	t.Helper()
	users := newFakeUserRepo()
	comps := newFakeCompetitionRepo(users)
	notifications := NewNotificationService(users, nil)
	svc := NewJudgeService(comps, users, notifications)

	host := users.add(types.User{Username: "host", HostAuth: true})
	compSvc := NewCompetitionService(comps, users, notifications)
	comp, err := compSvc.Create(context.Background(), host.ID, "Spring Cup", "algorithms", "a contest")
	require.NoError(t, err)

	return users, comps, svc, host, comp
}

func TestEligibleFollowersAreMutualsWithoutRecords(t *testing.T) {
	users, _, svc, host, comp := newJudgeFixture(t)
	ctx := context.Background()

	mutual := users.add(types.User{Username: "mutual"})
	onlyFollower := users.add(types.User{Username: "onlyfollower"})

	require.NoError(t, users.SetFollow(ctx, mutual.ID, host.ID, true))
	require.NoError(t, users.SetFollow(ctx, host.ID, mutual.ID, true))
	require.NoError(t, users.SetFollow(ctx, onlyFollower.ID, host.ID, true))

	eligible, err := svc.EligibleFollowers(ctx, comp.ID, host.ID)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, mutual.ID, eligible[0].ID)

	_, err = svc.EligibleFollowers(ctx, comp.ID, mutual.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRequestNotifiesCandidate(t *testing.T) {
	users, comps, svc, host, comp := newJudgeFixture(t)
	ctx := context.Background()

	candidate := users.add(types.User{Username: "candidate"})

	require.NoError(t, svc.Request(ctx, comp.ID, host.ID, candidate.ID))

	got, err := comps.Get(ctx, comp.ID)
	require.NoError(t, err)
	require.Len(t, got.Judges, 2)
	assert.Equal(t, types.JudgeStatusPending, got.Judges[1].Status)

	candidateUser, err := users.GetByID(ctx, candidate.ID)
	require.NoError(t, err)
	require.Len(t, candidateUser.Notifications, 1)
	assert.Equal(t, types.NotificationJudgeRequest, candidateUser.Notifications[0].Type)
	assert.Equal(t, comp.ID, candidateUser.Notifications[0].CompetitionID)
}

func TestRequestTwiceConflicts(t *testing.T) {
	users, _, svc, host, comp := newJudgeFixture(t)
	ctx := context.Background()

	candidate := users.add(types.User{Username: "candidate"})

	require.NoError(t, svc.Request(ctx, comp.ID, host.ID, candidate.ID))
	err := svc.Request(ctx, comp.ID, host.ID, candidate.ID)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestRequestByNonHostForbidden(t *testing.T) {
	users, _, svc, _, comp := newJudgeFixture(t)
	ctx := context.Background()

	stranger := users.add(types.User{Username: "stranger"})
	candidate := users.add(types.User{Username: "candidate"})

	err := svc.Request(ctx, comp.ID, stranger.ID, candidate.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAcceptWithoutInvitationNotFound(t *testing.T) {
	users, _, svc, _, comp := newJudgeFixture(t)
	ctx := context.Background()

	stranger := users.add(types.User{Username: "stranger"})

	err := svc.Accept(ctx, comp.ID, stranger.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAcceptFlipsRecordAndRewritesNotification(t *testing.T) {
	users, comps, svc, host, comp := newJudgeFixture(t)
	ctx := context.Background()

	candidate := users.add(types.User{Username: "candidate"})
	require.NoError(t, svc.Request(ctx, comp.ID, host.ID, candidate.ID))

	require.NoError(t, svc.Accept(ctx, comp.ID, candidate.ID))

	got, err := comps.Get(ctx, comp.ID)
	require.NoError(t, err)
	require.Len(t, got.Judges, 2)
	assert.Equal(t, types.JudgeStatusAccepted, got.Judges[1].Status)

	candidateUser, err := users.GetByID(ctx, candidate.ID)
	require.NoError(t, err)
	require.Len(t, candidateUser.Notifications, 1)
	assert.Equal(t, types.NotificationJudgeAccept, candidateUser.Notifications[0].Type)

	hostUser, err := users.GetByID(ctx, host.ID)
	require.NoError(t, err)
	require.Len(t, hostUser.Notifications, 1)
	assert.Equal(t, types.NotificationJudgeAccept, hostUser.Notifications[0].Type)
	assert.Contains(t, hostUser.Notifications[0].Content, "accepted")

	// The invitation is consumed; a second accept has nothing to resolve.
	err = svc.Accept(ctx, comp.ID, candidate.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRejectRetainsRecord(t *testing.T) {
	users, comps, svc, host, comp := newJudgeFixture(t)
	ctx := context.Background()

	candidate := users.add(types.User{Username: "candidate"})
	require.NoError(t, svc.Request(ctx, comp.ID, host.ID, candidate.ID))
	require.NoError(t, svc.Reject(ctx, comp.ID, candidate.ID))

	got, err := comps.Get(ctx, comp.ID)
	require.NoError(t, err)
	require.Len(t, got.Judges, 2)
	assert.Equal(t, types.JudgeStatusRejected, got.Judges[1].Status)

	// A rejected record still blocks a fresh invitation.
	err = svc.Request(ctx, comp.ID, host.ID, candidate.ID)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestAcceptOnlyTouchesMatchingCompetition(t *testing.T) {
	users, comps, svc, host, comp := newJudgeFixture(t)
	ctx := context.Background()

	notifications := NewNotificationService(users, nil)
	compSvc := NewCompetitionService(comps, users, notifications)
	other, err := compSvc.Create(ctx, host.ID, "Autumn Cup", "puzzles", "another contest")
	require.NoError(t, err)

	candidate := users.add(types.User{Username: "candidate"})
	require.NoError(t, svc.Request(ctx, comp.ID, host.ID, candidate.ID))
	require.NoError(t, svc.Request(ctx, other.ID, host.ID, candidate.ID))

	require.NoError(t, svc.Accept(ctx, other.ID, candidate.ID))

	first, err := comps.Get(ctx, comp.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JudgeStatusPending, first.Judges[1].Status)

	second, err := comps.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JudgeStatusAccepted, second.Judges[1].Status)
}
