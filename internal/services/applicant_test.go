package services

import (
	"context"
	"testing"

	"github.com/contesthub/apiserver/internal/store"
	"github.com/contesthub/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApplicantFixture(t *testing.T) (*fakeUserRepo, *fakeApplicantRepo, *ApplicantService) {
	t.Helper()
	users := newFakeUserRepo()
	applicants := newFakeApplicantRepo()
	notifications := NewNotificationService(users, nil)
	return users, applicants, NewApplicantService(applicants, users, notifications)
}

func TestApplySnapshotsUser(t *testing.T) {
	users, _, svc := newApplicantFixture(t)
	ctx := context.Background()

	user := users.add(types.User{Username: "alice", Email: "alice@example.com"})

	applicant, err := svc.Apply(ctx, user.ID, "I run a local contest club")
	require.NoError(t, err)
	assert.Equal(t, user.ID, applicant.UserID)
	assert.Equal(t, "alice", applicant.Username)
	assert.Equal(t, "alice@example.com", applicant.Email)
	assert.Equal(t, types.ApplicantPending, applicant.Status)
}

func TestApplyBlockedWhilePendingOrHosting(t *testing.T) {
	users, _, svc := newApplicantFixture(t)
	ctx := context.Background()

	host := users.add(types.User{Username: "host", HostAuth: true})
	_, err := svc.Apply(ctx, host.ID, "already hosting")
	assert.ErrorIs(t, err, store.ErrConflict)

	user := users.add(types.User{Username: "alice", Email: "alice@example.com"})
	_, err = svc.Apply(ctx, user.ID, "first application")
	require.NoError(t, err)

	_, err = svc.Apply(ctx, user.ID, "second application")
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestApproveGrantsHostAuthAndNotifies(t *testing.T) {
	users, _, svc := newApplicantFixture(t)
	ctx := context.Background()

	user := users.add(types.User{Username: "alice", Email: "alice@example.com"})
	applicant, err := svc.Apply(ctx, user.ID, "pick me")
	require.NoError(t, err)

	decided, err := svc.Approve(ctx, applicant.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ApplicantApproved, decided.Status)

	got, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.HostAuth)
	require.Len(t, got.Notifications, 1)
	assert.Equal(t, types.NotificationHostApproved, got.Notifications[0].Type)

	// Deciding again conflicts; the record keeps its final status.
	_, err = svc.Approve(ctx, applicant.ID)
	assert.ErrorIs(t, err, store.ErrConflict)

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRejectLeavesHostAuthUntouched(t *testing.T) {
	users, _, svc := newApplicantFixture(t)
	ctx := context.Background()

	user := users.add(types.User{Username: "alice", Email: "alice@example.com"})
	applicant, err := svc.Apply(ctx, user.ID, "pick me")
	require.NoError(t, err)

	decided, err := svc.Reject(ctx, applicant.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ApplicantRejected, decided.Status)

	got, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.HostAuth)
	require.Len(t, got.Notifications, 1)
	assert.Equal(t, types.NotificationHostRejected, got.Notifications[0].Type)
}
