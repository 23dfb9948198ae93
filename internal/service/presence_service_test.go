package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/events"
	apperrors "github.com/spec-kit/bonus-desk/pkg/util/errorutil"
)

func TestLeavingOnlineReleasesClaims(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin("a1", domain.PresenceOnline)
	env.addPending("r1", "player1")
	env.addPending("r2", "player2")

	for _, id := range []string{"r1", "r2"} {
		_, err := env.assignment.Claim(context.Background(), admin, id)
		require.NoError(t, err)
	}

	updated, err := env.presence.SetStatus(context.Background(), "a1", domain.PresenceBreak)
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceBreak, updated.Status)

	for _, id := range []string{"r1", "r2"} {
		req, err := env.requests.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, req.AssignedTo)
		assert.Equal(t, domain.RequestStatusPending, req.Status)
	}

	changes := env.dispatcher.byType(events.EventAdminPresenceChanged)
	require.Len(t, changes, 1)
	payload := changes[0].Payload.(events.AdminPresenceChangedPayload)
	assert.Equal(t, domain.PresenceOnline, payload.OldStatus)
	assert.Equal(t, domain.PresenceBreak, payload.NewStatus)
	assert.Equal(t, 2, payload.Released)
}

func TestGoingOnlineKeepsNothingToRelease(t *testing.T) {
	env := newTestEnv()
	env.addAdmin("a1", domain.PresenceOffline)

	updated, err := env.presence.SetStatus(context.Background(), "a1", domain.PresenceOnline)
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceOnline, updated.Status)

	changes := env.dispatcher.byType(events.EventAdminPresenceChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, 0, changes[0].Payload.(events.AdminPresenceChangedPayload).Released)
}

func TestSameStatusRefreshesWithoutEvent(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin("a1", domain.PresenceOnline)
	before := admin.LastSeen

	updated, err := env.presence.SetStatus(context.Background(), "a1", domain.PresenceOnline)
	require.NoError(t, err)
	assert.True(t, updated.LastSeen.After(before) || updated.LastSeen.Equal(before))
	assert.Empty(t, env.dispatcher.byType(events.EventAdminPresenceChanged))
}

func TestBreakToOfflineDoesNotReleaseAgain(t *testing.T) {
	env := newTestEnv()
	env.addAdmin("a1", domain.PresenceBreak)

	_, err := env.presence.SetStatus(context.Background(), "a1", domain.PresenceOffline)
	require.NoError(t, err)

	changes := env.dispatcher.byType(events.EventAdminPresenceChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, 0, changes[0].Payload.(events.AdminPresenceChangedPayload).Released)
}

func TestSetStatusValidatesInput(t *testing.T) {
	env := newTestEnv()
	env.addAdmin("a1", domain.PresenceOnline)

	_, err := env.presence.SetStatus(context.Background(), "a1", domain.PresenceStatus("away"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestHeartbeatUpdatesLastSeen(t *testing.T) {
	env := newTestEnv()
	admin := env.addAdmin("a1", domain.PresenceOnline)
	before := admin.LastSeen

	require.NoError(t, env.presence.Heartbeat(context.Background(), "a1"))

	refreshed, err := env.admins.GetByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.True(t, refreshed.LastSeen.After(before))
	assert.Equal(t, domain.PresenceOnline, refreshed.Status)
}

func TestHeartbeatUnknownAdmin(t *testing.T) {
	env := newTestEnv()
	err := env.presence.Heartbeat(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestOnlineSet(t *testing.T) {
	env := newTestEnv()
	env.addAdmin("a1", domain.PresenceOnline)
	env.addAdmin("a2", domain.PresenceBreak)
	env.addAdmin("a3", domain.PresenceOnline)

	set, err := env.presence.OnlineSet(context.Background())
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.Contains(t, set, "a1")
	assert.Contains(t, set, "a3")
}
