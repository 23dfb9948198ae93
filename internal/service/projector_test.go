package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/mirror"
)

func pendingRow(id string, createdAt time.Time, assignedTo *string) domain.BonusRequest {
	return domain.BonusRequest{
		ID:         id,
		DisplayID:  "#REQ-" + id,
		Username:   "player-" + id,
		Status:     domain.RequestStatusPending,
		AssignedTo: assignedTo,
		CreatedAt:  createdAt,
	}
}

func strPtr(s string) *string { return &s }

func TestProjectVisiblePartitionsByHolder(t *testing.T) {
	base := time.Now()
	online := OnlineSet{"viewer": {}, "other": {}}
	rows := []domain.BonusRequest{
		pendingRow("r1", base, nil),
		pendingRow("r2", base.Add(time.Second), strPtr("viewer")),
		pendingRow("r3", base.Add(2*time.Second), strPtr("other")),
		pendingRow("r4", base.Add(3*time.Second), strPtr("offline-admin")),
		{ID: "r5", Status: domain.RequestStatusApproved, CreatedAt: base},
	}

	visible := ProjectVisible(rows, "viewer", online)
	ids := make([]string, 0, len(visible))
	for _, row := range visible {
		ids = append(ids, row.ID)
	}
	// Unassigned, own claim, and the claim of an offline holder are visible;
	// another online admin's claim and terminal rows are not.
	assert.Equal(t, []string{"r1", "r2", "r4"}, ids)
}

func TestProjectVisibleSortsOldestFirst(t *testing.T) {
	base := time.Now()
	rows := []domain.BonusRequest{
		pendingRow("new", base.Add(time.Minute), nil),
		pendingRow("old", base, nil),
		pendingRow("mid", base.Add(30*time.Second), nil),
	}
	visible := ProjectVisible(rows, "viewer", OnlineSet{"viewer": {}})
	require.Len(t, visible, 3)
	assert.Equal(t, "old", visible[0].ID)
	assert.Equal(t, "mid", visible[1].ID)
	assert.Equal(t, "new", visible[2].ID)
}

func TestProjectActiveExcludesOfflineHolders(t *testing.T) {
	base := time.Now()
	online := OnlineSet{"a1": {}}
	rows := []domain.BonusRequest{
		pendingRow("r1", base, nil),
		pendingRow("r2", base.Add(time.Second), strPtr("a1")),
		pendingRow("r3", base.Add(2*time.Second), strPtr("gone")),
	}

	active := ProjectActive(rows, online)
	require.Len(t, active, 2)
	assert.Equal(t, "r1", active[0].ID)
	assert.Equal(t, "r2", active[1].ID)
}

func TestProjectPositionIsOneBased(t *testing.T) {
	base := time.Now()
	rows := []domain.BonusRequest{
		pendingRow("r1", base, nil),
		pendingRow("r2", base.Add(time.Second), nil),
		pendingRow("r3", base.Add(2*time.Second), nil),
	}

	assert.Equal(t, 1, ProjectPosition(rows, "r1", nil))
	assert.Equal(t, 3, ProjectPosition(rows, "r3", nil))
	assert.Equal(t, 0, ProjectPosition(rows, "missing", nil))
}

func TestProjectPositionShrinksWhenEarlierRowsLeave(t *testing.T) {
	base := time.Now()
	rows := []domain.BonusRequest{
		pendingRow("r1", base, nil),
		pendingRow("r2", base.Add(time.Second), nil),
	}
	assert.Equal(t, 2, ProjectPosition(rows, "r2", nil))

	rows[0].Status = domain.RequestStatusApproved
	assert.Equal(t, 1, ProjectPosition(rows, "r2", nil))
}

func TestVisibleToRequiresOnlineViewer(t *testing.T) {
	env := newTestEnv()
	m := mirror.New()
	m.ApplyUpsert(pendingRow("r1", time.Now(), nil))
	projector := NewQueueProjector(m, env.presence)

	viewer := &domain.Admin{ID: "a1", Status: domain.PresenceBreak}
	rows, err := projector.VisibleTo(context.Background(), viewer)
	require.NoError(t, err)
	assert.Empty(t, rows)

	viewer.Status = domain.PresenceOnline
	rows, err = projector.VisibleTo(context.Background(), viewer)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
