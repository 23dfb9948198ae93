package mirror

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bonus-desk/internal/domain"
)

func row(id string, status domain.RequestStatus) domain.BonusRequest {
	return domain.BonusRequest{
		ID:        id,
		DisplayID: "#REQ-" + id,
		Username:  "player-" + id,
		Status:    status,
		CreatedAt: time.Now(),
	}
}

func TestApplyUpsertReplacesById(t *testing.T) {
	m := New()
	m.ApplyUpsert(row("r1", domain.RequestStatusPending))

	updated := row("r1", domain.RequestStatusApproved)
	m.ApplyUpsert(updated)

	got, ok := m.Get("r1")
	require.True(t, ok)
	assert.Equal(t, domain.RequestStatusApproved, got.Status)
	assert.Equal(t, 1, m.Len())
}

func TestApplyUpsertIsIdempotent(t *testing.T) {
	m := New()
	r := row("r1", domain.RequestStatusPending)
	m.ApplyUpsert(r)
	m.ApplyUpsert(r)

	assert.Equal(t, 1, m.Len())
}

func TestApplyDelete(t *testing.T) {
	m := New()
	m.ApplyUpsert(row("r1", domain.RequestStatusPending))

	m.ApplyDelete("r1")
	_, ok := m.Get("r1")
	assert.False(t, ok)

	// Deleting an absent row is harmless.
	m.ApplyDelete("r1")
	assert.Equal(t, 0, m.Len())
}

func TestReplaceAllDropsStaleRows(t *testing.T) {
	m := New()
	m.ApplyUpsert(row("stale", domain.RequestStatusPending))
	m.ApplyUpsert(row("kept", domain.RequestStatusPending))

	m.ReplaceAll([]domain.BonusRequest{
		row("kept", domain.RequestStatusApproved),
		row("fresh", domain.RequestStatusPending),
	})

	_, ok := m.Get("stale")
	assert.False(t, ok)
	kept, ok := m.Get("kept")
	require.True(t, ok)
	assert.Equal(t, domain.RequestStatusApproved, kept.Status)
	assert.Equal(t, 2, m.Len())
}

func TestSweepAndFeedConverge(t *testing.T) {
	// Applying the same rows via incremental events or a wholesale snapshot
	// must land on the same state.
	rows := []domain.BonusRequest{
		row("r1", domain.RequestStatusPending),
		row("r2", domain.RequestStatusApproved),
		row("r3", domain.RequestStatusRejected),
	}

	incremental := New()
	for _, r := range rows {
		incremental.ApplyUpsert(r)
	}
	wholesale := New()
	wholesale.ReplaceAll(rows)

	assert.Equal(t, wholesale.Len(), incremental.Len())
	for _, r := range rows {
		a, okA := incremental.Get(r.ID)
		b, okB := wholesale.Get(r.ID)
		require.True(t, okA)
		require.True(t, okB)
		assert.Equal(t, b, a)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := New()
	m.ApplyUpsert(row("r1", domain.RequestStatusPending))

	snapshot := m.Snapshot()
	require.Len(t, snapshot, 1)
	snapshot[0].Status = domain.RequestStatusApproved

	got, _ := m.Get("r1")
	assert.Equal(t, domain.RequestStatusPending, got.Status)
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.ApplyUpsert(row("r1", domain.RequestStatusPending))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.Snapshot()
				_, _ = m.Get("r1")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, m.Len())
}
