package mirror

import (
	"sync"

	"github.com/spec-kit/bonus-desk/internal/domain"
)

// Mirror is an in-memory replica of the bonus_requests table, keyed by row
// id. Writers apply row-level feed events or wholesale snapshots; readers
// take copies. Applying the same event twice converges to the same state, so
// a reconciliation sweep overlapping the live feed is harmless.
type Mirror struct {
	mu   sync.RWMutex
	rows map[string]domain.BonusRequest
}

// New returns an empty mirror.
func New() *Mirror {
	return &Mirror{rows: make(map[string]domain.BonusRequest)}
}

// ApplyUpsert stores the row, replacing any previous version with the same id.
// Inserts and updates are handled identically.
func (m *Mirror) ApplyUpsert(row domain.BonusRequest) {
	m.mu.Lock()
	m.rows[row.ID] = row
	m.mu.Unlock()
}

// ApplyDelete removes the row if present.
func (m *Mirror) ApplyDelete(id string) {
	m.mu.Lock()
	delete(m.rows, id)
	m.mu.Unlock()
}

// ReplaceAll swaps the full contents for the given snapshot. Used by the
// periodic reconciliation sweep; rows deleted upstream disappear here too.
func (m *Mirror) ReplaceAll(rows []domain.BonusRequest) {
	next := make(map[string]domain.BonusRequest, len(rows))
	for _, row := range rows {
		next[row.ID] = row
	}
	m.mu.Lock()
	m.rows = next
	m.mu.Unlock()
}

// Get returns the row by id, if mirrored.
func (m *Mirror) Get(id string) (domain.BonusRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[id]
	return row, ok
}

// Snapshot returns a copy of every mirrored row. Order is unspecified.
func (m *Mirror) Snapshot() []domain.BonusRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := make([]domain.BonusRequest, 0, len(m.rows))
	for _, row := range m.rows {
		rows = append(rows, row)
	}
	return rows
}

// Len returns the number of mirrored rows.
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}
