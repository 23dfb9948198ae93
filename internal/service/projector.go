package service

import (
	"context"
	"sort"

	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/mirror"
)

// OnlineSet is the set of admin ids currently in the online state.
type OnlineSet map[string]struct{}

// Contains reports membership; a nil set contains nobody.
func (s OnlineSet) Contains(adminID string) bool {
	_, ok := s[adminID]
	return ok
}

// QueueProjector derives per-viewer queue views from the request mirror.
// Every method is a pure function of the mirrored rows and the online set,
// so two admins looking at the same state see consistent queues, and a view
// never needs its own store round-trip.
type QueueProjector struct {
	mirror   *mirror.Mirror
	presence *PresenceService
}

// NewQueueProjector creates the projector.
func NewQueueProjector(m *mirror.Mirror, presence *PresenceService) *QueueProjector {
	return &QueueProjector{mirror: m, presence: presence}
}

// VisibleTo returns the pending requests the admin may act on, oldest
// first. A viewer who is not online sees an empty queue. Requests held by
// another online admin are hidden; requests held by an offline or on-break
// admin remain visible so they can be taken over.
func (p *QueueProjector) VisibleTo(ctx context.Context, viewer *domain.Admin) ([]domain.BonusRequest, error) {
	if viewer == nil || viewer.Status != domain.PresenceOnline {
		return nil, nil
	}
	online, err := p.presence.OnlineSet(ctx)
	if err != nil {
		return nil, err
	}
	return ProjectVisible(p.mirror.Snapshot(), viewer.ID, online), nil
}

// Position returns the request's 1-based place in the active pending queue,
// or 0 when the request is not part of it.
func (p *QueueProjector) Position(ctx context.Context, requestID string) (int, error) {
	online, err := p.presence.OnlineSet(ctx)
	if err != nil {
		return 0, err
	}
	return ProjectPosition(p.mirror.Snapshot(), requestID, online), nil
}

// ActiveCount returns the size of the active pending queue.
func (p *QueueProjector) ActiveCount(ctx context.Context) (int, error) {
	online, err := p.presence.OnlineSet(ctx)
	if err != nil {
		return 0, err
	}
	return len(ProjectActive(p.mirror.Snapshot(), online)), nil
}

// ProjectVisible filters rows down to what the given online viewer may act
// on and sorts them oldest first.
func ProjectVisible(rows []domain.BonusRequest, viewerID string, online OnlineSet) []domain.BonusRequest {
	visible := make([]domain.BonusRequest, 0, len(rows))
	for _, row := range rows {
		if row.Status != domain.RequestStatusPending {
			continue
		}
		if row.AssignedTo != nil && *row.AssignedTo != viewerID && online.Contains(*row.AssignedTo) {
			continue
		}
		visible = append(visible, row)
	}
	sortByCreated(visible)
	return visible
}

// ProjectActive returns the active pending queue: pending rows that are
// unassigned or whose holder is online, oldest first. Rows stuck with an
// offline holder are excluded until released or taken over.
func ProjectActive(rows []domain.BonusRequest, online OnlineSet) []domain.BonusRequest {
	active := make([]domain.BonusRequest, 0, len(rows))
	for _, row := range rows {
		if row.Status != domain.RequestStatusPending {
			continue
		}
		if row.AssignedTo != nil && !online.Contains(*row.AssignedTo) {
			continue
		}
		active = append(active, row)
	}
	sortByCreated(active)
	return active
}

// ProjectPosition returns the 1-based position of the request within the
// active pending queue, or 0 when absent.
func ProjectPosition(rows []domain.BonusRequest, requestID string, online OnlineSet) int {
	for i, row := range ProjectActive(rows, online) {
		if row.ID == requestID {
			return i + 1
		}
	}
	return 0
}

func sortByCreated(rows []domain.BonusRequest) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
}
