package events

import (
	"time"

	"github.com/spec-kit/bonus-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request_created"
	EventRequestClaimed       EventType = "request_claimed"
	EventRequestReleased      EventType = "request_released"
	EventRequestDecided       EventType = "request_decided"
	EventAdminPresenceChanged EventType = "admin_presence_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	AdminID   string      `json:"admin_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestCreatedPayload carries the freshly inserted row.
type RequestCreatedPayload struct {
	Request domain.BonusRequest `json:"request"`
}

// RequestClaimedPayload carries the row after a successful claim.
type RequestClaimedPayload struct {
	Request domain.BonusRequest `json:"request"`
	Stolen  bool                `json:"stolen"`
}

// RequestReleasedPayload carries the row after its claim was cleared.
type RequestReleasedPayload struct {
	Request domain.BonusRequest `json:"request"`
}

// RequestDecidedPayload carries the row after its terminal transition.
type RequestDecidedPayload struct {
	Request domain.BonusRequest  `json:"request"`
	Outcome domain.RequestStatus `json:"outcome"`
}

// AdminPresenceChangedPayload describes a presence transition.
type AdminPresenceChangedPayload struct {
	OldStatus domain.PresenceStatus `json:"old_status"`
	NewStatus domain.PresenceStatus `json:"new_status"`
	Released  int                   `json:"released"`
}
