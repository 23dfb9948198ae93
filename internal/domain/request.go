package domain

import "time"

// RequestStatus enumerates lifecycle states for bonus requests. The pending
// state is the only one that accepts further transitions; approved and
// rejected are terminal.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// IsTerminal reports whether the status accepts no further transitions.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// BonusRequest is the aggregate for a single bonus claim submitted by an
// end user through the public form.
//
// AssignedTo is non-nil only while Status == pending; it is cleared by the
// same update that writes a terminal status, and independently when the
// holding admin's presence leaves online.
type BonusRequest struct {
	ID             string
	DisplayID      string
	Username       string
	BonusType      string
	BonusTypeLabel string
	Note           string
	AdminNote      string
	Status         RequestStatus
	AssignedTo     *string
	AssignedAt     *time.Time
	ProcessedBy    *string
	ProcessedAt    *time.Time
	Notified       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HeldBy reports whether the request is currently claimed by the given admin.
func (r *BonusRequest) HeldBy(adminID string) bool {
	return r.AssignedTo != nil && *r.AssignedTo == adminID
}
