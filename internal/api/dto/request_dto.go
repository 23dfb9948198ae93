package dto

import "time"

// SubmitRequest is the public form payload.
type SubmitRequest struct {
	Username  string `json:"username"`
	BonusType string `json:"bonus_type"`
	Note      string `json:"note"`
}

// RequestSummary is the public view of a request. Assignment details are
// intentionally absent; submitters only see status and queue position.
type RequestSummary struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	BonusType string     `json:"bonus_type"`
	Label     string     `json:"bonus_type_label"`
	Note      string     `json:"note,omitempty"`
	AdminNote string     `json:"admin_note,omitempty"`
	Status    string     `json:"status"`
	Position  int        `json:"position,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// QueueItem is the admin view of a pending request.
type QueueItem struct {
	ID         string     `json:"id"`
	DisplayID  string     `json:"display_id"`
	Username   string     `json:"username"`
	BonusType  string     `json:"bonus_type"`
	Label      string     `json:"bonus_type_label"`
	Note       string     `json:"note,omitempty"`
	Status     string     `json:"status"`
	AssignedTo *string    `json:"assigned_to,omitempty"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
	Mine       bool       `json:"mine"`
	CreatedAt  time.Time  `json:"created_at"`
}

// DecideRequest carries the optional note on approve/reject.
type DecideRequest struct {
	Note string `json:"note"`
}
