package domain

import "time"

// AdminRole enumerates operator roles.
type AdminRole string

const (
	AdminRoleAdmin       AdminRole = "admin"
	AdminRoleSeniorAgent AdminRole = "senior_agent"
)

// PresenceStatus enumerates admin presence states. Only online admins are
// eligible to receive or view pending claims.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceBreak   PresenceStatus = "break"
	PresenceOffline PresenceStatus = "offline"
)

// Valid reports whether the value is one of the known presence states.
func (p PresenceStatus) Valid() bool {
	return p == PresenceOnline || p == PresenceBreak || p == PresenceOffline
}

// Admin models an agent or administrator account.
type Admin struct {
	ID           string
	Username     string
	PasswordHash string
	Role         AdminRole
	Status       PresenceStatus
	LastSeen     time.Time
	IsProtected  bool
	CreatedAt    time.Time
}

// CanManageAdmins reports whether the role may create or delete accounts.
func (a *Admin) CanManageAdmins() bool {
	return a.Role == AdminRoleAdmin
}
