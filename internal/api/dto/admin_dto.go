package dto

import "time"

// LoginRequest is the admin login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse returns the session token, the admin profile and the
// heartbeat interval the client should ping presence with.
type LoginResponse struct {
	Token            string       `json:"token"`
	ExpiresAt        time.Time    `json:"expires_at"`
	HeartbeatSeconds int          `json:"heartbeat_seconds"`
	Admin            AdminProfile `json:"admin"`
}

// AdminProfile is the admin view of an account. Password hashes never
// leave the server.
type AdminProfile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	LastSeen    time.Time `json:"last_seen"`
	IsProtected bool      `json:"is_protected"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChangePasswordRequest carries a password rotation.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// CreateAdminRequest registers a new account.
type CreateAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// PresenceRequest moves the caller between presence states.
type PresenceRequest struct {
	Status string `json:"status"`
}
