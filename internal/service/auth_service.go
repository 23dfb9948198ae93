package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bonus-desk/internal/auth"
	"github.com/spec-kit/bonus-desk/internal/config"
	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/repository"
	apperrors "github.com/spec-kit/bonus-desk/pkg/util/errorutil"
)

// AuthService handles admin sessions and account management. Login and
// logout double as presence transitions: a session starting puts the admin
// online, a session ending takes them offline (releasing their claims).
type AuthService struct {
	admins           repository.AdminRepository
	presence         *PresenceService
	tokenMgr         *auth.TokenManager
	bcryptCost       int
	heartbeatSeconds int
}

// AuthDependencies bundles collaborators.
type AuthDependencies struct {
	AdminRepo repository.AdminRepository
	Presence  *PresenceService
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	heartbeat := cfg.Queue.HeartbeatSeconds
	if heartbeat <= 0 {
		heartbeat = 30
	}
	return &AuthService{
		admins:           deps.AdminRepo,
		presence:         deps.Presence,
		tokenMgr:         auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost:       cfg.Auth.BcryptCost,
		heartbeatSeconds: heartbeat,
	}
}

// HeartbeatSeconds is the presence heartbeat interval the login response
// advertises; the dashboard schedules its pings from it.
func (s *AuthService) HeartbeatSeconds() int {
	return s.heartbeatSeconds
}

// Login authenticates the admin, marks them online and issues a token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.Admin, string, time.Time, error) {
	admin, err := s.admins.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(admin.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	admin, err = s.presence.SetStatus(ctx, admin.ID, domain.PresenceOnline)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(admin.ID, admin.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return admin, token, exp, nil
}

// Logout ends the session by taking the admin offline, which also returns
// any held requests to the pool. The JWT itself stays stateless.
func (s *AuthService) Logout(ctx context.Context, adminID string) error {
	_, err := s.presence.SetStatus(ctx, adminID, domain.PresenceOffline)
	return err
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, adminID, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", map[string]any{"field": "new_password"})
	}

	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("admin", map[string]any{"admin_id": adminID})
		}
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(admin.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.admins.UpdatePassword(ctx, adminID, hash); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// CreateAdmin registers a new account. Only the admin role may do this.
func (s *AuthService) CreateAdmin(ctx context.Context, actor *domain.Admin, username, password string, role domain.AdminRole) (*domain.Admin, error) {
	if actor == nil || !actor.CanManageAdmins() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, apperrors.NewValidationError("username must be 3-30 characters of letters, digits, dot, dash or underscore", map[string]any{"field": "username"})
	}
	if len(password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", map[string]any{"field": "password"})
	}
	if role != domain.AdminRoleAdmin && role != domain.AdminRoleSeniorAgent {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}

	if _, err := s.admins.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("username already taken", map[string]any{"username": username})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	admin := &domain.Admin{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.PresenceOffline,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, apperrors.MapError(err)
	}
	return admin, nil
}

// DeleteAdmin removes an account. Protected accounts and the caller's own
// account cannot be deleted.
func (s *AuthService) DeleteAdmin(ctx context.Context, actor *domain.Admin, adminID string) error {
	if actor == nil || !actor.CanManageAdmins() {
		return apperrors.NewForbidden("admin role required")
	}
	if actor.ID == adminID {
		return apperrors.NewConflict("cannot delete your own account", nil)
	}

	target, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("admin", map[string]any{"admin_id": adminID})
		}
		return apperrors.MapError(err)
	}
	if target.IsProtected {
		return apperrors.NewForbidden("account is protected")
	}

	// Free any claims before the row disappears.
	if _, err := s.presence.assignment.ReleaseAll(ctx, adminID); err != nil {
		return err
	}
	if err := s.admins.Delete(ctx, adminID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// ListAdmins returns all accounts for the management panel.
func (s *AuthService) ListAdmins(ctx context.Context, actor *domain.Admin) ([]domain.Admin, error) {
	if actor == nil || !actor.CanManageAdmins() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	admins, err := s.admins.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return admins, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
