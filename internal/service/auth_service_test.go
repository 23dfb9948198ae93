package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bonus-desk/internal/auth"
	"github.com/spec-kit/bonus-desk/internal/config"
	"github.com/spec-kit/bonus-desk/internal/domain"
	apperrors "github.com/spec-kit/bonus-desk/pkg/util/errorutil"
)

func newAuthEnv(t *testing.T) (*AuthService, *testEnv) {
	t.Helper()
	env := newTestEnv()
	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            4,
	}}
	svc := NewAuthService(cfg, AuthDependencies{AdminRepo: env.admins, Presence: env.presence})
	return svc, env
}

func (e *testEnv) addAdminWithPassword(t *testing.T, id, password string, role domain.AdminRole) *domain.Admin {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	require.NoError(t, err)
	return e.admins.add(domain.Admin{
		ID:           id,
		Username:     id,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.PresenceOffline,
	})
}

func TestHeartbeatIntervalFollowsQueueConfig(t *testing.T) {
	env := newTestEnv()
	cfg := config.Config{
		Auth:  config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4},
		Queue: config.QueueConfig{HeartbeatSeconds: 25},
	}
	svc := NewAuthService(cfg, AuthDependencies{AdminRepo: env.admins, Presence: env.presence})
	assert.Equal(t, 25, svc.HeartbeatSeconds())

	// Missing config falls back to the 30s default.
	svc, _ = newAuthEnv(t)
	assert.Equal(t, 30, svc.HeartbeatSeconds())
}

func TestLoginMarksAdminOnline(t *testing.T) {
	svc, env := newAuthEnv(t)
	env.addAdminWithPassword(t, "a1", "hunter2hunter2", domain.AdminRoleAdmin)

	admin, token, exp, err := svc.Login(context.Background(), "a1", "hunter2hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, exp.IsZero())
	assert.Equal(t, domain.PresenceOnline, admin.Status)

	stored, err := env.admins.GetByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceOnline, stored.Status)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, env := newAuthEnv(t)
	env.addAdminWithPassword(t, "a1", "hunter2hunter2", domain.AdminRoleAdmin)

	_, _, _, err := svc.Login(context.Background(), "a1", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, _, _, err = svc.Login(context.Background(), "nobody", "hunter2hunter2")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}

func TestLogoutReleasesClaims(t *testing.T) {
	svc, env := newAuthEnv(t)
	env.addAdminWithPassword(t, "a1", "hunter2hunter2", domain.AdminRoleAdmin)
	env.addPending("r1", "player1")

	admin, _, _, err := svc.Login(context.Background(), "a1", "hunter2hunter2")
	require.NoError(t, err)
	_, err = env.assignment.Claim(context.Background(), admin, "r1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), "a1"))

	req, err := env.requests.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Nil(t, req.AssignedTo)

	stored, err := env.admins.GetByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceOffline, stored.Status)
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	svc, env := newAuthEnv(t)
	env.addAdminWithPassword(t, "a1", "hunter2hunter2", domain.AdminRoleAdmin)

	err := svc.ChangePassword(context.Background(), "a1", "wrong", "newpassword1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	err = svc.ChangePassword(context.Background(), "a1", "hunter2hunter2", "short")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	require.NoError(t, svc.ChangePassword(context.Background(), "a1", "hunter2hunter2", "newpassword1"))
	_, _, _, err = svc.Login(context.Background(), "a1", "newpassword1")
	require.NoError(t, err)
}

func TestCreateAdminRequiresAdminRole(t *testing.T) {
	svc, env := newAuthEnv(t)
	actor := env.addAdminWithPassword(t, "senior", "hunter2hunter2", domain.AdminRoleSeniorAgent)

	_, err := svc.CreateAdmin(context.Background(), actor, "newbie", "password123", domain.AdminRoleSeniorAgent)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestCreateAdminValidatesAndDeduplicates(t *testing.T) {
	svc, env := newAuthEnv(t)
	actor := env.addAdminWithPassword(t, "root", "hunter2hunter2", domain.AdminRoleAdmin)

	_, err := svc.CreateAdmin(context.Background(), actor, "x", "password123", domain.AdminRoleSeniorAgent)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	created, err := svc.CreateAdmin(context.Background(), actor, "newbie", "password123", domain.AdminRoleSeniorAgent)
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceOffline, created.Status)
	assert.False(t, created.IsProtected)

	_, err = svc.CreateAdmin(context.Background(), actor, "Newbie", "password123", domain.AdminRoleSeniorAgent)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestDeleteAdminRules(t *testing.T) {
	svc, env := newAuthEnv(t)
	actor := env.addAdminWithPassword(t, "root", "hunter2hunter2", domain.AdminRoleAdmin)
	env.admins.add(domain.Admin{ID: "protected", Username: "protected", Role: domain.AdminRoleAdmin, IsProtected: true})
	env.admins.add(domain.Admin{ID: "victim", Username: "victim", Role: domain.AdminRoleSeniorAgent})

	err := svc.DeleteAdmin(context.Background(), actor, "root")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	err = svc.DeleteAdmin(context.Background(), actor, "protected")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	require.NoError(t, svc.DeleteAdmin(context.Background(), actor, "victim"))
	_, err = env.admins.GetByID(context.Background(), "victim")
	require.Error(t, err)
}

func TestDeleteAdminFreesHeldClaims(t *testing.T) {
	svc, env := newAuthEnv(t)
	actor := env.addAdminWithPassword(t, "root", "hunter2hunter2", domain.AdminRoleAdmin)
	victim := env.addAdmin("victim", domain.PresenceOnline)
	env.addPending("r1", "player1")

	_, err := env.assignment.Claim(context.Background(), victim, "r1")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAdmin(context.Background(), actor, "victim"))

	req, err := env.requests.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Nil(t, req.AssignedTo)
}
