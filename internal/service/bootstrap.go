package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/bonus-desk/internal/auth"
	"github.com/spec-kit/bonus-desk/internal/config"
	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/repository"
)

// EnsureBootstrapAdmin creates the protected root account when the admins
// table is empty. The account cannot be deleted through the management API.
func EnsureBootstrapAdmin(ctx context.Context, admins repository.AdminRepository, cfg config.AuthConfig, logger *zap.Logger) error {
	existing, err := admins.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	hash, err := auth.HashPassword(cfg.BootstrapPassword, cfg.BcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.Admin{
		Username:     cfg.BootstrapUsername,
		PasswordHash: hash,
		Role:         domain.AdminRoleAdmin,
		Status:       domain.PresenceOffline,
		IsProtected:  true,
	}
	if err := admins.Create(ctx, admin); err != nil {
		return err
	}
	logger.Info("bootstrap admin created", zap.String("username", admin.Username))
	return nil
}
