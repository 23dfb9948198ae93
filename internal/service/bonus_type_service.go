package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/repository"
	apperrors "github.com/spec-kit/bonus-desk/pkg/util/errorutil"
)

// BonusTypeService manages the catalog behind the public form's dropdown.
type BonusTypeService struct {
	bonusTypes repository.BonusTypeRepository
}

// NewBonusTypeService constructs the service.
func NewBonusTypeService(bonusTypes repository.BonusTypeRepository) *BonusTypeService {
	return &BonusTypeService{bonusTypes: bonusTypes}
}

// BonusTypeInput is the management payload.
type BonusTypeInput struct {
	Name        string
	Label       string
	Icon        string
	Description string
	IsActive    *bool
	SortOrder   *int
}

// ListActive returns the catalog entries shown on the public form.
func (s *BonusTypeService) ListActive(ctx context.Context) ([]domain.BonusType, error) {
	result, err := s.bonusTypes.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// ListAll returns every entry for the management panel.
func (s *BonusTypeService) ListAll(ctx context.Context, actor *domain.Admin) ([]domain.BonusType, error) {
	if actor == nil || !actor.CanManageAdmins() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	result, err := s.bonusTypes.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// Create adds a catalog entry at the end of the ordering.
func (s *BonusTypeService) Create(ctx context.Context, actor *domain.Admin, input BonusTypeInput) (*domain.BonusType, error) {
	if actor == nil || !actor.CanManageAdmins() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	name := strings.TrimSpace(strings.ToLower(input.Name))
	label := strings.TrimSpace(input.Label)
	if name == "" || label == "" {
		return nil, apperrors.NewValidationError("name and label are required", nil)
	}

	if _, err := s.bonusTypes.GetByName(ctx, name); err == nil {
		return nil, apperrors.NewConflict("bonus type already exists", map[string]any{"name": name})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	bt := &domain.BonusType{
		Name:        name,
		Label:       label,
		Icon:        strings.TrimSpace(input.Icon),
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
	}
	if bt.Icon == "" {
		bt.Icon = "🎁"
	}
	if input.IsActive != nil {
		bt.IsActive = *input.IsActive
	}
	if err := s.bonusTypes.Create(ctx, bt); err != nil {
		return nil, apperrors.MapError(err)
	}
	return bt, nil
}

// Update edits a catalog entry by name.
func (s *BonusTypeService) Update(ctx context.Context, actor *domain.Admin, name string, input BonusTypeInput) (*domain.BonusType, error) {
	if actor == nil || !actor.CanManageAdmins() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	bt, err := s.bonusTypes.GetByName(ctx, strings.TrimSpace(strings.ToLower(name)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("bonus type", map[string]any{"name": name})
		}
		return nil, apperrors.MapError(err)
	}

	if label := strings.TrimSpace(input.Label); label != "" {
		bt.Label = label
	}
	if icon := strings.TrimSpace(input.Icon); icon != "" {
		bt.Icon = icon
	}
	if desc := strings.TrimSpace(input.Description); desc != "" {
		bt.Description = desc
	}
	if input.IsActive != nil {
		bt.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		bt.SortOrder = *input.SortOrder
	}
	if err := s.bonusTypes.Update(ctx, bt); err != nil {
		return nil, apperrors.MapError(err)
	}
	return bt, nil
}

// Delete removes a catalog entry by name. Existing requests keep their
// stored label.
func (s *BonusTypeService) Delete(ctx context.Context, actor *domain.Admin, name string) error {
	if actor == nil || !actor.CanManageAdmins() {
		return apperrors.NewForbidden("admin role required")
	}
	bt, err := s.bonusTypes.GetByName(ctx, strings.TrimSpace(strings.ToLower(name)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("bonus type", map[string]any{"name": name})
		}
		return apperrors.MapError(err)
	}
	if err := s.bonusTypes.Delete(ctx, bt.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
