package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/events"
	"github.com/spec-kit/bonus-desk/internal/repository"
	apperrors "github.com/spec-kit/bonus-desk/pkg/util/errorutil"
)

// PresenceService tracks admin availability. Leaving the online state is
// the trigger that hands an admin's claimed requests back to the pool.
type PresenceService struct {
	admins     repository.AdminRepository
	assignment *AssignmentService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// PresenceDependencies bundles collaborators.
type PresenceDependencies struct {
	AdminRepo  repository.AdminRepository
	Assignment *AssignmentService
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewPresenceService creates the service.
func NewPresenceService(deps PresenceDependencies) *PresenceService {
	return &PresenceService{
		admins:     deps.AdminRepo,
		assignment: deps.Assignment,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// SetStatus moves the admin between online, break and offline. On the
// online -> break/offline edge every claim the admin holds is released
// before the transition is announced. Setting the current status again only
// refreshes last_seen.
func (s *PresenceService) SetStatus(ctx context.Context, adminID string, status domain.PresenceStatus) (*domain.Admin, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown presence status", map[string]any{"status": status})
	}

	admin, err := s.getAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	oldStatus := admin.Status

	released := 0
	if oldStatus == domain.PresenceOnline && status != domain.PresenceOnline {
		released, err = s.assignment.ReleaseAll(ctx, adminID)
		if err != nil {
			return nil, err
		}
		if released > 0 {
			s.logger.Info("released claims on presence change",
				zap.String("admin_id", adminID),
				zap.Int("released", released))
		}
	}

	now := time.Now()
	if err := s.admins.SetStatus(ctx, adminID, status, now); err != nil {
		return nil, apperrors.MapError(err)
	}
	admin.Status = status
	admin.LastSeen = now

	if oldStatus != status {
		s.publishPresenceEvent(ctx, adminID, oldStatus, status, released)
	}
	return admin, nil
}

// Heartbeat refreshes last_seen without changing the presence state.
func (s *PresenceService) Heartbeat(ctx context.Context, adminID string) error {
	if err := s.admins.Touch(ctx, adminID, time.Now()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("admin", map[string]any{"admin_id": adminID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// IsOnline reports whether the admin is currently online.
func (s *PresenceService) IsOnline(ctx context.Context, adminID string) (bool, error) {
	admin, err := s.getAdmin(ctx, adminID)
	if err != nil {
		return false, err
	}
	return admin.Status == domain.PresenceOnline, nil
}

// ListOnline returns every admin in the online state.
func (s *PresenceService) ListOnline(ctx context.Context) ([]domain.Admin, error) {
	admins, err := s.admins.ListByStatus(ctx, domain.PresenceOnline)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return admins, nil
}

// OnlineSet returns the ids of online admins as a set, for queue projection.
func (s *PresenceService) OnlineSet(ctx context.Context) (map[string]struct{}, error) {
	admins, err := s.ListOnline(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(admins))
	for _, admin := range admins {
		set[admin.ID] = struct{}{}
	}
	return set, nil
}

func (s *PresenceService) getAdmin(ctx context.Context, adminID string) (*domain.Admin, error) {
	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("admin", map[string]any{"admin_id": adminID})
		}
		return nil, apperrors.MapError(err)
	}
	return admin, nil
}

func (s *PresenceService) publishPresenceEvent(ctx context.Context, adminID string, oldStatus, newStatus domain.PresenceStatus, released int) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAdminPresenceChanged,
		AdminID:   adminID,
		Timestamp: time.Now(),
		Payload: events.AdminPresenceChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Released:  released,
		},
	})
}
