package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/events"
	"github.com/spec-kit/bonus-desk/internal/observability"
	"github.com/spec-kit/bonus-desk/internal/repository"
	apperrors "github.com/spec-kit/bonus-desk/pkg/util/errorutil"
)

// AssignmentService coordinates who works each pending request. All
// contended transitions go through conditional updates in the repository,
// so two admins racing for the same request resolve to exactly one winner
// without any locking here.
type AssignmentService struct {
	requests   repository.RequestRepository
	admins     repository.AdminRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	RequestRepo repository.RequestRepository
	AdminRepo   repository.AdminRepository
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		requests:   deps.RequestRepo,
		admins:     deps.AdminRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
	}
}

// Claim assigns the request to the admin. Outcomes:
//   - unassigned pending request: claim succeeds;
//   - already held by the same admin: succeeds without refreshing the
//     original claim time;
//   - held by an admin who is no longer online: the claim is taken over;
//   - held by an online admin: ALREADY_CLAIMED.
func (s *AssignmentService) Claim(ctx context.Context, admin *domain.Admin, requestID string) (*domain.BonusRequest, error) {
	if admin == nil {
		return nil, apperrors.NewUnauthorized("admin required")
	}

	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, apperrors.NewConflict("request already processed", map[string]any{"request_id": requestID})
	}
	if req.HeldBy(admin.ID) {
		return req, nil
	}

	now := time.Now()
	ok, err := s.requests.Claim(ctx, requestID, admin.ID, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if ok {
		return s.finishClaim(ctx, admin.ID, requestID, false)
	}

	// Lost the unconditional path: either someone else claimed it first or
	// it just went terminal. Re-read and decide whether a takeover applies.
	req, err = s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, apperrors.NewConflict("request already processed", map[string]any{"request_id": requestID})
	}
	if req.AssignedTo == nil {
		// Released between our attempt and the re-read; one retry.
		ok, err = s.requests.Claim(ctx, requestID, admin.ID, now)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if ok {
			return s.finishClaim(ctx, admin.ID, requestID, false)
		}
		s.recordOutcome("contested")
		return nil, apperrors.NewAlreadyClaimed(requestID, "")
	}

	holderID := *req.AssignedTo
	if req.HeldBy(admin.ID) {
		return req, nil
	}
	online, err := s.holderOnline(ctx, holderID)
	if err != nil {
		return nil, err
	}
	if online {
		s.recordOutcome("contested")
		return nil, apperrors.NewAlreadyClaimed(requestID, holderID)
	}

	ok, err = s.requests.StealFrom(ctx, requestID, holderID, admin.ID, time.Now())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !ok {
		// The row moved under us again; report contention rather than loop.
		s.recordOutcome("contested")
		return nil, apperrors.NewAlreadyClaimed(requestID, holderID)
	}
	return s.finishClaim(ctx, admin.ID, requestID, true)
}

// Release gives up the admin's claim. Releasing a request the admin does
// not hold is NOT_OWNER; releasing an unassigned request is a no-op.
func (s *AssignmentService) Release(ctx context.Context, admin *domain.Admin, requestID string) (*domain.BonusRequest, error) {
	if admin == nil {
		return nil, apperrors.NewUnauthorized("admin required")
	}
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, apperrors.NewConflict("request already processed", map[string]any{"request_id": requestID})
	}
	if req.AssignedTo == nil {
		return req, nil
	}
	if !req.HeldBy(admin.ID) {
		return nil, apperrors.NewNotOwner(requestID)
	}

	if err := s.requests.Release(ctx, requestID); err != nil {
		return nil, apperrors.MapError(err)
	}
	req, err = s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	s.publishRequestEvent(ctx, events.EventRequestReleased, admin.ID, *req, events.RequestReleasedPayload{Request: *req})
	return req, nil
}

// ReleaseAll drops every claim the admin holds and returns how many were
// released. Called when presence leaves online and on logout.
func (s *AssignmentService) ReleaseAll(ctx context.Context, adminID string) (int, error) {
	held, err := s.requests.List(ctx, repository.RequestFilter{
		AssignedTo: &adminID,
		Statuses:   []domain.RequestStatus{domain.RequestStatusPending},
	})
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if len(held) == 0 {
		return 0, nil
	}

	released, err := s.requests.ReleaseAll(ctx, adminID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	for _, row := range held {
		row.AssignedTo = nil
		row.AssignedAt = nil
		s.publishRequestEvent(ctx, events.EventRequestReleased, adminID, row, events.RequestReleasedPayload{Request: row})
	}
	return int(released), nil
}

// Decide applies the terminal outcome. The admin must hold the request, or
// the request must be unassigned, or its holder must be offline (in which
// case deciding takes the claim over first). A request held by another
// online admin is NOT_OWNER; an already processed request is CONFLICT.
func (s *AssignmentService) Decide(ctx context.Context, admin *domain.Admin, requestID string, outcome domain.RequestStatus, note string) (*domain.BonusRequest, error) {
	if admin == nil {
		return nil, apperrors.NewUnauthorized("admin required")
	}
	if !outcome.IsTerminal() {
		return nil, apperrors.NewValidationError("outcome must be approved or rejected", map[string]any{"outcome": outcome})
	}

	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, apperrors.NewConflict("request already processed", map[string]any{"request_id": requestID})
	}
	if req.AssignedTo != nil && !req.HeldBy(admin.ID) {
		holderID := *req.AssignedTo
		online, err := s.holderOnline(ctx, holderID)
		if err != nil {
			return nil, err
		}
		if online {
			return nil, apperrors.NewNotOwner(requestID)
		}
		if _, err := s.requests.StealFrom(ctx, requestID, holderID, admin.ID, time.Now()); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	ok, err := s.requests.Decide(ctx, requestID, admin.ID, outcome, note, time.Now())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !ok {
		// Conditional update refused: the row went terminal or changed hands
		// after our checks.
		req, err = s.getRequest(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if req.Status.IsTerminal() {
			return nil, apperrors.NewConflict("request already processed", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.NewNotOwner(requestID)
	}

	req, err = s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	s.recordOutcome("decided")
	s.publishRequestEvent(ctx, events.EventRequestDecided, admin.ID, *req, events.RequestDecidedPayload{
		Request: *req,
		Outcome: outcome,
	})
	return req, nil
}

func (s *AssignmentService) finishClaim(ctx context.Context, adminID, requestID string, stolen bool) (*domain.BonusRequest, error) {
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if stolen {
		s.recordOutcome("stolen")
	} else {
		s.recordOutcome("claimed")
	}
	s.publishRequestEvent(ctx, events.EventRequestClaimed, adminID, *req, events.RequestClaimedPayload{
		Request: *req,
		Stolen:  stolen,
	})
	return req, nil
}

func (s *AssignmentService) holderOnline(ctx context.Context, adminID string) (bool, error) {
	holder, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Holder account deleted; treat the claim as abandoned.
			return false, nil
		}
		return false, apperrors.MapError(err)
	}
	return holder.Status == domain.PresenceOnline, nil
}

func (s *AssignmentService) getRequest(ctx context.Context, requestID string) (*domain.BonusRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}
	return req, nil
}

func (s *AssignmentService) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordClaimOutcome(outcome)
	}
}

func (s *AssignmentService) publishRequestEvent(ctx context.Context, eventType events.EventType, adminID string, req domain.BonusRequest, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RequestID: req.ID,
		AdminID:   adminID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
