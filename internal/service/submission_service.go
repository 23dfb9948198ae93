package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/events"
	"github.com/spec-kit/bonus-desk/internal/repository"
	apperrors "github.com/spec-kit/bonus-desk/pkg/util/errorutil"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,30}$`)

const (
	maxNoteLength        = 200
	displayIDMaxAttempts = 10
)

// SubmissionService handles the public intake path: validation, abuse
// gating, one-pending-per-user and the post-decision cooldown, and status
// lookups by tracking id.
type SubmissionService struct {
	requests   repository.RequestRepository
	bonusTypes repository.BonusTypeRepository
	gate       *SubmissionGate
	projector  *QueueProjector
	dispatcher events.Dispatcher
	cooldown   time.Duration
}

// SubmissionDependencies bundles collaborators.
type SubmissionDependencies struct {
	RequestRepo   repository.RequestRepository
	BonusTypeRepo repository.BonusTypeRepository
	Gate          *SubmissionGate
	Projector     *QueueProjector
	Dispatcher    events.Dispatcher
	Cooldown      time.Duration
}

// SubmissionInput is the public form payload.
type SubmissionInput struct {
	Username  string
	BonusType string
	Note      string
}

// RequestStatusView is what the public status endpoint returns: the row
// plus its live queue position (0 once no longer queued).
type RequestStatusView struct {
	Request  domain.BonusRequest
	Position int
}

// NewSubmissionService constructs the service.
func NewSubmissionService(deps SubmissionDependencies) *SubmissionService {
	return &SubmissionService{
		requests:   deps.RequestRepo,
		bonusTypes: deps.BonusTypeRepo,
		gate:       deps.Gate,
		projector:  deps.Projector,
		dispatcher: deps.Dispatcher,
		cooldown:   deps.Cooldown,
	}
}

// Submit validates and stores a new bonus request.
func (s *SubmissionService) Submit(ctx context.Context, input SubmissionInput) (*domain.BonusRequest, error) {
	username := strings.TrimSpace(input.Username)
	if !usernamePattern.MatchString(username) {
		return nil, apperrors.NewValidationError("username must be 3-30 characters of letters, digits, dot, dash or underscore", map[string]any{
			"field": "username",
		})
	}
	note := strings.TrimSpace(input.Note)
	if len(note) > maxNoteLength {
		return nil, apperrors.NewValidationError("note too long", map[string]any{
			"field": "note",
			"max":   maxNoteLength,
		})
	}

	if ok, retryIn := s.gate.Allow(username); !ok {
		return nil, apperrors.NewConflict("too many attempts, try again later", map[string]any{
			"retry_after_seconds": int(retryIn.Seconds()),
		})
	}

	bonusType, err := s.bonusTypes.GetByName(ctx, strings.TrimSpace(input.BonusType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown bonus type", map[string]any{"bonus_type": input.BonusType})
		}
		return nil, apperrors.MapError(err)
	}
	if !bonusType.IsActive {
		return nil, apperrors.NewValidationError("bonus type not available", map[string]any{"bonus_type": bonusType.Name})
	}

	pending, err := s.requests.HasPending(ctx, username)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if pending {
		return nil, apperrors.NewConflict("a pending request already exists for this username", nil)
	}

	if s.cooldown > 0 {
		lastProcessed, err := s.requests.LastProcessedAt(ctx, username)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if lastProcessed != nil {
			if wait := s.cooldown - time.Since(*lastProcessed); wait > 0 {
				return nil, apperrors.NewConflict("cooldown active after last decision", map[string]any{
					"retry_after_seconds": int(wait.Seconds()),
				})
			}
		}
	}

	req := &domain.BonusRequest{
		Username:       username,
		BonusType:      bonusType.Name,
		BonusTypeLabel: bonusType.Label,
		Note:           note,
		Status:         domain.RequestStatusPending,
	}
	if err := s.createWithDisplayID(ctx, req); err != nil {
		return nil, err
	}

	s.publishCreated(ctx, *req)
	return req, nil
}

// createWithDisplayID assigns a short tracking id and inserts, retrying on
// the rare collision with an existing id.
func (s *SubmissionService) createWithDisplayID(ctx context.Context, req *domain.BonusRequest) error {
	for attempt := 0; attempt < displayIDMaxAttempts; attempt++ {
		req.DisplayID = generateDisplayID()
		err := s.requests.Create(ctx, req)
		if err == nil {
			return nil
		}
		if isUniqueViolation(err) {
			continue
		}
		return apperrors.MapError(err)
	}
	return apperrors.NewInternalError(fmt.Errorf("could not allocate display id after %d attempts", displayIDMaxAttempts))
}

// StatusByDisplayID resolves a tracking id to its row and queue position.
func (s *SubmissionService) StatusByDisplayID(ctx context.Context, displayID string) (*RequestStatusView, error) {
	req, err := s.requests.GetByDisplayID(ctx, strings.TrimSpace(displayID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"display_id": displayID})
		}
		return nil, apperrors.MapError(err)
	}

	position := 0
	if req.Status == domain.RequestStatusPending {
		position, err = s.projector.Position(ctx, req.ID)
		if err != nil {
			return nil, err
		}
	}
	return &RequestStatusView{Request: *req, Position: position}, nil
}

// HistoryFor lists every request submitted under the username, newest first.
// Still-pending rows carry their live queue position.
func (s *SubmissionService) HistoryFor(ctx context.Context, username string) ([]RequestStatusView, error) {
	if !usernamePattern.MatchString(strings.TrimSpace(username)) {
		return nil, apperrors.NewValidationError("invalid username", map[string]any{"field": "username"})
	}
	rows, err := s.requests.ListBySubmitter(ctx, username)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	views := make([]RequestStatusView, 0, len(rows))
	for i := range rows {
		position := 0
		if rows[i].Status == domain.RequestStatusPending {
			position, err = s.projector.Position(ctx, rows[i].ID)
			if err != nil {
				return nil, err
			}
		}
		views = append(views, RequestStatusView{Request: rows[i], Position: position})
	}
	return views, nil
}

// AdminSearch lists requests with filters for the dashboard history panel.
func (s *SubmissionService) AdminSearch(ctx context.Context, filter repository.RequestFilter) ([]domain.BonusRequest, error) {
	rows, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rows, nil
}

// MarkNotified records that the submitter has seen the decision. The flag
// only ever moves from false to true.
func (s *SubmissionService) MarkNotified(ctx context.Context, displayID string) error {
	req, err := s.requests.GetByDisplayID(ctx, strings.TrimSpace(displayID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("request", map[string]any{"display_id": displayID})
		}
		return apperrors.MapError(err)
	}
	if !req.Status.IsTerminal() {
		return apperrors.NewConflict("request not yet decided", map[string]any{"display_id": displayID})
	}
	if err := s.requests.MarkNotified(ctx, req.DisplayID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *SubmissionService) publishCreated(ctx context.Context, req domain.BonusRequest) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventRequestCreated,
		RequestID: req.ID,
		Timestamp: time.Now(),
		Payload:   events.RequestCreatedPayload{Request: req},
	})
}

func generateDisplayID() string {
	return fmt.Sprintf("#REQ-%04d", rand.Intn(10000))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	// 23505 is the postgres unique_violation code.
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
