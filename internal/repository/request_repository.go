package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bonus-desk/internal/domain"
)

const requestColumns = `id, display_id, username, bonus_type, bonus_type_label, note, admin_note,
               status, assigned_to, assigned_at, processed_by, processed_at, notified, created_at, updated_at`

// RequestFilter captures listing parameters for the dashboard and sweeps.
type RequestFilter struct {
	Username   *string
	BonusType  *string
	Statuses   []domain.RequestStatus
	AssignedTo *string
	SinceDays  int
	Limit      int
	Offset     int
}

// RequestRepository encapsulates bonus request persistence.
//
// Claim, StealFrom and Decide are conditional single-statement updates: two
// concurrent calls on the same row yield exactly one success. This is the
// coordination primitive the whole assignment protocol rests on.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.BonusRequest) error
	GetByID(ctx context.Context, id string) (*domain.BonusRequest, error)
	GetByDisplayID(ctx context.Context, displayID string) (*domain.BonusRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.BonusRequest, error)
	ListBySubmitter(ctx context.Context, username string) ([]domain.BonusRequest, error)

	Claim(ctx context.Context, id, adminID string, at time.Time) (bool, error)
	StealFrom(ctx context.Context, id, fromAdminID, toAdminID string, at time.Time) (bool, error)
	Release(ctx context.Context, id string) error
	ReleaseAll(ctx context.Context, adminID string) (int64, error)
	Decide(ctx context.Context, id, adminID string, outcome domain.RequestStatus, note string, at time.Time) (bool, error)

	MarkNotified(ctx context.Context, displayID string) error
	HasPending(ctx context.Context, username string) (bool, error)
	LastProcessedAt(ctx context.Context, username string) (*time.Time, error)
	PendingCount(ctx context.Context) (int, error)
}

type requestRepository struct {
	db DB
}

// NewRequestRepository instantiates the repository.
func NewRequestRepository(db DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *domain.BonusRequest) error {
	const query = `
        INSERT INTO bonus_requests (display_id, username, bonus_type, bonus_type_label, note, status, notified)
        VALUES ($1,$2,$3,$4,$5,$6,FALSE)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		req.DisplayID,
		req.Username,
		req.BonusType,
		req.BonusTypeLabel,
		req.Note,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.BonusRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM bonus_requests WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *requestRepository) GetByDisplayID(ctx context.Context, displayID string) (*domain.BonusRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM bonus_requests WHERE display_id=$1`
	return r.fetchSingle(ctx, query, displayID)
}

func (r *requestRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.BonusRequest, error) {
	var req domain.BonusRequest
	if err := scanRequest(r.db.QueryRow(ctx, query, arg), &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]domain.BonusRequest, error) {
	base := `SELECT ` + requestColumns + ` FROM bonus_requests`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Username != nil {
		args = append(args, strings.ToLower(strings.TrimSpace(*filter.Username)))
		clauses = append(clauses, fmt.Sprintf("LOWER(username)=$%d", len(args)))
	}
	if filter.BonusType != nil {
		args = append(args, *filter.BonusType)
		clauses = append(clauses, fmt.Sprintf("bonus_type=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SinceDays > 0 {
		args = append(args, time.Now().Add(-time.Duration(filter.SinceDays)*24*time.Hour))
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY created_at DESC", base, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *requestRepository) ListBySubmitter(ctx context.Context, username string) ([]domain.BonusRequest, error) {
	name := username
	return r.List(ctx, RequestFilter{Username: &name})
}

// Claim sets the assignee only when the row is still pending and unclaimed.
func (r *requestRepository) Claim(ctx context.Context, id, adminID string, at time.Time) (bool, error) {
	const query = `
        UPDATE bonus_requests
        SET assigned_to=$2, assigned_at=$3, updated_at=NOW()
        WHERE id=$1 AND status='pending' AND assigned_to IS NULL`
	cmd, err := r.db.Exec(ctx, query, id, adminID, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// StealFrom reassigns the claim only while the named holder still owns it.
func (r *requestRepository) StealFrom(ctx context.Context, id, fromAdminID, toAdminID string, at time.Time) (bool, error) {
	const query = `
        UPDATE bonus_requests
        SET assigned_to=$3, assigned_at=$4, updated_at=NOW()
        WHERE id=$1 AND status='pending' AND assigned_to=$2`
	cmd, err := r.db.Exec(ctx, query, id, fromAdminID, toAdminID, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// Release clears the assignment. Terminal rows are untouched; clearing an
// already-null assignment is a no-op.
func (r *requestRepository) Release(ctx context.Context, id string) error {
	const query = `
        UPDATE bonus_requests
        SET assigned_to=NULL, assigned_at=NULL, updated_at=NOW()
        WHERE id=$1 AND status='pending'`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// ReleaseAll clears every pending claim held by the admin and reports how
// many rows it touched. Safe to call redundantly.
func (r *requestRepository) ReleaseAll(ctx context.Context, adminID string) (int64, error) {
	const query = `
        UPDATE bonus_requests
        SET assigned_to=NULL, assigned_at=NULL, updated_at=NOW()
        WHERE assigned_to=$1 AND status='pending'`
	cmd, err := r.db.Exec(ctx, query, adminID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// Decide applies the terminal transition and clears the assignment in the
// same statement. It succeeds only while the row is pending and either
// unclaimed or claimed by the deciding admin.
func (r *requestRepository) Decide(ctx context.Context, id, adminID string, outcome domain.RequestStatus, note string, at time.Time) (bool, error) {
	const query = `
        UPDATE bonus_requests
        SET status=$3, admin_note=$4, processed_by=$2, processed_at=$5,
            assigned_to=NULL, assigned_at=NULL, updated_at=NOW()
        WHERE id=$1 AND status='pending' AND (assigned_to IS NULL OR assigned_to=$2)`
	cmd, err := r.db.Exec(ctx, query, id, adminID, outcome, note, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// MarkNotified flips the notified flag once; it never resets.
func (r *requestRepository) MarkNotified(ctx context.Context, displayID string) error {
	const query = `
        UPDATE bonus_requests SET notified=TRUE, updated_at=NOW()
        WHERE display_id=$1 AND notified=FALSE`
	_, err := r.db.Exec(ctx, query, displayID)
	return err
}

func (r *requestRepository) HasPending(ctx context.Context, username string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM bonus_requests WHERE LOWER(username)=LOWER($1) AND status='pending'
        )`
	var exists bool
	if err := r.db.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *requestRepository) LastProcessedAt(ctx context.Context, username string) (*time.Time, error) {
	const query = `
        SELECT processed_at FROM bonus_requests
        WHERE LOWER(username)=LOWER($1) AND processed_at IS NOT NULL
        ORDER BY processed_at DESC LIMIT 1`
	var at time.Time
	if err := r.db.QueryRow(ctx, query, username).Scan(&at); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &at, nil
}

func (r *requestRepository) PendingCount(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM bonus_requests WHERE status='pending'`
	var count int
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanRequest(row pgx.Row, req *domain.BonusRequest) error {
	return row.Scan(
		&req.ID,
		&req.DisplayID,
		&req.Username,
		&req.BonusType,
		&req.BonusTypeLabel,
		&req.Note,
		&req.AdminNote,
		&req.Status,
		&req.AssignedTo,
		&req.AssignedAt,
		&req.ProcessedBy,
		&req.ProcessedAt,
		&req.Notified,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
}

func scanRequests(rows pgx.Rows) ([]domain.BonusRequest, error) {
	var result []domain.BonusRequest
	for rows.Next() {
		var req domain.BonusRequest
		if err := scanRequest(rows, &req); err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}
