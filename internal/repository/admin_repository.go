package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bonus-desk/internal/domain"
)

const adminColumns = `id, username, password_hash, role, status, last_seen, is_protected, created_at`

// AdminRepository encapsulates admin account and presence persistence.
type AdminRepository interface {
	Create(ctx context.Context, admin *domain.Admin) error
	GetByID(ctx context.Context, id string) (*domain.Admin, error)
	GetByUsername(ctx context.Context, username string) (*domain.Admin, error)
	List(ctx context.Context) ([]domain.Admin, error)
	ListByStatus(ctx context.Context, status domain.PresenceStatus) ([]domain.Admin, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetStatus(ctx context.Context, id string, status domain.PresenceStatus, lastSeen time.Time) error
	Touch(ctx context.Context, id string, lastSeen time.Time) error
	Delete(ctx context.Context, id string) error
}

type adminRepository struct {
	db DB
}

// NewAdminRepository instantiates the repository.
func NewAdminRepository(db DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	const query = `
        INSERT INTO admins (username, password_hash, role, status, is_protected)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, last_seen, created_at`
	return r.db.QueryRow(ctx, query,
		admin.Username,
		admin.PasswordHash,
		admin.Role,
		admin.Status,
		admin.IsProtected,
	).Scan(&admin.ID, &admin.LastSeen, &admin.CreatedAt)
}

func (r *adminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *adminRepository) GetByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE LOWER(username)=LOWER($1)`
	return r.fetchSingle(ctx, query, username)
}

func (r *adminRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Admin, error) {
	var admin domain.Admin
	if err := scanAdmin(r.db.QueryRow(ctx, query, arg), &admin); err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *adminRepository) List(ctx context.Context) ([]domain.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAdmins(rows)
}

func (r *adminRepository) ListByStatus(ctx context.Context, status domain.PresenceStatus) ([]domain.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE status=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAdmins(rows)
}

func (r *adminRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE admins SET password_hash=$2 WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *adminRepository) SetStatus(ctx context.Context, id string, status domain.PresenceStatus, lastSeen time.Time) error {
	const query = `UPDATE admins SET status=$2, last_seen=$3 WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, id, status, lastSeen)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Touch refreshes last_seen without changing the presence state.
func (r *adminRepository) Touch(ctx context.Context, id string, lastSeen time.Time) error {
	const query = `UPDATE admins SET last_seen=$2 WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, id, lastSeen)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *adminRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM admins WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAdmin(row pgx.Row, admin *domain.Admin) error {
	return row.Scan(
		&admin.ID,
		&admin.Username,
		&admin.PasswordHash,
		&admin.Role,
		&admin.Status,
		&admin.LastSeen,
		&admin.IsProtected,
		&admin.CreatedAt,
	)
}

func scanAdmins(rows pgx.Rows) ([]domain.Admin, error) {
	var result []domain.Admin
	for rows.Next() {
		var admin domain.Admin
		if err := scanAdmin(rows, &admin); err != nil {
			return nil, err
		}
		result = append(result, admin)
	}
	return result, rows.Err()
}
