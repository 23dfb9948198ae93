package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bonus-desk/internal/domain"
)

const bonusTypeColumns = `id, name, label, icon, description, is_active, sort_order, created_at`

// BonusTypeRepository encapsulates the bonus catalog persistence.
type BonusTypeRepository interface {
	Create(ctx context.Context, bt *domain.BonusType) error
	GetByName(ctx context.Context, name string) (*domain.BonusType, error)
	ListActive(ctx context.Context) ([]domain.BonusType, error)
	ListAll(ctx context.Context) ([]domain.BonusType, error)
	Update(ctx context.Context, bt *domain.BonusType) error
	Delete(ctx context.Context, id string) error
}

type bonusTypeRepository struct {
	db DB
}

// NewBonusTypeRepository instantiates the repository.
func NewBonusTypeRepository(db DB) BonusTypeRepository {
	return &bonusTypeRepository{db: db}
}

// Create inserts the entry at the end of the catalog ordering.
func (r *bonusTypeRepository) Create(ctx context.Context, bt *domain.BonusType) error {
	const query = `
        INSERT INTO bonus_types (name, label, icon, description, is_active, sort_order)
        VALUES ($1,$2,$3,$4,$5, (SELECT COALESCE(MAX(sort_order),0)+1 FROM bonus_types))
        RETURNING id, sort_order, created_at`
	return r.db.QueryRow(ctx, query,
		bt.Name,
		bt.Label,
		bt.Icon,
		bt.Description,
		bt.IsActive,
	).Scan(&bt.ID, &bt.SortOrder, &bt.CreatedAt)
}

func (r *bonusTypeRepository) GetByName(ctx context.Context, name string) (*domain.BonusType, error) {
	query := `SELECT ` + bonusTypeColumns + ` FROM bonus_types WHERE name=$1`
	var bt domain.BonusType
	if err := scanBonusType(r.db.QueryRow(ctx, query, name), &bt); err != nil {
		return nil, err
	}
	return &bt, nil
}

func (r *bonusTypeRepository) ListActive(ctx context.Context) ([]domain.BonusType, error) {
	query := `SELECT ` + bonusTypeColumns + ` FROM bonus_types WHERE is_active=TRUE ORDER BY sort_order ASC`
	return r.list(ctx, query)
}

func (r *bonusTypeRepository) ListAll(ctx context.Context) ([]domain.BonusType, error) {
	query := `SELECT ` + bonusTypeColumns + ` FROM bonus_types ORDER BY sort_order ASC`
	return r.list(ctx, query)
}

func (r *bonusTypeRepository) list(ctx context.Context, query string) ([]domain.BonusType, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BonusType
	for rows.Next() {
		var bt domain.BonusType
		if err := scanBonusType(rows, &bt); err != nil {
			return nil, err
		}
		result = append(result, bt)
	}
	return result, rows.Err()
}

func (r *bonusTypeRepository) Update(ctx context.Context, bt *domain.BonusType) error {
	const query = `
        UPDATE bonus_types
        SET label=$2, icon=$3, description=$4, is_active=$5, sort_order=$6
        WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, bt.ID, bt.Label, bt.Icon, bt.Description, bt.IsActive, bt.SortOrder)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *bonusTypeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM bonus_types WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanBonusType(row pgx.Row, bt *domain.BonusType) error {
	return row.Scan(
		&bt.ID,
		&bt.Name,
		&bt.Label,
		&bt.Icon,
		&bt.Description,
		&bt.IsActive,
		&bt.SortOrder,
		&bt.CreatedAt,
	)
}
