package repository

import (
	"context"
	"time"

	"github.com/spec-kit/bonus-desk/internal/domain"
)

// StatusCount pairs a lifecycle state with how many rows are in it.
type StatusCount struct {
	Status domain.RequestStatus
	Count  int
}

// DayCount is one bucket of a per-day volume series.
type DayCount struct {
	Day   time.Time
	Count int
}

// HourCount is one bucket of an hour-of-day histogram.
type HourCount struct {
	Hour  int
	Count int
}

// NamedCount is a generic label/count pair used for bonus-type and
// submitter leaderboards.
type NamedCount struct {
	Name  string
	Label string
	Count int
}

// ActivityEntry is one row of the recent-decisions feed.
type ActivityEntry struct {
	DisplayID      string
	Username       string
	BonusTypeLabel string
	Status         domain.RequestStatus
	ProcessedAt    time.Time
}

// StatsRepository runs the aggregate queries behind the dashboard and
// analytics panels. Everything here is read-only.
type StatsRepository interface {
	CountByStatusSince(ctx context.Context, since time.Time) ([]StatusCount, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
	DailyVolume(ctx context.Context, since time.Time) ([]DayCount, error)
	HourlyHistogram(ctx context.Context, since time.Time) ([]HourCount, error)
	TopBonusTypes(ctx context.Context, since time.Time, limit int) ([]NamedCount, error)
	TopSubmitters(ctx context.Context, since time.Time, limit int) ([]NamedCount, error)
	AvgDecisionSeconds(ctx context.Context, since time.Time) (float64, error)
	RecentDecisions(ctx context.Context, limit int) ([]ActivityEntry, error)
}

type statsRepository struct {
	db DB
}

// NewStatsRepository instantiates the repository.
func NewStatsRepository(db DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) CountByStatusSince(ctx context.Context, since time.Time) ([]StatusCount, error) {
	const query = `
        SELECT status, COUNT(*) FROM bonus_requests
        WHERE created_at >= $1
        GROUP BY status`
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

func (r *statsRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM bonus_requests WHERE created_at >= $1 AND created_at < $2`
	var count int
	if err := r.db.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *statsRepository) DailyVolume(ctx context.Context, since time.Time) ([]DayCount, error) {
	const query = `
        SELECT date_trunc('day', created_at) AS day, COUNT(*)
        FROM bonus_requests
        WHERE created_at >= $1
        GROUP BY day
        ORDER BY day ASC`
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		result = append(result, dc)
	}
	return result, rows.Err()
}

func (r *statsRepository) HourlyHistogram(ctx context.Context, since time.Time) ([]HourCount, error) {
	const query = `
        SELECT EXTRACT(HOUR FROM created_at)::int AS hour, COUNT(*)
        FROM bonus_requests
        WHERE created_at >= $1
        GROUP BY hour
        ORDER BY hour ASC`
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []HourCount
	for rows.Next() {
		var hc HourCount
		if err := rows.Scan(&hc.Hour, &hc.Count); err != nil {
			return nil, err
		}
		result = append(result, hc)
	}
	return result, rows.Err()
}

func (r *statsRepository) TopBonusTypes(ctx context.Context, since time.Time, limit int) ([]NamedCount, error) {
	const query = `
        SELECT bonus_type, MAX(bonus_type_label), COUNT(*)
        FROM bonus_requests
        WHERE created_at >= $1
        GROUP BY bonus_type
        ORDER BY COUNT(*) DESC
        LIMIT $2`
	return r.listNamed(ctx, query, since, limit)
}

func (r *statsRepository) TopSubmitters(ctx context.Context, since time.Time, limit int) ([]NamedCount, error) {
	const query = `
        SELECT LOWER(username), MAX(username), COUNT(*)
        FROM bonus_requests
        WHERE created_at >= $1
        GROUP BY LOWER(username)
        ORDER BY COUNT(*) DESC
        LIMIT $2`
	return r.listNamed(ctx, query, since, limit)
}

func (r *statsRepository) listNamed(ctx context.Context, query string, since time.Time, limit int) ([]NamedCount, error) {
	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []NamedCount
	for rows.Next() {
		var nc NamedCount
		if err := rows.Scan(&nc.Name, &nc.Label, &nc.Count); err != nil {
			return nil, err
		}
		result = append(result, nc)
	}
	return result, rows.Err()
}

func (r *statsRepository) RecentDecisions(ctx context.Context, limit int) ([]ActivityEntry, error) {
	const query = `
        SELECT display_id, username, bonus_type_label, status, processed_at
        FROM bonus_requests
        WHERE processed_at IS NOT NULL
        ORDER BY processed_at DESC
        LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ActivityEntry
	for rows.Next() {
		var entry ActivityEntry
		if err := rows.Scan(&entry.DisplayID, &entry.Username, &entry.BonusTypeLabel, &entry.Status, &entry.ProcessedAt); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *statsRepository) AvgDecisionSeconds(ctx context.Context, since time.Time) (float64, error) {
	const query = `
        SELECT COALESCE(AVG(EXTRACT(EPOCH FROM processed_at - created_at)), 0)
        FROM bonus_requests
        WHERE processed_at IS NOT NULL AND created_at >= $1`
	var avg float64
	if err := r.db.QueryRow(ctx, query, since).Scan(&avg); err != nil {
		return 0, err
	}
	return avg, nil
}
