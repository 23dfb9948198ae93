package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/repository"
	apperrors "github.com/spec-kit/bonus-desk/pkg/util/errorutil"
)

// StatsService aggregates dashboard and analytics figures. Counters that
// say "today" use the calendar day in server-local time; "last N days"
// windows are rolling from now.
type StatsService struct {
	stats    repository.StatsRepository
	requests repository.RequestRepository
	now      func() time.Time
}

// NewStatsService constructs the service.
func NewStatsService(stats repository.StatsRepository, requests repository.RequestRepository) *StatsService {
	return &StatsService{stats: stats, requests: requests, now: time.Now}
}

// DashboardSummary is the header block of the admin dashboard.
type DashboardSummary struct {
	PendingNow       int     `json:"pending_now"`
	TodayTotal       int     `json:"today_total"`
	TodayApproved    int     `json:"today_approved"`
	TodayRejected    int     `json:"today_rejected"`
	TodayPending     int     `json:"today_pending"`
	AvgDecisionSecs  float64 `json:"avg_decision_seconds"`
	RejectionRate7d  float64 `json:"rejection_rate_7d"`
	GrowthPercent30d float64 `json:"growth_percent_30d"`

	RecentActivity []ActivityItem `json:"recent_activity"`
}

// ActivityItem is one recently processed request shown on the dashboard.
type ActivityItem struct {
	DisplayID string    `json:"display_id"`
	Username  string    `json:"username"`
	BonusType string    `json:"bonus_type"`
	Status    string    `json:"status"`
	DecidedAt time.Time `json:"decided_at"`
}

// TrendEntry is a leaderboard row with its change versus the previous
// period (positive means more volume than before).
type TrendEntry struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Count int    `json:"count"`
	Delta int    `json:"delta"`
}

// Analytics bundles the chart data for the analytics panel.
type Analytics struct {
	DailyVolume7d []repository.DayCount  `json:"daily_volume_7d"`
	PeakHours     []repository.HourCount `json:"peak_hours"`
	TopBonusTypes []TrendEntry           `json:"top_bonus_types"`
}

// Summary computes the dashboard header figures.
func (s *StatsService) Summary(ctx context.Context) (*DashboardSummary, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	pending, err := s.requests.PendingCount(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	today, err := s.stats.CountByStatusSince(ctx, dayStart)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	summary := &DashboardSummary{PendingNow: pending}
	for _, sc := range today {
		summary.TodayTotal += sc.Count
		switch sc.Status {
		case domain.RequestStatusApproved:
			summary.TodayApproved = sc.Count
		case domain.RequestStatusRejected:
			summary.TodayRejected = sc.Count
		case domain.RequestStatusPending:
			summary.TodayPending = sc.Count
		}
	}

	weekAgo := now.Add(-7 * 24 * time.Hour)
	weekly, err := s.stats.CountByStatusSince(ctx, weekAgo)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	var weekDecided, weekRejected int
	for _, sc := range weekly {
		switch sc.Status {
		case domain.RequestStatusApproved:
			weekDecided += sc.Count
		case domain.RequestStatusRejected:
			weekDecided += sc.Count
			weekRejected = sc.Count
		}
	}
	if weekDecided > 0 {
		summary.RejectionRate7d = float64(weekRejected) / float64(weekDecided) * 100
	}

	summary.AvgDecisionSecs, err = s.stats.AvgDecisionSeconds(ctx, weekAgo)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	summary.GrowthPercent30d, err = s.growth30d(ctx, now)
	if err != nil {
		return nil, err
	}

	recent, err := s.stats.RecentDecisions(ctx, 5)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	summary.RecentActivity = make([]ActivityItem, 0, len(recent))
	for _, entry := range recent {
		summary.RecentActivity = append(summary.RecentActivity, ActivityItem{
			DisplayID: entry.DisplayID,
			Username:  entry.Username,
			BonusType: entry.BonusTypeLabel,
			Status:    string(entry.Status),
			DecidedAt: entry.ProcessedAt,
		})
	}
	return summary, nil
}

// growth30d compares the last 30 days of volume against the 30 before.
func (s *StatsService) growth30d(ctx context.Context, now time.Time) (float64, error) {
	cut := now.Add(-30 * 24 * time.Hour)
	prevCut := now.Add(-60 * 24 * time.Hour)

	current, err := s.stats.CountCreatedBetween(ctx, cut, now)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	previous, err := s.stats.CountCreatedBetween(ctx, prevCut, cut)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if previous == 0 {
		if current == 0 {
			return 0, nil
		}
		return 100, nil
	}
	return float64(current-previous) / float64(previous) * 100, nil
}

// Charts computes the analytics panel data.
func (s *StatsService) Charts(ctx context.Context) (*Analytics, error) {
	now := s.now()
	weekAgo := now.Add(-7 * 24 * time.Hour)

	volume, err := s.stats.DailyVolume(ctx, weekAgo)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	hours, err := s.stats.HourlyHistogram(ctx, weekAgo)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	top, err := s.topBonusTypesWithTrend(ctx, now)
	if err != nil {
		return nil, err
	}
	return &Analytics{DailyVolume7d: volume, PeakHours: hours, TopBonusTypes: top}, nil
}

// topBonusTypesWithTrend ranks today's bonus types and compares each count
// against yesterday's.
func (s *StatsService) topBonusTypesWithTrend(ctx context.Context, now time.Time) ([]TrendEntry, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	today, err := s.stats.TopBonusTypes(ctx, dayStart, 5)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	yesterday, err := s.stats.TopBonusTypes(ctx, dayStart.Add(-24*time.Hour), 100)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	// Yesterday's query window includes today; subtract to isolate it.
	previous := make(map[string]int, len(yesterday))
	for _, nc := range yesterday {
		previous[nc.Name] = nc.Count
	}
	entries := make([]TrendEntry, 0, len(today))
	for _, nc := range today {
		entries = append(entries, TrendEntry{
			Name:  nc.Name,
			Label: nc.Label,
			Count: nc.Count,
			Delta: nc.Count - (previous[nc.Name] - nc.Count),
		})
	}
	return entries, nil
}

// TopSubmitters ranks usernames by volume over a rolling window of days.
func (s *StatsService) TopSubmitters(ctx context.Context, windowDays, limit int) ([]repository.NamedCount, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	if limit <= 0 {
		limit = 10
	}
	since := s.now().Add(-time.Duration(windowDays) * 24 * time.Hour)
	result, err := s.stats.TopSubmitters(ctx, since, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// ExportCSV renders recent requests as a UTF-8 CSV with a byte order mark
// so spreadsheet imports detect the encoding.
func (s *StatsService) ExportCSV(ctx context.Context, windowDays int) ([]byte, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	rows, err := s.requests.List(ctx, repository.RequestFilter{SinceDays: windowDays})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF})
	w := csv.NewWriter(&buf)

	header := []string{"id", "username", "bonus_type", "status", "note", "admin_note", "created_at", "processed_at"}
	if err := w.Write(header); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	for _, row := range rows {
		processedAt := ""
		if row.ProcessedAt != nil {
			processedAt = row.ProcessedAt.Format(time.RFC3339)
		}
		record := []string{
			row.DisplayID,
			row.Username,
			row.BonusTypeLabel,
			string(row.Status),
			row.Note,
			row.AdminNote,
			row.CreatedAt.Format(time.RFC3339),
			processedAt,
		}
		if err := w.Write(record); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

// ExportFilename derives the attachment name for a CSV export.
func (s *StatsService) ExportFilename() string {
	return fmt.Sprintf("bonus-requests-%s.csv", s.now().Format("2006-01-02"))
}
