package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/events"
	"github.com/spec-kit/bonus-desk/internal/observability"
	"github.com/spec-kit/bonus-desk/internal/repository"
)

// fakeRequestRepo mimics the conditional-update semantics of the SQL
// repository so assignment races behave the same way in tests.
type fakeRequestRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[string]*domain.BonusRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{rows: make(map[string]*domain.BonusRequest)}
}

func (f *fakeRequestRepo) add(req domain.BonusRequest) *domain.BonusRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if req.ID == "" {
		req.ID = "req-" + strconv.Itoa(f.nextID)
	}
	if req.DisplayID == "" {
		req.DisplayID = "#REQ-" + strconv.Itoa(1000+f.nextID)
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().Add(time.Duration(f.nextID) * time.Millisecond)
	}
	req.UpdatedAt = req.CreatedAt
	copied := req
	f.rows[req.ID] = &copied
	return &req
}

func (f *fakeRequestRepo) Create(_ context.Context, req *domain.BonusRequest) error {
	f.mu.Lock()
	for _, row := range f.rows {
		if row.DisplayID == req.DisplayID {
			f.mu.Unlock()
			return errDuplicateDisplayID
		}
	}
	f.mu.Unlock()
	created := f.add(*req)
	*req = *created
	return nil
}

func (f *fakeRequestRepo) GetByID(_ context.Context, id string) (*domain.BonusRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *row
	return &copied, nil
}

func (f *fakeRequestRepo) GetByDisplayID(_ context.Context, displayID string) (*domain.BonusRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.DisplayID == displayID {
			copied := *row
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeRequestRepo) List(_ context.Context, filter repository.RequestFilter) ([]domain.BonusRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.BonusRequest
	for _, row := range f.rows {
		if filter.Username != nil && !strings.EqualFold(row.Username, *filter.Username) {
			continue
		}
		if filter.AssignedTo != nil && (row.AssignedTo == nil || *row.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, row.Status) {
			continue
		}
		if filter.SinceDays > 0 && row.CreatedAt.Before(time.Now().Add(-time.Duration(filter.SinceDays)*24*time.Hour)) {
			continue
		}
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (f *fakeRequestRepo) ListBySubmitter(ctx context.Context, username string) ([]domain.BonusRequest, error) {
	return f.List(ctx, repository.RequestFilter{Username: &username})
}

func (f *fakeRequestRepo) Claim(_ context.Context, id, adminID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.Status != domain.RequestStatusPending || row.AssignedTo != nil {
		return false, nil
	}
	row.AssignedTo = &adminID
	row.AssignedAt = &at
	row.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeRequestRepo) StealFrom(_ context.Context, id, fromAdminID, toAdminID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.Status != domain.RequestStatusPending || row.AssignedTo == nil || *row.AssignedTo != fromAdminID {
		return false, nil
	}
	row.AssignedTo = &toAdminID
	row.AssignedAt = &at
	row.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeRequestRepo) Release(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.Status != domain.RequestStatusPending {
		return nil
	}
	row.AssignedTo = nil
	row.AssignedAt = nil
	row.UpdatedAt = time.Now()
	return nil
}

func (f *fakeRequestRepo) ReleaseAll(_ context.Context, adminID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, row := range f.rows {
		if row.Status == domain.RequestStatusPending && row.AssignedTo != nil && *row.AssignedTo == adminID {
			row.AssignedTo = nil
			row.AssignedAt = nil
			row.UpdatedAt = time.Now()
			count++
		}
	}
	return count, nil
}

func (f *fakeRequestRepo) Decide(_ context.Context, id, adminID string, outcome domain.RequestStatus, note string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.Status != domain.RequestStatusPending {
		return false, nil
	}
	if row.AssignedTo != nil && *row.AssignedTo != adminID {
		return false, nil
	}
	row.Status = outcome
	row.AdminNote = note
	row.ProcessedBy = &adminID
	row.ProcessedAt = &at
	row.AssignedTo = nil
	row.AssignedAt = nil
	row.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeRequestRepo) MarkNotified(_ context.Context, displayID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.DisplayID == displayID && !row.Notified {
			row.Notified = true
		}
	}
	return nil
}

func (f *fakeRequestRepo) HasPending(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if strings.EqualFold(row.Username, username) && row.Status == domain.RequestStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequestRepo) LastProcessedAt(_ context.Context, username string) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *time.Time
	for _, row := range f.rows {
		if strings.EqualFold(row.Username, username) && row.ProcessedAt != nil {
			if last == nil || row.ProcessedAt.After(*last) {
				last = row.ProcessedAt
			}
		}
	}
	return last, nil
}

func (f *fakeRequestRepo) PendingCount(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, row := range f.rows {
		if row.Status == domain.RequestStatusPending {
			count++
		}
	}
	return count, nil
}

// fakeAdminRepo is an in-memory AdminRepository.
type fakeAdminRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[string]*domain.Admin
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{rows: make(map[string]*domain.Admin)}
}

func (f *fakeAdminRepo) add(admin domain.Admin) *domain.Admin {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if admin.ID == "" {
		admin.ID = "admin-" + strconv.Itoa(f.nextID)
	}
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = time.Now()
	}
	copied := admin
	f.rows[admin.ID] = &copied
	return &admin
}

func (f *fakeAdminRepo) Create(_ context.Context, admin *domain.Admin) error {
	created := f.add(*admin)
	*admin = *created
	return nil
}

func (f *fakeAdminRepo) GetByID(_ context.Context, id string) (*domain.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *row
	return &copied, nil
}

func (f *fakeAdminRepo) GetByUsername(_ context.Context, username string) (*domain.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if strings.EqualFold(row.Username, username) {
			copied := *row
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAdminRepo) List(_ context.Context) ([]domain.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]domain.Admin, 0, len(f.rows))
	for _, row := range f.rows {
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeAdminRepo) ListByStatus(_ context.Context, status domain.PresenceStatus) ([]domain.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Admin
	for _, row := range f.rows {
		if row.Status == status {
			result = append(result, *row)
		}
	}
	return result, nil
}

func (f *fakeAdminRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	row.PasswordHash = passwordHash
	return nil
}

func (f *fakeAdminRepo) SetStatus(_ context.Context, id string, status domain.PresenceStatus, lastSeen time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	row.Status = status
	row.LastSeen = lastSeen
	return nil
}

func (f *fakeAdminRepo) Touch(_ context.Context, id string, lastSeen time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	row.LastSeen = lastSeen
	return nil
}

func (f *fakeAdminRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.rows, id)
	return nil
}

// fakeBonusTypeRepo is an in-memory BonusTypeRepository.
type fakeBonusTypeRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[string]*domain.BonusType
}

func newFakeBonusTypeRepo() *fakeBonusTypeRepo {
	return &fakeBonusTypeRepo{rows: make(map[string]*domain.BonusType)}
}

func (f *fakeBonusTypeRepo) add(bt domain.BonusType) *domain.BonusType {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if bt.ID == "" {
		bt.ID = "bt-" + strconv.Itoa(f.nextID)
	}
	if bt.SortOrder == 0 {
		bt.SortOrder = f.nextID
	}
	copied := bt
	f.rows[bt.ID] = &copied
	return &bt
}

func (f *fakeBonusTypeRepo) Create(_ context.Context, bt *domain.BonusType) error {
	created := f.add(*bt)
	*bt = *created
	return nil
}

func (f *fakeBonusTypeRepo) GetByName(_ context.Context, name string) (*domain.BonusType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.Name == name {
			copied := *row
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeBonusTypeRepo) ListActive(_ context.Context) ([]domain.BonusType, error) {
	return f.list(true), nil
}

func (f *fakeBonusTypeRepo) ListAll(_ context.Context) ([]domain.BonusType, error) {
	return f.list(false), nil
}

func (f *fakeBonusTypeRepo) list(activeOnly bool) []domain.BonusType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.BonusType
	for _, row := range f.rows {
		if activeOnly && !row.IsActive {
			continue
		}
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SortOrder < result[j].SortOrder })
	return result
}

func (f *fakeBonusTypeRepo) Update(_ context.Context, bt *domain.BonusType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[bt.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *bt
	f.rows[bt.ID] = &copied
	return nil
}

func (f *fakeBonusTypeRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.rows, id)
	return nil
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
	inner  events.Dispatcher
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{inner: events.NewInMemoryDispatcher()}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.events = append(d.events, event)
	d.mu.Unlock()
	return d.inner.Publish(ctx, event)
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.inner.Subscribe(eventType, handler)
}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

type testEnv struct {
	requests   *fakeRequestRepo
	admins     *fakeAdminRepo
	dispatcher *recordingDispatcher
	assignment *AssignmentService
	presence   *PresenceService
}

func newTestEnv() *testEnv {
	requests := newFakeRequestRepo()
	admins := newFakeAdminRepo()
	dispatcher := newRecordingDispatcher()
	assignment := NewAssignmentService(AssignmentDependencies{
		RequestRepo: requests,
		AdminRepo:   admins,
		Dispatcher:  dispatcher,
		Metrics:     observability.NewMetrics(),
	})
	presence := NewPresenceService(PresenceDependencies{
		AdminRepo:  admins,
		Assignment: assignment,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	return &testEnv{
		requests:   requests,
		admins:     admins,
		dispatcher: dispatcher,
		assignment: assignment,
		presence:   presence,
	}
}

func (e *testEnv) addAdmin(id string, status domain.PresenceStatus) *domain.Admin {
	return e.admins.add(domain.Admin{ID: id, Username: id, Role: domain.AdminRoleAdmin, Status: status})
}

func (e *testEnv) addPending(id, username string) *domain.BonusRequest {
	return e.requests.add(domain.BonusRequest{
		ID:             id,
		Username:       username,
		BonusType:      "welcome",
		BonusTypeLabel: "Welcome Bonus",
		Status:         domain.RequestStatusPending,
	})
}

var errDuplicateDisplayID = &pgconn.PgError{
	Code:    "23505",
	Message: `duplicate key value violates unique constraint "bonus_requests_display_id_key"`,
}


func containsStatus(statuses []domain.RequestStatus, status domain.RequestStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
