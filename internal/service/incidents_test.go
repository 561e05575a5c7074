package service_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"

	"incidentLog/internal/domain"
	"incidentLog/internal/service"
	mock_service "incidentLog/internal/service/mocks"
	"incidentLog/pkg/e"
)

// --- helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), &slog.HandlerOptions{Level: slog.LevelError}))
}

type deps struct {
	repo   *mock_service.MockIncidentRepository
	cache  *mock_service.MockIncidentCache
	events *mock_service.MockEventQueue
	svc    service.IncidentService
}

func newDeps(t *testing.T) deps {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := deps{
		repo:   mock_service.NewMockIncidentRepository(ctrl),
		cache:  mock_service.NewMockIncidentCache(ctrl),
		events: mock_service.NewMockEventQueue(ctrl),
	}
	d.svc = service.NewIncidentService(d.repo, d.cache, d.events, newTestLogger(), time.Minute)
	return d
}

func validRequest() domain.CreateIncidentRequest {
	return domain.CreateIncidentRequest{
		Title:       "  Bias issue ",
		Description: " Model showed bias ",
		Severity:    domain.SeverityHigh,
	}
}

// --- Create ---

func TestIncidentService_Create_OK_SanitizesAndPublishes(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	var stored *domain.Incident
	d.repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *domain.Incident) error {
			inc.ID = uuid.New()
			inc.ReportedAt = time.Now().UTC()
			stored = inc
			return nil
		}).
		Times(1)
	d.cache.EXPECT().Invalidate(gomock.Any()).Return(nil).Times(1)
	d.events.EXPECT().
		Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev domain.IncidentEvent) error {
			if ev.Type != domain.IncidentCreated || ev.Incident.ID != stored.ID {
				t.Fatalf("unexpected event %+v", ev)
			}
			return nil
		}).
		Times(1)

	got, err := d.svc.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Title != "Bias issue" || got.Description != "Model showed bias" {
		t.Fatalf("expected trimmed fields, got %+v", got)
	}
	if got.Severity != domain.SeverityHigh {
		t.Fatalf("severity changed: %q", got.Severity)
	}
	if got != stored {
		t.Fatalf("expected the stored incident back")
	}
}

func TestIncidentService_Create_PassesExplicitReportedAt(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	at := time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC)
	req := validRequest()
	req.ReportedAt = &at

	d.repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *domain.Incident) error {
			if !inc.ReportedAt.Equal(at) {
				t.Fatalf("reported_at not forwarded: %v", inc.ReportedAt)
			}
			return nil
		})
	d.cache.EXPECT().Invalidate(gomock.Any()).Return(nil)
	d.events.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil)

	if _, err := d.svc.Create(context.Background(), req); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestIncidentService_Create_ValidationError_NoStoreCall(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	_, err := d.svc.Create(context.Background(), domain.CreateIncidentRequest{Title: strings.Repeat("a", 101), Severity: "high"})
	if err == nil {
		t.Fatalf("expected error")
	}
	var ve *e.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	want := "Title cannot be more than 100 characters. Description is required. Severity must be either Low, Medium, or High"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestIncidentService_Create_RepoError(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	boom := errors.New("boom")
	d.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(boom).Times(1)

	if _, err := d.svc.Create(context.Background(), validRequest()); !errors.Is(err, boom) {
		t.Fatalf("expected repo error, got %v", err)
	}
}

func TestIncidentService_Create_SideEffectFailuresIgnored(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	d.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	d.cache.EXPECT().Invalidate(gomock.Any()).Return(errors.New("redis down"))
	d.events.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	if _, err := d.svc.Create(context.Background(), validRequest()); err != nil {
		t.Fatalf("cache/queue failures must not fail create: %v", err)
	}
}

// --- List ---

func TestIncidentService_List_CacheHit(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	cached := []*domain.Incident{{ID: uuid.New(), Title: "cached"}}
	d.cache.EXPECT().GetAll(gomock.Any()).Return(cached, nil)

	got, err := d.svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0].Title != "cached" {
		t.Fatalf("unexpected list %+v", got)
	}
}

func TestIncidentService_List_CachedEmptyListIsHit(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	d.cache.EXPECT().GetAll(gomock.Any()).Return([]*domain.Incident{}, nil)

	got, err := d.svc.List(context.Background())
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty list from cache, got=%v err=%v", got, err)
	}
}

func TestIncidentService_List_MissFillsCache(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	fromStore := []*domain.Incident{{ID: uuid.New()}, {ID: uuid.New()}}
	gomock.InOrder(
		d.cache.EXPECT().GetAll(gomock.Any()).Return(nil, nil),
		d.cache.EXPECT().Generation(gomock.Any()).Return(int64(7), nil),
		d.repo.EXPECT().List(gomock.Any()).Return(fromStore, nil),
		d.cache.EXPECT().SetAll(gomock.Any(), fromStore, time.Minute, int64(7)).Return(true, nil),
	)

	got, err := d.svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 got %d", len(got))
	}
}

func TestIncidentService_List_CacheErrorFallsBackToStore(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	d.cache.EXPECT().GetAll(gomock.Any()).Return(nil, errors.New("redis down"))
	d.cache.EXPECT().Generation(gomock.Any()).Return(int64(0), nil)
	d.repo.EXPECT().List(gomock.Any()).Return([]*domain.Incident{}, nil)
	d.cache.EXPECT().SetAll(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("redis down"))

	if _, err := d.svc.List(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestIncidentService_List_StoreError(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	d.cache.EXPECT().GetAll(gomock.Any()).Return(nil, nil)
	d.cache.EXPECT().Generation(gomock.Any()).Return(int64(0), nil)
	d.repo.EXPECT().List(gomock.Any()).Return(nil, e.ErrInternal)

	if _, err := d.svc.List(context.Background()); !errors.Is(err, e.ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
}

func TestIncidentService_List_GenerationErrorSkipsFill(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	d.cache.EXPECT().GetAll(gomock.Any()).Return(nil, nil)
	d.cache.EXPECT().Generation(gomock.Any()).Return(int64(0), errors.New("redis down"))
	d.repo.EXPECT().List(gomock.Any()).Return([]*domain.Incident{{ID: uuid.New()}}, nil)

	got, err := d.svc.List(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("unexpected got=%v err=%v", got, err)
	}
}

func TestIncidentService_List_StaleFillDropped(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	d.cache.EXPECT().GetAll(gomock.Any()).Return(nil, nil)
	d.cache.EXPECT().Generation(gomock.Any()).Return(int64(1), nil)
	d.repo.EXPECT().List(gomock.Any()).Return([]*domain.Incident{}, nil)
	d.cache.EXPECT().SetAll(gomock.Any(), gomock.Any(), time.Minute, int64(1)).Return(false, nil)

	if _, err := d.svc.List(context.Background()); err != nil {
		t.Fatalf("a dropped fill is not an error: %v", err)
	}
}

// blockingRepo parks the first List after it has read the store, so a write can
// land between the read and the cache fill.
type blockingRepo struct {
	mu      sync.Mutex
	items   []*domain.Incident
	once    sync.Once
	listed  chan struct{}
	release chan struct{}
}

func newBlockingRepo() *blockingRepo {
	return &blockingRepo{listed: make(chan struct{}), release: make(chan struct{})}
}

func (r *blockingRepo) Create(_ context.Context, inc *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inc.ID = uuid.New()
	if inc.ReportedAt.IsZero() {
		inc.ReportedAt = time.Now().UTC()
	}
	r.items = append([]*domain.Incident{inc}, r.items...)
	return nil
}

func (r *blockingRepo) List(context.Context) ([]*domain.Incident, error) {
	r.mu.Lock()
	snapshot := append([]*domain.Incident{}, r.items...)
	r.mu.Unlock()

	r.once.Do(func() {
		close(r.listed)
		<-r.release
	})
	return snapshot, nil
}

func (r *blockingRepo) Get(context.Context, uuid.UUID) (*domain.Incident, error) {
	return nil, e.ErrNotFound
}

func (r *blockingRepo) FindByTitle(context.Context, string, bool) (*domain.Incident, error) {
	return nil, e.ErrNotFound
}

func (r *blockingRepo) Delete(context.Context, uuid.UUID) (*domain.Incident, error) {
	return nil, e.ErrNotFound
}

// memCache is a generation-guarded list cache with the same contract as the Redis one.
type memCache struct {
	mu   sync.Mutex
	list []*domain.Incident
	gen  int64
}

func (c *memCache) GetAll(context.Context) ([]*domain.Incident, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list, nil
}

func (c *memCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *memCache) SetAll(_ context.Context, incidents []*domain.Incident, _ time.Duration, gen int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false, nil
	}
	if incidents == nil {
		incidents = []*domain.Incident{}
	}
	c.list = incidents
	return true, nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.list = nil
	return nil
}

func TestIncidentService_List_CreateDuringFillIsVisible(t *testing.T) {
	t.Parallel()

	repo := newBlockingRepo()
	svc := service.NewIncidentService(repo, &memCache{}, nil, newTestLogger(), time.Minute)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.List(ctx)
		done <- err
	}()

	<-repo.listed
	if _, err := svc.Create(ctx, validRequest()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	close(repo.release)
	if err := <-done; err != nil {
		t.Fatalf("first List: %v", err)
	}

	got, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Bias issue" {
		t.Fatalf("store has 1 incident, List after create returned %d", len(got))
	}
}

// --- Get / GetByTitle ---

func TestIncidentService_Get_Propagates(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	id := uuid.New()
	d.repo.EXPECT().Get(gomock.Any(), id).Return(nil, e.ErrNotFound)

	if _, err := d.svc.Get(context.Background(), id); !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIncidentService_GetByTitle(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	want := &domain.Incident{ID: uuid.New(), Title: "Resource Anomaly"}
	d.repo.EXPECT().FindByTitle(gomock.Any(), "resource anomaly", true).Return(want, nil)

	got, err := d.svc.GetByTitle(context.Background(), "resource anomaly", true)
	if err != nil || got.ID != want.ID {
		t.Fatalf("unexpected got=%+v err=%v", got, err)
	}
}

func TestIncidentService_GetByTitle_BlankTitle(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	if _, err := d.svc.GetByTitle(context.Background(), "   ", false); !errors.Is(err, e.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// --- Delete ---

func TestIncidentService_Delete_OK(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	id := uuid.New()
	d.repo.EXPECT().Delete(gomock.Any(), id).Return(&domain.Incident{ID: id}, nil)
	d.cache.EXPECT().Invalidate(gomock.Any()).Return(nil)
	d.events.EXPECT().
		Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev domain.IncidentEvent) error {
			if ev.Type != domain.IncidentDeleted || ev.Incident.ID != id {
				t.Fatalf("unexpected event %+v", ev)
			}
			return nil
		})

	if err := d.svc.Delete(context.Background(), id); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestIncidentService_Delete_NotFound_NoSideEffects(t *testing.T) {
	t.Parallel()
	d := newDeps(t)

	id := uuid.New()
	d.repo.EXPECT().Delete(gomock.Any(), id).Return(nil, e.ErrNotFound)

	if err := d.svc.Delete(context.Background(), id); !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIncidentService_NilCacheAndQueue(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	repo := mock_service.NewMockIncidentRepository(ctrl)
	svc := service.NewIncidentService(repo, nil, nil, newTestLogger(), 0)

	repo.EXPECT().List(gomock.Any()).Return([]*domain.Incident{}, nil).Times(2)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	for i := 0; i < 2; i++ {
		if _, err := svc.List(context.Background()); err != nil {
			t.Fatalf("List: %v", err)
		}
	}
	if _, err := svc.Create(context.Background(), validRequest()); err != nil {
		t.Fatalf("Create: %v", err)
	}
}
