package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"incidentLog/internal/config"
	"incidentLog/internal/domain"
	"incidentLog/pkg/e"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeQueue struct {
	ch chan domain.IncidentEvent
}

func (q *fakeQueue) BRPop(ctx context.Context, _ time.Duration) (domain.IncidentEvent, error) {
	select {
	case ev := <-q.ch:
		return ev, nil
	case <-ctx.Done():
		return domain.IncidentEvent{}, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return domain.IncidentEvent{}, e.ErrQueueEmpty
	}
}

type fakeStore struct {
	mu     sync.Mutex
	calls  int
	items  []*domain.Incident
	err    error
	onList func()
}

func (s *fakeStore) List(context.Context) ([]*domain.Incident, error) {
	s.mu.Lock()
	s.calls++
	items, err, hook := s.items, s.err, s.onList
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return items, err
}

type fakeCache struct {
	mu   sync.Mutex
	sets [][]*domain.Incident
	ttl  time.Duration
	gen  int64
}

func (c *fakeCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *fakeCache) SetAll(_ context.Context, incidents []*domain.Incident, ttl time.Duration, gen int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false, nil
	}
	c.sets = append(c.sets, incidents)
	c.ttl = ttl
	return true, nil
}

func (c *fakeCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
}

func (c *fakeCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sets)
}

func runUntilCancelled(t *testing.T, run func(context.Context)) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(ctx)
	}()
	return cancel, done
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventSender_DeliversEachEventOnce(t *testing.T) {
	received := make(chan domain.IncidentEvent, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		var ev domain.IncidentEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode: %v", err)
		}
		received <- ev
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	q := &fakeQueue{ch: make(chan domain.IncidentEvent, 2)}
	id := uuid.New()
	q.ch <- domain.IncidentEvent{Type: domain.IncidentCreated, Incident: domain.Incident{ID: id, Title: "Bias issue"}}
	q.ch <- domain.IncidentEvent{Type: domain.IncidentDeleted, Incident: domain.Incident{ID: id}}

	sender := NewEventSender(newTestLogger(), config.WebhookConfig{URL: srv.URL, Timeout: time.Second}, q)
	cancel, done := runUntilCancelled(t, sender.Run)

	first := <-received
	second := <-received
	cancel()
	<-done

	if first.Type != domain.IncidentCreated || first.Incident.Title != "Bias issue" {
		t.Fatalf("unexpected first event %+v", first)
	}
	if second.Type != domain.IncidentDeleted || second.Incident.ID != id {
		t.Fatalf("unexpected second event %+v", second)
	}
}

func TestEventSender_NoRetryOnFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	q := &fakeQueue{ch: make(chan domain.IncidentEvent, 1)}
	q.ch <- domain.IncidentEvent{Type: domain.IncidentCreated, Incident: domain.Incident{ID: uuid.New()}}

	sender := NewEventSender(newTestLogger(), config.WebhookConfig{URL: srv.URL}, q)
	cancel, done := runUntilCancelled(t, sender.Run)

	waitFor(t, func() bool { return hits.Load() >= 1 })
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if got := hits.Load(); got != 1 {
		t.Fatalf("expected exactly one attempt, got %d", got)
	}
}

type failingQueue struct{ calls atomic.Int32 }

func (q *failingQueue) BRPop(ctx context.Context, _ time.Duration) (domain.IncidentEvent, error) {
	q.calls.Add(1)
	return domain.IncidentEvent{}, errors.New("connection refused")
}

func TestEventSender_StopsWhileBackingOff(t *testing.T) {
	q := &failingQueue{}
	sender := NewEventSender(newTestLogger(), config.WebhookConfig{URL: "http://127.0.0.1:1"}, q)
	cancel, done := runUntilCancelled(t, sender.Run)

	waitFor(t, func() bool { return q.calls.Load() >= 1 })
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("sender did not stop")
	}
}

func TestCacheWarmer_WarmsOnStartAndTick(t *testing.T) {
	store := &fakeStore{items: []*domain.Incident{{ID: uuid.New()}}}
	cache := &fakeCache{}

	w := NewCacheWarmer(newTestLogger(), store, cache, 20*time.Millisecond, time.Minute)
	cancel, done := runUntilCancelled(t, w.Run)

	waitFor(t, func() bool { return cache.count() >= 2 })
	cancel()
	<-done

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.ttl != time.Minute {
		t.Fatalf("expected ttl 1m got %v", cache.ttl)
	}
	if len(cache.sets[0]) != 1 {
		t.Fatalf("unexpected cached list %+v", cache.sets[0])
	}
}

func TestCacheWarmer_StoreErrorSkipsCache(t *testing.T) {
	store := &fakeStore{err: e.ErrInternal}
	cache := &fakeCache{}

	w := NewCacheWarmer(newTestLogger(), store, cache, 10*time.Millisecond, time.Minute)
	cancel, done := runUntilCancelled(t, w.Run)

	waitFor(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.calls >= 2
	})
	cancel()
	<-done

	if cache.count() != 0 {
		t.Fatalf("cache must not be written on store error")
	}
}

func TestCacheWarmer_InvalidatedDuringReadNotCached(t *testing.T) {
	cache := &fakeCache{}
	store := &fakeStore{items: []*domain.Incident{{ID: uuid.New()}}}
	store.onList = cache.invalidate

	w := NewCacheWarmer(newTestLogger(), store, cache, 10*time.Millisecond, time.Minute)
	cancel, done := runUntilCancelled(t, w.Run)

	waitFor(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.calls >= 3
	})
	cancel()
	<-done

	if cache.count() != 0 {
		t.Fatalf("a list read across an invalidation must not be cached, got %d fills", cache.count())
	}
}
