package outbox

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu     sync.Mutex
	events []OutboxEvent
	sent   map[uuid.UUID]bool
}

func newFakeStore(events ...OutboxEvent) *fakeStore {
	return &fakeStore{events: events, sent: make(map[uuid.UUID]bool)}
}

func (s *fakeStore) FetchUnsent(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OutboxEvent
	for _, e := range s.events {
		if !s.sent[e.ID] && int32(len(out)) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) FetchByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.ID == id && !s.sent[id] {
			out := e
			return &out, nil
		}
	}
	return nil, ErrAlreadySent
}

func (s *fakeStore) MarkSent(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[id] = true
	return nil
}

func (s *fakeStore) CountPending(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events) - len(s.sent), nil
}

func (s *fakeStore) isSent(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[id]
}

type fakePublisher struct {
	mu        sync.Mutex
	published []OutboxEvent
	// failFor makes every publish of that event fail.
	failFor uuid.UUID
	// flaky fails this many publishes before succeeding.
	flaky int
}

func (p *fakePublisher) Publish(ctx context.Context, event OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event.ID == p.failFor {
		return errors.New("nats unavailable")
	}
	if p.flaky > 0 {
		p.flaky--
		return errors.New("timeout")
	}
	p.published = append(p.published, event)
	return nil
}

func (p *fakePublisher) seqs() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int64, 0, len(p.published))
	for _, e := range p.published {
		out = append(out, e.Seq)
	}
	return out
}

func outboxEvents(n int) []OutboxEvent {
	draftID, leagueID := uuid.New(), uuid.New()
	out := make([]OutboxEvent, n)
	for i := range out {
		out[i] = OutboxEvent{
			ID:        uuid.New(),
			DraftID:   draftID,
			LeagueID:  leagueID,
			Seq:       int64(i + 1),
			EventType: "draft:bid",
			Payload:   []byte(`{"amount":1}`),
			CreatedAt: time.Now(),
		}
	}
	return out
}

func testConfig() ListenerConfig {
	cfg := DefaultListenerConfig()
	cfg.MaxRetries = 2
	cfg.RetryDelay = time.Millisecond
	cfg.BatchSize = 2
	return cfg
}

func TestProcessUnsentPublishesInOrderAcrossBatches(t *testing.T) {
	evs := outboxEvents(5)
	store := newFakeStore(evs...)
	pub := &fakePublisher{}
	stats := NewRelayStats()
	l := newListener(store, pub, stats, testConfig())

	require.NoError(t, l.processUnsent(context.Background()))

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, pub.seqs())
	pending, _ := store.CountPending(context.Background())
	assert.Zero(t, pending)
	assert.Equal(t, uint64(5), stats.Snapshot().Processed)
}

func TestProcessUnsentStopsAtFirstFailure(t *testing.T) {
	evs := outboxEvents(4)
	store := newFakeStore(evs...)
	pub := &fakePublisher{failFor: evs[1].ID}
	stats := NewRelayStats()
	l := newListener(store, pub, stats, testConfig())

	err := l.processUnsent(context.Background())
	require.Error(t, err)

	assert.Equal(t, []int64{1}, pub.seqs(), "later events must not overtake a failed one")
	assert.True(t, store.isSent(evs[0].ID))
	assert.False(t, store.isSent(evs[1].ID))
	assert.False(t, store.isSent(evs[2].ID))
	assert.Equal(t, uint64(1), stats.Snapshot().Failed)
}

func TestPublishRetriesTransientFailures(t *testing.T) {
	evs := outboxEvents(1)
	store := newFakeStore(evs...)
	pub := &fakePublisher{flaky: 2}
	stats := NewRelayStats()
	l := newListener(store, pub, stats, testConfig())

	require.NoError(t, l.processUnsent(context.Background()))
	assert.Equal(t, []int64{1}, pub.seqs())
	assert.Equal(t, uint64(2), stats.Snapshot().Retries)
}

func TestHandleNotificationDrainsOlderRowsFirst(t *testing.T) {
	evs := outboxEvents(3)
	store := newFakeStore(evs...)
	pub := &fakePublisher{}
	l := newListener(store, pub, nil, testConfig())

	require.NoError(t, l.handleNotification(context.Background(), evs[2].ID.String()))
	assert.Equal(t, []int64{1, 2, 3}, pub.seqs())

	// A duplicate notification for a row already relayed is a no-op.
	require.NoError(t, l.handleNotification(context.Background(), evs[2].ID.String()))
	assert.Len(t, pub.seqs(), 3)

	assert.Error(t, l.handleNotification(context.Background(), "not-a-uuid"))
}

func TestSubject(t *testing.T) {
	ev := outboxEvents(1)[0]
	ev.EventType = "draft:sold"
	assert.Equal(t, "auction.draft."+ev.LeagueID.String()+".sold", Subject("auction.draft", ev))
}

func TestEnvelopeRoundTripsRow(t *testing.T) {
	ev := outboxEvents(1)[0]
	env := ev.Envelope()
	assert.Equal(t, ev.ID, env.ID)
	assert.Equal(t, ev.Seq, env.Seq)
	assert.Equal(t, "draft:bid", string(env.Type))
	assert.JSONEq(t, string(ev.Payload), string(env.Data))
}

type pinger struct{ err error }

func (p pinger) PingContext(ctx context.Context) error { return p.err }

type natsState bool

func (n natsState) IsConnected() bool { return bool(n) }

func TestHealthChecker(t *testing.T) {
	store := newFakeStore(outboxEvents(2)...)
	l := newListener(store, &fakePublisher{}, nil, testConfig())

	t.Run("inactive listener is unhealthy", func(t *testing.T) {
		h := NewHealthChecker(l, NewRelayStats(), pinger{}, store, natsState(true), time.Minute)
		status := h.Check(context.Background())
		assert.False(t, status.Healthy)
		assert.True(t, status.DatabaseConnected)
		assert.True(t, status.NATSConnected)
		assert.Equal(t, 2, status.PendingEvents)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("active listener with connections is healthy", func(t *testing.T) {
		l.active.Store(true)
		defer l.active.Store(false)

		h := NewHealthChecker(l, NewRelayStats(), pinger{}, store, natsState(true), time.Minute)
		status := h.Check(context.Background())
		assert.True(t, status.Healthy, status.Errors)
	})

	t.Run("database and nats failures are reported", func(t *testing.T) {
		l.active.Store(true)
		defer l.active.Store(false)

		h := NewHealthChecker(l, NewRelayStats(), pinger{err: errors.New("refused")}, store, natsState(false), time.Minute)
		status := h.Check(context.Background())
		assert.False(t, status.Healthy)
		assert.False(t, status.DatabaseConnected)
		assert.False(t, status.NATSConnected)
		assert.Len(t, status.Errors, 2)
	})
}
