package draft

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/auctiondraft/go/internal/draft/events"
	"github.com/mcdev12/auctiondraft/go/internal/models"
)

// commitLog is a Repository that accepts every transition and keeps its events.
type commitLog struct {
	mu   sync.Mutex
	envs []events.Envelope
}

func (c *commitLog) Commit(ctx context.Context, tr Transition) (*Committed, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envs = append(c.envs, tr.Events...)
	return &Committed{}, nil
}

func (c *commitLog) types() []events.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Type, 0, len(c.envs))
	for _, env := range c.envs {
		out = append(out, env.Type)
	}
	return out
}

func (c *commitLog) GetActiveSession(ctx context.Context, leagueID uuid.UUID) (*models.DraftSession, error) {
	return nil, ErrNotFound
}

func (c *commitLog) GetLatestSession(ctx context.Context, leagueID uuid.UUID) (*models.DraftSession, error) {
	return nil, ErrNotFound
}

func (c *commitLog) GetSession(ctx context.Context, draftID uuid.UUID) (*models.DraftSession, error) {
	return nil, ErrNotFound
}

func (c *commitLog) ListActiveSessions(ctx context.Context) ([]models.DraftSession, error) {
	return nil, nil
}

func (c *commitLog) GetBudget(ctx context.Context, teamID uuid.UUID) (float64, error) {
	return 100, nil
}

func (c *commitLog) GetLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error) {
	return nil, ErrNotFound
}

func (c *commitLog) GetMember(ctx context.Context, leagueID, userID uuid.UUID) (*models.Participant, error) {
	return nil, ErrNotFound
}

func (c *commitLog) ListCatalogItems(ctx context.Context, leagueID uuid.UUID) ([]models.Item, error) {
	return nil, nil
}

func (c *commitLog) ListAssignedItemIDs(ctx context.Context, leagueID uuid.UUID) (map[uuid.UUID]bool, error) {
	return nil, nil
}

func TestFailedCountdownStopsDraft(t *testing.T) {
	repo := &commitLog{}
	clock := clockwork.NewFakeClock()
	settings := models.DefaultAuctionSettings()
	settings.ResetWindowSec = 1

	state := models.DraftSession{ID: uuid.New(), LeagueID: uuid.New(), Status: models.DraftStatusIdle, Settings: settings}
	queue := NewItemQueue([]models.Item{catalogItem("a", 10, 0), catalogItem("b", 5, 1)}, nil, nil)
	s := newSession(sessionConfig{repo: repo, clock: clock, commitTimeout: time.Second, bufferSize: 4}, state, queue)

	// A countdown whose loop crashes on every attempt and is never restarted.
	s.timer = NewTimer(state.ID, clock, 0, TimerHooks{
		Expire: func(uint64) { panic("countdown crashed") },
		Fail:   s.onTimerFailed,
	})
	go s.run()
	t.Cleanup(s.shutdown)

	require.NoError(t, s.do(context.Background(), s.start))
	clock.Advance(time.Second)

	require.Eventually(t, func() bool {
		return s.View().Paused
	}, 2*time.Second, 5*time.Millisecond)

	view := s.View()
	assert.Equal(t, models.DraftStatusItemOpen, view.Status)
	assert.Equal(t, 0, view.ItemsResolved)
	assert.False(t, s.timer.Running())
	assert.Equal(t, []events.Type{events.TypeDraftStarted, events.TypeDraftStopped}, repo.types())
}
