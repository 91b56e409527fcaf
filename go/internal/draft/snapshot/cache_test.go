package snapshot

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/auctiondraft/go/internal/models"
)

// newTestCache connects to the Redis named by REDIS_TEST_ADDR and skips otherwise.
func newTestCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	cfg := DefaultConfig()
	cfg.Addr = addr
	cfg.TTL = time.Minute
	c, err := NewCache(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	assert.Equal(t, "draft:11111111-2222-3333-4444-555555555555:snapshot", draftKey(id))
	assert.Equal(t, "draft:11111111-2222-3333-4444-555555555555:snapshot_seq", seqKey(id))
	assert.Equal(t, "league:11111111-2222-3333-4444-555555555555:draft_snapshot", leagueKey(id))
}

func TestPublishSnapshotNeverBlocks(t *testing.T) {
	c := newCache(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), Config{QueueSize: 1})
	defer c.Close()

	view := models.DraftSessionView{ID: uuid.New(), Seq: 1}
	c.PublishSnapshot(context.Background(), view)
	view.Seq = 2
	c.PublishSnapshot(context.Background(), view)

	assert.Len(t, c.queue, 1)
	assert.Equal(t, int64(1), (<-c.queue).Seq)
}

func TestWriteKeepsNewestView(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	view := models.DraftSessionView{ID: uuid.New(), LeagueID: uuid.New(), Status: models.DraftStatusItemOpen, Seq: 5}

	stored, err := c.Write(ctx, view)
	require.NoError(t, err)
	assert.True(t, stored)

	stale := view
	stale.Seq = 4
	stale.Status = models.DraftStatusIdle
	stored, err = c.Write(ctx, stale)
	require.NoError(t, err)
	assert.False(t, stored)

	got, err := c.GetDraft(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Seq)
	assert.Equal(t, models.DraftStatusItemOpen, got.Status)

	byLeague, err := c.GetLeagueDraft(ctx, view.LeagueID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, byLeague.ID)

	_, err = c.GetDraft(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunDrainsQueue(t *testing.T) {
	c := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	view := models.DraftSessionView{ID: uuid.New(), LeagueID: uuid.New(), Seq: 1}
	c.PublishSnapshot(ctx, view)

	require.Eventually(t, func() bool {
		got, err := c.GetLeagueDraft(context.Background(), view.LeagueID)
		return err == nil && got.ID == view.ID
	}, 2*time.Second, 10*time.Millisecond)
}
