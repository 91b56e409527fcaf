// Package snapshot keeps the latest view of every live draft in Redis so gateways that do
// not host the coordinator can answer reconnect and state requests.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/go/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no snapshot is cached for the key.
var ErrNotFound = errors.New("snapshot not found")

// Config holds the cache settings.
type Config struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration // How long a snapshot outlives its last update
	QueueSize int           // Pending writes before new ones are dropped
}

func DefaultConfig() Config {
	return Config{
		Addr:      "localhost:6379",
		TTL:       24 * time.Hour,
		QueueSize: 256,
	}
}

// Cache writes and reads draft views. Writes are queued and applied by Run so the
// coordinator never waits on Redis.
type Cache struct {
	client *redis.Client
	cfg    Config
	queue  chan models.DraftSessionView
	// Lua script that only stores a view newer than the cached one
	writeScript *redis.Script
}

// NewCache connects to Redis.
func NewCache(cfg Config) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newCache(rdb, cfg), nil
}

func newCache(rdb *redis.Client, cfg Config) *Cache {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return &Cache{
		client: rdb,
		cfg:    cfg,
		queue:  make(chan models.DraftSessionView, cfg.QueueSize),
		writeScript: redis.NewScript(`
			-- KEYS[1]: draft:{draftID}:snapshot
			-- KEYS[2]: league:{leagueID}:draft_snapshot
			-- KEYS[3]: draft:{draftID}:snapshot_seq
			-- ARGV[1]: seq of the new view
			-- ARGV[2]: view JSON
			-- ARGV[3]: ttl in seconds
			local current = tonumber(redis.call('GET', KEYS[3]) or '-1')
			local seq = tonumber(ARGV[1])
			if seq <= current then
				return 0
			end
			local ttl = tonumber(ARGV[3])
			redis.call('SET', KEYS[1], ARGV[2], 'EX', ttl)
			redis.call('SET', KEYS[2], ARGV[2], 'EX', ttl)
			redis.call('SET', KEYS[3], ARGV[1], 'EX', ttl)
			return 1
		`),
	}
}

func draftKey(id uuid.UUID) string  { return fmt.Sprintf("draft:%s:snapshot", id) }
func seqKey(id uuid.UUID) string    { return fmt.Sprintf("draft:%s:snapshot_seq", id) }
func leagueKey(id uuid.UUID) string { return fmt.Sprintf("league:%s:draft_snapshot", id) }

// PublishSnapshot queues a view for writing. It never blocks.
func (c *Cache) PublishSnapshot(ctx context.Context, view models.DraftSessionView) {
	select {
	case c.queue <- view:
	default:
		log.Warn().
			Str("draft_id", view.ID.String()).
			Int64("seq", view.Seq).
			Msg("snapshot queue full, dropping snapshot")
	}
}

// Run applies queued writes until ctx is cancelled.
func (c *Cache) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case view := <-c.queue:
			writeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if _, err := c.Write(writeCtx, view); err != nil {
				log.Error().
					Err(err).
					Str("draft_id", view.ID.String()).
					Int64("seq", view.Seq).
					Msg("failed to cache snapshot")
			}
			cancel()
		}
	}
}

// Write stores the view unless a view with the same or a later seq is cached already.
// It reports whether the view was stored.
func (c *Cache) Write(ctx context.Context, view models.DraftSessionView) (bool, error) {
	data, err := json.Marshal(view)
	if err != nil {
		return false, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	keys := []string{draftKey(view.ID), leagueKey(view.LeagueID), seqKey(view.ID)}
	ttl := int64(c.cfg.TTL / time.Second)
	if ttl <= 0 {
		ttl = int64(DefaultConfig().TTL / time.Second)
	}

	stored, err := c.writeScript.Run(ctx, c.client, keys, view.Seq, data, ttl).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to execute snapshot script: %w", err)
	}
	return stored == 1, nil
}

// GetDraft returns the cached view of a draft.
func (c *Cache) GetDraft(ctx context.Context, draftID uuid.UUID) (*models.DraftSessionView, error) {
	return c.get(ctx, draftKey(draftID))
}

// GetLeagueDraft returns the cached view of the league's most recent draft.
func (c *Cache) GetLeagueDraft(ctx context.Context, leagueID uuid.UUID) (*models.DraftSessionView, error) {
	return c.get(ctx, leagueKey(leagueID))
}

func (c *Cache) get(ctx context.Context, key string) (*models.DraftSessionView, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var view models.DraftSessionView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &view, nil
}

// Ping checks the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
