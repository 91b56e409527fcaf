package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctiondraft/go/internal/draft"
	"github.com/mcdev12/auctiondraft/go/internal/draft/fixture"
	"github.com/mcdev12/auctiondraft/go/internal/draft/gateway"
	"github.com/mcdev12/auctiondraft/go/internal/draft/memory"
	"github.com/mcdev12/auctiondraft/go/internal/draft/snapshot"
)

type Services struct {
	Database *sql.DB // nil with memory storage
	App      *draft.App
	Draft    *draft.Service
	Gateway  *gateway.Service
	Cache    *snapshot.Cache // nil without Redis
}

// setupServices wires storage → draft app → HTTP service, plus the in-process gateway.
//
// Without NATS the app hands events straight to the gateway. With NATS (Postgres only,
// since the relay reads the outbox table) the gateway consumes the relayed stream instead,
// so every API instance and standalone gateway sees the same events.
func setupServices(cfg *Config) (*Services, error) {
	services := &Services{}

	var repo draft.Repository
	switch cfg.Storage {
	case storageMemory:
		store := memory.NewStore()
		if cfg.Fixture != "" {
			f, err := fixture.Load(cfg.Fixture)
			if err != nil {
				return nil, err
			}
			f.ApplyTo(store, time.Now().UTC())
			log.Info().
				Str("fixture", cfg.Fixture).
				Str("league_id", f.League.ID.String()).
				Int("items", len(f.Items)).
				Msg("loaded fixture into memory storage")
		}
		repo = store
	default:
		database, err := setupDatabase()
		if err != nil {
			return nil, err
		}
		services.Database = database
		repo = draft.NewPostgresRepository(database)
	}

	gwCfg := gateway.DefaultConfig()
	services.Gateway = gateway.NewService(gwCfg)

	broadcaster := services.Gateway.Broadcaster()
	if cfg.NATS.URL != "" && cfg.Storage == storagePostgres {
		gwCfg.JetStreamConfig.URL = cfg.NATS.URL
		gwCfg.JetStreamConfig.ConsumerName = gateway.InstanceConsumerName("draft-api")
		if err := services.Gateway.ConsumeJetStream(gwCfg.JetStreamConfig); err != nil {
			services.Close()
			return nil, err
		}
		broadcaster = nil
	} else if cfg.NATS.URL != "" {
		log.Warn().Msg("NATS_URL ignored: memory storage has no outbox to relay")
	}

	var snapshots draft.SnapshotPublisher
	if cfg.Redis.Addr != "" {
		cacheCfg := snapshot.DefaultConfig()
		cacheCfg.Addr = cfg.Redis.Addr
		cacheCfg.Password = cfg.Redis.Password
		cacheCfg.DB = cfg.Redis.DB
		cacheCfg.TTL = cfg.Redis.TTL
		cache, err := snapshot.NewCache(cacheCfg)
		if err != nil {
			services.Close()
			return nil, fmt.Errorf("failed to set up snapshot cache: %w", err)
		}
		services.Cache = cache
		snapshots = cache
	}

	services.App = draft.NewApp(repo, broadcaster, snapshots, nil, cfg.Draft)
	services.Draft = draft.NewService(services.App)
	services.Gateway.UseStateProvider(services.App)

	return services, nil
}

// Close releases external connections. Sessions are stopped separately by App.Shutdown.
func (s *Services) Close() {
	if s.Gateway != nil {
		if err := s.Gateway.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop gateway")
		}
	}
	if s.Cache != nil {
		if err := s.Cache.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close snapshot cache")
		}
	}
	if s.Database != nil {
		if err := s.Database.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}
}
