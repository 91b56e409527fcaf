package gateway

import (
	"context"
	"fmt"

	"github.com/gorilla/mux"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/auctiondraft/go/internal/draft"
)

// Service is the draft gateway: WebSocket fan-out of draft events plus snapshot reads.
// Events arrive either straight from an in-process coordinator (Broadcaster) or from
// JetStream (ConsumeJetStream).
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
	stateHandler      *StateHandler
}

// Config holds configuration for the draft gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

func NewService(config Config) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
	}
}

// UseStateProvider sets the source of snapshots. Call it before Start.
func (s *Service) UseStateProvider(provider StateProvider) {
	s.connectionManager.SetStateProvider(provider)
	s.stateHandler = NewStateHandler(provider)
}

// ConsumeJetStream feeds the gateway from the relayed event stream.
func (s *Service) ConsumeJetStream(config JetStreamConsumerConfig) error {
	consumer, err := NewEventConsumer(s.connectionManager, config)
	if err != nil {
		return fmt.Errorf("failed to create event consumer: %w", err)
	}
	s.eventConsumer = consumer
	return nil
}

// Broadcaster returns the sink an in-process coordinator publishes to.
func (s *Service) Broadcaster() draft.Broadcaster {
	return s.connectionManager
}

// NATSConn returns the consumer's connection, or nil when events are not consumed from JetStream.
func (s *Service) NATSConn() *nats.Conn {
	if s.eventConsumer == nil {
		return nil
	}
	return s.eventConsumer.Conn()
}

// Start runs the gateway until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("jetstream", s.eventConsumer != nil).Msg("starting draft gateway service")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.connectionManager.Start(gctx)
		return nil
	})
	if s.eventConsumer != nil {
		g.Go(func() error {
			return s.eventConsumer.Start(gctx)
		})
	}

	err := g.Wait()
	log.Info().Msg("draft gateway service shutting down")
	if stopErr := s.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

func (s *Service) Stop() error {
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			return fmt.Errorf("failed to stop event consumer: %w", err)
		}
	}
	log.Info().Msg("draft gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket routes.
func (s *Service) RegisterRoutes(r *mux.Router) {
	s.wsHandler.RegisterRoutes(r)
	log.Info().Msg("draft gateway routes registered")
}

// RegisterStateRoutes registers the read routes. Only a standalone gateway needs them; the
// API server serves the same paths from the draft service.
func (s *Service) RegisterStateRoutes(r *mux.Router) {
	if s.stateHandler == nil {
		return
	}
	s.stateHandler.RegisterStateRoutes(r)
}

// Stats returns statistics about the gateway's connections.
func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.Stats()
}
