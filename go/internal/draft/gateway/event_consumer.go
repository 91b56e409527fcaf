package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctiondraft/go/internal/draft"
	"github.com/mcdev12/auctiondraft/go/internal/draft/events"
	"github.com/mcdev12/auctiondraft/go/internal/draft/outbox"
)

// JetStreamConsumerConfig holds configuration for the JetStream consumer
type JetStreamConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string // Unique per gateway instance; every instance needs every event
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
	// An instance that is gone this long has its consumer removed by the server
	InactiveThreshold time.Duration
	MaxReconnects     int
	ReconnectWait     time.Duration
}

func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	relay := outbox.DefaultJetStreamConfig()
	return JetStreamConsumerConfig{
		URL:               relay.URL,
		StreamName:        relay.StreamName,
		ConsumerName:      "draft-gateway",
		SubjectFilter:     relay.SubjectPrefix + ".>",
		MaxDeliver:        5,
		AckWait:           30 * time.Second,
		MaxAckPending:     100,
		InactiveThreshold: 10 * time.Minute,
		MaxReconnects:     -1,
		ReconnectWait:     2 * time.Second,
	}
}

// EventConsumer consumes relayed draft events from JetStream and hands them to a broadcaster.
type EventConsumer struct {
	broadcaster draft.Broadcaster
	nc          *nats.Conn
	js          jetstream.JetStream
	consumer    jetstream.Consumer
	config      JetStreamConsumerConfig
}

func NewEventConsumer(broadcaster draft.Broadcaster, config JetStreamConsumerConfig) (*EventConsumer, error) {
	nc, err := outbox.ConnectNATS(config.URL, config.MaxReconnects, config.ReconnectWait)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ec := &EventConsumer{
		broadcaster: broadcaster,
		nc:          nc,
		js:          js,
		config:      config,
	}

	if err := ec.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}

	return ec, nil
}

// ensureConsumer creates the consumer or updates it in place. New events only: a client
// that connects gets a snapshot, so replaying history would just be dropped on seq.
func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ec.js.Stream(ctx, ec.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:              ec.config.ConsumerName,
		Durable:           ec.config.ConsumerName,
		Description:       "Auction draft gateway WebSocket fan-out",
		FilterSubject:     ec.config.SubjectFilter,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		MaxDeliver:        ec.config.MaxDeliver,
		AckWait:           ec.config.AckWait,
		MaxAckPending:     ec.config.MaxAckPending,
		InactiveThreshold: ec.config.InactiveThreshold,
		ReplayPolicy:      jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Str("filter", ec.config.SubjectFilter).
		Msg("JetStream consumer ready")

	ec.consumer = consumer
	return nil
}

// Start consumes events until ctx is cancelled.
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Msg("starting JetStream event consumer")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			ec.handle(msg)
		}
	}
}

func (ec *EventConsumer) handle(msg jetstream.Msg) {
	env, err := decodeEnvelope(msg.Data())
	if err != nil {
		// Redelivery cannot fix a malformed message.
		log.Error().
			Err(err).
			Str("subject", msg.Subject()).
			Msg("dropping undecodable event")
		if termErr := msg.Term(); termErr != nil {
			log.Error().Err(termErr).Msg("failed to terminate message")
		}
		return
	}

	ec.broadcaster.Broadcast([]events.Envelope{env})

	log.Debug().
		Str("event_id", env.ID.String()).
		Str("league_id", env.LeagueID.String()).
		Int64("seq", env.Seq).
		Str("event_type", string(env.Type)).
		Msg("event broadcasted to WebSocket clients")

	if ackErr := msg.Ack(); ackErr != nil {
		log.Error().Err(ackErr).Msg("failed to ACK message")
	}
}

// decodeEnvelope parses a relayed message and checks its payload matches its type.
func decodeEnvelope(data []byte) (events.Envelope, error) {
	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return events.Envelope{}, fmt.Errorf("unmarshal event envelope: %w", err)
	}
	if _, err := env.Decode(); err != nil {
		return events.Envelope{}, err
	}
	return env, nil
}

// Stop closes the NATS connection.
func (ec *EventConsumer) Stop() error {
	log.Info().Msg("stopping event consumer")

	if ec.nc != nil {
		ec.nc.Close()
	}

	return nil
}

// Conn exposes the NATS connection for health checks.
func (ec *EventConsumer) Conn() *nats.Conn {
	return ec.nc
}

// InstanceConsumerName names the JetStream consumer of one process. Every process that
// fans out to websockets needs its own consumer to see every event. GATEWAY_ID overrides
// the hostname.
func InstanceConsumerName(base string) string {
	id := os.Getenv("GATEWAY_ID")
	if id == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			return base
		}
		id = host
	}
	// Consumer names may not contain subject tokens.
	return base + "-" + strings.NewReplacer(".", "-", "*", "-", ">", "-", " ", "-").Replace(id)
}
