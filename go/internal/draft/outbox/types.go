package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/go/internal/draft/events"
)

// ErrAlreadySent is returned when an outbox row is missing or was published already.
var ErrAlreadySent = errors.New("outbox event not found or already sent")

// OutboxEvent is one committed draft event waiting to leave the database.
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	DraftID   uuid.UUID       `json:"draft_id"`
	LeagueID  uuid.UUID       `json:"league_id"`
	Seq       int64           `json:"seq"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Envelope converts the row back into the envelope the coordinator committed.
func (e OutboxEvent) Envelope() events.Envelope {
	return events.Envelope{
		ID:        e.ID,
		DraftID:   e.DraftID,
		LeagueID:  e.LeagueID,
		Seq:       e.Seq,
		Type:      events.Type(e.EventType),
		Timestamp: e.CreatedAt.UTC(),
		Data:      e.Payload,
	}
}

// Publisher is an interface that defines our publisher.
type Publisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}

// Store is what the relay needs from the outbox table.
type Store interface {
	FetchUnsent(ctx context.Context, limit int32) ([]OutboxEvent, error)
	FetchByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	CountPending(ctx context.Context) (int, error)
}
