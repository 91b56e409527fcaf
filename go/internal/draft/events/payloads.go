package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event payload types shared between the coordinator, the outbox relay and the gateway.

// Type is the wire tag of a draft event.
type Type string

const (
	TypeDraftStarted   Type = "draft:started"
	TypeBidPlaced      Type = "draft:bid"
	TypeItemSold       Type = "draft:sold"
	TypeItemUnsold     Type = "draft:unsold"
	TypeDraftCompleted Type = "draft:completed"
	TypeDraftStopped   Type = "draft:stopped"
	TypeDraftResumed   Type = "draft:resumed"
)

// Event is implemented by every payload variant.
type Event interface {
	EventType() Type
}

// ItemInfo is the compact item description carried in events.
type ItemInfo struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	Team      string  `json:"team"`
	BasePrice float64 `json:"basePrice"`
}

// BidderInfo identifies who placed a bid.
type BidderInfo struct {
	ID       string `json:"id"`
	TeamName string `json:"teamName"`
}

// DraftStartedPayload is the payload for draft:started
type DraftStartedPayload struct {
	DraftID        string   `json:"draftId"`
	CurrentItem    ItemInfo `json:"currentItem"`
	CurrentBid     float64  `json:"currentBid"`
	TimerRemaining int      `json:"timerRemaining"`
}

// BidPlacedPayload is the payload for draft:bid
type BidPlacedPayload struct {
	Amount         float64    `json:"amount"`
	Bidder         BidderInfo `json:"bidder"`
	TimerRemaining int        `json:"timerRemaining"`
}

// ItemSoldPayload is the payload for draft:sold
type ItemSoldPayload struct {
	ItemID          string    `json:"itemId"`
	SoldTo          string    `json:"soldTo"`
	Amount          float64   `json:"amount"`
	BudgetRemaining float64   `json:"budgetRemaining"`
	NextItem        *ItemInfo `json:"nextItem"`
	NewBid          float64   `json:"newBid"`
}

// ItemUnsoldPayload is the payload for draft:unsold
type ItemUnsoldPayload struct {
	ItemID   string    `json:"itemId"`
	NextItem *ItemInfo `json:"nextItem"`
	NewBid   float64   `json:"newBid"`
}

// DraftCompletedPayload is the payload for draft:completed
type DraftCompletedPayload struct {
	DraftID string `json:"draftId"`
}

// DraftStoppedPayload is the payload for draft:stopped
type DraftStoppedPayload struct {
	DraftID        string `json:"draftId"`
	TimerRemaining int    `json:"timerRemaining"`
}

// DraftResumedPayload is the payload for draft:resumed
type DraftResumedPayload struct {
	DraftID        string `json:"draftId"`
	TimerRemaining int    `json:"timerRemaining"`
}

func (DraftStartedPayload) EventType() Type   { return TypeDraftStarted }
func (BidPlacedPayload) EventType() Type      { return TypeBidPlaced }
func (ItemSoldPayload) EventType() Type       { return TypeItemSold }
func (ItemUnsoldPayload) EventType() Type     { return TypeItemUnsold }
func (DraftCompletedPayload) EventType() Type { return TypeDraftCompleted }
func (DraftStoppedPayload) EventType() Type   { return TypeDraftStopped }
func (DraftResumedPayload) EventType() Type   { return TypeDraftResumed }

// Envelope wraps a payload with the routing and ordering metadata every consumer needs.
// Seq is strictly increasing per draft; observers that see a gap fetch a snapshot.
type Envelope struct {
	ID        uuid.UUID       `json:"id"`
	DraftID   uuid.UUID       `json:"draft_id"`
	LeagueID  uuid.UUID       `json:"league_id"`
	Seq       int64           `json:"seq"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEnvelope marshals an event into an envelope.
func NewEnvelope(draftID, leagueID uuid.UUID, seq int64, at time.Time, ev Event) (Envelope, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", ev.EventType(), err)
	}
	return Envelope{
		ID:        uuid.New(),
		DraftID:   draftID,
		LeagueID:  leagueID,
		Seq:       seq,
		Type:      ev.EventType(),
		Timestamp: at.UTC(),
		Data:      data,
	}, nil
}

// Decode parses the envelope data into its typed payload.
func (e Envelope) Decode() (Event, error) {
	var ev Event
	switch e.Type {
	case TypeDraftStarted:
		ev = &DraftStartedPayload{}
	case TypeBidPlaced:
		ev = &BidPlacedPayload{}
	case TypeItemSold:
		ev = &ItemSoldPayload{}
	case TypeItemUnsold:
		ev = &ItemUnsoldPayload{}
	case TypeDraftCompleted:
		ev = &DraftCompletedPayload{}
	case TypeDraftStopped:
		ev = &DraftStoppedPayload{}
	case TypeDraftResumed:
		ev = &DraftResumedPayload{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", e.Type)
	}
	if err := json.Unmarshal(e.Data, ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return ev, nil
}
