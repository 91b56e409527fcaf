package draft

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/go/internal/draft/events"
	"github.com/mcdev12/auctiondraft/go/internal/models"
)

// Trigger names what closed bidding on an item.
type Trigger string

const (
	TriggerTimerExpired Trigger = "TIMER_EXPIRED"
	TriggerForceSell    Trigger = "FORCE_SELL"
	TriggerForceUnsold  Trigger = "FORCE_UNSOLD"
)

// PlaceBidRequest represents a bid submitted by a league member
type PlaceBidRequest struct {
	BidderID uuid.UUID `json:"bidder_id"`
	Amount   float64   `json:"amount"`
	// SeenBid is the current bid the client was looking at; lets a lost race be told apart from a low bid.
	SeenBid *float64 `json:"seen_bid,omitempty"`
}

// Sale is the ownership and budget effect of selling an item.
type Sale struct {
	ItemID uuid.UUID
	TeamID uuid.UUID
	Amount float64
}

// Transition is one committed step of a session. Stores apply it atomically: the session
// row, the item outcome, the conditional budget debit and the outbox events succeed or fail
// together. UnsoldItemID names an item passed on without a sale; the store rejects the
// transition with ErrState if that item has been sold in the meantime.
type Transition struct {
	Session      models.DraftSession
	Sale         *Sale
	UnsoldItemID *uuid.UUID
	Events       []events.Envelope
}

// Committed reports what the store did with a transition.
type Committed struct {
	// BudgetAfter is the buyer's remaining budget when the transition carried a sale.
	BudgetAfter float64
}

// SessionStore persists draft sessions. Commit returns ErrBudget, leaving nothing
// applied, when a sale's conditional debit finds too little budget.
type SessionStore interface {
	Commit(ctx context.Context, tr Transition) (*Committed, error)
	GetActiveSession(ctx context.Context, leagueID uuid.UUID) (*models.DraftSession, error)
	// GetLatestSession returns the league's most recently created session, completed or not.
	GetLatestSession(ctx context.Context, leagueID uuid.UUID) (*models.DraftSession, error)
	GetSession(ctx context.Context, draftID uuid.UUID) (*models.DraftSession, error)
	ListActiveSessions(ctx context.Context) ([]models.DraftSession, error)
}

// Ledger is the budget authority. The engine only reads balances; debits happen in Commit.
type Ledger interface {
	GetBudget(ctx context.Context, teamID uuid.UUID) (float64, error)
}

// Directory answers league membership questions.
type Directory interface {
	GetLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error)
	// GetMember returns ErrNotFound when the user has no team in the league.
	GetMember(ctx context.Context, leagueID, userID uuid.UUID) (*models.Participant, error)
}

// Catalog lists the items a league auctions.
type Catalog interface {
	ListCatalogItems(ctx context.Context, leagueID uuid.UUID) ([]models.Item, error)
	// ListAssignedItemIDs derives ownership from persisted roster rows.
	ListAssignedItemIDs(ctx context.Context, leagueID uuid.UUID) (map[uuid.UUID]bool, error)
}

// Repository is the full persistence surface the draft app needs.
type Repository interface {
	SessionStore
	Ledger
	Directory
	Catalog
}

// Broadcaster receives committed events for delivery to observers. Implementations must
// not block; delivery is best effort and the session state stays the source of truth.
type Broadcaster interface {
	Broadcast(envs []events.Envelope)
}

// SnapshotPublisher receives the session view after every committed transition.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, view models.DraftSessionView)
}
