package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftStatus defines the status of an auction draft session.
type DraftStatus string

const (
	DraftStatusIdle      DraftStatus = "IDLE"
	DraftStatusItemOpen  DraftStatus = "ITEM_OPEN"
	DraftStatusResolving DraftStatus = "RESOLVING"
	DraftStatusCompleted DraftStatus = "COMPLETED"
)

// AuctionSettings holds JSONB configuration for auction drafts.
type AuctionSettings struct {
	ResetWindowSec    int     `json:"reset_window_sec" yaml:"reset_window_sec"`
	MinBidIncrement   float64 `json:"min_bid_increment,omitempty" yaml:"min_bid_increment"`
	TimerRestartLimit int     `json:"timer_restart_limit,omitempty" yaml:"timer_restart_limit"`
}

// DefaultAuctionSettings returns the settings used when a league has none configured.
func DefaultAuctionSettings() AuctionSettings {
	return AuctionSettings{
		ResetWindowSec:    60,
		MinBidIncrement:   0,
		TimerRestartLimit: 5,
	}
}

// DraftSession is the live state of one league's auction draft.
type DraftSession struct {
	ID                  uuid.UUID       `json:"id"`
	LeagueID            uuid.UUID       `json:"league_id"`
	Status              DraftStatus     `json:"status"`
	Paused              bool            `json:"paused"`
	CurrentItemID       *uuid.UUID      `json:"current_item_id,omitempty"`
	CurrentBid          float64         `json:"current_bid"`
	CurrentBidderID     *uuid.UUID      `json:"current_bidder_id,omitempty"`      // user
	CurrentBidderTeamID *uuid.UUID      `json:"current_bidder_team_id,omitempty"` // fantasy team
	TimerRemaining      int             `json:"timer_remaining"`
	Seq                 int64           `json:"seq"`
	ResolvedItemIDs     []uuid.UUID     `json:"resolved_item_ids"`
	Settings            AuctionSettings `json:"settings"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
}

// Clone returns a deep copy so the actor can roll back a failed transition.
func (s DraftSession) Clone() DraftSession {
	out := s
	out.CurrentItemID = cloneID(s.CurrentItemID)
	out.CurrentBidderID = cloneID(s.CurrentBidderID)
	out.CurrentBidderTeamID = cloneID(s.CurrentBidderTeamID)
	out.ResolvedItemIDs = append([]uuid.UUID(nil), s.ResolvedItemIDs...)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// DraftSessionView is the snapshot handed to clients for reconciliation.
type DraftSessionView struct {
	ID             uuid.UUID   `json:"id"`
	LeagueID       uuid.UUID   `json:"league_id"`
	Status         DraftStatus `json:"status"`
	Paused         bool        `json:"paused"`
	CurrentItem    *Item       `json:"current_item"`
	CurrentBid     float64     `json:"current_bid"`
	CurrentBidder  *Bidder     `json:"current_bidder"`
	TimerRemaining int         `json:"timer_remaining"`
	Seq            int64       `json:"seq"`
	ItemsResolved  int         `json:"items_resolved"`
	ItemsRemaining int         `json:"items_remaining"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Bidder identifies the participant holding the current high bid.
type Bidder struct {
	ID       uuid.UUID `json:"id"`
	TeamID   uuid.UUID `json:"team_id"`
	TeamName string    `json:"team_name"`
}
