package models

import (
	"time"

	"github.com/google/uuid"
)

// RosterEntry records an item won at auction by a fantasy team.
type RosterEntry struct {
	ID              uuid.UUID       `json:"id"`
	FantasyTeamID   uuid.UUID       `json:"fantasy_team_id"`
	ItemID          uuid.UUID       `json:"item_id"`
	Price           float64         `json:"price"`
	AcquisitionType AcquisitionType `json:"acquisition_type"`
	AcquiredAt      time.Time       `json:"acquired_at"`
}

// AcquisitionType represents how a player was acquired
type AcquisitionType string

const (
	AcquisitionTypeAuction AcquisitionType = "AUCTION"
	AcquisitionTypeKeeper  AcquisitionType = "KEEPER"
)
