package models

import (
	"time"

	"github.com/google/uuid"
)

// Item is a biddable catalog entry, usually a player.
type Item struct {
	ID              uuid.UUID  `json:"id"`
	LeagueID        uuid.UUID  `json:"league_id"`
	Name            string     `json:"name"`
	Role            string     `json:"role"`      // position, e.g. 'QB'
	GroupTag        string     `json:"group_tag"` // pro team
	BasePrice       float64    `json:"base_price"`
	CatalogPosition int        `json:"catalog_position"`
	Sold            bool       `json:"sold"`
	OwnerTeamID     *uuid.UUID `json:"owner_team_id,omitempty"`
	SoldPrice       *float64   `json:"sold_price,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
