package models

import (
	"github.com/google/uuid"
	"time"
)

// Participant is a league member's fantasy team with its auction budget.
type Participant struct {
	ID              uuid.UUID `json:"id"`
	LeagueID        uuid.UUID `json:"league_id"`
	UserID          uuid.UUID `json:"user_id"`
	TeamName        string    `json:"team_name"`
	BudgetRemaining float64   `json:"budget_remaining"`
	CreatedAt       time.Time `json:"created_at"`
}
