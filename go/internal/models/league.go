package models

import (
	"github.com/google/uuid"
	"time"
)

// League is the scope of a draft; only its commissioner may run the auction.
type League struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	CommissionerID uuid.UUID `json:"commissioner_id"`
	CreatedAt      time.Time `json:"created_at"`
}
