package draft

import (
	"fmt"

	"github.com/mcdev12/auctiondraft/go/internal/models"
)

// BidCheck is everything the validator looks at. The coordinator fills it from the
// state it is about to mutate.
type BidCheck struct {
	Session models.DraftSession
	Item    *models.Item
	Amount  float64
	// SeenBid is the current bid the caller observed when it built the request, if it said.
	SeenBid *float64
	// Bidder is nil when the user is not a member of the session's league.
	Bidder *models.Participant
}

// ValidateBid decides whether a bid may be applied. It is pure; the budget it checks is
// the live balance the coordinator read inside its critical section.
func ValidateBid(c BidCheck) error {
	s := c.Session
	if s.Status != models.DraftStatusItemOpen || c.Item == nil {
		return fmt.Errorf("%w: draft is %s, bids are only accepted while an item is open", ErrState, s.Status)
	}
	if s.Paused {
		return fmt.Errorf("%w: draft is stopped", ErrState)
	}

	if c.Amount < c.Item.BasePrice {
		return fmt.Errorf("%w: bid %.2f is below base price %.2f", ErrValidation, c.Amount, c.Item.BasePrice)
	}
	if c.Amount <= s.CurrentBid {
		if c.SeenBid != nil && c.Amount > *c.SeenBid && s.CurrentBid > *c.SeenBid {
			return fmt.Errorf("%w: current bid moved from %.2f to %.2f", ErrConcurrency, *c.SeenBid, s.CurrentBid)
		}
		return fmt.Errorf("%w: bid %.2f must exceed current bid %.2f", ErrValidation, c.Amount, s.CurrentBid)
	}
	if inc := s.Settings.MinBidIncrement; inc > 0 && s.CurrentBidderID != nil && c.Amount < s.CurrentBid+inc {
		return fmt.Errorf("%w: bid %.2f must be at least %.2f", ErrValidation, c.Amount, s.CurrentBid+inc)
	}

	if c.Bidder == nil || c.Bidder.LeagueID != s.LeagueID {
		return fmt.Errorf("%w: bidder is not a member of league %s", ErrAuthorization, s.LeagueID)
	}
	if c.Bidder.BudgetRemaining < c.Amount {
		return fmt.Errorf("%w: bid %.2f exceeds remaining budget %.2f", ErrBudget, c.Amount, c.Bidder.BudgetRemaining)
	}
	return nil
}
