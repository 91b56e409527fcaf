package draft

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mcdev12/auctiondraft/go/internal/models"
)

func TestValidateBid(t *testing.T) {
	t.Parallel()

	leagueID := uuid.New()
	holder := uuid.New()
	item := &models.Item{ID: uuid.New(), LeagueID: leagueID, BasePrice: 18}
	open := models.DraftSession{
		LeagueID:   leagueID,
		Status:     models.DraftStatusItemOpen,
		CurrentBid: 18,
		Settings:   models.DefaultAuctionSettings(),
	}
	withBid := open
	withBid.CurrentBid = 20
	withBid.CurrentBidderID = &holder
	withIncrement := withBid
	withIncrement.Settings.MinBidIncrement = 5
	stopped := open
	stopped.Paused = true
	completed := open
	completed.Status = models.DraftStatusCompleted

	member := &models.Participant{ID: uuid.New(), LeagueID: leagueID, BudgetRemaining: 100}
	outsider := &models.Participant{ID: uuid.New(), LeagueID: uuid.New(), BudgetRemaining: 100}
	seen := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		check   BidCheck
		wantErr error
	}{
		{
			name:  "first bid above base price",
			check: BidCheck{Session: open, Item: item, Amount: 20, Bidder: member},
		},
		{
			name:    "first bid at base price",
			check:   BidCheck{Session: open, Item: item, Amount: 18, Bidder: member},
			wantErr: ErrValidation,
		},
		{
			name:    "below base price",
			check:   BidCheck{Session: open, Item: item, Amount: 10, Bidder: member},
			wantErr: ErrValidation,
		},
		{
			name:    "not above current bid",
			check:   BidCheck{Session: withBid, Item: item, Amount: 19, Bidder: member},
			wantErr: ErrValidation,
		},
		{
			name:    "lost race against a bid the caller had not seen",
			check:   BidCheck{Session: withBid, Item: item, Amount: 20, SeenBid: seen(18), Bidder: member},
			wantErr: ErrConcurrency,
		},
		{
			name:    "low bid with an up to date view",
			check:   BidCheck{Session: withBid, Item: item, Amount: 19, SeenBid: seen(20), Bidder: member},
			wantErr: ErrValidation,
		},
		{
			name:    "below minimum increment",
			check:   BidCheck{Session: withIncrement, Item: item, Amount: 22, Bidder: member},
			wantErr: ErrValidation,
		},
		{
			name:  "meets minimum increment",
			check: BidCheck{Session: withIncrement, Item: item, Amount: 25, Bidder: member},
		},
		{
			name:    "not a league member",
			check:   BidCheck{Session: open, Item: item, Amount: 20},
			wantErr: ErrAuthorization,
		},
		{
			name:    "member of another league",
			check:   BidCheck{Session: open, Item: item, Amount: 20, Bidder: outsider},
			wantErr: ErrAuthorization,
		},
		{
			name:    "over budget",
			check:   BidCheck{Session: open, Item: item, Amount: 101, Bidder: member},
			wantErr: ErrBudget,
		},
		{
			name:  "exactly the remaining budget",
			check: BidCheck{Session: open, Item: item, Amount: 100, Bidder: member},
		},
		{
			name:    "draft stopped",
			check:   BidCheck{Session: stopped, Item: item, Amount: 20, Bidder: member},
			wantErr: ErrState,
		},
		{
			name:    "draft completed",
			check:   BidCheck{Session: completed, Amount: 20, Bidder: member},
			wantErr: ErrState,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateBid(tc.check)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}
