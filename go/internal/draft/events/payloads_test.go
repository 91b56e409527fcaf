package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeWireFormat(t *testing.T) {
	draftID, leagueID := uuid.New(), uuid.New()
	at := time.Date(2026, 9, 1, 18, 30, 0, 0, time.FixedZone("EST", -5*3600))

	env, err := NewEnvelope(draftID, leagueID, 3, at, ItemSoldPayload{
		ItemID:          "item-1",
		SoldTo:          "team-1",
		Amount:          20,
		BudgetRemaining: 80,
		NewBid:          8,
	})
	require.NoError(t, err)
	assert.Equal(t, TypeItemSold, env.Type)
	assert.Equal(t, time.UTC, env.Timestamp.Location())
	assert.JSONEq(t, `{
		"itemId": "item-1",
		"soldTo": "team-1",
		"amount": 20,
		"budgetRemaining": 80,
		"nextItem": null,
		"newBid": 8
	}`, string(env.Data))

	data, err := json.Marshal(env)
	require.NoError(t, err)
	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "draft:sold", wire["type"])
	assert.Equal(t, float64(3), wire["seq"])
	assert.Equal(t, leagueID.String(), wire["league_id"])
}

func TestDecode(t *testing.T) {
	payloads := []Event{
		DraftStartedPayload{DraftID: "d", CurrentItem: ItemInfo{ID: "i", BasePrice: 5}, CurrentBid: 5, TimerRemaining: 60},
		BidPlacedPayload{Amount: 6, Bidder: BidderInfo{ID: "t", TeamName: "Aces"}, TimerRemaining: 60},
		ItemUnsoldPayload{ItemID: "i", NextItem: &ItemInfo{ID: "j"}, NewBid: 3},
		DraftCompletedPayload{DraftID: "d"},
		DraftStoppedPayload{DraftID: "d", TimerRemaining: 12},
		DraftResumedPayload{DraftID: "d", TimerRemaining: 12},
	}

	for _, p := range payloads {
		t.Run(string(p.EventType()), func(t *testing.T) {
			env, err := NewEnvelope(uuid.New(), uuid.New(), 1, time.Now(), p)
			require.NoError(t, err)

			got, err := env.Decode()
			require.NoError(t, err)
			assert.Equal(t, p.EventType(), got.EventType())
		})
	}
}

func TestDecodeRejectsUnknownAndMalformed(t *testing.T) {
	_, err := Envelope{Type: "draft:mystery", Data: []byte(`{}`)}.Decode()
	assert.Error(t, err)

	_, err = Envelope{Type: TypeBidPlaced, Data: []byte(`{"amount":"lots"}`)}.Decode()
	assert.Error(t, err)
}
