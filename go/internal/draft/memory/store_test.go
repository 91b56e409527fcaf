package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/auctiondraft/go/internal/draft"
	"github.com/mcdev12/auctiondraft/go/internal/draft/events"
	"github.com/mcdev12/auctiondraft/go/internal/models"
)

type fixture struct {
	store  *Store
	league uuid.UUID
	team   models.Participant
	item   models.Item
}

func newFixture() fixture {
	s := NewStore()
	league := uuid.New()
	team := models.Participant{ID: uuid.New(), LeagueID: league, UserID: uuid.New(), TeamName: "Aces", BudgetRemaining: 50}
	item := models.Item{ID: uuid.New(), LeagueID: league, Name: "Runner", BasePrice: 10}
	s.AddLeague(models.League{ID: league, Name: "L", CommissionerID: uuid.New()})
	s.AddParticipant(team)
	s.AddItems(item)
	return fixture{store: s, league: league, team: team, item: item}
}

func (f fixture) session(status models.DraftStatus) models.DraftSession {
	return models.DraftSession{ID: uuid.New(), LeagueID: f.league, Status: status, CreatedAt: time.Now()}
}

func envelope(t *testing.T, sess models.DraftSession) events.Envelope {
	t.Helper()
	env, err := events.NewEnvelope(sess.ID, sess.LeagueID, sess.Seq+1, time.Now(), events.DraftCompletedPayload{DraftID: sess.ID.String()})
	require.NoError(t, err)
	return env
}

func TestCommitSaleDebitsAndAssigns(t *testing.T) {
	f := newFixture()
	sess := f.session(models.DraftStatusItemOpen)

	committed, err := f.store.Commit(context.Background(), draft.Transition{
		Session: sess,
		Sale:    &draft.Sale{ItemID: f.item.ID, TeamID: f.team.ID, Amount: 30},
		Events:  []events.Envelope{envelope(t, sess)},
	})
	require.NoError(t, err)
	assert.Equal(t, 20.0, committed.BudgetAfter)
	assert.Equal(t, 20.0, f.store.Budget(f.team.ID))

	item, ok := f.store.Item(f.item.ID)
	require.True(t, ok)
	assert.True(t, item.Sold)
	require.NotNil(t, item.SoldPrice)
	assert.Equal(t, 30.0, *item.SoldPrice)

	roster := f.store.Roster()
	require.Len(t, roster, 1)
	assert.Equal(t, models.AcquisitionTypeAuction, roster[0].AcquisitionType)
	assert.Len(t, f.store.Events(), 1)

	assigned, err := f.store.ListAssignedItemIDs(context.Background(), f.league)
	require.NoError(t, err)
	assert.True(t, assigned[f.item.ID])
}

func TestCommitOverdraftAppliesNothing(t *testing.T) {
	f := newFixture()
	sess := f.session(models.DraftStatusItemOpen)

	_, err := f.store.Commit(context.Background(), draft.Transition{
		Session: sess,
		Sale:    &draft.Sale{ItemID: f.item.ID, TeamID: f.team.ID, Amount: 51},
		Events:  []events.Envelope{envelope(t, sess)},
	})
	assert.ErrorIs(t, err, draft.ErrBudget)
	assert.Equal(t, 50.0, f.store.Budget(f.team.ID))
	assert.Empty(t, f.store.Roster())
	assert.Empty(t, f.store.Events())
	_, ok := f.store.Session(sess.ID)
	assert.False(t, ok)
}

func TestCommitRejectsSecondActiveSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first := f.session(models.DraftStatusItemOpen)
	_, err := f.store.Commit(ctx, draft.Transition{Session: first})
	require.NoError(t, err)

	_, err = f.store.Commit(ctx, draft.Transition{Session: f.session(models.DraftStatusItemOpen)})
	assert.ErrorIs(t, err, draft.ErrState)

	active, err := f.store.GetActiveSession(ctx, f.league)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	first.Status = models.DraftStatusCompleted
	_, err = f.store.Commit(ctx, draft.Transition{Session: first})
	require.NoError(t, err)

	_, err = f.store.GetActiveSession(ctx, f.league)
	assert.ErrorIs(t, err, draft.ErrNotFound)
	sessions, err := f.store.ListActiveSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestCommitRejectsSellingTwice(t *testing.T) {
	f := newFixture()
	sess := f.session(models.DraftStatusItemOpen)
	sale := &draft.Sale{ItemID: f.item.ID, TeamID: f.team.ID, Amount: 10}

	_, err := f.store.Commit(context.Background(), draft.Transition{Session: sess, Sale: sale})
	require.NoError(t, err)
	_, err = f.store.Commit(context.Background(), draft.Transition{Session: sess, Sale: sale})
	assert.ErrorIs(t, err, draft.ErrState)
	assert.Equal(t, 40.0, f.store.Budget(f.team.ID))
}

func TestLookups(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.store.GetLeague(ctx, uuid.New())
	assert.ErrorIs(t, err, draft.ErrNotFound)

	member, err := f.store.GetMember(ctx, f.league, f.team.UserID)
	require.NoError(t, err)
	assert.Equal(t, f.team.ID, member.ID)

	_, err = f.store.GetMember(ctx, uuid.New(), f.team.UserID)
	assert.ErrorIs(t, err, draft.ErrNotFound)

	_, err = f.store.GetBudget(ctx, uuid.New())
	assert.ErrorIs(t, err, draft.ErrNotFound)
}

func TestCommitRejectsPassingOnSoldItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := f.session(models.DraftStatusItemOpen)
	id := f.item.ID

	_, err := f.store.Commit(ctx, draft.Transition{Session: sess, UnsoldItemID: &id, Events: []events.Envelope{envelope(t, sess)}})
	require.NoError(t, err)

	_, err = f.store.Commit(ctx, draft.Transition{Session: sess, Sale: &draft.Sale{ItemID: id, TeamID: f.team.ID, Amount: 10}})
	require.NoError(t, err)

	sess.Seq = 1
	_, err = f.store.Commit(ctx, draft.Transition{Session: sess, UnsoldItemID: &id, Events: []events.Envelope{envelope(t, sess)}})
	assert.ErrorIs(t, err, draft.ErrState)
	assert.Len(t, f.store.Events(), 1)

	missing := uuid.New()
	_, err = f.store.Commit(ctx, draft.Transition{Session: sess, UnsoldItemID: &missing})
	assert.ErrorIs(t, err, draft.ErrNotFound)
}

func TestGetLatestSessionIncludesCompleted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.store.GetLatestSession(ctx, f.league)
	assert.ErrorIs(t, err, draft.ErrNotFound)

	older := f.session(models.DraftStatusCompleted)
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := f.session(models.DraftStatusCompleted)
	f.store.PutSession(older)
	f.store.PutSession(newer)

	latest, err := f.store.GetLatestSession(ctx, f.league)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	byID, err := f.store.GetSession(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusCompleted, byID.Status)

	_, err = f.store.GetSession(ctx, uuid.New())
	assert.ErrorIs(t, err, draft.ErrNotFound)
}
