// Package memory is an in-process draft repository for local development and tests. It
// honors the same commit contract as the Postgres repository: a transition applies fully
// or not at all, and a sale whose debit would overdraw the buyer is rejected with
// draft.ErrBudget.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/go/internal/draft"
	"github.com/mcdev12/auctiondraft/go/internal/draft/events"
	"github.com/mcdev12/auctiondraft/go/internal/models"
)

// Store implements draft.Repository in memory.
type Store struct {
	mu       sync.Mutex
	leagues  map[uuid.UUID]models.League
	teams    map[uuid.UUID]*models.Participant
	items    map[uuid.UUID]*models.Item
	sessions map[uuid.UUID]models.DraftSession
	roster   []models.RosterEntry
	outbox   []events.Envelope

	commitHook func(tr draft.Transition) error
}

var _ draft.Repository = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		leagues:  make(map[uuid.UUID]models.League),
		teams:    make(map[uuid.UUID]*models.Participant),
		items:    make(map[uuid.UUID]*models.Item),
		sessions: make(map[uuid.UUID]models.DraftSession),
	}
}

// AddLeague registers a league.
func (s *Store) AddLeague(l models.League) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leagues[l.ID] = l
}

// AddParticipant registers a league member's team.
func (s *Store) AddParticipant(p models.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[p.ID] = &p
}

// AddItems appends catalog items.
func (s *Store) AddItems(items ...models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range items {
		item := items[i]
		s.items[item.ID] = &item
	}
}

// AddRosterEntry records an item already owned before the auction, e.g. a keeper.
func (s *Store) AddRosterEntry(e models.RosterEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = append(s.roster, e)
}

// SetBudget overwrites a team's balance, standing in for changes made outside the engine.
func (s *Store) SetBudget(teamID uuid.UUID, budget float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.teams[teamID]; ok {
		p.BudgetRemaining = budget
	}
}

// PutSession stores a session row as is, e.g. to simulate state left by a previous process.
func (s *Store) PutSession(sess models.DraftSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
}

// SetCommitHook installs a function consulted before every commit. A non-nil error aborts
// the commit with nothing applied.
func (s *Store) SetCommitHook(fn func(tr draft.Transition) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitHook = fn
}

// Commit applies a transition atomically.
func (s *Store) Commit(ctx context.Context, tr draft.Transition) (*draft.Committed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.commitHook != nil {
		if err := s.commitHook(tr); err != nil {
			return nil, err
		}
	}

	sess := tr.Session
	if sess.Status != models.DraftStatusCompleted {
		for _, other := range s.sessions {
			if other.ID != sess.ID && other.LeagueID == sess.LeagueID && other.Status != models.DraftStatusCompleted {
				return nil, fmt.Errorf("%w: league %s already has active draft %s", draft.ErrState, sess.LeagueID, other.ID)
			}
		}
	}

	if id := tr.UnsoldItemID; id != nil {
		item, ok := s.items[*id]
		if !ok {
			return nil, fmt.Errorf("%w: item %s", draft.ErrNotFound, *id)
		}
		if item.Sold {
			return nil, fmt.Errorf("%w: item %s is already sold", draft.ErrState, *id)
		}
	}

	committed := &draft.Committed{}
	if sale := tr.Sale; sale != nil {
		team, ok := s.teams[sale.TeamID]
		if !ok {
			return nil, fmt.Errorf("%w: fantasy team %s", draft.ErrNotFound, sale.TeamID)
		}
		item, ok := s.items[sale.ItemID]
		if !ok {
			return nil, fmt.Errorf("%w: item %s", draft.ErrNotFound, sale.ItemID)
		}
		if item.Sold {
			return nil, fmt.Errorf("%w: item %s is already sold", draft.ErrState, sale.ItemID)
		}
		if team.BudgetRemaining < sale.Amount {
			return nil, fmt.Errorf("%w: team %s has %.2f, sale needs %.2f", draft.ErrBudget, sale.TeamID, team.BudgetRemaining, sale.Amount)
		}

		team.BudgetRemaining -= sale.Amount
		owner, price := sale.TeamID, sale.Amount
		item.Sold = true
		item.OwnerTeamID = &owner
		item.SoldPrice = &price
		s.roster = append(s.roster, models.RosterEntry{
			ID:              uuid.New(),
			FantasyTeamID:   sale.TeamID,
			ItemID:          sale.ItemID,
			Price:           sale.Amount,
			AcquisitionType: models.AcquisitionTypeAuction,
			AcquiredAt:      time.Now(),
		})
		committed.BudgetAfter = team.BudgetRemaining
	}

	s.sessions[sess.ID] = sess.Clone()
	s.outbox = append(s.outbox, tr.Events...)
	return committed, nil
}

// GetActiveSession returns the league's non-completed session.
func (s *Store) GetActiveSession(ctx context.Context, leagueID uuid.UUID) (*models.DraftSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.LeagueID == leagueID && sess.Status != models.DraftStatusCompleted {
			out := sess.Clone()
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: no active draft for league %s", draft.ErrNotFound, leagueID)
}

// GetLatestSession returns the league's most recently created session.
func (s *Store) GetLatestSession(ctx context.Context, leagueID uuid.UUID) (*models.DraftSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.DraftSession
	for _, sess := range s.sessions {
		if sess.LeagueID != leagueID {
			continue
		}
		if latest == nil || sess.CreatedAt.After(latest.CreatedAt) {
			out := sess.Clone()
			latest = &out
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: no draft for league %s", draft.ErrNotFound, leagueID)
	}
	return latest, nil
}

// GetSession returns a session by ID.
func (s *Store) GetSession(ctx context.Context, draftID uuid.UUID) (*models.DraftSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[draftID]
	if !ok {
		return nil, fmt.Errorf("%w: draft %s", draft.ErrNotFound, draftID)
	}
	out := sess.Clone()
	return &out, nil
}

// ListActiveSessions returns every non-completed session.
func (s *Store) ListActiveSessions(ctx context.Context) ([]models.DraftSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DraftSession
	for _, sess := range s.sessions {
		if sess.Status != models.DraftStatusCompleted {
			out = append(out, sess.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// GetBudget returns a team's live balance.
func (s *Store) GetBudget(ctx context.Context, teamID uuid.UUID) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[teamID]
	if !ok {
		return 0, fmt.Errorf("%w: fantasy team %s", draft.ErrNotFound, teamID)
	}
	return team.BudgetRemaining, nil
}

// GetLeague returns a league.
func (s *Store) GetLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[leagueID]
	if !ok {
		return nil, fmt.Errorf("%w: league %s", draft.ErrNotFound, leagueID)
	}
	return &l, nil
}

// GetMember returns the user's team in the league.
func (s *Store) GetMember(ctx context.Context, leagueID, userID uuid.UUID) (*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, team := range s.teams {
		if team.LeagueID == leagueID && team.UserID == userID {
			out := *team
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s has no team in league %s", draft.ErrNotFound, userID, leagueID)
}

// ListCatalogItems returns the league's catalog.
func (s *Store) ListCatalogItems(ctx context.Context, leagueID uuid.UUID) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Item
	for _, item := range s.items {
		if item.LeagueID == leagueID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CatalogPosition < out[j].CatalogPosition })
	return out, nil
}

// ListAssignedItemIDs returns the league's items that sit on a roster.
func (s *Store) ListAssignedItemIDs(ctx context.Context, leagueID uuid.UUID) (map[uuid.UUID]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]bool)
	for _, e := range s.roster {
		if item, ok := s.items[e.ItemID]; ok && item.LeagueID == leagueID {
			out[e.ItemID] = true
		}
	}
	return out, nil
}

// Budget is GetBudget for tests that do not care about errors.
func (s *Store) Budget(teamID uuid.UUID) float64 {
	b, _ := s.GetBudget(context.Background(), teamID)
	return b
}

// Item returns a copy of a catalog item.
func (s *Store) Item(id uuid.UUID) (models.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return models.Item{}, false
	}
	return *item, true
}

// Session returns the persisted row of a session.
func (s *Store) Session(id uuid.UUID) (models.DraftSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess.Clone(), ok
}

// Roster returns every roster row.
func (s *Store) Roster() []models.RosterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.RosterEntry(nil), s.roster...)
}

// Events returns every committed outbox event in commit order.
func (s *Store) Events() []events.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Envelope(nil), s.outbox...)
}
