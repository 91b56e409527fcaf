// Package fixture loads a league, its teams and its auction catalog from YAML. The seed
// tool writes a fixture to Postgres; memory storage loads it directly.
package fixture

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/auctiondraft/go/internal/draft/memory"
	"github.com/mcdev12/auctiondraft/go/internal/models"
)

// Namespace for IDs derived from names, so reseeding the same file yields the same rows.
var namespace = uuid.MustParse("5b0c7f53-7f0e-4c36-9d55-2a9d0e1f6a41")

type Fixture struct {
	League  League   `yaml:"league"`
	Teams   []Team   `yaml:"teams"`
	Items   []Item   `yaml:"items"`
	Keepers []Keeper `yaml:"keepers"`
}

type League struct {
	ID             uuid.UUID `yaml:"id"`
	Name           string    `yaml:"name"`
	CommissionerID uuid.UUID `yaml:"commissioner_id"`
}

type Team struct {
	ID     uuid.UUID `yaml:"id"`
	UserID uuid.UUID `yaml:"user_id"`
	Name   string    `yaml:"name"`
	Budget float64   `yaml:"budget"`
}

type Item struct {
	ID        uuid.UUID `yaml:"id"`
	Name      string    `yaml:"name"`
	Role      string    `yaml:"role"`
	Team      string    `yaml:"team"`
	BasePrice float64   `yaml:"base_price"`
}

// Keeper assigns an item to a team before the auction; the item is never put up for bid.
type Keeper struct {
	Team  string  `yaml:"team"`
	Item  string  `yaml:"item"`
	Price float64 `yaml:"price"`
}

// Load reads and validates a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture, fills in missing IDs and checks references.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if f.League.Name == "" {
		return nil, fmt.Errorf("fixture league needs a name")
	}
	if f.League.CommissionerID == uuid.Nil {
		return nil, fmt.Errorf("fixture league %q needs a commissioner_id", f.League.Name)
	}
	if f.League.ID == uuid.Nil {
		f.League.ID = uuid.NewSHA1(namespace, []byte("league/"+f.League.Name))
	}

	teams := make(map[string]bool, len(f.Teams))
	for i := range f.Teams {
		t := &f.Teams[i]
		if t.Name == "" || t.UserID == uuid.Nil {
			return nil, fmt.Errorf("team %d needs a name and a user_id", i)
		}
		if t.Budget < 0 {
			return nil, fmt.Errorf("team %q has a negative budget", t.Name)
		}
		if t.ID == uuid.Nil {
			t.ID = f.derive("team", t.Name)
		}
		teams[t.Name] = true
	}

	items := make(map[string]bool, len(f.Items))
	for i := range f.Items {
		it := &f.Items[i]
		if it.Name == "" {
			return nil, fmt.Errorf("item %d needs a name", i)
		}
		if it.BasePrice < 0 {
			return nil, fmt.Errorf("item %q has a negative base_price", it.Name)
		}
		if items[it.Name] {
			return nil, fmt.Errorf("item %q is listed twice", it.Name)
		}
		if it.ID == uuid.Nil {
			it.ID = f.derive("item", it.Name)
		}
		items[it.Name] = true
	}

	for _, k := range f.Keepers {
		if !teams[k.Team] {
			return nil, fmt.Errorf("keeper %q references unknown team %q", k.Item, k.Team)
		}
		if !items[k.Item] {
			return nil, fmt.Errorf("keeper references unknown item %q", k.Item)
		}
	}
	return &f, nil
}

func (f *Fixture) derive(kind, name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(f.League.ID.String()+"/"+kind+"/"+name))
}

// Models converts the fixture to the rows it describes. Catalog position follows file order.
func (f *Fixture) Models(now time.Time) (models.League, []models.Participant, []models.Item, []models.RosterEntry) {
	league := models.League{
		ID:             f.League.ID,
		Name:           f.League.Name,
		CommissionerID: f.League.CommissionerID,
		CreatedAt:      now,
	}

	teamIDs := make(map[string]uuid.UUID, len(f.Teams))
	participants := make([]models.Participant, 0, len(f.Teams))
	for _, t := range f.Teams {
		teamIDs[t.Name] = t.ID
		participants = append(participants, models.Participant{
			ID:              t.ID,
			LeagueID:        league.ID,
			UserID:          t.UserID,
			TeamName:        t.Name,
			BudgetRemaining: t.Budget,
			CreatedAt:       now,
		})
	}

	itemIDs := make(map[string]uuid.UUID, len(f.Items))
	items := make([]models.Item, 0, len(f.Items))
	for i, it := range f.Items {
		itemIDs[it.Name] = it.ID
		items = append(items, models.Item{
			ID:              it.ID,
			LeagueID:        league.ID,
			Name:            it.Name,
			Role:            it.Role,
			GroupTag:        it.Team,
			BasePrice:       it.BasePrice,
			CatalogPosition: i,
			CreatedAt:       now,
		})
	}

	roster := make([]models.RosterEntry, 0, len(f.Keepers))
	for _, k := range f.Keepers {
		roster = append(roster, models.RosterEntry{
			ID:              f.derive("keeper", k.Item),
			FantasyTeamID:   teamIDs[k.Team],
			ItemID:          itemIDs[k.Item],
			Price:           k.Price,
			AcquisitionType: models.AcquisitionTypeKeeper,
			AcquiredAt:      now,
		})
	}
	return league, participants, items, roster
}

// ApplyTo loads the fixture into an in-memory store.
func (f *Fixture) ApplyTo(store *memory.Store, now time.Time) {
	league, participants, items, roster := f.Models(now)
	store.AddLeague(league)
	for _, p := range participants {
		store.AddParticipant(p)
	}
	store.AddItems(items...)
	for _, e := range roster {
		store.AddRosterEntry(e)
	}
}
