package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/auctiondraft/go/internal/dbconfig"
	"github.com/mcdev12/auctiondraft/go/internal/draft/fixture"
)

// Seeds one league with its teams, auction catalog and keepers from a YAML fixture.
// Rerunning with the same file is a no-op: IDs are derived from names and every insert
// skips existing rows.
func main() {
	ctx := context.Background()

	path := "go/internal/assets/draft_fixture.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load fixture
	f, err := fixture.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		os.Exit(1)
	}
	league, teams, items, keepers := f.Models(time.Now().UTC())

	// 2) Connect to DB
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Seed everything in one transaction
	inserted := map[string]int64{}
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            INSERT INTO leagues (id, name, commissioner_id, created_at)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (id) DO NOTHING
        `, league.ID, league.Name, league.CommissionerID, league.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert league: %w", err)
		}
		inserted["leagues"] += tag.RowsAffected()

		for _, t := range teams {
			tag, err := tx.Exec(ctx, `
                INSERT INTO fantasy_teams (id, league_id, owner_id, name, budget_remaining, created_at)
                VALUES ($1, $2, $3, $4, $5, $6)
                ON CONFLICT DO NOTHING
            `, t.ID, t.LeagueID, t.UserID, t.TeamName, t.BudgetRemaining, t.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert team %q: %w", t.TeamName, err)
			}
			inserted["fantasy_teams"] += tag.RowsAffected()
		}

		for _, it := range items {
			tag, err := tx.Exec(ctx, `
                INSERT INTO auction_items (id, league_id, name, role, group_tag, base_price, catalog_position, created_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
                ON CONFLICT (id) DO NOTHING
            `, it.ID, it.LeagueID, it.Name, it.Role, it.GroupTag, it.BasePrice, it.CatalogPosition, it.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert item %q: %w", it.Name, err)
			}
			inserted["auction_items"] += tag.RowsAffected()
		}

		for _, k := range keepers {
			tag, err := tx.Exec(ctx, `
                INSERT INTO rosters (id, fantasy_team_id, item_id, price, acquisition_type, acquired_at)
                VALUES ($1, $2, $3, $4, $5, $6)
                ON CONFLICT DO NOTHING
            `, k.ID, k.FantasyTeamID, k.ItemID, k.Price, string(k.AcquisitionType), k.AcquiredAt)
			if err != nil {
				return fmt.Errorf("insert keeper %s: %w", k.ItemID, err)
			}
			inserted["rosters"] += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Seeded league %s (%s)\n", league.Name, league.ID)
	for _, table := range []string{"leagues", "fantasy_teams", "auction_items", "rosters"} {
		fmt.Printf("  %-14s %d new rows\n", table, inserted[table])
	}
}
