package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/auctiondraft/go/internal/draft/db"
	"github.com/mcdev12/auctiondraft/go/internal/models"
	"github.com/mcdev12/auctiondraft/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

const pqUniqueViolation = "23505"

// PostgresRepository implements Repository on the draft schema.
type PostgresRepository struct {
	db      *sql.DB
	queries *db.Queries
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      database,
		queries: db.New(database),
	}
}

// Commit writes the session row, the item outcome and the outbox events in one transaction.
// The sale debit is conditional on the balance covering it, so a balance that changed since
// the coordinator read it surfaces as ErrBudget with the transaction rolled back.
func (r *PostgresRepository) Commit(ctx context.Context, tr Transition) (*Committed, error) {
	committed := &Committed{}
	err := sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		if id := tr.UnsoldItemID; id != nil {
			sold, err := q.GetAuctionItemSold(ctx, *id)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: item %s", ErrNotFound, *id)
			}
			if err != nil {
				return fmt.Errorf("failed to check item: %w", err)
			}
			if sold {
				return fmt.Errorf("%w: item %s is already sold", ErrState, *id)
			}
		}

		if sale := tr.Sale; sale != nil {
			budget, err := q.DebitFantasyTeamBudget(ctx, db.DebitFantasyTeamBudgetParams{
				Amount: sale.Amount,
				ID:     sale.TeamID,
			})
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: team %s cannot cover %.2f", ErrBudget, sale.TeamID, sale.Amount)
			}
			if err != nil {
				return fmt.Errorf("failed to debit budget: %w", err)
			}
			committed.BudgetAfter = budget

			n, err := q.MarkAuctionItemSold(ctx, db.MarkAuctionItemSoldParams{
				ID:          sale.ItemID,
				OwnerTeamID: sqlutil.ToNullUUID(&sale.TeamID),
				SoldPrice:   sqlutil.ToNullFloat64(&sale.Amount),
			})
			if err != nil {
				return fmt.Errorf("failed to mark item sold: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("%w: item %s is already sold", ErrState, sale.ItemID)
			}

			if err := q.InsertRosterEntry(ctx, db.InsertRosterEntryParams{
				ID:              uuid.New(),
				FantasyTeamID:   sale.TeamID,
				ItemID:          sale.ItemID,
				Price:           sale.Amount,
				AcquisitionType: string(models.AcquisitionTypeAuction),
			}); err != nil {
				return fmt.Errorf("failed to insert roster entry: %w", err)
			}
		}

		params, err := sessionToParams(tr.Session)
		if err != nil {
			return err
		}
		if err := q.UpsertDraftSession(ctx, params); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
				return fmt.Errorf("%w: league %s already has an active draft", ErrState, tr.Session.LeagueID)
			}
			return fmt.Errorf("failed to upsert draft session: %w", err)
		}

		for _, env := range tr.Events {
			if err := q.InsertOutboxEvent(ctx, db.InsertOutboxEventParams{
				ID:        env.ID,
				DraftID:   env.DraftID,
				LeagueID:  env.LeagueID,
				Seq:       env.Seq,
				EventType: string(env.Type),
				Payload:   env.Data,
				CreatedAt: env.Timestamp,
			}); err != nil {
				return fmt.Errorf("failed to insert %s outbox event: %w", env.Type, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (r *PostgresRepository) GetActiveSession(ctx context.Context, leagueID uuid.UUID) (*models.DraftSession, error) {
	row, err := r.queries.GetActiveDraftSessionByLeague(ctx, leagueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no active draft for league %s", ErrNotFound, leagueID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active draft: %w", err)
	}
	return dbSessionToModel(row)
}

func (r *PostgresRepository) GetLatestSession(ctx context.Context, leagueID uuid.UUID) (*models.DraftSession, error) {
	row, err := r.queries.GetLatestDraftSessionByLeague(ctx, leagueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no draft for league %s", ErrNotFound, leagueID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest draft: %w", err)
	}
	return dbSessionToModel(row)
}

func (r *PostgresRepository) GetSession(ctx context.Context, draftID uuid.UUID) (*models.DraftSession, error) {
	row, err := r.queries.GetDraftSession(ctx, draftID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: draft %s", ErrNotFound, draftID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	return dbSessionToModel(row)
}

func (r *PostgresRepository) ListActiveSessions(ctx context.Context) ([]models.DraftSession, error) {
	rows, err := r.queries.ListActiveDraftSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active drafts: %w", err)
	}

	result := make([]models.DraftSession, 0, len(rows))
	for _, row := range rows {
		s, err := dbSessionToModel(row)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, nil
}

func (r *PostgresRepository) GetBudget(ctx context.Context, teamID uuid.UUID) (float64, error) {
	budget, err := r.queries.GetFantasyTeamBudget(ctx, teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: fantasy team %s", ErrNotFound, teamID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get budget: %w", err)
	}
	return budget, nil
}

func (r *PostgresRepository) GetLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error) {
	l, err := r.queries.GetLeague(ctx, leagueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: league %s", ErrNotFound, leagueID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get league: %w", err)
	}
	return &models.League{
		ID:             l.ID,
		Name:           l.Name,
		CommissionerID: l.CommissionerID,
		CreatedAt:      l.CreatedAt,
	}, nil
}

func (r *PostgresRepository) GetMember(ctx context.Context, leagueID, userID uuid.UUID) (*models.Participant, error) {
	team, err := r.queries.GetFantasyTeamByLeagueAndOwner(ctx, db.GetFantasyTeamByLeagueAndOwnerParams{
		LeagueID: leagueID,
		OwnerID:  userID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s has no team in league %s", ErrNotFound, userID, leagueID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fantasy team: %w", err)
	}
	return &models.Participant{
		ID:              team.ID,
		LeagueID:        team.LeagueID,
		UserID:          team.OwnerID,
		TeamName:        team.Name,
		BudgetRemaining: team.BudgetRemaining,
		CreatedAt:       team.CreatedAt,
	}, nil
}

func (r *PostgresRepository) ListCatalogItems(ctx context.Context, leagueID uuid.UUID) ([]models.Item, error) {
	rows, err := r.queries.ListAuctionItemsByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list auction items: %w", err)
	}

	result := make([]models.Item, len(rows))
	for i, row := range rows {
		result[i] = models.Item{
			ID:              row.ID,
			LeagueID:        row.LeagueID,
			Name:            row.Name,
			Role:            row.Role,
			GroupTag:        row.GroupTag,
			BasePrice:       row.BasePrice,
			CatalogPosition: int(row.CatalogPosition),
			Sold:            row.Sold,
			OwnerTeamID:     sqlutil.FromNullUUID(row.OwnerTeamID),
			SoldPrice:       sqlutil.FromNullFloat64(row.SoldPrice),
			CreatedAt:       row.CreatedAt,
		}
	}
	return result, nil
}

func (r *PostgresRepository) ListAssignedItemIDs(ctx context.Context, leagueID uuid.UUID) (map[uuid.UUID]bool, error) {
	ids, err := r.queries.ListRosterItemIDsByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster items: %w", err)
	}
	assigned := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		assigned[id] = true
	}
	return assigned, nil
}

func sessionToParams(s models.DraftSession) (db.UpsertDraftSessionParams, error) {
	resolved := s.ResolvedItemIDs
	if resolved == nil {
		resolved = []uuid.UUID{}
	}
	resolvedJSON, err := json.Marshal(resolved)
	if err != nil {
		return db.UpsertDraftSessionParams{}, fmt.Errorf("failed to marshal resolved items: %w", err)
	}
	settingsJSON, err := json.Marshal(s.Settings)
	if err != nil {
		return db.UpsertDraftSessionParams{}, fmt.Errorf("failed to marshal auction settings: %w", err)
	}

	return db.UpsertDraftSessionParams{
		ID:                  s.ID,
		LeagueID:            s.LeagueID,
		Status:              string(s.Status),
		Paused:              s.Paused,
		CurrentItemID:       sqlutil.ToNullUUID(s.CurrentItemID),
		CurrentBid:          s.CurrentBid,
		CurrentBidderID:     sqlutil.ToNullUUID(s.CurrentBidderID),
		CurrentBidderTeamID: sqlutil.ToNullUUID(s.CurrentBidderTeamID),
		TimerRemaining:      int32(s.TimerRemaining),
		Seq:                 s.Seq,
		ResolvedItemIds:     resolvedJSON,
		Settings:            pqtype.NullRawMessage{RawMessage: settingsJSON, Valid: true},
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
		CompletedAt:         sqlutil.ToNullTime(s.CompletedAt),
	}, nil
}

func dbSessionToModel(row db.DraftSession) (*models.DraftSession, error) {
	var resolved []uuid.UUID
	if len(row.ResolvedItemIds) > 0 {
		if err := json.Unmarshal(row.ResolvedItemIds, &resolved); err != nil {
			return nil, fmt.Errorf("failed to unmarshal resolved items: %w", err)
		}
	}

	settings := models.DefaultAuctionSettings()
	if row.Settings.Valid {
		if err := json.Unmarshal(row.Settings.RawMessage, &settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal auction settings: %w", err)
		}
	}

	return &models.DraftSession{
		ID:                  row.ID,
		LeagueID:            row.LeagueID,
		Status:              models.DraftStatus(row.Status),
		Paused:              row.Paused,
		CurrentItemID:       sqlutil.FromNullUUID(row.CurrentItemID),
		CurrentBid:          row.CurrentBid,
		CurrentBidderID:     sqlutil.FromNullUUID(row.CurrentBidderID),
		CurrentBidderTeamID: sqlutil.FromNullUUID(row.CurrentBidderTeamID),
		TimerRemaining:      int(row.TimerRemaining),
		Seq:                 row.Seq,
		ResolvedItemIDs:     resolved,
		Settings:            settings,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
		CompletedAt:         sqlutil.FromNullTime(row.CompletedAt),
	}, nil
}
