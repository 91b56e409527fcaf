package draft

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctiondraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Config tunes the draft app.
type Config struct {
	Settings      models.AuctionSettings `yaml:"auction"`
	CommitTimeout time.Duration          `yaml:"commit_timeout"`
	CommandBuffer int                    `yaml:"command_buffer"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		Settings:      models.DefaultAuctionSettings(),
		CommitTimeout: 5 * time.Second,
		CommandBuffer: 64,
	}
}

// App handles draft business logic: it owns the registry of live sessions and routes
// every request to the session actor for its league.
type App struct {
	repo        Repository
	broadcaster Broadcaster
	snapshots   SnapshotPublisher
	clock       clockwork.Clock
	cfg         Config

	mu       sync.RWMutex
	byLeague map[uuid.UUID]*Session
	byID     map[uuid.UUID]*Session
	starting map[uuid.UUID]bool
}

// NewApp creates a new draft app. broadcaster and snapshots may be nil.
func NewApp(repo Repository, broadcaster Broadcaster, snapshots SnapshotPublisher, clock clockwork.Clock, cfg Config) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		repo:        repo,
		broadcaster: broadcaster,
		snapshots:   snapshots,
		clock:       clock,
		cfg:         cfg,
		byLeague:    make(map[uuid.UUID]*Session),
		byID:        make(map[uuid.UUID]*Session),
		starting:    make(map[uuid.UUID]bool),
	}
}

func (a *App) sessionConfig() sessionConfig {
	return sessionConfig{
		repo:          a.repo,
		broadcaster:   a.broadcaster,
		snapshots:     a.snapshots,
		clock:         a.clock,
		commitTimeout: a.cfg.CommitTimeout,
		bufferSize:    a.cfg.CommandBuffer,
	}
}

// StartDraft opens a new auction for the league and puts the first item on the block.
func (a *App) StartDraft(ctx context.Context, leagueID, requesterID uuid.UUID) (*models.DraftSessionView, error) {
	if err := a.authorizeCommissioner(ctx, leagueID, requesterID); err != nil {
		return nil, err
	}

	release, err := a.reserveLeague(leagueID)
	if err != nil {
		return nil, err
	}
	defer release()

	active, err := a.repo.GetActiveSession(ctx, leagueID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: league %s already has draft %s in progress", ErrState, leagueID, active.ID)
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("%w: failed to check for active draft: %w", ErrInfrastructure, err)
	}

	queue, err := a.loadQueue(ctx, leagueID, nil)
	if err != nil {
		return nil, err
	}
	if queue.Len() == 0 {
		return nil, fmt.Errorf("%w: league %s has no items left to auction", ErrEmptyCatalog, leagueID)
	}

	state := models.DraftSession{
		ID:       uuid.New(),
		LeagueID: leagueID,
		Status:   models.DraftStatusIdle,
		Settings: a.cfg.Settings,
	}
	s := newSession(a.sessionConfig(), state, queue)
	go s.run()

	// The caller going away must not strand a start that was already committed and announced.
	if err := s.do(context.WithoutCancel(ctx), s.start); err != nil {
		if s.View().Status == models.DraftStatusIdle {
			s.shutdown()
			return nil, err
		}
		log.Warn().
			Err(err).
			Str("draft_id", s.ID().String()).
			Str("league_id", leagueID.String()).
			Msg("draft start reported an error after it was committed")
	}

	a.register(s)
	view := s.View()
	return &view, nil
}

// reserveLeague serializes StartDraft per league without blocking other leagues.
func (a *App) reserveLeague(leagueID uuid.UUID) (func(), error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.byLeague[leagueID]; ok && !s.Completed() {
		return nil, fmt.Errorf("%w: league %s already has draft %s in progress", ErrState, leagueID, s.ID())
	}
	if a.starting[leagueID] {
		return nil, fmt.Errorf("%w: league %s draft is already starting", ErrState, leagueID)
	}
	a.starting[leagueID] = true

	return func() {
		a.mu.Lock()
		delete(a.starting, leagueID)
		a.mu.Unlock()
	}, nil
}

func (a *App) register(s *Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byLeague[s.LeagueID()] = s
	a.byID[s.ID()] = s
}

func (a *App) session(draftID uuid.UUID) (*Session, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.byID[draftID]
	if !ok {
		return nil, fmt.Errorf("%w: draft %s", ErrNotFound, draftID)
	}
	return s, nil
}

func (a *App) loadQueue(ctx context.Context, leagueID uuid.UUID, resolved []uuid.UUID) (*ItemQueue, error) {
	catalog, err := a.repo.ListCatalogItems(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load catalog: %w", ErrInfrastructure, err)
	}
	assigned, err := a.repo.ListAssignedItemIDs(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load roster assignments: %w", ErrInfrastructure, err)
	}
	return NewItemQueue(catalog, assigned, resolved), nil
}

func (a *App) authorizeCommissioner(ctx context.Context, leagueID, requesterID uuid.UUID) error {
	league, err := a.repo.GetLeague(ctx, leagueID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: failed to load league: %w", ErrInfrastructure, err)
	}
	if league.CommissionerID != requesterID {
		return fmt.Errorf("%w: user %s is not the commissioner of league %s", ErrAuthorization, requesterID, leagueID)
	}
	return nil
}

// GetDraft returns the league's most recent session, or nil when it never started one.
// Sessions this process is not running, such as drafts completed before a restart, are read
// from the store.
func (a *App) GetDraft(ctx context.Context, leagueID uuid.UUID) (*models.DraftSessionView, error) {
	a.mu.RLock()
	s, ok := a.byLeague[leagueID]
	a.mu.RUnlock()
	if ok {
		view := s.View()
		return &view, nil
	}

	state, err := a.repo.GetLatestSession(ctx, leagueID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to load draft: %w", ErrInfrastructure, err)
	}
	return a.persistedView(ctx, *state)
}

// GetDraftByID returns the snapshot of a session.
func (a *App) GetDraftByID(ctx context.Context, draftID uuid.UUID) (*models.DraftSessionView, error) {
	if s, err := a.session(draftID); err == nil {
		view := s.View()
		return &view, nil
	}

	state, err := a.repo.GetSession(ctx, draftID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to load draft: %w", ErrInfrastructure, err)
	}
	return a.persistedView(ctx, *state)
}

// persistedView builds a snapshot from a stored session row.
func (a *App) persistedView(ctx context.Context, state models.DraftSession) (*models.DraftSessionView, error) {
	view := &models.DraftSessionView{
		ID:             state.ID,
		LeagueID:       state.LeagueID,
		Status:         state.Status,
		Paused:         state.Paused,
		CurrentBid:     state.CurrentBid,
		TimerRemaining: state.TimerRemaining,
		Seq:            state.Seq,
		ItemsResolved:  len(state.ResolvedItemIDs),
		UpdatedAt:      state.UpdatedAt,
	}
	if state.Status == models.DraftStatusCompleted {
		return view, nil
	}

	queue, err := a.loadQueue(ctx, state.LeagueID, state.ResolvedItemIDs)
	if err != nil {
		return nil, err
	}
	view.ItemsRemaining = queue.Len()
	if state.CurrentItemID != nil {
		if item, ok := queue.Remove(*state.CurrentItemID); ok {
			view.CurrentItem = item
		}
	}
	if state.CurrentBidderID != nil {
		member, err := a.repo.GetMember(ctx, state.LeagueID, *state.CurrentBidderID)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to load high bidder: %w", ErrInfrastructure, err)
		}
		view.CurrentBidder = &models.Bidder{ID: member.UserID, TeamID: member.ID, TeamName: member.TeamName}
	}
	return view, nil
}

// PlaceBid submits a bid to the draft's coordinator.
func (a *App) PlaceBid(ctx context.Context, draftID uuid.UUID, req PlaceBidRequest) (*models.DraftSessionView, error) {
	s, err := a.session(draftID)
	if err != nil {
		return nil, err
	}
	if err := s.PlaceBid(ctx, req); err != nil {
		return nil, err
	}
	view := s.View()
	return &view, nil
}

// ForceSell closes bidding now and sells to the high bidder, if any.
func (a *App) ForceSell(ctx context.Context, draftID, requesterID uuid.UUID) (*models.DraftSessionView, error) {
	return a.commissionerAction(ctx, draftID, requesterID, func(s *Session) error {
		return s.Resolve(ctx, TriggerForceSell)
	})
}

// ForceUnsold closes bidding now and passes on the item regardless of bids.
func (a *App) ForceUnsold(ctx context.Context, draftID, requesterID uuid.UUID) (*models.DraftSessionView, error) {
	return a.commissionerAction(ctx, draftID, requesterID, func(s *Session) error {
		return s.Resolve(ctx, TriggerForceUnsold)
	})
}

// StopDraft freezes the countdown.
func (a *App) StopDraft(ctx context.Context, draftID, requesterID uuid.UUID) (*models.DraftSessionView, error) {
	return a.commissionerAction(ctx, draftID, requesterID, func(s *Session) error {
		return s.Stop(ctx)
	})
}

// ResumeDraft restarts a stopped countdown.
func (a *App) ResumeDraft(ctx context.Context, draftID, requesterID uuid.UUID) (*models.DraftSessionView, error) {
	return a.commissionerAction(ctx, draftID, requesterID, func(s *Session) error {
		return s.Resume(ctx)
	})
}

func (a *App) commissionerAction(ctx context.Context, draftID, requesterID uuid.UUID, fn func(s *Session) error) (*models.DraftSessionView, error) {
	s, err := a.session(draftID)
	if err != nil {
		return nil, err
	}
	if err := a.authorizeCommissioner(ctx, s.LeagueID(), requesterID); err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	view := s.View()
	return &view, nil
}

// Recover reloads every persisted session that has not completed and resumes it. Time that
// passed while the process was down counts against the open item's countdown.
func (a *App) Recover(ctx context.Context) error {
	sessions, err := a.repo.ListActiveSessions(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to list active drafts: %w", ErrInfrastructure, err)
	}

	for _, state := range sessions {
		if _, err := a.session(state.ID); err == nil {
			continue
		}
		s, err := a.restore(ctx, state)
		if err != nil {
			log.Error().
				Err(err).
				Str("draft_id", state.ID.String()).
				Str("league_id", state.LeagueID.String()).
				Msg("failed to recover draft")
			continue
		}
		a.register(s)
		log.Info().
			Str("draft_id", state.ID.String()).
			Str("league_id", state.LeagueID.String()).
			Bool("paused", state.Paused).
			Int("items_resolved", len(state.ResolvedItemIDs)).
			Msg("recovered draft")
	}
	return nil
}

func (a *App) restore(ctx context.Context, state models.DraftSession) (*Session, error) {
	if state.Status != models.DraftStatusItemOpen || state.CurrentItemID == nil {
		return nil, fmt.Errorf("%w: cannot resume draft in status %s", ErrState, state.Status)
	}

	queue, err := a.loadQueue(ctx, state.LeagueID, state.ResolvedItemIDs)
	if err != nil {
		return nil, err
	}
	item, ok := queue.Remove(*state.CurrentItemID)
	if !ok {
		return nil, fmt.Errorf("%w: open item %s is no longer available", ErrState, *state.CurrentItemID)
	}

	s := newSession(a.sessionConfig(), state, queue)
	s.current = item
	if state.CurrentBidderID != nil {
		member, err := a.repo.GetMember(ctx, state.LeagueID, *state.CurrentBidderID)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to load high bidder: %w", ErrInfrastructure, err)
		}
		s.bidder = member
	}

	if !state.Paused {
		elapsed := int(a.clock.Since(state.UpdatedAt) / time.Second)
		remaining := state.TimerRemaining - elapsed
		if remaining > 0 {
			s.epoch = s.timer.Start(remaining)
		} else {
			// The countdown ran out while we were down.
			s.timer.Stop()
			s.epoch = s.timer.Epoch()
			epoch := s.epoch
			defer s.onTimerExpired(epoch)
		}
	}
	s.storeView()
	go s.run()
	return s, nil
}

// Shutdown stops every session's command loop. Persisted state is left for Recover.
func (a *App) Shutdown() {
	a.mu.Lock()
	sessions := make([]*Session, 0, len(a.byID))
	for _, s := range a.byID {
		sessions = append(sessions, s)
	}
	a.mu.Unlock()

	for _, s := range sessions {
		s.shutdown()
	}
}
