package draft

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctiondraft/go/internal/draft/events"
	"github.com/mcdev12/auctiondraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Session is the single writer for one league's auction. Every mutation, whether it comes
// from a bid, a commissioner command or the countdown, runs as a command on the session's
// own goroutine, so the accept/reject decision is always made against the state that is
// about to change.
type Session struct {
	repo          Repository
	broadcaster   Broadcaster
	snapshots     SnapshotPublisher
	clock         clockwork.Clock
	commitTimeout time.Duration

	cmds     chan command
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
	closeErr error

	// Owned by the run loop.
	state   models.DraftSession
	current *models.Item
	bidder  *models.Participant
	queue   *ItemQueue
	timer   *Timer
	epoch   uint64

	view atomic.Pointer[sessionSnapshot]
}

type command struct {
	ctx   context.Context
	fn    func(ctx context.Context) error
	reply chan error
}

// sessionSnapshot is an immutable copy of the session published after each transition.
type sessionSnapshot struct {
	state     models.DraftSession
	item      *models.Item
	bidder    *models.Participant
	remaining int
}

type sessionConfig struct {
	repo          Repository
	broadcaster   Broadcaster
	snapshots     SnapshotPublisher
	clock         clockwork.Clock
	commitTimeout time.Duration
	bufferSize    int
}

func newSession(cfg sessionConfig, state models.DraftSession, queue *ItemQueue) *Session {
	s := &Session{
		repo:          cfg.repo,
		broadcaster:   cfg.broadcaster,
		snapshots:     cfg.snapshots,
		clock:         cfg.clock,
		commitTimeout: cfg.commitTimeout,
		cmds:          make(chan command, cfg.bufferSize),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
		state:         state,
		queue:         queue,
	}
	s.timer = NewTimer(state.ID, cfg.clock, state.Settings.TimerRestartLimit, TimerHooks{
		Expire: s.onTimerExpired,
		Fail:   s.onTimerFailed,
	})
	s.storeView()
	return s
}

// ID returns the draft session ID.
func (s *Session) ID() uuid.UUID {
	return s.view.Load().state.ID
}

// LeagueID returns the league the session belongs to.
func (s *Session) LeagueID() uuid.UUID {
	return s.view.Load().state.LeagueID
}

// Completed reports whether the session reached its terminal state.
func (s *Session) Completed() bool {
	return s.view.Load().state.Status == models.DraftStatusCompleted
}

// View returns a consistent snapshot of the session for observers.
func (s *Session) View() models.DraftSessionView {
	snap := s.view.Load()
	st := snap.state

	v := models.DraftSessionView{
		ID:             st.ID,
		LeagueID:       st.LeagueID,
		Status:         st.Status,
		Paused:         st.Paused,
		CurrentBid:     st.CurrentBid,
		TimerRemaining: st.TimerRemaining,
		Seq:            st.Seq,
		ItemsResolved:  len(st.ResolvedItemIDs),
		ItemsRemaining: snap.remaining,
		UpdatedAt:      st.UpdatedAt,
	}
	if snap.item != nil {
		item := *snap.item
		v.CurrentItem = &item
	}
	if snap.bidder != nil && st.CurrentBidderID != nil {
		v.CurrentBidder = &models.Bidder{
			ID:       *st.CurrentBidderID,
			TeamID:   snap.bidder.ID,
			TeamName: snap.bidder.TeamName,
		}
	}
	if st.Status == models.DraftStatusItemOpen && !st.Paused {
		v.TimerRemaining = s.timer.Remaining()
	}
	return v
}

func (s *Session) storeView() {
	snap := &sessionSnapshot{
		state:  s.state.Clone(),
		bidder: s.bidder,
	}
	if s.current != nil {
		item := *s.current
		snap.item = &item
	}
	if s.queue != nil {
		snap.remaining = s.queue.Len()
		if s.current != nil {
			snap.remaining++
		}
	}
	s.view.Store(snap)
}

// run is the session's command loop. It exits once the draft completes or on shutdown.
func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			s.timer.Stop()
			s.closeErr = fmt.Errorf("%w: draft %s is shutting down", ErrInfrastructure, s.state.ID)
			return
		case cmd := <-s.cmds:
			cmd.reply <- cmd.fn(cmd.ctx)
			if s.state.Status == models.DraftStatusCompleted {
				s.timer.Stop()
				s.closeErr = fmt.Errorf("%w: draft %s is completed", ErrState, s.state.ID)
				return
			}
		}
	}
}

// shutdown stops the command loop without touching persisted state.
func (s *Session) shutdown() {
	s.quitOnce.Do(func() { close(s.quit) })
	<-s.done
}

// do runs fn inside the session's critical section and waits for its result.
func (s *Session) do(ctx context.Context, fn func(ctx context.Context) error) error {
	cmd := command{ctx: ctx, fn: fn, reply: make(chan error, 1)}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return s.closeErr
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-s.done:
		// The command may be the one that completed the draft.
		select {
		case err := <-cmd.reply:
			return err
		default:
			return s.closeErr
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// submit enqueues a command raised by the session itself (timer expiry or failure).
func (s *Session) submit(name string, fn func(ctx context.Context) error) {
	go func() {
		if err := s.do(context.Background(), fn); err != nil && !errors.Is(err, ErrState) {
			log.Error().
				Err(err).
				Str("draft_id", s.ID().String()).
				Str("command", name).
				Msg("session command failed")
		}
	}()
}

func (s *Session) onTimerExpired(epoch uint64) {
	s.submit("timer_expired", func(ctx context.Context) error {
		return s.resolve(ctx, TriggerTimerExpired, epoch)
	})
}

func (s *Session) onTimerFailed(epoch uint64, cause error) {
	s.submit("timer_failed", func(ctx context.Context) error {
		if epoch != s.epoch || s.state.Paused || s.state.Status != models.DraftStatusItemOpen {
			return nil
		}
		log.Error().
			Err(cause).
			Str("draft_id", s.state.ID.String()).
			Msg("countdown failed; stopping draft until the commissioner resumes it")
		return s.stop(ctx)
	})
}

// commitCtx detaches a command from its caller: once inside the critical section a
// transition runs to completion even if the client goes away.
func (s *Session) commitCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.commitTimeout)
}

func (s *Session) window() int {
	return s.state.Settings.ResetWindowSec
}

func (s *Session) envelopes(st *models.DraftSession, evs ...events.Event) ([]events.Envelope, error) {
	now := s.clock.Now()
	envs := make([]events.Envelope, 0, len(evs))
	for _, ev := range evs {
		st.Seq++
		env, err := events.NewEnvelope(st.ID, st.LeagueID, st.Seq, now, ev)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// publish hands committed events and the fresh snapshot to observers. Neither call may block.
func (s *Session) publish(envs []events.Envelope) {
	s.storeView()
	if s.broadcaster != nil && len(envs) > 0 {
		s.broadcaster.Broadcast(envs)
	}
	if s.snapshots != nil {
		s.snapshots.PublishSnapshot(context.Background(), s.View())
	}
}

// start opens the first item. Runs inside the critical section.
func (s *Session) start(ctx context.Context) error {
	if s.state.Status != models.DraftStatusIdle {
		return fmt.Errorf("%w: draft is %s", ErrState, s.state.Status)
	}
	item, ok := s.queue.Peek()
	if !ok {
		return fmt.Errorf("%w: league %s has no items left to auction", ErrEmptyCatalog, s.state.LeagueID)
	}

	now := s.clock.Now()
	next := s.state.Clone()
	next.Status = models.DraftStatusItemOpen
	next.CurrentItemID = &item.ID
	next.CurrentBid = item.BasePrice
	next.CurrentBidderID = nil
	next.CurrentBidderTeamID = nil
	next.TimerRemaining = s.window()
	next.CreatedAt = now
	next.UpdatedAt = now

	envs, err := s.envelopes(&next, events.DraftStartedPayload{
		DraftID:        next.ID.String(),
		CurrentItem:    itemInfo(item),
		CurrentBid:     next.CurrentBid,
		TimerRemaining: next.TimerRemaining,
	})
	if err != nil {
		return err
	}

	cctx, cancel := s.commitCtx(ctx)
	defer cancel()
	if _, err := s.repo.Commit(cctx, Transition{Session: next, Events: envs}); err != nil {
		return fmt.Errorf("%w: failed to persist draft start: %w", ErrInfrastructure, err)
	}

	s.queue.Next()
	s.state = next
	s.current = item
	s.bidder = nil
	s.epoch = s.timer.Start(next.TimerRemaining)
	s.publish(envs)

	log.Info().
		Str("draft_id", next.ID.String()).
		Str("league_id", next.LeagueID.String()).
		Str("item_id", item.ID.String()).
		Float64("base_price", item.BasePrice).
		Msg("draft started")
	return nil
}

// placeBid applies a validated bid. Runs inside the critical section.
func (s *Session) placeBid(ctx context.Context, req PlaceBidRequest) error {
	check := BidCheck{
		Session: s.state,
		Item:    s.current,
		Amount:  req.Amount,
		SeenBid: req.SeenBid,
	}
	if s.state.Status == models.DraftStatusItemOpen && !s.state.Paused {
		bidder, err := s.lookupBidder(ctx, req.BidderID)
		if err != nil {
			return err
		}
		check.Bidder = bidder
	}
	if err := ValidateBid(check); err != nil {
		return err
	}
	bidder := check.Bidder

	next := s.state.Clone()
	next.CurrentBid = req.Amount
	next.CurrentBidderID = &req.BidderID
	next.CurrentBidderTeamID = &bidder.ID
	next.TimerRemaining = s.window()
	next.UpdatedAt = s.clock.Now()

	envs, err := s.envelopes(&next, events.BidPlacedPayload{
		Amount:         req.Amount,
		Bidder:         events.BidderInfo{ID: bidder.ID.String(), TeamName: bidder.TeamName},
		TimerRemaining: next.TimerRemaining,
	})
	if err != nil {
		return err
	}

	cctx, cancel := s.commitCtx(ctx)
	defer cancel()
	if _, err := s.repo.Commit(cctx, Transition{Session: next, Events: envs}); err != nil {
		return fmt.Errorf("%w: failed to persist bid: %w", ErrInfrastructure, err)
	}

	s.state = next
	s.bidder = bidder
	s.epoch = s.timer.Start(next.TimerRemaining)
	s.publish(envs)

	log.Debug().
		Str("draft_id", next.ID.String()).
		Str("team_id", bidder.ID.String()).
		Float64("amount", req.Amount).
		Msg("bid accepted")
	return nil
}

// lookupBidder resolves the user to their team in this league with a live budget.
// A non-member yields a nil participant so the validator can reject it.
func (s *Session) lookupBidder(ctx context.Context, userID uuid.UUID) (*models.Participant, error) {
	member, err := s.repo.GetMember(ctx, s.state.LeagueID, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to look up bidder: %w", ErrInfrastructure, err)
	}
	budget, err := s.repo.GetBudget(ctx, member.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read bidder budget: %w", ErrInfrastructure, err)
	}
	member.BudgetRemaining = budget
	return member, nil
}

// resolve closes bidding on the current item and opens the next one. Runs inside the
// critical section.
func (s *Session) resolve(ctx context.Context, trigger Trigger, epoch uint64) error {
	if s.state.Status != models.DraftStatusItemOpen || s.current == nil {
		return fmt.Errorf("%w: no open item to resolve, draft is %s", ErrState, s.state.Status)
	}
	if trigger == TriggerTimerExpired && (epoch != s.epoch || s.state.Paused) {
		log.Debug().
			Str("draft_id", s.state.ID.String()).
			Uint64("epoch", epoch).
			Uint64("current_epoch", s.epoch).
			Msg("ignoring stale timer expiry")
		return nil
	}

	prev := s.state.Clone()
	remaining := s.timer.Stop()
	s.state.Status = models.DraftStatusResolving
	item := s.current

	cctx, cancel := s.commitCtx(ctx)
	defer cancel()

	var sale *Sale
	var budgetAfter float64
	if s.state.CurrentBidderTeamID != nil && trigger != TriggerForceUnsold {
		teamID := *s.state.CurrentBidderTeamID
		budget, err := s.repo.GetBudget(cctx, teamID)
		if err != nil {
			return s.abortResolution(prev, trigger, remaining, err)
		}
		if budget >= s.state.CurrentBid {
			sale = &Sale{ItemID: item.ID, TeamID: teamID, Amount: s.state.CurrentBid}
			budgetAfter = budget - s.state.CurrentBid
		} else {
			s.logBudgetConflict(item, teamID, budget)
		}
	}

	next, envs, committed, err := s.commitResolution(cctx, prev, item, sale, budgetAfter)
	if sale != nil && errors.Is(err, ErrBudget) {
		s.logBudgetConflict(item, sale.TeamID, -1)
		sale = nil
		next, envs, committed, err = s.commitResolution(cctx, prev, item, nil, 0)
	}
	if err != nil {
		return s.abortResolution(prev, trigger, remaining, err)
	}

	s.state = next
	s.bidder = nil
	if sale != nil {
		item.Sold = true
		item.OwnerTeamID = &sale.TeamID
		item.SoldPrice = &sale.Amount
		log.Info().
			Str("draft_id", next.ID.String()).
			Str("item_id", item.ID.String()).
			Str("team_id", sale.TeamID.String()).
			Float64("amount", sale.Amount).
			Float64("budget_after", committed.BudgetAfter).
			Str("trigger", string(trigger)).
			Msg("item sold")
	} else {
		log.Info().
			Str("draft_id", next.ID.String()).
			Str("item_id", item.ID.String()).
			Str("trigger", string(trigger)).
			Msg("item unsold")
	}

	if nextItem, ok := s.queue.Next(); ok {
		s.current = nextItem
		s.epoch = s.timer.Start(next.TimerRemaining)
	} else {
		s.current = nil
		s.timer.Stop()
		log.Info().
			Str("draft_id", next.ID.String()).
			Int("items_resolved", len(next.ResolvedItemIDs)).
			Msg("draft completed")
	}
	s.publish(envs)
	return nil
}

// commitResolution builds and persists the transition out of the current item.
func (s *Session) commitResolution(ctx context.Context, prev models.DraftSession, item *models.Item, sale *Sale, budgetAfter float64) (models.DraftSession, []events.Envelope, *Committed, error) {
	now := s.clock.Now()
	next := prev.Clone()
	next.ResolvedItemIDs = append(next.ResolvedItemIDs, item.ID)
	next.CurrentBidderID = nil
	next.CurrentBidderTeamID = nil
	next.Paused = false
	next.UpdatedAt = now

	nextItem, hasNext := s.queue.Peek()
	var nextInfo *events.ItemInfo
	var newBid float64
	if hasNext {
		info := itemInfo(nextItem)
		nextInfo = &info
		newBid = nextItem.BasePrice
		next.Status = models.DraftStatusItemOpen
		next.CurrentItemID = &nextItem.ID
		next.CurrentBid = nextItem.BasePrice
		next.TimerRemaining = s.window()
	} else {
		next.Status = models.DraftStatusCompleted
		next.CurrentItemID = nil
		next.CurrentBid = 0
		next.TimerRemaining = 0
		next.CompletedAt = &now
	}

	var outcome events.Event
	tr := Transition{Sale: sale}
	if sale != nil {
		outcome = events.ItemSoldPayload{
			ItemID:          item.ID.String(),
			SoldTo:          sale.TeamID.String(),
			Amount:          sale.Amount,
			BudgetRemaining: budgetAfter,
			NextItem:        nextInfo,
			NewBid:          newBid,
		}
	} else {
		id := item.ID
		tr.UnsoldItemID = &id
		outcome = events.ItemUnsoldPayload{
			ItemID:   item.ID.String(),
			NextItem: nextInfo,
			NewBid:   newBid,
		}
	}
	evs := []events.Event{outcome}
	if !hasNext {
		evs = append(evs, events.DraftCompletedPayload{DraftID: next.ID.String()})
	}

	envs, err := s.envelopes(&next, evs...)
	if err != nil {
		return next, nil, nil, err
	}
	tr.Session = next
	tr.Events = envs

	committed, err := s.repo.Commit(ctx, tr)
	if err != nil {
		return next, nil, nil, err
	}
	return next, envs, committed, nil
}

// abortResolution puts the item back on the block after an infrastructure failure. A timer
// triggered resolution is retried a second later instead of stalling.
func (s *Session) abortResolution(prev models.DraftSession, trigger Trigger, remaining int, cause error) error {
	s.state = prev
	if !prev.Paused {
		if trigger == TriggerTimerExpired || remaining < 1 {
			remaining = 1
		}
		s.epoch = s.timer.Start(remaining)
	}
	log.Error().
		Err(cause).
		Str("draft_id", prev.ID.String()).
		Str("trigger", string(trigger)).
		Msg("failed to resolve item")
	return fmt.Errorf("%w: failed to resolve item: %w", ErrInfrastructure, cause)
}

func (s *Session) logBudgetConflict(item *models.Item, teamID uuid.UUID, budget float64) {
	ev := log.Warn().
		Str("draft_id", s.state.ID.String()).
		Str("item_id", item.ID.String()).
		Str("team_id", teamID.String()).
		Float64("bid", s.state.CurrentBid)
	if budget >= 0 {
		ev = ev.Float64("budget", budget)
	}
	ev.Msg("budget conflict at resolution; item goes unsold")
}

// stop freezes the countdown without resolving anything. Runs inside the critical section.
func (s *Session) stop(ctx context.Context) error {
	if s.state.Status == models.DraftStatusCompleted {
		return fmt.Errorf("%w: draft is completed", ErrState)
	}
	if s.state.Paused {
		return fmt.Errorf("%w: draft is already stopped", ErrState)
	}

	remaining := s.timer.Stop()
	next := s.state.Clone()
	next.Paused = true
	next.TimerRemaining = remaining
	next.UpdatedAt = s.clock.Now()

	envs, err := s.envelopes(&next, events.DraftStoppedPayload{
		DraftID:        next.ID.String(),
		TimerRemaining: remaining,
	})
	if err != nil {
		return err
	}

	cctx, cancel := s.commitCtx(ctx)
	defer cancel()
	if _, err := s.repo.Commit(cctx, Transition{Session: next, Events: envs}); err != nil {
		if s.current != nil {
			s.epoch = s.timer.Start(remaining)
		}
		return fmt.Errorf("%w: failed to persist draft stop: %w", ErrInfrastructure, err)
	}

	s.state = next
	s.publish(envs)
	log.Info().Str("draft_id", next.ID.String()).Int("timer_remaining", remaining).Msg("draft stopped")
	return nil
}

// resume restarts the countdown from where stop froze it. Runs inside the critical section.
func (s *Session) resume(ctx context.Context) error {
	if !s.state.Paused {
		return fmt.Errorf("%w: draft is not stopped", ErrState)
	}

	next := s.state.Clone()
	next.Paused = false
	if next.TimerRemaining < 1 {
		next.TimerRemaining = 1
	}
	next.UpdatedAt = s.clock.Now()

	envs, err := s.envelopes(&next, events.DraftResumedPayload{
		DraftID:        next.ID.String(),
		TimerRemaining: next.TimerRemaining,
	})
	if err != nil {
		return err
	}

	cctx, cancel := s.commitCtx(ctx)
	defer cancel()
	if _, err := s.repo.Commit(cctx, Transition{Session: next, Events: envs}); err != nil {
		return fmt.Errorf("%w: failed to persist draft resume: %w", ErrInfrastructure, err)
	}

	s.state = next
	s.epoch = s.timer.Start(next.TimerRemaining)
	s.publish(envs)
	log.Info().Str("draft_id", next.ID.String()).Int("timer_remaining", next.TimerRemaining).Msg("draft resumed")
	return nil
}

// PlaceBid submits a bid and waits for the verdict.
func (s *Session) PlaceBid(ctx context.Context, req PlaceBidRequest) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.placeBid(ctx, req)
	})
}

// Resolve force-resolves the current item. Authorization is the caller's job.
func (s *Session) Resolve(ctx context.Context, trigger Trigger) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.resolve(ctx, trigger, 0)
	})
}

// Stop freezes the draft.
func (s *Session) Stop(ctx context.Context) error {
	return s.do(ctx, s.stop)
}

// Resume unfreezes the draft.
func (s *Session) Resume(ctx context.Context) error {
	return s.do(ctx, s.resume)
}

func itemInfo(item *models.Item) events.ItemInfo {
	return events.ItemInfo{
		ID:        item.ID.String(),
		Name:      item.Name,
		Role:      item.Role,
		Team:      item.GroupTag,
		BasePrice: item.BasePrice,
	}
}
