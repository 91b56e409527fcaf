package gateway

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mcdev12/auctiondraft/go/internal/draft"
	"github.com/mcdev12/auctiondraft/go/internal/draft/snapshot"
	"github.com/mcdev12/auctiondraft/go/internal/models"
)

// StateProvider returns draft views. *draft.App satisfies it when the gateway runs in the
// coordinator's process; CacheStateProvider serves a standalone gateway.
type StateProvider interface {
	// GetDraft returns the league's latest draft, or nil when it has none.
	GetDraft(ctx context.Context, leagueID uuid.UUID) (*models.DraftSessionView, error)
	// GetDraftByID returns draft.ErrNotFound for an unknown draft.
	GetDraftByID(ctx context.Context, draftID uuid.UUID) (*models.DraftSessionView, error)
}

var (
	_ StateProvider = (*draft.App)(nil)
	_ StateProvider = (*CacheStateProvider)(nil)
)

type snapshotReader interface {
	GetLeagueDraft(ctx context.Context, leagueID uuid.UUID) (*models.DraftSessionView, error)
	GetDraft(ctx context.Context, draftID uuid.UUID) (*models.DraftSessionView, error)
}

// CacheStateProvider reads the views the coordinator mirrors into Redis.
type CacheStateProvider struct {
	cache snapshotReader
}

func NewCacheStateProvider(cache *snapshot.Cache) *CacheStateProvider {
	return &CacheStateProvider{cache: cache}
}

func (p *CacheStateProvider) GetDraft(ctx context.Context, leagueID uuid.UUID) (*models.DraftSessionView, error) {
	view, err := p.cache.GetLeagueDraft(ctx, leagueID)
	if errors.Is(err, snapshot.ErrNotFound) {
		return nil, nil
	}
	return view, err
}

func (p *CacheStateProvider) GetDraftByID(ctx context.Context, draftID uuid.UUID) (*models.DraftSessionView, error) {
	view, err := p.cache.GetDraft(ctx, draftID)
	if errors.Is(err, snapshot.ErrNotFound) {
		return nil, draft.ErrNotFound
	}
	return view, err
}
