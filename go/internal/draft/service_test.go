package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/auctiondraft/go/internal/models"
)

// stubApp answers every call with view or err and records the arguments it saw.
type stubApp struct {
	view *models.DraftSessionView
	err  error

	gotDraftID   uuid.UUID
	gotRequester uuid.UUID
	gotBid       PlaceBidRequest
}

func (s *stubApp) StartDraft(ctx context.Context, leagueID, requesterID uuid.UUID) (*models.DraftSessionView, error) {
	s.gotRequester = requesterID
	return s.view, s.err
}

func (s *stubApp) GetDraft(ctx context.Context, leagueID uuid.UUID) (*models.DraftSessionView, error) {
	return s.view, s.err
}

func (s *stubApp) GetDraftByID(ctx context.Context, draftID uuid.UUID) (*models.DraftSessionView, error) {
	s.gotDraftID = draftID
	return s.view, s.err
}

func (s *stubApp) PlaceBid(ctx context.Context, draftID uuid.UUID, req PlaceBidRequest) (*models.DraftSessionView, error) {
	s.gotDraftID = draftID
	s.gotBid = req
	return s.view, s.err
}

func (s *stubApp) action(ctx context.Context, draftID, requesterID uuid.UUID) (*models.DraftSessionView, error) {
	s.gotDraftID = draftID
	s.gotRequester = requesterID
	return s.view, s.err
}

func (s *stubApp) ForceSell(ctx context.Context, draftID, requesterID uuid.UUID) (*models.DraftSessionView, error) {
	return s.action(ctx, draftID, requesterID)
}

func (s *stubApp) ForceUnsold(ctx context.Context, draftID, requesterID uuid.UUID) (*models.DraftSessionView, error) {
	return s.action(ctx, draftID, requesterID)
}

func (s *stubApp) StopDraft(ctx context.Context, draftID, requesterID uuid.UUID) (*models.DraftSessionView, error) {
	return s.action(ctx, draftID, requesterID)
}

func (s *stubApp) ResumeDraft(ctx context.Context, draftID, requesterID uuid.UUID) (*models.DraftSessionView, error) {
	return s.action(ctx, draftID, requesterID)
}

func serve(app DraftApp, method, path, body string) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	NewService(app).RegisterRoutes(r)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestServiceMapsErrorKinds(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{ErrValidation, http.StatusBadRequest, "validation"},
		{ErrBudget, http.StatusBadRequest, "budget"},
		{ErrAuthorization, http.StatusForbidden, "authorization"},
		{ErrState, http.StatusConflict, "state"},
		{ErrConcurrency, http.StatusConflict, "concurrency"},
		{ErrEmptyCatalog, http.StatusNotFound, "empty_catalog"},
		{ErrNotFound, http.StatusNotFound, "not_found"},
		{ErrInfrastructure, http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			app := &stubApp{err: fmt.Errorf("%w: detail", tt.err)}
			rec := serve(app, http.MethodPost, "/api/drafts/"+uuid.NewString()+"/bids", `{"bidder_id":"`+uuid.NewString()+`","amount":5}`)

			assert.Equal(t, tt.status, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.Contains(t, body.Error, "detail")
		})
	}
}

func TestServicePlaceBid(t *testing.T) {
	draftID := uuid.New()
	bidder := uuid.New()
	app := &stubApp{view: &models.DraftSessionView{ID: draftID, CurrentBid: 21, Seq: 4}}

	rec := serve(app, http.MethodPost, "/api/drafts/"+draftID.String()+"/bids",
		`{"bidder_id":"`+bidder.String()+`","amount":21,"seen_bid":20}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, draftID, app.gotDraftID)
	assert.Equal(t, bidder, app.gotBid.BidderID)
	assert.Equal(t, 21.0, app.gotBid.Amount)
	require.NotNil(t, app.gotBid.SeenBid)
	assert.Equal(t, 20.0, *app.gotBid.SeenBid)

	var body draftResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Draft)
	assert.Equal(t, int64(4), body.Draft.Seq)
}

func TestServiceCommissionerRoutes(t *testing.T) {
	for _, action := range []string{"sell", "unsold", "stop", "resume"} {
		t.Run(action, func(t *testing.T) {
			draftID, requester := uuid.New(), uuid.New()
			app := &stubApp{view: &models.DraftSessionView{ID: draftID}}

			rec := serve(app, http.MethodPost, "/api/drafts/"+draftID.String()+"/"+action,
				`{"requester_id":"`+requester.String()+`"}`)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, draftID, app.gotDraftID)
			assert.Equal(t, requester, app.gotRequester)
		})
	}
}

func TestServiceStartDraftCreated(t *testing.T) {
	requester := uuid.New()
	app := &stubApp{view: &models.DraftSessionView{Status: models.DraftStatusItemOpen}}

	rec := serve(app, http.MethodPost, "/api/leagues/"+uuid.NewString()+"/draft/start",
		`{"requester_id":"`+requester.String()+`"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, requester, app.gotRequester)
}

func TestServiceGetDraftWithoutSession(t *testing.T) {
	rec := serve(&stubApp{}, http.MethodGet, "/api/leagues/"+uuid.NewString()+"/draft", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"draft":null}`, rec.Body.String())
}

func TestServiceRejectsBadInput(t *testing.T) {
	app := &stubApp{}

	rec := serve(app, http.MethodGet, "/api/drafts/not-a-uuid/state", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(app, http.MethodPost, "/api/drafts/"+uuid.NewString()+"/bids", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_argument")
}
