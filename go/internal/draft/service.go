package draft

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcdev12/auctiondraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// DraftApp defines what the service layer needs from the draft application
type DraftApp interface {
	StartDraft(ctx context.Context, leagueID, requesterID uuid.UUID) (*models.DraftSessionView, error)
	GetDraft(ctx context.Context, leagueID uuid.UUID) (*models.DraftSessionView, error)
	GetDraftByID(ctx context.Context, draftID uuid.UUID) (*models.DraftSessionView, error)
	PlaceBid(ctx context.Context, draftID uuid.UUID, req PlaceBidRequest) (*models.DraftSessionView, error)
	ForceSell(ctx context.Context, draftID, requesterID uuid.UUID) (*models.DraftSessionView, error)
	ForceUnsold(ctx context.Context, draftID, requesterID uuid.UUID) (*models.DraftSessionView, error)
	StopDraft(ctx context.Context, draftID, requesterID uuid.UUID) (*models.DraftSessionView, error)
	ResumeDraft(ctx context.Context, draftID, requesterID uuid.UUID) (*models.DraftSessionView, error)
}

// Service exposes the draft app over HTTP JSON
type Service struct {
	app DraftApp
}

// NewService creates a new draft HTTP service
func NewService(app DraftApp) *Service {
	return &Service{app: app}
}

// Verify that App satisfies what the service needs
var _ DraftApp = (*App)(nil)

type commissionerRequest struct {
	RequesterID uuid.UUID `json:"requester_id"`
}

type draftResponse struct {
	Draft *models.DraftSessionView `json:"draft"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RegisterRoutes mounts the draft API on r.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/leagues/{leagueId}/draft", s.GetDraft).Methods(http.MethodGet)
	r.HandleFunc("/api/leagues/{leagueId}/draft/start", s.StartDraft).Methods(http.MethodPost)
	r.HandleFunc("/api/drafts/{draftId}/state", s.GetDraftState).Methods(http.MethodGet)
	r.HandleFunc("/api/drafts/{draftId}/bids", s.PlaceBid).Methods(http.MethodPost)
	r.HandleFunc("/api/drafts/{draftId}/sell", s.commissionerHandler(s.app.ForceSell)).Methods(http.MethodPost)
	r.HandleFunc("/api/drafts/{draftId}/unsold", s.commissionerHandler(s.app.ForceUnsold)).Methods(http.MethodPost)
	r.HandleFunc("/api/drafts/{draftId}/stop", s.commissionerHandler(s.app.StopDraft)).Methods(http.MethodPost)
	r.HandleFunc("/api/drafts/{draftId}/resume", s.commissionerHandler(s.app.ResumeDraft)).Methods(http.MethodPost)
}

// GetDraft handles GET /api/leagues/{leagueId}/draft
func (s *Service) GetDraft(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := pathID(w, r, "leagueId")
	if !ok {
		return
	}
	view, err := s.app.GetDraft(r.Context(), leagueID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draftResponse{Draft: view})
}

// StartDraft handles POST /api/leagues/{leagueId}/draft/start
func (s *Service) StartDraft(w http.ResponseWriter, r *http.Request) {
	leagueID, ok := pathID(w, r, "leagueId")
	if !ok {
		return
	}
	var req commissionerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := s.app.StartDraft(r.Context(), leagueID, req.RequesterID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, draftResponse{Draft: view})
}

// GetDraftState handles GET /api/drafts/{draftId}/state
func (s *Service) GetDraftState(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathID(w, r, "draftId")
	if !ok {
		return
	}
	view, err := s.app.GetDraftByID(r.Context(), draftID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draftResponse{Draft: view})
}

// PlaceBid handles POST /api/drafts/{draftId}/bids
func (s *Service) PlaceBid(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathID(w, r, "draftId")
	if !ok {
		return
	}
	var req PlaceBidRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := s.app.PlaceBid(r.Context(), draftID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draftResponse{Draft: view})
}

func (s *Service) commissionerHandler(action func(ctx context.Context, draftID, requesterID uuid.UUID) (*models.DraftSessionView, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID, ok := pathID(w, r, "draftId")
		if !ok {
			return
		}
		var req commissionerRequest
		if !decodeBody(w, r, &req) {
			return
		}
		view, err := action(r.Context(), draftID, req.RequesterID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, draftResponse{Draft: view})
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name, Code: "invalid_argument"})
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error(), Code: "invalid_argument"})
		return false
	}
	return true
}

// statusFor maps an engine error kind to its HTTP status and wire code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden, "authorization"
	case errors.Is(err, ErrBudget):
		return http.StatusBadRequest, "budget"
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, ErrConcurrency):
		return http.StatusConflict, "concurrency"
	case errors.Is(err, ErrState):
		return http.StatusConflict, "state"
	case errors.Is(err, ErrEmptyCatalog):
		return http.StatusNotFound, "empty_catalog"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("draft request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
