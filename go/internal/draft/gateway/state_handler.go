package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctiondraft/go/internal/draft"
)

// StateHandler serves the read side of the draft API from a StateProvider, for gateways
// that do not host the coordinator.
type StateHandler struct {
	stateProvider StateProvider
}

func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
	}
}

// HandleGetLeagueDraft handles GET /api/leagues/{leagueId}/draft
func (h *StateHandler) HandleGetLeagueDraft(w http.ResponseWriter, r *http.Request) {
	leagueID, err := uuid.Parse(mux.Vars(r)["leagueId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid league ID format")
		return
	}

	view, err := h.stateProvider.GetDraft(r.Context(), leagueID)
	if err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to get league draft")
		writeError(w, http.StatusInternalServerError, "internal", "failed to get draft state")
		return
	}
	writeJSON(w, view)
}

// HandleGetDraftState handles GET /api/drafts/{draftId}/state
func (h *StateHandler) HandleGetDraftState(w http.ResponseWriter, r *http.Request) {
	draftID, err := uuid.Parse(mux.Vars(r)["draftId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid draft ID format")
		return
	}

	view, err := h.stateProvider.GetDraftByID(r.Context(), draftID)
	if errors.Is(err, draft.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "draft not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("failed to get draft state")
		writeError(w, http.StatusInternalServerError, "internal", "failed to get draft state")
		return
	}
	writeJSON(w, view)
}

// RegisterStateRoutes mirrors the read routes of the draft service.
func (h *StateHandler) RegisterStateRoutes(r *mux.Router) {
	r.HandleFunc("/api/leagues/{leagueId}/draft", h.HandleGetLeagueDraft).Methods(http.MethodGet)
	r.HandleFunc("/api/drafts/{draftId}/state", h.HandleGetDraftState).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, view any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"draft": view}); err != nil {
		log.Error().Err(err).Msg("failed to encode draft state response")
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
