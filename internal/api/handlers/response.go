package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Harshitk-cp/kindred/internal/service"
)

type ResponseHandler struct {
	personas *service.PersonaService
	tracker  *service.ResponseTracker
}

func NewResponseHandler(personas *service.PersonaService, tracker *service.ResponseTracker) *ResponseHandler {
	return &ResponseHandler{personas: personas, tracker: tracker}
}

type availableRequest struct {
	Candidates []string `json:"candidates"`
}

type availableResponse struct {
	Available []string `json:"available"`
}

type recordRequest struct {
	Text      string     `json:"text"`
	EmittedAt *time.Time `json:"emitted_at,omitempty"`
}

type recordResponse struct {
	Persisted bool `json:"persisted"`
}

// Available filters candidates against the caller's dedup window. The
// result is never empty.
func (h *ResponseHandler) Available(w http.ResponseWriter, r *http.Request) {
	caller, persona, ok := personaScope(w, r, h.personas)
	if !ok {
		return
	}

	var req availableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	available := h.tracker.Available(r.Context(), req.Candidates, persona.ID, caller.UserID)
	writeJSON(w, http.StatusOK, availableResponse{Available: available})
}

func (h *ResponseHandler) Record(w http.ResponseWriter, r *http.Request) {
	caller, persona, ok := personaScope(w, r, h.personas)
	if !ok {
		return
	}

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	at := time.Now()
	if req.EmittedAt != nil {
		at = *req.EmittedAt
	}

	persisted := h.tracker.Record(r.Context(), req.Text, persona.ID, caller.UserID, at)
	writeJSON(w, http.StatusCreated, recordResponse{Persisted: persisted})
}
