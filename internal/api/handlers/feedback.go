package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/Harshitk-cp/kindred/internal/service"
)

type FeedbackHandler struct {
	personas *service.PersonaService
	svc      *service.FeedbackService
}

func NewFeedbackHandler(personas *service.PersonaService, svc *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{personas: personas, svc: svc}
}

type createFeedbackRequest struct {
	Kind    string                 `json:"kind"`
	Payload domain.FeedbackPayload `json:"payload"`
}

func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, persona, ok := personaScope(w, r, h.personas)
	if !ok {
		return
	}

	var req createFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	feedback := &domain.Feedback{
		PersonaID: persona.ID,
		UserID:    caller.UserID,
		Kind:      domain.FeedbackKind(req.Kind),
		Payload:   req.Payload,
	}

	if err := h.svc.Create(r.Context(), feedback, caller.TenantID); err != nil {
		switch {
		case errors.Is(err, service.ErrFeedbackPersonaIDMissing),
			errors.Is(err, service.ErrFeedbackInvalidKind),
			errors.Is(err, service.ErrFeedbackInvalidRating):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPersonaNotFound):
			writeError(w, http.StatusNotFound, "persona not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create feedback")
		}
		return
	}

	writeJSON(w, http.StatusCreated, feedback)
}
