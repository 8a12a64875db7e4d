package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/kindred/internal/api/middleware"
	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/Harshitk-cp/kindred/internal/service"
)

type PersonaHandler struct {
	svc *service.PersonaService
}

func NewPersonaHandler(svc *service.PersonaService) *PersonaHandler {
	return &PersonaHandler{svc: svc}
}

type createPersonaRequest struct {
	Traits domain.PersonaTraits `json:"traits"`
}

func (h *PersonaHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createPersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	persona := &domain.Persona{
		TenantID: tenant.ID,
		Traits:   req.Traits,
	}

	if err := h.svc.Create(r.Context(), persona); err != nil {
		switch {
		case errors.Is(err, service.ErrPersonaNameMissing):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPersonaConflict):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create persona")
		}
		return
	}

	writeJSON(w, http.StatusCreated, persona)
}

func (h *PersonaHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	_, persona, ok := personaScope(w, r, h.svc)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, persona)
}
