package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/Harshitk-cp/kindred/internal/service"
)

type EvolutionHandler struct {
	personas *service.PersonaService
	svc      *service.EvolutionService
}

func NewEvolutionHandler(personas *service.PersonaService, svc *service.EvolutionService) *EvolutionHandler {
	return &EvolutionHandler{personas: personas, svc: svc}
}

type adjustmentsResponse struct {
	Adjustments *domain.PersonalityAdjustments `json:"adjustments"`
}

type refreshResponse struct {
	Adjustments     *domain.PersonalityAdjustments `json:"adjustments"`
	AdaptationScore float64                        `json:"adaptation_score"`
	Stage           domain.EvolutionStage          `json:"stage"`
	Snapshot        *domain.EvolutionSnapshot      `json:"snapshot,omitempty"`
}

func (h *EvolutionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	_, persona, ok := personaScope(w, r, h.personas)
	if !ok {
		return
	}

	state, err := h.svc.State(r.Context(), persona.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load evolution state")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// GetAdjustments returns null adjustments while there is no usable evidence.
func (h *EvolutionHandler) GetAdjustments(w http.ResponseWriter, r *http.Request) {
	_, persona, ok := personaScope(w, r, h.personas)
	if !ok {
		return
	}

	adj, err := h.svc.Adjustments(r.Context(), persona.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute adjustments")
		return
	}
	writeJSON(w, http.StatusOK, adjustmentsResponse{Adjustments: adj})
}

func (h *EvolutionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	_, persona, ok := personaScope(w, r, h.personas)
	if !ok {
		return
	}

	result, err := h.svc.Refresh(r.Context(), persona.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to evolve persona")
		return
	}
	if result == nil {
		writeJSON(w, http.StatusOK, refreshResponse{Stage: domain.StageInitial})
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		Adjustments:     result.Adjustments,
		AdaptationScore: result.AdaptationScore,
		Stage:           result.Stage,
		Snapshot:        result.Snapshot,
	})
}

func (h *EvolutionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	_, persona, ok := personaScope(w, r, h.personas)
	if !ok {
		return
	}

	state, err := h.svc.Reset(r.Context(), persona.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset evolution state")
		return
	}
	writeJSON(w, http.StatusOK, state)
}
