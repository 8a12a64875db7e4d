package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/Harshitk-cp/kindred/internal/service"
)

type PatternHandler struct {
	personas *service.PersonaService
	svc      *service.PatternService
}

func NewPatternHandler(personas *service.PersonaService, svc *service.PatternService) *PatternHandler {
	return &PatternHandler{personas: personas, svc: svc}
}

type createPatternRequest struct {
	Metric     string          `json:"metric"`
	Value      json.RawMessage `json:"value"`
	Window     string          `json:"window"`
	Confidence float64         `json:"confidence"`
	SampleSize int             `json:"sample_size"`
	ObservedAt *time.Time      `json:"observed_at,omitempty"`
}

func (h *PatternHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, persona, ok := personaScope(w, r, h.personas)
	if !ok {
		return
	}

	var req createPatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pattern := &domain.PatternMetric{
		PersonaID:  persona.ID,
		Metric:     domain.PatternKind(req.Metric),
		Value:      req.Value,
		Window:     req.Window,
		Confidence: req.Confidence,
		SampleSize: req.SampleSize,
	}
	if req.ObservedAt != nil {
		pattern.ObservedAt = req.ObservedAt.UTC()
	}

	if err := h.svc.Create(r.Context(), pattern, caller.TenantID); err != nil {
		switch {
		case errors.Is(err, service.ErrPatternInvalidKind),
			errors.Is(err, service.ErrPatternInvalidConfidence),
			errors.Is(err, service.ErrPatternInvalidSampleSize),
			errors.Is(err, domain.ErrMalformedPattern):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPersonaNotFound):
			writeError(w, http.StatusNotFound, "persona not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to store pattern metric")
		}
		return
	}

	writeJSON(w, http.StatusCreated, pattern)
}
