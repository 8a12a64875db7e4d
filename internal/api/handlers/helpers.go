package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/kindred/internal/api/middleware"
	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/Harshitk-cp/kindred/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// personaScope resolves the authenticated caller and the persona named in the
// URL, writing the error response itself when either is unusable.
func personaScope(w http.ResponseWriter, r *http.Request, personas *service.PersonaService) (domain.Caller, *domain.Persona, bool) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.Caller{}, nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid persona id")
		return caller, nil, false
	}

	persona, err := personas.GetByID(r.Context(), id, caller.TenantID)
	if err != nil {
		if errors.Is(err, service.ErrPersonaNotFound) {
			writeError(w, http.StatusNotFound, "persona not found")
			return caller, nil, false
		}
		writeError(w, http.StatusInternalServerError, "failed to get persona")
		return caller, nil, false
	}
	return caller, persona, true
}
