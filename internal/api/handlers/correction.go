package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Harshitk-cp/kindred/internal/api/middleware"
	"github.com/Harshitk-cp/kindred/internal/service"
	"go.uber.org/zap"
)

type CorrectionHandler struct {
	svc    *service.CorrectionService
	logger *zap.Logger
}

func NewCorrectionHandler(svc *service.CorrectionService, logger *zap.Logger) *CorrectionHandler {
	return &CorrectionHandler{svc: svc, logger: logger}
}

type detectCorrectionRequest struct {
	Message string `json:"message"`
	Apply   bool   `json:"apply"`
}

type detectCorrectionResponse struct {
	Outcome *service.CorrectionOutcome `json:"outcome"`
}

func (h *CorrectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	settings, err := h.svc.Settings(r.Context(), caller.UserID)
	if err != nil {
		h.logger.Error("failed to load correction settings",
			zap.String("user_id", caller.UserID.String()),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load correction settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Detect reports the correction in a message, if any. With apply set the
// correction is also written to the caller's settings.
func (h *CorrectionHandler) Detect(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req detectCorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Apply {
		writeJSON(w, http.StatusOK, detectCorrectionResponse{
			Outcome: h.svc.DetectAndApply(r.Context(), caller.UserID, req.Message),
		})
		return
	}

	c := h.svc.Detect(req.Message)
	if c == nil {
		writeJSON(w, http.StatusOK, detectCorrectionResponse{})
		return
	}
	writeJSON(w, http.StatusOK, detectCorrectionResponse{
		Outcome: &service.CorrectionOutcome{Correction: c, Confirmation: service.Confirmation(c)},
	})
}
