package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/Harshitk-cp/kindred/internal/service"
)

type ChatHandler struct {
	personas *service.PersonaService
	svc      *service.ChatService
}

func NewChatHandler(personas *service.PersonaService, svc *service.ChatService) *ChatHandler {
	return &ChatHandler{personas: personas, svc: svc}
}

type sendMessageRequest struct {
	Message string           `json:"message"`
	History []domain.Message `json:"history,omitempty"`
}

type openerResponse struct {
	Text string `json:"text"`
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	caller, persona, ok := personaScope(w, r, h.personas)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.svc.HandleMessage(r.Context(), caller, persona.ID, req.Message, req.History)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPersonaNotFound):
			writeError(w, http.StatusNotFound, "persona not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to handle message")
		}
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func (h *ChatHandler) Opener(w http.ResponseWriter, r *http.Request) {
	caller, persona, ok := personaScope(w, r, h.personas)
	if !ok {
		return
	}

	text, err := h.svc.Open(r.Context(), caller, persona.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to pick an opening line")
		return
	}
	writeJSON(w, http.StatusOK, openerResponse{Text: text})
}
