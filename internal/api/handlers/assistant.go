package handlers

import (
	"net/http"

	"github.com/nikhilbhutani/clinicfeedback/internal/assistant"
)

type AssistantHandler struct {
	chat *assistant.Chat
}

func NewAssistantHandler(chat *assistant.Chat) *AssistantHandler {
	return &AssistantHandler{chat: chat}
}

type messageRequest struct {
	Message string `json:"message"`
}

func (h *AssistantHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	handle, err := h.chat.Send(req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted{RequestID: handle, State: h.chat.State()})
}

func (h *AssistantHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": h.chat.Transcript(),
		"state":    h.chat.State(),
	})
}

func (h *AssistantHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.chat.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (h *AssistantHandler) Retry(w http.ResponseWriter, r *http.Request) {
	handle, err := h.chat.Retry()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted{RequestID: handle, State: h.chat.State()})
}

func (h *AssistantHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.Cancel(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.chat.State())
}
