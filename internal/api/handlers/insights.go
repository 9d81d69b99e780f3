package handlers

import (
	"errors"
	"net/http"

	"github.com/nikhilbhutani/clinicfeedback/internal/insights"
	"github.com/nikhilbhutani/clinicfeedback/internal/queue"
)

// Refresher schedules background insight generation.
type Refresher interface {
	EnqueueInsightsRefresh(reviews []string) error
}

type InsightsHandler struct {
	svc       *insights.Service
	refresher Refresher
}

// NewInsightsHandler builds the handler. refresher may be nil when no queue is configured.
func NewInsightsHandler(svc *insights.Service, refresher Refresher) *InsightsHandler {
	return &InsightsHandler{svc: svc, refresher: refresher}
}

func (h *InsightsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	handle, err := h.svc.Generate()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted{RequestID: handle, State: h.svc.State()})
}

func (h *InsightsHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.State())
}

func (h *InsightsHandler) Retry(w http.ResponseWriter, r *http.Request) {
	handle, err := h.svc.Retry(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted{RequestID: handle, State: h.svc.State()})
}

func (h *InsightsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cancel(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.State())
}

func (h *InsightsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.refresher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "background queue not configured"})
		return
	}
	err := h.refresher.EnqueueInsightsRefresh(h.svc.Input().Reviews)
	switch {
	case errors.Is(err, queue.ErrAlreadyQueued):
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "already queued"})
	case err != nil:
		writeError(w, r, err)
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}
