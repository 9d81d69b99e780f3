package handlers

import (
	"net/http"

	"github.com/nikhilbhutani/clinicfeedback/internal/clinic"
	"github.com/nikhilbhutani/clinicfeedback/internal/insights"
	"github.com/nikhilbhutani/clinicfeedback/internal/reply"
	"github.com/nikhilbhutani/clinicfeedback/internal/review"
)

const (
	dashboardKeywords = 10
	dashboardRecent   = 5
)

type ReviewHandler struct {
	store    *review.Store
	drafter  *reply.Drafter
	insights *insights.Service
	clinic   *clinic.Profile
}

func NewReviewHandler(store *review.Store, drafter *reply.Drafter, ins *insights.Service, profile *clinic.Profile) *ReviewHandler {
	return &ReviewHandler{store: store, drafter: drafter, insights: ins, clinic: profile}
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	sentiment, err := review.ParseSentiment(r.URL.Query().Get("sentiment"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": h.store.List(sentiment)})
}

func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := reviewID(w, r)
	if !ok {
		return
	}
	rv, err := h.store.Get(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *ReviewHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	recent := h.store.List("")
	if len(recent) > dashboardRecent {
		recent = recent[:dashboardRecent]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"clinic":         h.clinic.Get(),
		"stats":          h.store.Stats(dashboardKeywords),
		"analytics":      h.store.Analytics(dashboardKeywords),
		"recent_reviews": recent,
		"insights":       h.insights.State(),
	})
}

func (h *ReviewHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Analytics(dashboardKeywords))
}

func (h *ReviewHandler) Draft(w http.ResponseWriter, r *http.Request) {
	id, ok := reviewID(w, r)
	if !ok {
		return
	}
	handle, err := h.drafter.Draft(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, _ := h.drafter.State(id)
	writeJSON(w, http.StatusAccepted, accepted{RequestID: handle, State: snap})
}

func (h *ReviewHandler) DraftState(w http.ResponseWriter, r *http.Request) {
	id, ok := reviewID(w, r)
	if !ok {
		return
	}
	snap, err := h.drafter.State(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *ReviewHandler) RetryDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := reviewID(w, r)
	if !ok {
		return
	}
	handle, err := h.drafter.Retry(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, _ := h.drafter.State(id)
	writeJSON(w, http.StatusAccepted, accepted{RequestID: handle, State: snap})
}

func (h *ReviewHandler) CancelDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := reviewID(w, r)
	if !ok {
		return
	}
	if err := h.drafter.Cancel(id); err != nil {
		writeError(w, r, err)
		return
	}
	snap, _ := h.drafter.State(id)
	writeJSON(w, http.StatusOK, snap)
}

type replyRequest struct {
	Text string `json:"text"`
}

func (h *ReviewHandler) Reply(w http.ResponseWriter, r *http.Request) {
	id, ok := reviewID(w, r)
	if !ok {
		return
	}
	var req replyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rv, err := h.drafter.Submit(id, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}
