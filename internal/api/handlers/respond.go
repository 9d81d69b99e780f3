package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/clinicfeedback/internal/clinic"
	"github.com/nikhilbhutani/clinicfeedback/internal/completion"
	"github.com/nikhilbhutani/clinicfeedback/internal/review"
)

// accepted is the body returned when a completion request starts.
type accepted struct {
	RequestID completion.Handle   `json:"request_id"`
	State     completion.Snapshot `json:"state"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, completion.ErrInvalidInput), errors.Is(err, clinic.ErrInvalidName):
		status = http.StatusBadRequest
	case errors.Is(err, completion.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, review.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func reviewID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid review id"})
		return 0, false
	}
	return id, true
}
