package handlers

import (
	"net/http"

	"github.com/nikhilbhutani/clinicfeedback/internal/clinic"
)

type SettingsHandler struct {
	profile *clinic.Profile
}

func NewSettingsHandler(profile *clinic.Profile) *SettingsHandler {
	return &SettingsHandler{profile: profile}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.profile.Get())
}

// Update applies a partial profile change.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req clinic.Update
	if !decodeJSON(w, r, &req) {
		return
	}
	info, err := h.profile.Apply(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
