package handlers

import (
	"net/http"

	"github.com/nikhilbhutani/clinicfeedback/internal/llm"
)

type ModelLister interface {
	ListModels() []llm.ModelInfo
}

type LLMHandler struct {
	models       ModelLister
	defaultModel string
}

func NewLLMHandler(models ModelLister, defaultModel string) *LLMHandler {
	return &LLMHandler{models: models, defaultModel: defaultModel}
}

func (h *LLMHandler) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default": h.defaultModel,
		"models":  h.models.ListModels(),
	})
}
