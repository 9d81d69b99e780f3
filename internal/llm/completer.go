package llm

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nikhilbhutani/clinicfeedback/internal/config"
)

// TextCompleter turns a single prompt into one gateway chat call.
type TextCompleter struct {
	gateway     Gateway
	model       string
	temperature float64
	maxTokens   int
	system      string
}

func NewTextCompleter(gw Gateway, cfg config.LLMConfig) *TextCompleter {
	return &TextCompleter{
		gateway:     gw,
		model:       cfg.DefaultModel,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// WithSystem returns a copy that sends system ahead of every prompt.
func (c *TextCompleter) WithSystem(system string) *TextCompleter {
	cp := *c
	cp.system = system
	return &cp
}

// Model reports the model requests are sent to by default.
func (c *TextCompleter) Model() string { return c.model }

func (c *TextCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	msgs := make([]Message, 0, 2)
	if c.system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: c.system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: prompt})

	resp, err := c.gateway.Chat(ctx, ChatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", err
	}

	slog.Debug("completion finished",
		"provider", resp.Provider,
		"model", resp.Model,
		"total_tokens", resp.TotalTokens,
		"cost_usd", resp.CostUSD,
		"latency_ms", resp.LatencyMs,
	)

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
