package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/clinicfeedback/internal/completion"
	"github.com/nikhilbhutani/clinicfeedback/internal/prompt"
	"github.com/nikhilbhutani/clinicfeedback/internal/queue"
)

// InsightsWorker runs the insights prompt through a caching completer so the
// API's next summary request is answered from the cache.
type InsightsWorker struct {
	completer completion.Completer
}

func NewInsightsWorker(c completion.Completer) *InsightsWorker {
	return &InsightsWorker{completer: c}
}

func (w *InsightsWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.InsightsRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	p, err := prompt.Insights(prompt.InsightsInput{Reviews: payload.Reviews})
	if err != nil {
		return fmt.Errorf("build insights prompt: %v: %w", err, asynq.SkipRetry)
	}

	slog.Info("refreshing insights", "reviews", len(payload.Reviews))

	text, err := w.completer.Complete(ctx, p)
	if err != nil {
		return fmt.Errorf("complete insights: %w", err)
	}
	if completion.Normalize(text, nil).Kind == completion.KindEmptyResponse {
		return fmt.Errorf("complete insights: empty response")
	}

	slog.Info("insights refreshed", "chars", len(text))
	return nil
}
