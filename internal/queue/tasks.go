package queue

const (
	TypeInsightsRefresh = "insights:refresh"
)

// InsightsRefreshPayload carries the review comments to summarise so the
// worker warms the cache with exactly the prompt the API will send.
type InsightsRefreshPayload struct {
	Reviews []string `json:"reviews"`
}
