package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nikhilbhutani/clinicfeedback/internal/api/handlers"
	"github.com/nikhilbhutani/clinicfeedback/internal/assistant"
	"github.com/nikhilbhutani/clinicfeedback/internal/clinic"
	"github.com/nikhilbhutani/clinicfeedback/internal/completion"
	"github.com/nikhilbhutani/clinicfeedback/internal/config"
	"github.com/nikhilbhutani/clinicfeedback/internal/insights"
	"github.com/nikhilbhutani/clinicfeedback/internal/llm"
	"github.com/nikhilbhutani/clinicfeedback/internal/reply"
	"github.com/nikhilbhutani/clinicfeedback/internal/review"
)

type gatedCompleter struct {
	gate chan struct{}
	text string
}

func (g *gatedCompleter) Complete(ctx context.Context, _ string) (string, error) {
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.text, nil
}

type staticModels []llm.ModelInfo

func (m staticModels) ListModels() []llm.ModelInfo { return m }

type fakeRefresher struct {
	mu      sync.Mutex
	reviews []string
}

func (f *fakeRefresher) EnqueueInsightsRefresh(reviews []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = reviews
	return nil
}

type env struct {
	handler  http.Handler
	router   *Router
	drafter  *reply.Drafter
	insights *insights.Service
	chat     *assistant.Chat
}

func newEnv(t *testing.T, c completion.Completer, refresher handlers.Refresher) *env {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"*"}, RateLimitRPS: 1000, RateLimitBurst: 1000},
		LLM:    config.LLMConfig{DefaultModel: "gemini-2.5-flash"},
		Completion: config.CompletionConfig{
			Timeout:          time.Second,
			AssistantHistory: 600,
		},
		Clinic: config.ClinicConfig{Name: "City Health Clinic"},
	}

	store := review.NewStore(review.Fixtures())
	profile := clinic.NewProfile(clinic.Info{Name: cfg.Clinic.Name})
	e := &env{
		drafter:  reply.NewDrafter(store, c, time.Second),
		insights: insights.NewService(store, c, time.Second),
		chat:     assistant.NewChat(c, cfg.Completion, profile),
	}
	rt := NewRouter(cfg, Deps{
		Clinic:    profile,
		Reviews:   store,
		Insights:  e.insights,
		Assistant: e.chat,
		Drafter:   e.drafter,
		Models:    staticModels{{Provider: "gemini", Model: "gemini-2.5-flash"}},
		Refresher: refresher,
	})
	t.Cleanup(rt.Close)
	t.Cleanup(e.chat.Close)
	e.router = rt
	e.handler = rt.Setup()
	return e
}

func (e *env) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestRouter_Health(t *testing.T) {
	e := newEnv(t, &gatedCompleter{text: "ok"}, nil)
	if rec := e.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
}

func TestRouter_Reviews(t *testing.T) {
	e := newEnv(t, &gatedCompleter{text: "ok"}, nil)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"all", "/api/v1/reviews", http.StatusOK},
		{"filtered", "/api/v1/reviews?sentiment=negative", http.StatusOK},
		{"bad filter", "/api/v1/reviews?sentiment=angry", http.StatusBadRequest},
		{"one", "/api/v1/reviews/2", http.StatusOK},
		{"missing", "/api/v1/reviews/99", http.StatusNotFound},
		{"bad id", "/api/v1/reviews/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := e.do(t, http.MethodGet, tt.path, ""); rec.Code != tt.code {
				t.Errorf("GET %s = %d, want %d: %s", tt.path, rec.Code, tt.code, rec.Body)
			}
		})
	}

	body := decode[struct {
		Reviews []review.Review `json:"reviews"`
	}](t, e.do(t, http.MethodGet, "/api/v1/reviews?sentiment=negative", ""))
	if len(body.Reviews) != 3 {
		t.Errorf("negative reviews = %d, want 3", len(body.Reviews))
	}
}

func TestRouter_Dashboard(t *testing.T) {
	e := newEnv(t, &gatedCompleter{text: "ok"}, nil)

	rec := e.do(t, http.MethodGet, "/api/v1/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard = %d", rec.Code)
	}
	body := decode[struct {
		Clinic    clinic.Info         `json:"clinic"`
		Stats     review.Stats        `json:"stats"`
		Analytics review.Analytics    `json:"analytics"`
		Recent    []review.Review     `json:"recent_reviews"`
		Insights  completion.Snapshot `json:"insights"`
	}](t, rec)
	if body.Clinic.Name != "City Health Clinic" || body.Stats.TotalReviews != 8 || len(body.Recent) != 5 {
		t.Errorf("dashboard = %+v", body)
	}
	if len(body.Analytics.RatingDistribution) != 5 || len(body.Analytics.SentimentTrend) != 1 {
		t.Errorf("analytics = %+v", body.Analytics)
	}
	if body.Insights.Status != completion.StatusIdle {
		t.Errorf("insights status = %s", body.Insights.Status)
	}
}

func TestRouter_DraftAndReply(t *testing.T) {
	c := &gatedCompleter{text: "Thank you, Jane, we're sorry about the wait...", gate: make(chan struct{})}
	e := newEnv(t, c, nil)

	rec := e.do(t, http.MethodPost, "/api/v1/reviews/2/draft", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("draft = %d: %s", rec.Code, rec.Body)
	}
	started := decode[struct {
		RequestID completion.Handle   `json:"request_id"`
		State     completion.Snapshot `json:"state"`
	}](t, rec)
	if started.State.Status != completion.StatusPending {
		t.Errorf("state = %s, want pending", started.State.Status)
	}

	if rec := e.do(t, http.MethodPost, "/api/v1/reviews/2/draft", ""); rec.Code != http.StatusConflict {
		t.Errorf("second draft = %d, want 409", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, "/api/v1/reviews/2/reply", `{"text":"Sorry Jane"}`); rec.Code != http.StatusConflict {
		t.Errorf("reply while pending = %d, want 409", rec.Code)
	}

	close(c.gate)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := e.drafter.Await(ctx, 2, started.RequestID); err != nil {
		t.Fatalf("Await() error = %v", err)
	}

	snap := decode[completion.Snapshot](t, e.do(t, http.MethodGet, "/api/v1/reviews/2/draft", ""))
	if snap.Status != completion.StatusSucceeded || snap.Text != c.text {
		t.Errorf("draft state = %+v", snap)
	}

	if rec := e.do(t, http.MethodPost, "/api/v1/reviews/2/reply", `{"text":"  "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("blank reply = %d, want 400", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, "/api/v1/reviews/2/reply", `{`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed reply = %d, want 400", rec.Code)
	}
	rec = e.do(t, http.MethodPost, "/api/v1/reviews/2/reply", `{"text":"`+snap.Text+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reply = %d: %s", rec.Code, rec.Body)
	}
	if rv := decode[review.Review](t, rec); !rv.Replied || rv.Reply != c.text {
		t.Errorf("replied review = %+v", rv)
	}

	if rec := e.do(t, http.MethodPost, "/api/v1/reviews/3/draft/retry", ""); rec.Code != http.StatusConflict {
		t.Errorf("retry without draft = %d, want 409", rec.Code)
	}
}

func TestRouter_Insights(t *testing.T) {
	refresher := &fakeRefresher{}
	e := newEnv(t, &gatedCompleter{text: "1. Overall sentiment: positive"}, refresher)

	if rec := e.do(t, http.MethodPost, "/api/v1/insights/retry", ""); rec.Code != http.StatusConflict {
		t.Errorf("retry before generate = %d, want 409", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, "/api/v1/insights/cancel", ""); rec.Code != http.StatusConflict {
		t.Errorf("cancel while idle = %d, want 409", rec.Code)
	}

	rec := e.do(t, http.MethodPost, "/api/v1/insights", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("generate = %d", rec.Code)
	}
	h := decode[struct {
		RequestID completion.Handle `json:"request_id"`
	}](t, rec).RequestID

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := e.insights.Await(ctx, h); err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	snap := decode[completion.Snapshot](t, e.do(t, http.MethodGet, "/api/v1/insights", ""))
	if snap.Status != completion.StatusSucceeded || !snap.Retryable {
		t.Errorf("insights = %+v", snap)
	}

	if rec := e.do(t, http.MethodPost, "/api/v1/insights/refresh", ""); rec.Code != http.StatusAccepted {
		t.Errorf("refresh = %d", rec.Code)
	}
	if len(refresher.reviews) != 8 {
		t.Errorf("refresh enqueued %d reviews, want 8", len(refresher.reviews))
	}
}

func TestRouter_RefreshWithoutQueue(t *testing.T) {
	e := newEnv(t, &gatedCompleter{text: "ok"}, nil)
	if rec := e.do(t, http.MethodPost, "/api/v1/insights/refresh", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("refresh = %d, want 503", rec.Code)
	}
}

func TestRouter_Assistant(t *testing.T) {
	e := newEnv(t, &gatedCompleter{text: "Stagger appointment slots."}, nil)

	if rec := e.do(t, http.MethodPost, "/api/v1/assistant/messages", `{"message":"  "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("blank message = %d, want 400", rec.Code)
	}

	rec := e.do(t, http.MethodPost, "/api/v1/assistant/messages", `{"message":"How can we reduce wait times?"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("send = %d: %s", rec.Code, rec.Body)
	}
	h := decode[struct {
		RequestID completion.Handle `json:"request_id"`
	}](t, rec).RequestID

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := e.chat.Await(ctx, h); err != nil {
		t.Fatalf("Await() error = %v", err)
	}

	body := decode[struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}](t, e.do(t, http.MethodGet, "/api/v1/assistant/messages", ""))
	if len(body.Messages) != 2 || body.Messages[1].Content != "Stagger appointment slots." {
		t.Errorf("transcript = %+v", body.Messages)
	}

	if rec := e.do(t, http.MethodDelete, "/api/v1/assistant/messages", ""); rec.Code != http.StatusNoContent {
		t.Errorf("reset = %d", rec.Code)
	}
	if n := len(e.chat.Transcript()); n != 0 {
		t.Errorf("transcript after reset has %d entries", n)
	}
}

func TestRouter_Models(t *testing.T) {
	e := newEnv(t, &gatedCompleter{text: "ok"}, nil)
	body := decode[struct {
		Default string          `json:"default"`
		Models  []llm.ModelInfo `json:"models"`
	}](t, e.do(t, http.MethodGet, "/api/v1/llm/models", ""))
	if body.Default != "gemini-2.5-flash" || len(body.Models) != 1 {
		t.Errorf("models = %+v", body)
	}
}

func TestRouter_InsightsEvents(t *testing.T) {
	c := &gatedCompleter{text: "summary", gate: make(chan struct{})}
	e := newEnv(t, c, nil)
	srv := httptest.NewServer(e.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events/insights", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	events := make(chan string, 8)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if name, ok := strings.CutPrefix(sc.Text(), "event: "); ok {
				events <- name
			}
		}
		close(events)
	}()

	next := func() string {
		select {
		case ev := <-events:
			return ev
		case <-ctx.Done():
			t.Fatal("timed out waiting for event")
			return ""
		}
	}

	if ev := next(); ev != "idle" {
		t.Fatalf("first event = %q, want idle", ev)
	}
	if _, err := e.insights.Generate(); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if ev := next(); ev != "pending" {
		t.Errorf("second event = %q, want pending", ev)
	}
	close(c.gate)
	if ev := next(); ev != "succeeded" {
		t.Errorf("third event = %q, want succeeded", ev)
	}
}

func TestRouter_StopStreamsEndsEvents(t *testing.T) {
	e := newEnv(t, &gatedCompleter{text: "ok"}, nil)
	srv := httptest.NewServer(e.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events/assistant", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	ended := make(chan struct{})
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
		}
		close(ended)
	}()

	e.router.StopStreams()
	select {
	case <-ended:
	case <-ctx.Done():
		t.Fatal("event stream still open after StopStreams")
	}
}

func TestRouter_Analytics(t *testing.T) {
	e := newEnv(t, &gatedCompleter{text: "ok"}, nil)

	rec := e.do(t, http.MethodGet, "/api/v1/analytics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("analytics = %d", rec.Code)
	}
	a := decode[review.Analytics](t, rec)
	if len(a.RatingTrend) != 1 || a.RatingTrend[0].Month != "2023-03" || a.RatingTrend[0].AverageRating != 3.3 {
		t.Errorf("rating trend = %+v", a.RatingTrend)
	}
	if len(a.Keywords) == 0 || a.Keywords[0].Keyword != "experience" {
		t.Errorf("keywords = %+v", a.Keywords)
	}
}

func TestRouter_Settings(t *testing.T) {
	c := &gatedCompleter{text: "Offer a callback queue."}
	e := newEnv(t, c, nil)

	if got := decode[clinic.Info](t, e.do(t, http.MethodGet, "/api/v1/settings", "")); got.Name != "City Health Clinic" {
		t.Errorf("settings = %+v", got)
	}

	if rec := e.do(t, http.MethodPut, "/api/v1/settings", `{"name":"A"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("short name = %d, want 400", rec.Code)
	}

	rec := e.do(t, http.MethodPut, "/api/v1/settings", `{"name":"Riverside Family Practice"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d: %s", rec.Code, rec.Body)
	}
	if got := decode[clinic.Info](t, rec); got.Name != "Riverside Family Practice" {
		t.Errorf("updated settings = %+v", got)
	}

	dash := decode[struct {
		Clinic clinic.Info `json:"clinic"`
	}](t, e.do(t, http.MethodGet, "/api/v1/dashboard", ""))
	if dash.Clinic.Name != "Riverside Family Practice" {
		t.Errorf("dashboard clinic = %+v", dash.Clinic)
	}

	h, err := e.chat.Send("How can we reduce wait times?")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := e.chat.Await(ctx, h); err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if p := e.chat.State().Prompt; !strings.Contains(p, "Riverside Family Practice") {
		t.Errorf("assistant prompt = %q", p)
	}
}
