package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/nikhilbhutani/clinicfeedback/internal/memory"
	"github.com/nikhilbhutani/clinicfeedback/internal/review"
)

func TestRender(t *testing.T) {
	got, err := Render("Hi {{name}}, {{name}} from {{place}}", map[string]string{
		"name":  "Jane",
		"place": "{{name}}",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "Hi Jane, Jane from {{name}}" {
		t.Errorf("Render() = %q", got)
	}

	_, err = Render("{{a}} {{b}}", map[string]string{"a": "x"})
	if !errors.Is(err, ErrMissingVariable) || !strings.Contains(err.Error(), "b") {
		t.Errorf("Render() error = %v, want missing b", err)
	}
}

func TestVariables(t *testing.T) {
	got := Variables(replyTemplate)
	want := []string{"sentiment", "author", "comment"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Variables() = %v, want %v", got, want)
	}
}

func TestReply(t *testing.T) {
	in := ReplyInput{Comment: "Long wait times", Author: "Jane Smith", Sentiment: review.SentimentNegative}

	p1, err := Reply(in)
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	p2, _ := Reply(in)
	if p1 != p2 {
		t.Error("Reply() is not deterministic")
	}
	for _, want := range []string{"Jane Smith", "Long wait times", "negative patient review", "Address Jane Smith by name"} {
		if !strings.Contains(p1, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	t.Run("invalid input", func(t *testing.T) {
		if _, err := Reply(ReplyInput{Comment: "  ", Author: "Jane"}); err == nil {
			t.Error("empty comment accepted")
		}
		if _, err := Reply(ReplyInput{Comment: "ok"}); err == nil {
			t.Error("empty author accepted")
		}
	})

	t.Run("from review", func(t *testing.T) {
		r := review.Review{PatientName: "David Clark", Comment: "Felt rushed during the appointment.", Sentiment: review.SentimentNegative}
		p, err := Reply(ReplyInputFor(r))
		if err != nil || !strings.Contains(p, "David Clark") {
			t.Errorf("Reply(ReplyInputFor) = %q, %v", p, err)
		}
	})
}

func TestInsights(t *testing.T) {
	p, err := Insights(InsightsInput{Reviews: []string{"Great staff.", "  ", "Long wait times."}})
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	if !strings.Contains(p, "Great staff.\n\nLong wait times.") {
		t.Errorf("reviews not joined by blank lines: %q", p)
	}
	if !strings.Contains(p, "5. Any other notable patterns or trends") {
		t.Error("prompt missing analysis points")
	}

	if _, err := Insights(InsightsInput{Reviews: []string{"", " "}}); err == nil {
		t.Error("Insights() accepted no reviews")
	}
}

func TestAssistant(t *testing.T) {
	p, err := Assistant(AssistantInput{Clinic: "City Health Clinic", Question: "How do I cut wait times?"})
	if err != nil {
		t.Fatalf("Assistant() error = %v", err)
	}
	if !strings.Contains(p, "City Health Clinic") || !strings.Contains(p, `"How do I cut wait times?"`) {
		t.Errorf("prompt = %q", p)
	}
	if strings.Contains(p, "Earlier in this conversation") {
		t.Error("history block present without history")
	}

	withHistory, err := Assistant(AssistantInput{
		Question: "And for phone calls?",
		History: []memory.Entry{
			{Role: memory.RoleUser, Content: "How do I cut wait times?"},
			{Role: memory.RoleAssistant, Content: "I apologize, but I encountered an error.", Failed: true},
			{Role: memory.RoleAssistant, Content: "Stagger appointments."},
		},
	})
	if err != nil {
		t.Fatalf("Assistant() error = %v", err)
	}
	if !strings.Contains(withHistory, "user: How do I cut wait times?") ||
		!strings.Contains(withHistory, "assistant: Stagger appointments.") {
		t.Errorf("history missing: %q", withHistory)
	}
	if strings.Contains(withHistory, "I apologize") {
		t.Error("failed entry quoted back into prompt")
	}
	if !strings.Contains(withHistory, "the clinic") {
		t.Error("default clinic name not used")
	}

	if _, err := Assistant(AssistantInput{Question: " "}); err == nil {
		t.Error("blank question accepted")
	}
}
