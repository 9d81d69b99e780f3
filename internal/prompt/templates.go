package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nikhilbhutani/clinicfeedback/internal/memory"
	"github.com/nikhilbhutani/clinicfeedback/internal/review"
	"github.com/nikhilbhutani/clinicfeedback/pkg/tokenizer"
)

const insightsTemplate = `Analyze the following patient reviews and provide insights on common themes, sentiment, and areas for improvement:

{{reviews}}

Please provide a summary of the key insights, including:
1. Overall sentiment
2. Common positive themes
3. Common negative themes
4. Suggestions for improvement
5. Any other notable patterns or trends`

const replyTemplate = `Generate a professional and empathetic response to the following {{sentiment}} patient review from {{author}}:

"{{comment}}"

The response should:
1. Address {{author}} by name
2. Thank the patient for their feedback
3. Address specific points mentioned in the review
4. Show empathy and understanding
5. Offer a solution or improvement if applicable
6. Invite further communication if needed

Please provide the response in a concise paragraph format.`

const assistantTemplate = `As Niks AI, a friendly assistant for the owner of {{clinic}}, provide a brief and practical suggestion to improve the following aspect of the clinic:
{{history}}
"{{question}}"

Keep your response concise, friendly, and tailored to the clinic owner's perspective. Offer a quick tip that's easy to implement and could make a noticeable difference. Limit your response to 2-3 sentences.`

// historyEntryTokens caps each transcript line quoted back into the assistant prompt.
const historyEntryTokens = 120

type InsightsInput struct {
	Reviews []string
}

type ReplyInput struct {
	Comment   string
	Author    string
	Sentiment review.Sentiment
}

// ReplyInputFor builds the reply input for a stored review.
func ReplyInputFor(r review.Review) ReplyInput {
	return ReplyInput{Comment: r.Comment, Author: r.PatientName, Sentiment: r.Sentiment}
}

type AssistantInput struct {
	Clinic   string
	Question string
	History  []memory.Entry
}

// Insights asks for the five-point analysis of all non-blank review comments.
func Insights(in InsightsInput) (string, error) {
	reviews := make([]string, 0, len(in.Reviews))
	for _, r := range in.Reviews {
		if r = strings.TrimSpace(r); r != "" {
			reviews = append(reviews, r)
		}
	}
	if len(reviews) == 0 {
		return "", errors.New("no reviews to analyze")
	}
	return Render(insightsTemplate, map[string]string{
		"reviews": strings.Join(reviews, "\n\n"),
	})
}

// Reply asks for a drafted response addressed to the review's author.
func Reply(in ReplyInput) (string, error) {
	comment := strings.TrimSpace(in.Comment)
	author := strings.TrimSpace(in.Author)
	switch {
	case comment == "":
		return "", errors.New("review comment is empty")
	case author == "":
		return "", errors.New("review author is empty")
	}

	sentiment := string(in.Sentiment)
	if sentiment == "" {
		sentiment = string(review.SentimentNeutral)
	}
	return Render(replyTemplate, map[string]string{
		"sentiment": sentiment,
		"author":    author,
		"comment":   comment,
	})
}

// Assistant frames the question for a clinic owner, quoting recent
// successful turns of the conversation when there are any.
func Assistant(in AssistantInput) (string, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return "", errors.New("question is empty")
	}
	clinic := strings.TrimSpace(in.Clinic)
	if clinic == "" {
		clinic = "the clinic"
	}

	var history strings.Builder
	for _, e := range in.History {
		if e.Failed {
			continue
		}
		if history.Len() == 0 {
			history.WriteString("\nEarlier in this conversation:\n")
		}
		fmt.Fprintf(&history, "%s: %s\n", e.Role, tokenizer.Truncate(e.Content, historyEntryTokens))
	}

	return Render(assistantTemplate, map[string]string{
		"clinic":   clinic,
		"history":  history.String(),
		"question": question,
	})
}
