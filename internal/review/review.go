// Package review holds the clinic's patient reviews and their replies.
package review

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

var ErrNotFound = errors.New("review not found")

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment accepts "", which means no filter.
func ParseSentiment(s string) (Sentiment, error) {
	switch v := Sentiment(strings.ToLower(strings.TrimSpace(s))); v {
	case "", SentimentPositive, SentimentNeutral, SentimentNegative:
		return v, nil
	}
	return "", fmt.Errorf("unknown sentiment %q", s)
}

type Review struct {
	ID          int        `json:"id"`
	PatientName string     `json:"patient_name"`
	Rating      int        `json:"rating"`
	Comment     string     `json:"comment"`
	Date        string     `json:"date"`
	Sentiment   Sentiment  `json:"sentiment"`
	Keywords    []string   `json:"keywords"`
	Replied     bool       `json:"replied"`
	Reply       string     `json:"reply,omitempty"`
	RepliedAt   *time.Time `json:"replied_at,omitempty"`
}

// Store is an in-memory review catalog, safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	reviews []Review
}

func NewStore(reviews []Review) *Store {
	cp := make([]Review, len(reviews))
	for i, r := range reviews {
		cp[i] = clone(r)
	}
	return &Store{reviews: cp}
}

// List returns reviews newest first, optionally filtered by sentiment.
func (s *Store) List(sentiment Sentiment) []Review {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Review, 0, len(s.reviews))
	for _, r := range s.reviews {
		if sentiment != "" && r.Sentiment != sentiment {
			continue
		}
		out = append(out, clone(r))
	}
	slices.SortStableFunc(out, func(a, b Review) int {
		return strings.Compare(b.Date, a.Date)
	})
	return out
}

func (s *Store) Get(id int) (Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Review{}, fmt.Errorf("review %d: %w", id, ErrNotFound)
	}
	return clone(s.reviews[i]), nil
}

// Comments returns every review comment in catalog order.
func (s *Store) Comments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.reviews))
	for _, r := range s.reviews {
		out = append(out, r.Comment)
	}
	return out
}

// SaveReply stores text as the reply to review id and marks it replied.
func (s *Store) SaveReply(id int, text string) (Review, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Review{}, errors.New("reply text is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Review{}, fmt.Errorf("review %d: %w", id, ErrNotFound)
	}
	now := time.Now().UTC()
	s.reviews[i].Reply = text
	s.reviews[i].Replied = true
	s.reviews[i].RepliedAt = &now
	return clone(s.reviews[i]), nil
}

func (s *Store) indexLocked(id int) int {
	for i, r := range s.reviews {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func clone(r Review) Review {
	r.Keywords = slices.Clone(r.Keywords)
	if r.RepliedAt != nil {
		t := *r.RepliedAt
		r.RepliedAt = &t
	}
	return r
}
