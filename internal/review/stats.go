package review

import (
	"math"
	"slices"
	"strings"
)

type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// Stats is the dashboard summary of the catalog.
type Stats struct {
	TotalReviews  int                   `json:"total_reviews"`
	AverageRating float64               `json:"average_rating"`
	ResponseRate  float64               `json:"response_rate"`
	Sentiment     map[Sentiment]float64 `json:"sentiment"`
	TopKeywords   []KeywordCount        `json:"top_keywords"`
}

// Stats computes totals, the average rating, the replied share and the
// sentiment split (percentages rounded to one decimal), plus the topN keywords.
func (s *Store) Stats(topN int) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalReviews: len(s.reviews),
		Sentiment: map[Sentiment]float64{
			SentimentPositive: 0,
			SentimentNeutral:  0,
			SentimentNegative: 0,
		},
		TopKeywords: []KeywordCount{},
	}
	if len(s.reviews) == 0 {
		return st
	}

	var ratingSum, replied int
	counts := make(map[Sentiment]int)
	keywords := make(map[string]int)
	for _, r := range s.reviews {
		ratingSum += r.Rating
		if r.Replied {
			replied++
		}
		counts[r.Sentiment]++
		for _, k := range r.Keywords {
			keywords[strings.ToLower(k)]++
		}
	}

	n := float64(len(s.reviews))
	st.AverageRating = round1(float64(ratingSum) / n)
	st.ResponseRate = round1(float64(replied) / n * 100)
	for k, c := range counts {
		st.Sentiment[k] = round1(float64(c) / n * 100)
	}

	for k, c := range keywords {
		st.TopKeywords = append(st.TopKeywords, KeywordCount{Keyword: k, Count: c})
	}
	slices.SortFunc(st.TopKeywords, func(a, b KeywordCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Keyword, b.Keyword)
	})
	if topN > 0 && len(st.TopKeywords) > topN {
		st.TopKeywords = st.TopKeywords[:topN]
	}
	return st
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
