package review

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type RatingBucket struct {
	Stars   int     `json:"stars"`
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type MonthRating struct {
	Month         string  `json:"month"`
	Reviews       int     `json:"reviews"`
	AverageRating float64 `json:"average_rating"`
}

type MonthSentiment struct {
	Month    string  `json:"month"`
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// KeywordSentiment is a keyword with the sentiment most of its reviews carry.
type KeywordSentiment struct {
	Keyword   string    `json:"keyword"`
	Count     int       `json:"count"`
	Sentiment Sentiment `json:"sentiment"`
}

// Analytics is the data behind the dashboard and analytics charts.
type Analytics struct {
	RatingDistribution []RatingBucket     `json:"rating_distribution"`
	RatingTrend        []MonthRating      `json:"rating_trend"`
	SentimentTrend     []MonthSentiment   `json:"sentiment_trend"`
	Keywords           []KeywordSentiment `json:"keywords"`
}

// Analytics buckets ratings by stars, groups ratings and sentiment by month
// (YYYY-MM, oldest first) and labels the topN keywords with their dominant
// sentiment. Reviews with an unparseable date are left out of the trends.
func (s *Store) Analytics(topN int) Analytics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a := Analytics{
		RatingDistribution: make([]RatingBucket, 5),
		RatingTrend:        []MonthRating{},
		SentimentTrend:     []MonthSentiment{},
		Keywords:           []KeywordSentiment{},
	}
	for i := range a.RatingDistribution {
		stars := i + 1
		a.RatingDistribution[i] = RatingBucket{Stars: stars, Label: starLabel(stars)}
	}

	type month struct {
		reviews   int
		ratingSum int
		sentiment map[Sentiment]int
	}
	months := make(map[string]*month)
	keywords := make(map[string]map[Sentiment]int)

	for _, r := range s.reviews {
		if r.Rating >= 1 && r.Rating <= 5 {
			a.RatingDistribution[r.Rating-1].Count++
		}

		if d, err := time.Parse(dateLayout, r.Date); err == nil {
			key := d.Format("2006-01")
			m, ok := months[key]
			if !ok {
				m = &month{sentiment: make(map[Sentiment]int)}
				months[key] = m
			}
			m.reviews++
			m.ratingSum += r.Rating
			m.sentiment[r.Sentiment]++
		}

		for _, k := range r.Keywords {
			k = strings.ToLower(k)
			if keywords[k] == nil {
				keywords[k] = make(map[Sentiment]int)
			}
			keywords[k][r.Sentiment]++
		}
	}

	if n := float64(len(s.reviews)); n > 0 {
		for i := range a.RatingDistribution {
			a.RatingDistribution[i].Percent = round1(float64(a.RatingDistribution[i].Count) / n * 100)
		}
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		m := months[k]
		n := float64(m.reviews)
		a.RatingTrend = append(a.RatingTrend, MonthRating{
			Month:         k,
			Reviews:       m.reviews,
			AverageRating: round1(float64(m.ratingSum) / n),
		})
		a.SentimentTrend = append(a.SentimentTrend, MonthSentiment{
			Month:    k,
			Positive: round1(float64(m.sentiment[SentimentPositive]) / n * 100),
			Neutral:  round1(float64(m.sentiment[SentimentNeutral]) / n * 100),
			Negative: round1(float64(m.sentiment[SentimentNegative]) / n * 100),
		})
	}

	for k, counts := range keywords {
		total := 0
		for _, c := range counts {
			total += c
		}
		a.Keywords = append(a.Keywords, KeywordSentiment{Keyword: k, Count: total, Sentiment: dominant(counts)})
	}
	slices.SortFunc(a.Keywords, func(x, y KeywordSentiment) int {
		if x.Count != y.Count {
			return y.Count - x.Count
		}
		return strings.Compare(x.Keyword, y.Keyword)
	})
	if topN > 0 && len(a.Keywords) > topN {
		a.Keywords = a.Keywords[:topN]
	}
	return a
}

// dominant picks the most frequent sentiment; a tie is neutral.
func dominant(counts map[Sentiment]int) Sentiment {
	best, bestN, tied := SentimentNeutral, -1, false
	for _, s := range []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative} {
		switch n := counts[s]; {
		case n > bestN:
			best, bestN, tied = s, n, false
		case n == bestN:
			tied = true
		}
	}
	if tied {
		return SentimentNeutral
	}
	return best
}

func starLabel(stars int) string {
	if stars == 1 {
		return "1 Star"
	}
	return fmt.Sprintf("%d Stars", stars)
}
