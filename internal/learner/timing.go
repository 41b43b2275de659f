package learner

import (
	"strings"
	"time"

	"ticketflow/internal/recorder"
)

// Timing summarizes inter-action delays across the whole log. The
// recommended delay is deliberately faster than the observed average:
// automation does not pause to read the page.
type Timing struct {
	AverageDelay     int64 `json:"averageDelay"`
	MinDelay         int64 `json:"minDelay"`
	MaxDelay         int64 `json:"maxDelay"`
	RecommendedDelay int64 `json:"recommendedDelay"`
}

const recommendedFactor = 0.7

// AnalyzeTiming derives delay statistics from consecutive action
// timestamps. A log of fewer than two actions carries no intervals and
// yields nil, never a division by zero.
func AnalyzeTiming(actions []recorder.RecordedAction) *Timing {
	if len(actions) < 2 {
		return nil
	}

	var sum, minDelay, maxDelay int64
	for i := 1; i < len(actions); i++ {
		delay := actions[i].Timestamp - actions[i-1].Timestamp
		sum += delay
		if i == 1 || delay < minDelay {
			minDelay = delay
		}
		if delay > maxDelay {
			maxDelay = delay
		}
	}

	avg := sum / int64(len(actions)-1)
	return &Timing{
		AverageDelay:     avg,
		MinDelay:         minDelay,
		MaxDelay:         maxDelay,
		RecommendedDelay: int64(float64(avg) * recommendedFactor),
	}
}

// Recommended returns the learned inter-step delay or a fallback when
// no timing data exists.
func (t *Timing) Recommended(fallback time.Duration) time.Duration {
	if t == nil || t.RecommendedDelay <= 0 {
		return fallback
	}
	return time.Duration(t.RecommendedDelay) * time.Millisecond
}

// URLStep labels one page in the observed navigation flow.
type URLStep struct {
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"`
	Step      string `json:"step"`
}

// AnalyzeURLFlow records every URL change across the log in order.
func AnalyzeURLFlow(actions []recorder.RecordedAction) []URLStep {
	var flow []URLStep
	lastURL := ""
	for _, a := range actions {
		if a.URL != lastURL {
			flow = append(flow, URLStep{
				URL:       a.URL,
				Timestamp: a.Timestamp,
				Step:      identifyURLStep(a.URL),
			})
			lastURL = a.URL
		}
	}
	return flow
}

func identifyURLStep(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "goods"), strings.Contains(lower, "ticket"):
		return "product_page"
	case strings.Contains(lower, "seat"), strings.Contains(lower, "booking"):
		return "seat_selection"
	case strings.Contains(lower, "payment"), strings.Contains(lower, "order"):
		return "payment"
	case strings.Contains(lower, "confirm"), strings.Contains(lower, "complete"):
		return "completion"
	default:
		return "unknown"
	}
}
