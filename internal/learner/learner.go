// Package learner converts a recorded session into reusable, selector-
// generalized action patterns plus timing statistics.
package learner

import (
	"strings"

	"ticketflow/internal/recorder"
)

// Intent names one funnel sub-task a pattern can automate.
type Intent string

const (
	IntentDateSelection  Intent = "dateSelection"
	IntentTimeSelection  Intent = "timeSelection"
	IntentBookingButton  Intent = "bookingButton"
	IntentSeatSelection  Intent = "seatSelection"
	IntentGradeSelection Intent = "gradeSelection"
	IntentConfirmButton  Intent = "confirmButton"
	IntentPaymentButton  Intent = "paymentButton"
	IntentPopupClose     Intent = "popupClose"
)

// intentKeywords is evaluated per intent with case-insensitive
// substring matching over both action text and selector.
var intentKeywords = map[Intent][]string{
	IntentDateSelection:  {"날짜", "일", "date", "관람일"},
	IntentTimeSelection:  {"시간", "시", "time", "회차", "session"},
	IntentBookingButton:  {"예매", "booking", "안심예매", "book"},
	IntentSeatSelection:  {"좌석", "seat", "선택", "select"},
	IntentGradeSelection: {"등급", "grade", "vip", "r석", "s석", "a석"},
	IntentConfirmButton:  {"확인", "confirm", "다음", "next", "선택완료"},
	IntentPaymentButton:  {"결제", "payment", "pay", "주문"},
	IntentPopupClose:     {"접어두기", "닫기", "close", "나중에"},
}

// AllIntents lists the intents in extraction order.
var AllIntents = []Intent{
	IntentDateSelection,
	IntentTimeSelection,
	IntentBookingButton,
	IntentSeatSelection,
	IntentGradeSelection,
	IntentConfirmButton,
	IntentPaymentButton,
	IntentPopupClose,
}

// Keywords returns the keyword list for an intent.
func Keywords(intent Intent) []string {
	return intentKeywords[intent]
}

// Pattern is the learned description of one intent: how often it was
// seen, the raw and generalized selectors, the keywords that matched,
// and a representative sample action.
type Pattern struct {
	Count               int                     `json:"count"`
	Selectors           []string                `json:"selectors"`
	GeneralizedSelector string                  `json:"generalizedSelector"`
	Keywords            []string                `json:"keywords"`
	SampleAction        recorder.RecordedAction `json:"sampleAction"`
}

// Extract filters the log for actions matching an intent's keywords and
// derives a pattern from them. A nil return means the intent was never
// observed; callers skip that automation step rather than failing.
func Extract(actions []recorder.RecordedAction, intent Intent) *Pattern {
	keywords := intentKeywords[intent]
	var matched []recorder.RecordedAction
	for _, a := range actions {
		if matchesAny(a, keywords) {
			matched = append(matched, a)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	selectors := make([]string, 0, len(matched))
	seen := make(map[string]bool)
	for _, a := range matched {
		if !seen[a.Selector] {
			seen[a.Selector] = true
			selectors = append(selectors, a.Selector)
		}
	}

	var hitKeywords []string
	for _, kw := range keywords {
		for _, a := range matched {
			if matchesKeyword(a, kw) {
				hitKeywords = append(hitKeywords, kw)
				break
			}
		}
	}

	allSelectors := make([]string, len(matched))
	for i, a := range matched {
		allSelectors[i] = a.Selector
	}

	return &Pattern{
		Count:               len(matched),
		Selectors:           selectors,
		GeneralizedSelector: GeneralizeSelector(allSelectors),
		Keywords:            hitKeywords,
		SampleAction:        matched[0],
	}
}

func matchesAny(a recorder.RecordedAction, keywords []string) bool {
	for _, kw := range keywords {
		if matchesKeyword(a, kw) {
			return true
		}
	}
	return false
}

func matchesKeyword(a recorder.RecordedAction, keyword string) bool {
	kw := strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(a.Text), kw) ||
		strings.Contains(strings.ToLower(a.Selector), kw)
}

// GeneralizeSelector prefers the class fragment recurring most often
// across the observed selectors, formatted as an attribute-contains
// query. A fragment must actually recur: with only single-occurrence
// fragments there is nothing shared to generalize from, and the first
// raw selector is used verbatim. Equally frequent fragments resolve to
// the one seen first, so the result is deterministic for a fixed
// selector list.
func GeneralizeSelector(selectors []string) string {
	if len(selectors) == 0 {
		return ""
	}

	var fragments []string
	for _, sel := range selectors {
		if !strings.Contains(sel, ".") {
			continue
		}
		for _, part := range strings.Split(sel, ".")[1:] {
			// Trim descendant-combinator tails so "btn > span" doesn't
			// pollute the fragment.
			if idx := strings.IndexAny(part, " >:#["); idx >= 0 {
				part = part[:idx]
			}
			if part != "" {
				fragments = append(fragments, part)
			}
		}
	}

	if frag := mostRecurring(fragments); frag != "" {
		return `[class*="` + frag + `"]`
	}
	return selectors[0]
}

// mostRecurring returns the value with the highest count above one;
// ties keep the first-seen value. Returns "" when nothing recurs.
func mostRecurring(values []string) string {
	counts := make(map[string]int)
	best := ""
	bestCount := 1
	for _, v := range values {
		counts[v]++
		if counts[v] > bestCount {
			bestCount = counts[v]
			best = v
		}
	}
	return best
}
