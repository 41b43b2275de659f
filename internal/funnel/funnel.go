// Package funnel classifies the current page into a purchase-funnel
// stage and tracks effective stage transitions.
package funnel

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ticketflow/internal/browser"
)

// Stage is one discrete phase of the purchase flow.
type Stage string

const (
	StageUnknown        Stage = "unknown"
	StageLogin          Stage = "login"
	StageEventSelection Stage = "event_selection"
	StageSeatSelection  Stage = "seat_selection"
	StagePayment        Stage = "payment"
	StageConfirmation   Stage = "confirmation"
)

// Transition is one effective stage change.
type Transition struct {
	Stage     Stage     `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
}

// Listener receives stage-change notifications. Dispatch is synchronous
// and in registration order; a panicking listener is isolated and does
// not block the rest.
type Listener func(Transition)

// urlRule maps URL substrings to a stage. Rules run in order; the first
// hit wins. URL rules run before DOM rules because the URL is the
// cheapest and most specific signal.
type urlRule struct {
	keywords []string
	stage    Stage
}

var urlRules = []urlRule{
	{[]string{"login", "signin"}, StageLogin},
	{[]string{"seat", "booking"}, StageSeatSelection},
	{[]string{"payment", "order"}, StagePayment},
	{[]string{"confirm", "complete"}, StageConfirmation},
}

// domRule declares selectors whose presence indicates a stage. For
// login both selectors must be present (password plus identifier); all
// other rules need any one hit.
type domRule struct {
	selectors  []string
	requireAll bool
	stage      Stage
}

var domRules = []domRule{
	{[]string{`input[type="password"]`, `input[type="email"], input[name*="id"]`}, true, StageLogin},
	{[]string{`.seat, [class*="seat"]`, `.seat-map, .booking-area`}, false, StageSeatSelection},
	{[]string{`input[name*="card"]`, `.payment, .checkout`}, false, StagePayment},
	{[]string{`.ticket, .booking, .event`}, false, StageEventSelection},
}

// Machine holds the current funnel stage and its transition history.
// Detections are applied, never commanded: an unknown detection is
// discarded so layout churn cannot reset a known stage.
type Machine struct {
	mu        sync.RWMutex
	current   Stage
	history   []Transition
	listeners []Listener
	logger    zerolog.Logger
}

func NewMachine(logger zerolog.Logger) *Machine {
	return &Machine{
		current: StageUnknown,
		logger:  logger.With().Str("component", "funnel").Logger(),
	}
}

// Subscribe registers a stage-change listener. Listeners fire in
// registration order.
func (m *Machine) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Current returns the present stage.
func (m *Machine) Current() Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// History returns a copy of the effective transitions in order.
func (m *Machine) History() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Transition(nil), m.history...)
}

// Detect classifies the page and applies the result. It returns the
// effective stage after evaluation. Unknown detections and repeats of
// the current stage are no-ops.
func (m *Machine) Detect(ctx context.Context, pageURL string, insp browser.Inspector) Stage {
	detected := DetectStage(ctx, pageURL, insp)
	return m.apply(detected, pageURL)
}

func (m *Machine) apply(detected Stage, pageURL string) Stage {
	m.mu.Lock()
	if detected == StageUnknown || detected == m.current {
		current := m.current
		m.mu.Unlock()
		return current
	}

	m.current = detected
	tr := Transition{Stage: detected, Timestamp: time.Now(), URL: pageURL}
	m.history = append(m.history, tr)
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	m.logger.Info().Str("stage", string(detected)).Str("url", pageURL).Msg("funnel stage changed")
	for _, l := range listeners {
		m.dispatch(l, tr)
	}
	return detected
}

func (m *Machine) dispatch(l Listener, tr Transition) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("stage listener panicked")
		}
	}()
	l(tr)
}

// DetectStage classifies a page without touching machine state: URL
// rules first, DOM rules when every URL rule misses. Selector errors on
// a DOM rule score as absent.
func DetectStage(ctx context.Context, pageURL string, insp browser.Inspector) Stage {
	lower := strings.ToLower(pageURL)
	for _, rule := range urlRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.stage
			}
		}
	}

	if insp == nil {
		return StageUnknown
	}
	for _, rule := range domRules {
		if matchDOMRule(ctx, insp, rule) {
			return rule.stage
		}
	}
	return StageUnknown
}

func matchDOMRule(ctx context.Context, insp browser.Inspector, rule domRule) bool {
	for _, sel := range rule.selectors {
		found, err := insp.Exists(ctx, sel)
		if err != nil {
			found = false
		}
		if rule.requireAll && !found {
			return false
		}
		if !rule.requireAll && found {
			return true
		}
	}
	return rule.requireAll
}
