package learner

import (
	"time"

	"ticketflow/internal/recorder"
)

// PatternSet is one full learning pass: per-intent patterns, the
// navigation flow, and timing statistics. Intents never observed are
// absent from the map.
type PatternSet struct {
	Patterns  map[Intent]*Pattern `json:"patterns"`
	URLFlow   []URLStep           `json:"urlFlow"`
	Timing    *Timing             `json:"timing"`
	LearnedAt time.Time           `json:"learnedAt"`
}

// Learn runs extraction for every intent over the full action log.
// An empty log produces a set with no patterns and no timing, which the
// executor treats as "nothing to automate".
func Learn(actions []recorder.RecordedAction) *PatternSet {
	set := &PatternSet{
		Patterns:  make(map[Intent]*Pattern),
		URLFlow:   AnalyzeURLFlow(actions),
		Timing:    AnalyzeTiming(actions),
		LearnedAt: time.Now(),
	}
	for _, intent := range AllIntents {
		if p := Extract(actions, intent); p != nil {
			set.Patterns[intent] = p
		}
	}
	return set
}

// Get returns the pattern for an intent, nil when absent.
func (s *PatternSet) Get(intent Intent) *Pattern {
	if s == nil {
		return nil
	}
	return s.Patterns[intent]
}

// Selectors returns the candidate selectors for an intent: the
// generalized selector first, then the distinct raw observations.
func (s *PatternSet) Selectors(intent Intent) []string {
	p := s.Get(intent)
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Selectors)+1)
	if p.GeneralizedSelector != "" {
		out = append(out, p.GeneralizedSelector)
	}
	for _, sel := range p.Selectors {
		if sel != p.GeneralizedSelector {
			out = append(out, sel)
		}
	}
	return out
}
