// Package classifier scores page elements against purchase-flow roles.
// Classification is independent per role and deterministic over an
// unchanged page.
package classifier

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"ticketflow/internal/browser"
	"ticketflow/internal/dom"
)

// Confidence scoring weights. Each signal is independent and strictly
// additive, so adding a true signal never lowers a score.
const (
	baseConfidence    = 0.5
	visibleBonus      = 0.2
	interactiveBonus  = 0.2
	keywordHitBonus   = 0.1
	keywordBonusLimit = 0.3
	maxConfidence     = 1.0
)

// Match pairs an element with its confidence for one role.
type Match struct {
	Element    dom.ElementDescriptor `json:"element"`
	Role       dom.Role              `json:"role"`
	Confidence float64               `json:"confidence"`
}

// Classifier locates and scores role candidates through a page
// inspector.
type Classifier struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Classifier {
	return &Classifier{logger: logger.With().Str("component", "classifier").Logger()}
}

// Score computes the confidence for an (element, role) pair: base 0.5,
// +0.2 visible, +0.2 interactive, +0.1 per keyword hit capped at +0.3,
// clamped to 1.0.
func Score(el dom.ElementDescriptor, role dom.Role) float64 {
	confidence := baseConfidence
	if el.Visible {
		confidence += visibleBonus
	}
	if el.Interactive() {
		confidence += interactiveBonus
	}
	text := strings.ToLower(el.Text)
	hits := 0
	for _, kw := range dom.SpecFor(role).Keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			hits++
		}
	}
	bonus := keywordHitBonus * float64(hits)
	if bonus > keywordBonusLimit {
		bonus = keywordBonusLimit
	}
	confidence += bonus
	if confidence > maxConfidence {
		confidence = maxConfidence
	}
	return confidence
}

// Classify runs every selector strategy declared for the role, in
// order, and unions the results. A failing strategy is logged and
// skipped; the rest still run. Duplicate nodes keep the strategy that
// found them first, which also breaks confidence ties: output is sorted
// by confidence descending with first-found order preserved among
// equals.
func (c *Classifier) Classify(ctx context.Context, insp browser.Inspector, role dom.Role) []Match {
	spec := dom.SpecFor(role)
	seen := make(map[string]bool)
	var matches []Match

	for _, selector := range spec.Selectors {
		elements, err := insp.Query(ctx, selector)
		if err != nil {
			c.logger.Warn().Err(err).
				Str("role", string(role)).
				Str("selector", selector).
				Msg("selector strategy failed, continuing")
			continue
		}
		for _, el := range elements {
			if seen[el.Path] {
				continue
			}
			seen[el.Path] = true
			el.Text = dom.TruncateText(el.Text)
			el.FoundBy = selector
			matches = append(matches, Match{
				Element:    el,
				Role:       role,
				Confidence: Score(el, role),
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

// ClassifyAll classifies against every role in fixed order.
func (c *Classifier) ClassifyAll(ctx context.Context, insp browser.Inspector) map[dom.Role][]Match {
	out := make(map[dom.Role][]Match, len(dom.AllRoles))
	for _, role := range dom.AllRoles {
		out[role] = c.Classify(ctx, insp, role)
	}
	return out
}
