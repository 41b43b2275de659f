package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketflow/internal/browser"
	"ticketflow/internal/dom"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		el   dom.ElementDescriptor
		role dom.Role
		want float64
	}{
		{
			name: "base only",
			el:   dom.ElementDescriptor{Tag: "div"},
			role: dom.RoleReservationButton,
			want: 0.5,
		},
		{
			name: "visible",
			el:   dom.ElementDescriptor{Tag: "div", Visible: true},
			role: dom.RoleReservationButton,
			want: 0.7,
		},
		{
			name: "visible and interactive",
			el:   dom.ElementDescriptor{Tag: "a", Visible: true, Cursor: "pointer"},
			role: dom.RoleReservationButton,
			want: 0.9,
		},
		{
			name: "one keyword hit",
			el:   dom.ElementDescriptor{Tag: "a", Text: "예매하기"},
			role: dom.RoleReservationButton,
			want: 0.6,
		},
		{
			name: "keyword bonus capped and total clamped",
			el: dom.ElementDescriptor{
				Tag: "a", Visible: true, Cursor: "pointer",
				Text: "예매 예약 구매 book reserve",
			},
			role: dom.RoleReservationButton,
			want: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.el, tt.role), 1e-9)
		})
	}
}

func TestScoreMonotonic(t *testing.T) {
	base := dom.ElementDescriptor{Tag: "button", Text: "예매"}
	withVisible := base
	withVisible.Visible = true
	withInteractive := withVisible
	withInteractive.Cursor = "pointer"

	s1 := Score(base, dom.RoleReservationButton)
	s2 := Score(withVisible, dom.RoleReservationButton)
	s3 := Score(withInteractive, dom.RoleReservationButton)

	assert.LessOrEqual(t, s1, s2, "adding a true signal never lowers the score")
	assert.LessOrEqual(t, s2, s3)
	assert.LessOrEqual(t, s3, 1.0)
}

func TestClassifyDedupeAndOrder(t *testing.T) {
	c := New(zerolog.Nop())
	page := browser.NewFakePage()

	strong := dom.ElementDescriptor{Path: "/a[1]", Tag: "a", Text: "예매하기", Visible: true, Cursor: "pointer"}
	weak := dom.ElementDescriptor{Path: "/div[2]", Tag: "div"}

	page.Selectors[`a[href*="/ticket"]`] = []dom.ElementDescriptor{strong}
	page.Selectors[`button[class*="btn"]`] = []dom.ElementDescriptor{strong, weak}

	matches := c.Classify(context.Background(), page, dom.RoleReservationButton)
	require.Len(t, matches, 2, "the same node found twice is kept once")

	assert.Equal(t, "/a[1]", matches[0].Element.Path)
	assert.Equal(t, `a[href*="/ticket"]`, matches[0].Element.FoundBy,
		"dedupe keeps the strategy that found the node first")
	assert.Equal(t, "/div[2]", matches[1].Element.Path)
	assert.Greater(t, matches[0].Confidence, matches[1].Confidence)
}

func TestClassifyStrategyErrorIsolation(t *testing.T) {
	c := New(zerolog.Nop())
	page := browser.NewFakePage()

	page.QueryErrs[`a[href*="/ticket"]`] = errors.New("evaluation failed")
	page.Selectors[`.btn`] = []dom.ElementDescriptor{{Path: "/b[1]", Tag: "button", Visible: true}}

	matches := c.Classify(context.Background(), page, dom.RoleReservationButton)
	require.Len(t, matches, 1, "a failing strategy is skipped, not fatal")
	assert.Equal(t, "/b[1]", matches[0].Element.Path)
}

func TestClassifyEqualConfidenceKeepsFoundOrder(t *testing.T) {
	c := New(zerolog.Nop())
	page := browser.NewFakePage()

	first := dom.ElementDescriptor{Path: "/a[1]", Tag: "a", Visible: true}
	second := dom.ElementDescriptor{Path: "/a[2]", Tag: "a", Visible: true}
	page.Selectors[`a[href*="/ticket"]`] = []dom.ElementDescriptor{first}
	page.Selectors[`a[href*="/goods/"]`] = []dom.ElementDescriptor{second}

	matches := c.Classify(context.Background(), page, dom.RoleReservationButton)
	require.Len(t, matches, 2)
	assert.Equal(t, "/a[1]", matches[0].Element.Path, "ties keep first-found order")
	assert.Equal(t, "/a[2]", matches[1].Element.Path)
}

func TestClassifyAllCoversEveryRole(t *testing.T) {
	c := New(zerolog.Nop())
	page := browser.NewFakePage()

	out := c.ClassifyAll(context.Background(), page)
	assert.Len(t, out, len(dom.AllRoles))
	for _, role := range dom.AllRoles {
		_, present := out[role]
		assert.True(t, present, "role %s missing from full scan", role)
	}
}
