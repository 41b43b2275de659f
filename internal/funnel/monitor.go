package funnel

import (
	"context"
	"strings"
	"time"

	"ticketflow/internal/browser"
	"ticketflow/internal/schedule"
)

// Significance filter for mutation batches. Only changes touching these
// tags or class/id keywords trigger re-detection; everything else is
// layout noise.
var (
	watchedTags     = map[string]bool{"button": true, "a": true, "input": true, "select": true, "form": true}
	watchedKeywords = []string{"seat", "ticket", "booking", "payment", "login", "order", "confirm"}
)

// MutationSummary is a condensed batch of DOM changes.
type MutationSummary struct {
	Tags        []string
	Identifiers []string // class names and ids of touched nodes
}

// Significant reports whether a mutation batch warrants re-running
// stage detection.
func Significant(ms MutationSummary) bool {
	for _, tag := range ms.Tags {
		if watchedTags[strings.ToLower(tag)] {
			return true
		}
	}
	for _, ident := range ms.Identifiers {
		lower := strings.ToLower(ident)
		for _, kw := range watchedKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// Monitor re-evaluates the funnel stage on URL changes and significant
// DOM mutations, polling on a fixed interval.
type Monitor struct {
	machine *Machine
	page    browser.Page
	clock   schedule.Clock
	period  time.Duration

	lastURL string
	// mutations delivers pre-filtered summaries, e.g. from the recorder
	// script's observer. May be nil; URL polling still runs.
	mutations <-chan MutationSummary
}

func NewMonitor(machine *Machine, page browser.Page, clock schedule.Clock, period time.Duration, mutations <-chan MutationSummary) *Monitor {
	return &Monitor{
		machine:   machine,
		page:      page,
		clock:     clock,
		period:    period,
		mutations: mutations,
	}
}

// Run blocks until ctx is done, re-detecting the stage on every trigger.
// Interval ticks are funneled into the select loop so lastURL is only
// ever touched from this goroutine.
func (m *Monitor) Run(ctx context.Context) {
	ticks := make(chan struct{}, 1)
	stop := m.clock.OnInterval(ctx, m.period, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})
	defer stop()

	m.pollURL(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			m.pollURL(ctx)
		case ms, ok := <-m.mutations:
			if !ok {
				<-ctx.Done()
				return
			}
			if Significant(ms) {
				m.detect(ctx)
			}
		}
	}
}

func (m *Monitor) pollURL(ctx context.Context) {
	url, err := m.page.CurrentURL(ctx)
	if err != nil || url == m.lastURL {
		return
	}
	m.lastURL = url
	m.machine.Detect(ctx, url, m.page)
}

func (m *Monitor) detect(ctx context.Context) {
	url, err := m.page.CurrentURL(ctx)
	if err != nil {
		return
	}
	m.lastURL = url
	m.machine.Detect(ctx, url, m.page)
}
