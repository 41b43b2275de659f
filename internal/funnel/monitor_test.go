package funnel

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketflow/internal/browser"
	"ticketflow/internal/schedule"
)

func TestSignificant(t *testing.T) {
	tests := []struct {
		name string
		ms   MutationSummary
		want bool
	}{
		{"watched tag", MutationSummary{Tags: []string{"BUTTON"}}, true},
		{"watched identifier", MutationSummary{Identifiers: []string{"seat-map-overlay"}}, true},
		{"layout noise", MutationSummary{Tags: []string{"div", "span"}, Identifiers: []string{"banner"}}, false},
		{"empty batch", MutationSummary{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Significant(tt.ms))
		})
	}
}

func TestMonitorDetectsOnURLChangeAndMutation(t *testing.T) {
	machine := NewMachine(zerolog.Nop())
	page := browser.NewFakePage()
	page.URL = "https://tickets.example.com/login"
	clock := schedule.NewFake()
	mutations := make(chan MutationSummary)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewMonitor(machine, page, clock, 100*time.Millisecond, mutations)
	go m.Run(ctx)

	// The initial poll picks up the starting URL.
	require.Eventually(t, func() bool {
		return machine.Current() == StageLogin
	}, 2*time.Second, 5*time.Millisecond)

	// A significant mutation forces re-detection of the new page.
	page.URL = "https://tickets.example.com/seat/select"
	mutations <- MutationSummary{Tags: []string{"button"}}
	require.Eventually(t, func() bool {
		return machine.Current() == StageSeatSelection
	}, 2*time.Second, 5*time.Millisecond)

	// Noise batches do not trigger detection.
	page.URL = "https://tickets.example.com/payment"
	mutations <- MutationSummary{Tags: []string{"div"}}
	assert.Equal(t, StageSeatSelection, machine.Current())

	// The interval poll catches the URL change instead.
	clock.Tick()
	require.Eventually(t, func() bool {
		return machine.Current() == StagePayment
	}, 2*time.Second, 5*time.Millisecond)

	history := machine.History()
	require.Len(t, history, 3)
	assert.Equal(t, StageLogin, history[0].Stage)
	assert.Equal(t, StagePayment, history[2].Stage)
}

func TestMonitorConcurrentTicksAndMutations(t *testing.T) {
	machine := NewMachine(zerolog.Nop())
	page := browser.NewFakePage()
	page.URL = "https://tickets.example.com/login"
	mutations := make(chan MutationSummary)

	ctx, cancel := context.WithCancel(context.Background())
	m := NewMonitor(machine, page, schedule.Real{}, time.Millisecond, mutations)
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	// Hammer the mutation feed while the real clock fires interval
	// polls; detection state must stay consistent throughout.
	deadline := time.After(50 * time.Millisecond)
feed:
	for {
		select {
		case mutations <- MutationSummary{Tags: []string{"button"}}:
		case <-deadline:
			break feed
		}
	}
	cancel()
	<-done

	assert.Equal(t, StageLogin, machine.Current())
	assert.Len(t, machine.History(), 1)
}
