package funnel

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketflow/internal/browser"
	"ticketflow/internal/dom"
)

func TestDetectStageURLRules(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Stage
	}{
		{"login path", "https://t.example.com/login", StageLogin},
		{"signin path", "https://t.example.com/member/signin", StageLogin},
		{"seat path", "https://t.example.com/seat/map", StageSeatSelection},
		{"booking path", "https://t.example.com/booking/1", StageSeatSelection},
		{"payment path", "https://t.example.com/payment", StagePayment},
		{"order path", "https://t.example.com/order/checkout", StagePayment},
		{"confirmation path", "https://t.example.com/confirm", StageConfirmation},
		{"completion path", "https://t.example.com/complete", StageConfirmation},
		{"first rule wins", "https://t.example.com/login?next=/payment", StageLogin},
		{"no rule and no page", "https://t.example.com/main", StageUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectStage(context.Background(), tt.url, nil))
		})
	}
}

func TestDetectStageDOMRules(t *testing.T) {
	el := []dom.ElementDescriptor{{Path: "x", Visible: true}}

	t.Run("login needs password and identifier", func(t *testing.T) {
		page := browser.NewFakePage()
		page.Selectors[`input[type="password"]`] = el
		assert.NotEqual(t, StageLogin,
			DetectStage(context.Background(), "https://t.example.com/main", page),
			"password alone is not a login page")

		page.Selectors[`input[type="email"], input[name*="id"]`] = el
		assert.Equal(t, StageLogin,
			DetectStage(context.Background(), "https://t.example.com/main", page))
	})

	t.Run("any seat selector suffices", func(t *testing.T) {
		page := browser.NewFakePage()
		page.Selectors[`.seat, [class*="seat"]`] = el
		assert.Equal(t, StageSeatSelection,
			DetectStage(context.Background(), "https://t.example.com/main", page))
	})

	t.Run("event selection from listing markup", func(t *testing.T) {
		page := browser.NewFakePage()
		page.Selectors[`.ticket, .booking, .event`] = el
		assert.Equal(t, StageEventSelection,
			DetectStage(context.Background(), "https://t.example.com/main", page))
	})

	t.Run("bare page stays unknown", func(t *testing.T) {
		page := browser.NewFakePage()
		assert.Equal(t, StageUnknown,
			DetectStage(context.Background(), "https://t.example.com/main", page))
	})
}

func TestMachineUnknownNeverOverwrites(t *testing.T) {
	m := NewMachine(zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, StageUnknown, m.Current())

	m.Detect(ctx, "https://t.example.com/login", nil)
	assert.Equal(t, StageLogin, m.Current())

	// Two unknown detections in a row must not reset the stage.
	m.Detect(ctx, "https://t.example.com/somewhere", nil)
	m.Detect(ctx, "https://t.example.com/elsewhere", nil)
	assert.Equal(t, StageLogin, m.Current())

	m.Detect(ctx, "https://t.example.com/seat/map", nil)
	assert.Equal(t, StageSeatSelection, m.Current())

	history := m.History()
	require.Len(t, history, 2, "only effective transitions are recorded")
	assert.Equal(t, StageLogin, history[0].Stage)
	assert.Equal(t, StageSeatSelection, history[1].Stage)
}

func TestMachineRepeatIsNoOp(t *testing.T) {
	m := NewMachine(zerolog.Nop())
	ctx := context.Background()

	m.Detect(ctx, "https://t.example.com/login", nil)
	m.Detect(ctx, "https://t.example.com/login?retry=1", nil)

	assert.Len(t, m.History(), 1)
}

func TestMachineListeners(t *testing.T) {
	m := NewMachine(zerolog.Nop())

	var order []string
	m.Subscribe(func(Transition) { order = append(order, "first") })
	m.Subscribe(func(Transition) { panic("listener bug") })
	m.Subscribe(func(tr Transition) {
		order = append(order, "third")
		assert.Equal(t, StageLogin, tr.Stage)
		assert.Equal(t, "https://t.example.com/login", tr.URL)
	})

	m.Detect(context.Background(), "https://t.example.com/login", nil)

	assert.Equal(t, []string{"first", "third"}, order,
		"a panicking listener must not block the rest")
}
