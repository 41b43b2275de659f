package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketflow/internal/browser"
	"ticketflow/internal/classifier"
	"ticketflow/internal/config"
	"ticketflow/internal/dom"
	"ticketflow/internal/schedule"
)

func newTestExecutor(clock schedule.Clock) *Executor {
	cfg := config.ExecutorConfig{
		MaxClickTries: 3,
		QueueReloads:  3,
	}
	return New(cfg, clock, classifier.New(zerolog.Nop()), zerolog.Nop())
}

func newTestRun(page browser.Page) *Run {
	return &Run{
		ID:     "test-run",
		page:   page,
		stopCh: make(chan struct{}),
	}
}

func logMessages(run *Run) string {
	var b strings.Builder
	for _, entry := range run.Logs() {
		b.WriteString(entry.Message)
		b.WriteString("\n")
	}
	return b.String()
}

func TestQueuePresent(t *testing.T) {
	ctx := context.Background()

	page := browser.NewFakePage()
	page.Body = "현재 대기열 순번은 1,234번입니다"
	assert.True(t, QueuePresent(ctx, page))

	page.Body = "좌석을 선택해 주세요"
	assert.False(t, QueuePresent(ctx, page))

	page.Body = "You are in the waiting room"
	assert.True(t, QueuePresent(ctx, page))
}

func TestHandleWaitingQueueAbsent(t *testing.T) {
	e := newTestExecutor(schedule.NewFake())
	page := browser.NewFakePage()
	page.Body = "welcome"
	run := newTestRun(page)

	assert.True(t, e.HandleWaitingQueue(context.Background(), run))
	assert.Empty(t, page.ReloadLog, "no queue means no bypass attempts")
	assert.Empty(t, page.Navigations)
}

func TestQueueBypassedByRapidReload(t *testing.T) {
	e := newTestExecutor(schedule.NewFake())
	page := browser.NewFakePage()
	page.Body = "대기열 안내"
	reloads := 0
	page.OnReload = func(bool) {
		reloads++
		if reloads == 2 {
			page.Body = "welcome"
		}
	}
	run := newTestRun(page)

	assert.True(t, e.HandleWaitingQueue(context.Background(), run))
	assert.Equal(t, []bool{false, false}, page.ReloadLog,
		"the ladder short-circuits once the queue clears")
	assert.Empty(t, page.Navigations, "later rungs never run")
	assert.Contains(t, logMessages(run), "queue bypassed by rapid reload")
}

func TestQueueBypassedByURLVariant(t *testing.T) {
	e := newTestExecutor(schedule.NewFake())
	page := browser.NewFakePage()
	page.URL = "https://www.tickets.example.com/wait"
	page.Body = "queue wall"
	page.OnNavigate = func(string) {
		page.Body = "welcome"
	}
	run := newTestRun(page)

	assert.True(t, e.HandleWaitingQueue(context.Background(), run))
	assert.Equal(t, []bool{false, false, false}, page.ReloadLog,
		"all rapid reloads run before URL variants")
	require.NotEmpty(t, page.Navigations)
	assert.Equal(t, "https://tickets.example.com/wait", page.Navigations[0],
		"the www-stripped variant is tried first")
	assert.Contains(t, logMessages(run), "queue bypassed via alternate URL")
}

func TestQueuePersists(t *testing.T) {
	e := newTestExecutor(schedule.NewFake())
	page := browser.NewFakePage()
	page.URL = "https://example.com/wait"
	page.Body = "waiting room"
	run := newTestRun(page)

	assert.False(t, e.HandleWaitingQueue(context.Background(), run))
	assert.Equal(t, []bool{false, false, false, true}, page.ReloadLog,
		"the hard reload is the last rung")
	assert.Equal(t, []string{
		"https://example.com/wait?direct=1",
		"https://example.com/wait?bypass=1",
	}, page.Navigations, "no-op variants are filtered out")
	assert.Contains(t, logMessages(run), "queue still present, continuing")
}

func TestDismissPopups(t *testing.T) {
	e := newTestExecutor(schedule.NewFake())
	page := browser.NewFakePage()
	page.Selectors[".popup-close"] = []dom.ElementDescriptor{
		{Path: "/div[1]/a", Text: "잠깐 접어두기", Visible: true},
	}
	run := newTestRun(page)

	assert.True(t, e.DismissPopups(context.Background(), run))
	assert.Equal(t, []string{"/div[1]/a"}, page.HumanClicks)
	assert.Contains(t, logMessages(run), "popup dismissed")
}

func TestDismissPopupsIgnoresNonDismissText(t *testing.T) {
	e := newTestExecutor(schedule.NewFake())
	page := browser.NewFakePage()
	page.Selectors[".popup-close"] = []dom.ElementDescriptor{
		{Path: "/div[1]/a", Text: "이벤트 보기", Visible: true},
	}
	run := newTestRun(page)

	assert.False(t, e.DismissPopups(context.Background(), run))
	assert.Empty(t, page.HumanClicks)
}

func TestURLVariants(t *testing.T) {
	variants := urlVariants("https://www.tickets.example.com/goods/1?x=1")
	assert.Equal(t, []string{
		"https://tickets.example.com/goods/1?x=1",
		"https://www.tickets.example.com/goods/1?x=1&direct=1",
		"https://www.tickets.example.com/goods/1?x=1&bypass=1",
		"https://www.ticket.example.com/goods/1?x=1",
	}, variants)
}
