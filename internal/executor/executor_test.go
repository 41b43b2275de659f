package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketflow/internal/browser"
	"ticketflow/internal/classifier"
	"ticketflow/internal/config"
	"ticketflow/internal/dom"
	"ticketflow/internal/learner"
	"ticketflow/internal/schedule"
	"ticketflow/internal/sites"
)

func testSite() *sites.Profile {
	return &sites.Profile{Name: "Interpark", Domains: []string{"tickets.interpark.com"}}
}

func waitForState(t *testing.T, run *Run, want RunState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return run.State() == want
	}, 2*time.Second, 5*time.Millisecond, "run never reached state %s", want)
}

func TestStartRunRequiresSite(t *testing.T) {
	e := newTestExecutor(schedule.NewFake())

	_, err := e.StartRun(context.Background(), browser.NewFakePage(), RunConfig{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site profile")
}

func TestRunCompletesOnConfirmationPage(t *testing.T) {
	e := newTestExecutor(schedule.NewFake())
	page := browser.NewFakePage()
	page.URL = "https://tickets.interpark.com/complete"

	run, err := e.StartRun(context.Background(), page, RunConfig{Site: testSite()}, nil)
	require.NoError(t, err)

	waitForState(t, run, StateCompleted)
	assert.Contains(t, logMessages(run), "confirmation page reached")
	assert.Empty(t, run.Fault())
}

func TestRunStopsAtLoopBoundary(t *testing.T) {
	e := newTestExecutor(schedule.NewFake())
	page := browser.NewFakePage()
	page.URL = "https://tickets.interpark.com/somewhere"

	run, err := e.StartRun(context.Background(), page, RunConfig{Site: testSite()}, nil)
	require.NoError(t, err)

	require.NoError(t, e.StopRun(run.ID))
	waitForState(t, run, StateStopped)
	assert.Contains(t, logMessages(run), "automation stopped by request")

	// A second stop request is a no-op, not a panic.
	require.NoError(t, e.StopRun(run.ID))
}

func TestPaymentPageIsTerminalWithoutClicking(t *testing.T) {
	e := newTestExecutor(schedule.NewFake())
	page := browser.NewFakePage()
	page.URL = "https://tickets.interpark.com/payment"

	run, err := e.StartRun(context.Background(), page, RunConfig{Site: testSite()}, nil)
	require.NoError(t, err)

	waitForState(t, run, StateCompleted)
	assert.Contains(t, logMessages(run), "complete the purchase manually")
	assert.Empty(t, page.HumanClicks, "payment submission is always manual")
	assert.Empty(t, page.Dispatches)
	assert.Empty(t, page.DirectHits)
}

func TestRunFaultsWhenPageHandleLost(t *testing.T) {
	e := newTestExecutor(schedule.NewFake())
	page := browser.NewFakePage()
	page.URL = "https://tickets.interpark.com/goods/1"

	ctx, cancel := context.WithCancel(context.Background())
	run, err := e.StartRun(ctx, page, RunConfig{Site: testSite()}, nil)
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool {
		s := run.State()
		return s == StateStopped || s == StateFaulted
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDefaultRefreshIntervalFromTiming(t *testing.T) {
	e := newTestExecutor(schedule.NewFake())
	page := browser.NewFakePage()
	page.URL = "https://tickets.interpark.com/complete"

	patterns := &learner.PatternSet{
		Patterns: map[learner.Intent]*learner.Pattern{},
		Timing:   &learner.Timing{RecommendedDelay: 1400},
	}
	run, err := e.StartRun(context.Background(), page, RunConfig{
		Site:     testSite(),
		Patterns: patterns,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1400*time.Millisecond, run.config.RefreshInterval)
	waitForState(t, run, StateCompleted)
}

func TestGetRunAndRuns(t *testing.T) {
	e := newTestExecutor(schedule.NewFake())
	page := browser.NewFakePage()
	page.URL = "https://tickets.interpark.com/complete"

	run, err := e.StartRun(context.Background(), page, RunConfig{Site: testSite()}, nil)
	require.NoError(t, err)

	got, ok := e.GetRun(run.ID)
	require.True(t, ok)
	assert.Same(t, run, got)

	_, ok = e.GetRun("missing")
	assert.False(t, ok)
	assert.Error(t, e.StopRun("missing"))

	assert.Len(t, e.Runs(), 1)
	waitForState(t, run, StateCompleted)
}

func TestRunLogCallback(t *testing.T) {
	e := newTestExecutor(schedule.NewFake())
	page := browser.NewFakePage()
	page.URL = "https://tickets.interpark.com/complete"

	var sink logSink
	run, err := e.StartRun(context.Background(), page, RunConfig{Site: testSite()}, sink.add)
	require.NoError(t, err)

	waitForState(t, run, StateCompleted)
	require.Eventually(t, func() bool {
		return sink.contains("confirmation page reached")
	}, 2*time.Second, 5*time.Millisecond)
}

// logSink collects onLog callbacks across goroutines.
type logSink struct {
	mu      sync.Mutex
	entries []RunLog
}

func (s *logSink) add(entry RunLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *logSink) contains(substr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.entries {
		if strings.Contains(entry.Message, substr) {
			return true
		}
	}
	return false
}

// deadlinePage records whether calls arrive under a context deadline.
type deadlinePage struct {
	*browser.FakePage
	sawDeadline bool
}

func (p *deadlinePage) CurrentURL(ctx context.Context) (string, error) {
	_, p.sawDeadline = ctx.Deadline()
	return p.FakePage.CurrentURL(ctx)
}

func TestStepRunsUnderDeadline(t *testing.T) {
	e := newTestExecutor(schedule.NewFake())
	page := &deadlinePage{FakePage: browser.NewFakePage()}
	page.URL = "https://tickets.interpark.com/complete"

	run := newTestRun(page)
	done := e.step(context.Background(), run)

	assert.True(t, done)
	assert.True(t, page.sawDeadline, "page calls must carry the step deadline")
	assert.Equal(t, StateCompleted, run.State())
}

// stallPage never answers until its context expires.
type stallPage struct {
	*browser.FakePage
}

func (p *stallPage) CurrentURL(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestStepDeadlineExpiryRetriesInsteadOfFaulting(t *testing.T) {
	e := New(config.ExecutorConfig{StepTimeout: 20 * time.Millisecond}, schedule.NewFake(),
		classifier.New(zerolog.Nop()), zerolog.Nop())
	page := &stallPage{FakePage: browser.NewFakePage()}

	run := newTestRun(page)
	done := e.step(context.Background(), run)

	assert.False(t, done, "an expired step is retried, not terminal")
	assert.NotEqual(t, StateFaulted, run.State())
	assert.Contains(t, logMessages(run), "step deadline exceeded, retrying")
}

// flakyClickPage rejects the pointer gesture a fixed number of times.
type flakyClickPage struct {
	*browser.FakePage
	rejections int
}

func (p *flakyClickPage) HumanClick(ctx context.Context, el dom.ElementDescriptor) error {
	if p.rejections > 0 {
		p.rejections--
		return errors.New("element not interactable")
	}
	return p.FakePage.HumanClick(ctx, el)
}

func TestClickRetriesUntilElementInteractable(t *testing.T) {
	clock := schedule.NewFake()
	e := newTestExecutor(clock)
	fake := browser.NewFakePage()
	fake.FailDispatch = true
	fake.FailDirect = true
	page := &flakyClickPage{FakePage: fake, rejections: 2}

	run := newTestRun(page)
	err := e.click(context.Background(), run, dom.ElementDescriptor{Path: "#buy", Visible: true})

	require.NoError(t, err)
	assert.Equal(t, []string{"#buy"}, fake.HumanClicks)
	assert.Equal(t, []time.Duration{300 * time.Millisecond, 300 * time.Millisecond}, clock.Waits())
	assert.Contains(t, logMessages(run), "click attempt 3/3")
}

func TestClickExhaustsConfiguredTries(t *testing.T) {
	clock := schedule.NewFake()
	e := newTestExecutor(clock)
	page := browser.NewFakePage()
	page.FailHumanClick = true
	page.FailDispatch = true
	page.FailDirect = true

	run := newTestRun(page)
	err := e.click(context.Background(), run, dom.ElementDescriptor{Path: "#buy", Visible: true})

	require.Error(t, err)
	assert.Contains(t, logMessages(run), "click attempt 3/3")
	assert.Empty(t, page.HumanClicks)
	assert.Empty(t, page.DirectHits)
}

// latePage hides its elements for the first few queries.
type latePage struct {
	*browser.FakePage
	hidden int
}

func (p *latePage) Query(ctx context.Context, selector string) ([]dom.ElementDescriptor, error) {
	if p.hidden > 0 {
		p.hidden--
		return nil, nil
	}
	return p.FakePage.Query(ctx, selector)
}

func TestAwaitElementPollsForLateElement(t *testing.T) {
	clock := schedule.NewFake()
	e := newTestExecutor(clock)
	fake := browser.NewFakePage()
	fake.Selectors[".seat"] = []dom.ElementDescriptor{{Path: ".seat", Visible: true}}
	page := &latePage{FakePage: fake, hidden: 3}

	el, ok := e.awaitElement(context.Background(), page, []string{".seat"})

	require.True(t, ok)
	assert.Equal(t, ".seat", el.Path)
	assert.Equal(t, []time.Duration{
		500 * time.Millisecond, 500 * time.Millisecond, 500 * time.Millisecond,
	}, clock.Waits())
}

func TestAwaitElementGivesUpAtDeadline(t *testing.T) {
	clock := schedule.NewFake()
	e := newTestExecutor(clock)
	page := browser.NewFakePage()

	_, ok := e.awaitElement(context.Background(), page, []string{".never"})

	assert.False(t, ok)
	assert.NotEmpty(t, clock.Waits(), "misses poll under the element deadline instead of failing instantly")
}

func TestRunLogsEvictOldEntries(t *testing.T) {
	run := newTestRun(browser.NewFakePage())
	for i := 0; i < 1001; i++ {
		run.addLog("info", fmt.Sprintf("entry %d", i))
	}

	logs := run.Logs()
	require.Len(t, logs, 500)
	assert.Equal(t, "entry 501", logs[0].Message)
	assert.Equal(t, "entry 1000", logs[len(logs)-1].Message)
}
