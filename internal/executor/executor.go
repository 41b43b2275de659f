// Package executor replays learned patterns against a live ticketing
// page: it walks the funnel stage by stage, synthesizing humanized
// interactions, and stops before payment submission.
package executor

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ticketflow/internal/browser"
	"ticketflow/internal/classifier"
	"ticketflow/internal/config"
	"ticketflow/internal/funnel"
	"ticketflow/internal/learner"
	"ticketflow/internal/schedule"
	"ticketflow/internal/sites"
)

// RunState is the lifecycle of one automation run.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateStopped   RunState = "stopped"
	StateCompleted RunState = "completed"
	StateFaulted   RunState = "faulted"
)

// RunLog is one categorized activity-feed line.
type RunLog struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Credentials feed the login step. The password never enters run logs.
type Credentials struct {
	Username string
	Password string
}

// RunConfig is everything one run needs: the site, the learned
// patterns, and login credentials.
type RunConfig struct {
	Site        *sites.Profile
	Patterns    *learner.PatternSet
	Credentials Credentials
	// RefreshInterval paces the outer loop between funnel attempts.
	RefreshInterval time.Duration
}

// Run is one live automation. State moves idle -> running ->
// (stopped | completed | faulted); stop requests take effect at the
// next loop boundary, never mid-gesture.
type Run struct {
	ID     string
	page   browser.Page
	config RunConfig

	mu     sync.RWMutex
	state  RunState
	fault  string
	logs   []RunLog
	stopCh chan struct{}
	once   sync.Once

	onLog func(RunLog)
}

// State returns the run's current lifecycle state.
func (r *Run) State() RunState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Fault returns the fault reason for a faulted run.
func (r *Run) Fault() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fault
}

// Logs returns a copy of the activity feed so far.
func (r *Run) Logs() []RunLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]RunLog(nil), r.logs...)
}

func (r *Run) setState(s RunState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run logs follow the recorder's eviction discipline so week-long runs
// don't grow without bound.
const (
	runLogCap     = 1000
	runLogEvictTo = 500
)

func (r *Run) addLog(level, message string) {
	entry := RunLog{Timestamp: time.Now(), Level: level, Message: message}
	r.mu.Lock()
	r.logs = append(r.logs, entry)
	if len(r.logs) > runLogCap {
		r.logs = append([]RunLog(nil), r.logs[len(r.logs)-runLogEvictTo:]...)
	}
	onLog := r.onLog
	r.mu.Unlock()
	if onLog != nil {
		onLog(entry)
	}
}

func (r *Run) stopRequested() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

// Executor owns the automation runs. Dependencies are injected so tests
// drive it with fake pages and a fake clock.
type Executor struct {
	cfg    config.ExecutorConfig
	clock  schedule.Clock
	cls    *classifier.Classifier
	logger zerolog.Logger

	mu   sync.RWMutex
	runs map[string]*Run
}

func New(cfg config.ExecutorConfig, clock schedule.Clock, cls *classifier.Classifier, logger zerolog.Logger) *Executor {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 30 * time.Second
	}
	if cfg.ElementTimeout <= 0 {
		cfg.ElementTimeout = 10 * time.Second
	}
	if cfg.MaxClickTries <= 0 {
		cfg.MaxClickTries = 1
	}
	if cfg.QueueReloads <= 0 {
		cfg.QueueReloads = 3
	}
	return &Executor{
		cfg:    cfg,
		clock:  clock,
		cls:    cls,
		logger: logger.With().Str("component", "executor").Logger(),
		runs:   make(map[string]*Run),
	}
}

// StartRun begins a new automation on the given page and returns
// immediately; the flow loop runs in its own goroutine.
func (e *Executor) StartRun(ctx context.Context, page browser.Page, runCfg RunConfig, onLog func(RunLog)) (*Run, error) {
	if runCfg.Site == nil {
		return nil, fmt.Errorf("run requires a resolved site profile")
	}
	if runCfg.Patterns == nil {
		runCfg.Patterns = &learner.PatternSet{Patterns: map[learner.Intent]*learner.Pattern{}}
	}
	if runCfg.RefreshInterval <= 0 {
		runCfg.RefreshInterval = runCfg.Patterns.Timing.Recommended(2 * time.Second)
	}

	run := &Run{
		ID:     uuid.New().String(),
		page:   page,
		config: runCfg,
		state:  StateIdle,
		stopCh: make(chan struct{}),
		onLog:  onLog,
	}

	e.mu.Lock()
	e.runs[run.ID] = run
	e.mu.Unlock()

	go e.loop(ctx, run)
	return run, nil
}

// StopRun requests a stop; the run finishes its current step first.
func (e *Executor) StopRun(runID string) error {
	e.mu.RLock()
	run, ok := e.runs[runID]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}
	run.once.Do(func() { close(run.stopCh) })
	return nil
}

// GetRun returns a run by id.
func (e *Executor) GetRun(runID string) (*Run, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	run, ok := e.runs[runID]
	return run, ok
}

// Runs returns a snapshot of all known runs, live and finished.
func (e *Executor) Runs() []*Run {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Run, 0, len(e.runs))
	for _, run := range e.runs {
		out = append(out, run)
	}
	return out
}

// loop is the outer control flow: obstructions first, then a stage
// handler chosen by the current URL, then a reload and a paced wait.
// Only unexpected panics fault the run; a handler that cannot find its
// target reports a structured failure and the loop retries.
func (e *Executor) loop(ctx context.Context, run *Run) {
	defer func() {
		if r := recover(); r != nil {
			run.mu.Lock()
			run.state = StateFaulted
			run.fault = fmt.Sprintf("panic: %v", r)
			run.mu.Unlock()
			run.addLog("error", fmt.Sprintf("run faulted: %v", r))
			e.logger.Error().Str("run", run.ID).Interface("panic", r).Msg("automation run faulted")
		}
	}()

	run.setState(StateRunning)
	run.addLog("info", "automation started for site "+run.config.Site.Name)

	for {
		if run.stopRequested() {
			run.setState(StateStopped)
			run.addLog("info", "automation stopped by request")
			return
		}
		if ctx.Err() != nil {
			run.setState(StateStopped)
			run.addLog("warning", "automation context cancelled")
			return
		}
		if e.step(ctx, run) {
			return
		}
	}
}

// step runs one funnel iteration under the configured step deadline so
// a page that never settles can't wedge the loop past a stop request.
// The boolean return marks terminal outcomes.
func (e *Executor) step(ctx context.Context, run *Run) bool {
	stepCtx, cancel := context.WithTimeout(ctx, e.cfg.StepTimeout)
	defer cancel()

	currentURL, err := run.page.CurrentURL(stepCtx)
	if err != nil {
		if stepCtx.Err() != nil && ctx.Err() == nil {
			run.addLog("warning", "step deadline exceeded, retrying")
			return false
		}
		run.mu.Lock()
		run.state = StateFaulted
		run.fault = err.Error()
		run.mu.Unlock()
		run.addLog("error", "page handle lost: "+err.Error())
		return true
	}
	run.addLog("info", "current page: "+currentURL)

	e.DismissPopups(stepCtx, run)
	e.HandleWaitingQueue(stepCtx, run)

	stage := funnel.DetectStage(stepCtx, currentURL, run.page)
	done, result := e.dispatchStage(stepCtx, run, stage, currentURL)
	if done {
		return true
	}
	if result.Success {
		_ = e.clock.Wait(ctx, 2*time.Second)
		return false
	}
	if result.Reason != "" {
		run.addLog("warning", result.Reason)
	}

	if err := run.page.Reload(stepCtx, false); err != nil {
		run.addLog("warning", "reload failed: "+err.Error())
	}
	_ = e.clock.Wait(ctx, run.config.RefreshInterval)
	return false
}

// dispatchStage routes to the handler for the detected stage. The
// boolean return marks terminal outcomes.
func (e *Executor) dispatchStage(ctx context.Context, run *Run, stage funnel.Stage, currentURL string) (bool, StepResult) {
	switch {
	case stage == funnel.StageLogin:
		return false, e.fillLogin(ctx, run)
	case stage == funnel.StagePayment:
		// Reaching payment is the goal; entry stops here, submission is
		// always manual.
		run.addLog("success", "payment page reached, complete the purchase manually")
		e.fillPaymentContact(ctx, run)
		run.setState(StateCompleted)
		return true, StepResult{Success: true}
	case stage == funnel.StageSeatSelection:
		return false, e.selectSeats(ctx, run)
	case stage == funnel.StageConfirmation:
		run.addLog("success", "confirmation page reached")
		run.setState(StateCompleted)
		return true, StepResult{Success: true}
	case stage == funnel.StageEventSelection ||
		strings.Contains(strings.ToLower(currentURL), "goods") ||
		strings.Contains(strings.ToLower(currentURL), "ticket"):
		return false, e.tryBooking(ctx, run)
	default:
		return false, StepResult{Success: false, Reason: "page stage unknown, reloading"}
	}
}

func randJitter(max time.Duration) time.Duration {
	return time.Duration(rand.Int63n(int64(max)))
}
