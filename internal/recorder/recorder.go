// Package recorder captures user interactions from a live page into a
// capped, credential-masked action log.
package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ticketflow/internal/funnel"
	"ticketflow/internal/messaging"
	"ticketflow/internal/schedule"
)

// ScriptRunner evaluates JS in the recorded tab. Implemented by the
// browser session; fakes feed events directly in tests.
type ScriptRunner interface {
	Evaluate(ctx context.Context, script string, out interface{}) error
}

// rawEvent is the wire shape drained from the page script.
type rawEvent struct {
	Type      string            `json:"type"`
	Selector  string            `json:"selector"`
	Text      string            `json:"text"`
	Value     string            `json:"value"`
	Key       string            `json:"key"`
	InputType string            `json:"inputType"`
	FieldName string            `json:"fieldName"`
	Fields    map[string]string `json:"fields"`
	Timestamp int64             `json:"timestamp"`
	URL       string            `json:"url"`
	Mutation  *struct {
		Tags        []string `json:"tags"`
		Identifiers []string `json:"identifiers"`
	} `json:"mutation"`
}

// Recorder drives one recording session: it injects the observer
// script, drains its buffer on a fixed interval, and appends masked
// actions to the log. Mutation summaries are forwarded to the funnel
// monitor instead of the log.
type Recorder struct {
	mu        sync.Mutex
	sessionID string
	runner    ScriptRunner
	log       *Log
	clock     schedule.Clock
	interval  time.Duration
	logger    zerolog.Logger

	recording bool
	stop      func()
	relay     messaging.Sender
	mutations chan funnel.MutationSummary
}

func New(sessionID string, runner ScriptRunner, log *Log, clock schedule.Clock, interval time.Duration, logger zerolog.Logger) *Recorder {
	return &Recorder{
		sessionID: sessionID,
		runner:    runner,
		log:       log,
		clock:     clock,
		interval:  interval,
		logger:    logger.With().Str("component", "recorder").Str("session", sessionID).Logger(),
		mutations: make(chan funnel.MutationSummary, 64),
	}
}

// Mutations exposes the significant-change feed for the funnel monitor.
func (r *Recorder) Mutations() <-chan funnel.MutationSummary {
	return r.mutations
}

// Start injects the observer and begins polling.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return fmt.Errorf("recording already in progress for session %s", r.sessionID)
	}
	if err := r.runner.Evaluate(ctx, recordingScript(), nil); err != nil {
		return fmt.Errorf("failed to inject recorder script: %w", err)
	}
	r.recording = true
	r.stop = r.clock.OnInterval(ctx, r.interval, func() { r.poll(ctx) })
	r.logger.Info().Msg("recording started")
	return nil
}

// Stop ends polling. The accumulated log stays available for learning
// and export until the session is cleaned up.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return fmt.Errorf("no recording in progress for session %s", r.sessionID)
	}
	r.recording = false
	if r.stop != nil {
		r.stop()
	}
	r.logger.Info().Int("actions", r.log.Len()).Msg("recording stopped")
	return nil
}

// IsRecording reports whether the poll loop is live.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Actions returns a snapshot of the captured log.
func (r *Recorder) Actions() []RecordedAction {
	return r.log.Snapshot()
}

// SetWebSocketConnection attaches a live event relay over a websocket.
func (r *Recorder) SetWebSocketConnection(conn *websocket.Conn) {
	r.SetRelay(context.Background(), messaging.NewConnSender(conn))
}

// SetRelay attaches a live event relay and announces the session state
// to it. The announcement tells the viewer to start rendering, so it
// gets the critical-send retry treatment rather than best effort.
func (r *Recorder) SetRelay(ctx context.Context, relay messaging.Sender) {
	r.mu.Lock()
	r.relay = relay
	recording := r.recording
	r.mu.Unlock()

	msg, err := messaging.NewMessage(messaging.TypeStartMonitoring, map[string]interface{}{
		"session_id": r.sessionID,
		"recording":  recording,
	})
	if err != nil {
		return
	}
	if _, err := messaging.SendCritical(ctx, r.clock, relay, msg); err != nil {
		r.logger.Warn().Err(err).Msg("failed to announce session to relay")
	}
}

func (r *Recorder) poll(ctx context.Context) {
	var events []rawEvent
	if err := r.runner.Evaluate(ctx, drainScript, &events); err != nil {
		r.logger.Debug().Err(err).Msg("event drain failed")
		return
	}
	for _, ev := range events {
		r.ingest(ev)
	}
}

func (r *Recorder) ingest(ev rawEvent) {
	if ev.Type == "mutation" {
		if ev.Mutation == nil {
			return
		}
		summary := funnel.MutationSummary{
			Tags:        ev.Mutation.Tags,
			Identifiers: ev.Mutation.Identifiers,
		}
		select {
		case r.mutations <- summary:
		default:
			// A full channel means the monitor is behind; dropping a
			// summary only delays re-detection by one batch.
		}
		return
	}

	action := RecordedAction{
		Type:      ActionType(ev.Type),
		Timestamp: ev.Timestamp,
		Selector:  ev.Selector,
		Text:      ev.Text,
		Value:     ev.Value,
		URL:       ev.URL,
		Key:       ev.Key,
		InputType: ev.InputType,
		FieldName: ev.FieldName,
		Fields:    ev.Fields,
	}
	r.log.Append(action)

	r.mu.Lock()
	relay := r.relay
	r.mu.Unlock()
	if relay != nil {
		if msg, err := messaging.NewMessage(messaging.TypeUserEventRecorded, action); err == nil {
			messaging.SendTelemetry(context.Background(), relay, msg)
		}
	}
}
