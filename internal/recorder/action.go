package recorder

import (
	"strings"
	"sync"
)

// ActionType enumerates the recorded interaction kinds.
type ActionType string

const (
	ActionClick      ActionType = "click"
	ActionInput      ActionType = "input"
	ActionKeydown    ActionType = "keydown"
	ActionSubmit     ActionType = "submit"
	ActionNavigation ActionType = "navigation"
	ActionMouseMove  ActionType = "mousemove"
	ActionScroll     ActionType = "scroll"
)

const (
	MaskedPassword = "[PASSWORD]"
	MaskedValue    = "[MASKED]"
)

// RecordedAction is one immutable user interaction. Values are masked
// before the action enters the log, so nothing downstream ever sees a
// credential.
type RecordedAction struct {
	Type      ActionType        `json:"type"`
	Timestamp int64             `json:"timestamp"`
	Selector  string            `json:"selector"`
	Text      string            `json:"text,omitempty"`
	Value     string            `json:"value,omitempty"`
	URL       string            `json:"url"`
	Key       string            `json:"key,omitempty"`
	InputType string            `json:"inputType,omitempty"`
	FieldName string            `json:"fieldName,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// secretFragments mark field names whose values must be masked.
var secretFragments = []string{"password", "pass", "pwd", "secret", "token"}

// SecretField reports whether a field name suggests a credential.
func SecretField(name string) bool {
	lower := strings.ToLower(name)
	for _, frag := range secretFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// Mask scrubs credential values from an action in place. Idempotent:
// masking a masked action changes nothing.
func Mask(a *RecordedAction) {
	if a.InputType == "password" || SecretField(a.FieldName) {
		if a.Value != "" {
			a.Value = MaskedPassword
		}
	}
	for name, value := range a.Fields {
		if SecretField(name) && value != "" && value != MaskedValue {
			a.Fields[name] = MaskedValue
		}
	}
}

// Log is the append-only capped action log. When an append pushes the
// length past the cap the oldest half is evicted in one step, a
// FIFO-ish policy that favors simplicity over precision.
type Log struct {
	mu      sync.RWMutex
	actions []RecordedAction
	cap     int
	evictTo int
}

// NewLog builds a log with the given cap and post-eviction size.
// Non-positive values fall back to 1000/500.
func NewLog(capacity, evictTo int) *Log {
	if capacity <= 0 {
		capacity = 1000
	}
	if evictTo <= 0 || evictTo > capacity {
		evictTo = capacity / 2
	}
	return &Log{cap: capacity, evictTo: evictTo}
}

// Append masks and stores one action. Eviction triggers only once the
// length exceeds the cap, so a log sitting exactly at cap is untouched.
func (l *Log) Append(a RecordedAction) {
	Mask(&a)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, a)
	if len(l.actions) > l.cap {
		kept := l.actions[len(l.actions)-l.evictTo:]
		l.actions = append(make([]RecordedAction, 0, len(kept)), kept...)
	}
}

// Snapshot returns a copy of the log in order.
func (l *Log) Snapshot() []RecordedAction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]RecordedAction(nil), l.actions...)
}

// Len returns the current entry count.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.actions)
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = nil
}
