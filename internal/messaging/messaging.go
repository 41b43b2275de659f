// Package messaging relays typed state and events between the in-page
// observer side and the out-of-page controller. Requests get exactly
// one response; state-critical sends retry on a dead receiver, telemetry
// is fire-and-forget.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ticketflow/internal/schedule"
)

// MessageType enumerates the channel's message vocabulary.
type MessageType string

const (
	TypeLoginStatusChanged MessageType = "login-status-changed"
	TypeUserEventRecorded  MessageType = "user-event-recorded"
	TypeDOMAnalysisResult  MessageType = "dom-analysis-result"
	TypeStartMonitoring    MessageType = "start-monitoring"
	TypeStopMonitoring     MessageType = "stop-monitoring"
	TypeGetRequests        MessageType = "get-requests"
	TypeGetEvents          MessageType = "get-events"
	TypeToggleExtension    MessageType = "toggle-extension"
	TypePing               MessageType = "ping"
)

// Message is one typed request or notification.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is the single reply every request yields: either a success
// payload or an error string, never both.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OK wraps a payload in a success response; marshal failures degrade to
// an error response rather than a dropped reply.
func OK(payload interface{}) Response {
	if payload == nil {
		return Response{Success: true}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Fail(fmt.Sprintf("response encoding failed: %v", err))
	}
	return Response{Success: true, Payload: raw}
}

// Fail builds an error response.
func Fail(reason string) Response {
	return Response{Success: false, Error: reason}
}

// NewMessage marshals a payload into a typed message.
func NewMessage(t MessageType, payload interface{}) (Message, error) {
	if payload == nil {
		return Message{Type: t}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s message: %w", t, err)
	}
	return Message{Type: t, Data: raw}, nil
}

// Sender delivers a message to the other side. Delivery errors mean the
// receiver is absent, an expected condition during page loads.
type Sender interface {
	Send(ctx context.Context, msg Message) (Response, error)
}

const (
	criticalRetries = 3
	retryDelay      = time.Second
)

// SendCritical retries a state-critical message up to three times, one
// second apart, tolerating a receiver that has not attached yet. The
// final failure is returned, not swallowed.
func SendCritical(ctx context.Context, clock schedule.Clock, s Sender, msg Message) (Response, error) {
	var lastErr error
	for attempt := 0; attempt <= criticalRetries; attempt++ {
		if attempt > 0 {
			if err := clock.Wait(ctx, retryDelay); err != nil {
				return Response{}, err
			}
		}
		resp, err := s.Send(ctx, msg)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return Response{}, fmt.Errorf("message %s undeliverable after %d retries: %w", msg.Type, criticalRetries, lastErr)
}

// SendTelemetry fires a best-effort message and ignores delivery
// failure.
func SendTelemetry(ctx context.Context, s Sender, msg Message) {
	_, _ = s.Send(ctx, msg)
}
