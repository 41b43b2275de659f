package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketflow/internal/schedule"
)

func newTestController(network *NetworkBuffer, onAnalysis func(json.RawMessage)) *Controller {
	return NewController(network, onAnalysis, zerolog.Nop())
}

func mustMessage(t *testing.T, mt MessageType, payload interface{}) Message {
	t.Helper()
	msg, err := NewMessage(mt, payload)
	require.NoError(t, err)
	return msg
}

func TestHandlePing(t *testing.T) {
	c := newTestController(NewNetworkBuffer(0), nil)
	resp := c.Handle(context.Background(), "tab-1", Message{Type: TypePing})
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Error)
}

func TestHandleUnknownType(t *testing.T) {
	c := newTestController(NewNetworkBuffer(0), nil)
	resp := c.Handle(context.Background(), "tab-1", Message{Type: "mystery"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unknown message type")
}

func TestHandleLoginStatusAggregation(t *testing.T) {
	c := newTestController(NewNetworkBuffer(0), nil)

	resp := c.Handle(context.Background(), "tab-1", mustMessage(t, TypeLoginStatusChanged, LoginStatus{
		Site: "interpark", IsLoggedIn: true, UserName: "홍길동님", URL: "https://tickets.interpark.com",
	}))
	require.True(t, resp.Success)
	c.Handle(context.Background(), "tab-2", mustMessage(t, TypeLoginStatusChanged, LoginStatus{
		Site: "yes24", IsLoggedIn: false, URL: "https://ticket.yes24.com",
	}))
	// A later update for the same tab replaces the earlier state.
	c.Handle(context.Background(), "tab-1", mustMessage(t, TypeLoginStatusChanged, LoginStatus{
		Site: "interpark", IsLoggedIn: false, URL: "https://tickets.interpark.com",
	}))

	statuses := c.LoginStatuses()
	require.Len(t, statuses, 2)
	assert.False(t, statuses["tab-1"].IsLoggedIn)
	assert.Equal(t, "yes24", statuses["tab-2"].Site)
}

func TestHandleMalformedLoginStatus(t *testing.T) {
	c := newTestController(NewNetworkBuffer(0), nil)
	resp := c.Handle(context.Background(), "tab-1", Message{
		Type: TypeLoginStatusChanged,
		Data: json.RawMessage(`{"isLoggedIn":`),
	})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "malformed login status")
}

func TestHandleMonitoringToggle(t *testing.T) {
	c := newTestController(NewNetworkBuffer(0), nil)
	assert.False(t, c.Monitoring())

	c.Handle(context.Background(), "tab-1", Message{Type: TypeStartMonitoring})
	assert.True(t, c.Monitoring())

	c.Handle(context.Background(), "tab-1", Message{Type: TypeStopMonitoring})
	assert.False(t, c.Monitoring())
}

func TestHandleToggleExtension(t *testing.T) {
	c := newTestController(NewNetworkBuffer(0), nil)
	require.True(t, c.Enabled())

	resp := c.Handle(context.Background(), "tab-1", Message{Type: TypeToggleExtension})
	require.True(t, resp.Success)
	assert.JSONEq(t, `{"enabled":false}`, string(resp.Payload))
	assert.False(t, c.Enabled())

	resp = c.Handle(context.Background(), "tab-1", Message{Type: TypeToggleExtension})
	assert.JSONEq(t, `{"enabled":true}`, string(resp.Payload))
	assert.True(t, c.Enabled())
}

func TestHandleGetRequests(t *testing.T) {
	network := NewNetworkBuffer(10)
	network.Add(NetworkEvent{URL: "https://tickets.interpark.com/api/seat/map", Method: "GET"})
	c := newTestController(network, nil)

	resp := c.Handle(context.Background(), "tab-1", Message{Type: TypeGetRequests})
	require.True(t, resp.Success)

	var events []NetworkEvent
	require.NoError(t, json.Unmarshal(resp.Payload, &events))
	require.Len(t, events, 1)
	assert.Equal(t, CategorySeat, events[0].Category, "Add fills the category from the URL")
}

func TestHandleUserEventsAndAnalysis(t *testing.T) {
	var analyzed json.RawMessage
	c := newTestController(NewNetworkBuffer(0), func(payload json.RawMessage) {
		analyzed = payload
	})

	c.Handle(context.Background(), "tab-1", Message{
		Type: TypeUserEventRecorded,
		Data: json.RawMessage(`{"type":"click"}`),
	})
	resp := c.Handle(context.Background(), "tab-1", Message{Type: TypeGetEvents})
	require.True(t, resp.Success)
	var events []json.RawMessage
	require.NoError(t, json.Unmarshal(resp.Payload, &events))
	assert.Len(t, events, 1)

	c.Handle(context.Background(), "tab-1", Message{
		Type: TypeDOMAnalysisResult,
		Data: json.RawMessage(`{"site":"interpark"}`),
	})
	assert.JSONEq(t, `{"site":"interpark"}`, string(analyzed))
}

func TestCategorizeRequest(t *testing.T) {
	tests := []struct {
		url  string
		want RequestCategory
	}{
		{"https://cdn.example.com/login.css", CategoryCSS},
		{"https://cdn.example.com/app.js?v=2", CategoryJavaScript},
		{"https://example.com/index.html", CategoryHTML},
		{"https://example.com/api/auth/session", CategoryAuth},
		{"https://example.com/api/seat/map", CategorySeat},
		{"https://example.com/api/booking/hold", CategoryBooking},
		{"https://example.com/api/payment/start", CategoryPayment},
		{"https://queue.example.com/position", CategoryQueue},
		{"https://example.com/api/profile", CategoryOther},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeRequest(tt.url))
		})
	}
}

func TestNetworkBufferEviction(t *testing.T) {
	b := NewNetworkBuffer(3)
	for i := 1; i <= 5; i++ {
		b.Add(NetworkEvent{URL: fmt.Sprintf("https://example.com/r%d", i)})
	}
	snap := b.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "https://example.com/r3", snap[0].URL)
	assert.Equal(t, "https://example.com/r5", snap[2].URL)
}

// flakySender fails a fixed number of times before delivering.
type flakySender struct {
	failures int
	calls    int
}

func (s *flakySender) Send(context.Context, Message) (Response, error) {
	s.calls++
	if s.calls <= s.failures {
		return Response{}, errors.New("receiving end does not exist")
	}
	return Response{Success: true}, nil
}

func TestSendCriticalRetries(t *testing.T) {
	clock := schedule.NewFake()
	sender := &flakySender{failures: 2}

	resp, err := SendCritical(context.Background(), clock, sender, Message{Type: TypeLoginStatusChanged})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 3, sender.calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.Waits())
}

func TestSendCriticalExhaustsRetries(t *testing.T) {
	clock := schedule.NewFake()
	sender := &flakySender{failures: 10}

	_, err := SendCritical(context.Background(), clock, sender, Message{Type: TypeLoginStatusChanged})
	require.Error(t, err)
	assert.Equal(t, 4, sender.calls, "one initial attempt plus three retries")
	assert.Contains(t, err.Error(), "after 3 retries")
	assert.Contains(t, err.Error(), "receiving end does not exist")
}

func TestSendTelemetryIgnoresFailure(t *testing.T) {
	sender := &flakySender{failures: 1}
	SendTelemetry(context.Background(), sender, Message{Type: TypeUserEventRecorded})
	assert.Equal(t, 1, sender.calls)
}
