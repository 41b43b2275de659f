package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// LoginStatus is the per-tab login state the controller aggregates.
type LoginStatus struct {
	Site       string `json:"site"`
	IsLoggedIn bool   `json:"isLoggedIn"`
	UserName   string `json:"userName,omitempty"`
	URL        string `json:"url"`
}

// Controller is the out-of-page side of the channel: it owns aggregated
// cross-tab state (login status per tab, captured network events) and
// answers every observer request with exactly one response.
type Controller struct {
	mu          sync.RWMutex
	enabled     bool
	monitoring  bool
	loginByTab  map[string]LoginStatus
	events      []json.RawMessage
	network     *NetworkBuffer
	logger      zerolog.Logger

	// onAnalysis receives dom-analysis-result payloads for persistence.
	onAnalysis func(json.RawMessage)
}

func NewController(network *NetworkBuffer, onAnalysis func(json.RawMessage), logger zerolog.Logger) *Controller {
	return &Controller{
		enabled:    true,
		loginByTab: make(map[string]LoginStatus),
		network:    network,
		onAnalysis: onAnalysis,
		logger:     logger.With().Str("component", "messaging").Logger(),
	}
}

// Handle answers one message. Unknown types get an error response, not
// silence, so the sender's one-response contract always holds.
func (c *Controller) Handle(_ context.Context, tabID string, msg Message) Response {
	switch msg.Type {
	case TypePing:
		return Response{Success: true}

	case TypeLoginStatusChanged:
		var status LoginStatus
		if err := json.Unmarshal(msg.Data, &status); err != nil {
			return Fail("malformed login status: " + err.Error())
		}
		c.mu.Lock()
		c.loginByTab[tabID] = status
		c.mu.Unlock()
		c.logger.Info().Str("site", status.Site).Bool("loggedIn", status.IsLoggedIn).Msg("login status changed")
		return Response{Success: true}

	case TypeUserEventRecorded:
		c.mu.Lock()
		c.events = append(c.events, msg.Data)
		if len(c.events) > 5000 {
			c.events = append([]json.RawMessage(nil), c.events[len(c.events)-2500:]...)
		}
		c.mu.Unlock()
		return Response{Success: true}

	case TypeDOMAnalysisResult:
		if c.onAnalysis != nil {
			c.onAnalysis(msg.Data)
		}
		return Response{Success: true}

	case TypeStartMonitoring:
		c.mu.Lock()
		c.monitoring = true
		c.mu.Unlock()
		return Response{Success: true}

	case TypeStopMonitoring:
		c.mu.Lock()
		c.monitoring = false
		c.mu.Unlock()
		return Response{Success: true}

	case TypeGetRequests:
		return OK(c.network.Snapshot())

	case TypeGetEvents:
		c.mu.RLock()
		events := append([]json.RawMessage(nil), c.events...)
		c.mu.RUnlock()
		return OK(events)

	case TypeToggleExtension:
		c.mu.Lock()
		c.enabled = !c.enabled
		enabled := c.enabled
		c.mu.Unlock()
		return OK(map[string]bool{"enabled": enabled})

	default:
		return Fail(fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

// LoginStatuses returns the aggregated per-tab login map.
func (c *Controller) LoginStatuses() map[string]LoginStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]LoginStatus, len(c.loginByTab))
	for k, v := range c.loginByTab {
		out[k] = v
	}
	return out
}

// Monitoring reports whether observers should be analyzing.
func (c *Controller) Monitoring() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.monitoring
}

// Enabled reports the toggle state.
func (c *Controller) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}
