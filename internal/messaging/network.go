package messaging

import (
	"strings"
	"sync"
	"time"
)

// RequestCategory labels a captured network request by its role in the
// purchase flow.
type RequestCategory string

const (
	CategoryCSS        RequestCategory = "CSS"
	CategoryJavaScript RequestCategory = "JAVASCRIPT"
	CategoryHTML       RequestCategory = "HTML"
	CategoryAuth       RequestCategory = "AUTH"
	CategorySeat       RequestCategory = "SEAT"
	CategoryBooking    RequestCategory = "BOOKING"
	CategoryPayment    RequestCategory = "PAYMENT"
	CategoryQueue      RequestCategory = "QUEUE"
	CategoryOther      RequestCategory = "OTHER"
)

// CategorizeRequest classifies a request URL. Resource extensions win
// over flow keywords since a stylesheet named login.css is still a
// stylesheet.
func CategorizeRequest(url string) RequestCategory {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, ".css"):
		return CategoryCSS
	case strings.Contains(lower, ".js"):
		return CategoryJavaScript
	case strings.Contains(lower, ".html"), strings.Contains(lower, ".htm"):
		return CategoryHTML
	case strings.Contains(lower, "login"), strings.Contains(lower, "auth"):
		return CategoryAuth
	case strings.Contains(lower, "seat"):
		return CategorySeat
	case strings.Contains(lower, "booking"), strings.Contains(lower, "reserve"):
		return CategoryBooking
	case strings.Contains(lower, "payment"), strings.Contains(lower, "purchase"):
		return CategoryPayment
	case strings.Contains(lower, "queue"):
		return CategoryQueue
	default:
		return CategoryOther
	}
}

// NetworkEvent is one captured request.
type NetworkEvent struct {
	URL       string          `json:"url"`
	Method    string          `json:"method"`
	Category  RequestCategory `json:"category"`
	Status    int             `json:"status,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NetworkBuffer keeps the most recent captured requests, bounded.
type NetworkBuffer struct {
	mu     sync.RWMutex
	events []NetworkEvent
	limit  int
}

func NewNetworkBuffer(limit int) *NetworkBuffer {
	if limit <= 0 {
		limit = 500
	}
	return &NetworkBuffer{limit: limit}
}

// Add records a request, evicting the oldest entries past the limit.
func (b *NetworkBuffer) Add(ev NetworkEvent) {
	if ev.Category == "" {
		ev.Category = CategorizeRequest(ev.URL)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	if len(b.events) > b.limit {
		b.events = append([]NetworkEvent(nil), b.events[len(b.events)-b.limit:]...)
	}
}

// Snapshot returns the buffered events in capture order.
func (b *NetworkBuffer) Snapshot() []NetworkEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]NetworkEvent(nil), b.events...)
}
