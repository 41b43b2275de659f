// Package sites maps a hostname and page snapshot to a site profile:
// a static entry for the known ticketing vendors, a heuristic synthetic
// profile for lookalike sites, or nil for everything else.
package sites

import (
	"strings"
)

// ProfileType distinguishes statically known vendors from heuristically
// detected ones.
type ProfileType string

const (
	TypeMajor    ProfileType = "major"
	TypeDetected ProfileType = "detected"
)

// Profile describes one ticketing site: identity plus per-role selector
// hints the executor tries before the generic role strategies.
type Profile struct {
	Name             string         `json:"name"`
	Type             ProfileType    `json:"type"`
	Domains          []string       `json:"domains"`
	LoginSelectors   []string       `json:"loginSelectors,omitempty"`
	TicketSelectors  []string       `json:"ticketSelectors,omitempty"`
	SeatSelectors    []string       `json:"seatSelectors,omitempty"`
	PaymentSelectors []string       `json:"paymentSelectors,omitempty"`
	Indicators       map[string]int `json:"indicators,omitempty"`
}

// knownProfiles is ordered; the first substring match wins, so more
// specific vendors must come before generic ones.
var knownProfiles = []Profile{
	{
		Name:             "interpark",
		Type:             TypeMajor,
		Domains:          []string{"interpark.com"},
		LoginSelectors:   []string{"._my-menu-root_1xzlz_1", ".login-area"},
		TicketSelectors:  []string{".ticket-link", ".booking-btn"},
		SeatSelectors:    []string{".seat", `[class*="seat"]`},
		PaymentSelectors: []string{".payment", ".pay-btn"},
	},
	{
		Name:             "ticketlink",
		Type:             TypeMajor,
		Domains:          []string{"ticketlink.co.kr"},
		LoginSelectors:   []string{".gnb-user-name", ".user-info"},
		TicketSelectors:  []string{".ticket-booking", ".reservation"},
		SeatSelectors:    []string{".seat-map", ".seat-btn"},
		PaymentSelectors: []string{".payment-area", ".order-pay"},
	},
	{
		Name:             "yes24",
		Type:             TypeMajor,
		Domains:          []string{"yes24.com"},
		LoginSelectors:   []string{".myd_name", ".login-info"},
		TicketSelectors:  []string{".booking", ".ticket"},
		SeatSelectors:    []string{".seat", ".seatBtn"},
		PaymentSelectors: []string{".paymentBtn", ".payment"},
	},
	{
		Name:             "melon",
		Type:             TypeMajor,
		Domains:          []string{"melon.com"},
		LoginSelectors:   []string{".memberinfo", ".login_area"},
		TicketSelectors:  []string{".ticket_reserve", ".booking"},
		SeatSelectors:    []string{".seat_area", ".seat"},
		PaymentSelectors: []string{".payment", ".order"},
	},
}

// KnownProfiles returns a copy of the static table in match order.
func KnownProfiles() []Profile {
	out := make([]Profile, len(knownProfiles))
	copy(out, knownProfiles)
	return out
}

// MatchKnown returns the first static profile whose domain is a
// substring of the hostname, or nil.
func MatchKnown(hostname string) *Profile {
	host := strings.ToLower(hostname)
	for i := range knownProfiles {
		for _, domain := range knownProfiles[i].Domains {
			if strings.Contains(host, domain) {
				p := knownProfiles[i]
				return &p
			}
		}
	}
	return nil
}

// SiteKey derives the storage namespace for a hostname: lowercased, all
// non-alphanumerics folded to underscores.
func SiteKey(hostname string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(hostname) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
