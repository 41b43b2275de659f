package sites

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"ticketflow/internal/browser"
)

// Heuristic indicator weights and the acceptance threshold. A DOM
// selector hit weighs double because markup is a stronger signal than
// page copy; body text weighs half because it is the noisiest.
const (
	weightTitle    = 1.0
	weightURL      = 1.0
	weightDOM      = 2.0
	weightBodyText = 0.5
	threshold      = 3.0
)

var (
	titleKeywords = []string{"티켓", "ticket", "예매", "booking", "콘서트", "concert"}
	urlKeywords   = []string{"ticket", "booking", "reserve", "예매"}
	domSelectors  = []string{".seat", ".booking", ".ticket", ".payment", ".concert"}
	textKeywords  = []string{"좌석선택", "예매하기", "티켓구매", "seat selection", "buy ticket"}
)

// Resolver identifies which ticketing site a page belongs to. Pure over
// the page snapshot: resolving twice against an unchanged page yields
// the identical profile.
type Resolver struct {
	logger zerolog.Logger
}

func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{logger: logger.With().Str("component", "sites").Logger()}
}

// Resolve returns the site profile for a page URL, or nil when the page
// does not look like a ticketing site. Nil is a normal result, never an
// error. Individual indicator failures score zero and do not abort the
// scan.
func (r *Resolver) Resolve(ctx context.Context, pageURL string, insp browser.Inspector) *Profile {
	hostname := Hostname(pageURL)
	if p := MatchKnown(hostname); p != nil {
		return p
	}
	return r.detectHeuristic(ctx, pageURL, hostname, insp)
}

// Hostname extracts the host from a URL, falling back to the raw string
// for bare hostnames.
func Hostname(pageURL string) string {
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		return u.Hostname()
	}
	return pageURL
}

func (r *Resolver) detectHeuristic(ctx context.Context, pageURL, hostname string, insp browser.Inspector) *Profile {
	scores := make(map[string]int)
	total := 0.0

	title, err := insp.Title(ctx)
	if err != nil {
		r.logger.Debug().Err(err).Msg("title indicator unavailable")
	} else if hits := countKeywordHits(strings.ToLower(title), titleKeywords); hits > 0 {
		scores["title"] = hits
		total += weightTitle
	}

	if hits := countKeywordHits(strings.ToLower(pageURL), urlKeywords); hits > 0 {
		scores["url"] = hits
		total += weightURL
	}

	domHits := 0
	for _, sel := range domSelectors {
		found, err := insp.Exists(ctx, sel)
		if err != nil {
			r.logger.Debug().Err(err).Str("selector", sel).Msg("dom indicator check failed")
			continue
		}
		if found {
			domHits++
		}
	}
	if domHits > 0 {
		scores["dom"] = domHits
		total += weightDOM
	}

	body, err := insp.BodyText(ctx)
	if err != nil {
		r.logger.Debug().Err(err).Msg("body text indicator unavailable")
	} else if hits := countKeywordHits(body, textKeywords); hits > 0 {
		scores["text"] = hits
		total += weightBodyText
	}

	if total < threshold {
		return nil
	}

	return &Profile{
		Name:       fmt.Sprintf("detected_%s", SiteKey(hostname)),
		Type:       TypeDetected,
		Domains:    []string{strings.ToLower(hostname)},
		Indicators: scores,
	}
}

func countKeywordHits(haystack string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			hits++
		}
	}
	return hits
}
