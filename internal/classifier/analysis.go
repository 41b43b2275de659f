package classifier

import (
	"context"
	"time"

	"ticketflow/internal/browser"
	"ticketflow/internal/dom"
)

// PageAnalysis is one full classification pass over a page, the shape
// persisted per site and exported as an artifact.
type PageAnalysis struct {
	Site       string               `json:"site"`
	URL        string               `json:"url"`
	Title      string               `json:"title"`
	Timestamp  time.Time            `json:"timestamp"`
	PageInfo   PageInfo             `json:"pageInfo"`
	Elements   map[dom.Role][]Match `json:"elements"`
	Statistics AnalysisStatistics   `json:"statistics"`
}

type PageInfo struct {
	Hostname string `json:"hostname"`
	Path     string `json:"path"`
}

type AnalysisStatistics struct {
	TotalMatches   int                  `json:"totalMatches"`
	VisibleMatches int                  `json:"visibleMatches"`
	PerRole        map[dom.Role]int     `json:"perRole"`
	TopConfidence  map[dom.Role]float64 `json:"topConfidence"`
}

// AnalyzePage classifies every role and aggregates the statistics the
// activity feed and exports surface.
func (c *Classifier) AnalyzePage(ctx context.Context, page browser.Page, site, hostname string) (*PageAnalysis, error) {
	pageURL, err := page.CurrentURL(ctx)
	if err != nil {
		return nil, err
	}
	title, err := page.Title(ctx)
	if err != nil {
		return nil, err
	}

	elements := c.ClassifyAll(ctx, page)

	stats := AnalysisStatistics{
		PerRole:       make(map[dom.Role]int),
		TopConfidence: make(map[dom.Role]float64),
	}
	for role, matches := range elements {
		stats.PerRole[role] = len(matches)
		stats.TotalMatches += len(matches)
		for i, m := range matches {
			if i == 0 {
				stats.TopConfidence[role] = m.Confidence
			}
			if m.Element.Visible {
				stats.VisibleMatches++
			}
		}
	}

	return &PageAnalysis{
		Site:       site,
		URL:        pageURL,
		Title:      title,
		Timestamp:  time.Now(),
		PageInfo:   PageInfo{Hostname: hostname, Path: pageURL},
		Elements:   elements,
		Statistics: stats,
	}, nil
}
