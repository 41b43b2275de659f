// Package browser defines the narrow page interfaces the inference and
// execution layers depend on, plus a chromedp-backed implementation.
// Keeping the surface small lets the classifier, funnel machine, and
// executor run against fakes in tests without a real Chrome.
package browser

import (
	"context"
	"strings"

	"ticketflow/internal/dom"
)

// Inspector is read-only access to the current document.
type Inspector interface {
	// Query returns descriptors for every node matching the CSS selector.
	// A failing selector returns an error; callers that union several
	// strategies isolate errors per strategy.
	Query(ctx context.Context, selector string) ([]dom.ElementDescriptor, error)
	// BodyText returns the visible body text, lowercased.
	BodyText(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Exists(ctx context.Context, selector string) (bool, error)
}

// Navigator controls page location.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
	// Reload refreshes the page; hard additionally waits for the network
	// to settle instead of just document readiness.
	Reload(ctx context.Context, hard bool) error
	CurrentURL(ctx context.Context) (string, error)
}

// Interactor synthesizes user input against located elements.
type Interactor interface {
	// HumanClick performs the randomized scroll/move/press/release
	// gesture against the element's bounding box.
	HumanClick(ctx context.Context, el dom.ElementDescriptor) error
	// DispatchClick fires a synthetic mousedown/mouseup/click sequence
	// on the node addressed by path.
	DispatchClick(ctx context.Context, path string) error
	// DirectClick is the raw last-resort click.
	DirectClick(ctx context.Context, path string) error
	Fill(ctx context.Context, selector, value string) error
}

// Page is the full per-tab surface owned by one automation controller.
type Page interface {
	Inspector
	Navigator
	Interactor
}

// IsXPath reports whether a stored selector is XPath-shaped rather than
// a CSS query.
func IsXPath(selector string) bool {
	return strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(")
}
