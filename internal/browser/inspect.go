package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"

	"ticketflow/internal/dom"
)

// describeScript captures descriptor snapshots for every node matching a
// CSS selector. The path mirrors the id-first XPath the recorder script
// produces so recorded and inspected selectors re-locate the same nodes.
const describeScript = `
(function(selector) {
	function xpathOf(el) {
		if (el.id) {
			return '//*[@id="' + el.id + '"]';
		}
		var path = '';
		while (el && el.nodeType === Node.ELEMENT_NODE) {
			var index = 1;
			for (var sib = el.previousSibling; sib; sib = sib.previousSibling) {
				if (sib.nodeType === Node.ELEMENT_NODE && sib.nodeName === el.nodeName) {
					index++;
				}
			}
			path = '/' + el.nodeName.toLowerCase() + '[' + index + ']' + path;
			el = el.parentNode;
		}
		return path;
	}
	function describe(el) {
		var rect = el.getBoundingClientRect();
		var style = window.getComputedStyle(el);
		var classes = [];
		if (typeof el.className === 'string' && el.className.trim()) {
			classes = el.className.trim().split(/\s+/);
		}
		return {
			tag: el.tagName.toLowerCase(),
			id: el.id || '',
			classes: classes,
			text: (el.textContent || '').trim().substring(0, 100),
			value: (el.value || '').toString(),
			path: xpathOf(el),
			rect: { x: rect.x + window.scrollX, y: rect.y + window.scrollY, width: rect.width, height: rect.height },
			visible: rect.width > 0 && rect.height > 0 &&
				style.visibility !== 'hidden' && style.display !== 'none',
			cursor: style.cursor,
			hasOnClick: el.onclick !== null || el.hasAttribute('onclick'),
			inputType: el.type || '',
			name: el.name || '',
			href: el.href || ''
		};
	}
	var out = [];
	var nodes = document.querySelectorAll(selector);
	for (var i = 0; i < nodes.length && i < 200; i++) {
		out.push(describe(nodes[i]));
	}
	return out;
})`

func (s *Session) Query(ctx context.Context, selector string) ([]dom.ElementDescriptor, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	var out []dom.ElementDescriptor
	script := fmt.Sprintf("%s(%s)", describeScript, quoted)
	if err := s.run(ctx, chromedp.Evaluate(script, &out)); err != nil {
		return nil, fmt.Errorf("query %q failed: %w", selector, err)
	}
	return out, nil
}

func (s *Session) BodyText(ctx context.Context) (string, error) {
	var text string
	err := s.run(ctx, chromedp.Evaluate(
		`(document.body ? document.body.innerText : '').toLowerCase()`, &text))
	if err != nil {
		return "", fmt.Errorf("failed to read body text: %w", err)
	}
	return text, nil
}

func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read title: %w", err)
	}
	return title, nil
}

// existsScript probes for a node by CSS query or XPath evaluation,
// matching how the selector was recorded.
func existsScript(selector string) string {
	return fmt.Sprintf("(%s) !== null", resolveNodeScript(selector))
}

func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	if err := s.run(ctx, chromedp.Evaluate(existsScript(selector), &found)); err != nil {
		return false, fmt.Errorf("exists check %q failed: %w", selector, err)
	}
	return found, nil
}
