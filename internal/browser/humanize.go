package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"

	"ticketflow/internal/dom"
)

// Humanized gesture bounds, in milliseconds. Randomized per click so no
// two gestures share a timing signature.
const (
	preClickMinMs  = 300
	preClickMaxMs  = 800
	stepGapMinMs   = 20
	stepGapMaxMs   = 60
	holdMinMs      = 50
	holdMaxMs      = 150
	postClickMinMs = 100
	postClickMaxMs = 300
	moveSteps      = 5
	jitterRatio    = 0.3
)

func randDelay(minMs, maxMs int) time.Duration {
	return time.Duration(minMs+rand.Intn(maxMs-minMs)) * time.Millisecond
}

// jitteredPoint picks a point inside the box offset from the center by a
// bounded random amount.
func jitteredPoint(r dom.Rect) (float64, float64) {
	cx, cy := r.Center()
	x := cx + (rand.Float64()-0.5)*r.Width*jitterRatio
	y := cy + (rand.Float64()-0.5)*r.Height*jitterRatio
	return x, y
}

// HumanClick scrolls the element into view, then moves, presses, holds,
// and releases the pointer with randomized pauses and a jittered target
// point. It re-resolves the bounding box after scrolling since scroll
// changes page coordinates.
func (s *Session) HumanClick(ctx context.Context, el dom.ElementDescriptor) error {
	if err := s.scrollIntoView(ctx, el.Path); err != nil {
		return fmt.Errorf("scroll into view failed for %s: %w", el.Path, err)
	}
	time.Sleep(randDelay(preClickMinMs, preClickMaxMs))

	rect, err := s.viewportRect(ctx, el.Path)
	if err != nil {
		return fmt.Errorf("element %s not measurable: %w", el.Path, err)
	}
	if rect.Width <= 0 || rect.Height <= 0 {
		return fmt.Errorf("element %s has no visible area", el.Path)
	}

	x, y := jitteredPoint(rect)
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		// Approach the point in discrete steps rather than teleporting.
		startX, startY := x-60+rand.Float64()*120, y-60+rand.Float64()*120
		for i := 1; i <= moveSteps; i++ {
			f := float64(i) / moveSteps
			mx := startX + (x-startX)*f
			my := startY + (y-startY)*f
			move := input.DispatchMouseEvent(input.MouseMoved, mx, my)
			if err := move.Do(ctx); err != nil {
				return err
			}
			time.Sleep(randDelay(stepGapMinMs, stepGapMaxMs))
		}

		time.Sleep(randDelay(holdMinMs, holdMaxMs))
		down := input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.Left).WithClickCount(1)
		if err := down.Do(ctx); err != nil {
			return err
		}
		time.Sleep(randDelay(holdMinMs, holdMaxMs))
		up := input.DispatchMouseEvent(input.MouseReleased, x, y).
			WithButton(input.Left).WithClickCount(1)
		if err := up.Do(ctx); err != nil {
			return err
		}
		time.Sleep(randDelay(postClickMinMs, postClickMaxMs))
		return nil
	}))
}

// DispatchClick fires a synthetic mousedown/mouseup/click sequence on the
// node, the first fallback when the pointer gesture fails.
func (s *Session) DispatchClick(ctx context.Context, path string) error {
	script := fmt.Sprintf(`
(function() {
	var el = %s;
	if (!el) return false;
	['mousedown', 'mouseup', 'click'].forEach(function(type) {
		el.dispatchEvent(new MouseEvent(type, { bubbles: true, cancelable: true, view: window }));
	});
	return true;
})()`, resolveNodeScript(path))
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("event dispatch on %s failed: %w", path, err)
	}
	if !ok {
		return fmt.Errorf("element %s no longer present", path)
	}
	return nil
}

// DirectClick is the raw last resort.
func (s *Session) DirectClick(ctx context.Context, path string) error {
	script := fmt.Sprintf(`
(function() {
	var el = %s;
	if (!el) return false;
	el.click();
	return true;
})()`, resolveNodeScript(path))
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("direct click on %s failed: %w", path, err)
	}
	if !ok {
		return fmt.Errorf("element %s no longer present", path)
	}
	return nil
}

// Fill types a value into the first node matching the selector.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if IsXPath(selector) {
		return s.run(ctx,
			chromedp.WaitVisible(selector, chromedp.BySearch),
			chromedp.Clear(selector, chromedp.BySearch),
			chromedp.SendKeys(selector, value, chromedp.BySearch),
		)
	}
	return s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (s *Session) scrollIntoView(ctx context.Context, path string) error {
	script := fmt.Sprintf(`
(function() {
	var el = %s;
	if (!el) return false;
	el.scrollIntoView({ block: 'center', inline: 'center' });
	return true;
})()`, resolveNodeScript(path))
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("element %s no longer present", path)
	}
	return nil
}

// viewportRect measures the node in viewport coordinates, which is what
// DispatchMouseEvent expects.
func (s *Session) viewportRect(ctx context.Context, path string) (dom.Rect, error) {
	script := fmt.Sprintf(`
(function() {
	var el = %s;
	if (!el) return null;
	var r = el.getBoundingClientRect();
	return { x: r.x, y: r.y, width: r.width, height: r.height };
})()`, resolveNodeScript(path))
	var rect *dom.Rect
	if err := s.run(ctx, chromedp.Evaluate(script, &rect)); err != nil {
		return dom.Rect{}, err
	}
	if rect == nil {
		return dom.Rect{}, fmt.Errorf("element %s no longer present", path)
	}
	return *rect, nil
}

// resolveNodeScript produces a JS expression locating one node from a
// stored selector, XPath or CSS shaped.
func resolveNodeScript(selector string) string {
	quoted, _ := json.Marshal(selector)
	if IsXPath(selector) {
		return fmt.Sprintf(
			`document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`,
			quoted)
	}
	return fmt.Sprintf(`document.querySelector(%s)`, quoted)
}
