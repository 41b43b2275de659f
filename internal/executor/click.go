package executor

import (
	"context"
	"fmt"
	"time"

	"ticketflow/internal/browser"
	"ticketflow/internal/dom"
)

// StepResult is the structured outcome of one funnel-step attempt.
// Absence of a target is a reason to retry, not an error.
type StepResult struct {
	Success bool
	Reason  string
}

// resolve walks the candidate selectors in order and returns the first
// visible match. XPath-shaped selectors go through path resolution on
// the page side; the Query interface handles CSS. A selector that
// errors is skipped, the rest still run.
func (e *Executor) resolve(ctx context.Context, page browser.Page, selectors []string) (dom.ElementDescriptor, bool) {
	for _, selector := range selectors {
		if browser.IsXPath(selector) {
			// Stored XPaths address a single node; model it as a
			// one-element descriptor so the click ladder applies.
			found, err := page.Exists(ctx, selector)
			if err != nil || !found {
				continue
			}
			return dom.ElementDescriptor{Path: selector, Visible: true}, true
		}
		elements, err := page.Query(ctx, selector)
		if err != nil {
			e.logger.Debug().Err(err).Str("selector", selector).Msg("candidate selector failed")
			continue
		}
		for _, el := range elements {
			if el.Visible {
				return el, true
			}
		}
	}
	return dom.ElementDescriptor{}, false
}

// awaitElement polls resolve under the element deadline so a slow page
// gets a bounded grace period instead of an instant miss.
func (e *Executor) awaitElement(ctx context.Context, page browser.Page, selectors []string) (dom.ElementDescriptor, bool) {
	var el dom.ElementDescriptor
	found, err := e.clock.WaitUntil(ctx, e.cfg.ElementTimeout, 500*time.Millisecond,
		func(ctx context.Context) (bool, error) {
			candidate, ok := e.resolve(ctx, page, selectors)
			if ok {
				el = candidate
			}
			return ok, nil
		})
	if err != nil || !found {
		return dom.ElementDescriptor{}, false
	}
	return el, true
}

// click retries the escalation ladder up to the configured limit, with a
// short settle between rounds.
func (e *Executor) click(ctx context.Context, run *Run, el dom.ElementDescriptor) error {
	var err error
	for try := 0; try < e.cfg.MaxClickTries; try++ {
		if try > 0 {
			run.addLog("warning", fmt.Sprintf("click attempt %d/%d on %s", try+1, e.cfg.MaxClickTries, el.Path))
			if werr := e.clock.Wait(ctx, 300*time.Millisecond); werr != nil {
				return werr
			}
		}
		if err = e.clickOnce(ctx, run, el); err == nil {
			return nil
		}
	}
	return err
}

// clickOnce runs the three-tier escalation: the humanized pointer
// gesture, then a synthetic event sequence, then a raw click. Every
// tier is logged so the feed shows which path landed.
func (e *Executor) clickOnce(ctx context.Context, run *Run, el dom.ElementDescriptor) error {
	if err := run.page.HumanClick(ctx, el); err == nil {
		run.addLog("info", "humanized click on "+el.Path)
		return nil
	} else {
		run.addLog("warning", "humanized click failed, dispatching events: "+err.Error())
	}

	if err := run.page.DispatchClick(ctx, el.Path); err == nil {
		run.addLog("info", "synthetic event click on "+el.Path)
		return nil
	} else {
		run.addLog("warning", "event dispatch failed, trying direct click: "+err.Error())
	}

	if err := run.page.DirectClick(ctx, el.Path); err != nil {
		run.addLog("error", "all click strategies failed on "+el.Path)
		return err
	}
	run.addLog("info", "direct click on "+el.Path)
	return nil
}

// clickFirst resolves and clicks the first visible candidate.
func (e *Executor) clickFirst(ctx context.Context, run *Run, selectors []string, what string) StepResult {
	el, ok := e.awaitElement(ctx, run.page, selectors)
	if !ok {
		return StepResult{Success: false, Reason: what + " not found"}
	}
	if err := e.click(ctx, run, el); err != nil {
		return StepResult{Success: false, Reason: what + " click failed: " + err.Error()}
	}
	return StepResult{Success: true}
}
