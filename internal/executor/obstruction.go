package executor

import (
	"context"
	"strings"
	"time"

	"ticketflow/internal/browser"
)

// Queue walls and vendor popups are expected friction: every handler
// here degrades to "still present, keep looping" and never raises an
// error.

var queueKeywords = []string{"대기", "waiting", "queue", "잠시만", "대기열", "순번"}

var popupDismissTexts = []string{"잠깐 접어두기", "접어두기", "닫기", "close", "나중에"}

var popupSelectors = []string{
	`.popup-close`,
	`[onclick*="close"]`,
	`[class*="close"]`,
	`a[href*="javascript"]`,
}

// QueuePresent scans the page text for queue-wall indicators.
func QueuePresent(ctx context.Context, insp browser.Inspector) bool {
	body, err := insp.BodyText(ctx)
	if err != nil {
		return false
	}
	lower := strings.ToLower(body)
	for _, kw := range queueKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// DismissPopups clicks the first visible dismiss-intent element. Missing
// popups are the normal case and return false quietly.
func (e *Executor) DismissPopups(ctx context.Context, run *Run) bool {
	for _, selector := range popupSelectors {
		elements, err := run.page.Query(ctx, selector)
		if err != nil {
			continue
		}
		for _, el := range elements {
			if !el.Visible || !containsDismissText(el.Text) {
				continue
			}
			if err := e.click(ctx, run, el); err != nil {
				continue
			}
			run.addLog("success", "popup dismissed: "+el.Text)
			_ = e.clock.Wait(ctx, time.Second)
			return true
		}
	}
	return false
}

func containsDismissText(text string) bool {
	lower := strings.ToLower(text)
	for _, t := range popupDismissTexts {
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// HandleWaitingQueue detects a queue wall and attempts the bypass
// ladder: rapid reloads, URL variants, then one hard reload. Each
// sub-strategy re-checks for queue absence and the ladder short-circuits
// the moment one succeeds. Returns true once the queue is gone; false
// means the queue persists and the control loop continues normally.
func (e *Executor) HandleWaitingQueue(ctx context.Context, run *Run) bool {
	if !QueuePresent(ctx, run.page) {
		return true
	}
	run.addLog("warning", "queue wall detected, attempting bypass")

	if e.bypassWithReloads(ctx, run) {
		run.addLog("success", "queue bypassed by rapid reload")
		return true
	}
	if e.bypassWithURLVariants(ctx, run) {
		run.addLog("success", "queue bypassed via alternate URL")
		return true
	}
	if e.bypassWithHardReload(ctx, run) {
		run.addLog("success", "queue bypassed by hard reload")
		return true
	}

	run.addLog("warning", "queue still present, continuing")
	return false
}

func (e *Executor) bypassWithReloads(ctx context.Context, run *Run) bool {
	for i := 0; i < e.cfg.QueueReloads; i++ {
		if err := run.page.Reload(ctx, false); err != nil {
			return false
		}
		_ = e.clock.Wait(ctx, 500*time.Millisecond+randJitter(500*time.Millisecond))
		if !QueuePresent(ctx, run.page) {
			return true
		}
	}
	return false
}

func (e *Executor) bypassWithURLVariants(ctx context.Context, run *Run) bool {
	current, err := run.page.CurrentURL(ctx)
	if err != nil {
		return false
	}
	for _, variant := range urlVariants(current) {
		run.addLog("info", "trying alternate URL: "+variant)
		if err := run.page.Navigate(ctx, variant); err != nil {
			continue
		}
		if !QueuePresent(ctx, run.page) {
			return true
		}
	}
	return false
}

func (e *Executor) bypassWithHardReload(ctx context.Context, run *Run) bool {
	if err := run.page.Reload(ctx, true); err != nil {
		return false
	}
	_ = e.clock.Wait(ctx, 2*time.Second)
	return !QueuePresent(ctx, run.page)
}

// urlVariants permutes the current URL the ways queue fronts commonly
// ignore: scheme and host tweaks plus cache-busting parameters.
func urlVariants(current string) []string {
	variants := []string{
		strings.Replace(current, "www.", "", 1),
		strings.Replace(current, "http://", "https://", 1),
		withParam(current, "direct=1"),
		withParam(current, "bypass=1"),
		strings.Replace(current, "tickets.", "ticket.", 1),
	}
	out := variants[:0]
	for _, v := range variants {
		if v != current {
			out = append(out, v)
		}
	}
	return out
}

func withParam(u, param string) string {
	if strings.Contains(u, "?") {
		return u + "&" + param
	}
	return u + "?" + param
}
