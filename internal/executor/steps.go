package executor

import (
	"context"
	"time"

	"ticketflow/internal/dom"
	"ticketflow/internal/learner"
)

// Per-stage step handlers. Every handler returns a structured result;
// the loop decides whether to retry or advance.

// stepSelectors merges the learned pattern's candidates with the site
// profile's hints, learned first since they came from this user on this
// site.
func (r *Run) stepSelectors(intent learner.Intent, siteHints []string) []string {
	selectors := r.config.Patterns.Selectors(intent)
	return append(selectors, siteHints...)
}

// tryBooking is the event-selection handler: pick a date, pick a
// session, then hit the booking button.
func (e *Executor) tryBooking(ctx context.Context, run *Run) StepResult {
	if res := e.selectDate(ctx, run); !res.Success {
		return res
	}
	_ = e.clock.Wait(ctx, time.Second)

	if res := e.selectTime(ctx, run); !res.Success {
		return res
	}
	_ = e.clock.Wait(ctx, time.Second)

	res := e.clickFirst(ctx, run, run.stepSelectors(learner.IntentBookingButton, run.config.Site.TicketSelectors), "booking button")
	if res.Success {
		run.addLog("success", "booking button clicked")
	}
	return res
}

func (e *Executor) selectDate(ctx context.Context, run *Run) StepResult {
	selectors := run.stepSelectors(learner.IntentDateSelection, dom.SpecFor(dom.RoleDateSelector).Selectors)
	res := e.clickFirst(ctx, run, selectors, "available date")
	if res.Success {
		run.addLog("success", "date selected")
	}
	return res
}

func (e *Executor) selectTime(ctx context.Context, run *Run) StepResult {
	res := e.clickFirst(ctx, run, run.config.Patterns.Selectors(learner.IntentTimeSelection), "session time")
	if !res.Success {
		// Single-session events have no time picker; that is not a
		// failure of the booking attempt.
		if run.config.Patterns.Get(learner.IntentTimeSelection) == nil {
			run.addLog("info", "no session pattern learned, skipping time selection")
			return StepResult{Success: true}
		}
		return res
	}
	run.addLog("success", "session selected")
	return res
}

// selectSeats picks the highest-confidence visible seat candidate, then
// confirms the selection when a confirm pattern exists.
func (e *Executor) selectSeats(ctx context.Context, run *Run) StepResult {
	selectors := run.stepSelectors(learner.IntentSeatSelection, run.config.Site.SeatSelectors)
	res := e.clickFirst(ctx, run, selectors, "seat")
	if !res.Success {
		// Fall back to role classification when neither learned nor
		// site-hinted selectors land.
		matches := e.cls.Classify(ctx, run.page, dom.RoleSeatSelector)
		for _, m := range matches {
			if !m.Element.Visible {
				continue
			}
			if err := e.click(ctx, run, m.Element); err == nil {
				res = StepResult{Success: true}
				break
			}
		}
		if !res.Success {
			return StepResult{Success: false, Reason: "no selectable seat found"}
		}
	}
	run.addLog("success", "seat selected")

	if run.config.Patterns.Get(learner.IntentConfirmButton) != nil {
		confirm := e.clickFirst(ctx, run, run.config.Patterns.Selectors(learner.IntentConfirmButton), "confirm button")
		if confirm.Success {
			run.addLog("success", "selection confirmed")
		}
	}
	return StepResult{Success: true}
}

// fillLogin enters credentials when present and submits via the login
// element with the best confidence. Missing credentials leave the page
// for the user and report a retryable failure.
func (e *Executor) fillLogin(ctx context.Context, run *Run) StepResult {
	creds := run.config.Credentials
	if creds.Username == "" || creds.Password == "" {
		return StepResult{Success: false, Reason: "login page reached but no credentials configured"}
	}

	idSelectors := []string{`input[type="email"]`, `input[name*="id"]`, `input[type="text"]`}
	filled := false
	for _, sel := range idSelectors {
		if err := run.page.Fill(ctx, sel, creds.Username); err == nil {
			filled = true
			break
		}
	}
	if !filled {
		return StepResult{Success: false, Reason: "username field not found"}
	}
	if err := run.page.Fill(ctx, `input[type="password"]`, creds.Password); err != nil {
		return StepResult{Success: false, Reason: "password field not found"}
	}
	run.addLog("info", "credentials filled")

	matches := e.cls.Classify(ctx, run.page, dom.RoleLoginElement)
	for _, m := range matches {
		if m.Element.Visible && (m.Element.Tag == "button" || m.Element.InputType == "submit") {
			if err := e.click(ctx, run, m.Element); err == nil {
				run.addLog("success", "login submitted")
				return StepResult{Success: true}
			}
		}
	}
	return StepResult{Success: false, Reason: "login submit control not found"}
}

// fillPaymentContact surveys the payment page for the feed. Card
// fields and the pay control are never touched; submission stays
// manual.
func (e *Executor) fillPaymentContact(ctx context.Context, run *Run) {
	matches := e.cls.Classify(ctx, run.page, dom.RolePaymentButton)
	if len(matches) > 0 {
		run.addLog("info", "payment control located but intentionally not clicked")
	}
}
