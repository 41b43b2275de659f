package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"ticketflow/internal/stealth"
	"ticketflow/pkg/chrome"
)

// Session owns one Chrome tab. When a click opens a new window the
// session transfers itself to the new target and abandons the old tab
// without closing it, in case the user still needs it.
type Session struct {
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	allocStop context.CancelFunc
	profile   stealth.Profile
	logger    zerolog.Logger
}

// SessionOptions configures the Chrome launch.
type SessionOptions struct {
	Headless  bool
	UserAgent string
	Profile   stealth.Profile
}

// NewSession launches Chrome and opens a blank tab with the stealth
// profile installed.
func NewSession(parent context.Context, opts SessionOptions, logger zerolog.Logger) (*Session, error) {
	chromePath := chrome.GetChromePath()
	if chromePath == "" {
		chromePath = chrome.GetFlatpakChromePath()
		if chromePath == "" {
			return nil, fmt.Errorf("chrome browser not found, install Google Chrome or Chromium")
		}
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("no-pings", true),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	} else if opts.Profile.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.Profile.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:       tabCtx,
		cancel:    tabCancel,
		allocStop: allocCancel,
		profile:   opts.Profile,
		logger:    logger.With().Str("component", "browser").Logger(),
	}

	if err := s.installStealth(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to install stealth profile: %w", err)
	}

	s.watchNewTargets(tabCtx)
	return s, nil
}

func (s *Session) installStealth(ctx context.Context) error {
	if len(s.profile.Scripts) == 0 {
		return nil
	}
	actions := make([]chromedp.Action, 0, len(s.profile.Scripts))
	for _, script := range s.profile.Scripts {
		script := script
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
			return err
		}))
	}
	return chromedp.Run(ctx, actions...)
}

// watchNewTargets transfers ownership of the current page handle when a
// booking click spawns a new window.
func (s *Session) watchNewTargets(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		created, ok := ev.(*target.EventTargetCreated)
		if !ok || created.TargetInfo.Type != "page" || created.TargetInfo.OpenerID == "" {
			return
		}
		go s.adoptTarget(created.TargetInfo.TargetID)
	})
}

func (s *Session) adoptTarget(id target.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldCtx, oldCancel := s.ctx, s.cancel
	newCtx, newCancel := chromedp.NewContext(oldCtx, chromedp.WithTargetID(id))
	if err := chromedp.Run(newCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		s.logger.Warn().Err(err).Msg("new window not ready, keeping current tab")
		newCancel()
		return
	}

	s.ctx = newCtx
	s.cancel = func() {
		newCancel()
		oldCancel()
	}
	if err := s.installStealth(newCtx); err != nil {
		s.logger.Warn().Err(err).Msg("stealth install on adopted window failed")
	}
	s.watchNewTargets(newCtx)
	s.logger.Info().Str("target", string(id)).Msg("ownership transferred to new window")
}

// current returns the live tab context under the lock.
func (s *Session) current() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// run executes chromedp actions against the current tab, bounded by the
// caller's context deadline.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx := s.current()
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithDeadline(tabCtx, deadline)
		defer cancel()
	}
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (s *Session) Reload(ctx context.Context, hard bool) error {
	if !hard {
		return s.run(ctx,
			chromedp.Reload(),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	}
	// Hard reload waits past readiness for late resources to settle.
	return s.run(ctx,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
	)
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Evaluate runs a script in the current tab, decoding the result into
// out when out is non-nil.
func (s *Session) Evaluate(ctx context.Context, script string, out interface{}) error {
	if out == nil {
		return s.run(ctx, chromedp.Evaluate(script, nil))
	}
	return s.run(ctx, chromedp.Evaluate(script, out))
}

// Close tears down the tab and the Chrome process.
func (s *Session) Close() {
	s.mu.Lock()
	cancel := s.cancel
	allocStop := s.allocStop
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if allocStop != nil {
		allocStop()
	}
}
