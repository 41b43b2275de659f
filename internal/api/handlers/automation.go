package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"ticketflow/internal/browser"
	"ticketflow/internal/executor"
	"ticketflow/internal/models"
	"ticketflow/internal/sites"
	"ticketflow/internal/stealth"
	"ticketflow/pkg/response"
)

// StartAutomation launches a browser on the target page and begins an
// automated purchase flow with the site's learned patterns.
func (h *Handlers) StartAutomation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Unauthorized(c, "not logged in")
		return
	}

	var req struct {
		TargetURL string `json:"target_url" binding:"required,url"`
		Username  string `json:"username"`
		Password  string `json:"password"`
		RefreshMs int    `json:"refresh_ms"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sess, err := browser.NewSession(ctx, browser.SessionOptions{
		Headless: h.deps.Config.Chrome.HeadlessMode,
		Profile:  stealth.Default(),
	}, h.deps.Logger)
	if err != nil {
		cancel()
		response.InternalServerError(c, "failed to launch browser: "+err.Error())
		return
	}
	// The run context is cancel-only; the initial load gets the step
	// deadline so a page that never fires ready cannot hang the request.
	navCtx, cancelNav := context.WithTimeout(ctx, h.navTimeout())
	err = sess.Navigate(navCtx, req.TargetURL)
	cancelNav()
	if err != nil {
		sess.Close()
		cancel()
		response.InternalServerError(c, "failed to open target page: "+err.Error())
		return
	}

	site := h.deps.Resolver.Resolve(ctx, req.TargetURL, sess)
	if site == nil {
		sess.Close()
		cancel()
		response.BadRequest(c, "target page is not a recognized ticketing site")
		return
	}
	siteKey := sites.SiteKey(site.Name)

	runCfg := executor.RunConfig{
		Site:     site,
		Patterns: h.deps.Patterns.Latest(siteKey),
		Credentials: executor.Credentials{
			Username: req.Username,
			Password: req.Password,
		},
		RefreshInterval: time.Duration(req.RefreshMs) * time.Millisecond,
	}

	run, err := h.deps.Executor.StartRun(ctx, sess, runCfg, nil)
	if err != nil {
		sess.Close()
		cancel()
		response.InternalServerError(c, "failed to start automation: "+err.Error())
		return
	}

	row := models.AutomationRun{
		RunID:     run.ID,
		SiteKey:   siteKey,
		State:     string(executor.StateRunning),
		StartedAt: time.Now(),
		UserID:    userID,
	}
	if err := h.deps.DB.Create(&row).Error; err != nil {
		h.deps.Logger.Error().Err(err).Str("run", run.ID).Msg("failed to persist run row")
	}

	h.mu.Lock()
	h.runBrowsers[run.ID] = sess
	h.mu.Unlock()

	go h.reapRunBrowser(ctx, cancel, run)

	response.SuccessWithMessage(c, "automation started", gin.H{
		"run_id":   run.ID,
		"site":     site.Name,
		"site_key": siteKey,
	})
}

// reapRunBrowser closes a run's browser once the run reaches a terminal
// state, so stops take effect at the loop boundary rather than by
// killing Chrome under a gesture in flight.
func (h *Handlers) reapRunBrowser(ctx context.Context, cancel context.CancelFunc, run *executor.Run) {
	defer cancel()
	for {
		switch run.State() {
		case executor.StateStopped, executor.StateCompleted, executor.StateFaulted:
			h.mu.Lock()
			sess := h.runBrowsers[run.ID]
			delete(h.runBrowsers, run.ID)
			h.mu.Unlock()
			if sess != nil {
				sess.Close()
			}
			return
		}
		if err := h.deps.Clock.Wait(ctx, time.Second); err != nil {
			return
		}
	}
}

func (h *Handlers) StopAutomation(c *gin.Context) {
	var req struct {
		RunID string `json:"run_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.deps.Executor.StopRun(req.RunID); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "stop requested", gin.H{"run_id": req.RunID})
}

// GetAutomationStatus reports live state for a known run, falling back
// to the persisted row for runs from before a restart.
func (h *Handlers) GetAutomationStatus(c *gin.Context) {
	runID := c.Param("id")

	if run, ok := h.deps.Executor.GetRun(runID); ok {
		response.Success(c, gin.H{
			"run_id": run.ID,
			"state":  run.State(),
			"fault":  run.Fault(),
			"logs":   run.Logs(),
		})
		return
	}

	var row models.AutomationRun
	if err := h.deps.DB.Where("run_id = ?", runID).First(&row).Error; err != nil {
		response.NotFound(c, "run not found")
		return
	}
	response.Success(c, row)
}

func (h *Handlers) ListAutomationRuns(c *gin.Context) {
	page, pageSize := pagination(c)

	query := h.deps.DB.Model(&models.AutomationRun{})
	if site := c.Query("site"); site != "" {
		query = query.Where("site_key = ?", site)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		response.InternalServerError(c, "failed to count runs")
		return
	}

	var rows []models.AutomationRun
	err := query.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		response.InternalServerError(c, "failed to list runs")
		return
	}

	response.Page(c, rows, total, page, pageSize)
}
