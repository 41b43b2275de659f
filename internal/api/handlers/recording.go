package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ticketflow/internal/browser"
	"ticketflow/internal/funnel"
	"ticketflow/internal/models"
	"ticketflow/internal/recorder"
	"ticketflow/internal/sites"
	"ticketflow/internal/stealth"
	"ticketflow/pkg/response"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StartRecording opens a browser on the target page and begins capturing
// user actions into the session's log.
func (h *Handlers) StartRecording(c *gin.Context) {
	var req struct {
		TargetURL string `json:"target_url" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	sessionID := uuid.New().String()
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
	siteName, siteKey := "", ""
	if site != nil {
		siteName = site.Name
		siteKey = sites.SiteKey(site.Name)
	}

	recCfg := h.deps.Config.Recorder
	rec := recorder.New(sessionID, sess,
		recorder.NewLog(recCfg.MaxLogEntries, recCfg.EvictTo),
		h.deps.Clock, recCfg.PollInterval, h.deps.Logger)
	machine := funnel.NewMachine(h.deps.Logger)
	if err := rec.Start(ctx); err != nil {
		sess.Close()
		cancel()
		response.InternalServerError(c, "failed to start recording: "+err.Error())
		return
	}
	if err := h.deps.Recorders.Register(sessionID, rec); err != nil {
		rec.Stop()
		sess.Close()
		cancel()
		response.InternalServerError(c, err.Error())
		return
	}

	// Track the funnel stage alongside the raw actions; the monitor
	// re-detects on URL changes and on the recorder's mutation feed.
	monitor := funnel.NewMonitor(machine, sess, h.deps.Clock,
		recCfg.PollInterval, rec.Mutations())
	go monitor.Run(ctx)

	h.mu.Lock()
	h.sessions[sessionID] = &liveSession{
		browser:   sess,
		recorder:  rec,
		funnel:    machine,
		cancel:    cancel,
		site:      siteName,
		siteKey:   siteKey,
		targetURL: req.TargetURL,
	}
	h.mu.Unlock()

	response.SuccessWithMessage(c, "recording started", gin.H{
		"session_id": sessionID,
		"site":       siteName,
		"site_key":   siteKey,
	})
}

// StopRecording halts capture and closes the session's browser. The
// action log stays available for saving and learning.
func (h *Handlers) StopRecording(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ls, ok := h.session(req.SessionID)
	if !ok {
		response.NotFound(c, "recording session not found")
		return
	}

	if err := ls.recorder.Stop(); err != nil {
		response.InternalServerError(c, "failed to stop recording: "+err.Error())
		return
	}
	ls.browser.Close()
	ls.cancel()

	response.SuccessWithMessage(c, "recording stopped", gin.H{
		"session_id": req.SessionID,
		"actions":    len(ls.recorder.Actions()),
	})
}

func (h *Handlers) GetRecordingStatus(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		response.BadRequest(c, "session_id is required")
		return
	}

	isRecording, actions, err := h.deps.Recorders.Status(sessionID)
	if err != nil {
		response.NotFound(c, "recording session not found")
		return
	}
	if actions == nil {
		actions = make([]recorder.RecordedAction, 0)
	}

	payload := gin.H{
		"is_recording": isRecording,
		"actions":      actions,
	}
	if ls, ok := h.session(sessionID); ok && ls.funnel != nil {
		payload["stage"] = ls.funnel.Current()
		payload["stage_history"] = ls.funnel.History()
	}
	response.Success(c, payload)
}

// SaveRecording persists a stopped session's action log.
func (h *Handlers) SaveRecording(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Unauthorized(c, "not logged in")
		return
	}

	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	isRecording, actions, err := h.deps.Recorders.Status(req.SessionID)
	if err != nil {
		response.NotFound(c, "recording session not found")
		return
	}
	if isRecording {
		response.BadRequest(c, "stop the recording first")
		return
	}
	if len(actions) == 0 {
		response.BadRequest(c, "no actions were recorded")
		return
	}

	row := models.RecordingSession{
		SessionID: req.SessionID,
		UserID:    userID,
	}
	if ls, ok := h.session(req.SessionID); ok {
		row.Site = ls.site
		row.SiteKey = ls.siteKey
		row.TargetURL = ls.targetURL
	}
	if err := row.SetActions(actions); err != nil {
		response.InternalServerError(c, "failed to encode actions")
		return
	}
	if err := h.deps.DB.Create(&row).Error; err != nil {
		response.InternalServerError(c, "failed to save recording")
		return
	}

	h.deps.Recorders.CleanupSession(req.SessionID)
	h.mu.Lock()
	delete(h.sessions, req.SessionID)
	h.mu.Unlock()

	response.SuccessWithMessage(c, "recording saved", row)
}

func (h *Handlers) ListRecordings(c *gin.Context) {
	page, pageSize := pagination(c)

	query := h.deps.DB.Model(&models.RecordingSession{})
	if site := c.Query("site"); site != "" {
		query = query.Where("site_key = ?", site)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		response.InternalServerError(c, "failed to count recordings")
		return
	}

	var rows []models.RecordingSession
	err := query.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		response.InternalServerError(c, "failed to list recordings")
		return
	}

	response.Page(c, rows, total, page, pageSize)
}

// ExportRecording writes a saved session's actions to a JSON artifact.
func (h *Handlers) ExportRecording(c *gin.Context) {
	sessionID := c.Param("id")

	var row models.RecordingSession
	if err := h.deps.DB.Where("session_id = ?", sessionID).First(&row).Error; err != nil {
		response.NotFound(c, "recording not found")
		return
	}
	actions, err := row.GetActions()
	if err != nil {
		response.InternalServerError(c, "failed to decode actions")
		return
	}

	path, err := h.deps.Exporter.WriteActions(actions)
	if err != nil {
		response.InternalServerError(c, "failed to export actions: "+err.Error())
		return
	}
	response.SuccessWithMessage(c, "recording exported", gin.H{"path": path})
}

// RecordingWebSocket streams captured actions to the dashboard as they
// arrive. The session is created by an authenticated user, which serves
// as implicit authorization here.
func (h *Handlers) RecordingWebSocket(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.deps.Logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	rec, exists := h.deps.Recorders.Get(sessionID)
	if !exists {
		conn.WriteJSON(gin.H{"error": "recording session not found"})
		return
	}
	rec.SetWebSocketConnection(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func pagination(c *gin.Context) (int, int) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
