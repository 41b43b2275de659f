package handlers

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"ticketflow/internal/classifier"
	"ticketflow/internal/sites"
	"ticketflow/pkg/database"
	"ticketflow/pkg/response"
)

// AnalyzePage classifies every page element role for a live session and
// stores the snapshot as the site's latest analysis.
func (h *Handlers) AnalyzePage(c *gin.Context) {
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

	ctx := context.Background()
	analysis, err := h.deps.Classifier.AnalyzePage(ctx, ls.browser, ls.site, sites.Hostname(ls.targetURL))
	if err != nil {
		response.InternalServerError(c, "page analysis failed: "+err.Error())
		return
	}

	if ls.siteKey != "" {
		if err := h.deps.Store.Put(database.AnalysisKey(ls.siteKey), analysis); err != nil {
			h.deps.Logger.Warn().Err(err).Str("site", ls.siteKey).Msg("failed to snapshot analysis")
		}
	}

	response.Success(c, analysis)
}

// GetAnalysis returns the stored latest analysis for a site.
func (h *Handlers) GetAnalysis(c *gin.Context) {
	siteKey := c.Query("site")
	if siteKey == "" {
		response.BadRequest(c, "site is required")
		return
	}

	var analysis classifier.PageAnalysis
	found, err := h.deps.Store.Get(database.AnalysisKey(siteKey), &analysis)
	if err != nil {
		response.InternalServerError(c, "failed to load analysis")
		return
	}
	if !found {
		response.NotFound(c, "no analysis stored for this site")
		return
	}
	response.Success(c, analysis)
}

// ExportAnalysis writes the stored analysis to a JSON artifact.
func (h *Handlers) ExportAnalysis(c *gin.Context) {
	siteKey := c.Param("site")

	var analysis classifier.PageAnalysis
	found, err := h.deps.Store.Get(database.AnalysisKey(siteKey), &analysis)
	if err != nil || !found {
		response.NotFound(c, "no analysis stored for this site")
		return
	}

	path, err := h.deps.Exporter.WriteAnalysis(&analysis)
	if err != nil {
		response.InternalServerError(c, "failed to export analysis: "+err.Error())
		return
	}
	response.SuccessWithMessage(c, "analysis exported", gin.H{"path": path})
}

// StoreAnalysisPayload persists dom-analysis-result messages arriving
// from the extension channel. Wired as the messaging controller's
// analysis callback in main.
func StoreAnalysisPayload(store *database.Store, payload json.RawMessage) {
	var probe struct {
		Site string `json:"site"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil || probe.Site == "" {
		return
	}
	_ = store.Put(database.AnalysisKey(sites.SiteKey(probe.Site)), payload)
}
