package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"ticketflow/internal/learner"
	"ticketflow/internal/models"
	"ticketflow/pkg/database"
	"ticketflow/pkg/export"
	"ticketflow/pkg/response"
)

// LearnPatterns runs the pattern learner over a saved recording and
// persists the result as the site's newest pattern set.
func (h *Handlers) LearnPatterns(c *gin.Context) {
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

	var row models.RecordingSession
	if err := h.deps.DB.Where("session_id = ?", req.SessionID).First(&row).Error; err != nil {
		response.NotFound(c, "recording not found, save it first")
		return
	}
	actions, err := row.GetActions()
	if err != nil {
		response.InternalServerError(c, "failed to decode actions")
		return
	}
	if len(actions) == 0 {
		response.BadRequest(c, "recording contains no actions")
		return
	}

	set := learner.Learn(actions)
	if len(set.Patterns) == 0 {
		response.BadRequest(c, "no patterns could be learned from this recording")
		return
	}

	rec := models.PatternRecord{
		SiteKey: row.SiteKey,
		Source:  "user_recording",
		Version: "1.0",
		UserID:  userID,
	}
	if err := rec.SetPatternSet(set); err != nil {
		response.InternalServerError(c, "failed to encode patterns")
		return
	}
	if err := h.deps.DB.Create(&rec).Error; err != nil {
		response.InternalServerError(c, "failed to save patterns")
		return
	}

	if err := h.deps.Store.Put(database.PatternKey(row.SiteKey), set); err != nil {
		h.deps.Logger.Warn().Err(err).Str("site", row.SiteKey).Msg("failed to snapshot patterns")
	}
	h.deps.Patterns.Refresh()

	response.SuccessWithMessage(c, "patterns learned", gin.H{
		"site_key": row.SiteKey,
		"patterns": set,
	})
}

func (h *Handlers) GetPatterns(c *gin.Context) {
	siteKey := c.Query("site")
	if siteKey == "" {
		response.BadRequest(c, "site is required")
		return
	}

	set := h.deps.Patterns.Latest(siteKey)
	if set == nil {
		response.NotFound(c, "no patterns learned for this site")
		return
	}
	response.Success(c, set)
}

func (h *Handlers) ListPatterns(c *gin.Context) {
	page, pageSize := pagination(c)

	query := h.deps.DB.Model(&models.PatternRecord{})
	if site := c.Query("site"); site != "" {
		query = query.Where("site_key = ?", site)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		response.InternalServerError(c, "failed to count pattern records")
		return
	}

	var rows []models.PatternRecord
	err := query.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		response.InternalServerError(c, "failed to list pattern records")
		return
	}

	response.Page(c, rows, total, page, pageSize)
}

// ImportPatterns accepts a previously exported pattern artifact and
// registers it as the site's newest set.
func (h *Handlers) ImportPatterns(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Unauthorized(c, "not logged in")
		return
	}

	var req struct {
		SiteKey  string          `json:"site_key" binding:"required"`
		Patterns json.RawMessage `json:"patterns"`
		Path     string          `json:"path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var (
		set *learner.PatternSet
		err error
	)
	switch {
	case len(req.Patterns) > 0:
		set, err = export.ParsePatterns(req.Patterns)
	case req.Path != "":
		set, err = export.ReadPatterns(req.Path)
	default:
		response.BadRequest(c, "either patterns or path is required")
		return
	}
	if err != nil {
		response.BadRequest(c, "unrecognized pattern data: "+err.Error())
		return
	}

	rec := models.PatternRecord{
		SiteKey: req.SiteKey,
		Source:  "imported",
		Version: "1.0",
		UserID:  userID,
	}
	if err := rec.SetPatternSet(set); err != nil {
		response.InternalServerError(c, "failed to encode patterns")
		return
	}
	if err := h.deps.DB.Create(&rec).Error; err != nil {
		response.InternalServerError(c, "failed to save patterns")
		return
	}

	if err := h.deps.Store.Put(database.ImportKey(req.SiteKey), set); err != nil {
		h.deps.Logger.Warn().Err(err).Str("site", req.SiteKey).Msg("failed to snapshot imported patterns")
	}
	h.deps.Patterns.Refresh()

	response.SuccessWithMessage(c, "patterns imported", gin.H{
		"site_key": req.SiteKey,
		"patterns": len(set.Patterns),
	})
}

// ExportPatterns writes the site's newest pattern set to a JSON artifact.
func (h *Handlers) ExportPatterns(c *gin.Context) {
	siteKey := c.Param("site")

	set := h.deps.Patterns.Latest(siteKey)
	if set == nil {
		response.NotFound(c, "no patterns learned for this site")
		return
	}

	path, err := h.deps.Exporter.WritePatterns(set, "user_recording")
	if err != nil {
		response.InternalServerError(c, "failed to export patterns: "+err.Error())
		return
	}
	response.SuccessWithMessage(c, "patterns exported", gin.H{"path": path})
}
