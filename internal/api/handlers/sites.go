package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"ticketflow/internal/sites"
	"ticketflow/pkg/response"
)

func (h *Handlers) ListSites(c *gin.Context) {
	response.Success(c, sites.KnownProfiles())
}

// ResolveSite identifies the ticketing site behind a URL. With a live
// session attached the full page heuristic runs; otherwise only the
// known-site table is consulted.
func (h *Handlers) ResolveSite(c *gin.Context) {
	var req struct {
		URL       string `json:"url" binding:"required,url"`
		SessionID string `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if req.SessionID != "" {
		ls, ok := h.session(req.SessionID)
		if !ok {
			response.NotFound(c, "recording session not found")
			return
		}
		profile := h.deps.Resolver.Resolve(context.Background(), req.URL, ls.browser)
		if profile == nil {
			response.NotFound(c, "page does not look like a ticketing site")
			return
		}
		response.Success(c, profile)
		return
	}

	profile := sites.MatchKnown(sites.Hostname(req.URL))
	if profile == nil {
		response.NotFound(c, "hostname does not match a known ticketing site")
		return
	}
	response.Success(c, profile)
}

// CheckSiteLogin inspects local Chrome cookies for an existing session
// on the site.
func (h *Handlers) CheckSiteLogin(c *gin.Context) {
	host := c.Query("host")
	if host == "" {
		host = "interpark"
	}
	response.Success(c, h.deps.Cookies.CheckLogin(host))
}
