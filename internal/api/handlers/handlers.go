package handlers

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"ticketflow/internal/browser"
	"ticketflow/internal/classifier"
	"ticketflow/internal/config"
	"ticketflow/internal/executor"
	"ticketflow/internal/funnel"
	"ticketflow/internal/messaging"
	"ticketflow/internal/recorder"
	"ticketflow/internal/schedule"
	"ticketflow/internal/services"
	"ticketflow/internal/sites"
	"ticketflow/pkg/auth"
	"ticketflow/pkg/credentials"
	"ticketflow/pkg/database"
	"ticketflow/pkg/export"
	"ticketflow/pkg/response"
)

// Deps carries everything the API layer needs, wired once in main.
type Deps struct {
	Config     *config.Config
	DB         *gorm.DB
	Logger     zerolog.Logger
	Auth       *auth.Manager
	Recorders  *recorder.Manager
	Executor   *executor.Executor
	Resolver   *sites.Resolver
	Classifier *classifier.Classifier
	Store      *database.Store
	Patterns   *services.PatternSync
	Control    *messaging.Controller
	Exporter   *export.Writer
	Cookies    *credentials.Reader
	Clock      schedule.Clock
}

// liveSession is one open browser attached to a recording session.
type liveSession struct {
	browser   *browser.Session
	recorder  *recorder.Recorder
	funnel    *funnel.Machine
	cancel    context.CancelFunc
	site      string
	siteKey   string
	targetURL string
}

type Handlers struct {
	deps Deps

	mu          sync.Mutex
	sessions    map[string]*liveSession
	runBrowsers map[string]*browser.Session
}

func New(deps Deps) *Handlers {
	return &Handlers{
		deps:        deps,
		sessions:    make(map[string]*liveSession),
		runBrowsers: make(map[string]*browser.Session),
	}
}

// navTimeout bounds page loads issued directly by handlers.
func (h *Handlers) navTimeout() time.Duration {
	if t := h.deps.Config.Executor.StepTimeout; t > 0 {
		return t
	}
	return 30 * time.Second
}

func (h *Handlers) session(sessionID string) (*liveSession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ls, ok := h.sessions[sessionID]
	return ls, ok
}

func (h *Handlers) HealthCheck(c *gin.Context) {
	response.Success(c, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
