package routes

import (
	"github.com/gin-gonic/gin"

	"ticketflow/internal/api/handlers"
	"ticketflow/internal/api/middleware"
	"ticketflow/pkg/auth"
)

func SetupRoutes(h *handlers.Handlers, authMgr *auth.Manager) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.CORSMiddleware())
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		// Public routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", h.Login)
			authGroup.POST("/register", h.Register)
		}

		v1.GET("/health", h.HealthCheck)

		// WebSocket action feed; the session id doubles as authorization
		v1.GET("/ws/recording", h.RecordingWebSocket)

		// Browser-extension channel
		extension := v1.Group("/extension")
		{
			extension.POST("/message", h.ExtensionMessage)
			extension.GET("/login-status", h.GetLoginStatuses)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(authMgr))
		{
			users := protected.Group("/users")
			{
				users.GET("/profile", h.GetProfile)
				users.PUT("/profile", h.UpdateProfile)
			}

			siteGroup := protected.Group("/sites")
			{
				siteGroup.GET("", h.ListSites)
				siteGroup.POST("/resolve", h.ResolveSite)
				siteGroup.GET("/login-check", h.CheckSiteLogin)
			}

			recording := protected.Group("/recording")
			{
				recording.POST("/start", h.StartRecording)
				recording.POST("/stop", h.StopRecording)
				recording.GET("/status", h.GetRecordingStatus)
				recording.POST("/save", h.SaveRecording)
				recording.GET("/sessions", h.ListRecordings)
				recording.GET("/sessions/:id/export", h.ExportRecording)
			}

			patterns := protected.Group("/patterns")
			{
				patterns.POST("/learn", h.LearnPatterns)
				patterns.GET("", h.GetPatterns)
				patterns.GET("/records", h.ListPatterns)
				patterns.POST("/import", h.ImportPatterns)
				patterns.GET("/:site/export", h.ExportPatterns)
			}

			analysis := protected.Group("/analysis")
			{
				analysis.POST("", h.AnalyzePage)
				analysis.GET("", h.GetAnalysis)
				analysis.GET("/:site/export", h.ExportAnalysis)
			}

			automation := protected.Group("/automation")
			{
				automation.POST("/start", h.StartAutomation)
				automation.POST("/stop", h.StopAutomation)
				automation.GET("/runs", h.ListAutomationRuns)
				automation.GET("/runs/:id", h.GetAutomationStatus)
			}
		}
	}

	return router
}
