package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ticketflow/internal/api/handlers"
	"ticketflow/internal/api/routes"
	"ticketflow/internal/classifier"
	"ticketflow/internal/config"
	"ticketflow/internal/executor"
	"ticketflow/internal/messaging"
	"ticketflow/internal/recorder"
	"ticketflow/internal/schedule"
	"ticketflow/internal/services"
	"ticketflow/internal/sites"
	"ticketflow/pkg/auth"
	"ticketflow/pkg/chrome"
	"ticketflow/pkg/credentials"
	"ticketflow/pkg/database"
	"ticketflow/pkg/export"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()
	if cfg.Server.Mode == "release" {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.InitDatabase(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	store := database.NewStore(db)

	clock := schedule.Real{}
	if chrome.DebugPortAlive(cfg.Chrome.DebugPort) {
		logger.Warn().Int("port", cfg.Chrome.DebugPort).
			Msg("chrome debug port already in use, sessions will attach to the existing browser")
	}
	authMgr := auth.NewManager(cfg.JWT.Secret, cfg.JWT.ExpireTime)
	resolver := sites.NewResolver(logger)
	cls := classifier.New(logger)
	recorders := recorder.NewManager()
	exec := executor.New(cfg.Executor, clock, cls, logger)

	network := messaging.NewNetworkBuffer(0)
	control := messaging.NewController(network, func(payload json.RawMessage) {
		handlers.StoreAnalysisPayload(store, payload)
	}, logger)

	patternSync := services.NewPatternSync(db, cfg.Sync.PatternInterval, logger)
	if err := patternSync.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start pattern sync")
	}

	runSync := services.NewRunSync(db, exec, logger)
	runSync.Start(0)

	h := handlers.New(handlers.Deps{
		Config:     cfg,
		DB:         db,
		Logger:     logger,
		Auth:       authMgr,
		Recorders:  recorders,
		Executor:   exec,
		Resolver:   resolver,
		Classifier: cls,
		Store:      store,
		Patterns:   patternSync,
		Control:    control,
		Exporter:   export.NewWriter(cfg.Server.ExportDir),
		Cookies:    credentials.NewReader(cfg.Chrome.CookiePath),
		Clock:      clock,
	})

	gin.SetMode(cfg.Server.Mode)
	router := routes.SetupRoutes(h, authMgr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info().Msg("shutting down")
		patternSync.Stop()
		runSync.Stop()
		os.Exit(0)
	}()

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Info().Str("addr", addr).Msg("server starting")
	if err := router.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
