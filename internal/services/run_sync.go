package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"ticketflow/internal/executor"
	"ticketflow/internal/models"
)

// RunSync mirrors live executor state into automation_run rows so the
// dashboard survives a backend restart with an accurate history. The
// executor stays the source of truth while a run is alive.
type RunSync struct {
	db     *gorm.DB
	exec   *executor.Executor
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	ticker  *time.Ticker
	stopCh  chan struct{}
}

func NewRunSync(db *gorm.DB, exec *executor.Executor, logger zerolog.Logger) *RunSync {
	return &RunSync{
		db:     db,
		exec:   exec,
		logger: logger.With().Str("component", "run_sync").Logger(),
	}
}

func (s *RunSync) Start(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s.running = true
	s.ticker = time.NewTicker(interval)
	s.stopCh = make(chan struct{})
	go s.loop(s.ticker, s.stopCh)
	s.logger.Info().Msg("run sync started")
}

func (s *RunSync) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.ticker.Stop()
	close(s.stopCh)
	s.logger.Info().Msg("run sync stopped")
}

// loop owns its ticker and stop channel so a concurrent Stop can never
// invalidate what it is selecting on.
func (s *RunSync) loop(ticker *time.Ticker, stopCh chan struct{}) {
	for {
		select {
		case <-ticker.C:
			s.SyncOnce()
		case <-stopCh:
			return
		}
	}
}

// SyncOnce writes the current state of every known run to its row.
func (s *RunSync) SyncOnce() {
	for _, run := range s.exec.Runs() {
		state := run.State()

		var row models.AutomationRun
		err := s.db.Where("run_id = ?", run.ID).First(&row).Error
		if err == gorm.ErrRecordNotFound {
			continue
		}
		if err != nil {
			s.logger.Error().Err(err).Str("run", run.ID).Msg("failed to load run row")
			continue
		}

		logs, err := json.Marshal(run.Logs())
		if err != nil {
			s.logger.Error().Err(err).Str("run", run.ID).Msg("failed to marshal run logs")
			continue
		}

		updates := map[string]interface{}{
			"state": string(state),
			"fault": run.Fault(),
			"logs":  string(logs),
		}
		if terminal(state) && row.EndedAt == nil {
			now := time.Now()
			updates["ended_at"] = &now
		}
		if err := s.db.Model(&row).Updates(updates).Error; err != nil {
			s.logger.Error().Err(err).Str("run", run.ID).Msg("failed to sync run state")
		}
	}
}

func terminal(state executor.RunState) bool {
	switch state {
	case executor.StateStopped, executor.StateCompleted, executor.StateFaulted:
		return true
	}
	return false
}
