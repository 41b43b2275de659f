package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"ticketflow/internal/learner"
	"ticketflow/internal/models"
)

// PatternSync periodically pulls the newest learned pattern set per site
// out of the database and caches it for executors and handlers. Updates
// fan out to subscribers so a running automation can pick up fresher
// selectors without a restart.
type PatternSync struct {
	db       *gorm.DB
	cron     *cron.Cron
	interval time.Duration
	logger   zerolog.Logger

	mu        sync.RWMutex
	latest    map[string]*learner.PatternSet
	versions  map[string]uint
	listeners []func(siteKey string, set *learner.PatternSet)
}

func NewPatternSync(db *gorm.DB, interval time.Duration, logger zerolog.Logger) *PatternSync {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PatternSync{
		db:       db,
		cron:     cron.New(cron.WithSeconds()),
		interval: interval,
		logger:   logger.With().Str("component", "pattern_sync").Logger(),
		latest:   make(map[string]*learner.PatternSet),
		versions: make(map[string]uint),
	}
}

// Subscribe registers a callback invoked whenever a site's patterns
// change. Must be called before Start.
func (s *PatternSync) Subscribe(fn func(siteKey string, set *learner.PatternSet)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *PatternSync) Start() error {
	s.Refresh()
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.Refresh); err != nil {
		return fmt.Errorf("failed to schedule pattern sync: %w", err)
	}
	s.cron.Start()
	s.logger.Info().Dur("interval", s.interval).Msg("pattern sync started")
	return nil
}

func (s *PatternSync) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("pattern sync stopped")
}

// Latest returns the cached pattern set for a site, nil when none has
// been learned yet.
func (s *PatternSync) Latest(siteKey string) *learner.PatternSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest[siteKey]
}

// Refresh loads the newest pattern record per site key and notifies
// subscribers about changes. Unparseable records are skipped, not
// fatal.
func (s *PatternSync) Refresh() {
	var records []models.PatternRecord
	err := s.db.Order("site_key, id DESC").Find(&records).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load pattern records")
		return
	}

	type update struct {
		siteKey string
		set     *learner.PatternSet
	}
	var updates []update

	s.mu.Lock()
	seen := make(map[string]bool)
	for _, rec := range records {
		if seen[rec.SiteKey] {
			continue
		}
		seen[rec.SiteKey] = true

		if s.versions[rec.SiteKey] == rec.ID {
			continue
		}
		set, err := rec.GetPatternSet()
		if err != nil || set == nil {
			s.logger.Warn().Err(err).Str("site", rec.SiteKey).Msg("skipping unreadable pattern record")
			continue
		}
		s.latest[rec.SiteKey] = set
		s.versions[rec.SiteKey] = rec.ID
		updates = append(updates, update{siteKey: rec.SiteKey, set: set})
	}
	listeners := make([]func(string, *learner.PatternSet), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, u := range updates {
		s.logger.Info().Str("site", u.siteKey).Int("patterns", len(u.set.Patterns)).Msg("patterns updated")
		for _, fn := range listeners {
			fn(u.siteKey, u.set)
		}
	}
}
