package database

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ticketflow/internal/models"
)

// Store is a namespaced JSON snapshot store backed by KVSnapshot rows.
// Writes are last-write-wins. Reads of missing or corrupt values report
// "no prior data" rather than an error so callers can fall back to a
// fresh start.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func AnalysisKey(siteKey string) string {
	return "latest_analysis_" + siteKey
}

func PatternKey(siteKey string) string {
	return "selector_patterns_" + siteKey
}

func ImportKey(siteKey string) string {
	return "imported_patterns_" + siteKey
}

// Put marshals value and upserts it under key.
func (s *Store) Put(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", key, err)
	}
	row := models.KVSnapshot{Key: key, Value: string(data)}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", key, err)
	}
	return nil
}

// Get unmarshals the value stored under key into out. The second return
// is false when no usable snapshot exists.
func (s *Store) Get(key string, out interface{}) (bool, error) {
	var row models.KVSnapshot
	err := s.db.Where("`key` = ?", key).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}
	if row.Value == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(row.Value), out); err != nil {
		// Corrupt snapshots are treated as absent.
		return false, nil
	}
	return true, nil
}

func (s *Store) Delete(key string) error {
	return s.db.Where("`key` = ?", key).Delete(&models.KVSnapshot{}).Error
}
