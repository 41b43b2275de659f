package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"ticketflow/internal/learner"
	"ticketflow/internal/recorder"
)

type BaseModel struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

type User struct {
	BaseModel
	Username string `json:"username" gorm:"uniqueIndex;size:100;not null"`
	Email    string `json:"email" gorm:"uniqueIndex;size:100;not null"`
	Password string `json:"-" gorm:"size:255;not null"`
	Status   int    `json:"status" gorm:"default:1"` // 1:active, 0:inactive
}

// RecordingSession is one manual session captured for learning. Actions
// holds the masked action log in JSON form.
type RecordingSession struct {
	BaseModel
	SessionID string `json:"session_id" gorm:"uniqueIndex;size:64;not null"`
	Site      string `json:"site" gorm:"size:100"`
	SiteKey   string `json:"site_key" gorm:"index;size:200"`
	TargetURL string `json:"target_url" gorm:"size:500"`
	Actions   string `json:"actions" gorm:"type:longtext"` // JSON RecordedAction array
	Count     int    `json:"count"`
	UserID    uint   `json:"user_id" gorm:"not null"`
	User      User   `json:"user" gorm:"foreignKey:UserID"`
}

func (rs *RecordingSession) GetActions() ([]recorder.RecordedAction, error) {
	var actions []recorder.RecordedAction
	if rs.Actions == "" {
		return actions, nil
	}
	err := json.Unmarshal([]byte(rs.Actions), &actions)
	return actions, err
}

func (rs *RecordingSession) SetActions(actions []recorder.RecordedAction) error {
	data, err := json.Marshal(actions)
	if err != nil {
		return err
	}
	rs.Actions = string(data)
	rs.Count = len(actions)
	return nil
}

// PatternRecord persists one learned pattern set per site. The sync
// service pulls the newest record per site key into live executor
// config.
type PatternRecord struct {
	BaseModel
	SiteKey  string `json:"site_key" gorm:"index;size:200;not null"`
	Source   string `json:"source" gorm:"size:50;default:user_recording"`
	Version  string `json:"version" gorm:"size:20;default:1.0"`
	Patterns string `json:"patterns" gorm:"type:longtext"` // JSON PatternSet
	UserID   uint   `json:"user_id" gorm:"not null"`
}

func (pr *PatternRecord) GetPatternSet() (*learner.PatternSet, error) {
	if pr.Patterns == "" {
		return nil, nil
	}
	var set learner.PatternSet
	if err := json.Unmarshal([]byte(pr.Patterns), &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (pr *PatternRecord) SetPatternSet(set *learner.PatternSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return err
	}
	pr.Patterns = string(data)
	return nil
}

// AutomationRun records the lifecycle and activity feed of one executor
// run.
type AutomationRun struct {
	BaseModel
	RunID     string     `json:"run_id" gorm:"uniqueIndex;size:64;not null"`
	SiteKey   string     `json:"site_key" gorm:"index;size:200"`
	State     string     `json:"state" gorm:"size:20"`
	Fault     string     `json:"fault" gorm:"size:1000"`
	Logs      string     `json:"logs" gorm:"type:longtext"` // JSON RunLog array
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	UserID    uint       `json:"user_id" gorm:"not null"`
}

// KVSnapshot backs the namespaced key-value snapshot store. Writes are
// last-write-wins; no versioning.
type KVSnapshot struct {
	BaseModel
	Key   string `json:"key" gorm:"uniqueIndex;size:255;not null"`
	Value string `json:"value" gorm:"type:longtext"`
}
