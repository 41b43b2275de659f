// Package export writes recorded sessions, learned patterns, and page
// analyses to pretty-printed JSON files for sharing between machines.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ticketflow/internal/classifier"
	"ticketflow/internal/learner"
	"ticketflow/internal/recorder"
)

const patternVersion = "1.0"

type ActionArtifact struct {
	Timestamp    time.Time                 `json:"timestamp"`
	TotalActions int                       `json:"totalActions"`
	Actions      []recorder.RecordedAction `json:"actions"`
}

type PatternArtifact struct {
	Timestamp time.Time           `json:"timestamp"`
	Version   string              `json:"version"`
	Source    string              `json:"source"`
	Patterns  *learner.PatternSet `json:"patterns"`
}

// Writer drops artifacts into a single export directory, creating it on
// first use.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

func (w *Writer) WriteActions(actions []recorder.RecordedAction) (string, error) {
	artifact := ActionArtifact{
		Timestamp:    time.Now(),
		TotalActions: len(actions),
		Actions:      actions,
	}
	return w.write("user_actions", artifact)
}

func (w *Writer) WritePatterns(set *learner.PatternSet, source string) (string, error) {
	if source == "" {
		source = "user_recording"
	}
	artifact := PatternArtifact{
		Timestamp: time.Now(),
		Version:   patternVersion,
		Source:    source,
		Patterns:  set,
	}
	return w.write("selector_patterns", artifact)
}

func (w *Writer) WriteAnalysis(analysis *classifier.PageAnalysis) (string, error) {
	return w.write("page_analysis", analysis)
}

// write marshals v and stores it under <prefix>_<unix-ms>.json.
func (w *Writer) write(prefix string, v interface{}) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s artifact: %w", prefix, err)
	}
	name := fmt.Sprintf("%s_%d.json", prefix, time.Now().UnixMilli())
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// ReadPatterns loads a previously exported pattern artifact. Both the
// wrapped artifact form and a bare pattern set are accepted.
func ReadPatterns(path string) (*learner.PatternSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParsePatterns(data)
}

func ParsePatterns(data []byte) (*learner.PatternSet, error) {
	var artifact PatternArtifact
	if err := json.Unmarshal(data, &artifact); err == nil && artifact.Patterns != nil {
		return artifact.Patterns, nil
	}
	var set learner.PatternSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("unrecognized pattern file: %w", err)
	}
	if len(set.Patterns) == 0 {
		return nil, fmt.Errorf("pattern file contains no patterns")
	}
	return &set, nil
}
