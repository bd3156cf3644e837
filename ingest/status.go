package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/4Lajf/karczma-wrapped/models"
)

// StatusWriter persists the outcome of the latest run as a JSON file.
type StatusWriter struct {
	path  string
	mutex sync.Mutex
}

// NewStatusWriter creates a status writer for path.
func NewStatusWriter(path string) *StatusWriter {
	return &StatusWriter{path: path}
}

// Save writes the summary of a run over inputDir, overwriting the previous status.
func (w *StatusWriter) Save(summary *Summary, inputDir string) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	status := newRunStatus(summary, inputDir)
	status.LastUpdated = time.Now()

	// Ensure the directory exists.
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if err := os.WriteFile(w.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	return nil
}

// ReadStatus loads a status file written by StatusWriter.
func ReadStatus(path string) (*models.RunStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}
	var status models.RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status file %s: %w", path, err)
	}
	return &status, nil
}

func newRunStatus(s *Summary, inputDir string) *models.RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := &models.RunStatus{
		RunID:      s.RunID,
		InputDir:   inputDir,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Total:      s.Total,
		Completed:  len(s.Completed),
		Skipped:    len(s.Skipped),
		Failed:     len(s.Failed),
		Messages:   s.Messages,
	}
	for _, fe := range s.Failed {
		status.Failures = append(status.Failures, models.FailureStatus{
			File:     fe.File,
			Batches:  fe.Batches,
			Messages: fe.Messages,
			Error:    fe.Err.Error(),
		})
	}
	return status
}
