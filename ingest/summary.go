package ingest

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// FileError describes a file whose ingestion stopped before completion.
// Batches committed before the failure remain in the store.
type FileError struct {
	File     string
	Batches  int
	Messages int64
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("ingest %s: failed after %d committed batches (%d messages): %v",
		e.File, e.Batches, e.Messages, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Summary is the outcome of one Run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Completed  []string
	Skipped    []string
	Failed     []*FileError
	Messages   int64

	mu sync.Mutex
}

func (s *Summary) completed(file string, messages int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Completed = append(s.Completed, file)
	s.Messages += messages
}

func (s *Summary) skipped(file string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Skipped = append(s.Skipped, file)
}

func (s *Summary) failed(fe *FileError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failed = append(s.Failed, fe)
	s.Messages += fe.Messages
}

// Err joins the per-file failures, or returns nil when every file succeeded or was skipped.
func (s *Summary) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(s.Failed))
	for i, fe := range s.Failed {
		errs[i] = fe
	}
	return errors.Join(errs...)
}

// String renders the one-line report used by the CLI and the admin reporter.
func (s *Summary) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%d files: %d completed, %d skipped, %d failed; %d messages committed in %s",
		s.Total, len(s.Completed), len(s.Skipped), len(s.Failed), s.Messages,
		s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
}
