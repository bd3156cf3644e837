package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/4Lajf/karczma-wrapped/models"
)

// IsProcessed reports whether filename has a processed_files marker.
// A marker is the only thing that makes a later run skip the file; content changes
// under the same name are not detected.
func (s *Store) IsProcessed(ctx context.Context, filename string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM processed_files WHERE filename = ?", filename).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check processed file %s: %w", filename, err)
	}
	return true, nil
}

// MarkProcessed records that every batch of filename has committed.
func (s *Store) MarkProcessed(ctx context.Context, filename string, at time.Time) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO processed_files (filename, processed_at) VALUES (?, ?)
        ON CONFLICT(filename) DO UPDATE SET processed_at = excluded.processed_at`,
		filename, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to mark file %s as processed: %w", filename, err)
	}
	return nil
}

// ProcessedFiles lists the ledger in processing order.
func (s *Store) ProcessedFiles(ctx context.Context) ([]models.ProcessedFile, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT filename, processed_at FROM processed_files ORDER BY processed_at, filename")
	if err != nil {
		return nil, fmt.Errorf("failed to query processed files: %w", err)
	}
	defer rows.Close()

	var files []models.ProcessedFile
	for rows.Next() {
		var (
			f  models.ProcessedFile
			at string
		)
		if err := rows.Scan(&f.Filename, &at); err != nil {
			return nil, fmt.Errorf("failed to scan processed file: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			f.ProcessedAt = t
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
