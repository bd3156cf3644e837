package database

import (
	"context"
	"fmt"

	"github.com/4Lajf/karczma-wrapped/models"
)

// Counts returns the number of rows in each table.
func (s *Store) Counts(ctx context.Context) (models.TableCounts, error) {
	var c models.TableCounts
	targets := []struct {
		table string
		dst   *int64
	}{
		{"channels", &c.Channels},
		{"users", &c.Users},
		{"messages", &c.Messages},
		{"mentions", &c.Mentions},
		{"reactions", &c.Reactions},
		{"processed_files", &c.ProcessedFiles},
	}
	for _, t := range targets {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
			return c, fmt.Errorf("failed to count %s: %w", t.table, err)
		}
	}
	return c, nil
}

// RecountChannels recomputes channels.message_count from the messages table.
// The counter is incremented once per ingested message and can drift if a file
// is re-ingested after its ledger marker was lost; the messages table is authoritative.
// It returns the number of channels whose counter changed.
func (s *Store) RecountChannels(ctx context.Context) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `
        UPDATE channels
        SET message_count = (SELECT COUNT(*) FROM messages WHERE messages.channel_id = channels.id)
        WHERE message_count IS NOT (SELECT COUNT(*) FROM messages WHERE messages.channel_id = channels.id)`)
	if err != nil {
		return 0, fmt.Errorf("failed to recount channel messages: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// ChannelMessageCount returns the cached counter of one channel.
func (s *Store) ChannelMessageCount(ctx context.Context, channelID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT message_count FROM channels WHERE id = ?", channelID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get message count for channel %s: %w", channelID, err)
	}
	return count, nil
}
