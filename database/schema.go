package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS meta (
        key TEXT PRIMARY KEY,
        value TEXT
    );`,
	`CREATE TABLE IF NOT EXISTS channels (
        id TEXT PRIMARY KEY,
        name TEXT,
        category_name TEXT,
        type TEXT,
        guild_id TEXT,
        guild_name TEXT,
        message_count INTEGER DEFAULT 0
    );`,
	`CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        name TEXT,
        discriminator TEXT,
        nickname TEXT,
        avatar_url TEXT,
        roles TEXT,
        is_bot INTEGER
    );`,
	`CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY,
        channel_id TEXT,
        author_id TEXT,
        content TEXT,
        timestamp DATETIME,
        timestamp_edited DATETIME,
        type TEXT,
        is_pinned INTEGER,
        reply_to_msg_id TEXT,
        word_count INTEGER,
        char_count INTEGER,
        has_attachments INTEGER,
        attachment_types TEXT,
        attachment_urls TEXT,
        FOREIGN KEY(channel_id) REFERENCES channels(id),
        FOREIGN KEY(author_id) REFERENCES users(id)
    );`,
	`CREATE TABLE IF NOT EXISTS mentions (
        message_id TEXT,
        mentioned_user_id TEXT,
        PRIMARY KEY (message_id, mentioned_user_id),
        FOREIGN KEY(message_id) REFERENCES messages(id),
        FOREIGN KEY(mentioned_user_id) REFERENCES users(id)
    );`,
	`CREATE TABLE IF NOT EXISTS reactions (
        message_id TEXT,
        emoji_id TEXT,
        emoji_name TEXT,
        user_id TEXT,
        count INTEGER DEFAULT 1,
        PRIMARY KEY (message_id, emoji_name, user_id),
        FOREIGN KEY(message_id) REFERENCES messages(id),
        FOREIGN KEY(user_id) REFERENCES users(id)
    );`,
	`CREATE TABLE IF NOT EXISTS processed_files (
        filename TEXT PRIMARY KEY,
        processed_at DATETIME
    );`,
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_messages_author ON messages(author_id);",
	"CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id);",
	"CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);",
	"CREATE INDEX IF NOT EXISTS idx_messages_year ON messages((strftime('%Y', timestamp)));",
	"CREATE INDEX IF NOT EXISTS idx_mentions_mentioned ON mentions(mentioned_user_id);",
	"CREATE INDEX IF NOT EXISTS idx_reactions_user ON reactions(user_id);",
	"CREATE INDEX IF NOT EXISTS idx_reactions_message ON reactions(message_id);",
}

// Columns added after the first schema version; stores created earlier get them on open.
var additiveColumns = []struct {
	table, column, decl string
}{
	{"messages", "attachment_types", "TEXT"},
	{"messages", "attachment_urls", "TEXT"},
	{"channels", "category_name", "TEXT"},
	{"channels", "type", "TEXT"},
	{"users", "roles", "TEXT"},
	{"reactions", "emoji_id", "TEXT"},
	{"reactions", "count", "INTEGER DEFAULT 1"},
}

// Migrate creates missing tables, indexes and columns. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	for _, c := range additiveColumns {
		if err := addColumnIfMissing(ctx, db, c.table, c.column, c.decl); err != nil {
			return err
		}
	}

	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func addColumnIfMissing(ctx context.Context, db *sql.DB, table, column, decl string) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	rows.Close()

	if _, err := db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl)); err != nil {
		return fmt.Errorf("failed to add column %s.%s: %w", table, column, err)
	}
	return nil
}
