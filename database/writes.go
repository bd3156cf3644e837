package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/4Lajf/karczma-wrapped/models"
)

// Every upsert names its update list explicitly. Columns left out of an
// update list keep the value written when the row was first inserted.
const (
	upsertChannelSQL = `
    INSERT INTO channels (id, name, category_name, type, guild_id, guild_name, message_count)
    VALUES (?, ?, ?, ?, ?, ?, 1)
    ON CONFLICT(id) DO UPDATE SET
        name = excluded.name,
        category_name = excluded.category_name,
        type = excluded.type,
        message_count = message_count + 1`

	upsertUserSQL = `
    INSERT INTO users (id, name, discriminator, nickname, avatar_url, roles, is_bot)
    VALUES (?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(id) DO UPDATE SET
        name = excluded.name,
        nickname = excluded.nickname,
        avatar_url = excluded.avatar_url,
        roles = excluded.roles`

	upsertMessageSQL = `
    INSERT INTO messages (id, channel_id, author_id, content, timestamp, timestamp_edited, type, is_pinned,
        reply_to_msg_id, word_count, char_count, has_attachments, attachment_types, attachment_urls)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(id) DO UPDATE SET
        channel_id = excluded.channel_id,
        content = excluded.content,
        has_attachments = excluded.has_attachments,
        attachment_types = excluded.attachment_types,
        attachment_urls = excluded.attachment_urls`

	insertMentionSQL = `
    INSERT INTO mentions (message_id, mentioned_user_id) VALUES (?, ?)
    ON CONFLICT(message_id, mentioned_user_id) DO NOTHING`

	insertReactionSQL = `
    INSERT INTO reactions (message_id, emoji_id, emoji_name, user_id, count) VALUES (?, ?, ?, ?, 1)
    ON CONFLICT(message_id, emoji_name, user_id) DO NOTHING`
)

const defaultDiscriminator = "0000"

// CommitBatch writes records as one transaction: either every message of the
// batch, with its channel, users, mentions and reactions, becomes visible, or none does.
// For each message the order is channel, author, message, mentions, reactions.
func (s *Store) CommitBatch(ctx context.Context, channel models.ChannelMeta, records []models.Record) (err error) {
	if len(records) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	w, err := prepareWriter(ctx, tx)
	if err != nil {
		return err
	}
	defer w.close()

	for i, rec := range records {
		if err := w.writeRecord(ctx, channel, rec); err != nil {
			return fmt.Errorf("batch record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// writer holds the statements of one batch transaction.
type writer struct {
	channel  *sql.Stmt
	user     *sql.Stmt
	message  *sql.Stmt
	mention  *sql.Stmt
	reaction *sql.Stmt
}

func prepareWriter(ctx context.Context, tx *sql.Tx) (*writer, error) {
	w := &writer{}
	targets := []struct {
		stmt  **sql.Stmt
		query string
	}{
		{&w.channel, upsertChannelSQL},
		{&w.user, upsertUserSQL},
		{&w.message, upsertMessageSQL},
		{&w.mention, insertMentionSQL},
		{&w.reaction, insertReactionSQL},
	}
	for _, t := range targets {
		stmt, err := tx.PrepareContext(ctx, t.query)
		if err != nil {
			w.close()
			return nil, fmt.Errorf("failed to prepare statement: %w", err)
		}
		*t.stmt = stmt
	}
	return w, nil
}

func (w *writer) close() {
	for _, stmt := range []*sql.Stmt{w.channel, w.user, w.message, w.mention, w.reaction} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

func (w *writer) writeRecord(ctx context.Context, channel models.ChannelMeta, rec models.Record) error {
	msg := rec.Message
	if msg == nil || msg.ID == "" {
		return fmt.Errorf("%w: missing message id", ErrInvalidRecord)
	}
	if msg.Author == nil || msg.Author.ID == "" {
		return fmt.Errorf("%w: message %s has no author id", ErrInvalidRecord, msg.ID)
	}

	if _, err := w.channel.ExecContext(ctx,
		channel.ID, channel.Name, channel.CategoryName, channel.Type, channel.GuildID, channel.GuildName,
	); err != nil {
		return fmt.Errorf("failed to upsert channel %s: %w", channel.ID, err)
	}

	if err := w.upsertUser(ctx, msg.Author); err != nil {
		return err
	}

	if err := w.upsertMessage(ctx, channel.ID, rec); err != nil {
		return err
	}

	for i := range msg.Mentions {
		mentioned := &msg.Mentions[i]
		if mentioned.ID == "" {
			continue
		}
		if err := w.upsertUser(ctx, mentioned); err != nil {
			return err
		}
		if _, err := w.mention.ExecContext(ctx, msg.ID.String(), mentioned.ID.String()); err != nil {
			return fmt.Errorf("failed to insert mention of %s on message %s: %w", mentioned.ID, msg.ID, err)
		}
	}

	for _, reaction := range msg.Reactions {
		emojiName := reaction.Emoji.Name
		if emojiName == "" {
			emojiName = reaction.Emoji.ID.String()
		}
		if emojiName == "" {
			continue
		}
		for i := range reaction.Users {
			reactor := &reaction.Users[i]
			if reactor.ID == "" {
				continue
			}
			if err := w.upsertUser(ctx, reactor); err != nil {
				return err
			}
			if _, err := w.reaction.ExecContext(ctx,
				msg.ID.String(), nullable(reaction.Emoji.ID.String()), emojiName, reactor.ID.String(),
			); err != nil {
				return fmt.Errorf("failed to insert reaction %s by %s on message %s: %w", emojiName, reactor.ID, msg.ID, err)
			}
		}
	}
	return nil
}

func (w *writer) upsertUser(ctx context.Context, u *models.User) error {
	roles := u.Roles
	if roles == nil {
		roles = []models.Role{}
	}
	rolesJSON, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("failed to encode roles of user %s: %w", u.ID, err)
	}

	discriminator := u.Discriminator
	if discriminator == "" {
		discriminator = defaultDiscriminator
	}

	if _, err := w.user.ExecContext(ctx,
		u.ID.String(), u.Name, discriminator, nullable(u.Nickname), nullable(u.AvatarURL), string(rolesJSON), boolInt(u.IsBot),
	); err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", u.ID, err)
	}
	return nil
}

func (w *writer) upsertMessage(ctx context.Context, channelID string, rec models.Record) error {
	msg, d := rec.Message, rec.Derived

	refs := d.AttachmentURLs
	if refs == nil {
		refs = []models.AttachmentRef{}
	}
	urlsJSON, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("failed to encode attachments of message %s: %w", msg.ID, err)
	}

	var edited any
	if msg.TimestampEdited != nil && *msg.TimestampEdited != "" {
		edited = *msg.TimestampEdited
	}

	if _, err := w.message.ExecContext(ctx,
		msg.ID.String(),
		channelID,
		msg.Author.ID.String(),
		msg.Content,
		d.Timestamp,
		edited,
		msg.Type.String(),
		boolInt(msg.IsPinned),
		nullable(d.ReplyToMsgID),
		d.WordCount,
		d.CharCount,
		boolInt(d.HasAttachments),
		d.AttachmentTypes,
		string(urlsJSON),
	); err != nil {
		return fmt.Errorf("failed to upsert message %s: %w", msg.ID, err)
	}
	return nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
