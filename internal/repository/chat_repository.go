package repository

import (
	"context"
	"database/sql"

	"github.com/velora/nightpulse/internal/model"
)

// ChatRepo encapsulates queries against the `chats` and `messages`
// tables. Chat rows are keyed by the deterministic pair id, so either
// participant's "start chat" path converges on the same row.
type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo { return &ChatRepo{db: db} }

const chatCols = "id, user_id, target_id, user_name, user_avatar, target_name, target_avatar, last_message, unread_count, updated_at"

// ListForUser returns all chats the identity participates in, most
// recently active first.
func (r *ChatRepo) ListForUser(ctx context.Context, userID uint64) ([]*model.Chat, error) {
	const q = "SELECT " + chatCols + ` FROM chats
	           WHERE user_id = ? OR target_id = ?
	           ORDER BY updated_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Chat
	for rows.Next() {
		c := new(model.Chat)
		if err := rows.Scan(&c.ID, &c.UserID, &c.TargetID, &c.UserName, &c.UserAvatar,
			&c.TargetName, &c.TargetAvatar, &c.LastMessage, &c.UnreadCount, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert writes a chat row keyed by its deterministic id. Starting a chat
// that already exists just refreshes the denormalized display fields.
func (r *ChatRepo) Upsert(ctx context.Context, c *model.Chat) error {
	const q = `INSERT INTO chats (id, user_id, target_id, user_name, user_avatar, target_name, target_avatar, last_message, unread_count)
	           VALUES (?,?,?,?,?,?,?,?,?)
	           ON DUPLICATE KEY UPDATE
	             user_name = VALUES(user_name), user_avatar = VALUES(user_avatar),
	             target_name = VALUES(target_name), target_avatar = VALUES(target_avatar)`
	_, err := r.db.ExecContext(ctx, q, c.ID, c.UserID, c.TargetID, c.UserName, c.UserAvatar,
		c.TargetName, c.TargetAvatar, c.LastMessage, c.UnreadCount)
	return err
}

// Messages returns a conversation ordered oldest first.
func (r *ChatRepo) Messages(ctx context.Context, chatID string) ([]*model.Message, error) {
	const q = `SELECT id, chat_id, sender_id, content, created_at, is_read
	           FROM messages WHERE chat_id = ? ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Message
	for rows.Next() {
		m := new(model.Message)
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.CreatedAt, &m.IsRead); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage inserts the message and bumps the parent chat's summary
// (last_message, unread_count, updated_at) in one transaction, so a
// crash can no longer leave the message persisted with a stale summary.
func (r *ChatRepo) SendMessage(ctx context.Context, m *model.Message) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO messages (chat_id, sender_id, content, is_read) VALUES (?,?,?,?)",
		m.ChatID, m.SenderID, m.Content, m.IsRead)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)

	_, err = tx.ExecContext(ctx,
		`UPDATE chats SET last_message = ?, unread_count = unread_count + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		m.Content, m.ChatID)
	return err
}

// MarkRead clears the unread counter and flags the other side's
// messages as read for the given reader.
func (r *ChatRepo) MarkRead(ctx context.Context, chatID string, readerID uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		"UPDATE messages SET is_read = 1 WHERE chat_id = ? AND sender_id <> ?",
		chatID, readerID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "UPDATE chats SET unread_count = 0 WHERE id = ?", chatID)
	return err
}
