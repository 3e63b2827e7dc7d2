// Package storage persists chat configuration and member records in PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/whoisbot/core/logger"
	"github.com/m3rciful/whoisbot/internal/model"
)

// ErrChatNotFound is returned when no chats row matches the id.
var ErrChatNotFound = errors.New("storage: chat not found")

const selectChat = `
SELECT id,
       on_new_chat_member_message,
       on_known_new_chat_member_message,
       on_introduce_message,
       on_introduce_message_update,
       on_kick_message,
       notify_message,
       kick_timeout,
       notify_timeout,
       whois_length
  FROM chats
 WHERE id = $1`

const insertChat = `
INSERT INTO chats (
       id,
       on_new_chat_member_message,
       on_known_new_chat_member_message,
       on_introduce_message,
       on_introduce_message_update,
       on_kick_message,
       notify_message,
       kick_timeout,
       notify_timeout,
       whois_length)
VALUES (
       :id,
       :on_new_chat_member_message,
       :on_known_new_chat_member_message,
       :on_introduce_message,
       :on_introduce_message_update,
       :on_kick_message,
       :notify_message,
       :kick_timeout,
       :notify_timeout,
       :whois_length)
ON CONFLICT (id) DO NOTHING`

// A placeholder never overwrites a recorded #whois.
const upsertUser = `
INSERT INTO users (chat_id, user_id, whois)
VALUES (:chat_id, :user_id, :whois)
ON CONFLICT (chat_id, user_id) DO UPDATE
   SET whois = EXCLUDED.whois
 WHERE EXCLUDED.whois <> ''`

// Store is the sqlx-backed configuration store.
type Store struct {
	db *sqlx.DB
}

// New wraps an open pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// GetChat loads one chat configuration.
func (s *Store) GetChat(ctx context.Context, id int64) (model.Chat, error) {
	var c model.Chat
	err := s.db.GetContext(ctx, &c, selectChat, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Chat{}, fmt.Errorf("%w: %d", ErrChatNotFound, id)
	}
	if err != nil {
		return model.Chat{}, fmt.Errorf("storage: get chat %d: %w", id, err)
	}
	return c, nil
}

// UpdateChatSetting writes one field. value must match the setting's kind.
func (s *Store) UpdateChatSetting(ctx context.Context, id int64, setting model.Setting, value any) error {
	if err := checkValue(setting, value); err != nil {
		return err
	}
	// Column comes from the closed Setting set, never from user input.
	query := fmt.Sprintf(`UPDATE chats SET %s = $1 WHERE id = $2`, setting.Column())
	res, err := s.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("storage: update %s of %d: %w", setting, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: update %s of %d: %w", setting, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrChatNotFound, id)
	}
	logger.Debug(ctx, "db", "chat.update",
		slog.String("status", "ok"),
		slog.Int64("target_chat_id", id),
		slog.String("setting", string(setting)),
	)
	return nil
}

// CreateChat inserts chat and seed in one transaction. An existing chat is
// left untouched and created reports false; the seed row is still ensured.
// A seed with a zero UserID is skipped.
func (s *Store) CreateChat(ctx context.Context, chat model.Chat, seed model.User) (created bool, err error) {
	if seed.ChatID != chat.ID {
		return false, fmt.Errorf("storage: seed user belongs to chat %d, not %d", seed.ChatID, chat.ID)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("storage: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.NamedExecContext(ctx, insertChat, chat)
	if err != nil {
		return false, fmt.Errorf("storage: insert chat %d: %w", chat.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage: insert chat %d: %w", chat.ID, err)
	}
	if seed.UserID != 0 {
		if _, err = tx.NamedExecContext(ctx, upsertUser, seed); err != nil {
			return false, fmt.Errorf("storage: seed user %d: %w", seed.UserID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("storage: commit: %w", err)
	}

	created = n > 0
	logger.Info(ctx, "db", "chat.create",
		slog.String("status", "ok"),
		slog.Int64("target_chat_id", chat.ID),
		slog.Bool("created", created),
	)
	return created, nil
}

// UpsertUser records a member. A verified #whois is never reset to a placeholder.
func (s *Store) UpsertUser(ctx context.Context, u model.User) error {
	if _, err := s.db.NamedExecContext(ctx, upsertUser, u); err != nil {
		return fmt.Errorf("storage: upsert user %d in %d: %w", u.UserID, u.ChatID, err)
	}
	return nil
}

// GetUser loads one member record.
func (s *Store) GetUser(ctx context.Context, chatID, userID int64) (model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u,
		`SELECT chat_id, user_id, whois FROM users WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("storage: user %d in %d: %w", userID, chatID, sql.ErrNoRows)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("storage: get user %d in %d: %w", userID, chatID, err)
	}
	return u, nil
}

// ChatIDsForUser lists configured chats the user has a record in.
func (s *Store) ChatIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, `
SELECT u.chat_id
  FROM users u
  JOIN chats c ON c.id = u.chat_id
 WHERE u.user_id = $1
 ORDER BY u.chat_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("storage: chats of user %d: %w", userID, err)
	}
	return ids, nil
}

func checkValue(s model.Setting, value any) error {
	if !s.Valid() {
		return fmt.Errorf("storage: unknown setting %q", s)
	}
	switch value.(type) {
	case int:
		if s.Kind() == model.KindInteger {
			return nil
		}
	case string:
		if s.Kind() == model.KindText {
			return nil
		}
	}
	return fmt.Errorf("storage: %s expects %s, got %T", s, s.Kind(), value)
}
