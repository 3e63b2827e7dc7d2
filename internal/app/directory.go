package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/m3rciful/whoisbot/core/logger"
	"github.com/m3rciful/whoisbot/core/telegram/sender"
	"github.com/m3rciful/whoisbot/internal/menu"

	tele "gopkg.in/telebot.v4"
)

// ChatAPI is the part of *tele.Bot the directory calls.
type ChatAPI interface {
	ChatByID(id int64) (*tele.Chat, error)
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
}

// ChatIndex lists the configured chats a user has been seen in.
type ChatIndex interface {
	ChatIDsForUser(ctx context.Context, userID int64) ([]int64, error)
}

// Directory answers membership questions from live Bot API data. Candidate
// chats come from the store; rights are always checked against Telegram.
type Directory struct {
	api    ChatAPI
	index  ChatIndex
	sender *sender.Sender
}

var _ menu.Directory = (*Directory)(nil)

// NewDirectory builds a Directory.
func NewDirectory(api ChatAPI, index ChatIndex, s *sender.Sender) *Directory {
	if s == nil {
		s = sender.New(sender.Options{})
	}
	return &Directory{api: api, index: index, sender: s}
}

// ManagedChats returns the configured chats where userID is an administrator
// right now. A chat that cannot be checked is skipped; the call fails only
// when no chat could be checked at all.
func (d *Directory) ManagedChats(ctx context.Context, userID int64) ([]menu.ChatRef, error) {
	ids, err := d.index.ChatIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		chats    []menu.ChatRef
		firstErr error
		failed   int
	)
	for _, id := range ids {
		ok, err := d.IsAdmin(ctx, id, userID)
		if err == nil && ok {
			var title string
			title, err = d.ChatTitle(ctx, id)
			if err == nil {
				chats = append(chats, menu.ChatRef{ID: id, Title: title})
				continue
			}
		}
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			logger.Warn(ctx, "menu", "chats.check",
				slog.String("status", "fail"),
				slog.Int64("target_chat_id", id),
				slog.String("err", sender.SanitizeError(err)),
			)
		}
	}
	if failed > 0 && failed == len(ids) {
		return nil, firstErr
	}
	return chats, nil
}

// IsAdmin reports whether userID administers chatID. A chat the bot cannot
// see any more counts as not administered.
func (d *Directory) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	var member *tele.ChatMember
	err := d.sender.Do(ctx, "getChatMember", func() error {
		var err error
		member, err = d.api.ChatMemberOf(&tele.Chat{ID: chatID}, &tele.User{ID: userID})
		return err
	})
	if err != nil {
		if isAccessError(err) {
			return false, nil
		}
		return false, err
	}
	switch member.Role {
	case tele.Administrator, tele.Creator:
		return true, nil
	}
	return false, nil
}

// ChatTitle returns the chat's title, or its id when the chat has none.
func (d *Directory) ChatTitle(ctx context.Context, chatID int64) (string, error) {
	var chat *tele.Chat
	err := d.sender.Do(ctx, "getChat", func() error {
		var err error
		chat, err = d.api.ChatByID(chatID)
		return err
	})
	if err != nil {
		return "", err
	}
	if chat.Title != "" {
		return chat.Title, nil
	}
	return strconv.FormatInt(chatID, 10), nil
}

func isAccessError(err error) bool {
	var apiErr *tele.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusBadRequest || apiErr.Code == http.StatusForbidden
}
