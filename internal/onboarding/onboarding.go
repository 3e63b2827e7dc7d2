// Package onboarding reacts to changes of the bot's own membership in a group:
// it greets the group when added and provisions the chat configuration the
// first time the bot is promoted to administrator.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/whoisbot/core/logger"
	"github.com/m3rciful/whoisbot/internal/menu"
	"github.com/m3rciful/whoisbot/internal/metrics"
	"github.com/m3rciful/whoisbot/internal/model"
)

// Status is the bot's membership status in a chat.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusLeft
	StatusKicked
	StatusRestricted
	StatusMember
	StatusAdministrator
	StatusCreator
)

func (s Status) String() string {
	switch s {
	case StatusLeft:
		return "left"
	case StatusKicked:
		return "kicked"
	case StatusRestricted:
		return "restricted"
	case StatusMember:
		return "member"
	case StatusAdministrator:
		return "administrator"
	case StatusCreator:
		return "creator"
	}
	return "unknown"
}

// Transition is one change of the bot's status.
type Transition struct {
	ChatID    int64
	ChatTitle string
	Old       Status
	New       Status
	// By is the user who caused the change. Zero when unknown.
	By int64
}

// Kind classifies a transition.
type Kind string

const (
	KindAdded    Kind = "added"
	KindPromoted Kind = "promoted"
	KindIgnored  Kind = "ignored"
)

// Classify tells what, if anything, a transition triggers.
func Classify(t Transition) Kind {
	switch {
	case t.Old == StatusLeft && t.New == StatusMember:
		return KindAdded
	case t.Old != StatusAdministrator && t.New == StatusAdministrator:
		return KindPromoted
	}
	return KindIgnored
}

// ErrStore wraps a failed chat provisioning. Only a generic failure notice is
// sent in that case.
var ErrStore = errors.New("onboarding: store failure")

// Store provisions chats.
type Store interface {
	// CreateChat inserts chat together with seed atomically and reports
	// whether the chat row is new.
	CreateChat(ctx context.Context, chat model.Chat, seed model.User) (bool, error)
}

// Notifier sends messages.
type Notifier interface {
	Send(ctx context.Context, chatID int64, s menu.Screen) error
}

// Handler runs the onboarding routine.
type Handler struct {
	store  Store
	out    Notifier
	tr     model.Translator
	limits model.Limits
}

// NewHandler constructs a Handler. limits seeds the numeric defaults of new chats.
func NewHandler(store Store, out Notifier, tr model.Translator, limits model.Limits) *Handler {
	return &Handler{store: store, out: out, tr: tr, limits: limits}
}

// Handle reacts to t. Transport failures are logged and do not abort the
// routine; a store failure does, after a generic notice.
func (h *Handler) Handle(ctx context.Context, t Transition) error {
	kind := Classify(t)
	metrics.IncOnboarding(string(kind))
	logger.Info(ctx, "onboarding", "transition",
		slog.String("status", "ok"),
		slog.Int64("target_chat_id", t.ChatID),
		slog.String("old", t.Old.String()),
		slog.String("new", t.New.String()),
		slog.String("kind", string(kind)),
	)

	switch kind {
	case KindAdded:
		h.send(ctx, t.ChatID, menu.Screen{Text: h.tr.T("msg__add_bot_to_chat")})
	case KindPromoted:
		return h.promoted(ctx, t)
	}
	return nil
}

func (h *Handler) promoted(ctx context.Context, t Transition) error {
	chat := model.DefaultChat(t.ChatID, h.tr, h.limits)
	created, err := h.store.CreateChat(ctx, chat, model.Placeholder(t.ChatID, t.By))
	if err != nil {
		to := t.By
		if to == 0 {
			to = t.ChatID
		}
		h.send(ctx, to, menu.Screen{Text: h.tr.T("msg__generic_error")})
		return fmt.Errorf("%w: provision chat %d: %w", ErrStore, t.ChatID, err)
	}

	if created && t.By != 0 {
		h.send(ctx, t.By, menu.Screen{
			Text:     h.tr.T("msg__make_admin_direct", t.ChatTitle),
			Keyboard: menu.ChatMenuKeyboard(h.tr, t.ChatID),
		})
	}
	h.send(ctx, t.ChatID, menu.Screen{Text: h.tr.T("msg__make_admin")})
	return nil
}

func (h *Handler) send(ctx context.Context, chatID int64, s menu.Screen) {
	if err := h.out.Send(ctx, chatID, s); err != nil {
		logger.Warn(ctx, "onboarding", "notify",
			slog.String("status", "fail"),
			slog.Int64("target_chat_id", chatID),
			slog.Any("err", err),
		)
	}
}
