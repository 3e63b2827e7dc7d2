package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/m3rciful/whoisbot/core/logger"
	"github.com/m3rciful/whoisbot/internal/metrics"
	"github.com/m3rciful/whoisbot/internal/model"
	"github.com/m3rciful/whoisbot/internal/pending"
)

// Reason explains why a submitted value was rejected.
type Reason uint8

const (
	NotANumber Reason = iota + 1
	EmptyText
)

func (r Reason) String() string {
	switch r {
	case NotANumber:
		return "not_a_number"
	case EmptyText:
		return "empty_text"
	}
	return "unknown"
}

func (r Reason) messageKey() string {
	if r == EmptyText {
		return "msg__empty_text"
	}
	return "msg__not_a_number"
}

// ValidationError rejects a submitted value. The chat and the open edit stay
// unchanged.
type ValidationError struct {
	Setting model.Setting
	Reason  Reason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("menu: invalid value for %s: %s", e.Setting, e.Reason)
}

// Code is picked up by the handler summary log.
func (e *ValidationError) Code() string {
	return strings.ToUpper(e.Reason.String())
}

// Reply is a plain-text private message that may answer an open edit.
type Reply struct {
	From   int64
	ChatID int64
	Text   string
}

// OpenEdit opens an edit of setting for adminID in chatID and returns the prompt.
func (r *Router) OpenEdit(ctx context.Context, adminID, chatID int64, setting model.Setting) (Screen, model.ValueKind, error) {
	unlock := r.locks.Lock(adminID)
	defer unlock()
	return r.openEdit(ctx, adminID, chatID, setting)
}

func (r *Router) openEdit(ctx context.Context, adminID, chatID int64, setting model.Setting) (Screen, model.ValueKind, error) {
	e, err := r.edits.Open(ctx, adminID, chatID, setting)
	if err != nil {
		return Screen{}, 0, fmt.Errorf("menu: open edit: %w: %w", ErrStore, err)
	}
	metrics.IncMenuEdit(string(setting), "opened")
	return r.tree.Prompt(setting), e.Expects(), nil
}

// ResolveEdit applies text to the edit adminID has open for chatID.
// It returns pending.ErrNoPendingEdit when no edit targets chatID, a
// *ValidationError when text does not fit the setting and ErrEditSuperseded
// when a newer edit replaced it in the meantime.
func (r *Router) ResolveEdit(ctx context.Context, adminID, chatID int64, text string) error {
	unlock := r.locks.Lock(adminID)
	defer unlock()
	_, err := r.resolveEdit(ctx, adminID, chatID, text)
	return err
}

func (r *Router) resolveEdit(ctx context.Context, adminID, chatID int64, text string) (pending.Edit, error) {
	e, err := r.edits.Get(ctx, adminID)
	if errors.Is(err, pending.ErrNoPendingEdit) {
		return pending.Edit{}, err
	}
	if err != nil {
		return pending.Edit{}, fmt.Errorf("menu: load edit: %w: %w", ErrStore, err)
	}
	if e.ChatID != chatID {
		return pending.Edit{}, pending.ErrNoPendingEdit
	}

	value, err := parseValue(e.Setting, text)
	if err != nil {
		metrics.IncMenuEdit(string(e.Setting), "rejected")
		return e, err
	}
	// The edit is claimed before the write; a superseded answer writes nothing.
	done, err := r.edits.Complete(ctx, e)
	if err != nil {
		return e, fmt.Errorf("menu: complete edit: %w: %w", ErrStore, err)
	}
	if !done {
		metrics.IncMenuEdit(string(e.Setting), "superseded")
		logger.Info(ctx, "menu", "edit.resolved",
			slog.String("status", "skip"),
			slog.Int64("admin_id", adminID),
			slog.String("edit_id", e.ID),
			slog.String("reason", "superseded"),
		)
		return e, ErrEditSuperseded
	}
	if err := r.store.UpdateChatSetting(ctx, chatID, e.Setting, value); err != nil {
		return e, fmt.Errorf("menu: save %s: %w: %w", e.Setting, ErrStore, err)
	}
	metrics.IncMenuEdit(string(e.Setting), "resolved")
	logger.Info(ctx, "menu", "edit.resolved",
		slog.String("status", "ok"),
		slog.Int64("admin_id", adminID),
		slog.Int64("target_chat_id", chatID),
		slog.String("setting", string(e.Setting)),
	)
	return e, nil
}

// HandleReply treats a private message as the answer to the sender's open
// edit. Without an open edit it returns pending.ErrNoPendingEdit and sends
// nothing.
func (r *Router) HandleReply(ctx context.Context, m Reply) error {
	unlock := r.locks.Lock(m.From)
	defer unlock()

	e, err := r.edits.Get(ctx, m.From)
	if errors.Is(err, pending.ErrNoPendingEdit) {
		return err
	}
	if err != nil {
		r.notify(ctx, m.ChatID, "msg__generic_error")
		return fmt.Errorf("menu: load edit: %w: %w", ErrStore, err)
	}

	if err := r.authorize(ctx, e.ChatID, m.From); err != nil {
		if errors.Is(err, ErrNotAdmin) {
			r.dropEdit(ctx, m.From)
			r.notify(ctx, m.ChatID, "msg__not_admin")
		}
		return err
	}

	_, err = r.resolveEdit(ctx, m.From, e.ChatID, m.Text)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		if serr := r.out.Send(ctx, m.ChatID, r.tree.Rejected(verr.Setting, verr.Reason)); serr != nil {
			logger.Warn(ctx, "menu", "edit.reprompt",
				slog.String("status", "fail"),
				slog.Any("err", serr),
			)
		}
		return err
	case errors.Is(err, pending.ErrNoPendingEdit), errors.Is(err, ErrEditSuperseded):
		return err
	case err != nil:
		r.notify(ctx, m.ChatID, "msg__generic_error")
		return err
	}

	if err := r.out.Send(ctx, m.ChatID, r.tree.Updated(e.ChatID)); err != nil {
		return fmt.Errorf("menu: confirm edit: %w: %w", ErrTransport, err)
	}
	return nil
}

// Cancel drops the open edit of adminID and tells them whether there was one.
func (r *Router) Cancel(ctx context.Context, adminID, chatID int64) error {
	unlock := r.locks.Lock(adminID)
	defer unlock()

	e, getErr := r.edits.Get(ctx, adminID)
	ok, err := r.edits.Cancel(ctx, adminID)
	if err != nil {
		r.notify(ctx, chatID, "msg__generic_error")
		return fmt.Errorf("menu: cancel edit: %w: %w", ErrStore, err)
	}
	key := "msg__nothing_to_cancel"
	if ok {
		key = "msg__edit_cancelled"
		if getErr == nil {
			metrics.IncMenuEdit(string(e.Setting), "cancelled")
		}
	}
	if err := r.out.Send(ctx, chatID, Screen{Text: r.tr.T(key)}); err != nil {
		return fmt.Errorf("menu: confirm cancel: %w: %w", ErrTransport, err)
	}
	return nil
}

func parseValue(s model.Setting, text string) (any, error) {
	text = strings.TrimSpace(text)
	if s.Kind() == model.KindInteger {
		n, err := strconv.Atoi(text)
		if err != nil || n <= 0 || n > math.MaxInt32 {
			return nil, &ValidationError{Setting: s, Reason: NotANumber}
		}
		return n, nil
	}
	if text == "" {
		return nil, &ValidationError{Setting: s, Reason: EmptyText}
	}
	return text, nil
}
