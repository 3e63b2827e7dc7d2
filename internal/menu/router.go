package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/whoisbot/core/logger"
	"github.com/m3rciful/whoisbot/internal/action"
	"github.com/m3rciful/whoisbot/internal/metrics"
	"github.com/m3rciful/whoisbot/internal/model"
	"github.com/m3rciful/whoisbot/internal/pending"
)

var (
	// ErrTransport marks a rejected send or edit call. The turn ends without a re-render.
	ErrTransport = errors.New("menu: transport failure")
	// ErrStore marks an unavailable configuration store, pending-edit registry
	// or chat lookup.
	ErrStore = errors.New("menu: store failure")
	// ErrNotAdmin is returned when the presser has no rights in the target chat.
	ErrNotAdmin = errors.New("menu: user is not a chat administrator")
	// ErrEditSuperseded is returned when a newer edit replaced the one being
	// answered. Nothing is written.
	ErrEditSuperseded = errors.New("menu: edit superseded")
	// ErrUnhandledAction means a Kind was added without a screen.
	ErrUnhandledAction = errors.New("menu: unhandled action")
)

// MessageRef addresses an existing message.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Empty reports whether the reference points nowhere.
func (m MessageRef) Empty() bool {
	return m.ChatID == 0 || m.MessageID == 0
}

// Callback is an inbound button press.
type Callback struct {
	ID      string
	From    int64
	Data    string
	Message MessageRef
}

// Transport delivers screens.
type Transport interface {
	Send(ctx context.Context, chatID int64, s Screen) error
	EditText(ctx context.Context, msg MessageRef, s Screen) error
	EditMarkup(ctx context.Context, msg MessageRef, kb Keyboard) error
	// Answer acknowledges a button press, optionally with a short notice.
	Answer(ctx context.Context, callbackID, text string) error
}

// ChatStore reads and writes chat configuration.
type ChatStore interface {
	GetChat(ctx context.Context, chatID int64) (model.Chat, error)
	UpdateChatSetting(ctx context.Context, chatID int64, s model.Setting, value any) error
}

// ChatRef is a chat the administrator may pick.
type ChatRef struct {
	ID    int64
	Title string
}

// Directory answers membership questions.
type Directory interface {
	// ManagedChats lists chats where userID currently holds admin rights.
	ManagedChats(ctx context.Context, userID int64) ([]ChatRef, error)
	IsAdmin(ctx context.Context, chatID, userID int64) (bool, error)
	ChatTitle(ctx context.Context, chatID int64) (string, error)
}

// Deps groups the collaborators of a Router.
type Deps struct {
	Translator model.Translator
	Store      ChatStore
	Directory  Directory
	Edits      pending.Registry
	Transport  Transport
}

// Router dispatches button presses and free-text answers.
type Router struct {
	tree  *Tree
	tr    model.Translator
	store ChatStore
	dir   Directory
	edits pending.Registry
	out   Transport
	locks *keyedMutex
}

// NewRouter constructs a Router.
func NewRouter(d Deps) *Router {
	return &Router{
		tree:  NewTree(d.Translator, d.Store, d.Directory),
		tr:    d.Translator,
		store: d.Store,
		dir:   d.Directory,
		edits: d.Edits,
		out:   d.Transport,
		locks: newKeyedMutex(),
	}
}

// Tree exposes the screen builder.
func (r *Router) Tree() *Tree { return r.tree }

// HandleCallback decodes a button press, renders the next screen in place and
// acknowledges the press. Every failure is reported to the presser and
// returned for logging; none is fatal.
func (r *Router) HandleCallback(ctx context.Context, cb Callback) error {
	a, err := action.Decode(cb.Data)
	if err == nil && a.Kind.NeedsChat() && a.ChatID == 0 {
		err = fmt.Errorf("%w: %s without chat id", action.ErrMalformedPayload, a.Kind)
	}
	if err != nil {
		metrics.IncMenuCallback("invalid", "rejected")
		logger.Warn(ctx, "menu", "callback.decode",
			slog.String("status", "fail"),
			slog.String("data", logger.SanitizeLimit(cb.Data, 64)),
			slog.Any("err", err),
		)
		r.answer(ctx, cb.ID, "msg__try_again")
		return err
	}

	unlock := r.locks.Lock(cb.From)
	defer unlock()

	err = r.dispatch(ctx, cb, a)
	metrics.IncMenuCallback(a.Kind.String(), outcome(err))
	switch {
	case err == nil, errors.Is(err, ErrTransport):
		r.answer(ctx, cb.ID, "")
	case errors.Is(err, ErrNotAdmin):
		r.answer(ctx, cb.ID, "msg__not_admin")
	default:
		r.answer(ctx, cb.ID, "msg__generic_error")
	}
	if err != nil {
		return fmt.Errorf("menu: %s: %w", a, err)
	}
	return nil
}

// Start sends the chats list as a new message.
func (r *Router) Start(ctx context.Context, adminID, chatID int64) error {
	unlock := r.locks.Lock(adminID)
	defer unlock()

	r.dropEdit(ctx, adminID)
	scr, err := r.tree.ChatsList(ctx, adminID)
	if err != nil {
		r.notify(ctx, chatID, "msg__generic_error")
		return err
	}
	if err := r.out.Send(ctx, chatID, scr); err != nil {
		return fmt.Errorf("menu: send chats list: %w: %w", ErrTransport, err)
	}
	return nil
}

func (r *Router) dispatch(ctx context.Context, cb Callback, a action.Action) error {
	if a.Kind.NeedsChat() {
		if err := r.authorize(ctx, a.ChatID, cb.From); err != nil {
			return err
		}
	}
	if a.Kind.IsNavigation() {
		r.dropEdit(ctx, cb.From)
	}
	scr, err := r.screen(ctx, cb.From, a)
	if err != nil {
		return err
	}
	return r.render(ctx, cb, scr)
}

func (r *Router) screen(ctx context.Context, adminID int64, a action.Action) (Screen, error) {
	switch a.Kind {
	case action.StartSelectChat, action.BackToChats:
		return r.tree.ChatsList(ctx, adminID)
	case action.SelectChat:
		return r.tree.ChatMenu(ctx, a.ChatID)
	case action.SetIntroSettings:
		return r.tree.IntroSettings(a.ChatID), nil
	case action.SetKickBansSettings:
		return r.tree.KickBansSettings(a.ChatID), nil
	case action.GetCurrentKickSettings:
		return r.tree.CurrentKickSettings(ctx, a.ChatID)
	case action.SetKickTimeout,
		action.SetOnKickMessage,
		action.SetNotifyTimeout,
		action.SetNotifyMessage,
		action.SetOnNewChatMemberMessage,
		action.SetOnKnownNewChatMemberMessage,
		action.SetOnIntroduceMessageUpdate,
		action.SetOnSuccessfulIntroduction,
		action.SetWhoisLength:
		setting, _ := a.Kind.Setting()
		scr, _, err := r.openEdit(ctx, adminID, a.ChatID, setting)
		return scr, err
	}
	return Screen{}, fmt.Errorf("%w: %s", ErrUnhandledAction, a.Kind)
}

func (r *Router) authorize(ctx context.Context, chatID, userID int64) error {
	ok, err := r.dir.IsAdmin(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("menu: check rights in %d: %w: %w", chatID, ErrTransport, err)
	}
	if !ok {
		logger.Warn(ctx, "menu", "callback.denied",
			slog.String("status", "skip"),
			slog.Int64("target_chat_id", chatID),
			slog.Int64("user_id", userID),
		)
		return ErrNotAdmin
	}
	return nil
}

func (r *Router) render(ctx context.Context, cb Callback, s Screen) error {
	var err error
	switch {
	case s.Fresh || cb.Message.Empty():
		target := cb.Message.ChatID
		if target == 0 {
			target = cb.From
		}
		err = r.out.Send(ctx, target, s)
	case s.MarkupOnly:
		err = r.out.EditMarkup(ctx, cb.Message, s.Keyboard)
	default:
		err = r.out.EditText(ctx, cb.Message, s)
	}
	if err != nil {
		return fmt.Errorf("menu: render: %w: %w", ErrTransport, err)
	}
	return nil
}

// dropEdit cancels the open edit of adminID. Failures only get logged.
func (r *Router) dropEdit(ctx context.Context, adminID int64) {
	e, err := r.edits.Get(ctx, adminID)
	if errors.Is(err, pending.ErrNoPendingEdit) {
		return
	}
	if _, cerr := r.edits.Cancel(ctx, adminID); cerr != nil {
		logger.Warn(ctx, "menu", "edit.cancel",
			slog.String("status", "fail"),
			slog.Int64("admin_id", adminID),
			slog.Any("err", cerr),
		)
		return
	}
	if err == nil {
		metrics.IncMenuEdit(string(e.Setting), "cancelled")
	}
}

func (r *Router) answer(ctx context.Context, callbackID, key string) {
	if callbackID == "" {
		return
	}
	text := ""
	if key != "" {
		text = r.tr.T(key)
	}
	if err := r.out.Answer(ctx, callbackID, text); err != nil {
		logger.Warn(ctx, "menu", "callback.answer",
			slog.String("status", "fail"),
			slog.Any("err", err),
		)
	}
}

func (r *Router) notify(ctx context.Context, chatID int64, key string) {
	if err := r.out.Send(ctx, chatID, Screen{Text: r.tr.T(key)}); err != nil {
		logger.Warn(ctx, "menu", "notify",
			slog.String("status", "fail"),
			slog.String("key", key),
			slog.Any("err", err),
		)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotAdmin):
		return "denied"
	case errors.Is(err, ErrTransport):
		return "transport_error"
	default:
		return "fail"
	}
}
