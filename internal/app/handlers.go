package app

import (
	"context"
	"errors"

	tg "github.com/m3rciful/whoisbot/core/telegram"
	"github.com/m3rciful/whoisbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/whoisbot/core/telegram/helpers"
	"github.com/m3rciful/whoisbot/core/telegram/router"
	"github.com/m3rciful/whoisbot/internal/menu"
	"github.com/m3rciful/whoisbot/internal/model"
	"github.com/m3rciful/whoisbot/internal/onboarding"
	"github.com/m3rciful/whoisbot/internal/pending"

	tele "gopkg.in/telebot.v4"
)

// MenuRouter is what the Telegram handlers need from the admin menu.
type MenuRouter interface {
	Start(ctx context.Context, adminID, chatID int64) error
	Cancel(ctx context.Context, adminID, chatID int64) error
	HandleCallback(ctx context.Context, cb menu.Callback) error
	HandleReply(ctx context.Context, m menu.Reply) error
}

// Onboarder reacts to the bot's own membership changes.
type Onboarder interface {
	Handle(ctx context.Context, t onboarding.Transition) error
}

// Handlers adapts telebot updates to the menu and onboarding flows.
type Handlers struct {
	menu       MenuRouter
	onboarding Onboarder
	tr         model.Translator
}

// NewHandlers builds the Telegram handlers.
func NewHandlers(m MenuRouter, o Onboarder, tr model.Translator) *Handlers {
	return &Handlers{menu: m, onboarding: o, tr: tr}
}

// Register adds the bot commands to reg.
func (h *Handlers) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: h.tr.T("cmd__start"),
		PrivateOnly: true,
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     h.Cancel,
		Description: h.tr.T("cmd__cancel"),
		PrivateOnly: true,
	})
}

// Start opens the chats list.
func (h *Handlers) Start(c tele.Context) error {
	if c.Sender() == nil || c.Chat() == nil {
		return nil
	}
	return h.menu.Start(tghelpers.BuildContext(c), c.Sender().ID, c.Chat().ID)
}

// Cancel drops the sender's open edit.
func (h *Handlers) Cancel(c tele.Context) error {
	if c.Sender() == nil || c.Chat() == nil {
		return nil
	}
	return h.menu.Cancel(tghelpers.BuildContext(c), c.Sender().ID, c.Chat().ID)
}

// Callback routes an inline button press.
func (h *Handlers) Callback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil || cb.Sender == nil {
		return nil
	}
	in := menu.Callback{
		ID:   cb.ID,
		From: cb.Sender.ID,
		Data: cb.Data,
	}
	if cb.Message != nil && cb.Message.Chat != nil {
		in.Message = menu.MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.ID}
	}
	return h.menu.HandleCallback(tghelpers.BuildContext(c), in)
}

// Text treats a private message as the answer to an open edit. Messages
// that answer nothing are ignored.
func (h *Handlers) Text(c tele.Context) error {
	if c.Sender() == nil || c.Chat() == nil {
		return nil
	}
	err := h.menu.HandleReply(tghelpers.BuildContext(c), menu.Reply{
		From:   c.Sender().ID,
		ChatID: c.Chat().ID,
		Text:   c.Text(),
	})
	if errors.Is(err, pending.ErrNoPendingEdit) || errors.Is(err, menu.ErrEditSuperseded) {
		return nil
	}
	return err
}

// Member turns a my_chat_member update into an onboarding transition.
func (h *Handlers) Member(c tele.Context) error {
	upd := c.ChatMember()
	if upd == nil || upd.Chat == nil {
		return nil
	}
	t := onboarding.Transition{
		ChatID:    upd.Chat.ID,
		ChatTitle: upd.Chat.Title,
		Old:       memberStatus(upd.OldChatMember),
		New:       memberStatus(upd.NewChatMember),
	}
	if upd.Sender != nil {
		t.By = upd.Sender.ID
	}
	return h.onboarding.Handle(tghelpers.BuildContext(c), t)
}

// Routes returns every update route of the bot. Commands must be registered
// in reg beforehand.
func (h *Handlers) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{})
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{Private: h.Text})...)
	routes = append(routes,
		router.CallbackRoute(h.Callback),
		router.MemberRoute(h.Member),
	)
	return routes
}

func memberStatus(m *tele.ChatMember) onboarding.Status {
	if m == nil {
		return onboarding.StatusUnknown
	}
	switch m.Role {
	case tele.Left:
		return onboarding.StatusLeft
	case tele.Kicked:
		return onboarding.StatusKicked
	case tele.Restricted:
		return onboarding.StatusRestricted
	case tele.Member:
		return onboarding.StatusMember
	case tele.Administrator:
		return onboarding.StatusAdministrator
	case tele.Creator:
		return onboarding.StatusCreator
	}
	return onboarding.StatusUnknown
}
