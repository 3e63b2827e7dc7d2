package router

import (
	tg "github.com/m3rciful/whoisbot/core/telegram"
	"github.com/m3rciful/whoisbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls routing of plain text messages.
type TextOptions struct {
	// Private handles text sent to the bot in a private chat. Group text is
	// left to other handlers.
	Private tele.HandlerFunc
}

// TextRoutes builds the tele.OnText handler. Text that looks like a known
// command is dispatched to the command even when telebot did not match it,
// for example when it arrives with leading spaces.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		text := c.Text()
		if reg != nil && len(text) > 1 && text[0] == '/' {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				return newSummary(handlerName(key)).run(c, func() error { return cmd.Handler(c) })
			}
		}
		if chat := c.Chat(); chat != nil && chat.Type == tele.ChatPrivate && opts.Private != nil {
			return newSummary("text.private").run(c, func() error { return opts.Private(c) })
		}
		skipped := newSummary("unknown_text")
		skipped.status = "skip"
		skipped.log(c, nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
	}
}

// MemberRoute handles changes of the bot's own membership in chats.
func MemberRoute(handle tele.HandlerFunc) tg.Route {
	handler := func(c tele.Context) error {
		if c.ChatMember() == nil {
			return nil
		}
		return newSummary("my_chat_member").run(c, func() error { return handle(c) })
	}
	return tg.Route{
		Endpoint: tele.OnMyChatMember,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
