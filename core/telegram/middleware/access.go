package middleware

import tele "gopkg.in/telebot.v4"

// PrivateOptions defines how private-only checks behave.
type PrivateOptions struct {
	OnReject tele.HandlerFunc
}

// PrivateOnlyMiddleware lets downstream handlers run only in private chats.
// Group members must not see the admin menu.
func PrivateOnlyMiddleware(opts PrivateOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil || chat.Type != tele.ChatPrivate {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
