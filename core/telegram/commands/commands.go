// Package commands describes slash commands exposed by the bot.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// PrivateOnly restricts the command to private chats with the bot.
	PrivateOnly bool
	Hidden      bool
	Aliases     []string
}
