package telegram

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/m3rciful/whoisbot/core/logger"
	"github.com/m3rciful/whoisbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry holds the bot's slash commands keyed by "/name".
type Registry struct {
	commands map[string]commands.Command
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]commands.Command)}
}

// RegisterCommand adds cmd under name. It reports false and logs why when
// name or cmd is unusable or name is taken.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) bool {
	if r == nil {
		return false
	}
	reason := ""
	switch {
	case name == "" || cmd.Handler == nil || cmd.Description == "":
		reason = "invalid"
	case name[0] != '/':
		reason = "no_slash_prefix"
	default:
		if _, taken := r.commands[name]; taken {
			reason = "duplicate"
		}
	}
	if reason != "" {
		logger.Warn(context.Background(), "tg.wire", "command.skip",
			slog.String("name", name),
			slog.String("reason", reason),
		)
		return false
	}
	r.commands[name] = cmd
	return true
}

// ListCommands returns the commands sorted by name for the Bot API menu.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if visibleOnly && cmd.Hidden {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves the first word of text to a registered command.
// "/cmd@botname", a missing slash and aliases all resolve to the canonical
// key.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	name, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	name, _, _ = strings.Cut(name, "@")
	name = "/" + strings.TrimPrefix(name, "/")
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if "/"+strings.TrimPrefix(alias, "/") == name {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// Commands exposes the registered commands by key.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// SetupCommands publishes the visible commands to the menu of private chats.
// The bot has no commands for groups.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	if bot == nil || reg == nil {
		return
	}
	list := reg.ListCommands(true)
	if len(list) == 0 {
		return
	}
	if err := bot.SetCommands(list, tele.CommandScope{Type: tele.CommandScopeAllPrivateChats}); err != nil {
		logger.Error(context.Background(), "tg.wire", "commands.publish",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}
