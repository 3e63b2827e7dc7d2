package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxPayloadLen is Telegram's limit for callback_data.
	MaxPayloadLen = 64

	separator = "|"
	// telebot prefixes payloads of registered unique buttons with a form feed.
	uniquePrefix = "\f"
)

var (
	// ErrMalformedPayload is returned for payloads that cannot be parsed.
	ErrMalformedPayload = errors.New("action: malformed payload")
	// ErrUnknownAction is returned for well-formed payloads naming no known kind.
	ErrUnknownAction = errors.New("action: unknown action")
)

// Encode renders a as callback data: "<kind>" or "<kind>|<chat_id>".
func Encode(a Action) string {
	name := a.Kind.String()
	if a.ChatID == 0 {
		return name
	}
	return name + separator + strconv.FormatInt(a.ChatID, 10)
}

// Decode parses callback data produced by Encode.
func Decode(raw string) (Action, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), uniquePrefix)
	if raw == "" || len(raw) > MaxPayloadLen {
		return Action{}, fmt.Errorf("%w: length %d", ErrMalformedPayload, len(raw))
	}

	name, rest, scoped := strings.Cut(raw, separator)
	name = strings.TrimSpace(name)
	if name == "" {
		return Action{}, fmt.Errorf("%w: empty action", ErrMalformedPayload)
	}
	kind, ok := ParseKind(name)
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}

	var chatID int64
	if scoped {
		if strings.Contains(rest, separator) {
			return Action{}, fmt.Errorf("%w: too many segments", ErrMalformedPayload)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
		if err != nil || id == 0 {
			return Action{}, fmt.Errorf("%w: chat id %q", ErrMalformedPayload, rest)
		}
		chatID = id
	}
	return Action{Kind: kind, ChatID: chatID}, nil
}
