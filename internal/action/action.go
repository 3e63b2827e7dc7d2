// Package action defines the closed set of menu actions attached to inline
// buttons and the compact wire format they travel in.
package action

import "github.com/m3rciful/whoisbot/internal/model"

// Kind identifies what a button press asks the menu to do.
type Kind uint8

const (
	kindInvalid Kind = iota

	StartSelectChat
	SelectChat
	BackToChats
	SetIntroSettings
	SetKickBansSettings
	GetCurrentKickSettings
	SetKickTimeout
	SetOnKickMessage
	SetNotifyTimeout
	SetNotifyMessage
	SetOnNewChatMemberMessage
	SetOnKnownNewChatMemberMessage
	SetOnIntroduceMessageUpdate
	SetOnSuccessfulIntroduction
	SetWhoisLength

	kindSentinel
)

// Wire names are shared with the original bot's payloads and must not change.
var kindNames = [...]string{
	kindInvalid:                    "",
	StartSelectChat:                "start_select_chat",
	SelectChat:                     "select_chat",
	BackToChats:                    "back_to_chats",
	SetIntroSettings:               "set_intro_settings",
	SetKickBansSettings:            "set_kick_bans_settings",
	GetCurrentKickSettings:         "get_current_kick_settings",
	SetKickTimeout:                 "set_kick_timeout",
	SetOnKickMessage:               "set_on_kick_message",
	SetNotifyTimeout:               "set_notify_timeout",
	SetNotifyMessage:               "set_notify_message",
	SetOnNewChatMemberMessage:      "set_on_new_chat_member_message_response",
	SetOnKnownNewChatMemberMessage: "set_on_known_new_chat_member_message_response",
	SetOnIntroduceMessageUpdate:    "set_on_introduce_message_update",
	SetOnSuccessfulIntroduction:    "set_on_successful_introducion_response",
	SetWhoisLength:                 "set_whois_length",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k := kindInvalid + 1; k < kindSentinel; k++ {
		m[kindNames[k]] = k
	}
	return m
}()

// editSettings maps every edit leaf to the Chat field it changes.
var editSettings = map[Kind]model.Setting{
	SetKickTimeout:                 model.SettingKickTimeout,
	SetOnKickMessage:               model.SettingOnKickMessage,
	SetNotifyTimeout:               model.SettingNotifyTimeout,
	SetNotifyMessage:               model.SettingNotifyMessage,
	SetOnNewChatMemberMessage:      model.SettingOnNewChatMemberMessage,
	SetOnKnownNewChatMemberMessage: model.SettingOnKnownNewChatMemberMessage,
	SetOnIntroduceMessageUpdate:    model.SettingOnIntroduceMessageUpdate,
	SetOnSuccessfulIntroduction:    model.SettingOnIntroduceMessage,
	SetWhoisLength:                 model.SettingWhoisLength,
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, int(kindSentinel)-1)
	for k := kindInvalid + 1; k < kindSentinel; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind resolves a wire name.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindByName[name]
	return k, ok
}

// Valid reports whether k belongs to the closed set.
func (k Kind) Valid() bool {
	return k > kindInvalid && k < kindSentinel
}

func (k Kind) String() string {
	if !k.Valid() {
		return "invalid"
	}
	return kindNames[k]
}

// Setting returns the Chat setting an edit leaf changes.
// ok is false for navigation kinds.
func (k Kind) Setting() (model.Setting, bool) {
	s, ok := editSettings[k]
	return s, ok
}

// IsNavigation reports whether the kind renders another screen instead of
// opening an edit prompt.
func (k Kind) IsNavigation() bool {
	_, edit := editSettings[k]
	return k.Valid() && !edit
}

// NeedsChat reports whether the action is meaningless without a chat id.
func (k Kind) NeedsChat() bool {
	switch k {
	case StartSelectChat, BackToChats:
		return false
	}
	return k.Valid()
}

// Action is a decoded button press. ChatID is zero when the action is not
// scoped to a chat; Telegram never issues a zero chat id.
type Action struct {
	Kind   Kind
	ChatID int64
}

// New builds an action scoped to chatID.
func New(kind Kind, chatID int64) Action {
	return Action{Kind: kind, ChatID: chatID}
}

func (a Action) String() string {
	return Encode(a)
}
