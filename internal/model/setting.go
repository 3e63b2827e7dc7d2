package model

// Setting names an administrator-editable Chat field. The value equals the
// database column.
type Setting string

const (
	SettingOnNewChatMemberMessage      Setting = "on_new_chat_member_message"
	SettingOnKnownNewChatMemberMessage Setting = "on_known_new_chat_member_message"
	SettingOnIntroduceMessage          Setting = "on_introduce_message"
	SettingOnIntroduceMessageUpdate    Setting = "on_introduce_message_update"
	SettingOnKickMessage               Setting = "on_kick_message"
	SettingNotifyMessage               Setting = "notify_message"
	SettingKickTimeout                 Setting = "kick_timeout"
	SettingNotifyTimeout               Setting = "notify_timeout"
	SettingWhoisLength                 Setting = "whois_length"
)

// ValueKind is the type of value a setting accepts.
type ValueKind uint8

const (
	KindText ValueKind = iota + 1
	KindInteger
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	}
	return "unknown"
}

type settingMeta struct {
	kind   ValueKind
	prompt string
}

var settings = map[Setting]settingMeta{
	SettingOnNewChatMemberMessage:      {KindText, "msg__set_new_welcome_message"},
	SettingOnKnownNewChatMemberMessage: {KindText, "msg__set_new_rewelcome_message"},
	SettingOnIntroduceMessage:          {KindText, "msg__set_new_sucess_message"},
	SettingOnIntroduceMessageUpdate:    {KindText, "msg__set_new_whois_message"},
	SettingOnKickMessage:               {KindText, "msg__set_new_kick_message"},
	SettingNotifyMessage:               {KindText, "msg__set_new_notify_message"},
	SettingKickTimeout:                 {KindInteger, "msg__set_new_kick_timout"},
	SettingNotifyTimeout:               {KindInteger, "msg__set_new_notify_timeout"},
	SettingWhoisLength:                 {KindInteger, "msg__set_new_whois_length"},
}

// Valid reports whether s is a known setting.
func (s Setting) Valid() bool {
	_, ok := settings[s]
	return ok
}

// Kind returns the accepted value type.
func (s Setting) Kind() ValueKind {
	return settings[s].kind
}

// PromptKey is the catalog key of the prompt asking for a new value.
func (s Setting) PromptKey() string {
	return settings[s].prompt
}

// Markdown reports whether the prompt (and the stored template) uses rich
// text. Templates do, numbers don't.
func (s Setting) Markdown() bool {
	return s.Kind() == KindText
}

// Column returns the database column backing s.
func (s Setting) Column() string {
	return string(s)
}

// Settings lists every setting in a stable order.
func Settings() []Setting {
	return []Setting{
		SettingOnNewChatMemberMessage,
		SettingOnKnownNewChatMemberMessage,
		SettingOnIntroduceMessage,
		SettingOnIntroduceMessageUpdate,
		SettingOnKickMessage,
		SettingNotifyMessage,
		SettingKickTimeout,
		SettingNotifyTimeout,
		SettingWhoisLength,
	}
}
