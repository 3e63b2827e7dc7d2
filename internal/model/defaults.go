package model

// Default policy values used when the config does not override them.
const (
	DefaultKickTimeoutMinutes   = 60
	DefaultNotifyTimeoutMinutes = 30
	DefaultWhoisLength          = 60
)

// Translator resolves catalog keys to localized text.
type Translator interface {
	T(key string, args ...any) string
}

// Limits carries the numeric defaults seeded into a new chat.
type Limits struct {
	KickTimeout   int
	NotifyTimeout int
	WhoisLength   int
}

// DefaultLimits returns the built-in numeric defaults.
func DefaultLimits() Limits {
	return Limits{
		KickTimeout:   DefaultKickTimeoutMinutes,
		NotifyTimeout: DefaultNotifyTimeoutMinutes,
		WhoisLength:   DefaultWhoisLength,
	}
}

// orDefault replaces non-positive values with the built-in defaults.
func (l Limits) orDefault() Limits {
	d := DefaultLimits()
	if l.KickTimeout <= 0 {
		l.KickTimeout = d.KickTimeout
	}
	if l.NotifyTimeout <= 0 {
		l.NotifyTimeout = d.NotifyTimeout
	}
	if l.WhoisLength <= 0 {
		l.WhoisLength = d.WhoisLength
	}
	return l
}

// DefaultChat builds the configuration a chat starts with. It is pure: the
// templates come from tr and the numbers from limits.
func DefaultChat(id int64, tr Translator, limits Limits) Chat {
	limits = limits.orDefault()
	return Chat{
		ID:                          id,
		OnNewChatMemberMessage:      tr.T("msg__new_chat_member"),
		OnKnownNewChatMemberMessage: tr.T("msg__known_new_chat_member"),
		OnIntroduceMessage:          tr.T("msg__introduce"),
		OnIntroduceMessageUpdate:    tr.T("msg__introduce_update"),
		OnKickMessage:               tr.T("msg__kick"),
		NotifyMessage:               tr.T("msg__notify"),
		KickTimeout:                 limits.KickTimeout,
		NotifyTimeout:               limits.NotifyTimeout,
		WhoisLength:                 limits.WhoisLength,
	}
}
