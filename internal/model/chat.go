// Package model holds the persisted configuration records of managed chats.
package model

// Chat is the per-group configuration edited through the admin menu and read
// by the moderation handlers.
type Chat struct {
	ID int64 `db:"id"`

	OnNewChatMemberMessage      string `db:"on_new_chat_member_message"`
	OnKnownNewChatMemberMessage string `db:"on_known_new_chat_member_message"`
	OnIntroduceMessage          string `db:"on_introduce_message"`
	OnIntroduceMessageUpdate    string `db:"on_introduce_message_update"`
	OnKickMessage               string `db:"on_kick_message"`
	NotifyMessage               string `db:"notify_message"`

	// KickTimeout is the number of minutes before an unverified member is removed.
	KickTimeout int `db:"kick_timeout"`
	// NotifyTimeout is the number of minutes before a reminder is sent.
	NotifyTimeout int `db:"notify_timeout"`
	// WhoisLength is the minimum length of an accepted #whois.
	WhoisLength int `db:"whois_length"`
}

// Value returns the current value of s, typed as the setting expects.
func (c Chat) Value(s Setting) (any, bool) {
	switch s {
	case SettingOnNewChatMemberMessage:
		return c.OnNewChatMemberMessage, true
	case SettingOnKnownNewChatMemberMessage:
		return c.OnKnownNewChatMemberMessage, true
	case SettingOnIntroduceMessage:
		return c.OnIntroduceMessage, true
	case SettingOnIntroduceMessageUpdate:
		return c.OnIntroduceMessageUpdate, true
	case SettingOnKickMessage:
		return c.OnKickMessage, true
	case SettingNotifyMessage:
		return c.NotifyMessage, true
	case SettingKickTimeout:
		return c.KickTimeout, true
	case SettingNotifyTimeout:
		return c.NotifyTimeout, true
	case SettingWhoisLength:
		return c.WhoisLength, true
	}
	return nil, false
}

// User is a member record scoped to one chat. An empty Whois marks a
// placeholder row for a member that has not introduced themselves yet.
type User struct {
	ChatID int64  `db:"chat_id"`
	UserID int64  `db:"user_id"`
	Whois  string `db:"whois"`
}

// Placeholder builds an unverified member row.
func Placeholder(chatID, userID int64) User {
	return User{ChatID: chatID, UserID: userID}
}

// Verified reports whether the member has a non-empty #whois.
func (u User) Verified() bool {
	return u.Whois != ""
}
