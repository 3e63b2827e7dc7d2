package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/m3rciful/whoisbot/internal/model"
)

type keyTranslator struct{}

func (keyTranslator) T(key string, args ...any) string {
	if len(args) == 0 {
		return key
	}
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, key)
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, ":")
}

type fakeStore struct {
	mu      sync.Mutex
	chats   map[int64]model.Chat
	updates int
	getErr  error
}

func newFakeStore(chats ...model.Chat) *fakeStore {
	s := &fakeStore{chats: make(map[int64]model.Chat)}
	for _, c := range chats {
		s.chats[c.ID] = c
	}
	return s
}

func (s *fakeStore) GetChat(_ context.Context, id int64) (model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return model.Chat{}, s.getErr
	}
	c, ok := s.chats[id]
	if !ok {
		return model.Chat{}, errors.New("chat not found")
	}
	return c, nil
}

func (s *fakeStore) UpdateChatSetting(_ context.Context, id int64, setting model.Setting, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return errors.New("chat not found")
	}
	switch setting {
	case model.SettingKickTimeout:
		c.KickTimeout = value.(int)
	case model.SettingNotifyTimeout:
		c.NotifyTimeout = value.(int)
	case model.SettingWhoisLength:
		c.WhoisLength = value.(int)
	case model.SettingOnNewChatMemberMessage:
		c.OnNewChatMemberMessage = value.(string)
	case model.SettingOnKnownNewChatMemberMessage:
		c.OnKnownNewChatMemberMessage = value.(string)
	case model.SettingOnIntroduceMessage:
		c.OnIntroduceMessage = value.(string)
	case model.SettingOnIntroduceMessageUpdate:
		c.OnIntroduceMessageUpdate = value.(string)
	case model.SettingOnKickMessage:
		c.OnKickMessage = value.(string)
	case model.SettingNotifyMessage:
		c.NotifyMessage = value.(string)
	default:
		return fmt.Errorf("unknown setting %s", setting)
	}
	s.chats[id] = c
	s.updates++
	return nil
}

func (s *fakeStore) chat(id int64) model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chats[id]
}

type fakeDirectory struct {
	managed  map[int64][]ChatRef
	admins   map[int64]map[int64]bool
	titles   map[int64]string
	err      error
	titleErr error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		managed: make(map[int64][]ChatRef),
		admins:  make(map[int64]map[int64]bool),
		titles:  make(map[int64]string),
	}
}

func (d *fakeDirectory) grant(chatID int64, title string, userID int64) {
	if d.admins[chatID] == nil {
		d.admins[chatID] = make(map[int64]bool)
	}
	d.admins[chatID][userID] = true
	d.titles[chatID] = title
	d.managed[userID] = append(d.managed[userID], ChatRef{ID: chatID, Title: title})
}

func (d *fakeDirectory) ManagedChats(_ context.Context, userID int64) ([]ChatRef, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.managed[userID], nil
}

func (d *fakeDirectory) IsAdmin(_ context.Context, chatID, userID int64) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.admins[chatID][userID], nil
}

func (d *fakeDirectory) ChatTitle(_ context.Context, chatID int64) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	if d.titleErr != nil {
		return "", d.titleErr
	}
	return d.titles[chatID], nil
}

type sent struct {
	method string
	chatID int64
	msg    MessageRef
	screen Screen
}

type answered struct {
	id   string
	text string
}

type fakeTransport struct {
	mu      sync.Mutex
	calls   []sent
	answers []answered
	fail    error
}

func (t *fakeTransport) record(s sent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail != nil {
		return t.fail
	}
	t.calls = append(t.calls, s)
	return nil
}

func (t *fakeTransport) Send(_ context.Context, chatID int64, s Screen) error {
	return t.record(sent{method: "send", chatID: chatID, screen: s})
}

func (t *fakeTransport) EditText(_ context.Context, msg MessageRef, s Screen) error {
	return t.record(sent{method: "edit_text", msg: msg, screen: s})
}

func (t *fakeTransport) EditMarkup(_ context.Context, msg MessageRef, kb Keyboard) error {
	return t.record(sent{method: "edit_markup", msg: msg, screen: Screen{Keyboard: kb, MarkupOnly: true}})
}

func (t *fakeTransport) Answer(_ context.Context, id, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.answers = append(t.answers, answered{id: id, text: text})
	return nil
}

func (t *fakeTransport) last() sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.calls) == 0 {
		return sent{}
	}
	return t.calls[len(t.calls)-1]
}

func (t *fakeTransport) lastAnswer() answered {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.answers) == 0 {
		return answered{}
	}
	return t.answers[len(t.answers)-1]
}

func (t *fakeTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}
