package app

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/m3rciful/whoisbot/core/telegram/sender"
	"github.com/m3rciful/whoisbot/internal/menu"
	"github.com/m3rciful/whoisbot/internal/onboarding"

	tele "gopkg.in/telebot.v4"
)

type sentMessage struct {
	to   string
	text string
	opts *tele.SendOptions
}

type editCall struct {
	messageID string
	chatID    int64
	text      string
	opts      *tele.SendOptions
	markup    *tele.ReplyMarkup
}

type answerCall struct {
	callbackID string
	text       string
}

// fakeBot stands in for *tele.Bot.
type fakeBot struct {
	mu      sync.Mutex
	sent    []sentMessage
	edits   []editCall
	markups []editCall
	answers []answerCall

	sendErr error
	editErr error

	roles     map[int64]tele.MemberStatus
	memberErr map[int64]error
	titles    map[int64]string
	chatErr   error
}

func (b *fakeBot) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return nil, b.sendErr
	}
	m := sentMessage{to: to.Recipient(), text: what.(string)}
	if len(opts) > 0 {
		m.opts, _ = opts[0].(*tele.SendOptions)
	}
	b.sent = append(b.sent, m)
	return &tele.Message{ID: len(b.sent)}, nil
}

func (b *fakeBot) Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.editErr != nil {
		return nil, b.editErr
	}
	id, chatID := msg.MessageSig()
	call := editCall{messageID: id, chatID: chatID, text: what.(string)}
	if len(opts) > 0 {
		call.opts, _ = opts[0].(*tele.SendOptions)
	}
	b.edits = append(b.edits, call)
	return &tele.Message{}, nil
}

func (b *fakeBot) EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.editErr != nil {
		return nil, b.editErr
	}
	id, chatID := msg.MessageSig()
	b.markups = append(b.markups, editCall{messageID: id, chatID: chatID, markup: markup})
	return &tele.Message{}, nil
}

func (b *fakeBot) Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	call := answerCall{callbackID: c.ID}
	if len(resp) > 0 {
		call.text = resp[0].Text
	}
	b.answers = append(b.answers, call)
	return nil
}

func (b *fakeBot) ChatByID(id int64) (*tele.Chat, error) {
	if b.chatErr != nil {
		return nil, b.chatErr
	}
	return &tele.Chat{ID: id, Title: b.titles[id]}, nil
}

func (b *fakeBot) ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error) {
	chatID, err := strconv.ParseInt(chat.Recipient(), 10, 64)
	if err != nil {
		return nil, err
	}
	if err := b.memberErr[chatID]; err != nil {
		return nil, err
	}
	role, ok := b.roles[chatID]
	if !ok {
		role = tele.Left
	}
	return &tele.ChatMember{Role: role}, nil
}

type fakeIndex struct {
	ids []int64
	err error
}

func (f fakeIndex) ChatIDsForUser(context.Context, int64) ([]int64, error) {
	return f.ids, f.err
}

func testSender() *sender.Sender {
	return sender.New(sender.Options{MaxRetries: 1, RetryBackoff: time.Millisecond})
}

type keyTranslator struct{}

func (keyTranslator) T(key string, _ ...any) string { return key }

// fakeMenu records what the handlers pass on.
type fakeMenu struct {
	starts    [][2]int64
	cancels   [][2]int64
	callbacks []menu.Callback
	replies   []menu.Reply
	replyErr  error
}

func (m *fakeMenu) Start(_ context.Context, adminID, chatID int64) error {
	m.starts = append(m.starts, [2]int64{adminID, chatID})
	return nil
}

func (m *fakeMenu) Cancel(_ context.Context, adminID, chatID int64) error {
	m.cancels = append(m.cancels, [2]int64{adminID, chatID})
	return nil
}

func (m *fakeMenu) HandleCallback(_ context.Context, cb menu.Callback) error {
	m.callbacks = append(m.callbacks, cb)
	return nil
}

func (m *fakeMenu) HandleReply(_ context.Context, r menu.Reply) error {
	m.replies = append(m.replies, r)
	return m.replyErr
}

type fakeOnboarder struct {
	got []onboarding.Transition
}

func (o *fakeOnboarder) Handle(_ context.Context, t onboarding.Transition) error {
	o.got = append(o.got, t)
	return nil
}

var errBoom = errors.New("boom")
