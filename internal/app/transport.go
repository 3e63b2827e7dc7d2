package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/m3rciful/whoisbot/core/telegram/keyboard"
	"github.com/m3rciful/whoisbot/core/telegram/middleware"
	"github.com/m3rciful/whoisbot/core/telegram/sender"
	"github.com/m3rciful/whoisbot/internal/action"
	"github.com/m3rciful/whoisbot/internal/menu"

	tele "gopkg.in/telebot.v4"
)

// BotAPI is the part of *tele.Bot the transport calls.
type BotAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

// Transport delivers menu screens through the Bot API.
type Transport struct {
	api    BotAPI
	sender *sender.Sender
}

var _ menu.Transport = (*Transport)(nil)

// NewTransport wraps api. Every call goes through s.
func NewTransport(api BotAPI, s *sender.Sender) *Transport {
	if s == nil {
		s = sender.New(sender.Options{})
	}
	return &Transport{api: api, sender: s}
}

// Send posts s as a new message to chatID.
func (t *Transport) Send(ctx context.Context, chatID int64, s menu.Screen) error {
	markup, err := replyMarkup(s.Keyboard)
	if err != nil {
		return err
	}
	opts := &tele.SendOptions{ParseMode: string(s.ParseMode), ReplyMarkup: markup}
	err = t.sender.Do(ctx, "sendMessage", func() error {
		_, err := t.api.Send(tele.ChatID(chatID), s.Text, opts)
		return err
	})
	if err != nil {
		return err
	}
	middleware.CountSent(ctx, keyboard.Count(markup) > 0)
	return nil
}

// EditText replaces text and keyboard of msg. An empty keyboard removes the
// buttons.
func (t *Transport) EditText(ctx context.Context, msg menu.MessageRef, s menu.Screen) error {
	markup, err := replyMarkup(s.Keyboard)
	if err != nil {
		return err
	}
	opts := &tele.SendOptions{ParseMode: string(s.ParseMode), ReplyMarkup: markup}
	return t.sender.Do(ctx, "editMessageText", func() error {
		_, err := t.api.Edit(stored(msg), s.Text, opts)
		return err
	})
}

// EditMarkup replaces only the keyboard of msg.
func (t *Transport) EditMarkup(ctx context.Context, msg menu.MessageRef, kb menu.Keyboard) error {
	markup, err := replyMarkup(kb)
	if err != nil {
		return err
	}
	return t.sender.Do(ctx, "editMessageReplyMarkup", func() error {
		_, err := t.api.EditReplyMarkup(stored(msg), markup)
		return err
	})
}

// Answer acknowledges a button press. A non-empty text shows up as a toast.
func (t *Transport) Answer(ctx context.Context, callbackID, text string) error {
	return t.sender.Do(ctx, "answerCallbackQuery", func() error {
		return t.api.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
	})
}

func stored(msg menu.MessageRef) tele.StoredMessage {
	return tele.StoredMessage{
		MessageID: strconv.Itoa(msg.MessageID),
		ChatID:    msg.ChatID,
	}
}

// replyMarkup converts kb to an inline keyboard. Nil means no keyboard.
func replyMarkup(kb menu.Keyboard) (*tele.ReplyMarkup, error) {
	if kb.Buttons() == 0 {
		return nil, nil
	}
	rows := make([][]keyboard.InlineBtn, 0, len(kb))
	for _, row := range kb {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			btns = append(btns, keyboard.InlineBtn{Text: b.Label, Data: action.Encode(b.Action)})
		}
		rows = append(rows, btns)
	}
	markup, err := keyboard.InlineButtonsRows(rows...)
	if err != nil {
		return nil, fmt.Errorf("app: build keyboard: %w", err)
	}
	return markup, nil
}
