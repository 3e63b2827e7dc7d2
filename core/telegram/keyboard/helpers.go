// Package keyboard builds Telegram inline keyboards.
package keyboard

import (
	"fmt"

	tele "gopkg.in/telebot.v4"
)

// MaxDataLen is Telegram's limit for callback_data in bytes.
const MaxDataLen = 64

// InlineBtn describes an inline button. Data is delivered verbatim to
// tele.OnCallback because no unique endpoint is registered for it.
type InlineBtn struct {
	Text string
	Data string
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
// Empty rows are skipped. It fails when a payload exceeds MaxDataLen.
func InlineButtonsRows(rows ...[]InlineBtn) (*tele.ReplyMarkup, error) {
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			if len(btn.Data) > MaxDataLen {
				return nil, fmt.Errorf("keyboard: callback data of %q is %d bytes, limit %d", btn.Text, len(btn.Data), MaxDataLen)
			}
			r[j] = tele.InlineButton{Text: btn.Text, Data: btn.Data}
		}
		inline = append(inline, r)
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}, nil
}

// Count returns the number of buttons in markup.
func Count(markup *tele.ReplyMarkup) int {
	if markup == nil {
		return 0
	}
	n := 0
	for _, row := range markup.InlineKeyboard {
		n += len(row)
	}
	return n
}
