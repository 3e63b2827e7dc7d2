// Package menu renders the inline admin menu and routes button presses either
// to another screen or to a pending-edit prompt.
package menu

import "github.com/m3rciful/whoisbot/internal/action"

// ParseMode selects how the transport formats a screen's text.
type ParseMode string

const (
	ParsePlain    ParseMode = ""
	ParseMarkdown ParseMode = "Markdown"
)

// Button is a single inline button.
type Button struct {
	Label  string
	Action action.Action
}

// Row is one line of buttons.
type Row []Button

// Keyboard is an ordered list of rows.
type Keyboard []Row

// Buttons returns the number of buttons across all rows.
func (k Keyboard) Buttons() int {
	n := 0
	for _, row := range k {
		n += len(row)
	}
	return n
}

// Screen is one render of the menu.
type Screen struct {
	Text      string
	Keyboard  Keyboard
	ParseMode ParseMode
	// MarkupOnly screens replace only the keyboard of the current message.
	MarkupOnly bool
	// Fresh screens are sent as a new message even when reached from a button.
	Fresh bool
}

func single(label string, a action.Action) Row {
	return Row{{Label: label, Action: a}}
}
