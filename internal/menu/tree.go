package menu

import (
	"context"
	"fmt"

	"github.com/m3rciful/whoisbot/internal/action"
	"github.com/m3rciful/whoisbot/internal/model"
)

// Tree builds the screens of the admin menu. It never caches chat data.
type Tree struct {
	tr    model.Translator
	store ChatStore
	dir   Directory
}

// NewTree constructs a Tree.
func NewTree(tr model.Translator, store ChatStore, dir Directory) *Tree {
	return &Tree{tr: tr, store: store, dir: dir}
}

// ChatsList lists the chats adminID can manage.
func (t *Tree) ChatsList(ctx context.Context, adminID int64) (Screen, error) {
	chats, err := t.dir.ManagedChats(ctx, adminID)
	if err != nil {
		return Screen{}, fmt.Errorf("menu: list managed chats: %w: %w", ErrStore, err)
	}
	if len(chats) == 0 {
		return Screen{Text: t.tr.T("msg__no_chats_available"), Fresh: true}, nil
	}
	kb := make(Keyboard, 0, len(chats))
	for _, c := range chats {
		kb = append(kb, single(c.Title, action.New(action.SelectChat, c.ID)))
	}
	return Screen{Text: t.tr.T("msg__start_command"), Keyboard: kb}, nil
}

// ChatMenu is the root screen of one chat.
func (t *Tree) ChatMenu(ctx context.Context, chatID int64) (Screen, error) {
	title, err := t.dir.ChatTitle(ctx, chatID)
	if err != nil {
		return Screen{}, fmt.Errorf("menu: chat title: %w: %w", ErrStore, err)
	}
	return Screen{
		Text:     t.tr.T("msg__select_chat_menu", title),
		Keyboard: t.ChatMenuKeyboard(chatID),
	}, nil
}

// ChatMenuKeyboard returns the three rows of the chat menu.
func (t *Tree) ChatMenuKeyboard(chatID int64) Keyboard {
	return ChatMenuKeyboard(t.tr, chatID)
}

// ChatMenuKeyboard is shared with the onboarding direct message.
func ChatMenuKeyboard(tr model.Translator, chatID int64) Keyboard {
	return Keyboard{
		single(tr.T("btn__intro"), action.New(action.SetIntroSettings, chatID)),
		single(tr.T("btn__kicks"), action.New(action.SetKickBansSettings, chatID)),
		single(tr.T("btn__back_to_chats"), action.New(action.BackToChats, 0)),
	}
}

// IntroSettings lists the greeting templates and the #whois length.
func (t *Tree) IntroSettings(chatID int64) Screen {
	return Screen{
		Text: t.tr.T("msg__intro_settings"),
		Keyboard: Keyboard{
			single(t.tr.T("btn__change_welcome_message"), action.New(action.SetOnNewChatMemberMessage, chatID)),
			single(t.tr.T("btn__change_rewelcome_message"), action.New(action.SetOnKnownNewChatMemberMessage, chatID)),
			single(t.tr.T("btn__change_sucess_message"), action.New(action.SetOnSuccessfulIntroduction, chatID)),
			single(t.tr.T("btn__change_whois_message"), action.New(action.SetOnIntroduceMessageUpdate, chatID)),
			single(t.tr.T("btn__change_whois_length"), action.New(action.SetWhoisLength, chatID)),
			single(t.tr.T("btn__back"), action.New(action.SelectChat, chatID)),
		},
	}
}

// KickBansSettings swaps the keyboard of the chat menu for the removal options.
// Text is only used when there is no message to edit.
func (t *Tree) KickBansSettings(chatID int64) Screen {
	return Screen{
		Text:       t.tr.T("msg__kick_settings"),
		MarkupOnly: true,
		Keyboard: Keyboard{
			single(t.tr.T("btn__current_settings"), action.New(action.GetCurrentKickSettings, chatID)),
			single(t.tr.T("btn__change_kick_timeout"), action.New(action.SetKickTimeout, chatID)),
			single(t.tr.T("btn__change_kick_message"), action.New(action.SetOnKickMessage, chatID)),
			single(t.tr.T("btn__back"), action.New(action.SelectChat, chatID)),
		},
	}
}

// CurrentKickSettings shows the stored timeouts as button labels.
func (t *Tree) CurrentKickSettings(ctx context.Context, chatID int64) (Screen, error) {
	chat, err := t.store.GetChat(ctx, chatID)
	if err != nil {
		return Screen{}, fmt.Errorf("menu: load chat %d: %w: %w", chatID, ErrStore, err)
	}
	return Screen{
		Text:       t.tr.T("msg__kick_settings"),
		MarkupOnly: true,
		Keyboard: Keyboard{
			single(t.tr.T("btn__kick_timeout_value", chat.KickTimeout), action.New(action.SetKickTimeout, chatID)),
			single(t.tr.T("btn__notify_timeout_value", chat.NotifyTimeout), action.New(action.SetNotifyTimeout, chatID)),
			single(t.tr.T("btn__change_kick_message"), action.New(action.SetOnKickMessage, chatID)),
			single(t.tr.T("btn__change_notify_message"), action.New(action.SetNotifyMessage, chatID)),
			single(t.tr.T("btn__back"), action.New(action.SetKickBansSettings, chatID)),
		},
	}, nil
}

// Prompt asks for a new value of s. It carries no keyboard.
func (t *Tree) Prompt(s model.Setting) Screen {
	scr := Screen{Text: t.tr.T(s.PromptKey())}
	if s.Markdown() {
		scr.ParseMode = ParseMarkdown
	}
	return scr
}

// Updated confirms a saved value and leads back to the chat menu.
func (t *Tree) Updated(chatID int64) Screen {
	return Screen{
		Text:     t.tr.T("msg__value_updated"),
		Keyboard: Keyboard{single(t.tr.T("btn__back_to_chat"), action.New(action.SelectChat, chatID))},
	}
}

// Rejected repeats the prompt of s after an invalid answer.
func (t *Tree) Rejected(s model.Setting, reason Reason) Screen {
	scr := t.Prompt(s)
	scr.Text = t.tr.T(reason.messageKey()) + "\n\n" + scr.Text
	return scr
}
