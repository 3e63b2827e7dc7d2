package menu

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/whoisbot/internal/action"
	"github.com/m3rciful/whoisbot/internal/model"
	"github.com/m3rciful/whoisbot/internal/pending"
)

const (
	testAdmin   = int64(501)
	testChat    = int64(1)
	testPrivate = int64(501)
)

var menuMsg = MessageRef{ChatID: testPrivate, MessageID: 10}

type harness struct {
	router *Router
	store  *fakeStore
	dir    *fakeDirectory
	out    *fakeTransport
	edits  *pending.Memory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store: newFakeStore(model.DefaultChat(testChat, keyTranslator{}, model.DefaultLimits())),
		dir:   newFakeDirectory(),
		out:   &fakeTransport{},
		edits: pending.NewMemory(time.Minute),
	}
	h.dir.grant(testChat, "Team", testAdmin)
	h.router = NewRouter(Deps{
		Translator: keyTranslator{},
		Store:      h.store,
		Directory:  h.dir,
		Edits:      h.edits,
		Transport:  h.out,
	})
	return h
}

func (h *harness) press(kind action.Kind, chatID int64) error {
	return h.router.HandleCallback(context.Background(), Callback{
		ID:      "cb",
		From:    testAdmin,
		Data:    action.Encode(action.New(kind, chatID)),
		Message: menuMsg,
	})
}

func TestKickTimeoutScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.press(action.SelectChat, testChat); err != nil {
		t.Fatalf("select_chat: %v", err)
	}
	got := h.out.last()
	if got.method != "edit_text" || got.msg != menuMsg {
		t.Fatalf("chat menu must edit the menu message, got %+v", got)
	}
	if got.screen.Text != "msg__select_chat_menu:Team" || len(got.screen.Keyboard) != 3 {
		t.Fatalf("unexpected chat menu %+v", got.screen)
	}

	if err := h.press(action.SetKickBansSettings, testChat); err != nil {
		t.Fatalf("set_kick_bans_settings: %v", err)
	}
	got = h.out.last()
	if got.method != "edit_markup" || len(got.screen.Keyboard) != 4 || got.screen.Keyboard.Buttons() != 4 {
		t.Fatalf("kick screen must replace markup with 4 buttons, got %+v", got)
	}
	wantKinds := []action.Kind{action.GetCurrentKickSettings, action.SetKickTimeout, action.SetOnKickMessage, action.SelectChat}
	for i, row := range got.screen.Keyboard {
		if row[0].Action.Kind != wantKinds[i] || row[0].Action.ChatID != testChat {
			t.Fatalf("row %d = %v, want %v", i, row[0].Action, wantKinds[i])
		}
	}

	if err := h.press(action.SetKickTimeout, testChat); err != nil {
		t.Fatalf("set_kick_timeout: %v", err)
	}
	got = h.out.last()
	if got.method != "edit_text" || got.screen.Text != "msg__set_new_kick_timout" {
		t.Fatalf("unexpected prompt %+v", got)
	}
	if got.screen.ParseMode != ParsePlain || len(got.screen.Keyboard) != 0 {
		t.Fatalf("numeric prompt must be plain without keyboard: %+v", got.screen)
	}

	if err := h.router.HandleReply(ctx, Reply{From: testAdmin, ChatID: testPrivate, Text: "15"}); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if c := h.store.chat(testChat); c.KickTimeout != 15 {
		t.Fatalf("kick_timeout = %d, want 15", c.KickTimeout)
	}
	if _, err := h.edits.Get(ctx, testAdmin); !errors.Is(err, pending.ErrNoPendingEdit) {
		t.Fatalf("edit must be cleared, got %v", err)
	}
	got = h.out.last()
	if got.method != "send" || got.screen.Text != "msg__value_updated" {
		t.Fatalf("unexpected confirmation %+v", got)
	}
	if back := got.screen.Keyboard[0][0].Action; back != action.New(action.SelectChat, testChat) {
		t.Fatalf("confirmation must lead back to the chat, got %v", back)
	}
	if a := h.out.lastAnswer(); a.id != "cb" || a.text != "" {
		t.Fatalf("callbacks must be acknowledged silently, got %+v", a)
	}
}

func TestLatestEditWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, _, err := h.router.OpenEdit(ctx, testAdmin, testChat, model.SettingKickTimeout); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, kind, err := h.router.OpenEdit(ctx, testAdmin, testChat, model.SettingWhoisLength); err != nil || kind != model.KindInteger {
		t.Fatalf("open: %v, kind %v", err, kind)
	}
	if err := h.router.ResolveEdit(ctx, testAdmin, testChat, "30"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	c := h.store.chat(testChat)
	if c.WhoisLength != 30 {
		t.Fatalf("whois_length = %d, want 30", c.WhoisLength)
	}
	if c.KickTimeout != model.DefaultKickTimeoutMinutes {
		t.Fatalf("superseded edit must not apply, kick_timeout = %d", c.KickTimeout)
	}
}

// replacingEdits opens a newer edit between Get and Complete, the way a
// second replica sharing the Redis backend can.
type replacingEdits struct {
	*pending.Memory
	next model.Setting
}

func (r *replacingEdits) Complete(ctx context.Context, e pending.Edit) (bool, error) {
	if _, err := r.Memory.Open(ctx, e.AdminID, e.ChatID, r.next); err != nil {
		return false, err
	}
	return r.Memory.Complete(ctx, e)
}

func TestSupersededAnswerWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	edits := &replacingEdits{Memory: h.edits, next: model.SettingWhoisLength}
	h.router = NewRouter(Deps{
		Translator: keyTranslator{},
		Store:      h.store,
		Directory:  h.dir,
		Edits:      edits,
		Transport:  h.out,
	})

	if _, _, err := h.router.OpenEdit(ctx, testAdmin, testChat, model.SettingKickTimeout); err != nil {
		t.Fatalf("open: %v", err)
	}
	sentBefore := h.out.count()
	err := h.router.HandleReply(ctx, Reply{From: testAdmin, ChatID: testPrivate, Text: "15"})
	if !errors.Is(err, ErrEditSuperseded) {
		t.Fatalf("err = %v", err)
	}
	if c := h.store.chat(testChat); c.KickTimeout != model.DefaultKickTimeoutMinutes {
		t.Fatalf("superseded answer must not be saved, kick_timeout = %d", c.KickTimeout)
	}
	if h.out.count() != sentBefore {
		t.Fatalf("no confirmation expected, got %+v", h.out.last())
	}
	cur, err := h.edits.Get(ctx, testAdmin)
	if err != nil || cur.Setting != model.SettingWhoisLength {
		t.Fatalf("newer edit must stay open, got %+v, %v", cur, err)
	}
}

func TestResolveRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		setting model.Setting
		text    string
		reason  Reason
	}{
		{"letters", model.SettingKickTimeout, "soon", NotANumber},
		{"zero", model.SettingNotifyTimeout, "0", NotANumber},
		{"negative", model.SettingWhoisLength, "-5", NotANumber},
		{"fraction", model.SettingKickTimeout, "1.5", NotANumber},
		{"overflow", model.SettingKickTimeout, "99999999999", NotANumber},
		{"blank template", model.SettingOnKickMessage, "   ", EmptyText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			before := h.store.chat(testChat)

			if _, _, err := h.router.OpenEdit(ctx, testAdmin, testChat, tc.setting); err != nil {
				t.Fatalf("open: %v", err)
			}
			err := h.router.ResolveEdit(ctx, testAdmin, testChat, tc.text)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Reason != tc.reason || verr.Setting != tc.setting {
				t.Fatalf("err = %v, want %s", err, tc.reason)
			}
			if h.store.chat(testChat) != before || h.store.updates != 0 {
				t.Fatal("chat must stay unchanged")
			}
			if _, err := h.edits.Get(ctx, testAdmin); err != nil {
				t.Fatalf("edit must stay open: %v", err)
			}
		})
	}
}

func TestResolveTrimsTemplate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, _, err := h.router.OpenEdit(ctx, testAdmin, testChat, model.SettingNotifyMessage); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := h.router.ResolveEdit(ctx, testAdmin, testChat, "  Say #whois!  "); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := h.store.chat(testChat).NotifyMessage; got != "Say #whois!" {
		t.Fatalf("notify_message = %q", got)
	}
}

func TestResolveRequiresMatchingChat(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.router.ResolveEdit(ctx, testAdmin, testChat, "10"); !errors.Is(err, pending.ErrNoPendingEdit) {
		t.Fatalf("no edit: %v", err)
	}
	if _, _, err := h.router.OpenEdit(ctx, testAdmin, testChat, model.SettingKickTimeout); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := h.router.ResolveEdit(ctx, testAdmin, -999, "10"); !errors.Is(err, pending.ErrNoPendingEdit) {
		t.Fatalf("other chat: %v", err)
	}
	if h.store.updates != 0 {
		t.Fatal("nothing must be written")
	}
}

func TestReplyRepromptsOnInvalidValue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.press(action.SetOnNewChatMemberMessage, testChat); err != nil {
		t.Fatalf("press: %v", err)
	}
	if got := h.out.last().screen; got.ParseMode != ParseMarkdown || got.Text != "msg__set_new_welcome_message" {
		t.Fatalf("template prompt must use markdown: %+v", got)
	}

	err := h.router.HandleReply(ctx, Reply{From: testAdmin, ChatID: testPrivate, Text: "  "})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v", err)
	}
	got := h.out.last()
	if got.method != "send" || !strings.HasPrefix(got.screen.Text, "msg__empty_text") ||
		!strings.HasSuffix(got.screen.Text, "msg__set_new_welcome_message") {
		t.Fatalf("unexpected re-prompt %+v", got)
	}
}

func TestReplyWithoutEditIsIgnored(t *testing.T) {
	h := newHarness(t)
	err := h.router.HandleReply(context.Background(), Reply{From: testAdmin, ChatID: testPrivate, Text: "hello"})
	if !errors.Is(err, pending.ErrNoPendingEdit) {
		t.Fatalf("err = %v", err)
	}
	if h.out.count() != 0 {
		t.Fatal("nothing must be sent")
	}
}

func TestReplyAfterLosingRights(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, _, err := h.router.OpenEdit(ctx, testAdmin, testChat, model.SettingKickTimeout); err != nil {
		t.Fatalf("open: %v", err)
	}
	h.dir.admins[testChat][testAdmin] = false

	err := h.router.HandleReply(ctx, Reply{From: testAdmin, ChatID: testPrivate, Text: "5"})
	if !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("err = %v", err)
	}
	if h.store.updates != 0 {
		t.Fatal("value must not be written")
	}
	if _, err := h.edits.Get(ctx, testAdmin); !errors.Is(err, pending.ErrNoPendingEdit) {
		t.Fatalf("edit must be dropped: %v", err)
	}
	if got := h.out.last().screen.Text; got != "msg__not_admin" {
		t.Fatalf("notice = %q", got)
	}
}

func TestChatsListEmptySendsNewMessage(t *testing.T) {
	h := newHarness(t)
	h.dir.managed[testAdmin] = nil

	if err := h.press(action.StartSelectChat, 0); err != nil {
		t.Fatalf("press: %v", err)
	}
	got := h.out.last()
	if got.method != "send" || got.chatID != testPrivate {
		t.Fatalf("empty list must be a new message, got %+v", got)
	}
	if got.screen.Text != "msg__no_chats_available" || len(got.screen.Keyboard) != 0 {
		t.Fatalf("unexpected screen %+v", got.screen)
	}
}

func TestChatsListEditsInPlace(t *testing.T) {
	h := newHarness(t)
	h.dir.grant(-200, "Other", testAdmin)

	if err := h.press(action.BackToChats, 0); err != nil {
		t.Fatalf("press: %v", err)
	}
	got := h.out.last()
	if got.method != "edit_text" || got.screen.Text != "msg__start_command" {
		t.Fatalf("unexpected render %+v", got)
	}
	if len(got.screen.Keyboard) != 2 {
		t.Fatalf("want one row per chat, got %d", len(got.screen.Keyboard))
	}
	if b := got.screen.Keyboard[1][0]; b.Label != "Other" || b.Action != action.New(action.SelectChat, -200) {
		t.Fatalf("unexpected button %+v", b)
	}
}

func TestStartSendsChatsList(t *testing.T) {
	h := newHarness(t)
	if err := h.router.Start(context.Background(), testAdmin, testPrivate); err != nil {
		t.Fatalf("start: %v", err)
	}
	got := h.out.last()
	if got.method != "send" || got.chatID != testPrivate || got.screen.Text != "msg__start_command" {
		t.Fatalf("unexpected render %+v", got)
	}
}

func TestMalformedPayloadIsAnswered(t *testing.T) {
	for _, data := range []string{"", "nope", "select_chat|x", "select_chat", "a|b|c"} {
		h := newHarness(t)
		err := h.router.HandleCallback(context.Background(), Callback{ID: "cb", From: testAdmin, Data: data, Message: menuMsg})
		if !errors.Is(err, action.ErrMalformedPayload) && !errors.Is(err, action.ErrUnknownAction) {
			t.Fatalf("%q: err = %v", data, err)
		}
		if h.out.count() != 0 {
			t.Fatalf("%q: message must stay untouched", data)
		}
		if a := h.out.lastAnswer(); a.text != "msg__try_again" {
			t.Fatalf("%q: answer = %+v", data, a)
		}
	}
}

func TestForeignChatIsDenied(t *testing.T) {
	h := newHarness(t)
	err := h.press(action.SetKickTimeout, -777)
	if !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("err = %v", err)
	}
	if h.out.count() != 0 || h.edits.Len() != 0 {
		t.Fatal("nothing must be rendered or opened")
	}
	if a := h.out.lastAnswer(); a.text != "msg__not_admin" {
		t.Fatalf("answer = %+v", a)
	}
}

func TestNavigationCancelsEdit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.press(action.SetNotifyTimeout, testChat); err != nil {
		t.Fatalf("press: %v", err)
	}
	if _, err := h.edits.Get(ctx, testAdmin); err != nil {
		t.Fatalf("edit must be open: %v", err)
	}
	if err := h.press(action.SetIntroSettings, testChat); err != nil {
		t.Fatalf("press: %v", err)
	}
	if _, err := h.edits.Get(ctx, testAdmin); !errors.Is(err, pending.ErrNoPendingEdit) {
		t.Fatalf("navigation must cancel the edit: %v", err)
	}
	if err := h.router.ResolveEdit(ctx, testAdmin, testChat, "5"); !errors.Is(err, pending.ErrNoPendingEdit) {
		t.Fatalf("resolve after cancel: %v", err)
	}
}

func TestCurrentKickSettingsShowsStoredValues(t *testing.T) {
	h := newHarness(t)
	c := h.store.chat(testChat)
	c.KickTimeout, c.NotifyTimeout = 42, 7
	h.store.chats[testChat] = c

	if err := h.press(action.GetCurrentKickSettings, testChat); err != nil {
		t.Fatalf("press: %v", err)
	}
	got := h.out.last()
	if got.method != "edit_markup" {
		t.Fatalf("summary must be markup only, got %s", got.method)
	}
	kb := got.screen.Keyboard
	if kb[0][0].Label != "btn__kick_timeout_value:42" || kb[1][0].Label != "btn__notify_timeout_value:7" {
		t.Fatalf("labels must carry stored values: %+v", kb)
	}
	if back := kb[len(kb)-1][0].Action; back != action.New(action.SetKickBansSettings, testChat) {
		t.Fatalf("back = %v", back)
	}
}

func TestIntroSettingsLeaves(t *testing.T) {
	h := newHarness(t)
	scr := h.router.Tree().IntroSettings(testChat)
	want := []action.Kind{
		action.SetOnNewChatMemberMessage,
		action.SetOnKnownNewChatMemberMessage,
		action.SetOnSuccessfulIntroduction,
		action.SetOnIntroduceMessageUpdate,
		action.SetWhoisLength,
		action.SelectChat,
	}
	if len(scr.Keyboard) != len(want) {
		t.Fatalf("rows = %d", len(scr.Keyboard))
	}
	for i, k := range want {
		if scr.Keyboard[i][0].Action.Kind != k {
			t.Fatalf("row %d = %s, want %s", i, scr.Keyboard[i][0].Action.Kind, k)
		}
	}
}

func TestEveryKindHasScreen(t *testing.T) {
	h := newHarness(t)
	for _, k := range action.Kinds() {
		chatID := int64(0)
		if k.NeedsChat() {
			chatID = testChat
		}
		if _, err := h.router.screen(context.Background(), testAdmin, action.New(k, chatID)); err != nil {
			t.Fatalf("%s: %v", k, err)
		}
	}
}

func TestStoreFailureShowsGenericError(t *testing.T) {
	h := newHarness(t)
	h.store.getErr = errors.New("db down")

	err := h.press(action.GetCurrentKickSettings, testChat)
	if !errors.Is(err, ErrStore) {
		t.Fatalf("err = %v", err)
	}
	if a := h.out.lastAnswer(); a.text != "msg__generic_error" {
		t.Fatalf("answer = %+v", a)
	}
}

func TestChatTitleFailureShowsGenericError(t *testing.T) {
	h := newHarness(t)
	h.dir.titleErr = errors.New("Bad Request: chat not found")

	err := h.press(action.SelectChat, testChat)
	if !errors.Is(err, ErrStore) {
		t.Fatalf("err = %v", err)
	}
	if a := h.out.lastAnswer(); a.text != "msg__generic_error" {
		t.Fatalf("answer = %+v", a)
	}
}

func TestTransportFailureEndsTurn(t *testing.T) {
	h := newHarness(t)
	h.out.fail = errors.New("message to edit not found")

	err := h.press(action.SelectChat, testChat)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v", err)
	}
	if a := h.out.lastAnswer(); a.text != "" {
		t.Fatalf("transport failures are silent, got %+v", a)
	}
}

func TestCancelCommand(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.router.Cancel(ctx, testAdmin, testPrivate); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := h.out.last().screen.Text; got != "msg__nothing_to_cancel" {
		t.Fatalf("notice = %q", got)
	}
	if _, _, err := h.router.OpenEdit(ctx, testAdmin, testChat, model.SettingKickTimeout); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := h.router.Cancel(ctx, testAdmin, testPrivate); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := h.out.last().screen.Text; got != "msg__edit_cancelled" {
		t.Fatalf("notice = %q", got)
	}
}

func TestKeyedMutexSerialisesPerKey(t *testing.T) {
	k := newKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(7)
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxSeen)
	}
	if k.size() != 0 {
		t.Fatalf("entries leaked: %d", k.size())
	}
}
