package router

import (
	"errors"
	"fmt"
	"testing"

	tg "github.com/m3rciful/whoisbot/core/telegram"
	"github.com/m3rciful/whoisbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func newContext(t *testing.T, upd tele.Update) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("offline bot: %v", err)
	}
	return bot.NewContext(upd)
}

func textUpdate(text string, chat *tele.Chat) tele.Update {
	return tele.Update{
		ID: 1,
		Message: &tele.Message{
			Sender: &tele.User{ID: 7},
			Chat:   chat,
			Text:   text,
		},
	}
}

var (
	privateChat = &tele.Chat{ID: 7, Type: tele.ChatPrivate}
	groupChat   = &tele.Chat{ID: -100, Type: tele.ChatSuperGroup}
)

func TestTextRoutesDispatch(t *testing.T) {
	reg := tg.NewRegistry()
	var got []string
	reg.RegisterCommand("/cancel", commands.Command{
		Description: "cancel",
		Handler:     func(tele.Context) error { got = append(got, "cancel"); return nil },
	})
	routes := TextRoutes(reg, TextOptions{
		Private: func(c tele.Context) error { got = append(got, "private:"+c.Text()); return nil },
	})
	if len(routes) != 1 || routes[0].Endpoint != tele.OnText {
		t.Fatalf("routes = %+v", routes)
	}
	h := routes[0].Handler

	_ = h(newContext(t, textUpdate("/cancel", privateChat)))
	_ = h(newContext(t, textUpdate("60", privateChat)))
	_ = h(newContext(t, textUpdate("hi all", groupChat)))

	want := []string{"cancel", "private:60"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCommandRoutesPrivateOnly(t *testing.T) {
	reg := tg.NewRegistry()
	calls, rejected := 0, 0
	reg.RegisterCommand("/start", commands.Command{
		Description: "menu",
		PrivateOnly: true,
		Aliases:     []string{"menu"},
		Handler:     func(tele.Context) error { calls++; return nil },
	})
	routes := CommandRoutes(reg, CommandRouteOptions{
		OnPrivateReject: func(tele.Context) error { rejected++; return nil },
	})
	if len(routes) != 2 {
		t.Fatalf("routes = %d, want command and alias", len(routes))
	}
	endpoints := map[any]bool{}
	for _, r := range routes {
		endpoints[r.Endpoint] = true
	}
	if !endpoints["/start"] || !endpoints["/menu"] {
		t.Fatalf("endpoints = %v", endpoints)
	}

	_ = routes[0].Handler(newContext(t, textUpdate("/start", privateChat)))
	_ = routes[0].Handler(newContext(t, textUpdate("/start", groupChat)))
	if calls != 1 || rejected != 1 {
		t.Fatalf("calls=%d rejected=%d", calls, rejected)
	}
}

func TestCallbackRoutePassesErrors(t *testing.T) {
	want := errors.New("boom")
	route := CallbackRoute(func(tele.Context) error { return want })
	c := newContext(t, tele.Update{ID: 3, Callback: &tele.Callback{ID: "1", Sender: &tele.User{ID: 7}, Data: "select_chat|-100"}})
	if err := route.Handler(c); !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
	if err := route.Handler(newContext(t, textUpdate("x", privateChat))); err != nil {
		t.Fatalf("non-callback update: %v", err)
	}
}

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string  { return "not a number" }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestErrorCode(t *testing.T) {
	if got := errorCode(fmt.Errorf("wrap: %w", codedErr{})); got != "NOT_A_NUMBER" {
		t.Errorf("coded = %q", got)
	}
	if got := errorCode(&plainErr{}); got != "PLAINERR" {
		t.Errorf("plain = %q", got)
	}
}

func TestHandlerName(t *testing.T) {
	cases := map[string]string{"/Start": "start", "": "unknown", " set kick ": "set_kick"}
	for in, want := range cases {
		if got := handlerName(in); got != want {
			t.Errorf("handlerName(%q) = %q, want %q", in, got, want)
		}
	}
}
