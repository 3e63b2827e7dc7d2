package app

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/m3rciful/whoisbot/internal/menu"

	tele "gopkg.in/telebot.v4"
)

func TestManagedChatsKeepsAdministeredChats(t *testing.T) {
	bot := &fakeBot{
		roles: map[int64]tele.MemberStatus{
			-1: tele.Administrator,
			-2: tele.Member,
			-3: tele.Creator,
		},
		memberErr: map[int64]error{
			-4: &tele.Error{Code: http.StatusBadRequest, Description: "Bad Request: chat not found"},
		},
		titles: map[int64]string{-1: "One"},
	}
	dir := NewDirectory(bot, fakeIndex{ids: []int64{-1, -2, -3, -4}}, testSender())

	got, err := dir.ManagedChats(context.Background(), 7)
	if err != nil {
		t.Fatalf("managed chats: %v", err)
	}
	want := []menu.ChatRef{{ID: -1, Title: "One"}, {ID: -3, Title: "-3"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestManagedChatsFailsWhenNothingCouldBeChecked(t *testing.T) {
	bot := &fakeBot{memberErr: map[int64]error{-1: errBoom, -2: errBoom}}
	dir := NewDirectory(bot, fakeIndex{ids: []int64{-1, -2}}, testSender())

	if _, err := dir.ManagedChats(context.Background(), 7); !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestManagedChatsSkipsSingleFailure(t *testing.T) {
	bot := &fakeBot{
		roles:     map[int64]tele.MemberStatus{-1: tele.Administrator},
		memberErr: map[int64]error{-2: errBoom},
	}
	dir := NewDirectory(bot, fakeIndex{ids: []int64{-1, -2}}, testSender())

	got, err := dir.ManagedChats(context.Background(), 7)
	if err != nil {
		t.Fatalf("managed chats: %v", err)
	}
	if len(got) != 1 || got[0].ID != -1 {
		t.Fatalf("got %+v", got)
	}
}

func TestManagedChatsIndexError(t *testing.T) {
	dir := NewDirectory(&fakeBot{}, fakeIndex{err: errBoom}, testSender())
	if _, err := dir.ManagedChats(context.Background(), 7); !errors.Is(err, errBoom) {
		t.Fatalf("expected index error, got %v", err)
	}
}

func TestIsAdmin(t *testing.T) {
	kicked := &tele.Error{Code: http.StatusForbidden, Description: "Forbidden: bot was kicked from the group chat"}
	bot := &fakeBot{
		roles: map[int64]tele.MemberStatus{
			-1: tele.Administrator,
			-2: tele.Creator,
			-3: tele.Restricted,
		},
		memberErr: map[int64]error{-4: kicked, -5: errBoom},
	}
	dir := NewDirectory(bot, fakeIndex{}, testSender())

	tests := []struct {
		chat    int64
		want    bool
		wantErr bool
	}{
		{chat: -1, want: true},
		{chat: -2, want: true},
		{chat: -3, want: false},
		{chat: -4, want: false},
		{chat: -5, wantErr: true},
		{chat: -6, want: false},
	}
	for _, tt := range tests {
		got, err := dir.IsAdmin(context.Background(), tt.chat, 7)
		if (err != nil) != tt.wantErr {
			t.Fatalf("chat %d: err = %v", tt.chat, err)
		}
		if got != tt.want {
			t.Errorf("chat %d: IsAdmin = %v, want %v", tt.chat, got, tt.want)
		}
	}
}

func TestChatTitle(t *testing.T) {
	dir := NewDirectory(&fakeBot{titles: map[int64]string{-1: "Club"}}, fakeIndex{}, testSender())
	if got, _ := dir.ChatTitle(context.Background(), -1); got != "Club" {
		t.Errorf("title = %q", got)
	}
	if got, _ := dir.ChatTitle(context.Background(), -9); got != "-9" {
		t.Errorf("untitled chat = %q", got)
	}

	failing := NewDirectory(&fakeBot{chatErr: errBoom}, fakeIndex{}, testSender())
	if _, err := failing.ChatTitle(context.Background(), -1); !errors.Is(err, errBoom) {
		t.Errorf("expected boom, got %v", err)
	}
}
