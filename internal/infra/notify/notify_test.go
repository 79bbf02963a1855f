//go:build !integration

package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tagpay/internal/config"
	"tagpay/internal/domain/ports/adapter"
)

func testNotice() adapter.ActivationNotice {
	return adapter.ActivationNotice{
		Token:       "ABCD1234",
		UserName:    "Bob",
		UserEmail:   "bob@example.com",
		Provider:    "cashapp",
		TargetURL:   "https://cash.app/$bob",
		ActivatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	fail map[int64]bool
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	if f.fail[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("forbidden")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{}, nil
}

func TestTelegramNotifier(t *testing.T) {
	bot := &fakeBot{fail: map[int64]bool{2: true}}
	n := newTelegramNotifier(bot, []int64{1, 2, 3})

	err := n.NotifyActivation(context.Background(), testNotice())
	if err == nil || !strings.Contains(err.Error(), "chat 2") {
		t.Fatalf("expected error naming chat 2, got %v", err)
	}
	if len(bot.sent) != 2 {
		t.Fatalf("expected the other chats to be served, got %d", len(bot.sent))
	}
	if !strings.Contains(bot.sent[0].Text, "ABCD1234") || !strings.Contains(bot.sent[0].Text, "https://cash.app/$bob") {
		t.Errorf("unexpected alert text %q", bot.sent[0].Text)
	}
}

func TestNewTelegramNotifier_RequiresConfig(t *testing.T) {
	if _, err := NewTelegramNotifier(&config.TelegramConfig{}); err == nil {
		t.Error("expected error for empty token")
	}
	if _, err := NewTelegramNotifier(&config.TelegramConfig{Token: "x"}); err == nil {
		t.Error("expected error for missing chat ids")
	}
}

func TestEmailNotifier(t *testing.T) {
	n, err := NewEmailNotifier(&config.MailConfig{Host: "smtp.example.com", Username: "u", Password: "p", From: "noreply@tagpay.example"})
	if err != nil {
		t.Fatalf("NewEmailNotifier: %v", err)
	}
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	n.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	if err := n.NotifyActivation(context.Background(), testNotice()); err != nil {
		t.Fatalf("NotifyActivation: %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Errorf("unexpected addr %q", gotAddr)
	}
	if len(gotTo) != 1 || gotTo[0] != "bob@example.com" {
		t.Errorf("unexpected recipients %v", gotTo)
	}
	if !strings.Contains(gotMsg, "Subject: Your tag ABCD1234 is active\r\n") || !strings.Contains(gotMsg, "https://cash.app/$bob") {
		t.Errorf("unexpected message %q", gotMsg)
	}

	bad := testNotice()
	bad.UserEmail = "bob@example.com\r\nBcc: eve@example.com"
	if err := n.NotifyActivation(context.Background(), bad); err == nil {
		t.Error("expected header injection to be refused")
	}
}

type stubNotifier struct {
	name  string
	err   error
	calls int
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) NotifyActivation(context.Context, adapter.ActivationNotice) error {
	s.calls++
	return s.err
}

func TestMulti(t *testing.T) {
	l := zerolog.Nop()
	a := &stubNotifier{name: "a", err: errors.New("down")}
	b := &stubNotifier{name: "b"}
	m := NewMulti(&l, a, nil, b)

	if m.Len() != 2 {
		t.Fatalf("expected nil notifiers to be dropped, got %d", m.Len())
	}
	err := m.NotifyActivation(context.Background(), testNotice())
	if err == nil || !strings.Contains(err.Error(), "a: down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("expected every channel to be tried, got a=%d b=%d", a.calls, b.calls)
	}
}
