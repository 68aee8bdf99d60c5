package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-gate-bot/internal/domain"
)

type fakeBot struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	member   tgbotapi.ChatMember
	memberCf tgbotapi.GetChatMemberConfig
	err      error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent), Chat: &tgbotapi.Chat{ID: 77}}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.memberCf = cfg
	return f.member, f.err
}

func TestMembershipMapsCreatorToOwner(t *testing.T) {
	bot := &fakeBot{member: tgbotapi.ChatMember{Status: "creator"}}
	tr := NewTransport(bot, zerolog.Nop())

	status, err := tr.Membership(context.Background(), domain.PublicChannel("@news"), 5)
	if err != nil {
		t.Fatalf("membership: %v", err)
	}
	if status != domain.MemberStatusOwner || !status.Subscribed() {
		t.Fatalf("unexpected status %q", status)
	}
	if bot.memberCf.SuperGroupUsername != "@news" || bot.memberCf.UserID != 5 {
		t.Fatalf("unexpected config %+v", bot.memberCf)
	}

	if _, err := tr.Membership(context.Background(), domain.PrivateChannel(-100), 5); err != nil {
		t.Fatalf("membership: %v", err)
	}
	if bot.memberCf.ChatID != -100 {
		t.Fatalf("expected chat id -100, got %d", bot.memberCf.ChatID)
	}
}

func TestMembershipErrorIsTransportError(t *testing.T) {
	bot := &fakeBot{err: errors.New("Bad Request: chat not found")}
	_, err := NewTransport(bot, zerolog.Nop()).Membership(context.Background(), domain.PublicChannel("@x"), 1)
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestSendVideoWithControls(t *testing.T) {
	bot := &fakeBot{}
	tr := NewTransport(bot, zerolog.Nop())
	msg := domain.Outgoing{
		Kind:     domain.KindVideo,
		Media:    "BAACAgIAAxkBAAI",
		Text:     "caption",
		Controls: domain.Keyboard{domain.Row(domain.ActionControl("2-part", "part:1:7"))},
	}
	ref, err := tr.Send(context.Background(), domain.ChatRef{ID: 77}, msg)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if ref != (domain.MessageRef{ChatID: 77, MessageID: 1}) {
		t.Fatalf("unexpected ref %+v", ref)
	}
	video, ok := bot.sent[0].(tgbotapi.VideoConfig)
	if !ok {
		t.Fatalf("expected VideoConfig, got %T", bot.sent[0])
	}
	if video.Caption != "caption" {
		t.Fatalf("unexpected caption %q", video.Caption)
	}
	if _, ok := video.File.(tgbotapi.FileID); !ok {
		t.Fatalf("expected FileID, got %T", video.File)
	}
	markup, ok := video.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || *markup.InlineKeyboard[0][0].CallbackData != "part:1:7" {
		t.Fatalf("unexpected markup %#v", video.ReplyMarkup)
	}
}

func TestSendToChannelByUsername(t *testing.T) {
	bot := &fakeBot{}
	tr := NewTransport(bot, zerolog.Nop())
	msg := domain.Outgoing{
		Kind:     domain.KindPhoto,
		Media:    "https://example.com/p.jpg",
		Controls: domain.Keyboard{domain.Row(domain.LinkControl("✨Go✨", "https://t.me/bot"))},
	}
	if _, err := tr.Send(context.Background(), domain.ChatRef{Username: "@news"}, msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	photo := bot.sent[0].(tgbotapi.PhotoConfig)
	if photo.ChannelUsername != "@news" {
		t.Fatalf("unexpected channel %q", photo.ChannelUsername)
	}
	if _, ok := photo.File.(tgbotapi.FileURL); !ok {
		t.Fatalf("expected FileURL, got %T", photo.File)
	}
	markup := photo.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if *markup.InlineKeyboard[0][0].URL != "https://t.me/bot" {
		t.Fatalf("unexpected url button %#v", markup)
	}
}

func TestSendLongTextSplits(t *testing.T) {
	bot := &fakeBot{}
	tr := NewTransport(bot, zerolog.Nop())
	text := strings.Repeat("a", 4000) + "\n" + strings.Repeat("b", 200)
	msg := domain.Outgoing{Kind: domain.KindText, Text: text, Controls: domain.Keyboard{domain.Row(domain.ActionControl("ok", "check_sub"))}}
	if _, err := tr.Send(context.Background(), domain.ChatRef{ID: 1}, msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(bot.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(bot.sent))
	}
	if bot.sent[0].(tgbotapi.MessageConfig).ReplyMarkup == nil {
		t.Fatal("first part should carry controls")
	}
	if bot.sent[1].(tgbotapi.MessageConfig).ReplyMarkup != nil {
		t.Fatal("second part should not carry controls")
	}
}

func TestEditControlsWithEmptyKeyboardClearsMarkup(t *testing.T) {
	bot := &fakeBot{}
	tr := NewTransport(bot, zerolog.Nop())
	if err := tr.EditControls(context.Background(), domain.MessageRef{ChatID: 1, MessageID: 9}, nil); err != nil {
		t.Fatalf("edit: %v", err)
	}
	cfg := bot.requests[0].(tgbotapi.EditMessageReplyMarkupConfig)
	if cfg.ReplyMarkup == nil || cfg.ReplyMarkup.InlineKeyboard == nil || len(cfg.ReplyMarkup.InlineKeyboard) != 0 {
		t.Fatalf("expected empty non-nil keyboard, got %#v", cfg.ReplyMarkup)
	}
	if cfg.MessageID != 9 {
		t.Fatalf("unexpected message id %d", cfg.MessageID)
	}
}

func TestNotModifiedIsIgnored(t *testing.T) {
	bot := &fakeBot{err: errors.New("Bad Request: message is not modified")}
	tr := NewTransport(bot, zerolog.Nop())
	if err := tr.EditText(context.Background(), domain.MessageRef{ChatID: 1, MessageID: 2}, "x", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
