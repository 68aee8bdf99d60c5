package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-gate-bot/internal/domain"
	"tg-gate-bot/internal/infra/metrics"
)

// BotAPI — часть *tgbotapi.BotAPI, которой пользуется транспорт.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Transport реализует domain.Transport поверх Bot API.
type Transport struct {
	bot BotAPI
	log zerolog.Logger
}

var _ domain.Transport = (*Transport)(nil)

// NewTransport создаёт транспорт.
func NewTransport(bot BotAPI, log zerolog.Logger) *Transport {
	return &Transport{bot: bot, log: log}
}

// Membership возвращает статус пользователя в канале.
func (t *Transport) Membership(_ context.Context, channel domain.Channel, userID int64) (domain.MemberStatus, error) {
	cfg := tgbotapi.GetChatMemberConfig{ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: userID}}
	if channel.IsPublic() {
		cfg.SuperGroupUsername = channel.Handle
	} else {
		cfg.ChatID = channel.ID
	}
	start := time.Now()
	member, err := t.bot.GetChatMember(cfg)
	metrics.ObserveNetworkRequest("telegram_bot", "get_chat_member", channel.String(), start, err)
	if err != nil {
		return "", fmt.Errorf("статус в %s: %w: %v", channel, domain.ErrTransport, err)
	}
	return memberStatus(member.Status), nil
}

func memberStatus(status string) domain.MemberStatus {
	if status == "creator" {
		return domain.MemberStatusOwner
	}
	return domain.MemberStatus(status)
}

// Send отправляет сообщение. Длинный текст режется на части, кнопки получает первая часть,
// и ссылка возвращается на неё.
func (t *Transport) Send(_ context.Context, chat domain.ChatRef, msg domain.Outgoing) (domain.MessageRef, error) {
	configs, err := buildChattables(chat, msg)
	if err != nil {
		return domain.MessageRef{}, err
	}
	var ref domain.MessageRef
	for i, cfg := range configs {
		start := time.Now()
		sent, err := t.bot.Send(cfg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_"+string(msg.Kind), chatTarget(chat), start, err)
		if err != nil {
			return ref, fmt.Errorf("отправка в %s: %w: %v", chatTarget(chat), domain.ErrTransport, err)
		}
		if i == 0 {
			ref = domain.MessageRef{MessageID: sent.MessageID}
			if sent.Chat != nil {
				ref.ChatID = sent.Chat.ID
			} else {
				ref.ChatID = chat.ID
			}
		}
	}
	return ref, nil
}

// EditControls заменяет кнопки под сообщением. Пустой набор снимает их.
func (t *Transport) EditControls(_ context.Context, ref domain.MessageRef, controls domain.Keyboard) error {
	cfg := tgbotapi.NewEditMessageReplyMarkup(ref.ChatID, ref.MessageID, Markup(controls))
	return t.request(cfg, "edit_markup", ref)
}

// EditText заменяет текст и кнопки сообщения.
func (t *Transport) EditText(_ context.Context, ref domain.MessageRef, text string, controls domain.Keyboard) error {
	cfg := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	if !controls.Empty() {
		markup := Markup(controls)
		cfg.ReplyMarkup = &markup
	}
	return t.request(cfg, "edit_text", ref)
}

// AnswerCallback закрывает «часики» на нажатой кнопке.
func (t *Transport) AnswerCallback(_ context.Context, callbackID, text string) error {
	start := time.Now()
	_, err := t.bot.Request(tgbotapi.NewCallback(callbackID, text))
	metrics.ObserveNetworkRequest("telegram_bot", "answer_callback", "", start, err)
	if err != nil {
		return fmt.Errorf("ответ на callback: %w: %v", domain.ErrTransport, err)
	}
	return nil
}

func (t *Transport) request(cfg tgbotapi.Chattable, operation string, ref domain.MessageRef) error {
	start := time.Now()
	_, err := t.bot.Request(cfg)
	metrics.ObserveNetworkRequest("telegram_bot", operation, strconv.FormatInt(ref.ChatID, 10), start, err)
	if err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("%s %d/%d: %w: %v", operation, ref.ChatID, ref.MessageID, domain.ErrTransport, err)
	}
	return nil
}

// Markup переводит кнопки в inline-клавиатуру. Пустой набор даёт пустую клавиатуру, а не nil,
// чтобы Telegram убрал кнопки.
func Markup(controls domain.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(controls))
	for _, row := range controls {
		if len(row) == 0 {
			continue
		}
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, c := range row {
			if c.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(c.Label, c.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Action))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// fileData различает ссылку и file_id, полученный от Telegram.
func fileData(locator string) tgbotapi.RequestFileData {
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return tgbotapi.FileURL(locator)
	}
	return tgbotapi.FileID(locator)
}

func buildChattables(chat domain.ChatRef, msg domain.Outgoing) ([]tgbotapi.Chattable, error) {
	var markup any
	if !msg.Controls.Empty() {
		markup = Markup(msg.Controls)
	}
	switch msg.Kind {
	case domain.KindText, "":
		parts := SplitMessage(msg.Text)
		if len(parts) == 0 {
			return nil, fmt.Errorf("пустое сообщение: %w", domain.ErrValidation)
		}
		out := make([]tgbotapi.Chattable, 0, len(parts))
		for i, part := range parts {
			cfg := tgbotapi.NewMessage(chat.ID, part)
			cfg.ChannelUsername = chat.Username
			if i == 0 && markup != nil {
				cfg.ReplyMarkup = markup
			}
			out = append(out, cfg)
		}
		return out, nil
	case domain.KindPhoto:
		cfg := tgbotapi.NewPhoto(chat.ID, fileData(msg.Media))
		cfg.ChannelUsername = chat.Username
		cfg.Caption = TrimCaption(msg.Text)
		cfg.ReplyMarkup = markup
		return []tgbotapi.Chattable{cfg}, nil
	case domain.KindVideo:
		cfg := tgbotapi.NewVideo(chat.ID, fileData(msg.Media))
		cfg.ChannelUsername = chat.Username
		cfg.Caption = TrimCaption(msg.Text)
		cfg.ReplyMarkup = markup
		return []tgbotapi.Chattable{cfg}, nil
	default:
		return nil, fmt.Errorf("тип сообщения %q: %w", msg.Kind, domain.ErrValidation)
	}
}

func chatTarget(chat domain.ChatRef) string {
	if chat.Username != "" {
		return chat.Username
	}
	return strconv.FormatInt(chat.ID, 10)
}
