package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-gate-bot/internal/domain"
	"tg-gate-bot/internal/usecase/delivery"
	"tg-gate-bot/internal/usecase/gate"
	"tg-gate-bot/internal/usecase/users"
	"tg-gate-bot/internal/usecase/workflow"
)

// Messenger — транспорт с ответом на нажатие кнопки.
type Messenger interface {
	domain.Transport
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

var numberRegex = regexp.MustCompile(`^\d+$`)

const (
	msgWelcome      = "👋 Добро пожаловать! Отправьте номер тайтла, чтобы получить видео."
	msgAskNumber    = "Отправьте номер тайтла цифрами, например 12."
	msgSubscribed   = "✅ Спасибо за подписку! Теперь отправьте номер тайтла."
	msgNotSubscribe = "❌ Вы подписались не на все каналы."
	msgStaleButton  = "Кнопка устарела."
	msgAdminOnly    = "⛔ Только для администраторов."
)

// Handler разбирает апдейты Telegram и передаёт их сервисам.
type Handler struct {
	bot      Messenger
	log      zerolog.Logger
	gate     *gate.Service
	users    *users.Service
	delivery *delivery.Service
	engine   *workflow.Engine
	notifyID int64
}

// NewHandler создаёт обработчик. notifyID — чат для уведомлений о новых пользователях, 0 отключает их.
func NewHandler(bot Messenger, log zerolog.Logger, gateUC *gate.Service, usersUC *users.Service, deliveryUC *delivery.Service, engine *workflow.Engine, notifyID int64) *Handler {
	return &Handler{
		bot:      bot,
		log:      log,
		gate:     gateUC,
		users:    usersUC,
		delivery: deliveryUC,
		engine:   engine,
		notifyID: notifyID,
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		h.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		h.handleCallback(ctx, upd.CallbackQuery)
	case upd.ChannelPost != nil:
		h.handleChannelPost(ctx, upd.ChannelPost)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	actor := workflow.Actor{UserID: msg.From.ID, ChatID: msg.Chat.ID}
	text := strings.TrimSpace(msg.Text)

	switch {
	case strings.HasPrefix(text, "/start"):
		h.handleStart(ctx, msg)
		return
	case strings.HasPrefix(text, "/cancel"):
		h.logErr(h.engine.Cancel(ctx, actor), actor.UserID, "cancel")
		return
	}

	input := workflow.Input{Text: text, Media: mediaOf(msg)}
	if input.Media != nil {
		input.Text = strings.TrimSpace(msg.Caption)
	}
	handled, err := h.engine.Handle(ctx, actor, input)
	h.logErr(err, actor.UserID, "workflow")
	if handled {
		return
	}

	if numberRegex.MatchString(text) {
		viewer := delivery.Viewer{UserID: actor.UserID, ChatID: actor.ChatID}
		h.logErr(h.delivery.Request(ctx, viewer, text), actor.UserID, "request")
		return
	}
	if h.gate.IsAdmin(actor.UserID) {
		h.send(ctx, actor.ChatID, domain.Outgoing{Kind: domain.KindText, Text: workflow.MenuText, Controls: workflow.Menu()})
		return
	}
	h.send(ctx, actor.ChatID, domain.Outgoing{Kind: domain.KindText, Text: msgAskNumber})
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	user := domain.User{
		ID:        msg.From.ID,
		FirstName: msg.From.FirstName,
		Username:  msg.From.UserName,
		JoinedAt:  domain.Timestamp{Time: msg.Time().UTC()},
	}
	created, err := h.users.Register(ctx, user)
	h.logErr(err, user.ID, "register")
	if created {
		h.log.Info().Int64("user", user.ID).Msg("новый пользователь")
		if h.notifyID != 0 {
			h.send(ctx, h.notifyID, domain.Outgoing{Kind: domain.KindText, Text: users.JoinNotice(user, h.users.Count())})
		}
	}

	switch {
	case h.gate.IsAdmin(user.ID):
		h.send(ctx, msg.Chat.ID, domain.Outgoing{Kind: domain.KindText, Text: workflow.MenuText, Controls: workflow.Menu()})
	case h.gate.Allowed(ctx, user.ID):
		h.send(ctx, msg.Chat.ID, domain.Outgoing{Kind: domain.KindText, Text: msgWelcome})
	default:
		h.send(ctx, msg.Chat.ID, domain.Outgoing{Kind: domain.KindText, Text: gate.SubscribePrompt, Controls: h.gate.SubscribeKeyboard()})
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		h.answer(ctx, cb.ID, "")
		return
	}
	actor := workflow.Actor{UserID: cb.From.ID, ChatID: cb.Message.Chat.ID}
	origin := domain.MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.MessageID}
	viewer := delivery.Viewer{UserID: actor.UserID, ChatID: actor.ChatID}
	data := cb.Data
	answer := ""

	if flow, ok := domain.ParseFlow(data); ok {
		h.logErr(h.engine.Start(ctx, actor, flow), actor.UserID, "start_flow")
		h.answer(ctx, cb.ID, answer)
		return
	}
	if number, index, ok := domain.ParsePartAction(data); ok {
		h.logErr(h.delivery.SelectPart(ctx, viewer, number, index), actor.UserID, "select_part")
		h.answer(ctx, cb.ID, answer)
		return
	}
	if number, dir, ok := domain.ParsePageAction(data); ok {
		h.logErr(h.delivery.Navigate(ctx, viewer, number, dir, origin), actor.UserID, "navigate")
		h.answer(ctx, cb.ID, answer)
		return
	}

	switch data {
	case domain.ActionCheckSubscription:
		if h.gate.Allowed(ctx, actor.UserID) {
			if err := h.bot.EditText(ctx, origin, msgSubscribed, nil); err != nil {
				h.log.Warn().Err(err).Int64("user", actor.UserID).Msg("не удалось обновить приглашение")
				h.send(ctx, actor.ChatID, domain.Outgoing{Kind: domain.KindText, Text: msgSubscribed})
			}
		} else {
			answer = msgNotSubscribe
		}
	case domain.ActionUserCount:
		if !h.gate.IsAdmin(actor.UserID) {
			answer = msgAdminOnly
			break
		}
		h.send(ctx, actor.ChatID, domain.Outgoing{Kind: domain.KindText, Text: fmt.Sprintf("👥 Пользователей в боте: %d", h.users.Count())})
	default:
		handled, err := h.engine.Handle(ctx, actor, workflow.Input{Action: data})
		h.logErr(err, actor.UserID, "workflow")
		if !handled {
			answer = msgStaleButton
		}
	}
	h.answer(ctx, cb.ID, answer)
}

// handleChannelPost отвечает в канал его идентификатором: так админ узнаёт id приватного канала.
func (h *Handler) handleChannelPost(ctx context.Context, post *tgbotapi.Message) {
	if post.Chat == nil {
		return
	}
	h.log.Info().Int64("chat", post.Chat.ID).Str("title", post.Chat.Title).Msg("сообщение в канале")
	h.send(ctx, post.Chat.ID, domain.Outgoing{Kind: domain.KindText, Text: fmt.Sprintf("ID этого канала: %d", post.Chat.ID)})
}

func mediaOf(msg *tgbotapi.Message) *workflow.Media {
	switch {
	case len(msg.Photo) > 0:
		return &workflow.Media{Kind: domain.KindPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID}
	case msg.Video != nil:
		return &workflow.Media{Kind: domain.KindVideo, FileID: msg.Video.FileID}
	default:
		return nil
	}
}

func (h *Handler) send(ctx context.Context, chatID int64, msg domain.Outgoing) {
	if _, err := h.bot.Send(ctx, domain.ChatRef{ID: chatID}, msg); err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить сообщение")
	}
}

func (h *Handler) answer(ctx context.Context, callbackID, text string) {
	if err := h.bot.AnswerCallback(ctx, callbackID, text); err != nil {
		h.log.Warn().Err(err).Msg("не удалось ответить на callback")
	}
}

func (h *Handler) logErr(err error, userID int64, op string) {
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Str("op", op).Msg("ошибка обработки")
	}
}

// UpdateTimeout — лимит на обработку одного апдейта.
const UpdateTimeout = 30 * time.Second
