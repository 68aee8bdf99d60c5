package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tg-gate-bot/internal/domain"
	"tg-gate-bot/internal/infra/metrics"
	"tg-gate-bot/internal/usecase/catalog"
	"tg-gate-bot/internal/usecase/gate"
)

// Viewer — пользователь, запросивший контент, и чат, куда отвечать.
type Viewer struct {
	UserID int64
	ChatID int64
}

func (v Viewer) chat() domain.ChatRef {
	return domain.ChatRef{ID: v.ChatID}
}

const (
	msgNotFound   = "❌ Тайтл с номером %s не найден."
	msgNoParts    = "⏳ Серии этого тайтла ещё не добавлены."
	msgNoPart     = "❌ Такой серии нет."
	msgSendFailed = "⚠️ Не удалось отправить видео, попробуйте позже."
)

// Service выдаёт тайтлы после проверки подписки и листает серии.
type Service struct {
	gate      *gate.Service
	catalog   *catalog.Service
	sessions  domain.SessionStore
	transport domain.Transport
	pageSize  int
	log       zerolog.Logger
}

// NewService создаёт сервис выдачи.
func NewService(g *gate.Service, c *catalog.Service, sessions domain.SessionStore, transport domain.Transport, pageSize int, log zerolog.Logger) *Service {
	if pageSize <= 0 {
		pageSize = catalog.DefaultPageSize
	}
	return &Service{gate: g, catalog: c, sessions: sessions, transport: transport, pageSize: pageSize, log: log}
}

// Request обрабатывает номер тайтла, присланный пользователем.
func (s *Service) Request(ctx context.Context, v Viewer, number string) error {
	if !s.gate.Allowed(ctx, v.UserID) {
		return s.promptSubscribe(ctx, v)
	}
	item, ok, err := s.resolve(ctx, v, number)
	if !ok {
		return err
	}
	if item.IsPaginated() && len(item.PartData) == 0 {
		return s.reply(ctx, v, msgNoParts)
	}
	var previous domain.MessageRef
	if state := s.state(ctx, v.UserID); state != nil {
		previous = state.Controls
	}
	if !item.IsPaginated() {
		return s.deliverSimple(ctx, v, item, previous)
	}
	return s.deliverPart(ctx, v, item, 0, 0, previous)
}

// SelectPart отправляет выбранную серию и переносит кнопки на новое сообщение.
func (s *Service) SelectPart(ctx context.Context, v Viewer, number string, index int) error {
	if !s.gate.Allowed(ctx, v.UserID) {
		return s.promptSubscribe(ctx, v)
	}
	item, ok, err := s.resolve(ctx, v, number)
	if !ok {
		return err
	}
	if index < 0 || index >= len(item.PartData) {
		return s.reply(ctx, v, msgNoPart)
	}

	page := catalog.PageOf(index, s.pageSize)
	var previous domain.MessageRef
	if state := s.state(ctx, v.UserID); state != nil {
		previous = state.Controls
		if state.Number == number {
			page = state.Page
		}
	}
	return s.deliverPart(ctx, v, item, index, page, previous)
}

// Navigate перелистывает страницу кнопок серий в том же сообщении.
func (s *Service) Navigate(ctx context.Context, v Viewer, number string, dir domain.Direction, origin domain.MessageRef) error {
	item, ok, err := s.resolve(ctx, v, number)
	if !ok {
		return err
	}
	selected, page, ref := 0, 0, origin
	if state := s.state(ctx, v.UserID); state != nil {
		stale := state.Number != number ||
			(!origin.IsZero() && !state.Controls.IsZero() && origin != state.Controls)
		if stale {
			// Кнопки на старом сообщении больше не ведут текущую выдачу.
			s.retract(ctx, v, origin)
			return nil
		}
		selected, page = state.Selected, state.Page
		if !state.Controls.IsZero() {
			ref = state.Controls
		}
	}
	next := catalog.ClampPage(page+int(dir), len(item.PartData), s.pageSize)
	if next == page || ref.IsZero() {
		return nil
	}
	window := catalog.Window(item.PartData, next, s.pageSize, selected)
	if err := s.transport.EditControls(ctx, ref, window.Keyboard(number)); err != nil {
		s.log.Error().Err(err).Int64("user", v.UserID).Str("item", number).Int("page", next).Msg("не удалось перелистнуть серии")
		return fmt.Errorf("листание %s: %w", number, err)
	}
	s.saveState(ctx, v.UserID, domain.Delivery{Number: number, Page: next, Selected: selected, Controls: ref})
	return nil
}

func (s *Service) deliverSimple(ctx context.Context, v Viewer, item domain.Item, previous domain.MessageRef) error {
	s.retract(ctx, v, previous)

	views, reserved := s.reserveView(item)
	msg := domain.Outgoing{Kind: domain.KindVideo, Media: item.VideoURL, Text: Caption(item, "", views)}
	if _, err := s.transport.Send(ctx, v.chat(), msg); err != nil {
		s.settleView(ctx, item.Number, reserved, false, false)
		return s.sendFailed(ctx, v, item.Number, err)
	}
	s.settleView(ctx, item.Number, reserved, true, false)
	if !previous.IsZero() {
		s.clearState(ctx, v.UserID)
	}
	return nil
}

// deliverPart отправляет серию index с окном кнопок страницы page. previous — сообщение,
// с которого нужно снять кнопки.
func (s *Service) deliverPart(ctx context.Context, v Viewer, item domain.Item, index, page int, previous domain.MessageRef) error {
	s.retract(ctx, v, previous)

	window := catalog.Window(item.PartData, page, s.pageSize, index)
	part := item.PartData[index]
	views, reserved := s.reserveView(item)
	msg := domain.Outgoing{
		Kind:     domain.KindVideo,
		Media:    part.URL,
		Text:     Caption(item, part.Name, views),
		Controls: window.Keyboard(item.Number),
	}
	ref, err := s.transport.Send(ctx, v.chat(), msg)
	if err != nil {
		s.settleView(ctx, item.Number, reserved, false, true)
		if !previous.IsZero() {
			s.clearState(ctx, v.UserID)
		}
		return s.sendFailed(ctx, v, item.Number, err)
	}
	s.settleView(ctx, item.Number, reserved, true, true)

	if window.Total <= 1 && len(window.Parts) == 0 {
		ref = domain.MessageRef{}
	}
	s.saveState(ctx, v.UserID, domain.Delivery{Number: item.Number, Page: window.Index, Selected: index, Controls: ref})
	return nil
}

// reserveView занимает номер просмотра до отправки, чтобы параллельные выдачи
// получили разные подписи.
func (s *Service) reserveView(item domain.Item) (int, bool) {
	views, err := s.catalog.ReserveView(item.Number)
	if err != nil {
		s.log.Warn().Err(err).Str("item", item.Number).Msg("просмотр не учтён")
		return item.Views + 1, false
	}
	return views, true
}

func (s *Service) settleView(ctx context.Context, number string, reserved, delivered, paginated bool) {
	if !reserved {
		return
	}
	if !delivered {
		s.catalog.CancelView(ctx, number)
		return
	}
	s.catalog.CommitView(ctx)
	metrics.IncDelivery(paginated)
}

// retract снимает кнопки с сообщения. Ошибка не прерывает выдачу.
func (s *Service) retract(ctx context.Context, v Viewer, ref domain.MessageRef) {
	if ref.IsZero() {
		return
	}
	if err := s.transport.EditControls(ctx, ref, nil); err != nil {
		s.log.Warn().Err(err).Int64("user", v.UserID).Int("message", ref.MessageID).Msg("не удалось снять кнопки")
	}
}

func (s *Service) resolve(ctx context.Context, v Viewer, number string) (domain.Item, bool, error) {
	item, err := s.catalog.Resolve(number)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Item{}, false, s.reply(ctx, v, fmt.Sprintf(msgNotFound, number))
	}
	if err != nil {
		return domain.Item{}, false, err
	}
	return item, true, nil
}

func (s *Service) promptSubscribe(ctx context.Context, v Viewer) error {
	_, err := s.transport.Send(ctx, v.chat(), domain.Outgoing{
		Kind:     domain.KindText,
		Text:     gate.SubscribePrompt,
		Controls: s.gate.SubscribeKeyboard(),
	})
	if err != nil {
		metrics.BotSendErrors.Inc()
		return fmt.Errorf("приглашение подписаться: %w", err)
	}
	return nil
}

func (s *Service) sendFailed(ctx context.Context, v Viewer, number string, err error) error {
	metrics.BotSendErrors.Inc()
	s.log.Error().Err(err).Int64("user", v.UserID).Str("item", number).Msg("не удалось отправить видео")
	_ = s.reply(ctx, v, msgSendFailed)
	return fmt.Errorf("выдача %s: %w", number, err)
}

func (s *Service) reply(ctx context.Context, v Viewer, text string) error {
	if _, err := s.transport.Send(ctx, v.chat(), domain.Outgoing{Kind: domain.KindText, Text: text}); err != nil {
		metrics.BotSendErrors.Inc()
		return fmt.Errorf("ответ пользователю: %w", err)
	}
	return nil
}

func (s *Service) state(ctx context.Context, userID int64) *domain.Delivery {
	sess, ok, err := s.sessions.Get(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Int64("user", userID).Msg("не удалось прочитать сессию")
		return nil
	}
	if !ok {
		return nil
	}
	return sess.Delivery
}

func (s *Service) saveState(ctx context.Context, userID int64, d domain.Delivery) {
	sess, _, err := s.sessions.Get(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Int64("user", userID).Msg("не удалось прочитать сессию")
	}
	sess.UserID = userID
	sess.Delivery = &d
	sess.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Put(ctx, sess); err != nil {
		s.log.Warn().Err(err).Int64("user", userID).Msg("не удалось сохранить сессию")
	}
}

func (s *Service) clearState(ctx context.Context, userID int64) {
	sess, ok, err := s.sessions.Get(ctx, userID)
	if err != nil || !ok || sess.Delivery == nil {
		return
	}
	sess.Delivery = nil
	if err := s.sessions.Put(ctx, sess); err != nil {
		s.log.Warn().Err(err).Int64("user", userID).Msg("не удалось сохранить сессию")
	}
}

// Caption — подпись к видео. part пустой для простого тайтла.
func Caption(item domain.Item, part string, views int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎬 %s", item.Title)
	if part != "" {
		fmt.Fprintf(&b, "\n📺 %s", part)
	}
	fmt.Fprintf(&b, "\n👁 Просмотры: %d", views)
	return b.String()
}
