package gate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"tg-gate-bot/internal/domain"
	"tg-gate-bot/internal/infra/metrics"
)

// ChannelLister отдаёт текущий список обязательных каналов.
type ChannelLister interface {
	List() []domain.Channel
}

// MembershipChecker запрашивает статус пользователя в канале.
type MembershipChecker interface {
	Membership(ctx context.Context, channel domain.Channel, userID int64) (domain.MemberStatus, error)
}

// Service проверяет подписку на все обязательные каналы.
type Service struct {
	members  MembershipChecker
	channels ChannelLister
	admins   domain.AdminSet
	log      zerolog.Logger
}

// NewService создаёт проверку подписки.
func NewService(members MembershipChecker, channels ChannelLister, admins domain.AdminSet, log zerolog.Logger) *Service {
	return &Service{members: members, channels: channels, admins: admins, log: log}
}

// IsAdmin сообщает, входит ли пользователь в список администраторов.
func (s *Service) IsAdmin(userID int64) bool {
	return s.admins.Contains(userID)
}

// IsSatisfied возвращает true, только если пользователь подписан на каждый канал.
// Ошибка запроса считается отсутствием подписки и не прерывает проверку остальных каналов.
func (s *Service) IsSatisfied(ctx context.Context, userID int64, channels []domain.Channel) bool {
	ok := true
	for _, ch := range channels {
		status, err := s.members.Membership(ctx, ch, userID)
		if err != nil {
			metrics.GateCheckErrors.Inc()
			s.log.Error().Err(err).Int64("user", userID).Str("channel", ch.String()).Msg("не удалось проверить подписку")
			ok = false
			continue
		}
		if !status.Subscribed() {
			s.log.Debug().Int64("user", userID).Str("channel", ch.String()).Str("status", string(status)).Msg("нет подписки")
			ok = false
		}
	}
	return ok
}

// Allowed проверяет доступ к контенту. Администраторы проходят без проверки.
func (s *Service) Allowed(ctx context.Context, userID int64) bool {
	if s.IsAdmin(userID) {
		return true
	}
	if s.IsSatisfied(ctx, userID, s.channels.List()) {
		return true
	}
	metrics.GateDenials.Inc()
	return false
}

// SubscribePrompt — текст приглашения подписаться.
const SubscribePrompt = "Чтобы пользоваться ботом, подпишитесь на каналы ниже и нажмите «Проверить подписку»."

// SubscribeKeyboard строит кнопки-ссылки на каналы и кнопку повторной проверки.
func (s *Service) SubscribeKeyboard() domain.Keyboard {
	channels := s.channels.List()
	kb := make(domain.Keyboard, 0, len(channels)+1)
	for i, ch := range channels {
		kb = append(kb, domain.Row(domain.LinkControl(fmt.Sprintf("%d-канал", i+1), ch.JoinURL())))
	}
	kb = append(kb, domain.Row(domain.ActionControl("✅ Проверить подписку", domain.ActionCheckSubscription)))
	return kb
}
