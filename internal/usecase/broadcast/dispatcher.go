package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tg-gate-bot/internal/domain"
	"tg-gate-bot/internal/infra/metrics"
)

// Recipients отдаёт идентификаторы всех известных пользователей.
type Recipients interface {
	IDs() []int64
}

// Sender отправляет одно сообщение.
type Sender interface {
	Send(ctx context.Context, chat domain.ChatRef, msg domain.Outgoing) (domain.MessageRef, error)
}

// Report — итог рассылки.
type Report struct {
	Succeeded int
	Failed    int
}

// Text возвращает отчёт для администратора.
func (r Report) Text() string {
	return fmt.Sprintf("📨 Рассылка завершена.\n✅ Доставлено: %d\n❌ Не доставлено: %d", r.Succeeded, r.Failed)
}

// Dispatcher рассылает сообщение всем пользователям с ограничением скорости.
type Dispatcher struct {
	sender     Sender
	recipients Recipients
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewDispatcher создаёт рассылку. rps <= 0 отключает ограничение.
func NewDispatcher(sender Sender, recipients Recipients, rps float64, log zerolog.Logger) *Dispatcher {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Dispatcher{sender: sender, recipients: recipients, limiter: rate.NewLimiter(limit, 1), log: log}
}

// Dispatch отправляет text каждому пользователю по одному разу. Ошибка отдельной отправки
// учитывается в отчёте и не прерывает рассылку; повторов нет.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) Report {
	start := time.Now()
	var report Report
	for _, id := range d.recipients.IDs() {
		if err := d.limiter.Wait(ctx); err != nil {
			d.log.Warn().Err(err).Msg("ожидание лимита прервано")
			report.Failed++
			metrics.IncBroadcast(err)
			continue
		}
		_, err := d.sender.Send(ctx, domain.ChatRef{ID: id}, domain.Outgoing{Kind: domain.KindText, Text: text})
		metrics.IncBroadcast(err)
		if err != nil {
			report.Failed++
			d.log.Debug().Err(err).Int64("user", id).Msg("рассылка не доставлена")
			continue
		}
		report.Succeeded++
	}
	metrics.BroadcastDuration.Observe(time.Since(start).Seconds())
	return report
}

// NewJob создаёт задачу рассылки от администратора.
func NewJob(adminID, chatID int64, text string) domain.BroadcastJob {
	return domain.BroadcastJob{
		ID:          uuid.NewString(),
		AdminID:     adminID,
		ChatID:      chatID,
		Text:        text,
		RequestedAt: time.Now().UTC(),
	}
}
