package broadcast

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"tg-gate-bot/internal/domain"
)

// Worker забирает задачи из очереди и отправляет администратору отчёт.
type Worker struct {
	log        zerolog.Logger
	queue      domain.BroadcastQueue
	dispatcher *Dispatcher
	sender     Sender
	retryDelay time.Duration
}

// NewWorker создаёт обработчик очереди рассылок.
func NewWorker(queue domain.BroadcastQueue, dispatcher *Dispatcher, sender Sender, log zerolog.Logger) *Worker {
	return &Worker{log: log, queue: queue, dispatcher: dispatcher, sender: sender, retryDelay: time.Second}
}

// Run обрабатывает задачи до отмены контекста.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, err := w.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			w.log.Error().Err(err).Msg("broadcast: ошибка чтения очереди")
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.retryDelay):
			}
			continue
		}
		w.Handle(ctx, job)
	}
}

// Handle выполняет одну задачу.
func (w *Worker) Handle(ctx context.Context, job domain.BroadcastJob) Report {
	jobLog := w.log.With().Str("job_id", job.ID).Int64("admin", job.AdminID).Logger()
	if job.Text == "" {
		jobLog.Error().Msg("broadcast: задача без текста, пропускаем")
		return Report{}
	}

	jobLog.Info().Msg("broadcast: рассылка начата")
	report := w.dispatcher.Dispatch(ctx, job.Text)
	jobLog.Info().Int("succeeded", report.Succeeded).Int("failed", report.Failed).Msg("broadcast: рассылка завершена")

	chatID := job.ChatID
	if chatID == 0 {
		chatID = job.AdminID
	}
	if _, err := w.sender.Send(ctx, domain.ChatRef{ID: chatID}, domain.Outgoing{Kind: domain.KindText, Text: report.Text()}); err != nil {
		jobLog.Error().Err(err).Msg("broadcast: не удалось отправить отчёт")
	}
	return report
}
