package queue

import (
	"context"
	"errors"

	"tg-gate-bot/internal/domain"
)

// ErrQueueFull возвращается, когда буфер очереди заполнен.
var ErrQueueFull = errors.New("очередь рассылок переполнена")

// MemoryBroadcastQueue — очередь в памяти процесса для запуска без Redis.
type MemoryBroadcastQueue struct {
	jobs chan domain.BroadcastJob
}

// NewMemoryBroadcastQueue создаёт очередь с буфером size.
func NewMemoryBroadcastQueue(size int) *MemoryBroadcastQueue {
	if size <= 0 {
		size = 16
	}
	return &MemoryBroadcastQueue{jobs: make(chan domain.BroadcastJob, size)}
}

// Enqueue кладёт задачу в буфер, не блокируясь.
func (q *MemoryBroadcastQueue) Enqueue(ctx context.Context, job domain.BroadcastJob) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pop ждёт задачу или отмену контекста.
func (q *MemoryBroadcastQueue) Pop(ctx context.Context) (domain.BroadcastJob, error) {
	select {
	case <-ctx.Done():
		return domain.BroadcastJob{}, ctx.Err()
	case job := <-q.jobs:
		return job, nil
	}
}
