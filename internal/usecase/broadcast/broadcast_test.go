package broadcast

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-gate-bot/internal/infra/queue"
	"tg-gate-bot/internal/testutil"
)

type staticRecipients []int64

func (s staticRecipients) IDs() []int64 { return s }

func TestDispatchCountsPartialFailure(t *testing.T) {
	transport := testutil.NewFakeTransport()
	transport.FailChats[2] = true
	d := NewDispatcher(transport, staticRecipients{1, 2, 3}, 0, zerolog.Nop())

	report := d.Dispatch(context.Background(), "привет")

	assert.Equal(t, Report{Succeeded: 2, Failed: 1}, report)
	assert.Len(t, transport.Sent, 2)
	assert.Contains(t, report.Text(), "Доставлено: 2")
	assert.Contains(t, report.Text(), "Не доставлено: 1")
}

func TestDispatchWithNoUsers(t *testing.T) {
	d := NewDispatcher(testutil.NewFakeTransport(), staticRecipients{}, 10, zerolog.Nop())
	assert.Equal(t, Report{}, d.Dispatch(context.Background(), "x"))
}

func TestDispatchThrottles(t *testing.T) {
	transport := testutil.NewFakeTransport()
	d := NewDispatcher(transport, staticRecipients{1, 2, 3}, 50, zerolog.Nop())

	start := time.Now()
	d.Dispatch(context.Background(), "x")
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestWorkerReportsToAdmin(t *testing.T) {
	transport := testutil.NewFakeTransport()
	q := queue.NewMemoryBroadcastQueue(4)
	d := NewDispatcher(transport, staticRecipients{10, 11}, 0, zerolog.Nop())
	w := NewWorker(q, d, transport, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Enqueue(ctx, NewJob(1, 500, "новости")))

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(transport.SentTo(500)) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	report := transport.SentTo(500)[0]
	assert.True(t, strings.Contains(report.Msg.Text, "Доставлено: 2"))
	assert.Len(t, transport.SentTo(10), 1)
	assert.Len(t, transport.SentTo(11), 1)
}

func TestNewJobHasID(t *testing.T) {
	a := NewJob(1, 1, "x")
	b := NewJob(1, 1, "x")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
