package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"blogpp/notify"
	"blogpp/testutil"
)

type panicSender struct{}

func (panicSender) Send(context.Context, string, string, string) error { panic("boom") }

type slowSender struct{ err chan error }

func (s slowSender) Send(ctx context.Context, _, _, _ string) error {
	<-ctx.Done()
	s.err <- ctx.Err()
	return ctx.Err()
}

func TestQueue_InlineDelivery(t *testing.T) {
	sender := &testutil.RecordingSender{}
	q := notify.NewQueue(sender, notify.QueueOpts{}, nil)

	assert.True(t, q.Enqueue(notify.Job{Kind: "test", To: "a@example.com", Subject: "s", Body: "b"}))

	sent := sender.Sent()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "a@example.com", sent[0].To)
		assert.Equal(t, "s", sent[0].Subject)
	}
}

func TestQueue_DropsWhenFull(t *testing.T) {
	sender := &testutil.RecordingSender{}
	q := notify.NewQueue(sender, notify.QueueOpts{Workers: 1, Size: 1}, nil)

	assert.True(t, q.Enqueue(notify.Job{To: "first@example.com"}))
	assert.False(t, q.Enqueue(notify.Job{To: "second@example.com"}))

	q.Start()
	q.Close()

	assert.Len(t, sender.SentTo("first@example.com"), 1)
	assert.Empty(t, sender.SentTo("second@example.com"))
}

func TestQueue_CloseDrains(t *testing.T) {
	sender := &testutil.RecordingSender{}
	q := notify.NewQueue(sender, notify.QueueOpts{Workers: 2, Size: 10}, nil)
	q.Start()

	for range 5 {
		q.Enqueue(notify.Job{To: "a@example.com"})
	}
	q.Close()

	assert.Len(t, sender.Sent(), 5)
	assert.False(t, q.Enqueue(notify.Job{To: "late@example.com"}))

	// a second Close is a no-op
	q.Close()
}

func TestQueue_RecoversPanics(t *testing.T) {
	q := notify.NewQueue(panicSender{}, notify.QueueOpts{}, nil)

	assert.NotPanics(t, func() {
		q.Enqueue(notify.Job{To: "a@example.com"})
	})
}

func TestQueue_SendTimeout(t *testing.T) {
	sender := slowSender{err: make(chan error, 1)}
	q := notify.NewQueue(sender, notify.QueueOpts{Timeout: 20 * time.Millisecond}, nil)

	start := time.Now()
	assert.True(t, q.Enqueue(notify.Job{To: "a@example.com"}))

	assert.ErrorIs(t, <-sender.err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestQueue_SendErrorIsSwallowed(t *testing.T) {
	sender := &testutil.RecordingSender{Err: assert.AnError}
	q := notify.NewQueue(sender, notify.QueueOpts{}, nil)

	assert.True(t, q.Enqueue(notify.Job{To: "a@example.com"}))
	assert.Len(t, sender.Sent(), 1)
}
