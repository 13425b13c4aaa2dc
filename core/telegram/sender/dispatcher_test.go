package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func quickOptions() Options {
	return Options{QueueSize: 8, Shards: 2, MaxRetries: 2, RetryBackoff: time.Millisecond, MaxDuration: time.Second}
}

func TestStepsOfOneKeyRunInOrder(t *testing.T) {
	d := NewDispatcher(quickOptions())

	var (
		mu  sync.Mutex
		got []string
	)
	record := func(s string) Step {
		return Step{Action: s, Run: func() error {
			mu.Lock()
			got = append(got, s)
			mu.Unlock()
			return nil
		}}
	}

	require.NoError(t, d.Enqueue(context.Background(), 7, record("a1"), record("a2")))
	require.NoError(t, d.Enqueue(context.Background(), 7, record("b1")))
	require.NoError(t, d.Enqueue(context.Background(), 7, record("c1"), record("c2")))
	d.Close()

	assert.Equal(t, []string{"a1", "a2", "b1", "c1", "c2"}, got)
}

func TestFailedStepDoesNotStopJob(t *testing.T) {
	d := NewDispatcher(quickOptions())
	ran := false
	err := d.Enqueue(context.Background(), 1,
		Step{Action: "delete", Run: func() error { return &tele.Error{Code: 400, Description: "message can't be deleted"} }},
		Step{Action: "send", Run: func() error { ran = true; return nil }},
	)
	require.NoError(t, err)
	d.Close()

	assert.True(t, ran)
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestRetryableErrorIsRetried(t *testing.T) {
	d := NewDispatcher(quickOptions())
	defer d.Close()

	calls := 0
	err := d.RunSync(context.Background(), Step{Action: "send", Run: func() error {
		calls++
		if calls < 3 {
			return &tele.Error{Code: 502, Description: "bad gateway"}
		}
		return nil
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestClientErrorIsNotRetried(t *testing.T) {
	d := NewDispatcher(quickOptions())
	defer d.Close()

	calls := 0
	err := d.RunSync(context.Background(), Step{Action: "edit", Run: func() error {
		calls++
		return &tele.Error{Code: 400, Description: "message to edit not found"}
	}})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestEnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(quickOptions())
	d.Close()
	d.Close()
	err := d.Enqueue(context.Background(), 1, Step{Action: "send", Run: func() error { return nil }})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestEnqueueFullShard(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 1, Shards: 1, RetryBackoff: time.Millisecond})
	started := make(chan struct{})
	release := make(chan struct{})
	noop := Step{Action: "send", Run: func() error { return nil }}

	require.NoError(t, d.Enqueue(context.Background(), 1, Step{Action: "send", Run: func() error {
		close(started)
		<-release
		return nil
	}}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), 1, noop))
	assert.ErrorIs(t, d.Enqueue(context.Background(), 1, noop), ErrQueueFull)

	close(release)
	d.Close()
}

func TestEnqueueWaitQueuesBehindEarlierJobs(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 1, Shards: 1, RetryBackoff: time.Millisecond})
	started := make(chan struct{})
	release := make(chan struct{})

	var (
		mu  sync.Mutex
		got []string
	)
	record := func(s string) Step {
		return Step{Action: s, Run: func() error {
			mu.Lock()
			got = append(got, s)
			mu.Unlock()
			return nil
		}}
	}

	require.NoError(t, d.Enqueue(context.Background(), 1, Step{Action: "busy", Run: func() error {
		close(started)
		<-release
		return nil
	}}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), 1, record("queued")))

	done := make(chan error, 1)
	go func() { done <- d.EnqueueWait(context.Background(), 1, record("waited")) }()
	close(release)
	require.NoError(t, <-done)
	d.Close()

	assert.Equal(t, []string{"queued", "waited"}, got)
}

func TestEnqueueWaitStopsAtDeadline(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 1, Shards: 1, RetryBackoff: time.Millisecond})
	started := make(chan struct{})
	release := make(chan struct{})
	noop := Step{Action: "send", Run: func() error { return nil }}

	require.NoError(t, d.Enqueue(context.Background(), 1, Step{Action: "busy", Run: func() error {
		close(started)
		<-release
		return nil
	}}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), 1, noop))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.EnqueueWait(ctx, 1, noop), context.DeadlineExceeded)

	close(release)
	d.Close()
}

func TestEnqueueRejectsNilRun(t *testing.T) {
	d := NewDispatcher(quickOptions())
	defer d.Close()
	require.Error(t, d.Enqueue(context.Background(), 1, Step{Action: "send"}))
	require.NoError(t, d.Enqueue(context.Background(), 1))
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "timeout"},
		{&net.DNSError{Err: "no such host", Name: "api.telegram.org"}, "dns"},
		{&net.OpError{Op: "dial", Err: errors.New("refused")}, "dial"},
		{&tele.Error{Code: 502}, "http_5xx"},
		{&tele.Error{Code: 403}, "http_4xx"},
		{errors.New("telegram: bad request (400)"), "http_4xx"},
		{errors.New("boom"), "unknown"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyError(tc.err), tc.err.Error())
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_cc/sendMessage": timeout`)
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout`, sanitizeErrorMessage(err))
}
