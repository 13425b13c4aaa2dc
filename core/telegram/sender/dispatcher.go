package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/formbot/core/logger"
	"github.com/m3rciful/formbot/core/metrics"
	"github.com/m3rciful/formbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

const component = "tg.sender"

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the shard queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is the buffer of each shard.
	QueueSize int
	// Shards is the number of ordered workers; jobs with the same key share one.
	Shards       int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single step.
	MaxDuration time.Duration
}

// Step is one Bot API call. Run must be safe to repeat if retries are enabled.
type Step struct {
	Action   string
	Endpoint string
	Run      func() error
}

type job struct {
	ctx   context.Context
	key   int64
	steps []Step
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
// Steps of a job run in order, and jobs with the same key run in the order
// they were enqueued.
type Dispatcher struct {
	opts   Options
	shards []chan job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	errs   atomic.Uint64
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Shards <= 0 {
		opts.Shards = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{
		opts:   opts,
		shards: make([]chan job, opts.Shards),
	}
	d.wg.Add(opts.Shards)
	for i := range d.shards {
		d.shards[i] = make(chan job, opts.QueueSize)
		go d.worker(d.shards[i])
	}
	return d
}

// Enqueue schedules steps for asynchronous execution on the shard owning key.
// It never blocks and returns ErrQueueFull when the shard is saturated.
func (d *Dispatcher) Enqueue(ctx context.Context, key int64, steps ...Step) error {
	return d.enqueue(ctx, key, false, steps)
}

// EnqueueWait is Enqueue that waits for room in the shard until ctx is done.
// Jobs already queued for key keep running ahead of this one.
func (d *Dispatcher) EnqueueWait(ctx context.Context, key int64, steps ...Step) error {
	return d.enqueue(ctx, key, true, steps)
}

func (d *Dispatcher) enqueue(ctx context.Context, key int64, wait bool, steps []Step) error {
	if len(steps) == 0 {
		return nil
	}
	for _, s := range steps {
		if s.Run == nil {
			return errors.New("telegram sender: nil run function")
		}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}

	j := job{ctx: ctx, key: key, steps: steps}
	shard := d.shards[d.shardFor(key)]
	if !wait {
		select {
		case shard <- j:
			return nil
		default:
			return ErrQueueFull
		}
	}
	select {
	case shard <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) shardFor(key int64) int {
	if key < 0 {
		key = -key
	}
	return int(key % int64(len(d.shards)))
}

// ErrorCount returns the number of failed steps.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.shards {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(jobs <-chan job) {
	defer d.wg.Done()
	for j := range jobs {
		d.handleJob(j)
	}
}

// handleJob runs every step even when an earlier one failed: a stale
// keyboard that cannot be deleted must not swallow the next prompt.
func (d *Dispatcher) handleJob(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	for i, s := range j.steps {
		err := d.runStep(ctx, s)
		metrics.IncEffect(s.Action, err == nil)
		if err != nil {
			d.errs.Add(1)
			if left := len(j.steps) - i - 1; left > 0 {
				logger.Debug(ctx, component, "job.continue",
					append(sendLogAttrs(ctx, s), slog.Int("left", left))...,
				)
			}
		}
	}
}

// RunSync executes steps in the caller's goroutine with the same retry
// policy. It is the fallback once the dispatcher is closed and no queued
// job can overtake the caller.
func (d *Dispatcher) RunSync(ctx context.Context, steps ...Step) error {
	var errs []error
	for _, s := range steps {
		err := d.runStep(ctx, s)
		metrics.IncEffect(s.Action, err == nil)
		if err != nil {
			d.errs.Add(1)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) runStep(ctx context.Context, s Step) error {
	deadlineCtx, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	logger.Debug(ctx, component, "send.start", sendLogAttrs(ctx, s)...)

	attempts := d.opts.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := deadlineCtx.Err(); err != nil {
			lastErr = err
			break
		}

		err := s.Run()
		if err == nil {
			if attempt > 1 {
				logger.Info(ctx, component, "send.retry.success",
					append(sendLogAttrs(ctx, s),
						slog.Int("attempt", attempt),
						slog.Int64("elapsed_ms", logger.Millis(time.Since(start))),
					)...,
				)
			}
			logSendSuccess(ctx, s, attempt, time.Since(start))
			return nil
		}

		lastErr = err
		if !netutil.ShouldRetry(err) || attempt == attempts {
			break
		}

		delay := d.opts.RetryBackoff * time.Duration(attempt)
		if wait := netutil.RetryAfter(err); wait > delay {
			delay = wait
		}
		timer := time.NewTimer(delay)
		select {
		case <-deadlineCtx.Done():
			timer.Stop()
			lastErr = deadlineCtx.Err()
			logSendFailure(ctx, s, lastErr, attempt, time.Since(start))
			return lastErr
		case <-timer.C:
		}
		logger.Debug(ctx, component, "send.retry.backoff",
			append(sendLogAttrs(ctx, s),
				slog.Int("attempt", attempt),
				slog.Duration("wait", delay),
			)...,
		)
	}

	logSendFailure(ctx, s, lastErr, attempts, time.Since(start))
	return lastErr
}

func sendLogAttrs(ctx context.Context, s Step) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("action", s.Action),
	}
	if s.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", s.Endpoint))
	}
	if rid := logger.RIDFrom(ctx); rid != "" {
		attrs = append(attrs, slog.String("rid", rid))
	}
	if updateID := logger.UpdateIDFrom(ctx); updateID != 0 {
		attrs = append(attrs, slog.Int("update_id", updateID))
	}
	if chatID := logger.ChatIDFrom(ctx); chatID != 0 {
		attrs = append(attrs, slog.Int64("chat_id", chatID))
	}
	if userID := logger.UserIDFrom(ctx); userID != 0 {
		attrs = append(attrs, slog.Int64("user_id", userID))
	}
	return attrs
}

func logSendSuccess(ctx context.Context, s Step, attempt int, elapsed time.Duration) {
	attrs := sendLogAttrs(ctx, s)
	if attempt > 1 {
		attrs = append(attrs, slog.Int("attempt", attempt))
	}
	attrs = append(attrs, slog.Int64("elapsed_ms", logger.Millis(elapsed)))
	logger.Debug(ctx, component, "send.success", attrs...)
}

func logSendFailure(ctx context.Context, s Step, err error, attempts int, elapsed time.Duration) {
	attrs := sendLogAttrs(ctx, s)
	attrs = append(attrs,
		slog.String("err", sanitizeErrorMessage(err)),
		slog.String("err_code", classifyError(err)),
		slog.Int64("elapsed_ms", logger.Millis(elapsed)),
	)
	if attempts > 0 {
		attrs = append(attrs, slog.Int("attempts", attempts))
	}
	logger.Error(ctx, component, "send.fail", attrs...)
}

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return "dial"
		}
		if opErr.Op == "read" || opErr.Op == "write" {
			if kind := classifyError(opErr.Err); kind != "" && kind != "unknown" {
				return kind
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
		if kind := classifyError(urlErr.Err); kind != "" && kind != "unknown" {
			return kind
		}
	}

	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}

	status := httpStatusFromError(err)
	switch {
	case status == http.StatusTooManyRequests:
		return "flood"
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}

	return "unknown"
}

// sanitizeErrorMessage strips bot tokens that net/http embeds in request URLs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

func httpStatusFromError(err error) int {
	if err == nil {
		return 0
	}

	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return http.StatusTooManyRequests
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}

	msg := err.Error()
	lastOpen := strings.LastIndex(msg, "(")
	lastClose := strings.LastIndex(msg, ")")
	if lastOpen >= 0 && lastClose > lastOpen+1 {
		codeStr := strings.TrimSpace(msg[lastOpen+1 : lastClose])
		if code, convErr := strconv.Atoi(codeStr); convErr == nil {
			return code
		}
	}

	return 0
}
