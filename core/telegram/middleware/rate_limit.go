package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/formbot/core/config"
	"github.com/m3rciful/formbot/core/logger"
	"github.com/m3rciful/formbot/core/metrics"
	tghelpers "github.com/m3rciful/formbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// sweepAbove is the tracked-user count past which stale entries are dropped.
const sweepAbove = 1024

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval time.Duration
	Exclude  map[string]struct{}
	// OnLimited runs for dropped updates; defaults to AnswerLimited.
	OnLimited tele.HandlerFunc
	// Now defaults to time.Now.
	Now func() time.Time
}

// UpdateKind names the update for rate limit exclusions.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return config.UpdateCallback
	case upd.Message != nil:
		return config.UpdateMessage
	case upd.Query != nil:
		return config.UpdateInlineQuery
	}
	return "other"
}

// AnswerLimited answers a dropped callback query so the client stops its
// spinner. Other updates are dropped silently.
func AnswerLimited(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	return c.Respond()
}

// RateLimitMiddleware returns a middleware that enforces a minimum interval
// between updates from the same user. Limited updates are dropped.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	var (
		userLastSeen   = make(map[int64]time.Time)
		userLastSeenMu sync.Mutex
	)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	onLimited := opts.OnLimited
	if onLimited == nil {
		onLimited = AnswerLimited
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}

			ts := now()
			userLastSeenMu.Lock()
			if last, ok := userLastSeen[user.ID]; ok && ts.Sub(last) < opts.Interval {
				userLastSeenMu.Unlock()
				metrics.IncRateLimited()
				logger.Warn(tghelpers.BuildContext(c), "tg", "rate_limit",
					slog.Int64("user_id", user.ID),
					slog.String("kind", kind),
					slog.Int64("wait_ms", (opts.Interval - ts.Sub(last)).Milliseconds()),
				)
				if err := onLimited(c); err != nil {
					logger.Debug(tghelpers.BuildContext(c), "tg", "rate_limit.answer.fail",
						slog.String("err", err.Error()),
					)
				}
				return nil
			}
			userLastSeen[user.ID] = ts
			if len(userLastSeen) > sweepAbove {
				for id, seen := range userLastSeen {
					if ts.Sub(seen) >= opts.Interval {
						delete(userLastSeen, id)
					}
				}
			}
			userLastSeenMu.Unlock()
			return next(c)
		}
	}
}
