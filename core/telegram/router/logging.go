package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/formbot/core/logger"
	"github.com/m3rciful/formbot/core/metrics"
	tghelpers "github.com/m3rciful/formbot/core/telegram/helpers"
	"github.com/m3rciful/formbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summarize wraps h so every update ends with one "handler.handled" line
// and a latency observation labelled by name.
func summarize(name string, h tele.HandlerFunc, extras ...func(tele.Context) []slog.Attr) tele.HandlerFunc {
	return func(c tele.Context) error {
		start, ok := c.Get(middleware.StartKey).(time.Time)
		if !ok {
			start = time.Now()
		}
		ctx := tghelpers.WithHandler(c, name)
		err := h(c)

		took := logger.Took(start)
		outcome := logger.Status(err)
		metrics.ObserveUpdate(name, outcome, took.Milliseconds())

		attrs := []slog.Attr{
			slog.String("status", outcome),
			slog.String("handler", name),
			slog.Int64("duration_ms", took.Milliseconds()),
		}
		if err != nil {
			attrs = append(attrs,
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
				slog.String("err_code", deriveErrorCode(err)),
			)
		}
		for _, extra := range extras {
			attrs = append(attrs, extra(c)...)
		}
		logger.Info(ctx, "tg", "handler.handled", attrs...)
		return err
	}
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

// deriveErrorCode names the innermost error type, which is stable enough
// to group failures on.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
