package router

import (
	"log/slog"

	"github.com/m3rciful/formbot/core/logger"
	tg "github.com/m3rciful/formbot/core/telegram"
	"github.com/m3rciful/formbot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute routes every inline button press to h. The handler is
// responsible for answering the callback query.
func CallbackRoute(h tele.HandlerFunc) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		return h(c)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler: summarize("callback", handler, func(c tele.Context) []slog.Attr {
			return []slog.Attr{slog.String("cb_key", logger.SanitizeLimit(callbacks.CallbackKey(c), 64))}
		}),
	}
}
