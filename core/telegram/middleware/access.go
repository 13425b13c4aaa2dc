package middleware

import (
	"log/slog"

	"github.com/m3rciful/formbot/core/logger"
	tghelpers "github.com/m3rciful/formbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware lets only the configured admin reach next. With no
// admin configured nobody does.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if opts.AdminID != 0 && user != nil && user.ID == opts.AdminID {
				return next(c)
			}
			ctx := tghelpers.BuildContext(c)
			attrs := []slog.Attr{slog.Bool("admin_configured", opts.AdminID != 0)}
			if user != nil {
				attrs = append(attrs, slog.Int64("user_id", user.ID))
			}
			logger.Warn(ctx, "tg", "admin.reject", attrs...)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
