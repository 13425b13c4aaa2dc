package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/formbot/core/config"
	"github.com/m3rciful/formbot/core/logger"
	tghelpers "github.com/m3rciful/formbot/core/telegram/helpers"
	"github.com/m3rciful/formbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *config.Config
	Registry *Registry
	// Sender executes outbound calls; closed by RunTelegram on exit.
	Sender *sender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, bot *tele.Bot) error
	OnStop  func(ctx context.Context) error
}

// BotSettings returns the bot settings for cfg. Updates are handled
// synchronously in arrival order; replies leave through the sender.
func BotSettings(cfg *config.Config) tele.Settings {
	return tele.Settings{
		Token:       cfg.Telegram.Token,
		Poller:      BuildPoller(PollerOptionsFrom(cfg)),
		Client:      BuildHTTPClient(ClientOptions{}),
		Synchronous: true,
		OnError:     onError,
	}
}

func onError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "handler.error", slog.String("err", logger.SanitizeLimit(err.Error(), 512)))
}

// Wire registers middlewares, routes and the command menu on bot.
func Wire(bot *tele.Bot, opts RunOptions) {
	for _, mw := range opts.Middlewares {
		if mw.Use == nil {
			continue
		}
		bot.Use(mw.Use)
	}
	for _, route := range opts.Routes {
		if route.Endpoint == nil || route.Handler == nil {
			continue
		}
		bot.Handle(route.Endpoint, route.Handler)
	}
}

// RunTelegram composes and runs a Telegram bot until ctx is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	settings := BotSettings(cfg)
	buildStart := time.Now()
	bot, err := tele.NewBot(settings)
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	switch p := settings.Poller.(type) {
	case *tele.Webhook:
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", config.RunModeWebhook),
			slog.String("addr", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.Took(buildStart)),
		)
	case *tele.LongPoller:
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", config.RunModeLongpoll),
			slog.Int("timeout_seconds", int(p.Timeout/time.Second)),
			slog.Duration("duration", logger.Took(buildStart)),
		)
		if !opts.DisableWebhookCleanup {
			if err := bot.RemoveWebhook(); err != nil {
				logger.Warn(ctx, "tg", "webhook.delete.fail", slog.String("err", err.Error()))
			} else {
				logger.Info(ctx, "tg", "webhook.delete")
			}
		}
	}

	Wire(bot, opts)
	InitBotCommands(ctx, bot, reg)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, bot); err != nil {
			if opts.Sender != nil {
				opts.Sender.Close()
			}
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}

	// Queued replies are flushed before the hooks run.
	if opts.Sender != nil {
		opts.Sender.Close()
		logger.Info(ctx, "tg.sender", "close", slog.Uint64("failed", opts.Sender.ErrorCount()))
	}

	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx)); err != nil {
			return err
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
