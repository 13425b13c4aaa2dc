// Package bootstrap wires the form bot from configuration: logger, metrics,
// the profile repository, the session store, the engine and the transport.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/formbot/core/config"
	"github.com/m3rciful/formbot/core/database"
	"github.com/m3rciful/formbot/core/engine"
	"github.com/m3rciful/formbot/core/form"
	"github.com/m3rciful/formbot/core/logger"
	"github.com/m3rciful/formbot/core/metrics"
	"github.com/m3rciful/formbot/core/state"
	"github.com/m3rciful/formbot/core/telegram"
	"github.com/m3rciful/formbot/core/telegram/router"
	"github.com/m3rciful/formbot/core/telegram/sender"
)

const dbWaitTimeout = 30 * time.Second

// Options control the bootstrap pipeline. Nil funcs use the real implementations.
type Options struct {
	Config *config.Config

	LoggerInit func(*config.Config) error
	Connect    func(context.Context, config.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(context.Context, config.DatabaseConfig) error
	// SenderOptions tunes the outbound dispatcher; zero values pick defaults.
	SenderOptions sender.Options
}

// App exposes infrastructure initialized by the bootstrap pipeline.
type App struct {
	Config  *config.Config
	DB      *sqlx.DB
	Store   state.Store
	Engine  *engine.Engine
	Metrics *metrics.Server

	senderOpts sender.Options
}

// Run initializes the logger and metrics, opens the profile repository
// selected by storage.driver and builds the engine over it.
func Run(ctx context.Context, opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	cfg := opts.Config

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}
	metrics.MustRegister()

	app := &App{Config: cfg, senderOpts: opts.SenderOptions}

	var storeOpts []state.Option
	if cfg.Storage.Driver == config.StoragePostgres {
		db, err := openDatabase(ctx, cfg.Database, opts)
		if err != nil {
			return nil, err
		}
		app.DB = db
		storeOpts = append(storeOpts, state.WithProfiles(database.NewProfiles(db)))
	}

	app.Store = state.NewMemoryStore(storeOpts...)
	app.Engine = engine.New(app.Store, form.NewMachine(cfg.Form.Texts))

	if cfg.Metrics.Listen != "" {
		app.Metrics = metrics.NewServer(cfg.Metrics.Listen, app.health)
	}

	logger.Info(ctx, "app", "bootstrap.done",
		slog.String("driver", cfg.Storage.Driver),
		slog.String("addr", cfg.Metrics.Listen),
	)
	return app, nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, opts Options) (*sqlx.DB, error) {
	connect := opts.Connect
	migrate := opts.Migrate
	if connect == nil {
		if err := database.WaitForPostgres(ctx, database.DSN(cfg), dbWaitTimeout); err != nil {
			return nil, fmt.Errorf("bootstrap: database not reachable: %w", err)
		}
		connect = database.Connect
	}
	if migrate == nil {
		migrate = database.RunMigrations
	}

	db, err := connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	if err := migrate(ctx, cfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	return db, nil
}

func (a *App) health(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.PingContext(ctx)
}

// CoreConfig returns the loaded configuration.
func (a *App) CoreConfig() *config.Config {
	return a.Config
}

// TelegramRunOptions builds the transport around the engine: the command
// registry, routes, middlewares and the user-sharded sender.
func (a *App) TelegramRunOptions() (telegram.RunOptions, error) {
	if a.Engine == nil {
		return telegram.RunOptions{}, errors.New("bootstrap: engine not initialized")
	}

	dispatcher := sender.NewDispatcher(a.senderOpts)
	reg := telegram.NewRegistry()
	forms := telegram.NewForms(a.Engine, reg, telegram.NewExecutor(dispatcher))
	forms.RegisterCommands()

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: a.Config.Telegram.AdminID})
	routes = append(routes, router.MessageRoutes(forms.Handle)...)
	routes = append(routes, router.CallbackRoute(forms.Handle))

	return telegram.RunOptions{
		Config:      a.Config,
		Registry:    reg,
		Sender:      dispatcher,
		Middlewares: telegram.DefaultMiddlewares(a.Config, nil),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, _ *tele.Bot) error {
	if a.Metrics == nil {
		return nil
	}
	go func() {
		if err := a.Metrics.Start(ctx); err != nil {
			logger.Error(ctx, "metrics", "server.fail", slog.String("err", err.Error()))
		}
	}()
	return nil
}

func (a *App) onStop(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	if err := a.DB.Close(); err != nil {
		return fmt.Errorf("bootstrap: close database: %w", err)
	}
	logger.Info(ctx, "db", "closed")
	return nil
}
