package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/formbot/core/buildinfo"
	"github.com/m3rciful/formbot/core/config"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	shutdowned bool

	writers []*asyncWriter
	closers []io.Closer

	levelVar slog.LevelVar

	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool

	// L is the process logger. It stays nil until InitLogger runs, and
	// every helper in this package is a no-op while it is nil.
	L *slog.Logger
)

// InitLogger configures the global structured logger. Later calls are no-ops.
func InitLogger(cfg *config.Config) error {
	initOnce.Do(func() {
		opts := parseOptions(cfg)
		levelVar.Set(opts.level)
		debugSampler.Set(opts.sampleNum, opts.sampleDen)
		traceOverride = detectTraceFlag()

		main := []io.Writer{os.Stdout}
		if f := openLogFile(opts.dir, opts.botFile); f != nil {
			main = append(main, f)
		}
		handlers := []slog.Handler{newHandler(main, &levelVar, opts.format, opts)}

		if f := openLogFile(opts.dir, opts.errorsFile); f != nil {
			handlers = append(handlers, newHandler([]io.Writer{f}, slog.LevelError, formatJSON, opts))
		}

		L = slog.New(tee(handlers...))
		slog.SetDefault(L)
		logStartup(cfg, opts)
	})
	return nil
}

func newHandler(out []io.Writer, level slog.Leveler, format logFormat, opts options) slog.Handler {
	w := newAsyncWriter(out, 64*1024)
	writers = append(writers, w)
	return newStructuredHandler(handlerConfig{
		level:    level,
		writer:   w,
		format:   format,
		keyOrder: opts.keyOrder,
		stacks:   opts.stacks,
		redact:   opts.redact,
	})
}

// openLogFile opens dir/name for appending. Failures are reported on the
// standard logger and leave the sink out rather than aborting startup.
func openLogFile(dir, name string) *os.File {
	if dir == "" || name == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: failed to create log dir %s: %v", dir, err)
		return nil
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: failed to open log file %s: %v", path, err)
		return nil
	}
	closers = append(closers, f)
	return f
}

func logStartup(cfg *config.Config, opts options) {
	attrs := []slog.Attr{
		slog.String("go_version", runtime.Version()),
		slog.String("build", buildinfo.String()),
		slog.String("cfg_profile", opts.profile),
		slog.String("format", string(opts.format)),
	}
	if cfg != nil {
		attrs = append(attrs,
			slog.String("mode", cfg.Telegram.RunMode),
			slog.String("driver", cfg.Storage.Driver),
		)
	}
	Info(context.Background(), "app", "startup", attrs...)
}

// Shutdown flushes buffered log output and closes opened sinks.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if shutdowned {
		return nil
	}
	shutdowned = true

	var errs []error
	for _, w := range writers {
		errs = append(errs, w.Flush(), w.Close())
	}
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// LogEvent writes one record with an event attribute through logg, falling
// back to the context logger and then L.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns a logger scoped to name, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs with component scope resolved automatically.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	logg := FromContext(ctx)
	if logg == nil {
		return
	}
	if component = strings.TrimSpace(component); component != "" {
		logg = logg.With("component", component)
	}
	LogEvent(ctx, logg, level, event, attrs...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

func detectTraceFlag() bool {
	return isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether a high-volume debug event should be logged.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}

