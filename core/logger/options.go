package logger

import (
	"log/slog"
	"strings"

	"github.com/m3rciful/formbot/core/config"
)

// options is the logging configuration after defaults are applied.
type options struct {
	format     logFormat
	keyOrder   []string
	level      slog.Level
	sampleNum  int
	sampleDen  int
	stacks     bool
	redact     map[string]struct{}
	profile    string
	dir        string
	botFile    string
	errorsFile string
}

func parseOptions(cfg *config.Config) options {
	var lc config.LoggingConfig
	if cfg != nil {
		lc = cfg.Logging
	}
	profile := strings.ToLower(strings.TrimSpace(lc.Profile))
	if profile == "" {
		profile = "prod"
	}
	dev := profile == "debug" || profile == "dev"

	opts := options{
		format:     parseFormat(lc.Format, dev),
		keyOrder:   parseKeyOrder(lc.KeysOrder),
		level:      parseLevel(lc.Level),
		profile:    profile,
		redact:     parseRedact(lc.Redact),
		dir:        strings.TrimSpace(lc.Dir),
		botFile:    strings.TrimSpace(lc.BotFile),
		errorsFile: strings.TrimSpace(lc.ErrorsFile),
	}
	opts.sampleNum, opts.sampleDen = parseDebugSample(lc.DebugSample)
	if s := strings.TrimSpace(lc.Stacks); s != "" {
		opts.stacks = isTruthy(s)
	} else {
		opts.stacks = dev
	}
	return opts
}

func parseFormat(raw string, dev bool) logFormat {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	if dev {
		return formatKV
	}
	return formatJSON
}

func parseKeyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	var order []string
	if raw != "" && raw != "default" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				order = append(order, p)
			}
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func parseRedact(raw string) map[string]struct{} {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "none") {
		return nil
	}
	keys := defaultRedactKeys
	if raw != "" {
		keys = strings.Split(raw, ",")
	}
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}

// parseDebugSample defaults to 1/50; "0" disables sampling.
func parseDebugSample(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, 50
	}
	num, den := parseRatioSpec(raw)
	if num == 0 && den == 0 {
		return 0, 0
	}
	if num <= 0 || den <= 0 {
		return 1, 50
	}
	return num, den
}
