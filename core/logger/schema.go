package logger

import "strings"

// Severity names written in the level field.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)

var levelNames = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
	"fatal":   LevelFatal,
}

// Closed vocabularies. Unknown status values pass through; unknown
// outcomes are dropped.
var (
	statusValues  = enumSet("ok", "fail", "skip", "retry", "rate_limited", "cancelled")
	outcomeValues = enumSet("ok", "fail", "rejected", "cancelled", "rate_limited")
)

func enumSet(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeEnum(value string, set map[string]struct{}) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", false
	}
	_, ok := set[value]
	return value, ok
}

// defaultRedactKeys hold user-typed answers; only their length is logged.
var defaultRedactKeys = []string{"text", "name", "caption"}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"run_id",
	"kind",
	"command",
	"state",
	"next",
	"field",
	"expects",
	"token",
	"effects",
	"effect",
	"outcome",
	"duration_ms",
	"wait_ms",
	"count",
	"mode",
	"listen",
	"public_url",
	"addr",
	"driver",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"retryable",
	"attempts",
	"rate_limited",
	"shard",
	"queue",
	"stack",
}
