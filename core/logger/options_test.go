package logger

import (
	"log/slog"
	"testing"

	"github.com/m3rciful/formbot/core/config"
)

func TestParseOptionsDefaults(t *testing.T) {
	opts := parseOptions(nil)
	if opts.format != formatJSON || opts.level != slog.LevelInfo || opts.profile != "prod" {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
	if opts.sampleNum != 1 || opts.sampleDen != 50 {
		t.Fatalf("unexpected sampling %d/%d", opts.sampleNum, opts.sampleDen)
	}
	if _, ok := opts.redact["text"]; !ok {
		t.Fatal("text must be redacted by default")
	}
}

func TestParseOptionsDevProfile(t *testing.T) {
	opts := parseOptions(&config.Config{Logging: config.LoggingConfig{
		Profile:     "Debug",
		Level:       "debug",
		DebugSample: "0",
		KeysOrder:   "event, ,user_id",
	}})
	if opts.format != formatKV || !opts.stacks {
		t.Fatalf("dev profile should select kv with stacks: %+v", opts)
	}
	if opts.level != slog.LevelDebug {
		t.Fatalf("level = %v", opts.level)
	}
	if opts.sampleNum != 0 || opts.sampleDen != 0 {
		t.Fatalf("sampling should be disabled, got %d/%d", opts.sampleNum, opts.sampleDen)
	}
	if len(opts.keyOrder) != 2 || opts.keyOrder[1] != "user_id" {
		t.Fatalf("key order = %v", opts.keyOrder)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(2, 5)
	got := 0
	for i := 0; i < 10; i++ {
		if s.Allow() {
			got++
		}
	}
	if got != 4 {
		t.Fatalf("allowed %d of 10, want 4", got)
	}
	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("disabled sampler must allow everything")
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"1/10": {1, 10},
		"20":   {1, 20},
		"0":    {0, 0},
		"x/y":  {0, 0},
		"":     {0, 0},
	}
	for in, want := range cases {
		num, den := parseRatioSpec(in)
		if num != want[0] || den != want[1] {
			t.Fatalf("parseRatioSpec(%q) = %d/%d, want %d/%d", in, num, den, want[0], want[1])
		}
	}
}

func TestCompactRID(t *testing.T) {
	if got := CompactRID("35:36:1"); got != "z.10.1" {
		t.Fatalf("CompactRID = %s", got)
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("CompactRID passthrough = %s", got)
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\u200bc\nd", 4); got != "abc\n" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
}
