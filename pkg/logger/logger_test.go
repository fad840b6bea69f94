package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewDefaultsToInfo(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := New(&buf)

	logger.Debug().Msg("hidden")
	logger.Info().Str("thread_id", "ORD1").Msg("shown")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one json line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "shown" || entry["thread_id"] != "ORD1" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["service"] != "support-triage-agent" {
		t.Fatalf("service = %v", entry["service"])
	}
}

func TestLevelSelection(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		conf Config
		want zerolog.Level
	}{
		{"default", Config{}, zerolog.InfoLevel},
		{"debug flag", Config{Debug: true}, zerolog.DebugLevel},
		{"explicit level wins", Config{Debug: true, Level: "WARN"}, zerolog.WarnLevel},
		{"bad level falls back", Config{Level: "loud"}, zerolog.InfoLevel},
	}
	for _, tc := range cases {
		conf := tc.conf
		if got := level(&conf); got != tc.want {
			t.Fatalf("%s: level = %v, want %v", tc.name, got, tc.want)
		}
	}
}
