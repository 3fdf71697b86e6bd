package shared

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestFormatSince(t *testing.T) {
	tc := []struct {
		name string
		in   time.Time
		want string
	}{
		{
			name: "zero time",
			in:   time.Time{},
			want: "",
		},
		{
			name: "utc renders numeric offset",
			in:   time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
			want: "2024-03-01T12:30:00+00:00",
		},
		{
			name: "fixed zone",
			in:   time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("EST", -5*3600)),
			want: "2024-03-01T12:30:00-05:00",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSince(tt.in); got != tt.want {
				t.Errorf("FormatSince() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tc := map[string]log.Level{
		"":        log.InfoLevel,
		"debug":   log.DebugLevel,
		"WARN":    log.WarnLevel,
		"bananas": log.InfoLevel,
	}

	for in, want := range tc {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggers(t *testing.T) {
	t.Run("NewLogger writes to writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "kind", "channel")
		logger.Info("synced")

		if out := buf.String(); !strings.Contains(out, "synced") || !strings.Contains(out, "kind=channel") {
			t.Errorf("unexpected log output %q", out)
		}
	})

	t.Run("NewFileLogger creates directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "app.log")
		if _, err := NewFileLogger(path); err != nil {
			t.Fatalf("NewFileLogger() error = %v", err)
		}
	})
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("expected untouched string, got %q", got)
	}
	if got := Truncate("hello world", 5); got != "hell…" {
		t.Errorf("expected hell…, got %q", got)
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique IDs")
	}
	if len(a) != 36 {
		t.Errorf("expected 36 character UUID, got %d", len(a))
	}
}

func TestBrowserCommand(t *testing.T) {
	const u = "https://accounts.google.com/o/oauth2/auth?state=x"

	tc := []struct {
		name     string
		goos     string
		override string
		want     []string
		wantErr  bool
	}{
		{name: "macOS", goos: "darwin", want: []string{"open", u}},
		{name: "linux", goos: "linux", want: []string{"xdg-open", u}},
		{name: "windows", goos: "windows", want: []string{"rundll32", "url.dll,FileProtocolHandler", u}},
		{name: "BROWSER override with args", goos: "linux", override: "firefox --new-tab", want: []string{"firefox", "--new-tab", u}},
		{name: "blank override ignored", goos: "darwin", override: "   ", want: []string{"open", u}},
		{name: "unknown platform", goos: "plan9", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			name, args, err := browserCommand(tt.goos, tt.override, u)
			if tt.wantErr {
				if !errors.Is(err, ErrNotImplemented) {
					t.Errorf("expected ErrNotImplemented, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := append([]string{name}, args...)
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("browserCommand() = %v, want %v", got, tt.want)
			}
		})
	}
}
