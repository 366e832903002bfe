package logger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
)

// logLines runs fn against a Handler at level and returns the written lines
// without their line endings.
func logLines(t *testing.T, level slog.Leveler, fn func(*slog.Logger)) []string {
	t.Helper()
	var buf bytes.Buffer
	fn(slog.New(NewHandler(&buf, level)))
	out := strings.TrimRight(buf.String(), "\r\n")
	if out == "" {
		return nil
	}
	lines := strings.Split(out, lineEnding)
	return lines
}

// ///////////////////////////////////////////////
// Handler
// ///////////////////////////////////////////////

var linePattern = regexp.MustCompile(`^\d{4}-\d\d-\d\dT\d\d:\d\d:\d\d\.\d{3}Z \[[A-Z]+\] `)

func TestHandler_Lines(t *testing.T) {
	tests := []struct {
		name string
		log  func(*slog.Logger)
		want string
	}{
		{
			name: "message only",
			log:  func(l *slog.Logger) { l.Info("presence cleared") },
			want: "[INFO] presence cleared",
		},
		{
			name: "attributes",
			log:  func(l *slog.Logger) { l.Warn("connect failed", "attempt", 2, "of", 6) },
			want: "[WARN] connect failed | attempt=2, of=6",
		},
		{
			name: "bound attributes first",
			log:  func(l *slog.Logger) { Component(l, "bridge").Error("bad origin", "origin", "http://evil") },
			want: "[ERROR] bad origin | component=bridge, origin=http://evil",
		},
		{
			name: "group prefixes record attributes",
			log:  func(l *slog.Logger) { l.WithGroup("http").WithGroup("req").Info("served", "path", "/api/windows") },
			want: "[INFO] served | http.req.path=/api/windows",
		},
		{
			name: "attributes bound before a group keep their key",
			log:  func(l *slog.Logger) { l.With("component", "monitor").WithGroup("scan").Info("tick", "windows", 3) },
			want: "[INFO] tick | component=monitor, scan.windows=3",
		},
		{
			name: "attributes bound inside a group",
			log:  func(l *slog.Logger) { l.WithGroup("ipc").With("pipe", 0).Info("dialed") },
			want: "[INFO] dialed | ipc.pipe=0",
		},
		{
			name: "empty attrs are dropped",
			log:  func(l *slog.Logger) { l.LogAttrs(context.Background(), slog.LevelInfo, "x", slog.Attr{}) },
			want: "[INFO] x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := logLines(t, LevelInfo, tt.log)
			if len(lines) != 1 {
				t.Fatalf("got %d lines: %q", len(lines), lines)
			}
			if !linePattern.MatchString(lines[0]) {
				t.Errorf("line %q lacks the UTC timestamp prefix", lines[0])
			}
			if _, rest, _ := strings.Cut(lines[0], " "); rest != tt.want {
				t.Errorf("line = %q, want %q", rest, tt.want)
			}
		})
	}
}

func TestHandler_WithGroupEmptyIsSame(t *testing.T) {
	h := NewHandler(&bytes.Buffer{}, LevelInfo)
	if h.WithGroup("") != slog.Handler(h) {
		t.Error("WithGroup(\"\") returned a new handler")
	}
}

// ///////////////////////////////////////////////
// Levels
// ///////////////////////////////////////////////

func TestHandler_LevelThreshold(t *testing.T) {
	lines := logLines(t, LevelWarn, func(l *slog.Logger) {
		Trace(l, "frame")
		l.Debug("scan")
		l.Info("started")
		l.Warn("retrying")
		l.Error("gave up")
		Fail(l, "cannot bind")
	})
	var got []string
	for _, line := range lines {
		got = append(got, line[strings.Index(line, "[")+1:strings.Index(line, "]")])
	}
	if want := "WARN ERROR FAIL"; strings.Join(got, " ") != want {
		t.Errorf("levels = %v, want %s", got, want)
	}
}

func TestLevelNameAndParse(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want slog.Level
		name string
	}{
		{"trace", LevelTrace, "TRACE"},
		{" Debug ", LevelDebug, "DEBUG"},
		{"INFO", LevelInfo, "INFO"},
		{"warning", LevelWarn, "WARN"},
		{"error", LevelError, "ERROR"},
		{"fail", LevelFail, "FAIL"},
		{"verbose", LevelInfo, "INFO"},
		{"", LevelInfo, "INFO"},
	} {
		got := ParseLevel(tt.in)
		if got != tt.want || levelName(got) != tt.name {
			t.Errorf("ParseLevel(%q) = %v (%s), want %v (%s)", tt.in, got, levelName(got), tt.want, tt.name)
		}
	}
}

func TestHandler_ConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	base := NewHandler(&buf, LevelInfo)
	a := slog.New(base)
	b := slog.New(base.WithAttrs([]slog.Attr{slog.String("component", "monitor")}))

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(2)
		go func() { defer wg.Done(); a.Info("scan", "n", i) }()
		go func() { defer wg.Done(); b.Info("tick", "n", i) }()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), lineEnding)
	if len(lines) != 80 {
		t.Fatalf("got %d lines, want 80", len(lines))
	}
	for _, l := range lines {
		if !linePattern.MatchString(l) {
			t.Fatalf("torn line %q", l)
		}
	}
}

// ///////////////////////////////////////////////
// New
// ///////////////////////////////////////////////

func TestNew_FileConsoleAndLevelVar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "deskcord.log")
	var console bytes.Buffer

	l := New(Options{Path: path, Level: "info", MaxSizeMB: 1, Console: &console})
	l.Debug("before")
	l.Level.Set(LevelDebug)
	l.Debug("after")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "before") || !strings.Contains(string(data), "[DEBUG] after") {
		t.Errorf("log file = %q", data)
	}
	if console.String() != string(data) {
		t.Errorf("console = %q, file = %q", console.String(), data)
	}
}

// ///////////////////////////////////////////////
// ReadTail
// ///////////////////////////////////////////////

func TestReadTail(t *testing.T) {
	var long strings.Builder
	for i := 1; i <= 500; i++ {
		fmt.Fprintf(&long, "line %d\n", i)
	}

	tests := []struct {
		name    string
		content string
		n       int
		want    string
	}{
		{"last lines", "a\nb\nc\nd\ne\n", 3, "c\nd\ne"},
		{"fewer than asked", "a\nb\n", 10, "a\nb"},
		{"no trailing newline", "a\nb\nc", 2, "b\nc"},
		{"crlf", "a\r\nb\r\n", 5, "a\nb"},
		{"whole file", "a\nb\nc\n", 0, "a\nb\nc"},
		{"empty", "", 10, ""},
		{"long file", long.String(), 2, "line 499\nline 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "deskcord.log")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			got, err := ReadTail(path, tt.n)
			if err != nil {
				t.Fatalf("ReadTail: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadTail(%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}

func TestReadTail_Missing(t *testing.T) {
	if _, err := ReadTail(filepath.Join(t.TempDir(), "none.log"), 5); !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}
