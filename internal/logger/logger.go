// Package logger provides structured logging with custom levels and formatting
// for deskcord.
//
// Log output format:
//
//	2006-01-02T15:04:05.000Z [LEVEL] message | component=presence, key=value
//
// Custom levels beyond the standard slog set:
//   - LevelTrace (-8): IPC frame tracing
//   - LevelFail  (12): unrecoverable errors
package logger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ///////////////////////////////////////////////
// Custom Levels
// ///////////////////////////////////////////////

const (
	LevelTrace slog.Level = -8
	LevelDebug slog.Level = slog.LevelDebug
	LevelInfo  slog.Level = slog.LevelInfo
	LevelWarn  slog.Level = slog.LevelWarn
	LevelError slog.Level = slog.LevelError
	LevelFail  slog.Level = 12
)

func levelName(l slog.Level) string {
	switch {
	case l <= LevelTrace:
		return "TRACE"
	case l <= LevelDebug:
		return "DEBUG"
	case l <= LevelInfo:
		return "INFO"
	case l <= LevelWarn:
		return "WARN"
	case l <= LevelError:
		return "ERROR"
	default:
		return "FAIL"
	}
}

// ParseLevel converts a level string to slog.Level, case-insensitively.
// "warning" is accepted as an alias of "warn". Unrecognized strings map to
// LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fail":
		return LevelFail
	default:
		return LevelInfo
	}
}

// ///////////////////////////////////////////////
// Handler
// ///////////////////////////////////////////////

var lineEnding = "\n"

func init() {
	if runtime.GOOS == "windows" {
		lineEnding = "\r\n"
	}
}

// Handler is a slog.Handler that formats log records as single lines:
//
//	2006-01-02T15:04:05.000Z [LEVEL] message | key=value, ...
type Handler struct {
	w  io.Writer
	mu *sync.Mutex
	// level is consulted on every record, so a *slog.LevelVar changes the
	// threshold of every derived handler at once.
	level slog.Leveler
	attrs []slog.Attr
	// group prefixes record attribute keys, dot-separated.
	group string
}

// NewHandler creates a Handler that writes to w, filtering records below level.
func NewHandler(w io.Writer, level slog.Leveler) *Handler {
	return &Handler{w: w, level: level, mu: &sync.Mutex{}}
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a log record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05.000Z"))
	buf.WriteString(" [")
	buf.WriteString(levelName(r.Level))
	buf.WriteString("] ")
	buf.WriteString(r.Message)

	n := 0
	write := func(prefix string, a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		if n == 0 {
			buf.WriteString(" | ")
		} else {
			buf.WriteString(", ")
		}
		n++
		buf.WriteString(prefix)
		buf.WriteString(a.Key)
		buf.WriteString("=")
		buf.WriteString(a.Value.Resolve().String())
	}

	// Attributes bound before WithGroup carry their prefix in the key already.
	for _, a := range h.attrs {
		write("", a)
	}
	prefix := ""
	if h.group != "" {
		prefix = h.group + "."
	}
	r.Attrs(func(a slog.Attr) bool {
		write(prefix, a)
		return true
	})

	buf.WriteString(lineEnding)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, buf.String())
	return err
}

// WithAttrs returns a new Handler with the given attributes pre-applied.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		newAttrs = append(newAttrs, a)
	}
	return &Handler{w: h.w, mu: h.mu, level: h.level, attrs: newAttrs, group: h.group}
}

// WithGroup returns a new Handler whose record attributes are prefixed with
// name (e.g. "group.key").
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newGroup := name
	if h.group != "" {
		newGroup = h.group + "." + name
	}
	return &Handler{w: h.w, mu: h.mu, level: h.level, attrs: h.attrs, group: newGroup}
}

// ///////////////////////////////////////////////
// Logger Constructor
// ///////////////////////////////////////////////

// Options configures [New].
type Options struct {
	// Path is the log file. Rotated by size.
	Path string
	// Level is the initial minimum level name.
	Level string
	// MaxSizeMB is the rotation threshold.
	MaxSizeMB int
	// Console, when non-nil, receives a copy of every line (e.g. os.Stderr
	// for `deskcord serve --verbose`).
	Console io.Writer
}

// Logger bundles the slog.Logger with its adjustable level and the
// rotating file behind it.
type Logger struct {
	*slog.Logger
	// Level is shared by every handler derived from Logger. Config reloads
	// call Level.Set.
	Level *slog.LevelVar

	file *lumberjack.Logger
}

// New creates a Logger that writes to a rotating log file and optionally
// tees to a console writer.
func New(opts Options) *Logger {
	lj := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: 3,
		MaxAge:     28,
	}

	level := new(slog.LevelVar)
	level.Set(ParseLevel(opts.Level))

	var w io.Writer = lj
	if opts.Console != nil {
		w = io.MultiWriter(lj, opts.Console)
	}
	return &Logger{Logger: slog.New(NewHandler(w, level)), Level: level, file: lj}
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	return l.file.Close()
}

// ///////////////////////////////////////////////
// Helper Functions
// ///////////////////////////////////////////////

// Component returns a logger tagged with component=name.
func Component(l *slog.Logger, name string) *slog.Logger {
	return l.With("component", name)
}

// Trace logs a message at LevelTrace.
func Trace(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// Fail logs a message at LevelFail.
func Fail(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelFail, msg, args...)
}

// ///////////////////////////////////////////////
// ReadTail
// ///////////////////////////////////////////////

// ReadTail returns the last n lines of the file at path, joined by "\n"
// without a trailing newline. CRLF endings are normalized. A non-positive n
// returns every line.
func ReadTail(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var tail []string
	for sc.Scan() {
		tail = append(tail, strings.TrimSuffix(sc.Text(), "\r"))
		if n > 0 && len(tail) > 2*n {
			// Compact so a large log does not keep every line alive.
			tail = append(tail[:0], tail[len(tail)-n:]...)
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("reading log file: %w", err)
	}
	if n > 0 && len(tail) > n {
		tail = tail[len(tail)-n:]
	}
	return strings.Join(tail, "\n"), nil
}
