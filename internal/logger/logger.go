// Package logger provides structured logging with custom levels and formatting
// for the pctracker recorder and analyzer.
//
// Log output format:
//
//	2006-01-02T15:04:05.000Z [LEVEL] message | key=value, key2="value with spaces"
//
// Window titles routinely contain spaces, commas and pipes, so attribute values
// containing any of those are quoted.
//
// Custom levels beyond the standard slog set:
//   - LevelTrace (-8): per-window tick tracing
//   - LevelFail  (12): unrecoverable errors
package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
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

// levels is ordered by ceiling; a record takes the first name whose ceiling
// it does not exceed.
var levels = []struct {
	ceiling slog.Level
	name    string
}{
	{LevelTrace, "TRACE"},
	{LevelDebug, "DEBUG"},
	{LevelInfo, "INFO"},
	{LevelWarn, "WARN"},
	{LevelError, "ERROR"},
}

func levelName(l slog.Level) string {
	for _, lv := range levels {
		if l <= lv.ceiling {
			return lv.name
		}
	}
	return "FAIL"
}

// ParseLevel maps trace, debug, info, warn, error and fail (any case) to a
// level. Anything else is LevelInfo.
func ParseLevel(s string) slog.Level {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "FAIL" {
		return LevelFail
	}
	for _, lv := range levels {
		if lv.name == s {
			return lv.ceiling
		}
	}
	return LevelInfo
}

// ///////////////////////////////////////////////
// Handler
// ///////////////////////////////////////////////

const timeLayout = "2006-01-02T15:04:05.000Z"

var lineEnding = func() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}()

// Handler is a slog.Handler writing one line per record in the package
// format. Handlers derived through WithAttrs and WithGroup share the writer
// lock.
type Handler struct {
	w     io.Writer
	mu    *sync.Mutex
	level slog.Level
	// pre holds attributes added by WithAttrs, already rendered.
	pre []byte
	// prefix is the open group path with a trailing dot.
	prefix string
}

// NewHandler creates a Handler that writes to w, filtering records below level.
func NewHandler(w io.Writer, level slog.Level) *Handler {
	return &Handler{w: w, level: level, mu: &sync.Mutex{}}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 128)
	buf = r.Time.UTC().AppendFormat(buf, timeLayout)
	buf = append(buf, " ["...)
	buf = append(buf, levelName(r.Level)...)
	buf = append(buf, "] "...)
	buf = append(buf, r.Message...)

	attrs := make([]byte, 0, len(h.pre)+64)
	attrs = append(attrs, h.pre...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = appendAttr(attrs, h.prefix, a)
		return true
	})
	if len(attrs) > 0 {
		buf = append(buf, " | "...)
		buf = append(buf, attrs...)
	}
	buf = append(buf, lineEnding...)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

// appendAttr renders a as "prefix.key=value", joining with ", " when dst
// already holds attributes. Group values are flattened into dotted keys.
func appendAttr(dst []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			dst = appendAttr(dst, inner, ga)
		}
		return dst
	}
	if len(dst) > 0 {
		dst = append(dst, ", "...)
	}
	dst = append(dst, prefix...)
	dst = append(dst, a.Key...)
	dst = append(dst, '=')
	return appendValue(dst, a.Value.String())
}

// appendValue quotes s when it would be ambiguous inside "k=v, k=v".
func appendValue(dst []byte, s string) []byte {
	if s == "" || strings.ContainsAny(s, " ,|=\"\t\r\n") {
		return strconv.AppendQuote(dst, s)
	}
	return append(dst, s...)
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	pre := append([]byte(nil), h.pre...)
	for _, a := range attrs {
		pre = appendAttr(pre, h.prefix, a)
	}
	return &Handler{w: h.w, mu: h.mu, level: h.level, pre: pre, prefix: h.prefix}
}

// WithGroup implements slog.Handler. Keys logged afterwards are written as
// "name.key".
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{w: h.w, mu: h.mu, level: h.level, pre: h.pre, prefix: h.prefix + name + "."}
}

// ///////////////////////////////////////////////
// Logger Constructor
// ///////////////////////////////////////////////

// Options configures [NewLogger].
type Options struct {
	// Path is the log file; rotated by lumberjack once it reaches MaxSizeMB.
	Path string
	// Level is the minimum severity written.
	Level slog.Level
	// MaxSizeMB is the size threshold for rotation.
	MaxSizeMB int
	// Console, when non-nil, receives a copy of every line (foreground runs).
	Console io.Writer
}

// NewLogger creates a slog.Logger that writes to a rotating log file and,
// optionally, to a console writer. The returned io.Closer must be closed to
// flush pending writes.
func NewLogger(opts Options) (*slog.Logger, io.Closer, error) {
	if opts.Path == "" {
		return nil, nil, fmt.Errorf("log path is required")
	}
	lj := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: 3,
		MaxAge:     28,
	}

	var w io.Writer = lj
	if opts.Console != nil {
		w = io.MultiWriter(lj, opts.Console)
	}
	return slog.New(NewHandler(w, opts.Level)), lj, nil
}

// ///////////////////////////////////////////////
// Helper Functions
// ///////////////////////////////////////////////

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

// tailBlock is how much of the file ReadTail reads per step backwards.
const tailBlock = 4096

// ReadTail returns the last n lines of the file at path joined by "\n",
// without the final line ending. It reads backwards from the end, so the cost
// depends on n rather than on the file size.
func ReadTail(path string, n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat log file: %w", err)
	}

	var tail []byte
	for off := info.Size(); off > 0; {
		size := int64(tailBlock)
		if off < size {
			size = off
		}
		off -= size
		block := make([]byte, size)
		if _, err := f.ReadAt(block, off); err != nil && err != io.EOF {
			return "", fmt.Errorf("reading log file: %w", err)
		}
		tail = append(block, tail...)
		// One more newline than lines wanted, ignoring a trailing one.
		if bytes.Count(bytes.TrimRight(tail, "\r\n"), []byte("\n")) >= n {
			break
		}
	}

	lines := strings.Split(strings.TrimRight(string(tail), "\r\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return "", nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return strings.Join(lines, "\n"), nil
}
