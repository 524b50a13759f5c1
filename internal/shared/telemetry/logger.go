package telemetry

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stdout, levelFromEnv())
)

// Configure rebuilds the process logger writing JSON lines to w at the given level.
func Configure(w io.Writer, level string) {
	l := newLogger(w, parseLevel(level))
	mu.Lock()
	old := logger
	logger = l
	mu.Unlock()
	_ = old.Sync()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = current().Sync()
}

// Debug writes a debug-level log line with the given fields.
func Debug(msg string, fields map[string]any) {
	write(zapcore.DebugLevel, msg, fields)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write(zapcore.InfoLevel, msg, fields)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	write(zapcore.WarnLevel, msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	write(zapcore.ErrorLevel, msg, fields)
}

func write(level zapcore.Level, msg string, fields map[string]any) {
	l := current()
	ce := l.Check(level, msg)
	if ce == nil {
		return
	}
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		if isRedactedKey(k) {
			zf = append(zf, zap.String(k, "[REDACTED]"))
			continue
		}
		zf = append(zf, zap.Any(k, v))
	}
	ce.Write(zf...)
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func newLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.MessageKey = "msg"
	encCfg.LevelKey = "level"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

func levelFromEnv() zapcore.Level {
	return parseLevel(os.Getenv("LOG_LEVEL"))
}

func parseLevel(raw string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// isRedactedKey reports whether a field must never be written verbatim.
func isRedactedKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.Contains(k, "token"),
		strings.Contains(k, "authorization"),
		strings.Contains(k, "password"),
		strings.Contains(k, "secret"),
		strings.Contains(k, "api_key"),
		strings.Contains(k, "apikey"):
		return true
	default:
		return false
	}
}
