// Package logger provides prefixed, asynchronous logging on top of log/slog so that
// network callbacks and the event loop never block on log output.
// Function timing is supported through LogDuration / DeferLogDuration.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const asyncBufferSize = 8192

type entry struct {
	level slog.Level
	msg   string
}

var (
	prefix   atomic.Value
	logLevel atomic.Int64
	sink     atomic.Pointer[slog.Logger]
	direct   atomic.Bool // set by SetLogger: write synchronously
	ch       chan entry
	once     sync.Once
)

func init() {
	prefix.Store("")
	logLevel.Store(int64(levelFromEnv(os.Getenv("LOG_LEVEL"))))
	sink.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func levelFromEnv(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func initWorker() {
	ch = make(chan entry, asyncBufferSize)
	go func() {
		for e := range ch {
			sink.Load().Log(context.Background(), e.level, e.msg)
		}
	}()
}

func emit(level slog.Level, msg string) {
	if level < slog.Level(logLevel.Load()) {
		return
	}
	if p, _ := prefix.Load().(string); p != "" {
		msg = "[" + p + "] " + msg
	}
	if direct.Load() {
		sink.Load().Log(context.Background(), level, msg)
		return
	}
	once.Do(initWorker)
	select {
	case ch <- entry{level: level, msg: msg}:
	default:
		// buffer full: drop rather than block the caller
	}
}

// SetPrefix sets the tag prepended to every subsequent line (e.g. "client", "watch").
func SetPrefix(p string) {
	prefix.Store(p)
}

// SetLevel accepts "debug", "info" or "error"; anything else means info.
func SetLevel(level string) {
	logLevel.Store(int64(levelFromEnv(level)))
}

// SetLogger routes output to l and switches to synchronous writes.
// The returned func restores the previous sink.
func SetLogger(l *slog.Logger) (restore func()) {
	prev := sink.Swap(l)
	prevSync := direct.Swap(true)
	return func() {
		sink.Store(prev)
		direct.Store(prevSync)
	}
}

func Debugf(format string, v ...any) {
	emit(slog.LevelDebug, fmt.Sprintf(format, v...))
}

func Info(v ...any) {
	emit(slog.LevelInfo, fmt.Sprint(v...))
}

func Infof(format string, v ...any) {
	emit(slog.LevelInfo, fmt.Sprintf(format, v...))
}

func Error(v ...any) {
	emit(slog.LevelError, fmt.Sprint(v...))
}

func Errorf(format string, v ...any) {
	emit(slog.LevelError, fmt.Sprintf(format, v...))
}

// LogDuration logs fn and its elapsed time in milliseconds.
// At info level only calls slower than 100ms are logged; at debug level all of them.
func LogDuration(fn string, start time.Time) {
	elapsed := time.Since(start)
	if slog.Level(logLevel.Load()) <= slog.LevelDebug || elapsed >= 100*time.Millisecond {
		emit(slog.LevelInfo, fmt.Sprintf("fn=%s duration_ms=%d", fn, elapsed.Milliseconds()))
	}
}

// DeferLogDuration returns a func for defer: defer logger.DeferLogDuration("gateway.SendMessage", time.Now())().
func DeferLogDuration(fn string, start time.Time) func() {
	return func() { LogDuration(fn, start) }
}
