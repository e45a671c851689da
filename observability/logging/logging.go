package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls optional log destinations.
type Options struct {
	// Output defaults to stdout.
	Output io.Writer
	// File, when set, receives a rotated copy of every log line.
	File       string
	MaxSizeMB  int
	MaxBackups int
	Level      slog.Level
}

// Setup configures the standard library logger to emit structured JSON and
// returns the slog.Logger used across the client. Every line carries the
// service name and environment when provided. Secrets are masked on the way
// out (see MaskField).
func Setup(service, env string, opts ...Options) *slog.Logger {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	handler := slog.NewJSONHandler(destination(opt), &slog.HandlerOptions{
		Level: opt.Level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.String("message", ScrubSecrets(attr.Value.String()))
			}
			return redactAttr(attr)
		},
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}
	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}

	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

func destination(opt Options) io.Writer {
	out := opt.Output
	if out == nil {
		out = os.Stdout
	}
	file := strings.TrimSpace(opt.File)
	if file == "" {
		return out
	}
	rotator := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    opt.MaxSizeMB,
		MaxBackups: opt.MaxBackups,
		Compress:   true,
	}
	return io.MultiWriter(out, rotator)
}

// Discard returns a logger that drops everything. Used as the fallback when a
// component is constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
