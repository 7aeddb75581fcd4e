package middleware

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide structured logger. InitLogger replaces it.
var Logger = slog.New(contextHandler{slog.NewTextHandler(os.Stdout, nil)})

type contextKey string

// Request-scoped values the logger copies onto every record.
const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TraceIDKey   contextKey = "trace_id"
)

var loggedKeys = []contextKey{RequestIDKey, UserIDKey, TraceIDKey}

// contextHandler decorates records with the request values found in ctx, so
// any *Context logging call deep in a service carries them.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, key := range loggedKeys {
		if v := ctx.Value(key); v != nil {
			r.AddAttrs(slog.Any(string(key), v))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// LogOptions configures the global logger. File enables a rotated copy of
// the output through lumberjack.
type LogOptions struct {
	Env        string
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// InitLogger installs the global logger: JSON in production, text elsewhere.
func InitLogger(opts LogOptions) *slog.Logger {
	Logger = slog.New(contextHandler{newHandler(opts)})
	slog.SetDefault(Logger)
	return Logger
}

func newHandler(opts LogOptions) slog.Handler {
	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		})
	}
	ho := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
	switch strings.ToLower(opts.Env) {
	case "production", "prod":
		return slog.NewJSONHandler(out, ho)
	default:
		return slog.NewTextHandler(out, ho)
	}
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	switch s := strings.ToLower(strings.TrimSpace(level)); s {
	case "warning":
		return slog.LevelWarn
	default:
		if err := l.UnmarshalText([]byte(s)); err != nil {
			return slog.LevelInfo
		}
		return l
	}
}

// ContextMiddleware copies the request ID into the request context. Auth
// adds the user ID and tracing adds the trace ID further down the chain.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			c.SetUserContext(context.WithValue(c.UserContext(), RequestIDKey, rid))
		}
		return c.Next()
	}
}

// AccessLog writes one record per request once the handler chain is done.
// Server errors log at Error, client errors at Warn.
func AccessLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = models.StatusCode(err)
		}
		level := slog.LevelInfo
		switch {
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		}
		Logger.LogAttrs(c.UserContext(), level, "request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
		)
		return err
	}
}
