package middleware

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger is the process-wide structured logger. Records logged with a
// request context carry request_id, trace_id and user_email.
var Logger *slog.Logger

// Fiber locals shared between middlewares and handlers.
const (
	LocalRequestID = "requestid"
	LocalUserEmail = "userEmail"
	LocalTraceID   = "traceID"
)

type logFieldsKey struct{}

// logFields is shared by pointer, so middleware further down the chain can
// fill in values after the context has been derived.
type logFields struct {
	requestID string
	traceID   string
	userEmail string
}

func fieldsFrom(ctx context.Context) *logFields {
	f, _ := ctx.Value(logFieldsKey{}).(*logFields)
	return f
}

// ensureFields returns ctx with a logFields attached, reusing an existing one.
func ensureFields(ctx context.Context) (context.Context, *logFields) {
	if f := fieldsFrom(ctx); f != nil {
		return ctx, f
	}
	f := &logFields{}
	return context.WithValue(ctx, logFieldsKey{}, f), f
}

type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if f := fieldsFrom(ctx); f != nil {
		for _, a := range []slog.Attr{
			slog.String("request_id", f.requestID),
			slog.String("trace_id", f.traceID),
			slog.String("user_email", f.userEmail),
		} {
			if a.Value.String() != "" {
				r.AddAttrs(a)
			}
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newHandler logs JSON in production and text elsewhere.
func newHandler(env, level string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if env == "production" {
		return &ctxHandler{slog.NewJSONHandler(os.Stdout, opts)}
	}
	return &ctxHandler{slog.NewTextHandler(os.Stdout, opts)}
}

func init() {
	Logger = slog.New(newHandler(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL")))
}

// WithUserEmail records the authenticated email on ctx's log fields.
func WithUserEmail(ctx context.Context, email string) context.Context {
	ctx, f := ensureFields(ctx)
	f.userEmail = email
	return ctx
}

func withTraceID(ctx context.Context, traceID string) context.Context {
	ctx, f := ensureFields(ctx)
	f.traceID = traceID
	return ctx
}

// ContextMiddleware attaches log fields to the user context, seeded with
// the request id. Tracing and auth fill in the rest.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, f := ensureFields(c.UserContext())
		if rid, ok := c.Locals(LocalRequestID).(string); ok {
			f.requestID = rid
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger logs one record per request once the handler chain returns.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}

		level, msg := slog.LevelInfo, "request processed"
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			level, msg = slog.LevelError, "request failed"
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		}
		Logger.LogAttrs(c.UserContext(), level, msg, attrs...)

		return err
	}
}
