package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger
	Logger = slog.New(&ctxHandler{slog.NewJSONHandler(&buf, nil)})
	t.Cleanup(func() { Logger = prev })
	return &buf
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel(" WARN "))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestRequestLogCarriesContextFields(t *testing.T) {
	buf := captureLogs(t)

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(ContextMiddleware())
	app.Use(TracingMiddleware())
	app.Use(StructuredLogger())
	app.Get("/me", func(c *fiber.Ctx) error {
		c.Locals(LocalUserEmail, "ana@example.com")
		c.SetUserContext(WithUserEmail(c.UserContext(), "ana@example.com"))
		return c.SendStatus(fiber.StatusNotFound)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "request processed", record["msg"])
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, float64(http.StatusNotFound), record["status"])
	assert.Equal(t, "ana@example.com", record["user_email"])
	assert.Equal(t, resp.Header.Get(fiber.HeaderXRequestID), record["request_id"])
	assert.Equal(t, resp.Header.Get(TraceIDHeader), record["trace_id"])
}

func TestLogWithoutRequestContext(t *testing.T) {
	buf := captureLogs(t)

	Logger.Info("startup")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.NotContains(t, record, "request_id")
	assert.NotContains(t, record, "user_email")
}
