package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		out = append(out, entry)
	}
	return out
}

func TestNewZapLogger_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "booking.log")

	l, err := NewZapLogger(ZapConfig{Level: "debug", ServiceName: "booking-service", FilePath: path}, nil)
	require.NoError(t, err)

	l.Info("payment initiated", String("checkout_request_id", "ws_CO_1"), Int("attempt", 1))
	require.NoError(t, l.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, "payment initiated", lines[0]["message"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "booking-service", lines[0]["service"])
	assert.Equal(t, "ws_CO_1", lines[0]["checkout_request_id"])
}

func TestNewZapLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	l, err := NewZapLogger(ZapConfig{Level: "loud", FilePath: path}, nil)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("shown")
	require.NoError(t, l.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}

func TestGlobalLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "global.log")
	l, err := NewZapLogger(ZapConfig{Level: "info", FilePath: path}, nil)
	require.NoError(t, err)

	SetGlobalLogger(l)
	defer SetGlobalLogger(nil)

	assert.Same(t, l, GetGlobalLogger())
	Warn("careful", Bool("late", true))
	require.NoError(t, l.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, true, lines[0]["late"])
}

func TestZapEchoMiddleware(t *testing.T) {
	path := filepath.Join(t.TempDir(), "http.log")
	l, err := NewZapLogger(ZapConfig{Level: "info", FilePath: path}, nil)
	require.NoError(t, err)

	e := echo.New()
	mw := ZapEchoMiddleware(l)

	t.Run("success is logged at info", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health?verbose=1", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := mw(func(c echo.Context) error {
			return c.String(http.StatusOK, "ok")
		})(c)
		assert.NoError(t, err)
	})

	t.Run("handler error is rendered and logged", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/boom", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := mw(func(c echo.Context) error {
			return errors.New("boom")
		})(c)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("probes are not logged", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/live", nil), rec)
		require.NoError(t, mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c))
	})

	t.Run("websocket token is redacted", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/b-1/live?access_token=eyJhbGciOi", nil)
		c := e.NewContext(req, rec)
		require.NoError(t, mw(func(c echo.Context) error { return c.NoContent(http.StatusUnauthorized) })(c))
	})

	require.NoError(t, l.Close())
	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, "Request processed", lines[0]["message"])
	assert.Equal(t, "/health?verbose=1", lines[0]["path"])
	assert.Equal(t, "Server error", lines[1]["message"])
	assert.Equal(t, float64(500), lines[1]["status"])
	assert.Equal(t, "Client error", lines[2]["message"])
	assert.Equal(t, "/api/v1/bookings/b-1/live?access_token=REDACTED", lines[2]["path"])
	assert.NotContains(t, lines[2]["path"], "eyJ")
}

func TestNewZapLogger_AddsEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.log")
	l, err := NewZapLogger(ZapConfig{Level: "info", ServiceName: "notification-service", Environment: "staging", FilePath: path}, nil)
	require.NoError(t, err)

	l.Info("consumer started")
	require.NoError(t, l.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, "staging", lines[0]["env"])
	assert.Equal(t, "notification-service", lines[0]["service"])
}

func TestEncodeFieldsLayersContext(t *testing.T) {
	base := encodeFields(nil, []Field{String("booking_id", "b-1")})
	attrs := encodeFields(base, []Field{String("channel", "email"), Int("attempt", 2)})

	assert.Equal(t, map[string]interface{}{"booking_id": "b-1", "channel": "email", "attempt": int64(2)}, attrs)
	assert.Len(t, base, 1)
}
