package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/auth"
)

// logLines decodes each JSON log line written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{"generated", ""},
		{"propagated", "lab-req-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var stored string
			err := RequestID()(func(c echo.Context) error {
				stored, _ = c.Get("request_id").(string)
				return nil
			})(c)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			header := rec.Header().Get(RequestIDHeader)
			if header == "" || header != stored {
				t.Errorf("header %q and context %q should match and be non-empty", header, stored)
			}
			if tt.incoming != "" && stored != tt.incoming {
				t.Errorf("expected %s, got %s", tt.incoming, stored)
			}
		})
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestID(), Logger(zerolog.New(&buf)))
	api := e.Group("", auth.DevAuthMiddleware(auth.JWTConfig{}))
	api.GET("/tests/:id", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/tests/abc", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	e.ServeHTTP(httptest.NewRecorder(), req)

	lines := logLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(lines))
	}
	l := lines[0]
	if l["level"] != "info" || l["route"] != "/tests/:id" || l["path"] != "/tests/abc" || l["request_id"] != "rid-1" || l["user_id"] != "dev-user" {
		t.Errorf("unexpected log fields: %v", l)
	}
}

func TestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		name    string
		handler echo.HandlerFunc
		status  int
		level   string
	}{
		{"ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, http.StatusOK, "info"},
		{"not found", func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "lab test not found") }, http.StatusNotFound, "warn"},
		{"conflict", func(c echo.Context) error { return echo.NewHTTPError(http.StatusConflict, "invalid alert transition") }, http.StatusConflict, "warn"},
		{"server error", func(c echo.Context) error { return echo.NewHTTPError(http.StatusInternalServerError, "store down") }, http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			err := Logger(zerolog.New(&buf))(tt.handler)(c)
			if (err != nil) != (tt.status >= 400) {
				t.Errorf("unexpected error return: %v", err)
			}
			if rec.Code != tt.status {
				t.Errorf("expected status %d written, got %d", tt.status, rec.Code)
			}
			lines := logLines(t, &buf)
			if len(lines) != 1 || lines[0]["level"] != tt.level {
				t.Errorf("expected one %s line, got %v", tt.level, lines)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	t.Run("panic becomes 500", func(t *testing.T) {
		var buf bytes.Buffer
		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/tests", nil), httptest.NewRecorder())
		c.Set("request_id", "rid-panic")

		err := Recovery(zerolog.New(&buf))(func(c echo.Context) error { panic("nil catalog") })(c)
		httpErr, ok := err.(*echo.HTTPError)
		if !ok {
			t.Fatalf("expected echo.HTTPError, got %T", err)
		}
		if httpErr.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", httpErr.Code)
		}
		lines := logLines(t, &buf)
		if len(lines) != 1 || lines[0]["panic"] != "nil catalog" || lines[0]["request_id"] != "rid-panic" {
			t.Errorf("unexpected panic log: %v", lines)
		}
	})

	t.Run("passes through", func(t *testing.T) {
		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		if err := Recovery(zerolog.Nop())(func(c echo.Context) error { return nil })(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
