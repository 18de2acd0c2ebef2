package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-premium-backend/internal/sysutil"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var fromCtx string
	r.GET("/rid", func(c *gin.Context) {
		if GetRequestID(c) == "" {
			t.Errorf("requestID not set in gin context")
		}
		fromCtx = sysutil.RequestIDFrom(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rid", nil))
	gen := w.Header().Get(requestIDHeader)
	if gen == "" || fromCtx != gen {
		t.Fatalf("generated id %q, request ctx id %q", gen, fromCtx)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rid", nil)
	req.Header.Set(strings.ToLower(requestIDHeader), "abc-123")
	r.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "abc-123" || fromCtx != "abc-123" {
		t.Fatalf("propagated id = %q (ctx %q)", got, fromCtx)
	}
}

func TestRequestID_OversizedHeaderIsReplaced(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/rid", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	long := strings.Repeat("x", maxRequestIDLength+1)
	req := httptest.NewRequest(http.MethodGet, "/rid", nil)
	req.Header.Set(requestIDHeader, long)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	got := w.Header().Get(requestIDHeader)
	if got == "" || got == long {
		t.Fatalf("oversized id should be replaced, got %q", got)
	}
}

func TestLogger_ScopedInGinAndRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Logger())
	r.POST("/api/predict", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("from gin")
		zerolog.Ctx(c.Request.Context()).Info().Msg("from service")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/predict", nil)
	req.Header.Set(requestIDHeader, "rid-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d:\n%s", len(lines), buf.String())
	}
	for _, l := range lines {
		var m map[string]any
		if err := json.Unmarshal([]byte(l), &m); err != nil {
			t.Fatalf("bad log line %q: %v", l, err)
		}
		if m["request_id"] != "rid-42" || m["method"] != "POST" || m["path"] != "/api/predict" {
			t.Fatalf("missing scoped fields: %v", m)
		}
	}
}

func TestLoggerFrom_FallbackWithoutLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.GET("/use", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("custom")
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/use", nil))

	out := buf.String()
	if !strings.Contains(out, `"message":"custom"`) {
		t.Fatalf("fallback logger did not write: %s", out)
	}
	if strings.Contains(out, `"request_id"`) {
		t.Fatalf("fallback logger should carry no request fields: %s", out)
	}
}

func TestRecovery_PanicsToJSON500AndLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(requestIDHeader, "rid-p")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	if body["code"] != "internal_error" || body["error"] != "internal server error" || body["request_id"] != "rid-p" {
		t.Fatalf("unexpected body: %v", body)
	}
	out := buf.String()
	if !strings.Contains(out, `"panic recovered"`) || !strings.Contains(out, `"request_id":"rid-p"`) {
		t.Fatalf("expected scoped panic log, got:\n%s", out)
	}
}

func TestRecovery_PanicAfterWrite_NoJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery())
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial-body")
		panic("late kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))

	if strings.Contains(w.Body.String(), "internal server error") {
		t.Fatalf("no JSON error body expected after a write; got %q", w.Body.String())
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatalf("expected panic log, got:\n%s", buf.String())
	}
}

func TestAsString(t *testing.T) {
	if asString("x") != "x" || asString(123) != "" || asString(nil) != "" {
		t.Fatalf("asString failed")
	}
}
