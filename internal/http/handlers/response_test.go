package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func Test_fail_500_LogsCauseButHidesIt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-500")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeStoreUnavailable, msgListFailed, errors.New("database is locked"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp != (ErrorResponse{RequestID: "rid-500", Code: "store_unavailable", Error: "Failed to fetch prediction history."}) {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if strings.Contains(w.Body.String(), "locked") {
		t.Fatalf("cause leaked to client: %s", w.Body.String())
	}

	logs := buf.String()
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, `"error":"database is locked"`) {
		t.Fatalf("expected error log with cause, got: %s", logs)
	}
}

func Test_Fail_4xx_NotLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-404")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/missing", func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json 404: %v", err)
	}
	if w.Code != http.StatusNotFound || er.RequestID != "rid-404" || er.Code != "not_found" || er.Error != "route not found" {
		t.Fatalf("unexpected 404: %d %+v", w.Code, er)
	}
	if buf.Len() != 0 {
		t.Fatalf("4xx should not be logged here: %s", buf.String())
	}
}
