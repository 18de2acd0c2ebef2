package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-premium-backend/internal/http/middleware"
	"github.com/tbourn/go-premium-backend/internal/services"
)

type stubEstimates struct {
	got []byte
	out []byte
	err error
}

func (s *stubEstimates) Estimate(_ context.Context, payload []byte) ([]byte, error) {
	s.got = payload
	return s.out, s.err
}

func predictRouter(est EstimateService, maxBody int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	if maxBody > 0 {
		r.Use(func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
			c.Next()
		})
	}
	h := New(est, nil)
	r.POST("/api/predict", h.Predict)
	return r
}

func postJSON(r http.Handler, path, body string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &er), w.Body.String())
	assert.Equal(t, w.Header().Get("X-Request-ID"), er.RequestID)
	return er
}

func TestPredict_RelaysUpstreamJSON(t *testing.T) {
	upstream := `{"predicted_premium":24500.75,"age_group_analysis":{"min_premium":15000,"avg_premium":25000,"max_premium":40000,"age_range":"40-49"}}`
	est := &stubEstimates{out: []byte(upstream)}
	payload := `{"age":45,"bmi":22.86,"anyTransplants":0,"numberOfMajorSurgeries":1}`

	w := postJSON(predictRouter(est, 0), "/api/predict", payload)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, upstream, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, payload, string(est.got))
}

func TestPredict_ValidationError(t *testing.T) {
	est := &stubEstimates{err: fmt.Errorf("%w: missing field %q", services.ErrValidation, "bmi")}
	w := postJSON(predictRouter(est, 0), "/api/predict", `{"age":45}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	er := errorBody(t, w)
	assert.Equal(t, ErrCodeValidation, er.Code)
}

func TestPredict_UpstreamFailureIsGeneric(t *testing.T) {
	est := &stubEstimates{err: fmt.Errorf("%w: dial tcp 10.0.0.7:5001: connection refused", services.ErrUpstreamUnavailable)}
	w := postJSON(predictRouter(est, 0), "/api/predict", `{"age":45,"bmi":1,"anyTransplants":0,"numberOfMajorSurgeries":0}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	er := errorBody(t, w)
	assert.Equal(t, ErrCodeUpstreamUnavailable, er.Code)
	assert.Equal(t, "Failed to get a prediction from the ML service.", er.Error)
	assert.NotContains(t, w.Body.String(), "10.0.0.7")
}

func TestPredict_BodyTooLarge(t *testing.T) {
	est := &stubEstimates{}
	w := postJSON(predictRouter(est, 16), "/api/predict", `{"age":45,"bmi":22.86,"anyTransplants":0,"numberOfMajorSurgeries":1}`)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, ErrCodePayloadTooLarge, errorBody(t, w).Code)
	assert.Nil(t, est.got, "oversized body must not reach the service")
}
