package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-premium-backend/internal/compare"
	"github.com/tbourn/go-premium-backend/internal/http/middleware"
)

func compareRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.POST("/api/compare", New(nil, nil).Compare)
	return r
}

func compareBody(t *testing.T, body string) CompareResponse {
	t.Helper()
	w := postJSON(compareRouter(), "/api/compare", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp CompareResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCompare_Placement(t *testing.T) {
	resp := compareBody(t, `{
		"user_price": 20000,
		"analysis": {"min_premium":10000,"avg_premium":20000,"max_premium":30000,"age_range":"40-49"}
	}`)

	require.True(t, resp.Available)
	require.NotNil(t, resp.Placement)
	assert.InDelta(t, 50, resp.Placement.UserPercent, 1e-9)
	require.NotNil(t, resp.Placement.AvgPercent)
	assert.InDelta(t, 50, *resp.Placement.AvgPercent, 1e-9)
	assert.Equal(t, compare.Summary("40-49"), resp.Summary)
	assert.Empty(t, resp.Message)

	assert.Equal(t, Amount{Value: 20000, Formatted: "₹20,000"}, resp.Annual)
	assert.Equal(t, Amount{Value: 1667, Formatted: "₹1,667"}, resp.Monthly)
	require.NotNil(t, resp.Min)
	assert.Equal(t, "₹10,000", resp.Min.Formatted)
	require.NotNil(t, resp.Max)
	assert.Equal(t, "₹30,000", resp.Max.Formatted)
}

func TestCompare_ClampsAndMissingAvg(t *testing.T) {
	resp := compareBody(t, `{
		"user_price": 95000,
		"analysis": {"min_premium":10000,"avg_premium":null,"max_premium":30000,"age_range":"60-69"}
	}`)

	require.True(t, resp.Available)
	assert.InDelta(t, 100, resp.Placement.UserPercent, 1e-9)
	assert.Nil(t, resp.Placement.AvgPercent)
	assert.Nil(t, resp.Avg)
}

func TestCompare_Fallback(t *testing.T) {
	cases := map[string]string{
		"no analysis": `{"user_price": 12000}`,
		"missing max": `{"user_price": 12000, "analysis": {"min_premium":10000,"age_range":"18-24"}}`,
		"zero span":   `{"user_price": 12000, "analysis": {"min_premium":10000,"max_premium":10000,"age_range":"18-24"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := compareBody(t, body)
			assert.False(t, resp.Available)
			assert.Equal(t, "Not enough data for your age group to build a comparison.", resp.Message)
			assert.Nil(t, resp.Placement)
			assert.Empty(t, resp.Summary)
			assert.Equal(t, "₹1,000", resp.Monthly.Formatted)
		})
	}
}

func TestCompare_BadRequest(t *testing.T) {
	for _, body := range []string{``, `{"analysis":{}}`, `[1]`} {
		w := postJSON(compareRouter(), "/api/compare", body)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, ErrCodeBadRequest, errorBody(t, w).Code)
	}
}
