package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/propsign/backend/internal/infrastructure/telemetry"
)

func TestHTTPMetricsDisabledPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:     false,
		ServiceName: "test-service",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	router := gin.New()
	router.Use(HTTPMetrics(HTTPMetricsConfig{
		MeterProvider: mp,
		ServiceName:   "test-service",
		Enabled:       true,
	}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPMetricsNilProviderPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(HTTPMetrics(HTTPMetricsConfig{
		MeterProvider: nil,
		ServiceName:   "test-service",
		Enabled:       true,
	}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewHTTPMetricsCreatesInstruments(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:     false,
		ServiceName: "test-service",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	m, err := newHTTPMetrics(mp.Meter("test-service"))
	require.NoError(t, err)
	assert.NotNil(t, m.requestTotal)
	assert.NotNil(t, m.requestDuration)
	assert.NotNil(t, m.activeRequests)
}
