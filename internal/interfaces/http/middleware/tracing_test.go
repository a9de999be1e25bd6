package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newSpanRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	router := gin.New()
	router.Use(RequestID())
	router.Use(TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "parties-backend"}))
	router.Use(SpanEnrichment())
	return router, sr
}

func feedSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	t.Fatalf("no span named %q", name)
	return nil
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, attr := range span.Attributes() {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	router.GET("/api/v1/parties", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/parties", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTracingSpanPerRequest(t *testing.T) {
	router, sr := newSpanRouter(t)
	router.GET("/api/v1/parties/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/parties/11111111-1111-1111-1111-111111111111", nil))
	require.Equal(t, http.StatusOK, w.Code)

	// Span names use the route pattern, not the raw path.
	span := feedSpan(t, sr, "GET /api/v1/parties/:id")
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestSpanEnrichment(t *testing.T) {
	t.Run("tags the span with the request ID", func(t *testing.T) {
		router, sr := newSpanRouter(t)
		router.GET("/api/v1/parties", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{})
		})

		req := httptest.NewRequest("GET", "/api/v1/parties", nil)
		req.Header.Set("X-Request-ID", "feed-trace-1")
		router.ServeHTTP(httptest.NewRecorder(), req)

		span := feedSpan(t, sr, "GET /api/v1/parties")
		id, ok := spanAttr(span, "request_id")
		require.True(t, ok)
		assert.Equal(t, "feed-trace-1", id.AsString())
	})

	t.Run("tags the span with the authenticated user", func(t *testing.T) {
		router, sr := newSpanRouter(t)
		router.POST("/api/v1/parties", func(c *gin.Context) {
			c.Set(JWTUserIDKey, "tuf12345")
			c.JSON(http.StatusCreated, gin.H{})
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/v1/parties", nil))

		span := feedSpan(t, sr, "POST /api/v1/parties")
		userID, ok := spanAttr(span, "user_id")
		require.True(t, ok)
		assert.Equal(t, "tuf12345", userID.AsString())
	})

	t.Run("marks 4xx and 5xx responses as errors", func(t *testing.T) {
		for _, tc := range []struct {
			status  int
			message string
		}{
			{http.StatusBadRequest, "Client Error"},
			{http.StatusUnauthorized, "Unauthorized"},
			{http.StatusForbidden, "Forbidden"},
			{http.StatusNotFound, "Not Found"},
			{http.StatusInternalServerError, "Internal Server Error"},
		} {
			router, sr := newSpanRouter(t)
			router.GET("/api/v1/parties", func(c *gin.Context) {
				c.JSON(tc.status, gin.H{})
			})

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/parties", nil))

			span := feedSpan(t, sr, "GET /api/v1/parties")
			assert.Equal(t, codes.Error, span.Status().Code, tc.status)
			assert.Equal(t, tc.message, span.Status().Description)
		}
	})

	t.Run("leaves 2xx spans unset", func(t *testing.T) {
		router, sr := newSpanRouter(t)
		router.GET("/api/v1/parties", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{})
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/parties", nil))

		span := feedSpan(t, sr, "GET /api/v1/parties")
		assert.NotEqual(t, codes.Error, span.Status().Code)
	})

	t.Run("is a no-op without a recording span", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(SpanEnrichment())
		router.GET("/bare", func(c *gin.Context) {
			c.JSON(http.StatusTeapot, gin.H{})
		})

		w := httptest.NewRecorder()
		assert.NotPanics(t, func() {
			router.ServeHTTP(w, httptest.NewRequest("GET", "/bare", nil))
		})
		assert.Equal(t, http.StatusTeapot, w.Code)
	})
}

func TestSpanRequestIDTruncation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	long := make([]byte, MaxRequestIDLength+50)
	for i := range long {
		long[i] = 'a'
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/v1/parties", nil)
	c.Request.Header.Set("X-Request-ID", string(long))

	assert.Len(t, spanRequestID(c), MaxRequestIDLength)
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "parties-backend", cfg.ServiceName)
}
