package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newHeaderRouter(mw gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw)
	router.GET("/api/v1/parties", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func doRequest(router *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/parties", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORSDefaults(t *testing.T) {
	router := newHeaderRouter(CORS())

	t.Run("cross-origin callers get no CORS headers until configured", func(t *testing.T) {
		w := doRequest(router, "GET", "http://elsewhere.example")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("same-origin requests pass through", func(t *testing.T) {
		w := doRequest(router, "GET", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("preflight still answers 204", func(t *testing.T) {
		w := doRequest(router, "OPTIONS", "http://elsewhere.example")

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestCORSWithConfig(t *testing.T) {
	feedOrigin := "http://parties.temple.edu"

	t.Run("echoes a whitelisted origin with credentials", func(t *testing.T) {
		router := newHeaderRouter(CORSWithConfig(CORSConfig{
			AllowOrigins:     []string{feedOrigin, "http://localhost:3000"},
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: true,
		}))

		for _, origin := range []string{feedOrigin, "http://localhost:3000"} {
			w := doRequest(router, "GET", origin)
			assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		}
	})

	t.Run("unlisted origins get no headers", func(t *testing.T) {
		router := newHeaderRouter(CORSWithConfig(CORSConfig{
			AllowOrigins: []string{feedOrigin},
		}))

		w := doRequest(router, "GET", "http://not-allowed.example")
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard allows any origin but never credentials", func(t *testing.T) {
		router := newHeaderRouter(CORSWithConfig(CORSConfig{
			AllowOrigins:     []string{"*"},
			AllowMethods:     []string{"GET"},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: true,
		}))

		w := doRequest(router, "GET", "http://any-origin.example")
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("writes method, header, expose and max-age fields", func(t *testing.T) {
		router := newHeaderRouter(CORSWithConfig(CORSConfig{
			AllowOrigins:  []string{feedOrigin},
			AllowMethods:  []string{"GET", "POST", "PUT"},
			AllowHeaders:  []string{"Content-Type", "Authorization"},
			ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Remaining"},
			MaxAge:        12 * time.Hour,
		}))

		w := doRequest(router, "GET", feedOrigin)
		assert.Equal(t, "GET, POST, PUT", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "X-Request-ID, X-RateLimit-Remaining", w.Header().Get("Access-Control-Expose-Headers"))
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("preflight from an allowed origin carries the policy", func(t *testing.T) {
		router := newHeaderRouter(CORSWithConfig(CORSConfig{
			AllowOrigins: []string{feedOrigin},
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Content-Type"},
		}))

		w := doRequest(router, "OPTIONS", feedOrigin)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, feedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("preflight from a disallowed origin answers 204 bare", func(t *testing.T) {
		router := newHeaderRouter(CORSWithConfig(CORSConfig{
			AllowOrigins: []string{feedOrigin},
		}))

		w := doRequest(router, "OPTIONS", "http://not-allowed.example")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/api/v1/parties", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	t.Run("generates an ID when the client sends none", func(t *testing.T) {
		w := doRequest(router, "GET", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())
	})

	t.Run("keeps a client-provided ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/parties", nil)
		req.Header.Set("X-Request-ID", "feed-req-7")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "feed-req-7", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "feed-req-7", w.Body.String())
	})

	t.Run("IDs are unique per request", func(t *testing.T) {
		first := doRequest(router, "GET", "").Header().Get("X-Request-ID")
		second := doRequest(router, "GET", "").Header().Get("X-Request-ID")
		assert.NotEqual(t, first, second)
	})
}

func TestSecureDefaults(t *testing.T) {
	w := doRequest(newHeaderRouter(Secure()), "GET", "")

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))

	csp := w.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "default-src 'self'")
	assert.Contains(t, csp, "frame-ancestors 'none'")

	// HSTS stays off until a deployment opts in.
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	assert.Contains(t, w.Header().Get("Permissions-Policy"), "camera=()")
}

func TestSecureWithConfig(t *testing.T) {
	t.Run("HSTS value reflects the flags", func(t *testing.T) {
		for _, tc := range []struct {
			cfg      SecurityConfig
			expected string
		}{
			{SecurityConfig{HSTSEnabled: true, HSTSMaxAge: 63072000, HSTSIncludeSubdomains: true, HSTSPreload: true}, "max-age=63072000; includeSubDomains; preload"},
			{SecurityConfig{HSTSEnabled: true, HSTSMaxAge: 31536000}, "max-age=31536000"},
		} {
			w := doRequest(newHeaderRouter(SecureWithConfig(tc.cfg)), "GET", "")
			assert.Equal(t, tc.expected, w.Header().Get("Strict-Transport-Security"))
		}
	})

	t.Run("custom CSP and Permissions-Policy directives pass through", func(t *testing.T) {
		w := doRequest(newHeaderRouter(SecureWithConfig(SecurityConfig{
			CSPEnabled:                 true,
			CSPDirective:               "default-src 'none'",
			PermissionsPolicyEnabled:   true,
			PermissionsPolicyDirective: "geolocation=(self)",
		})), "GET", "")

		assert.Equal(t, "default-src 'none'", w.Header().Get("Content-Security-Policy"))
		assert.Equal(t, "geolocation=(self)", w.Header().Get("Permissions-Policy"))
	})

	t.Run("disabled sections leave only the baseline headers", func(t *testing.T) {
		w := doRequest(newHeaderRouter(SecureWithConfig(SecurityConfig{})), "GET", "")

		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.Empty(t, w.Header().Get("Content-Security-Policy"))
		assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
		assert.Empty(t, w.Header().Get("Permissions-Policy"))
	})
}
