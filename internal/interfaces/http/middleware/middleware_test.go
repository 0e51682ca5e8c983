package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/offramp/internal/infrastructure/auth"
	"github.com/orris-inc/offramp/internal/shared/authorization"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	"github.com/orris-inc/offramp/internal/shared/constants"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path string, body io.Reader, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	clock := biztime.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	jwtSvc := auth.NewJWTService("test-secret", "offramp", time.Hour, clock)
	token, err := jwtSvc.Issue("user_42", authorization.RoleAdmin)
	require.NoError(t, err)

	otherIssuer := auth.NewJWTService("test-secret", "someone-else", time.Hour, clock)
	foreign, err := otherIssuer.Issue("user_42", authorization.RoleAdmin)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", NewAuthMiddleware(jwtSvc, logger.NewNop()).RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, "%s/%s", c.GetString(constants.ContextKeySubject), c.GetString(constants.ContextKeyUserRole))
	})

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"valid bearer", "Bearer " + token, http.StatusOK, "user_42/admin"},
		{"lowercase scheme", "bearer " + token, http.StatusOK, "user_42/admin"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, ""},
		{"wrong issuer", "Bearer " + foreign, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := map[string]string{}
			if tt.header != "" {
				header[constants.HeaderAuthorization] = tt.header
			}
			w := perform(r, http.MethodGet, "/me", nil, header)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}

	t.Run("expired", func(t *testing.T) {
		clock.Advance(2 * time.Hour)
		defer clock.Advance(-2 * time.Hour)
		w := perform(r, http.MethodGet, "/me", nil, map[string]string{
			constants.HeaderAuthorization: "Bearer " + token,
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/", RequestID(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(constants.ContextKeyRequestID))
	})

	t.Run("propagates caller id", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/", nil, map[string]string{constants.HeaderXRequestID: "req-123"})
		assert.Equal(t, "req-123", w.Body.String())
		assert.Equal(t, "req-123", w.Header().Get(constants.HeaderXRequestID))
	})

	t.Run("assigns when missing or oversized", func(t *testing.T) {
		for _, in := range []string{"", strings.Repeat("a", maxRequestIDLength+1)} {
			w := perform(r, http.MethodGet, "/", nil, map[string]string{constants.HeaderXRequestID: in})
			assert.Len(t, w.Body.String(), 36)
			assert.Equal(t, w.Body.String(), w.Header().Get(constants.HeaderXRequestID))
		}
	})
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.POST("/", BodyLimit(8), func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/", strings.NewReader("12345678"), nil).Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, perform(r, http.MethodPost, "/", strings.NewReader("123456789"), nil).Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://ops.example.com"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, http.MethodGet, "/", nil, map[string]string{"Origin": "https://ops.example.com"})
	assert.Equal(t, "https://ops.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = perform(r, http.MethodGet, "/", nil, map[string]string{"Origin": "https://evil.example.com"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = perform(r, http.MethodOptions, "/", nil, map[string]string{"Origin": "https://ops.example.com"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(logger.NewNop()))
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := perform(r, http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error occurred")
}

type recordingObserver struct {
	route string
	code  string
}

func (o *recordingObserver) ObserveHTTP(method, route, code string, elapsed time.Duration) {
	o.route, o.code = route, code
}

func TestCustomLogger_ObservesRouteTemplate(t *testing.T) {
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(CustomLogger(logger.NewNop(), obs))
	r.GET("/intents/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	perform(r, http.MethodGet, "/intents/si_123", nil, nil)

	assert.Equal(t, "/intents/:id", obs.route)
	assert.Equal(t, "404", obs.code)
}

func TestRateLimiter(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer client.Close()

	name := "test-" + time.Now().Format("150405.000000")
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		c.Set(constants.ContextKeySubject, "user_42")
	}, NewRateLimiter(client, name, 2, time.Minute, logger.NewNop()).Limit(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/", nil, nil).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/", nil, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, perform(r, http.MethodPost, "/", nil, nil).Code)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	r := gin.New()
	r.POST("/", NewRateLimiter(client, "down", 1, time.Minute, logger.NewNop()).Limit(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/", nil, nil).Code)
	}
}
