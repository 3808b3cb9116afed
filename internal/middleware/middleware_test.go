package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/realmhub/internal/access"
	"github.com/lalith-99/realmhub/internal/apperr"
	"github.com/lalith-99/realmhub/internal/observ"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthn struct {
	id  access.Identity
	err error
}

func (s stubAuthn) Authenticate(token string) (access.Identity, error) {
	if token != "good" {
		return access.Identity{}, apperr.ErrUnauthenticated
	}
	return s.id, s.err
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequireAuth(t *testing.T) {
	accountID := uuid.New()
	r := gin.New()
	r.POST("/me", RequireAuth(stubAuthn{id: access.Identity{AccountID: accountID}}), func(c *gin.Context) {
		c.String(http.StatusOK, GetAccountID(c).String())
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"bad token", "Bearer bad", http.StatusUnauthorized},
		{"ok", "Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, accountID.String(), rec.Body.String())
				return
			}
			assert.Equal(t, apperr.CodeUnauthenticated, decode(t, rec)["code"])
		})
	}
}

func TestGetIdentity_Unset(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, access.Identity{}, GetIdentity(c))
	assert.Equal(t, uuid.Nil, GetAccountID(c))
}

func TestAbortWithError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	AbortWithError(c, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "internal", body["code"])
	assert.Equal(t, "internal error", body["message"])
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := rec.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 26)
	assert.Equal(t, generated, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "client-id")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "client-id", rec.Header().Get(HeaderRequestID))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com"}))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_AllowAll(t *testing.T) {
	r := gin.New()
	r.Use(CORS(nil))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

type countingLimiter struct {
	budget int
	err    error
}

func (l *countingLimiter) Allow(context.Context, string) (bool, error) {
	if l.err != nil {
		return true, l.err
	}
	l.budget--
	return l.budget >= 0, nil
}

func TestRateLimit(t *testing.T) {
	m := observ.NewMetrics()
	r := gin.New()
	r.POST("/login", RateLimit(&countingLimiter{budget: 1}, m, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, apperr.CodeResourceExhausted, decode(t, rec)["code"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited.WithLabelValues("/login")))
}

func TestRateLimit_FailsOpen(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := gin.New()
	r.POST("/login", RateLimit(&countingLimiter{err: errors.New("redis down")}, observ.NewMetrics(), zap.New(core)), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, logs.FilterMessage("rate limiter unavailable").Len())
}

func TestAccessLogAndMetrics(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := observ.NewMetrics()
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.New(core)), Metrics(m))
	r.GET("/things/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/42", nil))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/things/:id", fields["route"])
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
	assert.NotEmpty(t, fields["request_id"])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/things/:id", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
}
