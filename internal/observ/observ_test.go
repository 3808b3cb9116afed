package observ

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		logger, err := NewLogger(env, "debug")
		require.NoError(t, err)
		require.NotNil(t, logger)
	}

	logger, err := NewLogger("development", "not-a-level")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1), "falls back to info")
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.AuthEvents.WithLabelValues("login", "ok").Inc()
	m.RealmsCreated.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RealmsCreated))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `realmhub_auth_events_total{event="login",result="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_Independent(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.RealmsCreated.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RealmsCreated))
}

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "error", Result(errors.New("x")))
}
