package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistriesAreIndependent(t *testing.T) {
	a := NewMetrics("setgame")
	b := NewMetrics("setgame")

	a.Commands.WithLabelValues("ask").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Commands.WithLabelValues("ask")))
	assert.Zero(t, testutil.ToFloat64(b.Commands.WithLabelValues("ask")))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics("setgame")
	m.Laydowns.WithLabelValues("own_team").Inc()
	m.GamesFinished.WithLabelValues("A").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `setgame_laydowns_total{outcome="own_team"} 1`), body)
	assert.Contains(t, body, `setgame_games_finished_total{winner="A"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
