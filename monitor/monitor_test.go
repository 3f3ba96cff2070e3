package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/murderboard/actions"
)

func TestObserveAction(t *testing.T) {
	m := NewMonitor("murderboard_test")

	m.ObserveAction(actions.NewStartSession(), time.Millisecond)
	m.ObserveAction(actions.NewEliminateCharacter("plum"), time.Millisecond)
	m.ObserveAction(actions.NewEliminateNobody(), time.Millisecond)
	m.ObserveAction(actions.NewEliminateNobody(), time.Millisecond)
	m.ObserveAction(actions.NewGuessFailed(), time.Millisecond)
	m.ObserveAction(actions.NewGuessSuccess(), time.Millisecond)

	metrics := m.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Eliminations.WithLabelValues("character")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Eliminations.WithLabelValues("nobody")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Guesses.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Guesses.WithLabelValues("success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ActionsDispatched.WithLabelValues(string(actions.EliminateCharacter))))
}

func TestGauges(t *testing.T) {
	m := NewMonitor("murderboard_test")

	m.IncOnlineSessions()
	m.IncOnlineSessions()
	m.DecOnlineSessions()
	m.SetActiveGames(3)
	m.IncMessagesReceived()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().OnlineSessions))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Metrics().ActiveGames))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().MessagesReceived))
}

func TestHandler_ServesMetrics(t *testing.T) {
	m := NewMonitor("murderboard_test")
	m.SetActiveGames(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "murderboard_test_active_games 2"))
}
