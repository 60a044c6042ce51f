package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { RegisterMetrics(reg) })
	assert.Panics(t, func() { RegisterMetrics(reg) }, "second registration collides")
}

func TestRecordAuthEvent(t *testing.T) {
	before := testutil.ToFloat64(AuthEvents.WithLabelValues("login", OutcomeFailure))
	RecordAuthEvent("login", OutcomeFailure)
	assert.Equal(t, before+1, testutil.ToFloat64(AuthEvents.WithLabelValues("login", OutcomeFailure)))
}

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/api/v1/tours", "200"))
	RecordRequest("GET", "/api/v1/tours", "200", 15*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/api/v1/tours", "200")))
}

func TestRecordResetTokensCleared(t *testing.T) {
	before := testutil.ToFloat64(ResetTokensCleared)
	RecordResetTokensCleared(0)
	RecordResetTokensCleared(3)
	assert.Equal(t, before+3, testutil.ToFloat64(ResetTokensCleared))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordAuthEvent("signup", OutcomeSuccess)

	w := httptest.NewRecorder()
	Handler(NewRegistry()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "tourbooking_auth_events_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
