package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.IncrementSubmissions("result")
	m.IncrementSubmissions("result")
	m.IncrementSubmissions("invalid_date")
	m.IncrementRollovers()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("result")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("invalid_date")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rollovers))

	// A second instance must not collide with the first.
	other := New()
	assert.Equal(t, 0.0, testutil.ToFloat64(other.Rollovers))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest("/", http.MethodPost, http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `agecalc_http_request_duration_seconds_count{code="200",method="POST",route="/"} 1`)
}
