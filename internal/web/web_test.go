package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agecalc/internal/clock"
	"agecalc/internal/config"
	"agecalc/internal/datediff"
	"agecalc/internal/ics"
	"agecalc/internal/metrics"
	"agecalc/internal/model"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *metrics.Metrics) {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	m := metrics.New()
	calc := datediff.New(clock.Fixed{Year: 2024, Month: 3, Day: 1})
	return NewServer(cfg, calc, m), m
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestFormIdle(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-status="idle"`)
	assert.Contains(t, body, `<span id="years">--</span>`)
	assert.Contains(t, body, "Today is 2024-03-01 (UTC)")
}

func TestFormSubmitResult(t *testing.T) {
	s, m := newTestServer(t, nil)
	rec := do(t, s.Handler(), postForm(url.Values{"day": {"31"}, "month": {"1"}, "year": {"2000"}}))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-status="result"`)
	assert.Contains(t, body, `<span id="years">24</span>`)
	assert.Contains(t, body, `<span id="months">01</span>`)
	assert.Contains(t, body, `<span id="days">01</span>`)
	assert.Contains(t, body, `value="31"`)
	assert.Contains(t, body, "Next birthday on 2025-01-31")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("result")))
}

func TestFormSubmitErrors(t *testing.T) {
	s, m := newTestServer(t, nil)

	rec := do(t, s.Handler(), postForm(url.Values{"day": {"32"}, "month": {"x"}, "year": {"1990"}}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-field="day">Must be a valid day`)
	assert.Contains(t, body, `data-field="month">Must be a valid month`)
	assert.NotContains(t, body, `data-field="year"`)
	assert.Contains(t, body, `<span id="years">--</span>`)

	rec = do(t, s.Handler(), postForm(url.Values{"day": {"31"}, "month": {"2"}, "year": {"2000"}}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-field="date">Must be a valid date`)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("parse_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("invalid_date")))
}

func TestFormQueryPrefill(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/?day=15&month=5&year=1990", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<span id="years">33</span>`)
	assert.Contains(t, rec.Body.String(), `data-ready="true"`)
}

func TestAPIAge(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/age?day=31&month=1&year=2000", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var state model.FormState
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Equal(t, model.StatusResult, state.Status)
	require.NotNil(t, state.Duration)
	assert.Equal(t, model.PaddedDuration{Years: "24", Months: "01", Days: "01"}, *state.Duration)
	assert.Equal(t, model.CalendarDate{Year: 2024, Month: 3, Day: 1}, state.Today)
	require.NotNil(t, state.Next)
	assert.Equal(t, 25, state.Next.Age)
}

func TestAPIAgeErrors(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/age?day=2&month=3&year=2024", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var state model.FormState
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Equal(t, model.StatusError, state.Status)
	assert.Equal(t, "Must be in the past", state.DateError)
	assert.Nil(t, state.Duration)

	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/age?day=1&month=13&year=2025", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	state = model.FormState{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Equal(t, "Must be a valid month", state.FieldErrors[model.FieldMonth])
	assert.Equal(t, "Must be a valid year", state.FieldErrors[model.FieldYear])
}

func TestAPIAgeUpcoming(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/age?day=29&month=2&year=2020&upcoming=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var state model.FormState
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	require.Len(t, state.Upcoming, 2)
	assert.Equal(t, model.CalendarDate{Year: 2025, Month: 2, Day: 28}, state.Upcoming[0].Date)
	assert.True(t, state.Upcoming[0].Observed)
	assert.Equal(t, model.CalendarDate{Year: 2026, Month: 2, Day: 28}, state.Upcoming[1].Date)
	assert.Equal(t, 6, state.Upcoming[1].Age)

	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/age?day=1&month=1&year=2000&upcoming=1000000000", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	state = model.FormState{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Len(t, state.Upcoming, ics.MaxUpcoming)

	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/age?day=1&month=1&year=2000&upcoming=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/age?day=1&month=1&year=2000", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	state = model.FormState{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Empty(t, state.Upcoming)
}

func TestFormObservedBirthday(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/?day=29&month=2&year=2020", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Next birthday on 2025-02-28, turning 5")
	assert.Contains(t, body, "29 February falls on the 28th this year.")

	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/?day=15&month=5&year=1990", nil))
	assert.NotContains(t, rec.Body.String(), "29 February")
}

func TestAPIAgeICS(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/age.ics?day=15&month=5&year=1990&name=Ada", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")

	events, err := ics.ParseBirthdays(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Ada's birthday", events[0].Summary)
	assert.Equal(t, model.CalendarDate{Year: 1990, Month: 5, Day: 15}, events[0].Date)

	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/age.ics?day=30&month=2&year=1990", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAPIImport(t *testing.T) {
	s, _ := newTestServer(t, nil)
	body, err := ics.ExportBirthday(model.CalendarDate{Year: 2000, Month: 1, Day: 31}, "x", time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "text/calendar")
	rec := do(t, s.Handler(), req)
	require.Equal(t, http.StatusOK, rec.Code)

	var state model.FormState
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	require.NotNil(t, state.Duration)
	assert.Equal(t, "24", state.Duration.Years)
	assert.Empty(t, rec.Header().Get("Warning"))

	single := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\nBEGIN:VEVENT\r\nUID:one\r\nSUMMARY:once\r\nDTSTART;VALUE=DATE:20000131\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(single)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Warning"), "does not recur yearly")

	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader("garbage")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "u", Password: "p"}
	})
	h := s.Handler()

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("u", "p")
	rec = do(t, h, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("u", "wrong")
	rec = do(t, h, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()
	do(t, h, httptest.NewRequest(http.MethodGet, "/api/age?day=1&month=1&year=2000", nil))

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `agecalc_submissions_total{outcome="result"} 1`)
	assert.Contains(t, body, `route="/api/age"`)

	off, _ := newTestServer(t, func(c *config.Config) { c.Metrics = false })
	rec = do(t, off.Handler(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	s, _ := newTestServer(t, nil)
	id := "0b9a3c0e-7a39-4bb1-9d8e-1f2c3d4e5f60"
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", id)
	rec := do(t, s.Handler(), req)
	assert.Equal(t, id, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	rec = do(t, s.Handler(), req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get("X-Request-ID"))
}

func TestServeShutsDown(t *testing.T) {
	s, _ := newTestServer(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "OK", string(b))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
