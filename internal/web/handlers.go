package web

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"agecalc/internal/form"
	"agecalc/internal/ics"
	appLog "agecalc/internal/log"
	"agecalc/internal/model"
)

// maxImportBytes caps uploaded calendars.
const maxImportBytes = 1 << 20

type pageData struct {
	State    model.FormState
	Timezone string
}

// handleForm renders the form. Query parameters, when present, are
// treated as a submission so a result page has a plain URL.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	in := inputFrom(r.URL.Query())
	if in.Empty() {
		s.render(w, r, http.StatusOK, form.Idle(s.calc.Today()))
		return
	}
	state, outcome := s.submit(r, in)
	s.render(w, r, statusFor(outcome), state)
}

// handleSubmit handles POST / from the form.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	state, outcome := s.submit(r, inputFrom(r.PostForm))
	s.render(w, r, statusFor(outcome), state)
}

// handleAge is the JSON flavour of a submission. upcoming, when set,
// also lists that many anniversaries (at most ics.MaxUpcoming).
//
// GET /api/age?day=15&month=5&year=1990&upcoming=3
func (s *Server) handleAge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n := 0
	if raw := strings.TrimSpace(q.Get("upcoming")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "upcoming must be a non-negative integer")
			return
		}
		n = v
	}

	state, outcome := s.submit(r, inputFrom(q))
	if outcome == form.OutcomeResult && n > 0 {
		upcoming, err := ics.Upcoming(*state.Entered, state.Today, n)
		if err != nil {
			appLog.ErrorContext(r.Context(), "upcoming birthdays failed", err)
			writeError(w, http.StatusInternalServerError, "failed to list birthdays")
			return
		}
		state.Upcoming = upcoming
	}
	writeJSON(w, statusFor(outcome), state)
}

// handleAgeICS exports the entered birth date as a yearly iCalendar event.
//
// GET /api/age.ics?day=15&month=5&year=1990&name=Ada
func (s *Server) handleAgeICS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state, outcome := s.submit(r, inputFrom(q))
	if outcome != form.OutcomeResult {
		writeJSON(w, statusFor(outcome), state)
		return
	}

	summary := s.cfg.CalendarName
	if name := strings.TrimSpace(q.Get("name")); name != "" {
		summary = name + "'s birthday"
	}
	body, err := ics.ExportBirthday(*state.Entered, summary, time.Now())
	if err != nil {
		appLog.ErrorContext(r.Context(), "ics export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to export calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="birthday.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleImport reads an uploaded calendar and computes the age for the
// first event in it.
//
// POST /api/import (body: text/calendar)
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) > maxImportBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "calendar too large")
		return
	}
	events, err := ics.ParseBirthdays(bytes.TrimSpace(body))
	if err != nil {
		appLog.FromContext(r.Context()).Warn("import rejected", "err", err)
		writeError(w, http.StatusBadRequest, "no usable event in calendar")
		return
	}

	d := events[0].Date
	appLog.FromContext(r.Context()).Info("import",
		"events", len(events),
		"uid", events[0].UID,
		"date", d.String(),
		"yearly", events[0].Yearly,
	)
	if !events[0].Yearly {
		w.Header().Set("Warning", `199 - "event does not recur yearly"`)
	}
	state, outcome := s.submit(r, form.Input{
		Day:   model.Pad(d.Day),
		Month: model.Pad(d.Month),
		Year:  model.Pad(d.Year),
	})
	writeJSON(w, statusFor(outcome), state)
}

func (s *Server) submit(r *http.Request, in form.Input) (model.FormState, form.Outcome) {
	state, outcome := form.Submit(in, s.calc)
	if s.metrics != nil {
		s.metrics.IncrementSubmissions(string(outcome))
	}
	appLog.FromContext(r.Context()).Info("submission",
		"outcome", outcome,
		"day", in.Day,
		"month", in.Month,
		"year", in.Year,
	)
	return state, outcome
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, state model.FormState) {
	var buf bytes.Buffer
	data := pageData{State: state, Timezone: s.cfg.Timezone}
	if err := s.page.Execute(&buf, data); err != nil {
		appLog.ErrorContext(r.Context(), "render failed", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func inputFrom(v url.Values) form.Input {
	return form.Input{
		Day:   v.Get("day"),
		Month: v.Get("month"),
		Year:  v.Get("year"),
	}
}

func statusFor(outcome form.Outcome) int {
	if outcome == form.OutcomeResult {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}
