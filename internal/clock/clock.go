// Package clock decides which calendar date "today" is.
package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "agecalc/internal/log"
	"agecalc/internal/model"
)

// Fixed is a clock stuck on one date.
type Fixed model.CalendarDate

func (f Fixed) Today() model.CalendarDate { return model.CalendarDate(f) }

// Zoned reports today's date in a timezone. The date is cached and
// refreshed by a cron job, normally at local midnight, so requests never
// race a date change halfway through.
type Zoned struct {
	loc  *time.Location
	spec string
	now  func() time.Time
	hook func(prev, cur model.CalendarDate)
	cron *cron.Cron

	mu    sync.RWMutex
	today model.CalendarDate
}

// Option configures a Zoned clock.
type Option func(*Zoned)

// WithNow replaces time.Now, for tests.
func WithNow(now func() time.Time) Option {
	return func(z *Zoned) { z.now = now }
}

// WithRolloverHook registers fn to run whenever a refresh changes the date.
func WithRolloverHook(fn func(prev, cur model.CalendarDate)) Option {
	return func(z *Zoned) { z.hook = fn }
}

// NewZoned returns a clock for loc whose cached date is refreshed on the
// standard 5-field cron spec, evaluated in loc.
func NewZoned(loc *time.Location, spec string, opts ...Option) (*Zoned, error) {
	if loc == nil {
		loc = time.UTC
	}
	z := &Zoned{
		loc:  loc,
		spec: spec,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(z)
	}
	z.cron = cron.New(cron.WithLocation(loc))
	if _, err := z.cron.AddFunc(spec, func() { z.Refresh() }); err != nil {
		return nil, fmt.Errorf("clock: rollover spec %q: %w", spec, err)
	}
	z.today = model.DateOf(z.now().In(loc))
	return z, nil
}

// Today returns the cached date.
func (z *Zoned) Today() model.CalendarDate {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.today
}

// Refresh recomputes today's date and returns it.
func (z *Zoned) Refresh() model.CalendarDate {
	cur := model.DateOf(z.now().In(z.loc))

	z.mu.Lock()
	prev := z.today
	z.today = cur
	z.mu.Unlock()

	if prev != cur {
		appLog.Info("date rollover", "from", prev.String(), "to", cur.String(), "timezone", z.loc.String())
		if z.hook != nil {
			z.hook(prev, cur)
		}
	}
	return cur
}

// Start runs the rollover schedule until ctx is canceled.
func (z *Zoned) Start(ctx context.Context) {
	z.Refresh()
	z.cron.Start()
	appLog.Info("clock started", "timezone", z.loc.String(), "rollover", z.spec, "today", z.Today().String())
	go func() {
		<-ctx.Done()
		z.Stop()
	}()
}

// Stop halts the schedule and waits for a running refresh to finish.
func (z *Zoned) Stop() {
	<-z.cron.Stop().Done()
}
