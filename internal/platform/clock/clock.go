// Package clock supplies the current instant in the configured timezone.
// Deadline math is calendar-day based, so everything that compares dates must
// go through the same Clock and location.
package clock

import (
	"math"
	"sync"
	"time"
)

// Clock yields the current instant bound to a fixed location.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// System is the wall clock in a fixed location.
type System struct {
	loc *time.Location
}

func NewSystem(loc *time.Location) *System {
	return &System{loc: loc}
}

func (s *System) Now() time.Time           { return time.Now().In(s.loc) }
func (s *System) Location() *time.Location { return s.loc }

// Fake is a settable clock for deterministic tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Location() *time.Location {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now.Location()
}

// Set moves the fake clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// DaysUntil returns the whole-day signed difference between now's calendar
// date and target's calendar date, both read in now's location. Negative when
// target is in the past.
func DaysUntil(now, target time.Time) int {
	loc := now.Location()
	a := midnight(now.In(loc))
	b := midnight(target.In(loc))
	// Rounding absorbs the 23/25-hour days around DST transitions.
	return int(math.Round(b.Sub(a).Hours() / 24))
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
