package cycle

import (
	"fmt"
	"time"
)

// Period selects how an account's quota window advances.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// Config is the billing-period configuration of one account.
//
// When Start/End are set they are resolved absolute bounds and win over
// StartDay/EndDay. StartDay/EndDay describe a custom day-of-month cycle
// (for example 18..28). With neither set, PeriodMonth means the calendar
// month and PeriodDay the single reference date.
type Config struct {
	Period   Period
	StartDay int
	EndDay   int
	Start    time.Time
	End      time.Time
}

// Window is a resolved inclusive date range. Start and End carry only
// calendar-date precision (midnight UTC).
type Window struct {
	Start time.Time
	End   time.Time
}

// Resolve turns a cycle configuration into the concrete window containing
// the reference instant.
//
// Day-of-month values that do not exist in a target month clamp to that
// month's last day (day 31 in February resolves to Feb 28/29, never
// rolling into March).
func Resolve(cfg Config, ref time.Time) Window {
	refDate := DateOf(ref)

	if cfg.Period == PeriodDay {
		return Window{Start: refDate, End: refDate}
	}

	if !cfg.Start.IsZero() && !cfg.End.IsZero() {
		return Window{Start: DateOf(cfg.Start), End: DateOf(cfg.End)}
	}

	year, month, day := refDate.Date()

	if cfg.StartDay <= 0 || cfg.EndDay <= 0 {
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)
		return Window{Start: first, End: last}
	}

	if day >= cfg.StartDay {
		// In or after this month's start day: window runs to next month.
		return Window{
			Start: clampedDate(year, month, cfg.StartDay),
			End:   clampedDate(year, month+1, cfg.EndDay),
		}
	}
	return Window{
		Start: clampedDate(year, month-1, cfg.StartDay),
		End:   clampedDate(year, month, cfg.EndDay),
	}
}

// Days enumerates every calendar date in the window, inclusive.
func (w Window) Days() []time.Time {
	if w.End.Before(w.Start) {
		return nil
	}
	days := make([]time.Time, 0, int(w.End.Sub(w.Start).Hours()/24)+1)
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether the instant's calendar date falls in the window.
func (w Window) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// DateOf truncates an instant to its calendar date at midnight UTC.
func DateOf(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func clampedDate(year int, month time.Month, day int) time.Time {
	// Normalize month overflow first (month 13, month 0), then clamp the
	// day to what that month actually has.
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	if day < 1 {
		day = 1
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}
