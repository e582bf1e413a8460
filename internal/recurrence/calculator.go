package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// Period is the window over which completions count toward a target.
type Period string

const (
	PeriodInferred Period = ""
	PeriodDay      Period = "day"
	PeriodWeek     Period = "week"
	PeriodMonth    Period = "month"
	PeriodYear     Period = "year"
	PeriodNone     Period = "none"
)

// ParsePeriod accepts the stored period names; empty means inferred.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case PeriodInferred, PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodNone:
		return p, nil
	default:
		return "", fmt.Errorf("unknown time period %q", raw)
	}
}

var (
	// AllTimeStart and AllTimeEnd bound the "none" period. They stay inside
	// what the store can compare as dates.
	AllTimeStart = Date(1970, time.January, 1)
	AllTimeEnd   = Date(2100, time.December, 31)
)

// Schedule is everything the calculator needs to know about a task.
type Schedule struct {
	Rule      Rule
	Period    Period
	CreatedAt time.Time
}

// Date returns the calendar date y-m-d as UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf drops the clock part of t, keeping t's calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return d, nil
}

// AddDays shifts a date by n calendar days.
func AddDays(date time.Time, n int) time.Time {
	return DateOf(date).AddDate(0, 0, n)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// clampedDay returns day-of-month target in the given month, clamped to the
// month's last day.
func clampedDay(year int, month time.Month, target int) time.Time {
	last := DaysInMonth(month, year)
	if target > last {
		target = last
	}
	return Date(year, month, target)
}

func (s Schedule) rule() Rule {
	if s.Rule == nil {
		return OneTime{}
	}
	return s.Rule
}

func (s Schedule) weeklyDay(w Weekly) time.Weekday {
	if w.On != nil {
		return *w.On
	}
	return s.CreatedAt.Weekday()
}

func (s Schedule) monthlyDay(m Monthly) int {
	if m.Day > 0 {
		return m.Day
	}
	return s.CreatedAt.Day()
}

// IsDue reports whether the task falls due on date.
func IsDue(s Schedule, date time.Time) bool {
	date = DateOf(date)
	switch r := s.rule().(type) {
	case OneTime, Daily:
		return true
	case Weekly:
		return date.Weekday() == s.weeklyDay(r)
	case Monthly:
		due := clampedDay(date.Year(), date.Month(), s.monthlyDay(r))
		return date.Equal(due)
	case WeekdaySet:
		return r.contains(date.Weekday())
	case CustomDates:
		for _, d := range r.Dates {
			if DateOf(d).Equal(date) {
				return true
			}
		}
		return false
	default:
		panic(fmt.Sprintf("recurrence: unhandled rule %T", r))
	}
}

// PreviousDue returns the due date preceding date.
func PreviousDue(s Schedule, date time.Time) time.Time {
	date = DateOf(date)
	switch r := s.rule().(type) {
	case OneTime, Daily:
		return AddDays(date, -1)
	case Weekly:
		return AddDays(date, -7)
	case Monthly:
		prev := Date(date.Year(), date.Month(), 1).AddDate(0, -1, 0)
		return clampedDay(prev.Year(), prev.Month(), s.monthlyDay(r))
	case WeekdaySet:
		check := AddDays(date, -1)
		for i := 0; i < 7; i++ {
			if r.contains(check.Weekday()) {
				return check
			}
			check = AddDays(check, -1)
		}
		return AddDays(date, -1)
	case CustomDates:
		var best time.Time
		found := false
		for _, d := range r.Dates {
			d = DateOf(d)
			if d.Before(date) && (!found || d.After(best)) {
				best, found = d, true
			}
		}
		if !found {
			return AddDays(date, -1)
		}
		return best
	default:
		panic(fmt.Sprintf("recurrence: unhandled rule %T", r))
	}
}

// NextDue returns the first due date on or after date. One-time tasks and
// exhausted custom date lists have none.
func NextDue(s Schedule, date time.Time) (time.Time, bool) {
	date = DateOf(date)
	switch r := s.rule().(type) {
	case OneTime:
		return time.Time{}, false
	case Daily:
		return date, true
	case Weekly:
		daysUntil := (int(s.weeklyDay(r)) - int(date.Weekday()) + 7) % 7
		return AddDays(date, daysUntil), true
	case Monthly:
		target := s.monthlyDay(r)
		due := clampedDay(date.Year(), date.Month(), target)
		if !date.After(due) {
			return due, true
		}
		next := Date(date.Year(), date.Month(), 1).AddDate(0, 1, 0)
		return clampedDay(next.Year(), next.Month(), target), true
	case WeekdaySet:
		for i := 0; i < 7; i++ {
			check := AddDays(date, i)
			if r.contains(check.Weekday()) {
				return check, true
			}
		}
		return date, true
	case CustomDates:
		var best time.Time
		found := false
		for _, d := range r.Dates {
			d = DateOf(d)
			if !d.Before(date) && (!found || d.Before(best)) {
				best, found = d, true
			}
		}
		return best, found
	default:
		panic(fmt.Sprintf("recurrence: unhandled rule %T", r))
	}
}

// EffectivePeriod returns the explicit period or the one implied by the rule.
func EffectivePeriod(s Schedule) Period {
	if s.Period != PeriodInferred {
		return s.Period
	}
	switch r := s.rule().(type) {
	case Daily:
		return PeriodDay
	case Weekly, WeekdaySet:
		return PeriodWeek
	case Monthly:
		return PeriodMonth
	case CustomDates, OneTime:
		return PeriodNone
	default:
		panic(fmt.Sprintf("recurrence: unhandled rule %T", r))
	}
}

// Bounds returns the inclusive period containing date.
func Bounds(s Schedule, date time.Time) (time.Time, time.Time) {
	date = DateOf(date)
	switch EffectivePeriod(s) {
	case PeriodDay:
		return date, date
	case PeriodWeek:
		sinceMonday := (int(date.Weekday()) + 6) % 7
		start := AddDays(date, -sinceMonday)
		return start, AddDays(start, 6)
	case PeriodMonth:
		start := Date(date.Year(), date.Month(), 1)
		return start, Date(date.Year(), date.Month(), DaysInMonth(date.Month(), date.Year()))
	case PeriodYear:
		return Date(date.Year(), time.January, 1), Date(date.Year(), time.December, 31)
	default:
		return AllTimeStart, AllTimeEnd
	}
}

// IsScheduled reports whether the rule has a schedule at all.
func IsScheduled(s Schedule) bool {
	_, oneTime := s.rule().(OneTime)
	return !oneTime
}
