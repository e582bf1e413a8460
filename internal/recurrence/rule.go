package recurrence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind names a recurrence rule as it is stored.
type Kind string

const (
	KindOneTime    Kind = "onetime"
	KindDaily      Kind = "daily"
	KindWeekly     Kind = "weekly"
	KindMonthly    Kind = "monthly"
	KindWeekdaySet Kind = "weekdays"
	KindCustom     Kind = "custom"
)

// Rule is a closed set of recurrence kinds. Only the types in this package
// implement it.
type Rule interface {
	Kind() Kind
	isRule()
}

// OneTime tasks have no schedule and can be completed on any day.
type OneTime struct{}

// Daily tasks are due every day.
type Daily struct{}

// Weekly tasks are due on one weekday. A nil On falls back to the weekday
// the task was created on.
type Weekly struct {
	On *time.Weekday
}

// Monthly tasks are due on one day of the month, clamped to the month's
// length. Day 0 falls back to the creation day.
type Monthly struct {
	Day int
}

// WeekdaySet tasks are due on each listed weekday. Empty means Monday–Friday.
type WeekdaySet struct {
	Days []time.Weekday
}

// CustomDates tasks are due on an explicit list of dates.
type CustomDates struct {
	Dates []time.Time
}

func (OneTime) Kind() Kind     { return KindOneTime }
func (Daily) Kind() Kind       { return KindDaily }
func (Weekly) Kind() Kind      { return KindWeekly }
func (Monthly) Kind() Kind     { return KindMonthly }
func (WeekdaySet) Kind() Kind  { return KindWeekdaySet }
func (CustomDates) Kind() Kind { return KindCustom }

func (OneTime) isRule()     {}
func (Daily) isRule()       {}
func (Weekly) isRule()      {}
func (Monthly) isRule()     {}
func (WeekdaySet) isRule()  {}
func (CustomDates) isRule() {}

// WeeklyOn builds a Weekly rule pinned to day.
func WeeklyOn(day time.Weekday) Weekly {
	return Weekly{On: &day}
}

// Dates builds a CustomDates rule, normalizing and sorting the dates.
func Dates(dates ...time.Time) CustomDates {
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		out = append(out, DateOf(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return CustomDates{Dates: out}
}

var defaultWeekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

func (w WeekdaySet) days() []time.Weekday {
	if len(w.Days) == 0 {
		return defaultWeekdays
	}
	return w.Days
}

func (w WeekdaySet) contains(day time.Weekday) bool {
	for _, d := range w.days() {
		if d == day {
			return true
		}
	}
	return false
}

// Field stores a Rule in a single text column as JSON.
type Field struct {
	Rule Rule
}

// Of wraps rule for storage.
func Of(rule Rule) Field {
	return Field{Rule: rule}
}

// Kind reports the wrapped rule's kind; an empty Field counts as one-time.
func (f Field) Kind() Kind {
	if f.Rule == nil {
		return KindOneTime
	}
	return f.Rule.Kind()
}

type payload struct {
	Kind     Kind     `json:"kind"`
	Weekday  *int     `json:"weekday,omitempty"`
	Day      int      `json:"day,omitempty"`
	Weekdays []int    `json:"weekdays,omitempty"`
	Dates    []string `json:"dates,omitempty"`
}

func (f Field) MarshalJSON() ([]byte, error) {
	p := payload{Kind: f.Kind()}
	switch r := f.Rule.(type) {
	case nil, OneTime, Daily:
	case Weekly:
		if r.On != nil {
			day := int(*r.On)
			p.Weekday = &day
		}
	case Monthly:
		p.Day = r.Day
	case WeekdaySet:
		for _, d := range r.Days {
			p.Weekdays = append(p.Weekdays, int(d))
		}
	case CustomDates:
		for _, d := range r.Dates {
			p.Dates = append(p.Dates, d.Format(DateLayout))
		}
	default:
		return nil, fmt.Errorf("unsupported recurrence rule %T", f.Rule)
	}
	return json.Marshal(p)
}

func (f *Field) UnmarshalJSON(data []byte) error {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode recurrence: %w", err)
	}
	switch Kind(strings.ToLower(string(p.Kind))) {
	case KindOneTime, "none", "":
		f.Rule = OneTime{}
	case KindDaily:
		f.Rule = Daily{}
	case KindWeekly:
		w := Weekly{}
		if p.Weekday != nil {
			if *p.Weekday < 0 || *p.Weekday > 6 {
				return fmt.Errorf("weekday %d out of range", *p.Weekday)
			}
			w = WeeklyOn(time.Weekday(*p.Weekday))
		}
		f.Rule = w
	case KindMonthly:
		if p.Day < 0 || p.Day > 31 {
			return fmt.Errorf("day of month %d out of range", p.Day)
		}
		f.Rule = Monthly{Day: p.Day}
	case KindWeekdaySet:
		set := WeekdaySet{}
		for _, d := range p.Weekdays {
			if d < 0 || d > 6 {
				return fmt.Errorf("weekday %d out of range", d)
			}
			set.Days = append(set.Days, time.Weekday(d))
		}
		f.Rule = set
	case KindCustom:
		dates := make([]time.Time, 0, len(p.Dates))
		for _, raw := range p.Dates {
			d, err := ParseDate(raw)
			if err != nil {
				return err
			}
			dates = append(dates, d)
		}
		f.Rule = Dates(dates...)
	default:
		return fmt.Errorf("unknown recurrence kind %q", p.Kind)
	}
	return nil
}

// GormDataType keeps the column a plain text column.
func (Field) GormDataType() string {
	return "text"
}

// Value implements driver.Valuer.
func (f Field) Value() (driver.Value, error) {
	data, err := f.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (f *Field) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		f.Rule = OneTime{}
		return nil
	case string:
		return f.UnmarshalJSON([]byte(v))
	case []byte:
		return f.UnmarshalJSON(v)
	default:
		return fmt.Errorf("scan recurrence: unsupported type %T", src)
	}
}
