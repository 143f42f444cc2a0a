package compose

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMissingDate     = errors.New("compose: date is required")
	ErrMissingTime     = errors.New("compose: time is required")
	ErrMissingTimezone = errors.New("compose: timezone is required")
	ErrInvalidRange    = errors.New("compose: end date is before the booking date")
)

// Date is a calendar date with no zone attached. Rendering from these fields
// directly keeps the day the customer picked regardless of any server or
// client offset.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf takes the calendar fields of t as they read in t's own location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses a YYYY-MM-DD form value.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("compose: invalid date %q: %w", raw, err)
	}
	return DateOf(t), nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

// String renders M/D/YYYY.
func (d Date) String() string {
	return fmt.Sprintf("%d/%d/%d", int(d.Month), d.Day, d.Year)
}

// Before reports whether d falls on an earlier day than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// TimeOfDay is a wall-clock time.
type TimeOfDay struct {
	Hour   int
	Minute int
	set    bool
}

// NewTimeOfDay builds a time of day from 24-hour fields.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("compose: invalid time %02d:%02d", hour, minute)
	}
	return TimeOfDay{Hour: hour, Minute: minute, set: true}, nil
}

// ParseTimeOfDay accepts "15:04" form values and "3:04 PM" text.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "3:04 PM", "3:04PM", "3:04 pm", "3:04pm", "3 PM", "3PM"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return NewTimeOfDay(t.Hour(), t.Minute())
		}
	}
	return TimeOfDay{}, fmt.Errorf("compose: invalid time %q", raw)
}

// IsZero reports whether the time is unset.
func (t TimeOfDay) IsZero() bool { return !t.set }

// String renders h:mm AM/PM.
func (t TimeOfDay) String() string {
	suffix := "AM"
	if t.Hour >= 12 {
		suffix = "PM"
	}
	hour := t.Hour % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute, suffix)
}

// Recurrence repeats the booking at Frequency until EndDate, if set.
type Recurrence struct {
	Frequency string
	EndDate   *Date
}

// MultiDay extends one booking across several days.
type MultiDay struct {
	EndDate Date
}

// DateTimeSelection is the full scheduling form. It is only composed once
// complete.
type DateTimeSelection struct {
	Date       Date
	Time       TimeOfDay
	Timezone   string
	Recurrence *Recurrence
	MultiDay   *MultiDay
}

// Validate checks required fields and date ordering.
func (s DateTimeSelection) Validate() error {
	if s.Date.IsZero() {
		return ErrMissingDate
	}
	if s.Time.IsZero() {
		return ErrMissingTime
	}
	if strings.TrimSpace(s.Timezone) == "" {
		return ErrMissingTimezone
	}
	if s.Recurrence != nil && s.Recurrence.EndDate != nil && s.Recurrence.EndDate.Before(s.Date) {
		return ErrInvalidRange
	}
	if s.MultiDay != nil && s.MultiDay.EndDate.Before(s.Date) {
		return ErrInvalidRange
	}
	return nil
}

// DateTime composes the scheduling message, e.g.
// "Date: 3/5/2024, Time: 2:30 PM, Timezone: America/New York, Recurring: weekly, Ends on: 4/5/2024".
func DateTime(s DateTimeSelection) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s, Time: %s, Timezone: %s",
		s.Date, s.Time, strings.ReplaceAll(strings.TrimSpace(s.Timezone), "_", " "))

	if s.Recurrence != nil {
		if freq := strings.TrimSpace(s.Recurrence.Frequency); freq != "" {
			fmt.Fprintf(&b, ", Recurring: %s", freq)
			if s.Recurrence.EndDate != nil && !s.Recurrence.EndDate.IsZero() {
				fmt.Fprintf(&b, ", Ends on: %s", s.Recurrence.EndDate)
			}
		}
	}
	if s.MultiDay != nil && !s.MultiDay.EndDate.IsZero() {
		fmt.Fprintf(&b, ", Multi-day booking ending on: %s", s.MultiDay.EndDate)
	}
	return b.String(), nil
}
