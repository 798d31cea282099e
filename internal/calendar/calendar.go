// Package calendar decides which dates may host an upgrade batch.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DateLayout is the key format of a calendar date
const DateLayout = "2006-01-02"

// ErrNoAllowedDays is returned when a policy can never yield an eligible date
var ErrNoAllowedDays = errors.New("no allowed weekdays")

var dowParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Weekdays is a set of allowed weekdays, bit i standing for time.Weekday(i)
type Weekdays uint8

// AllWeekdays allows every day of the week
const AllWeekdays Weekdays = 1<<7 - 1

// NewWeekdays builds a set from individual days
func NewWeekdays(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w |= 1 << uint(d)
	}
	return w
}

// ParseWeekdays parses a cron day-of-week field such as "1-5", "MON-FRI"
// or "1,3,5". Days are 0-6 or names; 7 and SUN are accepted as Sunday at
// the end of a range.
func ParseWeekdays(field string) (Weekdays, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, ErrNoAllowedDays
	}
	sched, err := dowParser.Parse("0 0 * * " + sundayAsZero(field))
	if err != nil {
		return 0, fmt.Errorf("invalid weekday field %q: %w", field, err)
	}
	spec, ok := sched.(*cron.SpecSchedule)
	if !ok {
		return 0, fmt.Errorf("invalid weekday field %q", field)
	}
	return Weekdays(spec.Dow & uint64(AllWeekdays)), nil
}

// sundayAsZero rewrites "7", "N-7" and "X-SUN" list elements into the
// 0-6 form understood by the cron parser.
func sundayAsZero(field string) string {
	parts := strings.Split(field, ",")
	for i, part := range parts {
		if strings.Contains(part, "/") {
			continue
		}
		switch upper := strings.ToUpper(part); {
		case part == "7":
			parts[i] = "0"
		case strings.HasSuffix(part, "-7"):
			parts[i] = strings.TrimSuffix(part, "-7") + "-6,0"
		case upper == "SUN-SUN":
			parts[i] = "SUN"
		case strings.HasSuffix(upper, "-SUN"):
			parts[i] = part[:len(part)-len("-SUN")] + "-SAT,SUN"
		}
	}
	return strings.Join(parts, ",")
}

// Contains reports whether d is in the set
func (w Weekdays) Contains(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

// Empty reports whether no weekday is allowed
func (w Weekdays) Empty() bool {
	return w&AllWeekdays == 0
}

// Days lists the allowed weekdays, Sunday first
func (w Weekdays) Days() []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if w.Contains(d) {
			days = append(days, d)
		}
	}
	return days
}

func (w Weekdays) String() string {
	names := make([]string, 0, 7)
	for _, d := range w.Days() {
		names = append(names, strings.ToUpper(d.String()[:3]))
	}
	return strings.Join(names, ",")
}

// Date truncates t to midnight UTC of its calendar day
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date at midnight UTC
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// Key formats the calendar day of t
func Key(t time.Time) string {
	return t.Format(DateLayout)
}

// AddDays moves t by n calendar days
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// Policy restricts batches to allowed weekdays outside of holidays
type Policy struct {
	allowed  Weekdays
	holidays map[string]struct{}
}

// NewPolicy builds a policy. Holidays are compared by calendar day.
func NewPolicy(allowed Weekdays, holidays []time.Time) Policy {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[Key(h)] = struct{}{}
	}
	return Policy{allowed: allowed, holidays: set}
}

// Validate rejects policies that can never produce an eligible date
func (p Policy) Validate() error {
	if p.allowed.Empty() {
		return ErrNoAllowedDays
	}
	return nil
}

// Eligible reports whether d falls on an allowed weekday and is not a holiday
func (p Policy) Eligible(d time.Time) bool {
	if !p.allowed.Contains(d.Weekday()) {
		return false
	}
	_, holiday := p.holidays[Key(d)]
	return !holiday
}

// Next returns the first eligible date on or after d
func (p Policy) Next(d time.Time) (time.Time, error) {
	if err := p.Validate(); err != nil {
		return time.Time{}, err
	}
	// Holidays are finite, so an allowed weekday is always reached.
	date := Date(d)
	for !p.Eligible(date) {
		date = AddDays(date, 1)
	}
	return date, nil
}
