package doctor

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrDoctorNotFound is returned when no doctor matches the given id.
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrWindowNotFound is returned when no availability window matches the given id.
	ErrWindowNotFound = errors.New("availability window not found")

	// ErrScheduleInvalid is the umbrella error for schedule validation
	// failures. Concrete failures wrap it so callers can match with errors.Is.
	ErrScheduleInvalid = errors.New("schedule validation failed")

	// ErrInvalidWeekday is returned for weekday names outside Sunday..Saturday.
	ErrInvalidWeekday = errors.New("invalid weekday")

	// ErrNegativeFee is returned when a profile update carries a negative
	// consultation fee.
	ErrNegativeFee = errors.New("consultation fee must not be negative")
)

// InvalidWindowError reports a single malformed availability window.
type InvalidWindowError struct {
	Index  int
	Reason string
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("window %d: %s", e.Index, e.Reason)
}

func (e *InvalidWindowError) Is(target error) bool { return target == ErrScheduleInvalid }

// OverlapError reports two windows on the same weekday whose time ranges
// intersect.
type OverlapError struct {
	First   int
	Second  int
	Weekday string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("windows %d and %d overlap on %s", e.First, e.Second, e.Weekday)
}

func (e *OverlapError) Is(target error) bool { return target == ErrScheduleInvalid }

// ScheduleConflictError collects every overlapping pair found in a schedule,
// so a client can fix the whole submission in one round trip.
type ScheduleConflictError struct {
	Conflicts []*OverlapError
}

func (e *ScheduleConflictError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = c.Error()
	}
	return strings.Join(parts, "; ")
}

func (e *ScheduleConflictError) Is(target error) bool { return target == ErrScheduleInvalid }

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday converts an English weekday name (case-insensitive) to a
// time.Weekday. Unknown names are an error, never silently mapped to a
// default day.
func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
	}
	return wd, nil
}

// NextDate projects a target weekday onto the next matching calendar date, at
// or after today. When today already falls on the target weekday, today is
// returned. The result is a date-only value (midnight UTC).
func NextDate(target time.Weekday, today time.Time) time.Time {
	delta := (int(target) - int(today.Weekday()) + 7) % 7
	y, m, d := today.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, delta)
}

// parseClock converts an "HH:MM" string to minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ValidateWindows checks a full weekly schedule: the set must be non-empty,
// every window well-formed with start strictly before end, and no two windows
// on the same weekday may overlap. Ranges are half-open, so a window ending
// at 12:00 does not conflict with one starting at 12:00. Overlap checking
// reports every conflicting pair, not just the first one found. Returned
// errors identify the offending window indices.
func ValidateWindows(windows []*AvailabilityWindow) error {
	if len(windows) == 0 {
		return fmt.Errorf("%w: schedule must contain at least one window", ErrScheduleInvalid)
	}

	type span struct {
		day   time.Weekday
		start int
		end   int
	}
	spans := make([]span, len(windows))

	for i, w := range windows {
		day, err := ParseWeekday(w.Weekday)
		if err != nil {
			return &InvalidWindowError{Index: i, Reason: fmt.Sprintf("unknown weekday %q", w.Weekday)}
		}
		start, err := parseClock(w.StartTime)
		if err != nil {
			return &InvalidWindowError{Index: i, Reason: fmt.Sprintf("invalid start time %q", w.StartTime)}
		}
		end, err := parseClock(w.EndTime)
		if err != nil {
			return &InvalidWindowError{Index: i, Reason: fmt.Sprintf("invalid end time %q", w.EndTime)}
		}
		if start >= end {
			return &InvalidWindowError{
				Index:  i,
				Reason: fmt.Sprintf("start %s is not before end %s", w.StartTime, w.EndTime),
			}
		}
		spans[i] = span{day: day, start: start, end: end}
	}

	var conflicts []*OverlapError
	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			if spans[i].day != spans[j].day {
				continue
			}
			if spans[i].start < spans[j].end && spans[i].end > spans[j].start {
				conflicts = append(conflicts, &OverlapError{
					First:   i,
					Second:  j,
					Weekday: strings.ToLower(windows[i].Weekday),
				})
			}
		}
	}
	if len(conflicts) > 0 {
		return &ScheduleConflictError{Conflicts: conflicts}
	}

	return nil
}
