package scheduling

import (
	"fmt"
	"time"

	"tutorhive/models"
)

const (
	minutesPerDay  = 24 * 60
	minutesPerWeek = 7 * minutesPerDay

	// DefaultDurationMins is the nominal session length assumed when a
	// request does not encode one.
	DefaultDurationMins = 60

	dateLayout = "2006-01-02"
)

// ParseDate parses a calendar date in "YYYY-MM-DD" form.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Message: fmt.Sprintf("expected YYYY-MM-DD, got %q", s)}
	}
	return t, nil
}

// ParseClock parses a time-of-day in "HH:MM" form into minutes from midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, &ValidationError{Field: "time", Message: fmt.Sprintf("expected HH:MM, got %q", s)}
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// absStartMin projects a (date, minutes-from-midnight) pair onto a single
// linear minute axis. Sessions that run past midnight simply extend beyond
// the day boundary on this axis, so wrap-around never needs special casing
// in the overlap test.
func absStartMin(date string, startMin int) (int64, error) {
	d, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return d.Unix()/60 + int64(startMin), nil
}

// intervalsOverlap reports whether [aStart, aStart+aDur) and
// [bStart, bStart+bDur) intersect on the linear minute axis.
func intervalsOverlap(aStart int64, aDur int, bStart int64, bDur int) bool {
	return aStart < bStart+int64(bDur) && bStart < aStart+int64(aDur)
}

// SessionStart returns the wall-clock start of a session in the given
// location.
func SessionStart(date string, startMin int, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, startMin, 0, 0, loc), nil
}

// windowSpan converts one weekday's window into a (start, length) interval on
// the minute-of-week axis. A window with FromMin > ToMin wraps past midnight
// and its length runs into the following day.
func windowSpan(weekday time.Weekday, win models.DayWindow) (start, length int) {
	start = int(weekday)*minutesPerDay + win.FromMin
	if win.FromMin <= win.ToMin {
		length = win.ToMin - win.FromMin
	} else {
		length = (minutesPerDay - win.FromMin) + win.ToMin
	}
	return start, length
}

// windowCovers reports whether the window opened on `weekday` fully contains
// the session [minOfWeek, minOfWeek+dur) on the week circle.
func windowCovers(weekday time.Weekday, win models.DayWindow, minOfWeek, dur int) bool {
	if !win.Available {
		return false
	}
	ws, wl := windowSpan(weekday, win)
	for _, shift := range []int{-minutesPerWeek, 0, minutesPerWeek} {
		s := minOfWeek + shift
		if ws <= s && s+dur <= ws+wl {
			return true
		}
	}
	return false
}

// WithinAvailability reports whether a session on `date` at `startMin`
// lasting `dur` minutes fits the tutor's weekly windows. Both the session
// day's window and the previous day's wrapped window are candidates, since a
// window wrapping past midnight covers the early hours of the next day.
func WithinAvailability(weekly models.WeeklyAvailability, date string, startMin, dur int) (bool, error) {
	d, err := ParseDate(date)
	if err != nil {
		return false, err
	}
	wd := d.Weekday()
	minOfWeek := int(wd)*minutesPerDay + startMin

	if windowCovers(wd, weekly[wd], minOfWeek, dur) {
		return true, nil
	}
	prev := (wd + 6) % 7
	if weekly[prev].FromMin > weekly[prev].ToMin && windowCovers(prev, weekly[prev], minOfWeek, dur) {
		return true, nil
	}
	return false, nil
}

// adjacentDates returns the date plus its neighbours, the range of calendar
// dates whose bookings can overlap a session on `date` once durations cross
// midnight.
func adjacentDates(date string) ([]string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	return []string{
		d.AddDate(0, 0, -1).Format(dateLayout),
		date,
		d.AddDate(0, 0, 1).Format(dateLayout),
	}, nil
}
