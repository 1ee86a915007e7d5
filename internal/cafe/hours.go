package cafe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNoHours is returned when the schedule has no entry for the requested day.
var ErrNoHours = errors.New("cafe: no business hours for day")

var koreanWeekdays = [...]string{
	time.Sunday:    "일요일",
	time.Monday:    "월요일",
	time.Tuesday:   "화요일",
	time.Wednesday: "수요일",
	time.Thursday:  "목요일",
	time.Friday:    "금요일",
	time.Saturday:  "토요일",
}

// WeekdayName returns the Korean name used as the Regular key, e.g. "월요일".
func WeekdayName(d time.Weekday) string {
	return koreanWeekdays[d]
}

// On returns the opening window for the weekday of t. The Korean weekday
// name is tried first, then the lowercase English name.
func (h BusinessHours) On(t time.Time) (DayHours, error) {
	if dh, ok := h.Regular[WeekdayName(t.Weekday())]; ok {
		return dh, nil
	}
	if dh, ok := h.Regular[strings.ToLower(t.Weekday().String())]; ok {
		return dh, nil
	}
	return DayHours{}, fmt.Errorf("%w: %s", ErrNoHours, WeekdayName(t.Weekday()))
}

// HolidayOn returns the holiday matching the calendar date of t, if any.
func (h BusinessHours) HolidayOn(t time.Time) (Holiday, bool) {
	date := t.Format(time.DateOnly)
	for _, hd := range h.Holidays {
		if hd.Date == date {
			return hd, true
		}
	}
	return Holiday{}, false
}

// IsOpenAt reports whether t falls inside the window. Both bounds are
// inclusive at minute resolution, so a 18:00 close is still open at 18:00.
func (d DayHours) IsOpenAt(t time.Time) (bool, error) {
	open, err := minutesOfDay(d.Open)
	if err != nil {
		return false, err
	}
	closing, err := minutesOfDay(d.Close)
	if err != nil {
		return false, err
	}
	now := t.Hour()*60 + t.Minute()
	return now >= open && now <= closing, nil
}

func minutesOfDay(hhmm string) (int, error) {
	hs, ms, ok := strings.Cut(hhmm, ":")
	if !ok {
		return 0, fmt.Errorf("cafe: malformed time %q", hhmm)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("cafe: malformed hour in %q", hhmm)
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("cafe: malformed minute in %q", hhmm)
	}
	return h*60 + m, nil
}
