package cafe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2025-03-03 "+hhmm) // a Monday
	if err != nil {
		panic(err)
	}
	return t
}

func TestDayHours_IsOpenAt(t *testing.T) {
	t.Parallel()
	dh := DayHours{Open: "09:00", Close: "18:00"}

	cases := []struct {
		now  string
		want bool
	}{
		{"08:59", false},
		{"09:00", true},
		{"10:00", true},
		{"18:00", true},
		{"18:01", false},
	}
	for _, tc := range cases {
		got, err := dh.IsOpenAt(at(tc.now))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "at %s", tc.now)
	}
}

func TestDayHours_Malformed(t *testing.T) {
	t.Parallel()
	_, err := DayHours{Open: "nine", Close: "18:00"}.IsOpenAt(at("10:00"))
	assert.Error(t, err)
}

func TestBusinessHours_On(t *testing.T) {
	t.Parallel()

	h := BusinessHours{Regular: map[string]DayHours{"월요일": {Open: "08:00", Close: "20:00"}}}
	dh, err := h.On(at("10:00"))
	require.NoError(t, err)
	assert.Equal(t, "08:00", dh.Open)

	english := BusinessHours{Regular: map[string]DayHours{"monday": {Open: "07:00", Close: "19:00"}}}
	dh, err = english.On(at("10:00"))
	require.NoError(t, err)
	assert.Equal(t, "07:00", dh.Open)

	_, err = BusinessHours{}.On(at("10:00"))
	assert.ErrorIs(t, err, ErrNoHours)
}

func TestBusinessHours_HolidayOn(t *testing.T) {
	t.Parallel()
	h := BusinessHours{Holidays: []Holiday{{Date: "2025-03-03", Description: "임시 휴무"}}}

	hd, ok := h.HolidayOn(at("10:00"))
	require.True(t, ok)
	assert.Equal(t, "임시 휴무", hd.Description)

	_, ok = h.HolidayOn(at("10:00").AddDate(0, 0, 1))
	assert.False(t, ok)
}

func TestWeekdayName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "일요일", WeekdayName(time.Sunday))
	assert.Equal(t, "토요일", WeekdayName(time.Saturday))
}
