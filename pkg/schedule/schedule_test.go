package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvery(t *testing.T) {
	s := Every(5 * time.Minute)
	now := time.Now()
	next := s.Next(now)

	assert.Equal(t, now.Add(5*time.Minute), next)
}

func TestDaily(t *testing.T) {
	s := Daily(9, 30) // 9:30 AM UTC
	from := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	next := s.Next(from)

	assert.Equal(t, time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), next)
}

func TestDaily_NextDay(t *testing.T) {
	s := Daily(9, 30)
	from := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC) // After 9:30
	next := s.Next(from)

	assert.Equal(t, time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC), next)
}

func TestDaily_ExactlyAtFireTimeMovesToTomorrow(t *testing.T) {
	s := Daily(9, 30)
	from := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC), s.Next(from))
}

func TestDailyIn_Timezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	s := DailyIn(10, 0, loc)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // 05:30 IST
	next := s.Next(from)

	assert.Equal(t, time.Date(2024, 1, 1, 4, 30, 0, 0, time.UTC), next.UTC())
}

func TestDailyIn_AcrossDSTKeepsWallClock(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	s := DailyIn(9, 0, loc)
	// Day before clocks go forward (2024-03-31).
	from := time.Date(2024, 3, 30, 12, 0, 0, 0, loc)
	next := s.Next(from)

	assert.Equal(t, 9, next.In(loc).Hour())
	assert.Equal(t, 31, next.In(loc).Day())
	assert.Equal(t, 8, next.UTC().Hour())
}

func TestParseDaily(t *testing.T) {
	s, err := ParseDaily("09:15", "Europe/London")
	require.NoError(t, err)

	loc, _ := time.LoadLocation("Europe/London")
	next := s.Next(time.Date(2024, 1, 1, 0, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 1, 1, 9, 15, 0, 0, loc), next)
}

func TestParseDaily_Invalid(t *testing.T) {
	_, err := ParseDaily("9am", "")
	assert.Error(t, err)

	_, err = ParseDaily("09:00", "Mars/Olympus")
	assert.Error(t, err)
}

func TestParseCron(t *testing.T) {
	s, err := ParseCron("0 9 * * 1-5") // weekdays at 9 AM
	require.NoError(t, err)

	from := time.Date(2024, 1, 5, 10, 0, 0, 0, time.Local) // Friday
	next := s.Next(from)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 0, next.Minute())
}

func TestParseCron_WithTimezone(t *testing.T) {
	s, err := ParseCron("CRON_TZ=Asia/Kolkata 0 10 * * *")
	require.NoError(t, err)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	next := s.Next(from)
	assert.Equal(t, time.Date(2024, 1, 1, 4, 30, 0, 0, time.UTC), next.UTC())
}

func TestParseCron_Invalid(t *testing.T) {
	_, err := ParseCron("invalid cron")
	assert.Error(t, err)
}

func TestScheduleInterface(t *testing.T) {
	// All schedule types implement Schedule interface
	var _ Schedule = Every(time.Minute) //nolint:staticcheck // interface conformance check
	var _ Schedule = Daily(9, 0)        //nolint:staticcheck // interface conformance check
	var _ Schedule = DailyIn(9, 0, nil) //nolint:staticcheck // interface conformance check
	var _ Schedule = &cronSchedule{}    //nolint:staticcheck // interface conformance check
}
