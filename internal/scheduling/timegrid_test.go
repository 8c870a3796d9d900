package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"08:00", 8 * time.Hour, false},
		{"20:30", 20*time.Hour + 30*time.Minute, false},
		{"24:00", 24 * time.Hour, false},
		{"24:30", 0, true},
		{"8", 0, true},
		{"aa:00", 0, true},
		{"09:60", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, time.Duration(got))
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestNewTimeGridValidation(t *testing.T) {
	_, err := NewTimeGrid("20:00", "08:00", 15*time.Minute, nil)
	assert.Error(t, err)
	_, err = NewTimeGrid("08:00", "20:00", 0, nil)
	assert.Error(t, err)
	g, err := NewTimeGrid("08:00", "20:00", 15*time.Minute, nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, g.Location)
}

func TestOccupiedMergesAndClips(t *testing.T) {
	g := mustGrid(t, "09:00", "12:00", 15*time.Minute)
	occupied := g.Occupied(testDay, []Interval{
		{Start: at(11, 30), End: at(13, 0)},
		{Start: at(8, 0), End: at(9, 30)},
		{Start: at(9, 15), End: at(10, 0)},
		{Start: at(10, 0), End: at(10, 30)},
		{Start: at(14, 0), End: at(15, 0)},
		{Start: at(10, 45), End: at(10, 45)},
	})
	assert.Equal(t, []Interval{
		{Start: at(9, 0), End: at(10, 30)},
		{Start: at(11, 30), End: at(12, 0)},
	}, occupied)
}

func TestAvailableComplementsOccupied(t *testing.T) {
	g := mustGrid(t, "09:00", "12:00", 15*time.Minute)
	free := g.Available(testDay, []Interval{{Start: at(10, 0), End: at(10, 45)}})
	assert.Equal(t, []Interval{
		{Start: at(9, 0), End: at(10, 0)},
		{Start: at(10, 45), End: at(12, 0)},
	}, free)
}

func TestDayUsesGridLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	g, err := NewTimeGrid("09:00", "17:00", 30*time.Minute, loc)
	require.NoError(t, err)

	// 23:30 UTC on May 31 is already June 1 in UTC+2.
	day := g.Day(time.Date(2024, 5, 31, 23, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 6, 1, 9, 0, 0, 0, loc), day.Start)
	assert.Equal(t, 8*time.Hour, day.Duration())
}

func TestDayFollowsWallClockAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	g, err := NewTimeGrid("08:00", "20:00", 30*time.Minute, ny)
	require.NoError(t, err)

	// Clocks jump from 02:00 to 03:00 on 2024-03-10 and back on 2024-11-03.
	for _, date := range []time.Time{
		time.Date(2024, 3, 10, 12, 0, 0, 0, ny),
		time.Date(2024, 11, 3, 12, 0, 0, 0, ny),
	} {
		day := g.Day(date)
		assert.Equal(t, time.Date(date.Year(), date.Month(), date.Day(), 8, 0, 0, 0, ny), day.Start)
		assert.Equal(t, time.Date(date.Year(), date.Month(), date.Day(), 20, 0, 0, 0, ny), day.End)

		slots, err := g.AvailableSlots(SlotRequest{Date: date, Duration: 30 * time.Minute})
		require.NoError(t, err)
		require.NotEmpty(t, slots)
		assert.Equal(t, "08:00", slots[0].In(ny).Format("15:04"))
		assert.Equal(t, "19:30", slots[len(slots)-1].In(ny).Format("15:04"))

		late := time.Date(date.Year(), date.Month(), date.Day(), 20, 0, 0, 0, ny)
		assert.False(t, g.Fits(late.Add(-30*time.Minute), time.Hour, nil))
	}
}

func TestDayEndOfDayClose(t *testing.T) {
	g, err := NewTimeGrid("22:00", "24:00", time.Hour, time.UTC)
	require.NoError(t, err)
	day := g.Day(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), day.End)
}
