package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekday(t *testing.T) {
	day, err := ParseWeekday("MONDAY")
	require.NoError(t, err)
	assert.Equal(t, Monday, day)
	assert.Equal(t, 0, day.Index())

	_, err = ParseWeekday("monday")
	assert.Error(t, err)
	_, err = ParseWeekday("FUNDAY")
	assert.Error(t, err)
}

func TestParseMinuteOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "17:00", want: 17 * 60},
		{in: "23:59", want: 23*60 + 59},
		{in: "24:00", wantErr: true},
		{in: "7:30", wantErr: true},
		{in: "07:60", wantErr: true},
		{in: "0730", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseMinuteOfDay(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestFormatMinuteOfDay(t *testing.T) {
	assert.Equal(t, "17:00", FormatMinuteOfDay(17*60))
	assert.Equal(t, "09:05", FormatMinuteOfDay(9*60+5))
	// a slot ending at midnight wraps
	assert.Equal(t, "00:00", FormatMinuteOfDay(24*60))
}

func TestSlotOverlapsIsHalfOpen(t *testing.T) {
	five := SlotInput{Day: Monday, StartMinute: 17 * 60}
	six := SlotInput{Day: Monday, StartMinute: 18 * 60}

	// back-to-back slots do not conflict
	assert.False(t, five.Overlaps(six, 60, 60))
	assert.False(t, six.Overlaps(five, 60, 60))

	halfPast := SlotInput{Day: Monday, StartMinute: 17*60 + 30}
	assert.True(t, five.Overlaps(halfPast, 60, 60))
	assert.True(t, halfPast.Overlaps(five, 60, 60))

	// same time on another day never conflicts
	tuesday := SlotInput{Day: Tuesday, StartMinute: 17 * 60}
	assert.False(t, five.Overlaps(tuesday, 60, 60))
}

func TestSlotTimeRange(t *testing.T) {
	slot := SlotInput{Day: Friday, StartMinute: 17 * 60}
	assert.Equal(t, "17:00-18:30", slot.TimeRange(90))
}
