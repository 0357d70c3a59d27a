package gtfs_test

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjaakko/gtfs-graphql-api/gtfs"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"08:00:00", 28800, false},
		{"8:00:00", 28800, false},
		{" 25:10:00 ", 90600, false},
		{"00:00:00", 0, false},
		{"12:60:00", 0, true},
		{"12:00", 0, true},
		{"ab:00:00", 0, true},
		{"-1:00:00", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := gtfs.ParseTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "25:10:00", gtfs.FormatTime(90600))
	assert.Equal(t, "00:00:05", gtfs.FormatTime(5))
}

func TestParseDate(t *testing.T) {
	d, err := gtfs.ParseDate("20240229")
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2024, Month: 2, Day: 29}, d)
	assert.Equal(t, "20240229", gtfs.FormatDate(d))

	for _, bad := range []string{"20230229", "2024-01-01", "202401", "2024ab01"} {
		_, err := gtfs.ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestServiceDayStart(t *testing.T) {
	loc := helsinki(t)

	regular := gtfs.ServiceDayStart(civil.Date{Year: 2024, Month: 1, Day: 3}, loc)
	assert.True(t, regular.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, loc)))

	// Clocks move forward at 03:00 so the day starts an hour before midnight.
	dst := civil.Date{Year: 2024, Month: 3, Day: 31}
	assert.True(t, gtfs.ServiceDayStart(dst, loc).Equal(time.Date(2024, 3, 30, 21, 0, 0, 0, time.UTC)))
	assert.True(t, gtfs.TimeOf(dst, 8*3600, loc).Equal(time.Date(2024, 3, 31, 5, 0, 0, 0, time.UTC)))
}
