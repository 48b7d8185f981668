package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestHourUnit_FileName(t *testing.T) {
	tests := []struct {
		name string
		unit HourUnit
		want string
	}{
		{
			name: "Hour Is Not Zero Padded",
			unit: HourUnit{Date: day(2024, 1, 2), Hour: 5},
			want: "2024-01-02-5.json.gz",
		},
		{
			name: "Double Digit Hour",
			unit: HourUnit{Date: day(2024, 11, 30), Hour: 23},
			want: "2024-11-30-23.json.gz",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.unit.FileName())
		})
	}
}

func TestHoursInRange(t *testing.T) {
	t.Run("Single Day Expands To 24 Units", func(t *testing.T) {
		units := HoursInRange(day(2024, 3, 1), day(2024, 3, 1))
		require.Len(t, units, 24)
		assert.Equal(t, HourUnit{Date: day(2024, 3, 1), Hour: 0}, units[0])
		assert.Equal(t, HourUnit{Date: day(2024, 3, 1), Hour: 23}, units[23])
	})

	t.Run("Range Is Inclusive At Both Ends", func(t *testing.T) {
		units := HoursInRange(day(2024, 3, 1), day(2024, 3, 3))
		assert.Len(t, units, 72)
		assert.Equal(t, day(2024, 3, 3), units[len(units)-1].Date)
	})

	t.Run("Time Of Day Is Ignored", func(t *testing.T) {
		from := time.Date(2024, 3, 1, 17, 30, 0, 0, time.UTC)
		units := HoursInRange(from, from)
		assert.Len(t, units, 24)
	})
}

func TestParseHourFileName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		want     HourUnit
		wantOk   bool
	}{
		{
			name:     "Plain File Name",
			fileName: "2024-01-02-15.json.gz",
			want:     HourUnit{Date: day(2024, 1, 2), Hour: 15},
			wantOk:   true,
		},
		{
			name:     "Prefixed Object Key",
			fileName: "mirror/gharchive/2024-01-02-5.json.gz",
			want:     HourUnit{Date: day(2024, 1, 2), Hour: 5},
			wantOk:   true,
		},
		{
			name:     "Hour Out Of Range",
			fileName: "2024-01-02-24.json.gz",
			wantOk:   false,
		},
		{
			name:     "Not An Archive File",
			fileName: "README.md",
			wantOk:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseHourFileName(tt.fileName)
			require.Equal(t, tt.wantOk, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
