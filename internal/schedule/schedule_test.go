package schedule

import (
	"testing"
	"time"

	"healthguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSlots(t *testing.T) {
	tests := []struct {
		name  string
		start TimeOfDay
		freq  int
		want  []string
	}{
		{"every 8h", At(8, 0), 8, []string{"08:00", "16:00", "00:00"}},
		{"every 12h wraps", At(22, 30), 12, []string{"22:30", "10:30"}},
		{"daily", At(9, 0), 24, []string{"09:00"}},
		{"longer than a day", At(7, 15), 48, []string{"07:15"}},
		{"non divisor", At(0, 0), 7, []string{"00:00", "07:00", "14:00"}},
		{"hourly", At(0, 5), 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Labels(ComputeSlots(tt.start, tt.freq))
			if tt.want == nil {
				require.Len(t, got, 24)
				assert.Equal(t, "00:05", got[0])
				assert.Equal(t, "23:05", got[23])
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeSlots_Properties(t *testing.T) {
	for f := 1; f <= 30; f++ {
		start := At(f%24, (f*7)%60)
		slots := ComputeSlots(start, f)
		want := 24 / f
		if want < 1 {
			want = 1
		}
		require.Len(t, slots, want, "f=%d", f)
		assert.Equal(t, start, slots[0])
		for i := 1; i < len(slots); i++ {
			assert.Equal(t, (slots[i-1].Minutes()+f*60)%1440, slots[i].Minutes())
		}
		assert.Equal(t, slots, ComputeSlots(start, f))
	}
}

func TestNormalizeFrequency(t *testing.T) {
	assert.Equal(t, 24, NormalizeFrequency(0))
	assert.Equal(t, 24, NormalizeFrequency(-3))
	assert.Equal(t, 6, NormalizeFrequency(6))
	assert.Equal(t, []string{"09:00"}, Labels(ComputeSlots(At(9, 0), 0)))
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("7:05")
	require.NoError(t, err)
	assert.Equal(t, "07:05", got.String())

	got, err = ParseTimeOfDay("23:59:10")
	require.NoError(t, err)
	assert.Equal(t, At(23, 59), got)

	for _, bad := range []string{"", "abc", "24:00", "12:60", "12", "-1:00"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
		assert.Equal(t, DefaultStart, ParseTimeOfDayOr(bad, DefaultStart), bad)
	}
}

func TestForMedication_Defaults(t *testing.T) {
	slots := ForMedication(models.Medication{ID: 1, StartTime: "garbage", FrequencyHours: 0})
	assert.Equal(t, []string{"09:00"}, Labels(slots))

	slots = ForMedication(models.Medication{ID: 1, StartTime: "06:00", FrequencyHours: 6})
	assert.Equal(t, []string{"06:00", "12:00", "18:00", "00:00"}, Labels(slots))
}

func TestCircularDistance(t *testing.T) {
	assert.Equal(t, 0, CircularDistance(At(8, 0), At(8, 0)))
	assert.Equal(t, 10, CircularDistance(At(23, 55), At(0, 5)))
	assert.Equal(t, 10, CircularDistance(At(0, 5), At(23, 55)))
	assert.Equal(t, 720, CircularDistance(At(0, 0), At(12, 0)))
	assert.Equal(t, 719, CircularDistance(At(0, 0), At(12, 1)))

	for a := 0; a < 1440; a += 37 {
		for b := 0; b < 1440; b += 53 {
			d := CircularDistance(fromMinutes(a), fromMinutes(b))
			assert.Equal(t, d, CircularDistance(fromMinutes(b), fromMinutes(a)))
			assert.LessOrEqual(t, d, 720)
			assert.GreaterOrEqual(t, d, 0)
		}
	}
}

func TestNearest(t *testing.T) {
	slots := ComputeSlots(At(8, 0), 8)

	slot, d, ok := Nearest(slots, At(23, 57))
	require.True(t, ok)
	assert.Equal(t, "00:00", slot.String())
	assert.Equal(t, 3, d)

	_, _, ok = Nearest(nil, At(1, 0))
	assert.False(t, ok)
}

func TestOccurrenceDay(t *testing.T) {
	day := func(h, m int) time.Time { return time.Date(2024, 5, 1, h, m, 0, 0, time.UTC) }
	tests := []struct {
		name string
		slot TimeOfDay
		now  time.Time
		want string
	}{
		{"same day", At(8, 0), day(8, 3), "2024-05-01"},
		{"slot before midnight", At(23, 58), day(0, 2), "2024-04-30"},
		{"slot after midnight", At(0, 1), day(23, 57), "2024-05-02"},
		{"half day apart", At(20, 0), day(8, 0), "2024-05-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OccurrenceDay(tt.slot, tt.now).Format("2006-01-02"))
		})
	}
}
