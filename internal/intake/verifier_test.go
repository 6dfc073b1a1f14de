package intake

import (
	"testing"
	"time"

	"healthguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
	return time.Date(2024, 5, 1, h, m, 0, 0, time.UTC)
}

var testMeds = []models.Medication{
	{ID: 1, Name: "Aspirin", NationalCode: "0712345", FrequencyHours: 8, StartTime: "08:00"},
	{ID: 2, Name: "Omeprazole", NationalCode: "654321", FrequencyHours: 24, StartTime: "23:58"},
	{ID: 3, Name: "Vitamin D"},
}

func TestVerify_NoMatch(t *testing.T) {
	v := NewVerifier(DefaultToleranceMinutes)
	assert.Equal(t, NoMatch, v.Verify("999999", testMeds, at(8, 0)).Kind)
	assert.Equal(t, NoMatch, v.Verify("", testMeds, at(8, 0)).Kind)
	assert.Equal(t, NoMatch, v.Verify("000", testMeds, at(8, 0)).Kind)
	assert.Equal(t, NoMatch, v.Verify("712345", nil, at(8, 0)).Kind)
}

func TestVerify_Tolerance(t *testing.T) {
	v := NewVerifier(5)

	tests := []struct {
		now      time.Time
		kind     OutcomeKind
		slot     string
		distance int
	}{
		{at(8, 0), OnSchedule, "08:00", 0},
		{at(8, 5), OnSchedule, "08:00", 5},
		{at(7, 55), OnSchedule, "08:00", 5},
		{at(8, 6), OffSchedule, "08:00", 6},
		{at(15, 57), OnSchedule, "16:00", 3},
		{at(23, 57), OnSchedule, "00:00", 3},
		{at(12, 0), OffSchedule, "08:00", 240},
	}
	for _, tt := range tests {
		out := v.Verify("712345", testMeds, tt.now)
		assert.Equal(t, tt.kind, out.Kind, tt.now.Format("15:04"))
		assert.Equal(t, tt.slot, out.Slot, tt.now.Format("15:04"))
		assert.Equal(t, tt.distance, out.Distance, tt.now.Format("15:04"))
		require.NotNil(t, out.Medication)
		assert.Equal(t, int64(1), out.Medication.ID)
	}
}

func TestVerify_WrapsMidnight(t *testing.T) {
	v := NewVerifier(5)
	out := v.Verify(" 654321", testMeds, at(0, 2))
	assert.Equal(t, OnSchedule, out.Kind)
	assert.Equal(t, "23:58", out.Slot)
	assert.Equal(t, 4, out.Distance)
}

func TestVerify_FirstMatchWins(t *testing.T) {
	meds := []models.Medication{
		{ID: 10, NationalCode: "111", StartTime: "08:00", FrequencyHours: 24},
		{ID: 11, NationalCode: "0111", StartTime: "20:00", FrequencyHours: 24},
	}
	out := NewVerifier(5).Verify("111", meds, at(20, 0))
	require.NotNil(t, out.Medication)
	assert.Equal(t, int64(10), out.Medication.ID)
	assert.Equal(t, OffSchedule, out.Kind)
}

func TestVerify_DefaultsForMalformedMedication(t *testing.T) {
	meds := []models.Medication{{ID: 5, NationalCode: "5", StartTime: "nope", FrequencyHours: -1}}
	out := NewVerifier(5).Verify("5", meds, at(9, 3))
	assert.Equal(t, OnSchedule, out.Kind)
	assert.Equal(t, "09:00", out.Slot)
}
