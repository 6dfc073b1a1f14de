package httpapi

import (
	"errors"
	"fmt"
	"testing"

	"healthguard/internal/alarm"
	"healthguard/internal/backend"
	"healthguard/internal/intake"

	"github.com/stretchr/testify/assert"
)

func TestFailFor(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		known   bool
	}{
		{"nothing pending", intake.ErrNothingPending, "nothing to confirm", true},
		{"wrapped not found", fmt.Errorf("delete: %w", backend.ErrNotFound), "medication not found", true},
		{"past appointment", alarm.ErrAppointmentInPast, "appointment is in the past", true},
		{"other", errors.New("connection reset"), "failed", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, known := FailFor(tt.err, "failed")
			assert.Equal(t, tt.known, known)
			assert.Equal(t, ResultError, res.Code)
			assert.Equal(t, "error", res.Type)
			assert.Equal(t, tt.message, res.Message)
		})
	}
}
