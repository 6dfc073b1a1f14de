package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"healthguard/common/config"
	"healthguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.HTTPClientConfig{
		BaseURL:    srv.URL,
		Timeout:    2 * time.Second,
		RetryCount: retries,
	}, "tok-123", zap.NewNop())
}

func writeBody(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestListMedicationsForPatient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/medications/patient/7", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		writeBody(w, []models.Medication{{ID: 1, Name: "Aspirin", FrequencyHours: 8, StartTime: "08:00", NationalCode: "0712345"}})
	}, 0)

	meds, err := c.ListMedicationsForPatient(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, meds, 1)
	assert.Equal(t, "Aspirin", meds[0].Name)
	assert.Equal(t, 8, meds[0].FrequencyHours)
	assert.Equal(t, "0712345", meds[0].NationalCode)
}

func TestGetIntakesForDate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/intakes/history", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("patientId"))
		assert.Equal(t, "2024-05-01", r.URL.Query().Get("date"))
		writeBody(w, []models.RemoteIntake{{ID: 11, MedicationName: "Aspirin", ScheduledAt: "2024-05-01T08:00:00", Status: models.IntakePending}})
	}, 0)

	intakes, err := c.GetIntakesForDate(context.Background(), 7, time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, intakes, 1)
	assert.Equal(t, "08:00", intakes[0].ScheduledSlot())
	assert.Equal(t, models.IntakePending, intakes[0].Status)
}

func TestUpdateIntakeStatus(t *testing.T) {
	var called atomic.Bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/intakes/11/status", r.URL.Path)
		assert.Equal(t, "TAKEN", r.URL.Query().Get("status"))
		w.WriteHeader(http.StatusNoContent)
	}, 0)

	require.NoError(t, c.UpdateIntakeStatus(context.Background(), 11, models.IntakeTaken))
	assert.True(t, called.Load())
}

func TestFindMedicationByNationalCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("code") {
		case "712345":
			writeBody(w, models.Medication{ID: 4, Name: "Omeprazole", PatientID: 9})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, 0)

	med, err := c.FindMedicationByNationalCode(context.Background(), "712345")
	require.NoError(t, err)
	assert.True(t, med.Owned())

	_, err = c.FindMedicationByNationalCode(context.Background(), "000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyIntakeByCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/intakes/verify", r.URL.Path)
		assert.Equal(t, "8470001234567", r.URL.Query().Get("barcode"))
		writeBody(w, models.IntakeVerification{Verdict: models.VerdictOnSchedule, Message: "ok", Medication: &models.Medication{Name: "Aspirin"}})
	}, 0)

	v, err := c.VerifyIntakeByCode(context.Background(), "8470001234567")
	require.NoError(t, err)
	assert.Equal(t, models.VerdictOnSchedule, v.Verdict)
	require.NotNil(t, v.Medication)
	assert.Equal(t, "Aspirin", v.Medication.Name)
}

func TestListPatientsAndAppointments(t *testing.T) {
	msg := "SOS pressed"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/caregivers/3/patients":
			writeBody(w, []models.PatientSummary{{ID: 1, Name: "Ana", Status: models.PatientStable, AlertMessage: &msg, Adherence: 90}})
		case "/api/appointments/patient/1":
			writeBody(w, []models.Appointment{{ID: 2, Title: "Dentist", DateTime: "2024-06-01T10:00"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, 0)

	patients, err := c.ListPatientsForCaregiver(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	require.NotNil(t, patients[0].AlertMessage)
	assert.Equal(t, "SOS pressed", *patients[0].AlertMessage)

	appts, err := c.ListAppointments(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "Dentist", appts[0].Title)
}

func TestCreateMedication(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/medications", r.URL.Path)
		var med models.Medication
		require.NoError(t, json.NewDecoder(r.Body).Decode(&med))
		assert.Equal(t, "Metformin", med.Name)
		assert.Equal(t, int64(7), med.PatientID)
		med.ID = 42
		writeBody(w, med)
	}, 0)

	created, err := c.CreateMedication(context.Background(), models.Medication{
		PatientID: 7, Name: "Metformin", FrequencyHours: 12, StartTime: "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)
	assert.Equal(t, 12, created.FrequencyHours)
}

func TestDeleteMedication(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/medications/5", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}, 0)

	require.NoError(t, c.DeleteMedication(context.Background(), 5))
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, 0)

	_, err := c.ListMedicationsForPatient(context.Background(), 1)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeBody(w, []models.Medication{})
	}, 1)

	meds, err := c.ListMedicationsForPatient(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, meds)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(config.HTTPClientConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, "", zap.NewNop())
	_, err := c.ListMedicationsForPatient(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
