package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"healthguard/internal/caregiver"
	"healthguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type fakeLister struct {
	patients []models.PatientSummary
	err      error
}

func (f *fakeLister) ListPatientsForCaregiver(_ context.Context, _ int64) ([]models.PatientSummary, error) {
	return f.patients, f.err
}

func newCaregiverRouter(lister caregiver.PatientLister) *Router {
	r := NewRouter(zap.NewNop())
	r.RegisterCaregiverRoutes(NewCaregiverHandler(lister, 9, zap.NewNop()))
	return r
}

func TestGetTriage(t *testing.T) {
	r := newCaregiverRouter(&fakeLister{patients: []models.PatientSummary{
		{ID: 1, Name: "Ana", Status: models.PatientStable, Adherence: 95},
		{ID: 2, Name: "Luis", Status: models.PatientCritical, Adherence: 60},
	}})

	_, res := do(t, r, http.MethodGet, "/api/v1/patients/triage", "")
	require.Equal(t, ResultSuccess, res.Code)

	var body struct {
		Items []struct {
			ID     int64 `json:"id"`
			Triage struct {
				Label string `json:"label"`
				Color string `json:"color"`
			} `json:"triage"`
		} `json:"items"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(res.Result, &body))
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, int64(2), body.Items[0].ID)
	assert.Equal(t, "HIGH RISK", body.Items[0].Triage.Label)
	assert.Equal(t, "STABLE", body.Items[1].Triage.Label)
}

func TestGetTriage_BackendError(t *testing.T) {
	r := newCaregiverRouter(&fakeLister{err: errors.New("offline")})
	_, res := do(t, r, http.MethodGet, "/api/v1/patients/triage", "")
	assert.Equal(t, ResultError, res.Code)
}

func TestExportTriage(t *testing.T) {
	r := newCaregiverRouter(&fakeLister{patients: []models.PatientSummary{
		{ID: 2, Name: "Luis", Status: models.PatientCritical, Adherence: 60},
	}})

	rr, _ := do(t, r, http.MethodGet, "/api/v1/patients/triage.xlsx", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "patient-triage.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue("Triage", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Luis", name)
}
