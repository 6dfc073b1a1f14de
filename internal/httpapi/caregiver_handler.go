package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"healthguard/internal/caregiver"

	"go.uber.org/zap"
)

type CaregiverHandler struct {
	lister      caregiver.PatientLister
	caregiverID int64
	logger      *zap.Logger
	now         func() time.Time
}

func NewCaregiverHandler(lister caregiver.PatientLister, caregiverID int64, logger *zap.Logger) *CaregiverHandler {
	return &CaregiverHandler{lister: lister, caregiverID: caregiverID, logger: logger, now: time.Now}
}

func (h *CaregiverHandler) GetTriage(w http.ResponseWriter, r *http.Request) {
	patients, err := h.lister.ListPatientsForCaregiver(r.Context(), h.caregiverID)
	if err != nil {
		h.logger.Error("Failed to list patients", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to list patients: %v", err)))
		return
	}
	ranked := caregiver.Rank(patients)
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": ranked,
		"total": len(ranked),
	}))
}

func (h *CaregiverHandler) ExportTriage(w http.ResponseWriter, r *http.Request) {
	patients, err := h.lister.ListPatientsForCaregiver(r.Context(), h.caregiverID)
	if err != nil {
		h.logger.Error("Failed to list patients", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to list patients: %v", err)))
		return
	}

	data, err := caregiver.GenerateTriageWorkbook(patients, h.now())
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to generate workbook: %v", err)))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=patient-triage.xlsx")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
