package httpapi

import (
	"context"
	"net/http"
	"sort"
	"time"

	"healthguard/internal/intake"
	"healthguard/internal/models"
	"healthguard/internal/schedule"

	"go.uber.org/zap"
)

type ScanFlow interface {
	Scan(ctx context.Context, raw string) intake.ScanResult
	Confirm(ctx context.Context) (*models.Medication, string, error)
	Reset()
}

type IntakeLedger interface {
	MarkTaken(ctx context.Context, med models.Medication, slot string, day time.Time) error
	IsTaken(ctx context.Context, medicationID int64, slot string, day time.Time) bool
}

type AppointmentScheduler interface {
	ScheduleAppointment(ctx context.Context, title, dateTime string) (int64, error)
}

// MedicationCreator stores a new medication and arms its alarms.
type MedicationCreator interface {
	AddMedication(ctx context.Context, med models.Medication) (*models.Medication, error)
}

// MedicationRemover deletes a medication at the backend and drops its alarms.
type MedicationRemover interface {
	RemoveMedication(ctx context.Context, medicationID int64) error
}

type ExactPermission interface {
	SetExactPermitted(permitted bool)
}

// ReminderDeps are the services behind the reminder endpoints.
type ReminderDeps struct {
	Scanner      ScanFlow
	Medications  intake.MedicationCache
	Ledger       IntakeLedger
	Appointments AppointmentScheduler
	Creator      MedicationCreator
	Remover      MedicationRemover
	Permission   ExactPermission
}

type ReminderHandler struct {
	deps   ReminderDeps
	logger *zap.Logger
	now    func() time.Time
}

func NewReminderHandler(deps ReminderDeps, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{deps: deps, logger: logger, now: time.Now}
}

// TodayIntake is one dose slot of the current day.
type TodayIntake struct {
	MedicationID int64  `json:"medication_id"`
	Name         string `json:"name"`
	Dose         string `json:"dose,omitempty"`
	Slot         string `json:"slot"`
	Taken        bool   `json:"taken"`
}

func (h *ReminderHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	if body.Code == "" {
		writeJSON(w, http.StatusOK, Fail("code is required"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.deps.Scanner.Scan(r.Context(), body.Code)))
}

func (h *ReminderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	med, slot, err := h.deps.Scanner.Confirm(r.Context())
	if err != nil {
		res, known := FailFor(err, "failed to record intake")
		if !known {
			h.logger.Error("Failed to confirm intake", zap.Error(err))
		}
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"medication_id": med.ID,
		"name":          med.Name,
		"slot":          slot,
	}))
}

func (h *ReminderHandler) ResetScan(w http.ResponseWriter, _ *http.Request) {
	h.deps.Scanner.Reset()
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

func (h *ReminderHandler) Today(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	items := make([]TodayIntake, 0)
	for _, med := range h.deps.Medications.Medications() {
		for _, slot := range schedule.Labels(schedule.ForMedication(med)) {
			items = append(items, TodayIntake{
				MedicationID: med.ID,
				Name:         med.Name,
				Dose:         med.Dose,
				Slot:         slot,
				Taken:        h.deps.Ledger.IsTaken(r.Context(), med.ID, slot, now),
			})
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Slot != items[j].Slot {
			return items[i].Slot < items[j].Slot
		}
		return items[i].Name < items[j].Name
	})
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"date":  now.Format("2006-01-02"),
		"items": items,
	}))
}

func (h *ReminderHandler) MarkTaken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MedicationID int64  `json:"medication_id"`
		Slot         string `json:"slot"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	med, ok := h.findMedication(body.MedicationID)
	if !ok {
		writeJSON(w, http.StatusOK, Fail("medication not found"))
		return
	}
	slot, err := schedule.ParseTimeOfDay(body.Slot)
	if err != nil || !hasSlot(med, slot.String()) {
		writeJSON(w, http.StatusOK, Fail("slot is not scheduled for this medication"))
		return
	}

	if err := h.deps.Ledger.MarkTaken(r.Context(), med, slot.String(), h.now()); err != nil {
		h.logger.Error("Failed to mark intake taken",
			zap.Int64("medication_id", med.ID),
			zap.String("slot", slot.String()),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail("failed to record intake"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"medication_id": med.ID,
		"slot":          slot.String(),
	}))
}

func (h *ReminderHandler) ScheduleAppointment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title    string `json:"title"`
		DateTime string `json:"date_time"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	if body.Title == "" || body.DateTime == "" {
		writeJSON(w, http.StatusOK, Fail("title and date_time are required"))
		return
	}

	id, err := h.deps.Appointments.ScheduleAppointment(r.Context(), body.Title, body.DateTime)
	if err != nil {
		res, known := FailFor(err, "failed to schedule appointment")
		if !known {
			h.logger.Warn("Failed to schedule appointment", zap.String("title", body.Title), zap.Error(err))
		}
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"trigger_id": id}))
}

func (h *ReminderHandler) CreateMedication(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name           string `json:"name"`
		Description    string `json:"description"`
		Dose           string `json:"dose"`
		FrequencyHours int    `json:"frequency_hours"`
		StartTime      string `json:"start_time"`
		NationalCode   string `json:"national_code"`
		StockAlert     *int   `json:"stock_alert"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	if body.Name == "" {
		writeJSON(w, http.StatusOK, Fail("name is required"))
		return
	}
	if body.FrequencyHours < 0 || body.FrequencyHours > 24 {
		writeJSON(w, http.StatusOK, Fail("frequency_hours must be between 1 and 24"))
		return
	}
	if body.StartTime != "" {
		if _, err := schedule.ParseTimeOfDay(body.StartTime); err != nil {
			writeJSON(w, http.StatusOK, Fail("start_time must be HH:MM"))
			return
		}
	}

	created, err := h.deps.Creator.AddMedication(r.Context(), models.Medication{
		Name:           body.Name,
		Description:    body.Description,
		Dose:           body.Dose,
		FrequencyHours: body.FrequencyHours,
		StartTime:      body.StartTime,
		NationalCode:   body.NationalCode,
		StockAlert:     body.StockAlert,
	})
	if err != nil {
		h.logger.Error("Failed to create medication", zap.String("name", body.Name), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to create medication"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(created))
}

func (h *ReminderHandler) DeleteMedication(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.deps.Remover.RemoveMedication(r.Context(), id); err != nil {
		res, known := FailFor(err, "failed to delete medication")
		if !known {
			h.logger.Error("Failed to delete medication", zap.Int64("medication_id", id), zap.Error(err))
		}
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

func (h *ReminderHandler) SetExactPermission(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Granted *bool `json:"granted"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil || body.Granted == nil {
		writeJSON(w, http.StatusOK, Fail("granted is required"))
		return
	}
	h.deps.Permission.SetExactPermitted(*body.Granted)
	h.logger.Info("Exact alarm permission changed", zap.Bool("granted", *body.Granted))
	writeJSON(w, http.StatusOK, Ok(map[string]any{"granted": *body.Granted}))
}

func (h *ReminderHandler) findMedication(id int64) (models.Medication, bool) {
	for _, med := range h.deps.Medications.Medications() {
		if med.ID == id {
			return med, true
		}
	}
	return models.Medication{}, false
}

func hasSlot(med models.Medication, label string) bool {
	for _, s := range schedule.Labels(schedule.ForMedication(med)) {
		if s == label {
			return true
		}
	}
	return false
}
