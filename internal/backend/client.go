// Package backend is the REST client for the HealthGuard backend.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"healthguard/common/config"
	"healthguard/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx answer other than 404.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s returned %d", e.Method, e.Path, e.Code)
}

// Client talks to the backend with a bounded timeout and retry count.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient creates a client authenticated with the session bearer token.
func NewClient(cfg config.HTTPClientConfig, token string, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			r.SetHeader("X-Request-ID", uuid.New().String())
			return nil
		})
	if token != "" {
		client.SetAuthToken(token)
	}

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

// ListMedicationsForPatient returns the patient's active medications.
func (c *Client) ListMedicationsForPatient(ctx context.Context, patientID int64) ([]models.Medication, error) {
	var meds []models.Medication
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(patientID, 10)).
		SetResult(&meds).
		Get("/api/medications/patient/{id}")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return meds, nil
}

// GetIntakesForDate returns the patient's intake records of one day.
func (c *Client) GetIntakesForDate(ctx context.Context, patientID int64, day time.Time) ([]models.RemoteIntake, error) {
	var intakes []models.RemoteIntake
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("patientId", strconv.FormatInt(patientID, 10)).
		SetQueryParam("date", day.Format("2006-01-02")).
		SetResult(&intakes).
		Get("/api/intakes/history")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return intakes, nil
}

// UpdateIntakeStatus sets the status of one intake record.
func (c *Client) UpdateIntakeStatus(ctx context.Context, intakeID int64, status models.IntakeStatus) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(intakeID, 10)).
		SetQueryParam("status", string(status)).
		Patch("/api/intakes/{id}/status")
	return c.check(resp, err)
}

// FindMedicationByNationalCode looks a code up in the backend catalogue.
// Returns ErrNotFound on 404.
func (c *Client) FindMedicationByNationalCode(ctx context.Context, code string) (*models.Medication, error) {
	var med models.Medication
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("code", code).
		SetResult(&med).
		Get("/api/medications/by-national-code")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return &med, nil
}

// VerifyIntakeByCode asks the backend whether the scanned code is due now.
func (c *Client) VerifyIntakeByCode(ctx context.Context, code string) (*models.IntakeVerification, error) {
	var v models.IntakeVerification
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("barcode", code).
		SetResult(&v).
		Get("/api/intakes/verify")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListPatientsForCaregiver returns the caregiver's patient summaries.
func (c *Client) ListPatientsForCaregiver(ctx context.Context, caregiverID int64) ([]models.PatientSummary, error) {
	var patients []models.PatientSummary
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(caregiverID, 10)).
		SetResult(&patients).
		Get("/api/caregivers/{id}/patients")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return patients, nil
}

// ListAppointments returns the patient's appointments.
func (c *Client) ListAppointments(ctx context.Context, patientID int64) ([]models.Appointment, error) {
	var appts []models.Appointment
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(patientID, 10)).
		SetResult(&appts).
		Get("/api/appointments/patient/{id}")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return appts, nil
}

// CreateMedication stores a new medication and returns it with the id the
// backend assigned.
func (c *Client) CreateMedication(ctx context.Context, med models.Medication) (*models.Medication, error) {
	var created models.Medication
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(med).
		SetResult(&created).
		Post("/api/medications")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteMedication removes a medication at the backend.
func (c *Client) DeleteMedication(ctx context.Context, medicationID int64) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(medicationID, 10)).
		Delete("/api/medications/{id}")
	return c.check(resp, err)
}

func (c *Client) check(resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Warn("Backend call failed", zap.Error(err))
		return fmt.Errorf("backend request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.IsError() {
		req := resp.Request
		c.logger.Warn("Backend returned error",
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Int("status_code", resp.StatusCode()),
		)
		return &StatusError{Method: req.Method, Path: req.URL, Code: resp.StatusCode()}
	}
	return nil
}
