package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"healthguard/internal/backend"
	"healthguard/internal/models"
	"healthguard/internal/registry"
	"healthguard/internal/schedule"
	"healthguard/internal/session"

	"go.uber.org/zap"
)

// DefaultDebounce drops repeats of the same code within this interval.
const DefaultDebounce = 2 * time.Second

// draftFrequencyHours and draftStockAlert prefill registry drafts.
const (
	draftFrequencyHours = 8
	draftStockAlert     = 5
)

var (
	ErrNothingPending = errors.New("no intake pending confirmation")
	ErrBusy           = errors.New("scanner is not idle")
)

// State of the scanner.
type State int

const (
	StateIdle State = iota
	StateProcessing
	StateResult
)

// ResultKind classifies what the user is shown after a scan.
type ResultKind string

const (
	ResultOnSchedule        ResultKind = "ON_SCHEDULE"
	ResultOffSchedule       ResultKind = "OFF_SCHEDULE"
	ResultBackendVerified   ResultKind = "BACKEND_VERIFIED"
	ResultBackendRejected   ResultKind = "BACKEND_REJECTED"
	ResultDraft             ResultKind = "DRAFT"
	ResultAlreadyRegistered ResultKind = "ALREADY_REGISTERED"
	ResultNotRecognized     ResultKind = "NOT_RECOGNIZED"
	ResultUnavailable       ResultKind = "UNAVAILABLE"
	ResultIgnored           ResultKind = "IGNORED"
)

// ScanResult is the scanner's answer to one code.
type ScanResult struct {
	Kind       ResultKind         `json:"kind"`
	Message    string             `json:"message"`
	Code       string             `json:"code,omitempty"`
	Medication *models.Medication `json:"medication,omitempty"`
	Slot       string             `json:"slot,omitempty"`
	CanConfirm bool               `json:"can_confirm"`
}

// MedicationCache exposes the patient's last loaded medications.
type MedicationCache interface {
	Medications() []models.Medication
}

// Catalog is the backend lookup used when the cache has no match.
type Catalog interface {
	VerifyIntakeByCode(ctx context.Context, code string) (*models.IntakeVerification, error)
	FindMedicationByNationalCode(ctx context.Context, code string) (*models.Medication, error)
}

// Registry is the national medicines registry fallback.
type Registry interface {
	Lookup(ctx context.Context, code string) (*registry.Entry, error)
}

// Marker records a taken dose.
type Marker interface {
	MarkTaken(ctx context.Context, med models.Medication, slot string, day time.Time) error
}

type pendingIntake struct {
	med  models.Medication
	slot string
	day  time.Time
}

// Scanner runs the scan flow: Idle -> Processing -> Result, back to Idle on
// Reset or a successful Confirm. Scans outside Idle are ignored.
type Scanner struct {
	verifier *Verifier
	sess     *session.Session
	meds     MedicationCache
	catalog  Catalog
	registry Registry
	marker   Marker
	debounce time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	state    State
	lastCode string
	lastScan time.Time
	pending  *pendingIntake
}

// NewScanner creates a scanner. debounce <= 0 uses DefaultDebounce.
func NewScanner(
	verifier *Verifier,
	sess *session.Session,
	meds MedicationCache,
	catalog Catalog,
	reg Registry,
	marker Marker,
	debounce time.Duration,
	logger *zap.Logger,
) *Scanner {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Scanner{
		verifier: verifier,
		sess:     sess,
		meds:     meds,
		catalog:  catalog,
		registry: reg,
		marker:   marker,
		debounce: debounce,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the wall clock (tests).
func (s *Scanner) SetClock(now func() time.Time) {
	s.now = now
}

// State returns the current state.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reset returns to Idle and drops any pending intake.
func (s *Scanner) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.pending = nil
}

// Scan handles one raw code read by the camera.
func (s *Scanner) Scan(ctx context.Context, raw string) ScanResult {
	now := s.now()

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ScanResult{Kind: ResultIgnored, Message: ErrBusy.Error()}
	}
	if raw == s.lastCode && now.Sub(s.lastScan) < s.debounce {
		s.mu.Unlock()
		return ScanResult{Kind: ResultIgnored, Message: "duplicate scan"}
	}
	s.lastCode = raw
	s.lastScan = now
	s.state = StateProcessing
	s.mu.Unlock()

	code := ExtractEAN(raw)
	res, pending := s.process(ctx, code, now)
	res.Code = code

	s.mu.Lock()
	s.state = StateResult
	s.pending = pending
	s.mu.Unlock()

	s.logger.Info("Scan processed",
		zap.String("code", code),
		zap.String("result", string(res.Kind)),
	)
	return res
}

// Confirm marks the pending on-schedule dose taken and resets the scanner.
// The pending intake is claimed under the lock so concurrent confirms record
// it once; a failed mark puts it back.
func (s *Scanner) Confirm(ctx context.Context) (*models.Medication, string, error) {
	s.mu.Lock()
	p := s.pending
	s.pending = nil
	s.mu.Unlock()
	if p == nil {
		return nil, "", ErrNothingPending
	}

	if err := s.marker.MarkTaken(ctx, p.med, p.slot, p.day); err != nil {
		s.mu.Lock()
		if s.pending == nil && s.state == StateResult {
			s.pending = p
		}
		s.mu.Unlock()
		return nil, "", err
	}

	s.Reset()
	return &p.med, p.slot, nil
}

func (s *Scanner) process(ctx context.Context, code string, now time.Time) (ScanResult, *pendingIntake) {
	out := s.verifier.Verify(code, s.meds.Medications(), now)
	switch out.Kind {
	case OnSchedule:
		return ScanResult{
			Kind:       ResultOnSchedule,
			Message:    fmt.Sprintf("Correct! Due now: %s%s", out.Slot, usage(out.Medication)),
			Medication: out.Medication,
			Slot:       out.Slot,
			CanConfirm: true,
		}, &pendingIntake{med: *out.Medication, slot: out.Slot, day: doseDay(out.Slot, now)}
	case OffSchedule:
		return ScanResult{
			Kind:       ResultOffSchedule,
			Message:    fmt.Sprintf("Not yet time to take this dose. Scheduled at %s%s", out.Slot, usage(out.Medication)),
			Medication: out.Medication,
			Slot:       out.Slot,
		}, nil
	case NoMatch:
	}

	if s.sess.RegisterMode() {
		return s.lookupForRegistration(ctx, code), nil
	}
	return s.verifyRemotely(ctx, code), nil
}

// doseDay is the calendar day the matched slot occurrence belongs to.
func doseDay(slot string, now time.Time) time.Time {
	tod, err := schedule.ParseTimeOfDay(slot)
	if err != nil {
		return now
	}
	return schedule.OccurrenceDay(tod, now)
}

func (s *Scanner) verifyRemotely(ctx context.Context, code string) ScanResult {
	v, err := s.catalog.VerifyIntakeByCode(ctx, code)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return ScanResult{Kind: ResultNotRecognized, Message: "Medication not recognized"}
		}
		s.logger.Warn("Remote verification failed", zap.String("code", code), zap.Error(err))
		return ScanResult{Kind: ResultUnavailable, Message: "Could not connect"}
	}

	if v.Verdict == models.VerdictOnSchedule {
		return ScanResult{Kind: ResultBackendVerified, Message: "Correct!", Medication: v.Medication}
	}
	return ScanResult{Kind: ResultBackendRejected, Message: v.Message, Medication: v.Medication}
}

func (s *Scanner) lookupForRegistration(ctx context.Context, code string) ScanResult {
	med, err := s.catalog.FindMedicationByNationalCode(ctx, code)
	switch {
	case err == nil:
	case errors.Is(err, backend.ErrNotFound):
		return s.registryDraft(ctx, code)
	default:
		s.logger.Warn("Catalogue lookup failed", zap.String("code", code), zap.Error(err))
		return ScanResult{Kind: ResultUnavailable, Message: "Could not connect"}
	}

	if med.Owned() {
		return ScanResult{Kind: ResultAlreadyRegistered, Message: "This medication is already registered", Medication: med}
	}

	draft := *med
	draft.Name = Tidy(before(med.Name, "+"))
	draft.Description = Tidy(before(med.Description, "|"))
	return ScanResult{Kind: ResultDraft, Message: "New medication", Medication: &draft}
}

// registryDraft builds a draft from the national registry. A failed or
// empty lookup still yields a draft carrying the code.
func (s *Scanner) registryDraft(ctx context.Context, code string) ScanResult {
	draft := models.Medication{
		FrequencyHours: draftFrequencyHours,
		NationalCode:   code,
	}
	stock := draftStockAlert
	draft.StockAlert = &stock

	entry, err := s.registry.Lookup(ctx, code)
	if err != nil {
		s.logger.Warn("Registry lookup failed", zap.String("code", code), zap.Error(err))
	}
	if entry != nil {
		draft.Name = Tidy(before(entry.Name, ","))
		draft.Description = Tidy(entry.Holder)
	}
	return ScanResult{Kind: ResultDraft, Message: "New medication", Medication: &draft}
}

func usage(med *models.Medication) string {
	if med == nil || med.Description == "" {
		return ""
	}
	return "\nUsed for: " + Tidy(before(med.Description, "|"))
}
