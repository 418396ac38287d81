package maternallab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/metrics"
	"github.com/Jmsandi/newmedtech1-sub002/pkg/validation"
)

const (
	EventAlertRaised       = "maternal_lab.alert.raised"
	EventAlertAcknowledged = "maternal_lab.alert.acknowledged"
	EventAlertResolved     = "maternal_lab.alert.resolved"
)

// ErrInvalidRequest wraps request validation failures.
var ErrInvalidRequest = errors.New("invalid request")

type ParameterValue struct {
	ParameterID string `json:"parameter_id" validate:"required"`
	Value       string `json:"value"`
}

type SubmitTestRequest struct {
	PatientID           uuid.UUID        `json:"patient_id" validate:"required"`
	GestationalAgeWeeks *int             `json:"gestational_age_weeks,omitempty" validate:"omitempty,min=1,max=45"`
	TestCategory        string           `json:"test_category" validate:"required"`
	TestKey             string           `json:"test_key" validate:"required"`
	SampleID            string           `json:"sample_id,omitempty"`
	Parameters          []ParameterValue `json:"parameters" validate:"required,min=1,dive"`
	OrderedBy           string           `json:"ordered_by,omitempty"`
	PerformedBy         string           `json:"performed_by,omitempty"`
	Notes               string           `json:"notes,omitempty"`
	CollectedAt         *time.Time       `json:"collected_at,omitempty"`
}

type UpdateParametersRequest struct {
	GestationalAgeWeeks *int             `json:"gestational_age_weeks,omitempty" validate:"omitempty,min=1,max=45"`
	Parameters          []ParameterValue `json:"parameters" validate:"required,min=1,dive"`
}

type ResolveAlertRequest struct {
	ActionsTaken []string `json:"actions_taken" validate:"required,min=1"`
	Outcome      string   `json:"outcome" validate:"required"`
}

type Service struct {
	catalog   *Catalog
	tests     LabTestRepository
	profiles  RiskProfileRepository
	alerts    AlertRepository
	patients  PatientDirectory
	locker    ProfileLocker
	publisher AlertPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(
	catalog *Catalog,
	tests LabTestRepository,
	profiles RiskProfileRepository,
	alerts AlertRepository,
	patients PatientDirectory,
	locker ProfileLocker,
	publisher AlertPublisher,
	logger zerolog.Logger,
) *Service {
	return &Service{
		catalog:   catalog,
		tests:     tests,
		profiles:  profiles,
		alerts:    alerts,
		patients:  patients,
		locker:    locker,
		publisher: publisher,
		logger:    logger.With().Str("component", "maternallab").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Catalog() []CategoryConfig {
	return s.catalog.Categories()
}

// -- Lab Tests --

// SubmitTest classifies, scores and persists a new result, then rebuilds the
// patient's risk profile and runs the critical-value check. The saved test is
// returned even when the follow-up steps fail; their errors are joined.
func (s *Service) SubmitTest(ctx context.Context, req *SubmitTestRequest) (*LabTest, error) {
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	weeks, err := s.resolveGestationalAge(ctx, req.PatientID, req.GestationalAgeWeeks)
	if err != nil {
		return nil, err
	}
	def, err := s.catalog.Lookup(req.TestCategory, req.TestKey)
	if err != nil {
		return nil, err
	}

	t := &LabTest{
		PatientID:           req.PatientID,
		GestationalAgeWeeks: weeks,
		TestCategory:        req.TestCategory,
		TestKey:             req.TestKey,
		TestType:            def.Name,
		SampleID:            req.SampleID,
		OrderedBy:           req.OrderedBy,
		PerformedBy:         req.PerformedBy,
		Notes:               req.Notes,
		CollectedAt:         req.CollectedAt,
	}
	s.evaluate(t, def, req.Parameters)

	if err := s.tests.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("save lab test: %w", err)
	}
	metrics.RecordTestScored(string(t.RiskLevel))
	s.logger.Info().
		Str("lab_test_id", t.ID.String()).
		Str("patient_id", t.PatientID.String()).
		Str("test_type", t.TestType).
		Int("risk_score", t.RiskScore).
		Str("risk_level", string(t.RiskLevel)).
		Msg("lab test scored")

	return t, s.afterWrite(ctx, t)
}

// PreviewTest runs classification and scoring without persisting anything.
func (s *Service) PreviewTest(ctx context.Context, req *SubmitTestRequest) (*LabTest, error) {
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	weeks, err := s.resolveGestationalAge(ctx, req.PatientID, req.GestationalAgeWeeks)
	if err != nil {
		return nil, err
	}
	def, err := s.catalog.Lookup(req.TestCategory, req.TestKey)
	if err != nil {
		return nil, err
	}
	t := &LabTest{
		PatientID:           req.PatientID,
		GestationalAgeWeeks: weeks,
		TestCategory:        req.TestCategory,
		TestKey:             req.TestKey,
		TestType:            def.Name,
		SampleID:            req.SampleID,
	}
	s.evaluate(t, def, req.Parameters)
	return t, nil
}

// UpdateTestParameters re-derives every classified parameter of a test from
// new raw values.
func (s *Service) UpdateTestParameters(ctx context.Context, id uuid.UUID, req *UpdateParametersRequest) (*LabTest, error) {
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	t, err := s.tests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	def, err := s.catalog.Lookup(t.TestCategory, t.TestKey)
	if err != nil {
		return nil, err
	}
	if req.GestationalAgeWeeks != nil {
		t.GestationalAgeWeeks = *req.GestationalAgeWeeks
	}
	s.evaluate(t, def, req.Parameters)

	if err := s.tests.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("update lab test: %w", err)
	}
	metrics.RecordTestScored(string(t.RiskLevel))
	return t, s.afterWrite(ctx, t)
}

// ReviewTest attaches review metadata. Results are not re-derived.
func (s *Service) ReviewTest(ctx context.Context, id uuid.UUID, reviewer, notes string) (*LabTest, error) {
	if reviewer == "" {
		return nil, fmt.Errorf("%w: reviewed_by is required", ErrInvalidRequest)
	}
	t, err := s.tests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	t.ReviewedBy = reviewer
	t.ReviewedAt = &now
	t.ReviewNotes = notes
	if err := s.tests.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("update lab test: %w", err)
	}
	return t, nil
}

func (s *Service) GetTest(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	return s.tests.GetByID(ctx, id)
}

func (s *Service) ListTestsByPatient(ctx context.Context, patientID uuid.UUID) ([]*LabTest, error) {
	tests, err := s.tests.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return sortByCreation(tests), nil
}

func (s *Service) resolveGestationalAge(ctx context.Context, patientID uuid.UUID, given *int) (int, error) {
	patient, err := s.patients.GetMaternalPatientByID(ctx, patientID)
	if err != nil {
		return 0, err
	}
	if given != nil {
		return *given, nil
	}
	if patient.GestationalAgeWeeks <= 0 {
		return 0, fmt.Errorf("%w: gestational_age_weeks is required (none on record for patient)", ErrInvalidRequest)
	}
	return patient.GestationalAgeWeeks, nil
}

// evaluate fills the derived fields of t from raw parameter values.
func (s *Service) evaluate(t *LabTest, def TestDefinition, values []ParameterValue) {
	params := make([]ClassifiedParameter, 0, len(values))
	for _, v := range values {
		pd, ok := def.Parameter(v.ParameterID)
		if !ok {
			s.logger.Warn().
				Str("test_key", def.Key).
				Str("parameter_id", v.ParameterID).
				Msg("parameter not in catalog; left unclassified")
			pd = ParameterDefinition{ID: v.ParameterID, Name: v.ParameterID, ValueType: ValueText}
		}
		cp, classified := s.catalog.Classify(pd, v.Value, t.GestationalAgeWeeks)
		if !classified && pd.ValueType == ValueNumeric {
			s.logger.Warn().
				Str("parameter_id", pd.ID).
				Str("value", v.Value).
				Msg("numeric parameter could not be classified; defaulting to Normal")
		}
		params = append(params, cp)
	}

	t.Parameters = params
	t.RiskFactors = AssessRiskFactors(params)
	t.RiskScore = ScoreParameters(params, t.GestationalAgeWeeks)
	t.RiskLevel = RiskLevelForScore(t.RiskScore)
	t.ClinicalInterpretation = Interpret(params, t.RiskFactors)
	t.RecommendedActions = Recommend(t.RiskFactors, t.RiskLevel)
	t.UrgentReferral = UrgentReferral(t.RiskLevel, params)
	t.Status = TestCompleted
	if RequiresAlert(t) {
		t.Status = TestCriticalAlert
	}
}

// afterWrite rebuilds the profile and then checks for critical values. Both
// always run; an alert is never skipped because the rebuild failed.
func (s *Service) afterWrite(ctx context.Context, t *LabTest) error {
	var errs []error
	if _, err := s.RebuildProfile(ctx, t.PatientID); err != nil {
		errs = append(errs, fmt.Errorf("rebuild risk profile: %w", err))
	}
	if _, err := s.CheckForCriticalValues(ctx, t); err != nil {
		errs = append(errs, fmt.Errorf("create critical alert: %w", err))
	}
	return errors.Join(errs...)
}

// -- Risk Profile --

func (s *Service) GetProfile(ctx context.Context, patientID uuid.UUID) (*RiskProfile, error) {
	return s.profiles.GetByPatient(ctx, patientID)
}

// RebuildProfile recomputes the patient's profile from the full test history
// under the patient's profile lock. It returns nil, nil when the patient has
// no tests.
func (s *Service) RebuildProfile(ctx context.Context, patientID uuid.UUID) (*RiskProfile, error) {
	start := time.Now()
	unlock, err := s.locker.Lock(ctx, "maternal-lab:profile:"+patientID.String())
	if err != nil {
		return nil, fmt.Errorf("acquire profile lock: %w", err)
	}
	defer unlock()

	tests, err := s.tests.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list lab tests: %w", err)
	}
	profile := BuildProfile(patientID, tests)
	if profile == nil {
		return nil, nil
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("save risk profile: %w", err)
	}
	metrics.ObserveProfileRebuild(time.Since(start))

	s.logger.Debug().
		Str("patient_id", patientID.String()).
		Int("test_count", profile.TestCount).
		Int("overall_risk_score", profile.OverallRiskScore).
		Str("trend", string(profile.TrendAnalysis.Direction)).
		Msg("risk profile rebuilt")
	return profile, nil
}

// -- Alerts --

// CheckForCriticalValues raises one alert for a critical test. Non-critical
// tests return nil, nil. A publish failure is logged, not returned.
func (s *Service) CheckForCriticalValues(ctx context.Context, t *LabTest) (*Alert, error) {
	if !RequiresAlert(t) {
		return nil, nil
	}
	a := NewCriticalAlert(t, s.now())
	if err := s.alerts.Create(ctx, a); err != nil {
		return nil, err
	}
	metrics.RecordAlertRaised()
	s.logger.Warn().
		Str("alert_id", a.ID.String()).
		Str("lab_test_id", t.ID.String()).
		Str("patient_id", t.PatientID.String()).
		Strs("critical_parameters", a.CriticalParameters).
		Msg("critical lab alert raised")

	s.publish(ctx, EventAlertRaised, a)
	return a, nil
}

func (s *Service) GetAlert(ctx context.Context, id uuid.UUID) (*Alert, error) {
	return s.alerts.GetByID(ctx, id)
}

func (s *Service) ListAlertsByPatient(ctx context.Context, patientID uuid.UUID) ([]*Alert, error) {
	return s.alerts.ListByPatient(ctx, patientID)
}

func (s *Service) ListAlertsByStatus(ctx context.Context, status AlertStatus) ([]*Alert, error) {
	switch status {
	case AlertActive, AlertAcknowledged, AlertResolved:
	default:
		return nil, fmt.Errorf("%w: invalid alert status: %s", ErrInvalidRequest, status)
	}
	return s.alerts.ListByStatus(ctx, status)
}

func (s *Service) AcknowledgeAlert(ctx context.Context, id uuid.UUID, by string) (*Alert, error) {
	a, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.Acknowledge(by, s.now()); err != nil {
		return nil, err
	}
	if err := s.alerts.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update alert: %w", err)
	}
	s.publish(ctx, EventAlertAcknowledged, a)
	return a, nil
}

func (s *Service) ResolveAlert(ctx context.Context, id uuid.UUID, by string, req *ResolveAlertRequest) (*Alert, error) {
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	a, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.Resolve(by, req.ActionsTaken, req.Outcome, s.now()); err != nil {
		return nil, err
	}
	if err := s.alerts.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update alert: %w", err)
	}
	s.publish(ctx, EventAlertResolved, a)
	return a, nil
}

func (s *Service) publish(ctx context.Context, messageType string, a *Alert) {
	if err := s.publisher.Publish(ctx, messageType, a); err != nil {
		metrics.RecordAlertPublishFailure()
		s.logger.Error().Err(err).
			Str("alert_id", a.ID.String()).
			Str("message_type", messageType).
			Msg("failed to publish alert event")
	}
}
