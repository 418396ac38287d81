package maternallab

import (
	"time"

	"github.com/google/uuid"
)

// ParameterStatus is the clinical status assigned to a single lab value.
type ParameterStatus string

const (
	StatusNormal     ParameterStatus = "Normal"
	StatusBorderline ParameterStatus = "Borderline"
	StatusAbnormal   ParameterStatus = "Abnormal"
	StatusCritical   ParameterStatus = "Critical"
)

// RiskImplication is the parameter-level severity tag used for scoring.
type RiskImplication string

const (
	ImplicationNone     RiskImplication = "none"
	ImplicationLow      RiskImplication = "low"
	ImplicationModerate RiskImplication = "moderate"
	ImplicationHigh     RiskImplication = "high"
	ImplicationCritical RiskImplication = "critical"
)

// RiskLevel bands a 0-100 score. Shared by tests, categories and profiles.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// TestStatus is the workflow status of a lab test.
type TestStatus string

const (
	TestPending       TestStatus = "Pending"
	TestCollected     TestStatus = "Collected"
	TestProcessing    TestStatus = "Processing"
	TestCompleted     TestStatus = "Completed"
	TestCriticalAlert TestStatus = "Critical-Alert"
)

type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

type TrendDirection string

const (
	TrendImproving     TrendDirection = "improving"
	TrendStable        TrendDirection = "stable"
	TrendDeteriorating TrendDirection = "deteriorating"
)

// ClassifiedParameter is one lab value after classification against the
// catalog. It is immutable once the parent test is saved; edits re-derive it.
type ClassifiedParameter struct {
	ParameterID             string          `json:"parameter_id"`
	Name                    string          `json:"name"`
	Unit                    string          `json:"unit,omitempty"`
	Value                   string          `json:"value"`
	ReferenceRange          string          `json:"reference_range,omitempty"`
	Status                  ParameterStatus `json:"status"`
	RiskImplication         RiskImplication `json:"risk_implication"`
	PreeclampsiaRisk        bool            `json:"preeclampsia_risk"`
	GestationalDiabetesRisk bool            `json:"gestational_diabetes_risk"`
	AnemiaRisk              bool            `json:"anemia_risk"`
	InfectionRisk           bool            `json:"infection_risk"`
	HemorrhageRisk          bool            `json:"hemorrhage_risk"`
}

// RiskFactors summarises the maternal conditions a test suggests.
type RiskFactors struct {
	Preeclampsia        bool `json:"preeclampsia"`
	GestationalDiabetes bool `json:"gestational_diabetes"`
	Anemia              bool `json:"anemia"`
	Infection           bool `json:"infection"`
	BloodDisorders      bool `json:"blood_disorders"`
	LiverDysfunction    bool `json:"liver_dysfunction"`
	KidneyProblems      bool `json:"kidney_problems"`
}

// Names returns the display names of the factors that are set, in a fixed order.
func (f RiskFactors) Names() []string {
	var names []string
	if f.Preeclampsia {
		names = append(names, "preeclampsia")
	}
	if f.GestationalDiabetes {
		names = append(names, "gestational diabetes")
	}
	if f.Anemia {
		names = append(names, "anemia")
	}
	if f.Infection {
		names = append(names, "infection")
	}
	if f.BloodDisorders {
		names = append(names, "blood disorders")
	}
	if f.LiverDysfunction {
		names = append(names, "liver dysfunction")
	}
	if f.KidneyProblems {
		names = append(names, "kidney problems")
	}
	return names
}

// LabTest is a persisted maternal lab test result.
type LabTest struct {
	ID                     uuid.UUID             `json:"id"`
	PatientID              uuid.UUID             `json:"patient_id"`
	GestationalAgeWeeks    int                   `json:"gestational_age_weeks"`
	TestCategory           string                `json:"test_category"`
	TestKey                string                `json:"test_key"`
	TestType               string                `json:"test_type"`
	SampleID               string                `json:"sample_id,omitempty"`
	Parameters             []ClassifiedParameter `json:"parameters"`
	RiskFactors            RiskFactors           `json:"risk_factors"`
	RiskScore              int                   `json:"risk_score"`
	RiskLevel              RiskLevel             `json:"risk_level"`
	ClinicalInterpretation string                `json:"clinical_interpretation"`
	RecommendedActions     []string              `json:"recommended_actions"`
	UrgentReferral         bool                  `json:"urgent_referral"`
	Status                 TestStatus            `json:"status"`
	OrderedBy              string                `json:"ordered_by,omitempty"`
	PerformedBy            string                `json:"performed_by,omitempty"`
	Notes                  string                `json:"notes,omitempty"`
	ReviewedBy             string                `json:"reviewed_by,omitempty"`
	ReviewedAt             *time.Time            `json:"reviewed_at,omitempty"`
	ReviewNotes            string                `json:"review_notes,omitempty"`
	CollectedAt            *time.Time            `json:"collected_at,omitempty"`
	CreatedAt              time.Time             `json:"created_at"`
	UpdatedAt              time.Time             `json:"updated_at"`
}

type CategoryRisk struct {
	Score             int       `json:"score"`
	Level             RiskLevel `json:"level"`
	ContributingTests []string  `json:"contributing_tests"`
}

type RiskCategories struct {
	Preeclampsia        CategoryRisk `json:"preeclampsia"`
	GestationalDiabetes CategoryRisk `json:"gestational_diabetes"`
	Anemia              CategoryRisk `json:"anemia"`
	Infection           CategoryRisk `json:"infection"`
	Hemorrhage          CategoryRisk `json:"hemorrhage"`
}

type ProfileRecommendations struct {
	ImmediateActions   []string `json:"immediate_actions"`
	FollowUpTests      []string `json:"follow_up_tests"`
	ClinicalMonitoring []string `json:"clinical_monitoring"`
	Referrals          []string `json:"referrals"`
}

type TrendAnalysis struct {
	Direction TrendDirection `json:"direction"`
	Notes     string         `json:"notes"`
}

// RiskProfile is the per-patient longitudinal aggregate. It is always
// rebuilt from the complete test history and never edited directly.
type RiskProfile struct {
	ID                      uuid.UUID              `json:"id"`
	PatientID               uuid.UUID              `json:"patient_id"`
	OverallRiskScore        int                    `json:"overall_risk_score"`
	OverallRiskLevel        RiskLevel              `json:"overall_risk_level"`
	RiskCategories          RiskCategories         `json:"risk_categories"`
	Recommendations         ProfileRecommendations `json:"recommendations"`
	TrendAnalysis           TrendAnalysis          `json:"trend_analysis"`
	TestCount               int                    `json:"test_count"`
	LastTestDate            time.Time              `json:"last_test_date"`
	NextRecommendedTestDate time.Time              `json:"next_recommended_test_date"`
	CreatedAt               time.Time              `json:"created_at"`
	UpdatedAt               time.Time              `json:"updated_at"`
}

// Alert is a critical-value event raised for a lab test.
type Alert struct {
	ID                     uuid.UUID   `json:"id"`
	LabTestID              uuid.UUID   `json:"lab_test_id"`
	PatientID              uuid.UUID   `json:"patient_id"`
	Severity               string      `json:"severity"`
	Title                  string      `json:"title"`
	Description            string      `json:"description"`
	GestationalAgeWeeks    int         `json:"gestational_age_weeks"`
	CriticalParameters     []string    `json:"critical_parameters"`
	PotentialComplications []string    `json:"potential_complications"`
	ImmediateActions       []string    `json:"immediate_actions"`
	TimeToActionMinutes    int         `json:"time_to_action_minutes"`
	Status                 AlertStatus `json:"status"`
	AcknowledgedBy         string      `json:"acknowledged_by,omitempty"`
	AcknowledgedAt         *time.Time  `json:"acknowledged_at,omitempty"`
	ResolvedBy             string      `json:"resolved_by,omitempty"`
	ResolvedAt             *time.Time  `json:"resolved_at,omitempty"`
	ActionsTaken           []string    `json:"actions_taken,omitempty"`
	Outcome                string      `json:"outcome,omitempty"`
	CreatedAt              time.Time   `json:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at"`
}

// MaternalPatient is the read-only view of a registry patient.
type MaternalPatient struct {
	ID                  uuid.UUID  `json:"id"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	GestationalAgeWeeks int        `json:"gestational_age_weeks"`
	EstimatedDueDate    *time.Time `json:"estimated_due_date,omitempty"`
}
