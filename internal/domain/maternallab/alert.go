package maternallab

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	alertSeverityCritical = "critical"
	alertTimeToAction     = 30
)

var ErrInvalidAlertTransition = errors.New("invalid alert status transition")

type complicationSet struct {
	present       func(RiskFactors) bool
	complications []string
}

var complicationsByFactor = []complicationSet{
	{func(f RiskFactors) bool { return f.Preeclampsia }, []string{"Preeclampsia/Eclampsia", "HELLP Syndrome"}},
	{func(f RiskFactors) bool { return f.GestationalDiabetes }, []string{"Fetal Macrosomia", "Neonatal Hypoglycemia"}},
	{func(f RiskFactors) bool { return f.Anemia }, []string{"Postpartum Hemorrhage", "Preterm Delivery"}},
	{func(f RiskFactors) bool { return f.Infection }, []string{"Chorioamnionitis", "Neonatal Sepsis"}},
	{func(f RiskFactors) bool { return f.BloodDisorders }, []string{"Obstetric Hemorrhage", "Disseminated Intravascular Coagulation"}},
}

// RequiresAlert is the critical-value trigger: any critical parameter or a
// critical overall level.
func RequiresAlert(t *LabTest) bool {
	if t.RiskLevel == RiskCritical {
		return true
	}
	for _, p := range t.Parameters {
		if p.isCritical() {
			return true
		}
	}
	return false
}

// NewCriticalAlert builds the alert for a test that satisfies RequiresAlert.
func NewCriticalAlert(t *LabTest, now time.Time) *Alert {
	critical := []string{}
	for _, p := range t.Parameters {
		if p.isCritical() {
			critical = append(critical, fmt.Sprintf("%s: %s", p.Name, formatValue(p)))
		}
	}
	complications := []string{}
	for _, c := range complicationsByFactor {
		if c.present(t.RiskFactors) {
			complications = append(complications, c.complications...)
		}
	}

	return &Alert{
		ID:                     uuid.New(),
		LabTestID:              t.ID,
		PatientID:              t.PatientID,
		Severity:               alertSeverityCritical,
		Title:                  "Critical Lab Values Detected - " + t.TestType,
		Description:            fmt.Sprintf("%d critical value(s) at %d weeks gestation; test risk score %d (%s).", len(critical), t.GestationalAgeWeeks, t.RiskScore, t.RiskLevel),
		GestationalAgeWeeks:    t.GestationalAgeWeeks,
		CriticalParameters:     critical,
		PotentialComplications: complications,
		ImmediateActions:       append([]string{}, t.RecommendedActions...),
		TimeToActionMinutes:    alertTimeToAction,
		Status:                 AlertActive,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// Acknowledge moves an active alert to acknowledged.
func (a *Alert) Acknowledge(by string, at time.Time) error {
	if a.Status != AlertActive {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidAlertTransition, a.Status, AlertAcknowledged)
	}
	a.Status = AlertAcknowledged
	a.AcknowledgedBy = by
	a.AcknowledgedAt = &at
	a.UpdatedAt = at
	return nil
}

// Resolve moves an acknowledged alert to resolved. There is no re-opening.
func (a *Alert) Resolve(by string, actionsTaken []string, outcome string, at time.Time) error {
	if a.Status != AlertAcknowledged {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidAlertTransition, a.Status, AlertResolved)
	}
	a.Status = AlertResolved
	a.ResolvedBy = by
	a.ResolvedAt = &at
	a.ActionsTaken = actionsTaken
	a.Outcome = outcome
	a.UpdatedAt = at
	return nil
}
