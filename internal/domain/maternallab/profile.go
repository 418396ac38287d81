package maternallab

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

const trendWindow = 3

type categoryGuidance struct {
	followUp   []string
	monitoring []string
	referrals  []string
}

var (
	preeclampsiaGuidance = categoryGuidance{
		followUp:   []string{"Repeat preeclampsia panel (protein/creatinine ratio, uric acid, liver enzymes, platelets) in 1 week"},
		monitoring: preeclampsiaActions,
		referrals:  []string{"Maternal-fetal medicine specialist"},
	}
	gestationalDiabetesGuidance = categoryGuidance{
		followUp:   []string{"Repeat fasting glucose and HbA1c"},
		monitoring: gestationalDiabetesActions,
		referrals:  []string{"Endocrinology and diabetes educator"},
	}
	anemiaGuidance = categoryGuidance{
		followUp:   []string{"Repeat complete blood count and serum ferritin"},
		monitoring: anemiaActions,
		referrals:  []string{"Hematology if no response to iron therapy"},
	}
	infectionGuidance = categoryGuidance{
		followUp:   []string{"Repeat white blood cell count and cultures"},
		monitoring: infectionActions,
		referrals:  []string{"Infectious disease specialist"},
	}
	hemorrhageGuidance = categoryGuidance{
		followUp:   []string{"Coagulation profile and repeat platelet count"},
		monitoring: bloodDisorderActions,
		referrals:  []string{"Hematology and obstetric anesthesia"},
	}
)

// BuildProfile aggregates a patient's full test history. It is a pure
// function of the tests; identity and timestamps are set by the repository.
// It returns nil for an empty history.
func BuildProfile(patientID uuid.UUID, tests []*LabTest) *RiskProfile {
	if len(tests) == 0 {
		return nil
	}
	history := sortByCreation(tests)

	scores := make([]int, len(history))
	for i, t := range history {
		scores[i] = t.RiskScore
	}
	overall := meanScore(scores)

	p := &RiskProfile{
		PatientID:        patientID,
		OverallRiskScore: overall,
		OverallRiskLevel: RiskLevelForScore(overall),
		RiskCategories: RiskCategories{
			Preeclampsia:        categoryRisk(history, func(f RiskFactors) bool { return f.Preeclampsia }),
			GestationalDiabetes: categoryRisk(history, func(f RiskFactors) bool { return f.GestationalDiabetes }),
			Anemia:              categoryRisk(history, func(f RiskFactors) bool { return f.Anemia }),
			Infection:           categoryRisk(history, func(f RiskFactors) bool { return f.Infection }),
			Hemorrhage:          categoryRisk(history, func(f RiskFactors) bool { return f.BloodDisorders }),
		},
		TrendAnalysis: analyzeTrend(history),
		TestCount:     len(history),
	}
	p.Recommendations = profileRecommendations(overall, p.RiskCategories)

	latest := history[len(history)-1]
	p.LastTestDate = latest.CreatedAt
	p.NextRecommendedTestDate = nextTestDate(latest, p.RiskCategories)
	return p
}

func sortByCreation(tests []*LabTest) []*LabTest {
	out := append([]*LabTest(nil), tests...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func meanScore(scores []int) int {
	if len(scores) == 0 {
		return 0
	}
	var sum int
	for _, s := range scores {
		sum += s
	}
	return int(math.Round(float64(sum) / float64(len(scores))))
}

func categoryRisk(history []*LabTest, flagged func(RiskFactors) bool) CategoryRisk {
	var scores []int
	contributing := []string{}
	for _, t := range history {
		if !flagged(t.RiskFactors) {
			continue
		}
		scores = append(scores, t.RiskScore)
		contributing = append(contributing, t.TestType)
	}
	score := meanScore(scores)
	return CategoryRisk{
		Score:             score,
		Level:             RiskLevelForScore(score),
		ContributingTests: contributing,
	}
}

func (c RiskCategories) elevated() bool {
	for _, cat := range []CategoryRisk{c.Preeclampsia, c.GestationalDiabetes, c.Anemia, c.Infection, c.Hemorrhage} {
		if isElevated(cat.Level) {
			return true
		}
	}
	return false
}

func isElevated(level RiskLevel) bool {
	return level == RiskHigh || level == RiskCritical
}

func profileRecommendations(overall int, cats RiskCategories) ProfileRecommendations {
	rec := ProfileRecommendations{
		ImmediateActions:   []string{},
		FollowUpTests:      []string{},
		ClinicalMonitoring: []string{},
		Referrals:          []string{},
	}
	if RiskLevelForScore(overall) == RiskCritical {
		rec.ImmediateActions = append(rec.ImmediateActions, criticalLevelActions...)
	}

	pairs := []struct {
		risk     CategoryRisk
		guidance categoryGuidance
	}{
		{cats.Preeclampsia, preeclampsiaGuidance},
		{cats.GestationalDiabetes, gestationalDiabetesGuidance},
		{cats.Anemia, anemiaGuidance},
		{cats.Infection, infectionGuidance},
		{cats.Hemorrhage, hemorrhageGuidance},
	}
	for _, p := range pairs {
		if !isElevated(p.risk.Level) {
			continue
		}
		rec.FollowUpTests = append(rec.FollowUpTests, p.guidance.followUp...)
		rec.ClinicalMonitoring = append(rec.ClinicalMonitoring, p.guidance.monitoring...)
		rec.Referrals = append(rec.Referrals, p.guidance.referrals...)
	}
	return rec
}

// analyzeTrend looks at the last three tests. A net change in the score is
// required for improving or deteriorating; flat or mixed histories are stable.
func analyzeTrend(history []*LabTest) TrendAnalysis {
	if len(history) < 2 {
		return TrendAnalysis{Direction: TrendStable, Notes: "Insufficient data for trend analysis"}
	}
	recent := history
	if len(recent) > trendWindow {
		recent = recent[len(recent)-trendWindow:]
	}

	nonIncreasing, nonDecreasing := true, true
	for i := 1; i < len(recent); i++ {
		if recent[i].RiskScore > recent[i-1].RiskScore {
			nonIncreasing = false
		}
		if recent[i].RiskScore < recent[i-1].RiskScore {
			nonDecreasing = false
		}
	}
	first, last := recent[0].RiskScore, recent[len(recent)-1].RiskScore

	switch {
	case nonIncreasing && last < first:
		return TrendAnalysis{
			Direction: TrendImproving,
			Notes:     fmt.Sprintf("Risk score decreased from %d to %d over the last %d tests", first, last, len(recent)),
		}
	case nonDecreasing && last > first:
		return TrendAnalysis{
			Direction: TrendDeteriorating,
			Notes:     fmt.Sprintf("Risk score increased from %d to %d over the last %d tests", first, last, len(recent)),
		}
	default:
		return TrendAnalysis{
			Direction: TrendStable,
			Notes:     fmt.Sprintf("No consistent change in risk score over the last %d tests", len(recent)),
		}
	}
}

func nextTestDate(latest *LabTest, cats RiskCategories) time.Time {
	const week = 7 * 24 * time.Hour
	switch {
	case cats.elevated():
		return latest.CreatedAt.Add(week)
	case latest.GestationalAgeWeeks > 32:
		return latest.CreatedAt.Add(2 * week)
	default:
		return latest.CreatedAt.Add(4 * week)
	}
}
