package maternallab

import "math"

var implicationPoints = map[RiskImplication]float64{
	ImplicationCritical: 25,
	ImplicationHigh:     15,
	ImplicationModerate: 10,
	ImplicationLow:      5,
	ImplicationNone:     0,
}

// ScoreParameters computes the 0-100 risk score of one test: the mean
// implication points, scaled by a gestational-age multiplier.
func ScoreParameters(params []ClassifiedParameter, gestationalAgeWeeks int) int {
	if len(params) == 0 {
		return 0
	}
	var sum float64
	for _, p := range params {
		sum += implicationPoints[p.RiskImplication]
	}
	avg := sum / float64(len(params))
	score := int(math.Round(avg * gestationalMultiplier(gestationalAgeWeeks)))
	return clampScore(score)
}

func gestationalMultiplier(weeks int) float64 {
	switch {
	case weeks > 34:
		return 1.2
	case weeks > 28:
		return 1.1
	default:
		return 1.0
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// RiskLevelForScore bands a score: >=75 critical, >=50 high, >=25 moderate.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= 75:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 25:
		return RiskModerate
	default:
		return RiskLow
	}
}

// AssessRiskFactors OR-reduces the parameter flags into the test summary.
// LiverDysfunction and KidneyProblems have no source flag and stay false.
func AssessRiskFactors(params []ClassifiedParameter) RiskFactors {
	var f RiskFactors
	for _, p := range params {
		f.Preeclampsia = f.Preeclampsia || p.PreeclampsiaRisk
		f.GestationalDiabetes = f.GestationalDiabetes || p.GestationalDiabetesRisk
		f.Anemia = f.Anemia || p.AnemiaRisk
		f.Infection = f.Infection || p.InfectionRisk
		f.BloodDisorders = f.BloodDisorders || p.HemorrhageRisk
	}
	return f
}
