package maternallab

import (
	"fmt"
	"strings"
)

const normalInterpretation = "All test parameters are within normal limits for the current gestational age."

var criticalLevelActions = []string{
	"Immediate obstetric consultation required",
	"Consider hospital admission for monitoring",
}

var (
	preeclampsiaActions = []string{
		"Monitor blood pressure at least twice weekly",
		"Evaluate need for antihypertensive therapy",
		"Increase fetal surveillance with non-stress tests and growth scans",
	}
	gestationalDiabetesActions = []string{
		"Refer for dietary counseling and medical nutrition therapy",
		"Start self-monitoring of blood glucose four times daily",
		"Consider insulin therapy if glycemic targets are not met",
	}
	anemiaActions = []string{
		"Start oral iron supplementation",
		"Provide nutritional counseling on iron-rich foods",
		"Repeat complete blood count in 4 weeks",
	}
	infectionActions = []string{
		"Obtain cultures and evaluate for source of infection",
		"Consider empiric antibiotic therapy per protocol",
	}
	bloodDisorderActions = []string{
		"Repeat platelet count and coagulation profile",
		"Notify anesthesia and prepare blood products before delivery",
	}
)

// Interpret lists every non-Normal parameter and the triggered risk factors.
func Interpret(params []ClassifiedParameter, factors RiskFactors) string {
	var findings []string
	for _, p := range params {
		if p.Status == StatusNormal {
			continue
		}
		findings = append(findings, fmt.Sprintf("%s: %s (%s)", p.Name, formatValue(p), p.Status))
	}
	if len(findings) == 0 {
		return normalInterpretation
	}

	var b strings.Builder
	b.WriteString("Abnormal findings: ")
	b.WriteString(strings.Join(findings, "; "))
	b.WriteString(".")
	if names := factors.Names(); len(names) > 0 {
		b.WriteString(" Risk factors identified: ")
		b.WriteString(strings.Join(names, ", "))
		b.WriteString(".")
	}
	return b.String()
}

// Recommend builds the ordered action list for a test.
func Recommend(factors RiskFactors, level RiskLevel) []string {
	var actions []string
	if level == RiskCritical {
		actions = append(actions, criticalLevelActions...)
	}
	if factors.Preeclampsia {
		actions = append(actions, preeclampsiaActions...)
	}
	if factors.GestationalDiabetes {
		actions = append(actions, gestationalDiabetesActions...)
	}
	if factors.Anemia {
		actions = append(actions, anemiaActions...)
	}
	if factors.Infection {
		actions = append(actions, infectionActions...)
	}
	if factors.BloodDisorders {
		actions = append(actions, bloodDisorderActions...)
	}
	if len(actions) == 0 {
		return []string{"Continue routine prenatal care"}
	}
	return actions
}

// UrgentReferral is true for a critical test or any critical parameter.
func UrgentReferral(level RiskLevel, params []ClassifiedParameter) bool {
	if level == RiskCritical {
		return true
	}
	for _, p := range params {
		if p.Status == StatusCritical {
			return true
		}
	}
	return false
}

func formatValue(p ClassifiedParameter) string {
	if p.Unit == "" {
		return p.Value
	}
	return p.Value + " " + p.Unit
}
