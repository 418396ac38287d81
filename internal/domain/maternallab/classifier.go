package maternallab

import (
	"strconv"
	"strings"
)

type Trimester string

const (
	FirstTrimester  Trimester = "first"
	SecondTrimester Trimester = "second"
	ThirdTrimester  Trimester = "third"
)

// TrimesterFor buckets gestational age: <=12 first, <=28 second, else third.
func TrimesterFor(gestationalAgeWeeks int) Trimester {
	switch {
	case gestationalAgeWeeks <= 12:
		return FirstTrimester
	case gestationalAgeWeeks <= 28:
		return SecondTrimester
	default:
		return ThirdTrimester
	}
}

// ReferenceRange is a parsed range text. Either bound may be absent.
type ReferenceRange struct {
	Low  *float64
	High *float64
}

// ParseRange understands "lo-hi", "<hi", "≤hi", ">lo" and "≥lo".
func ParseRange(text string) (ReferenceRange, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return ReferenceRange{}, false
	}

	for _, prefix := range []string{"<=", "≤", "<"} {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			hi, err := parseNumber(rest)
			if err != nil {
				return ReferenceRange{}, false
			}
			return ReferenceRange{High: &hi}, true
		}
	}
	for _, prefix := range []string{">=", "≥", ">"} {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			lo, err := parseNumber(rest)
			if err != nil {
				return ReferenceRange{}, false
			}
			return ReferenceRange{Low: &lo}, true
		}
	}

	loText, hiText, ok := strings.Cut(s, "-")
	if !ok {
		return ReferenceRange{}, false
	}
	lo, err := parseNumber(loText)
	if err != nil {
		return ReferenceRange{}, false
	}
	hi, err := parseNumber(hiText)
	if err != nil {
		return ReferenceRange{}, false
	}
	return ReferenceRange{Low: &lo, High: &hi}, true
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Classify evaluates one raw value against the parameter's registered rule.
// The boolean reports whether a rule was actually evaluated; when it is false
// the parameter was left at Normal/none (text or choice types, unparseable
// values, or parameters with no rule).
func (c *Catalog) Classify(def ParameterDefinition, rawValue string, gestationalAgeWeeks int) (ClassifiedParameter, bool) {
	rule, ok := c.Rule(def.ID)
	return classify(def, rawValue, gestationalAgeWeeks, rule, ok)
}

func classify(def ParameterDefinition, rawValue string, gestationalAgeWeeks int, rule ThresholdRule, hasRule bool) (ClassifiedParameter, bool) {
	cp := ClassifiedParameter{
		ParameterID:     def.ID,
		Name:            def.Name,
		Unit:            def.Unit,
		Value:           rawValue,
		ReferenceRange:  def.RangeFor(gestationalAgeWeeks),
		Status:          StatusNormal,
		RiskImplication: ImplicationNone,
	}
	if def.ValueType != ValueNumeric || !hasRule {
		return cp, false
	}
	value, err := parseNumber(rawValue)
	if err != nil {
		return cp, false
	}

	rng, _ := ParseRange(cp.ReferenceRange)
	for _, b := range rule.Branches {
		bound, ok := b.bound(rng)
		if !ok || !b.matches(value, bound) {
			continue
		}
		cp.Status = b.Status
		cp.RiskImplication = b.Implication
		for _, f := range b.Flags {
			cp.setFlag(f)
		}
		break
	}
	return cp, true
}

func (p *ClassifiedParameter) setFlag(f RiskFlag) {
	switch f {
	case FlagPreeclampsia:
		p.PreeclampsiaRisk = true
	case FlagGestationalDiabetes:
		p.GestationalDiabetesRisk = true
	case FlagAnemia:
		p.AnemiaRisk = true
	case FlagInfection:
		p.InfectionRisk = true
	case FlagHemorrhage:
		p.HemorrhageRisk = true
	}
}

// isCritical reports whether a parameter qualifies as a critical value.
func (p ClassifiedParameter) isCritical() bool {
	return p.Status == StatusCritical || p.RiskImplication == ImplicationCritical
}
