package maternallab

// Comparison is how a value is tested against a branch bound.
type Comparison string

const (
	Below     Comparison = "below"
	Above     Comparison = "above"
	AtOrAbove Comparison = "at_or_above"
)

// BoundSource says where a branch takes its bound from.
type BoundSource string

const (
	BoundFixed     BoundSource = "fixed"
	BoundRangeLow  BoundSource = "range_low"
	BoundRangeHigh BoundSource = "range_high"
)

// RiskFlag names one of the five parameter-level risk flags.
type RiskFlag string

const (
	FlagPreeclampsia        RiskFlag = "preeclampsia"
	FlagGestationalDiabetes RiskFlag = "gestational_diabetes"
	FlagAnemia              RiskFlag = "anemia"
	FlagInfection           RiskFlag = "infection"
	FlagHemorrhage          RiskFlag = "hemorrhage"
)

// ThresholdBranch maps one comparison to a classification outcome.
type ThresholdBranch struct {
	Comparison  Comparison      `json:"comparison"`
	Bound       BoundSource     `json:"bound"`
	Value       float64         `json:"value,omitempty"`
	Status      ParameterStatus `json:"status"`
	Implication RiskImplication `json:"risk_implication"`
	Flags       []RiskFlag      `json:"flags,omitempty"`
}

// ThresholdRule is an ordered list of branches; the first match wins.
type ThresholdRule struct {
	ParameterID string            `json:"parameter_id"`
	Branches    []ThresholdBranch `json:"branches"`
}

func (b ThresholdBranch) bound(r ReferenceRange) (float64, bool) {
	switch b.Bound {
	case BoundFixed:
		return b.Value, true
	case BoundRangeLow:
		if r.Low == nil {
			return 0, false
		}
		return *r.Low, true
	case BoundRangeHigh:
		if r.High == nil {
			return 0, false
		}
		return *r.High, true
	}
	return 0, false
}

func (b ThresholdBranch) matches(value, bound float64) bool {
	switch b.Comparison {
	case Below:
		return value < bound
	case Above:
		return value > bound
	case AtOrAbove:
		return value >= bound
	}
	return false
}

func fixed(cmp Comparison, v float64, status ParameterStatus, impl RiskImplication, flags ...RiskFlag) ThresholdBranch {
	return ThresholdBranch{Comparison: cmp, Bound: BoundFixed, Value: v, Status: status, Implication: impl, Flags: flags}
}

func ranged(cmp Comparison, src BoundSource, status ParameterStatus, impl RiskImplication, flags ...RiskFlag) ThresholdBranch {
	return ThresholdBranch{Comparison: cmp, Bound: src, Status: status, Implication: impl, Flags: flags}
}

// defaultRules is the registry of parameter-specific threshold rules.
// Catalog parameters without an entry stay Normal/none.
func defaultRules() []ThresholdRule {
	liverEnzyme := []ThresholdBranch{
		fixed(Above, 70, StatusAbnormal, ImplicationHigh, FlagPreeclampsia),
		fixed(Above, 35, StatusBorderline, ImplicationModerate),
	}

	return []ThresholdRule{
		{ParameterID: "hemoglobin", Branches: []ThresholdBranch{
			fixed(Below, 7, StatusCritical, ImplicationCritical, FlagAnemia, FlagHemorrhage),
			ranged(Below, BoundRangeLow, StatusAbnormal, ImplicationHigh, FlagAnemia, FlagHemorrhage),
			ranged(Above, BoundRangeHigh, StatusAbnormal, ImplicationModerate),
		}},
		{ParameterID: "platelets", Branches: []ThresholdBranch{
			fixed(Below, 100, StatusCritical, ImplicationCritical, FlagHemorrhage, FlagPreeclampsia),
			fixed(Below, 150, StatusAbnormal, ImplicationHigh, FlagHemorrhage),
		}},
		{ParameterID: "fasting_glucose", Branches: []ThresholdBranch{
			fixed(AtOrAbove, 126, StatusCritical, ImplicationCritical, FlagGestationalDiabetes),
			fixed(AtOrAbove, 92, StatusAbnormal, ImplicationHigh, FlagGestationalDiabetes),
		}},
		{ParameterID: "protein_creatinine_ratio", Branches: []ThresholdBranch{
			fixed(AtOrAbove, 300, StatusCritical, ImplicationCritical, FlagPreeclampsia),
			fixed(AtOrAbove, 30, StatusAbnormal, ImplicationHigh, FlagPreeclampsia),
		}},
		{ParameterID: "uric_acid", Branches: []ThresholdBranch{
			ranged(Above, BoundRangeHigh, StatusAbnormal, ImplicationHigh, FlagPreeclampsia),
		}},
		{ParameterID: "alt", Branches: liverEnzyme},
		{ParameterID: "ast", Branches: liverEnzyme},
		{ParameterID: "white_blood_cells", Branches: []ThresholdBranch{
			fixed(Above, 20, StatusAbnormal, ImplicationHigh, FlagInfection),
			ranged(Above, BoundRangeHigh, StatusAbnormal, ImplicationModerate, FlagInfection),
		}},
	}
}
