package maternallab

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownCategory = errors.New("unknown test category")
	ErrUnknownTest     = errors.New("unknown test type")
)

// ValueType describes how a parameter value is entered.
type ValueType string

const (
	ValueNumeric ValueType = "numeric"
	ValueText    ValueType = "text"
	ValueChoice  ValueType = "choice"
)

// TrimesterRanges holds trimester-specific reference ranges.
type TrimesterRanges struct {
	First  string `json:"first"`
	Second string `json:"second"`
	Third  string `json:"third"`
}

// ParameterDefinition is an immutable catalog entry for one lab parameter.
type ParameterDefinition struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Unit            string           `json:"unit,omitempty"`
	ReferenceRange  string           `json:"reference_range,omitempty"`
	TrimesterRanges *TrimesterRanges `json:"trimester_ranges,omitempty"`
	ValueType       ValueType        `json:"value_type"`
	Options         []string         `json:"options,omitempty"`
}

// RangeFor returns the reference range that applies at the given gestational age.
func (d ParameterDefinition) RangeFor(gestationalAgeWeeks int) string {
	if d.TrimesterRanges == nil {
		return d.ReferenceRange
	}
	switch TrimesterFor(gestationalAgeWeeks) {
	case FirstTrimester:
		return d.TrimesterRanges.First
	case SecondTrimester:
		return d.TrimesterRanges.Second
	default:
		return d.TrimesterRanges.Third
	}
}

type GestationalWindow struct {
	MinWeeks int `json:"min_weeks"`
	MaxWeeks int `json:"max_weeks"`
}

// TestDefinition describes one orderable lab test.
type TestDefinition struct {
	Key        string                `json:"key"`
	Name       string                `json:"name"`
	Window     GestationalWindow     `json:"gestational_window"`
	Frequency  string                `json:"frequency"`
	Parameters []ParameterDefinition `json:"parameters"`
}

// Parameter finds a parameter of the test by id.
func (t TestDefinition) Parameter(id string) (ParameterDefinition, bool) {
	for _, p := range t.Parameters {
		if p.ID == id {
			return p, true
		}
	}
	return ParameterDefinition{}, false
}

type CategoryConfig struct {
	Key   string                    `json:"key"`
	Name  string                    `json:"name"`
	Tests map[string]TestDefinition `json:"tests"`
}

// Catalog is the immutable test configuration consumed by the classifier and
// the service. Build one with NewCatalog or DefaultCatalog and inject it.
type Catalog struct {
	categories map[string]CategoryConfig
	rules      map[string]ThresholdRule
}

func NewCatalog(categories []CategoryConfig, rules []ThresholdRule) *Catalog {
	c := &Catalog{
		categories: make(map[string]CategoryConfig, len(categories)),
		rules:      make(map[string]ThresholdRule, len(rules)),
	}
	for _, cat := range categories {
		tests := make(map[string]TestDefinition, len(cat.Tests))
		for k, t := range cat.Tests {
			tests[k] = cloneTest(t)
		}
		cat.Tests = tests
		c.categories[cat.Key] = cat
	}
	for _, r := range rules {
		c.rules[r.ParameterID] = r
	}
	return c
}

// Lookup resolves category.testKey. A miss is a configuration error and is
// never replaced by a default definition.
func (c *Catalog) Lookup(category, testKey string) (TestDefinition, error) {
	cat, ok := c.categories[category]
	if !ok {
		return TestDefinition{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	t, ok := cat.Tests[testKey]
	if !ok {
		return TestDefinition{}, fmt.Errorf("%w: %q in category %q", ErrUnknownTest, testKey, category)
	}
	return cloneTest(t), nil
}

// Rule returns the threshold rule registered for a parameter id.
func (c *Catalog) Rule(parameterID string) (ThresholdRule, bool) {
	r, ok := c.rules[parameterID]
	return r, ok
}

// Categories returns copies of all categories sorted by key.
func (c *Catalog) Categories() []CategoryConfig {
	keys := make([]string, 0, len(c.categories))
	for k := range c.categories {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]CategoryConfig, 0, len(keys))
	for _, k := range keys {
		cat := c.categories[k]
		tests := make(map[string]TestDefinition, len(cat.Tests))
		for tk, t := range cat.Tests {
			tests[tk] = cloneTest(t)
		}
		out = append(out, CategoryConfig{Key: cat.Key, Name: cat.Name, Tests: tests})
	}
	return out
}

func cloneTest(t TestDefinition) TestDefinition {
	params := make([]ParameterDefinition, len(t.Parameters))
	for i, p := range t.Parameters {
		if p.TrimesterRanges != nil {
			tr := *p.TrimesterRanges
			p.TrimesterRanges = &tr
		}
		if p.Options != nil {
			p.Options = append([]string(nil), p.Options...)
		}
		params[i] = p
	}
	t.Parameters = params
	return t
}

// -- Default catalog --

var (
	hemoglobinParam = ParameterDefinition{
		ID: "hemoglobin", Name: "Hemoglobin", Unit: "g/dL", ReferenceRange: "11.0-14.0",
		TrimesterRanges: &TrimesterRanges{First: "11.0-14.0", Second: "10.5-14.0", Third: "10.0-14.0"},
		ValueType:       ValueNumeric,
	}
	hematocritParam = ParameterDefinition{
		ID: "hematocrit", Name: "Hematocrit", Unit: "%", ReferenceRange: "33-44", ValueType: ValueNumeric,
	}
	plateletsParam = ParameterDefinition{
		ID: "platelets", Name: "Platelets", Unit: "x10^3/uL", ReferenceRange: "150-400", ValueType: ValueNumeric,
	}
	wbcParam = ParameterDefinition{
		ID: "white_blood_cells", Name: "White Blood Cells", Unit: "x10^3/uL", ReferenceRange: "4.0-15.0", ValueType: ValueNumeric,
	}
	altParam = ParameterDefinition{
		ID: "alt", Name: "ALT", Unit: "U/L", ReferenceRange: "7-35", ValueType: ValueNumeric,
	}
	astParam = ParameterDefinition{
		ID: "ast", Name: "AST", Unit: "U/L", ReferenceRange: "10-35", ValueType: ValueNumeric,
	}
	positiveNegative = []string{"Negative", "Positive"}
	urineDipstick    = []string{"Negative", "Trace", "1+", "2+", "3+", "4+"}
)

// DefaultCatalog returns the built-in maternal lab catalog.
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultCategories(), defaultRules())
}

func defaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{
			Key:  "prenatal-screening",
			Name: "Prenatal Screening",
			Tests: map[string]TestDefinition{
				"complete_blood_count": {
					Key:        "complete_blood_count",
					Name:       "Complete Blood Count",
					Window:     GestationalWindow{MinWeeks: 0, MaxWeeks: 42},
					Frequency:  "Each trimester",
					Parameters: []ParameterDefinition{hemoglobinParam, hematocritParam, plateletsParam, wbcParam},
				},
				"blood_group_screen": {
					Key:       "blood_group_screen",
					Name:      "Blood Group & Antibody Screen",
					Window:    GestationalWindow{MinWeeks: 0, MaxWeeks: 14},
					Frequency: "Once at booking",
					Parameters: []ParameterDefinition{
						{ID: "blood_group", Name: "Blood Group", ValueType: ValueChoice, Options: []string{"A", "B", "AB", "O"}},
						{ID: "rh_factor", Name: "Rh Factor", ValueType: ValueChoice, Options: positiveNegative},
						{ID: "antibody_screen", Name: "Antibody Screen", ValueType: ValueChoice, Options: positiveNegative},
					},
				},
				"infection_screen": {
					Key:       "infection_screen",
					Name:      "Infectious Disease Screen",
					Window:    GestationalWindow{MinWeeks: 0, MaxWeeks: 20},
					Frequency: "Once at booking",
					Parameters: []ParameterDefinition{
						{ID: "hiv", Name: "HIV", ValueType: ValueChoice, Options: positiveNegative},
						{ID: "hbsag", Name: "Hepatitis B Surface Antigen", ValueType: ValueChoice, Options: positiveNegative},
						{ID: "syphilis", Name: "Syphilis (RPR)", ValueType: ValueChoice, Options: positiveNegative},
						wbcParam,
					},
				},
			},
		},
		{
			Key:  "routine-monitoring",
			Name: "Routine Monitoring",
			Tests: map[string]TestDefinition{
				"glucose_screening": {
					Key:       "glucose_screening",
					Name:      "Glucose Screening",
					Window:    GestationalWindow{MinWeeks: 24, MaxWeeks: 28},
					Frequency: "Once, repeat if risk factors",
					Parameters: []ParameterDefinition{
						{ID: "fasting_glucose", Name: "Fasting Glucose", Unit: "mg/dL", ReferenceRange: "70-92", ValueType: ValueNumeric},
						{ID: "ogtt_1hr", Name: "OGTT 1 Hour", Unit: "mg/dL", ReferenceRange: "<180", ValueType: ValueNumeric},
						{ID: "ogtt_2hr", Name: "OGTT 2 Hour", Unit: "mg/dL", ReferenceRange: "<153", ValueType: ValueNumeric},
					},
				},
				"anemia_panel": {
					Key:       "anemia_panel",
					Name:      "Anemia Monitoring Panel",
					Window:    GestationalWindow{MinWeeks: 0, MaxWeeks: 42},
					Frequency: "Every 4 weeks when anemic",
					Parameters: []ParameterDefinition{
						hemoglobinParam,
						hematocritParam,
						{ID: "serum_ferritin", Name: "Serum Ferritin", Unit: "ng/mL", ReferenceRange: "15-150", ValueType: ValueNumeric},
					},
				},
				"urinalysis": {
					Key:       "urinalysis",
					Name:      "Urinalysis",
					Window:    GestationalWindow{MinWeeks: 0, MaxWeeks: 42},
					Frequency: "Every antenatal visit",
					Parameters: []ParameterDefinition{
						{ID: "urine_protein", Name: "Urine Protein", ValueType: ValueChoice, Options: urineDipstick},
						{ID: "urine_glucose", Name: "Urine Glucose", ValueType: ValueChoice, Options: urineDipstick},
						{ID: "urine_nitrites", Name: "Urine Nitrites", ValueType: ValueChoice, Options: positiveNegative},
					},
				},
			},
		},
		{
			Key:  "risk-assessment",
			Name: "Risk Assessment",
			Tests: map[string]TestDefinition{
				"preeclampsia_panel": {
					Key:       "preeclampsia_panel",
					Name:      "Preeclampsia Risk Assessment",
					Window:    GestationalWindow{MinWeeks: 20, MaxWeeks: 42},
					Frequency: "As indicated, weekly if elevated",
					Parameters: []ParameterDefinition{
						{ID: "protein_creatinine_ratio", Name: "Protein/Creatinine Ratio", Unit: "mg/g", ReferenceRange: "<30", ValueType: ValueNumeric},
						{ID: "uric_acid", Name: "Uric Acid", Unit: "mg/dL", ReferenceRange: "2.5-6.0", ValueType: ValueNumeric},
						plateletsParam,
						altParam,
						astParam,
						{ID: "serum_creatinine", Name: "Serum Creatinine", Unit: "mg/dL", ReferenceRange: "0.4-0.8", ValueType: ValueNumeric},
					},
				},
				"liver_function": {
					Key:       "liver_function",
					Name:      "Liver Function Panel",
					Window:    GestationalWindow{MinWeeks: 0, MaxWeeks: 42},
					Frequency: "As indicated",
					Parameters: []ParameterDefinition{
						altParam,
						astParam,
						{ID: "total_bilirubin", Name: "Total Bilirubin", Unit: "mg/dL", ReferenceRange: "0.1-1.1", ValueType: ValueNumeric},
					},
				},
			},
		},
	}
}
