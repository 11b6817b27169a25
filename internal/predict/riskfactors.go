package predict

import "sort"

// Risk factor severities.
const (
	SeverityHigh     = "high"
	SeverityModerate = "moderate"
)

// RiskFactor flags one out-of-range health parameter in an observation.
// Importance carries the model's weight for the underlying feature so
// callers can rank factors by influence.
type RiskFactor struct {
	Factor      string  `json:"factor"`
	Value       float64 `json:"value"`
	Severity    string  `json:"severity"`
	NormalRange string  `json:"normal_range"`
	Importance  float64 `json:"importance"`
}

type factorRule struct {
	feature     int
	threshold   float64
	factor      string
	severity    string
	normalRange string
}

// factorRules are evaluated top to bottom; within a feature the stricter
// threshold comes first so only one factor per feature fires.
var factorRules = []factorRule{
	{FeatGlucose, 140, "High Glucose Level", SeverityHigh, "70-140 mg/dL"},
	{FeatGlucose, 100, "Elevated Glucose Level", SeverityModerate, "70-100 mg/dL (fasting)"},
	{FeatBMI, 30, "Obesity (High BMI)", SeverityHigh, "18.5-24.9"},
	{FeatBMI, 25, "Overweight (Elevated BMI)", SeverityModerate, "18.5-24.9"},
	{FeatBloodPressure, 90, "High Blood Pressure", SeverityHigh, "60-80 mmHg (diastolic)"},
	{FeatAge, 45, "Age Factor", SeverityModerate, "Risk increases after 45"},
	{FeatPedigree, 0.8, "Strong Family History", SeverityHigh, "< 0.5"},
	{FeatPedigree, 0.5, "Family History Present", SeverityModerate, "< 0.5"},
	{FeatInsulin, 166, "High Insulin Level", SeverityModerate, "16-166 μU/mL"},
}

// RiskFactors evaluates the threshold rules against an observation and
// returns the triggered factors ordered by model feature importance,
// most influential first.
func (p *Predictor) RiskFactors(f Features) []RiskFactor {
	x := f.vector()

	var out []RiskFactor
	seen := make(map[int]bool, numFeatures)

	for _, r := range factorRules {
		if seen[r.feature] || x[r.feature] <= r.threshold {
			continue
		}
		seen[r.feature] = true
		out = append(out, RiskFactor{
			Factor:      r.factor,
			Value:       x[r.feature],
			Severity:    r.severity,
			NormalRange: r.normalRange,
			Importance:  p.importanceOf(r.feature),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	return out
}
