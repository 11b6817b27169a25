package recommend

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/diawise/diawise/internal/log"
	"github.com/diawise/diawise/internal/predict"
)

func lowRiskInput() (predict.Features, predict.Result) {
	f := predict.Features{
		Pregnancies: 1, Glucose: 90, BloodPressure: 70,
		SkinThickness: 20, Insulin: 80, BMI: 22,
		DiabetesPedigree: 0.2, Age: 30,
	}
	return f, predict.Result{
		ProbabilityDiabetes:   0.15,
		ProbabilityNoDiabetes: 0.85,
		RiskLevel:             predict.RiskLow,
	}
}

func highRiskInput() (predict.Features, predict.Result) {
	f := predict.Features{
		Pregnancies: 6, Glucose: 170, BloodPressure: 92,
		SkinThickness: 40, Insulin: 250, BMI: 36,
		DiabetesPedigree: 1.1, Age: 55,
	}
	return f, predict.Result{
		Diabetic:              true,
		ProbabilityDiabetes:   0.82,
		ProbabilityNoDiabetes: 0.18,
		RiskLevel:             predict.RiskVeryHigh,
	}
}

func hasItem(items []Item, title string) bool {
	for _, it := range items {
		if it.Title == title {
			return true
		}
	}
	return false
}

func TestFallbackSummaryByRiskLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{predict.RiskLow, "low risk"},
		{predict.RiskModerate, "moderate risk"},
		{predict.RiskHigh, "high risk"},
		{predict.RiskVeryHigh, "very high risk"},
	}
	for _, tt := range tests {
		got := fallbackSummary(tt.level)
		if !strings.Contains(got, tt.want) {
			t.Errorf("summary for %q = %q, want substring %q", tt.level, got, tt.want)
		}
	}
}

func TestFallbackDietCalorieControl(t *testing.T) {
	fLow, rLow := lowRiskInput()
	if hasItem(Fallback(fLow, rLow).Diet, "Calorie Control") {
		t.Error("calorie control advised for healthy BMI")
	}

	fHigh, rHigh := highRiskInput()
	advice := Fallback(fHigh, rHigh)
	if !hasItem(advice.Diet, "Calorie Control") {
		t.Error("calorie control missing for elevated BMI")
	}
	if !hasItem(advice.Diet, "Increase Fiber Intake") ||
		!hasItem(advice.Diet, "Limit Sugary Beverages") {
		t.Errorf("baseline diet items missing: %+v", advice.Diet)
	}
}

func TestFallbackMedicalByRiskLevel(t *testing.T) {
	fLow, rLow := lowRiskInput()
	low := Fallback(fLow, rLow)
	if hasItem(low.Medical, "Schedule a Doctor's Appointment") {
		t.Error("doctor appointment advised at low risk")
	}
	if !hasItem(low.Medical, "Annual Health Check-up") || !hasItem(low.Medical, "Know Your Numbers") {
		t.Errorf("low-risk medical items wrong: %+v", low.Medical)
	}

	fHigh, rHigh := highRiskInput()
	high := Fallback(fHigh, rHigh)
	if !hasItem(high.Medical, "Schedule a Doctor's Appointment") ||
		!hasItem(high.Medical, "Request HbA1c Test") {
		t.Errorf("high-risk medical items wrong: %+v", high.Medical)
	}
}

func TestFallbackPositiveFactors(t *testing.T) {
	fLow, rLow := lowRiskInput()
	got := Fallback(fLow, rLow).PositiveFactors
	want := []string{
		"Healthy BMI range",
		"Normal fasting glucose level",
		"Age is a protective factor",
		"Healthy blood pressure",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("positive factor %d = %q, want %q", i, got[i], want[i])
		}
	}

	fHigh, rHigh := highRiskInput()
	if pf := Fallback(fHigh, rHigh).PositiveFactors; len(pf) != 0 {
		t.Errorf("expected no positive factors, got %v", pf)
	}
}

func TestFallbackWarningSigns(t *testing.T) {
	f, r := lowRiskInput()
	signs := Fallback(f, r).WarningSigns
	if len(signs) != 5 {
		t.Fatalf("got %d warning signs, want 5", len(signs))
	}
}

func TestFallbackJSONShape(t *testing.T) {
	f, r := highRiskInput()
	raw, err := json.Marshal(Fallback(f, r))
	if err != nil {
		t.Fatalf("marshal advice: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal advice: %v", err)
	}
	for _, key := range []string{
		"summary", "diet_recommendations", "exercise_recommendations",
		"lifestyle_recommendations", "medical_advice",
		"warning_signs", "positive_factors",
	} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q in %s", key, raw)
		}
	}
}

func TestGenerateWithoutClientUsesFallback(t *testing.T) {
	g, err := New(context.Background(), "", "gemini-2.5-flash", log.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	f, r := lowRiskInput()
	advice := g.Generate(context.Background(), f, r, nil)
	if advice.Summary != fallbackSummary(predict.RiskLow) {
		t.Errorf("expected fallback summary, got %q", advice.Summary)
	}
}

func TestBuildPrompt(t *testing.T) {
	f, r := highRiskInput()
	factors := []predict.RiskFactor{
		{Factor: "High Glucose Level", Value: 170, Severity: "high", NormalRange: "70-140 mg/dL"},
	}

	prompt, err := buildPrompt(f, r, factors)
	if err != nil {
		t.Fatalf("buildPrompt: %v", err)
	}
	for _, want := range []string{
		"Age: 55", "BMI: 36.0", "Glucose Level: 170.0",
		"Risk Level: Very High", "82.0%", "High Glucose Level",
		"diet_recommendations", "warning_signs",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
