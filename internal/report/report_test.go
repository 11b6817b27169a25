package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/diawise/diawise/internal/predict"
	"github.com/diawise/diawise/internal/recommend"
)

func testInput() Input {
	f := predict.Features{
		Pregnancies: 2, Glucose: 130, BloodPressure: 82,
		SkinThickness: 25, Insulin: 120, BMI: 28,
		DiabetesPedigree: 0.6, Age: 45,
	}
	result := predict.Result{
		ProbabilityDiabetes:   0.55,
		ProbabilityNoDiabetes: 0.45,
		Diabetic:              true,
		RiskLevel:             predict.RiskHigh,
	}
	advice := recommend.Fallback(f, result)

	return Input{
		Username:  "testuser",
		Features:  f,
		Result:    result,
		Advice:    &advice,
		Generated: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestGenerate(t *testing.T) {
	pdf, err := Generate(testInput())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatal("empty pdf output")
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("output does not start with %%PDF header: %q", pdf[:8])
	}
}

func TestGenerateWithoutAdvice(t *testing.T) {
	in := testInput()
	in.Advice = nil

	pdf, err := Generate(in)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Error("output is not a pdf")
	}
}

func TestGenerateDeterministicSize(t *testing.T) {
	a, err := Generate(testInput())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate(testInput())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(a) != len(b) {
		t.Errorf("output size varies between runs: %d vs %d", len(a), len(b))
	}
}

func TestBMICategory(t *testing.T) {
	tests := []struct {
		bmi  float64
		want string
	}{
		{17, "Underweight"},
		{22, "Normal"},
		{27, "Overweight"},
		{33, "Obese"},
	}
	for _, tt := range tests {
		if got := bmiCategory(tt.bmi); got != tt.want {
			t.Errorf("bmiCategory(%.0f) = %q, want %q", tt.bmi, got, tt.want)
		}
	}
}

func TestGlucoseStatus(t *testing.T) {
	tests := []struct {
		glucose float64
		want    string
	}{
		{90, "Normal"},
		{110, "Pre-diabetic Range"},
		{140, "Diabetic Range"},
	}
	for _, tt := range tests {
		if got := glucoseStatus(tt.glucose); got != tt.want {
			t.Errorf("glucoseStatus(%.0f) = %q, want %q", tt.glucose, got, tt.want)
		}
	}
}
