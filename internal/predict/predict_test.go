package predict

import (
	"encoding/json"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/diawise/diawise/internal/log"
)

var (
	testPredictorOnce sync.Once
	testPredictor     *Predictor
)

// sharedPredictor trains the model once for the whole package; training
// is deterministic so sharing is safe.
func sharedPredictor(t *testing.T) *Predictor {
	t.Helper()
	testPredictorOnce.Do(func() {
		testPredictor = New(log.NewNop())
	})
	return testPredictor
}

func healthyProfile() Features {
	return Features{
		Pregnancies:      1,
		Glucose:          90,
		BloodPressure:    68,
		SkinThickness:    18,
		Insulin:          70,
		BMI:              22,
		DiabetesPedigree: 0.2,
		Age:              28,
	}
}

func diabeticProfile() Features {
	return Features{
		Pregnancies:      8,
		Glucose:          185,
		BloodPressure:    95,
		SkinThickness:    45,
		Insulin:          300,
		BMI:              42,
		DiabetesPedigree: 1.5,
		Age:              62,
	}
}

func TestPredictSeparatesProfiles(t *testing.T) {
	p := sharedPredictor(t)

	low := p.Predict(healthyProfile())
	high := p.Predict(diabeticProfile())

	if low.ProbabilityDiabetes >= 0.5 {
		t.Errorf("healthy profile probability = %.3f, want < 0.5", low.ProbabilityDiabetes)
	}
	if high.ProbabilityDiabetes <= 0.5 {
		t.Errorf("diabetic profile probability = %.3f, want > 0.5", high.ProbabilityDiabetes)
	}
	if low.Diabetic {
		t.Error("healthy profile classified diabetic")
	}
	if !high.Diabetic {
		t.Error("diabetic profile classified non-diabetic")
	}
	if low.ProbabilityDiabetes >= high.ProbabilityDiabetes {
		t.Errorf("expected monotone probabilities, got healthy=%.3f diabetic=%.3f",
			low.ProbabilityDiabetes, high.ProbabilityDiabetes)
	}
}

func TestPredictProbabilityBounds(t *testing.T) {
	p := sharedPredictor(t)

	for _, f := range []Features{healthyProfile(), diabeticProfile(), DefaultFeatures()} {
		r := p.Predict(f)
		if r.ProbabilityDiabetes < 0 || r.ProbabilityDiabetes > 1 {
			t.Errorf("probability %.3f out of [0,1]", r.ProbabilityDiabetes)
		}
		if sum := r.ProbabilityDiabetes + r.ProbabilityNoDiabetes; math.Abs(sum-1) > 1e-9 {
			t.Errorf("probabilities sum to %.6f, want 1", sum)
		}
	}
}

func TestPredictDeterministic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping second model training in short mode")
	}

	a := New(log.NewNop())
	b := New(log.NewNop())

	for _, f := range []Features{healthyProfile(), diabeticProfile(), DefaultFeatures()} {
		ra, rb := a.Predict(f), b.Predict(f)
		if ra != rb {
			t.Errorf("predictions diverge for %+v: %+v vs %+v", f, ra, rb)
		}
	}
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		probability float64
		want        string
	}{
		{0.0, RiskLow},
		{0.29, RiskLow},
		{0.3, RiskModerate},
		{0.49, RiskModerate},
		{0.5, RiskHigh},
		{0.69, RiskHigh},
		{0.7, RiskVeryHigh},
		{1.0, RiskVeryHigh},
	}

	for _, tt := range tests {
		if got := RiskLevelFor(tt.probability); got != tt.want {
			t.Errorf("RiskLevelFor(%.2f) = %q, want %q", tt.probability, got, tt.want)
		}
	}
}

func TestFeatureImportanceNormalized(t *testing.T) {
	p := sharedPredictor(t)

	imp := p.FeatureImportance()
	if len(imp) != numFeatures {
		t.Fatalf("got %d features, want %d", len(imp), numFeatures)
	}

	var sum float64
	for name, v := range imp {
		if v < 0 || v > 1 {
			t.Errorf("importance of %s = %.4f out of [0,1]", name, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("importances sum to %.6f, want 1", sum)
	}

	// Glucose dominates the class separation in the training
	// distributions and should carry real weight.
	if imp["Glucose"] < 0.1 {
		t.Errorf("Glucose importance = %.4f, want >= 0.1", imp["Glucose"])
	}
}

func TestRiskFactors(t *testing.T) {
	p := sharedPredictor(t)

	tests := []struct {
		name         string
		features     Features
		wantFactors  []string
		wantSeverity map[string]string
	}{
		{
			name:        "all normal",
			features:    healthyProfile(),
			wantFactors: nil,
		},
		{
			name: "high glucose only",
			features: Features{
				Pregnancies: 1, Glucose: 150, BloodPressure: 70,
				SkinThickness: 20, Insulin: 80, BMI: 22,
				DiabetesPedigree: 0.2, Age: 30,
			},
			wantFactors:  []string{"High Glucose Level"},
			wantSeverity: map[string]string{"High Glucose Level": SeverityHigh},
		},
		{
			name: "elevated glucose moderate",
			features: Features{
				Pregnancies: 1, Glucose: 110, BloodPressure: 70,
				SkinThickness: 20, Insulin: 80, BMI: 22,
				DiabetesPedigree: 0.2, Age: 30,
			},
			wantFactors:  []string{"Elevated Glucose Level"},
			wantSeverity: map[string]string{"Elevated Glucose Level": SeverityModerate},
		},
		{
			name: "obesity beats overweight",
			features: Features{
				Pregnancies: 1, Glucose: 90, BloodPressure: 70,
				SkinThickness: 20, Insulin: 80, BMI: 33,
				DiabetesPedigree: 0.2, Age: 30,
			},
			wantFactors:  []string{"Obesity (High BMI)"},
			wantSeverity: map[string]string{"Obesity (High BMI)": SeverityHigh},
		},
		{
			name: "family history tiers",
			features: Features{
				Pregnancies: 1, Glucose: 90, BloodPressure: 70,
				SkinThickness: 20, Insulin: 80, BMI: 22,
				DiabetesPedigree: 0.9, Age: 30,
			},
			wantFactors: []string{"Strong Family History"},
		},
		{
			name: "age and insulin",
			features: Features{
				Pregnancies: 1, Glucose: 90, BloodPressure: 70,
				SkinThickness: 20, Insulin: 200, BMI: 22,
				DiabetesPedigree: 0.2, Age: 50,
			},
			wantFactors: []string{"Age Factor", "High Insulin Level"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.RiskFactors(tt.features)

			names := make(map[string]RiskFactor, len(got))
			for _, f := range got {
				names[f.Factor] = f
			}

			if len(got) != len(tt.wantFactors) {
				t.Fatalf("got %d factors %v, want %d", len(got), got, len(tt.wantFactors))
			}
			for _, want := range tt.wantFactors {
				f, ok := names[want]
				if !ok {
					t.Errorf("missing factor %q in %v", want, got)
					continue
				}
				if wantSev, ok := tt.wantSeverity[want]; ok && f.Severity != wantSev {
					t.Errorf("factor %q severity = %q, want %q", want, f.Severity, wantSev)
				}
				if f.Importance <= 0 || f.Importance > 1 {
					t.Errorf("factor %q importance = %.4f, want in (0,1]", want, f.Importance)
				}
			}
		})
	}
}

func TestRiskFactorsSortedByImportance(t *testing.T) {
	p := sharedPredictor(t)

	// Trip every rule at once.
	got := p.RiskFactors(Features{
		Pregnancies: 10, Glucose: 190, BloodPressure: 100,
		SkinThickness: 50, Insulin: 350, BMI: 44,
		DiabetesPedigree: 1.6, Age: 65,
	})
	if len(got) < 5 {
		t.Fatalf("expected at least 5 factors, got %d", len(got))
	}

	featByName := map[string]int{
		"High Glucose Level":    FeatGlucose,
		"Obesity (High BMI)":    FeatBMI,
		"High Blood Pressure":   FeatBloodPressure,
		"Age Factor":            FeatAge,
		"Strong Family History": FeatPedigree,
		"High Insulin Level":    FeatInsulin,
	}

	for i, f := range got {
		if want := p.importanceOf(featByName[f.Factor]); f.Importance != want {
			t.Errorf("factor %q importance = %.4f, want %.4f", f.Factor, f.Importance, want)
		}
		if i > 0 && got[i-1].Importance < f.Importance {
			t.Errorf("factors out of importance order: %q (%.4f) before %q (%.4f)",
				got[i-1].Factor, got[i-1].Importance, f.Factor, f.Importance)
		}
	}
}

func TestRiskFactorJSONIncludesImportance(t *testing.T) {
	p := sharedPredictor(t)

	got := p.RiskFactors(diabeticProfile())
	if len(got) == 0 {
		t.Fatal("expected risk factors for diabetic profile")
	}

	data, err := json.Marshal(got[0])
	if err != nil {
		t.Fatalf("marshal risk factor: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal risk factor: %v", err)
	}
	v, ok := m["importance"].(float64)
	if !ok {
		t.Fatalf("importance key missing from %s", data)
	}
	if v != got[0].Importance {
		t.Errorf("marshaled importance = %.4f, want %.4f", v, got[0].Importance)
	}
}

func TestDefaultFeatures(t *testing.T) {
	f := DefaultFeatures()
	if f.Glucose != 100 || f.BloodPressure != 70 || f.BMI != 25 ||
		f.DiabetesPedigree != 0.5 || f.Age != 30 {
		t.Errorf("unexpected defaults: %+v", f)
	}
}

func TestScalerZeroVariance(t *testing.T) {
	samples := [][]float64{
		{5, 1, 0, 0, 0, 0, 0, 0},
		{5, 3, 0, 0, 0, 0, 0, 0},
	}
	s := fitScaler(samples)

	got := s.transform([]float64{5, 2, 0, 0, 0, 0, 0, 0})
	if got[0] != 0 {
		t.Errorf("constant feature transformed to %.4f, want 0", got[0])
	}
	if got[1] != 0 {
		t.Errorf("mean value transformed to %.4f, want 0", got[1])
	}
}

func TestRandIntExclusiveUpperBound(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	seen := make(map[int]bool)
	for range 2000 {
		v := randInt(rng, 21, 50)
		if v < 21 || v >= 50 {
			t.Fatalf("randInt(21, 50) = %d, want in [21, 50)", v)
		}
		seen[v] = true
	}
	if !seen[21] || !seen[49] {
		t.Errorf("expected both bounds 21 and 49 to be drawn, seen 21=%v 49=%v",
			seen[21], seen[49])
	}
}

func TestGini(t *testing.T) {
	tests := []struct {
		n, pos int
		want   float64
	}{
		{0, 0, 0},
		{10, 0, 0},
		{10, 10, 0},
		{10, 5, 0.5},
	}
	for _, tt := range tests {
		if got := gini(tt.n, tt.pos); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("gini(%d, %d) = %.4f, want %.4f", tt.n, tt.pos, got, tt.want)
		}
	}
}
