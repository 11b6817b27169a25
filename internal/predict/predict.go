// Package predict implements the diabetes risk classifier.
//
// The model is a random forest trained once at construction time on a
// synthetically generated labeled dataset with fixed distributions and a
// fixed seed, so every process trains the identical model. Features are
// standardized (zero mean, unit variance) before both training and
// prediction.
package predict

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// Feature indices in the model's input vector. Order is significant: the
// scaler, the trees, and the importance vector all use these positions.
const (
	FeatPregnancies = iota
	FeatGlucose
	FeatBloodPressure
	FeatSkinThickness
	FeatInsulin
	FeatBMI
	FeatPedigree
	FeatAge

	numFeatures
)

// featureNames maps feature indices to their canonical names, matching
// the Pima Indians dataset vocabulary used throughout the API.
var featureNames = [numFeatures]string{
	"Pregnancies",
	"Glucose",
	"BloodPressure",
	"SkinThickness",
	"Insulin",
	"BMI",
	"DiabetesPedigreeFunction",
	"Age",
}

// Default values applied when an observation omits a field.
const (
	DefaultPregnancies   = 0.0
	DefaultGlucose       = 100.0
	DefaultBloodPressure = 70.0
	DefaultSkinThickness = 20.0
	DefaultInsulin       = 80.0
	DefaultBMI           = 25.0
	DefaultPedigree      = 0.5
	DefaultAge           = 30.0
)

// Risk levels, ordered from least to most severe.
const (
	RiskLow      = "Low"
	RiskModerate = "Moderate"
	RiskHigh     = "High"
	RiskVeryHigh = "Very High"
)

// Model hyperparameters.
const (
	numTrees        = 100
	maxDepth        = 10
	minSamplesSplit = 5
	minSamplesLeaf  = 2
	trainSeed       = 42
)

// Features is one observation to classify.
type Features struct {
	Pregnancies      float64
	Glucose          float64
	BloodPressure    float64
	SkinThickness    float64
	Insulin          float64
	BMI              float64
	DiabetesPedigree float64
	Age              float64
}

// DefaultFeatures returns an observation with every field at its default.
// Callers overwrite the fields they actually have values for.
func DefaultFeatures() Features {
	return Features{
		Pregnancies:      DefaultPregnancies,
		Glucose:          DefaultGlucose,
		BloodPressure:    DefaultBloodPressure,
		SkinThickness:    DefaultSkinThickness,
		Insulin:          DefaultInsulin,
		BMI:              DefaultBMI,
		DiabetesPedigree: DefaultPedigree,
		Age:              DefaultAge,
	}
}

// vector returns the observation in model input order.
func (f Features) vector() []float64 {
	v := make([]float64, numFeatures)
	v[FeatPregnancies] = f.Pregnancies
	v[FeatGlucose] = f.Glucose
	v[FeatBloodPressure] = f.BloodPressure
	v[FeatSkinThickness] = f.SkinThickness
	v[FeatInsulin] = f.Insulin
	v[FeatBMI] = f.BMI
	v[FeatPedigree] = f.DiabetesPedigree
	v[FeatAge] = f.Age
	return v
}

// Result is the outcome of a single classification.
type Result struct {
	Diabetic              bool    `json:"diabetic"`
	ProbabilityNoDiabetes float64 `json:"probability_no_diabetes"`
	ProbabilityDiabetes   float64 `json:"probability_diabetes"`
	RiskLevel             string  `json:"risk_level"`
}

// Predictor classifies observations using a trained random forest.
//
// Predictor is immutable after construction and safe for concurrent use.
type Predictor struct {
	forest     *forest
	scaler     *scaler
	importance []float64 // normalized mean decrease in impurity, by feature index
}

// New trains a predictor on the synthetic dataset. Training is
// deterministic; two Predictors constructed in different processes
// produce identical outputs for identical inputs.
func New(logger *slog.Logger) *Predictor {
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	rng := rand.New(rand.NewSource(trainSeed))

	samples, labels := generateTrainingData(rng)

	sc := fitScaler(samples)
	scaled := make([][]float64, len(samples))
	for i, s := range samples {
		scaled[i] = sc.transform(s)
	}

	f := trainForest(rng, scaled, labels)

	logger.Info("risk model trained",
		"samples", len(samples),
		"trees", numTrees,
		"duration", time.Since(start),
	)

	return &Predictor{
		forest:     f,
		scaler:     sc,
		importance: f.featureImportance(),
	}
}

// Predict classifies a single observation.
func (p *Predictor) Predict(f Features) Result {
	x := p.scaler.transform(f.vector())
	prob := p.forest.predictProba(x)

	return Result{
		Diabetic:              prob >= 0.5,
		ProbabilityNoDiabetes: 1 - prob,
		ProbabilityDiabetes:   prob,
		RiskLevel:             RiskLevelFor(prob),
	}
}

// RiskLevelFor maps a diabetes probability to a risk tier.
func RiskLevelFor(probability float64) string {
	switch {
	case probability < 0.3:
		return RiskLow
	case probability < 0.5:
		return RiskModerate
	case probability < 0.7:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}

// FeatureImportance returns the normalized importance of every feature,
// keyed by canonical feature name. Values sum to 1.
func (p *Predictor) FeatureImportance() map[string]float64 {
	out := make(map[string]float64, numFeatures)
	for i, name := range featureNames {
		out[name] = p.importance[i]
	}
	return out
}

// importanceOf returns the importance for one feature index.
func (p *Predictor) importanceOf(feat int) float64 {
	if feat < 0 || feat >= numFeatures {
		panic(fmt.Sprintf("predict: feature index %d out of range", feat))
	}
	return p.importance[feat]
}
