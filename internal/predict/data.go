package predict

import "math/rand"

// Synthetic training set composition. Roughly a third of the population
// is labeled diabetic, mirroring the prevalence in the Pima dataset.
const (
	totalSamples    = 768
	diabeticSamples = 268 // 35%
)

// generateTrainingData produces the labeled dataset the forest is trained
// on. Non-diabetic and diabetic cohorts draw from distinct clipped
// distributions per feature, so the two classes are separable but
// overlapping.
func generateTrainingData(rng *rand.Rand) (samples [][]float64, labels []int) {
	healthy := totalSamples - diabeticSamples

	samples = make([][]float64, 0, totalSamples)
	labels = make([]int, 0, totalSamples)

	for range healthy {
		samples = append(samples, healthySample(rng))
		labels = append(labels, 0)
	}
	for range diabeticSamples {
		samples = append(samples, diabeticSample(rng))
		labels = append(labels, 1)
	}
	return samples, labels
}

func healthySample(rng *rand.Rand) []float64 {
	s := make([]float64, numFeatures)
	s[FeatPregnancies] = float64(randInt(rng, 0, 6))
	s[FeatGlucose] = clip(normal(rng, 100, 15), 70, 140)
	s[FeatBloodPressure] = clip(normal(rng, 70, 10), 50, 90)
	s[FeatSkinThickness] = clip(normal(rng, 20, 8), 0, 50)
	s[FeatInsulin] = clip(normal(rng, 80, 40), 0, 200)
	s[FeatBMI] = clip(normal(rng, 25, 4), 18, 35)
	s[FeatPedigree] = clip(exponential(rng, 0.3), 0.08, 1.0)
	s[FeatAge] = float64(randInt(rng, 21, 50))
	return s
}

func diabeticSample(rng *rand.Rand) []float64 {
	s := make([]float64, numFeatures)
	s[FeatPregnancies] = float64(randInt(rng, 2, 12))
	s[FeatGlucose] = clip(normal(rng, 155, 30), 100, 200)
	s[FeatBloodPressure] = clip(normal(rng, 78, 12), 60, 110)
	s[FeatSkinThickness] = clip(normal(rng, 32, 10), 10, 60)
	s[FeatInsulin] = clip(normal(rng, 180, 80), 50, 400)
	s[FeatBMI] = clip(normal(rng, 34, 6), 25, 50)
	s[FeatPedigree] = clip(exponential(rng, 0.5), 0.1, 2.0)
	s[FeatAge] = float64(randInt(rng, 30, 70))
	return s
}

func normal(rng *rand.Rand, mean, stddev float64) float64 {
	return rng.NormFloat64()*stddev + mean
}

// exponential draws from Exp(rate 1/scale), i.e. mean == scale.
func exponential(rng *rand.Rand, scale float64) float64 {
	return rng.ExpFloat64() * scale
}

// randInt returns a uniform integer in [lo, hi), upper bound exclusive.
func randInt(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo)
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
