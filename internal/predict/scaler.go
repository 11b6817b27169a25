package predict

import "math"

// scaler standardizes feature vectors to zero mean and unit variance
// using statistics computed from the training set.
type scaler struct {
	mean   []float64
	stddev []float64
}

func fitScaler(samples [][]float64) *scaler {
	n := float64(len(samples))
	mean := make([]float64, numFeatures)
	stddev := make([]float64, numFeatures)

	for _, s := range samples {
		for j, v := range s {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}

	for _, s := range samples {
		for j, v := range s {
			d := v - mean[j]
			stddev[j] += d * d
		}
	}
	for j := range stddev {
		stddev[j] = math.Sqrt(stddev[j] / n)
		// A constant feature has zero variance; leave it untouched
		// rather than dividing by zero.
		if stddev[j] == 0 {
			stddev[j] = 1
		}
	}

	return &scaler{mean: mean, stddev: stddev}
}

func (s *scaler) transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.mean[j]) / s.stddev[j]
	}
	return out
}
