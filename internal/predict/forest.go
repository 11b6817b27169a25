package predict

import (
	"math"
	"math/rand"
	"sort"
)

// node is one decision node. Leaves have feature == -1 and carry the
// class distribution of the training samples that reached them.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node

	samples  int
	positive int
}

func (n *node) isLeaf() bool { return n.feature < 0 }

// proba walks the tree and returns the positive-class fraction at the
// reached leaf.
func (n *node) proba(x []float64) float64 {
	for !n.isLeaf() {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	if n.samples == 0 {
		return 0
	}
	return float64(n.positive) / float64(n.samples)
}

// forest is an ensemble of CART trees trained on bootstrap resamples.
type forest struct {
	trees []*node

	// importanceSums accumulates the weighted impurity decrease of every
	// split, summed across all trees, per feature.
	importanceSums []float64
	totalSamples   int
}

func trainForest(rng *rand.Rand, samples [][]float64, labels []int) *forest {
	f := &forest{
		trees:          make([]*node, 0, numTrees),
		importanceSums: make([]float64, numFeatures),
		totalSamples:   len(samples),
	}

	n := len(samples)
	for range numTrees {
		// Bootstrap: sample n indices with replacement.
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		f.trees = append(f.trees, f.buildTree(rng, samples, labels, idx, 0))
	}
	return f
}

// predictProba returns the mean positive-class probability across trees.
func (f *forest) predictProba(x []float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.proba(x)
	}
	return sum / float64(len(f.trees))
}

// featureImportance normalizes the accumulated impurity decreases so the
// result sums to 1.
func (f *forest) featureImportance() []float64 {
	out := make([]float64, numFeatures)
	var total float64
	for _, v := range f.importanceSums {
		total += v
	}
	if total == 0 {
		return out
	}
	for i, v := range f.importanceSums {
		out[i] = v / total
	}
	return out
}

func (f *forest) buildTree(rng *rand.Rand, samples [][]float64, labels []int, idx []int, depth int) *node {
	pos := 0
	for _, i := range idx {
		pos += labels[i]
	}

	leaf := &node{feature: -1, samples: len(idx), positive: pos}

	// Stop on purity, depth, or sample-count limits.
	if pos == 0 || pos == len(idx) || depth >= maxDepth || len(idx) < minSamplesSplit {
		return leaf
	}

	feat, threshold, gain := f.bestSplit(rng, samples, labels, idx)
	if feat < 0 {
		return leaf
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if samples[i][feat] <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) < minSamplesLeaf || len(rightIdx) < minSamplesLeaf {
		return leaf
	}

	f.importanceSums[feat] += gain * float64(len(idx)) / float64(f.totalSamples)

	return &node{
		feature:   feat,
		threshold: threshold,
		samples:   len(idx),
		positive:  pos,
		left:      f.buildTree(rng, samples, labels, leftIdx, depth+1),
		right:     f.buildTree(rng, samples, labels, rightIdx, depth+1),
	}
}

// candidateFeatures is sqrt(numFeatures), the usual forest heuristic.
var candidateFeatures = int(math.Sqrt(float64(numFeatures)))

// bestSplit searches a random feature subset for the split that
// maximizes Gini impurity decrease. Returns feature -1 when no split
// improves on the parent.
func (f *forest) bestSplit(rng *rand.Rand, samples [][]float64, labels []int, idx []int) (feat int, threshold, gain float64) {
	parentGini := giniOf(labels, idx)

	feat = -1
	bestGain := 0.0

	perm := rng.Perm(numFeatures)[:candidateFeatures]
	values := make([]float64, len(idx))

	for _, ft := range perm {
		for k, i := range idx {
			values[k] = samples[i][ft]
		}
		sort.Float64s(values)

		for k := 1; k < len(values); k++ {
			if values[k] == values[k-1] {
				continue
			}
			th := (values[k] + values[k-1]) / 2

			var ln, lp, rn, rp int
			for _, i := range idx {
				if samples[i][ft] <= th {
					ln++
					lp += labels[i]
				} else {
					rn++
					rp += labels[i]
				}
			}
			if ln < minSamplesLeaf || rn < minSamplesLeaf {
				continue
			}

			n := float64(len(idx))
			weighted := float64(ln)/n*gini(ln, lp) + float64(rn)/n*gini(rn, rp)
			if g := parentGini - weighted; g > bestGain {
				bestGain = g
				feat = ft
				threshold = th
			}
		}
	}
	return feat, threshold, bestGain
}

func giniOf(labels []int, idx []int) float64 {
	pos := 0
	for _, i := range idx {
		pos += labels[i]
	}
	return gini(len(idx), pos)
}

// gini computes binary Gini impurity for n samples with pos positives.
func gini(n, pos int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
