package outlier

import (
	"math"
	"math/rand"
	"sort"
)

// eulerMascheroni is used in the expected-path-length normalization term.
const eulerMascheroni = 0.5772156649

// Forest is an isolation forest over scalar values. Trees are built from a
// seeded random source, so two forests constructed with the same seed and
// trained on the same data classify identically.
type Forest struct {
	numTrees      int
	sampleSize    int
	contamination float64
	rng           *rand.Rand

	trees   []*treeNode
	avgPath float64
	// cutoff is the score above which a point is an outlier, placed just
	// below the (1 - contamination) rank of the training scores so that
	// whole tie groups at that rank stay on the outlier side.
	cutoff float64
	// degenerate is set when every training value scored identically; such
	// a forest cannot separate a tail and flags nothing.
	degenerate bool
	trained    bool
}

type treeNode struct {
	split float64
	left  *treeNode
	right *treeNode
	size  int
	leaf  bool
}

// NewForest creates an isolation forest. Contamination is the expected
// outlier fraction in (0,1); out-of-range values fall back to 0.1. The seed
// pins the tree-building randomness for reproducibility.
func NewForest(numTrees, sampleSize int, contamination float64, seed int64) *Forest {
	if numTrees <= 0 {
		numTrees = 100
	}
	if sampleSize <= 0 {
		sampleSize = 256
	}
	if contamination <= 0 || contamination >= 1 {
		contamination = 0.1
	}
	return &Forest{
		numTrees:      numTrees,
		sampleSize:    sampleSize,
		contamination: contamination,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// Fit builds the forest on the training values and places the outlier cutoff
// from the contamination rate. Empty input is a no-op.
func (f *Forest) Fit(values []float64) {
	if len(values) == 0 {
		return
	}

	sampleSize := f.sampleSize
	if sampleSize > len(values) {
		sampleSize = len(values)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))
	if maxDepth < 1 {
		maxDepth = 1
	}

	f.trees = make([]*treeNode, f.numTrees)
	for i := 0; i < f.numTrees; i++ {
		sample := f.subsample(values, sampleSize)
		f.trees[i] = f.build(sample, 0, maxDepth)
	}
	f.avgPath = expectedPathLength(float64(sampleSize))
	f.trained = true

	scores := make([]float64, len(values))
	for i, v := range values {
		scores[i] = f.Score(v)
	}
	sort.Float64s(scores)
	f.degenerate = scores[0] == scores[len(scores)-1]

	// Repeated training values collapse onto shared leaf paths, so the rank
	// score can tie all the way up to the maximum. Step the cutoff below the
	// rank's tie group: the tied tail, and anything beyond training support
	// that shares its leaf paths, then scores strictly above the cutoff.
	rank := int(math.Ceil((1 - f.contamination) * float64(len(scores)-1)))
	cut := scores[rank]
	for j := rank; j >= 0; j-- {
		if scores[j] < scores[rank] {
			cut = scores[j]
			break
		}
	}
	f.cutoff = cut
}

func (f *Forest) subsample(values []float64, size int) []float64 {
	if len(values) <= size {
		return values
	}
	idx := f.rng.Perm(len(values))[:size]
	sample := make([]float64, size)
	for i, j := range idx {
		sample[i] = values[j]
	}
	return sample
}

func (f *Forest) build(values []float64, depth, maxDepth int) *treeNode {
	if len(values) <= 1 || depth >= maxDepth {
		return &treeNode{size: len(values), leaf: true}
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return &treeNode{size: len(values), leaf: true}
	}

	split := lo + f.rng.Float64()*(hi-lo)
	var left, right []float64
	for _, v := range values {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}

	return &treeNode{
		split: split,
		left:  f.build(left, depth+1, maxDepth),
		right: f.build(right, depth+1, maxDepth),
		size:  len(values),
	}
}

// Score returns the isolation anomaly score in (0,1); higher means more
// isolated. An untrained forest returns the neutral 0.5.
func (f *Forest) Score(v float64) float64 {
	if !f.trained || len(f.trees) == 0 {
		return 0.5
	}
	total := 0.0
	for _, root := range f.trees {
		total += pathLength(root, v, 0)
	}
	avg := total / float64(len(f.trees))
	return math.Pow(2, -avg/f.avgPath)
}

// IsOutlier reports whether v scores above the contamination cutoff. A
// degenerate forest, trained on values with no score spread, flags nothing.
func (f *Forest) IsOutlier(v float64) bool {
	if !f.trained || f.degenerate {
		return false
	}
	return f.Score(v) > f.cutoff
}

// Margin returns the decision margin above the cutoff, floored at zero.
// Inliers score 0; outliers score by how far past the cutoff they fall.
func (f *Forest) Margin(v float64) float64 {
	if !f.trained || f.degenerate {
		return 0
	}
	m := f.Score(v) - f.cutoff
	if m < 0 {
		return 0
	}
	return m
}

// Trained reports whether Fit has been called with data.
func (f *Forest) Trained() bool {
	return f.trained
}

func pathLength(n *treeNode, v float64, depth int) float64 {
	if n == nil || n.leaf {
		if n != nil && n.size > 1 {
			return float64(depth) + expectedPathLength(float64(n.size))
		}
		return float64(depth)
	}
	if v < n.split {
		return pathLength(n.left, v, depth+1)
	}
	return pathLength(n.right, v, depth+1)
}

// expectedPathLength is the average path length of an unsuccessful BST
// search over n values: 2H(n-1) - 2(n-1)/n.
func expectedPathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	return 2*(math.Log(n-1)+eulerMascheroni) - 2*(n-1)/n
}
