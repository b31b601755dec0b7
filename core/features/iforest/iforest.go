// Package iforest implements an isolation forest for unsupervised outlier
// scoring. Scoring follows the common convention: path-length scores are
// offset by the contamination quantile of the training scores, so a negative
// decision margin marks an outlier and roughly the configured fraction of a
// well-behaved training set is flagged.
package iforest

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	defaultTrees      = 100
	defaultSampleSize = 256
)

// Forest is an isolation forest. The zero value is not usable; construct
// with New.
type Forest struct {
	trees         int
	sampleSize    int
	contamination float64
	seed          int64

	roots  []*node
	sample int // actual per-tree sample size after clamping
	offset float64
	fitted bool
}

// New returns a Forest expecting the given fraction of rows to be outliers.
// The seed fixes all randomness so repeated runs score identically.
func New(contamination float64, seed int64) *Forest {
	return &Forest{
		trees:         defaultTrees,
		sampleSize:    defaultSampleSize,
		contamination: contamination,
		seed:          seed,
	}
}

type node struct {
	col   int
	split float64
	left  *node
	right *node
	size  int // leaf only
	leaf  bool
}

// c is the average path length of an unsuccessful BST search over n nodes,
// the standard normalisation term.
func c(n int) float64 {
	if n <= 1 {
		return 0
	}
	const gamma = 0.5772156649
	h := math.Log(float64(n-1)) + gamma
	return 2*h - 2*float64(n-1)/float64(n)
}

// Fit builds the forest on x and fixes the decision offset at the
// contamination quantile of the training scores.
func (f *Forest) Fit(x *mat.Dense) error {
	if x == nil {
		return errors.New("iforest: nil matrix")
	}
	rows, _ := x.Dims()
	if rows == 0 {
		return errors.New("iforest: empty matrix")
	}
	rng := rand.New(rand.NewSource(f.seed))

	f.sample = f.sampleSize
	if f.sample > rows {
		f.sample = rows
	}
	limit := int(math.Ceil(math.Log2(math.Max(float64(f.sample), 2))))

	f.roots = make([]*node, f.trees)
	idx := make([]int, rows)
	for i := range idx {
		idx[i] = i
	}
	for t := 0; t < f.trees; t++ {
		rng.Shuffle(rows, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		sub := make([]int, f.sample)
		copy(sub, idx[:f.sample])
		f.roots[t] = build(x, sub, 0, limit, rng)
	}
	f.fitted = true

	scores := f.rawScores(x)
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	f.offset = stat.Quantile(f.contamination, stat.LinInterp, sorted, nil)
	return nil
}

func build(x *mat.Dense, rows []int, depth, limit int, rng *rand.Rand) *node {
	if len(rows) <= 1 || depth >= limit {
		return &node{leaf: true, size: len(rows)}
	}
	_, cols := x.Dims()

	// Restrict the split choice to columns that still vary in this subset.
	var candidates []int
	for col := 0; col < cols; col++ {
		lo, hi := colRange(x, rows, col)
		if hi > lo {
			candidates = append(candidates, col)
		}
	}
	if len(candidates) == 0 {
		return &node{leaf: true, size: len(rows)}
	}
	col := candidates[rng.Intn(len(candidates))]
	lo, hi := colRange(x, rows, col)
	split := lo + rng.Float64()*(hi-lo)

	var left, right []int
	for _, r := range rows {
		if x.At(r, col) < split {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &node{leaf: true, size: len(rows)}
	}
	return &node{
		col:   col,
		split: split,
		left:  build(x, left, depth+1, limit, rng),
		right: build(x, right, depth+1, limit, rng),
	}
}

func colRange(x *mat.Dense, rows []int, col int) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, r := range rows {
		v := x.At(r, col)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func pathLength(x *mat.Dense, row int, n *node, depth float64) float64 {
	if n.leaf {
		return depth + c(n.size)
	}
	if x.At(row, n.col) < n.split {
		return pathLength(x, row, n.left, depth+1)
	}
	return pathLength(x, row, n.right, depth+1)
}

// rawScores returns the negated anomaly score per row, in [-1, 0]. Lower
// means more isolated.
func (f *Forest) rawScores(x *mat.Dense) []float64 {
	rows, _ := x.Dims()
	out := make([]float64, rows)
	norm := c(f.sample)
	for i := 0; i < rows; i++ {
		var sum float64
		for _, root := range f.roots {
			sum += pathLength(x, i, root, 0)
		}
		avg := sum / float64(len(f.roots))
		if norm == 0 {
			out[i] = -1
			continue
		}
		out[i] = -math.Pow(2, -avg/norm)
	}
	return out
}

// Scores returns the decision margin per row: raw score minus the training
// offset. Negative margins mark outliers.
func (f *Forest) Scores(x *mat.Dense) []float64 {
	if !f.fitted {
		rows, _ := x.Dims()
		return make([]float64, rows)
	}
	raw := f.rawScores(x)
	for i := range raw {
		raw[i] -= f.offset
	}
	return raw
}

// Predict flags rows whose decision margin is negative.
func (f *Forest) Predict(x *mat.Dense) []bool {
	scores := f.Scores(x)
	out := make([]bool, len(scores))
	for i, s := range scores {
		out[i] = s < 0
	}
	return out
}
