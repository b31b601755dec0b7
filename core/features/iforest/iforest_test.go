package iforest

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// cluster builds rows around a center with small deterministic jitter, plus
// the given extra outlier rows.
func cluster(n int, center []float64, outliers [][]float64) *mat.Dense {
	rng := rand.New(rand.NewSource(1))
	rows := n + len(outliers)
	x := mat.NewDense(rows, len(center), nil)
	for i := 0; i < n; i++ {
		for j, c := range center {
			x.Set(i, j, c+rng.Float64()-0.5)
		}
	}
	for i, o := range outliers {
		for j, v := range o {
			x.Set(n+i, j, v)
		}
	}
	return x
}

func TestFitEmptyMatrix(t *testing.T) {
	f := New(0.1, 42)
	if err := f.Fit(nil); err == nil {
		t.Fatal("expected error for nil matrix")
	}
}

func TestObviousOutlierFlagged(t *testing.T) {
	x := cluster(60, []float64{10, 10, 10}, [][]float64{{500, -500, 900}})
	f := New(0.1, 42)
	if err := f.Fit(x); err != nil {
		t.Fatalf("fit: %v", err)
	}
	flags := f.Predict(x)
	if !flags[60] {
		t.Error("distant point not flagged")
	}
	scores := f.Scores(x)
	if scores[60] >= 0 {
		t.Errorf("outlier margin = %v, want negative", scores[60])
	}
	// The outlier must score lower than any clustered point.
	for i := 0; i < 60; i++ {
		if scores[i] <= scores[60] {
			t.Fatalf("row %d scored %v, below outlier %v", i, scores[i], scores[60])
		}
	}
}

func TestDeterministicScores(t *testing.T) {
	x := cluster(40, []float64{5, 5}, [][]float64{{100, 100}})
	a := New(0.1, 42)
	b := New(0.1, 42)
	if err := a.Fit(x); err != nil {
		t.Fatalf("fit a: %v", err)
	}
	if err := b.Fit(x); err != nil {
		t.Fatalf("fit b: %v", err)
	}
	sa, sb := a.Scores(x), b.Scores(x)
	for i := range sa {
		if sa[i] != sb[i] {
			t.Fatalf("row %d: %v != %v", i, sa[i], sb[i])
		}
	}
}

func TestContaminationBound(t *testing.T) {
	// On a well-behaved training set roughly the contamination fraction is
	// flagged; allow generous slack for quantile interpolation.
	x := cluster(200, []float64{0, 0, 0, 0}, nil)
	f := New(0.1, 42)
	if err := f.Fit(x); err != nil {
		t.Fatalf("fit: %v", err)
	}
	flags := f.Predict(x)
	n := 0
	for _, fl := range flags {
		if fl {
			n++
		}
	}
	frac := float64(n) / 200
	if frac < 0.02 || frac > 0.25 {
		t.Errorf("flagged fraction = %v, want near 0.1", frac)
	}
}

func TestScoresBeforeFitAreZero(t *testing.T) {
	x := mat.NewDense(3, 2, nil)
	f := New(0.1, 42)
	scores := f.Scores(x)
	for i, s := range scores {
		if s != 0 {
			t.Errorf("row %d score = %v before fit", i, s)
		}
	}
}

func TestNormalisationTerm(t *testing.T) {
	if c(1) != 0 || c(0) != 0 {
		t.Error("c must be zero for trivial sizes")
	}
	if got := c(256); math.Abs(got-10.244) > 0.1 {
		t.Errorf("c(256) = %v, want about 10.24", got)
	}
}
