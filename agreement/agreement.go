// Package agreement scores how well a partition recovers the true cluster
// labels of data drawn from a simulated mixture.
//
// Indices:
//   - Rand:          fraction of point pairs on which both partitions agree.
//   - AdjustedRand:  Hubert–Arabie correction of Rand for chance (1 = identical).
//   - ClassProp:     proportion of points correctly classified under the best
//     one-to-one relabelling of the second partition.
//   - VarInf:        variation of information H(A)+H(B)−2I(A,B), natural log
//     (0 = identical).
//
// All indices are invariant to relabelling either partition.
package agreement

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// Sentinel errors.
var (
	// ErrLengthMismatch indicates partitions of different sizes.
	ErrLengthMismatch = errors.New("agreement: partitions differ in length")

	// ErrTooFewPoints indicates fewer than two points.
	ErrTooFewPoints = errors.New("agreement: at least two points are required")

	// ErrTooManyClasses indicates a ClassProp request above MaxPermutedClasses.
	ErrTooManyClasses = errors.New("agreement: too many classes to permute")
)

// MaxPermutedClasses bounds ClassProp, which enumerates every relabelling.
const MaxPermutedClasses = 9

// table is the contingency table of two partitions.
type table struct {
	n          int
	counts     [][]float64 // counts[r][c]
	rows, cols []float64   // marginals
}

func newTable(a, b []int) (*table, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%d vs %d: %w", len(a), len(b), ErrLengthMismatch)
	}
	if len(a) < 2 {
		return nil, ErrTooFewPoints
	}
	ra, rb := relabel(a), relabel(b)
	t := &table{n: len(a)}
	t.rows = make([]float64, maxLabel(ra)+1)
	t.cols = make([]float64, maxLabel(rb)+1)
	t.counts = make([][]float64, len(t.rows))
	for i := range t.counts {
		t.counts[i] = make([]float64, len(t.cols))
	}
	for i := range ra {
		t.counts[ra[i]][rb[i]]++
		t.rows[ra[i]]++
		t.cols[rb[i]]++
	}

	return t, nil
}

// relabel maps labels to 0..m−1 in order of first appearance.
func relabel(x []int) []int {
	ids := make(map[int]int)
	out := make([]int, len(x))
	for i, v := range x {
		id, ok := ids[v]
		if !ok {
			id = len(ids)
			ids[v] = id
		}
		out[i] = id
	}

	return out
}

func maxLabel(x []int) int {
	m := 0
	for _, v := range x {
		if v > m {
			m = v
		}
	}

	return m
}

func pairs(x float64) float64 { return x * (x - 1) / 2 }

// pairSums returns Σ C(n_ij,2), Σ C(a_i,2), Σ C(b_j,2) and C(n,2).
func (t *table) pairSums() (cells, rows, cols, total float64) {
	for i, row := range t.counts {
		rows += pairs(t.rows[i])
		for _, v := range row {
			cells += pairs(v)
		}
	}
	for _, v := range t.cols {
		cols += pairs(v)
	}

	return cells, rows, cols, pairs(float64(t.n))
}

// Rand returns the Rand index of partitions a and b.
func Rand(a, b []int) (float64, error) {
	t, err := newTable(a, b)
	if err != nil {
		return 0, fmt.Errorf("Rand: %w", err)
	}
	cells, rows, cols, total := t.pairSums()

	return (total + 2*cells - rows - cols) / total, nil
}

// AdjustedRand returns the Hubert–Arabie adjusted Rand index. Two trivial
// partitions (both a single cluster, or both all singletons) score 1.
func AdjustedRand(a, b []int) (float64, error) {
	t, err := newTable(a, b)
	if err != nil {
		return 0, fmt.Errorf("AdjustedRand: %w", err)
	}
	cells, rows, cols, total := t.pairSums()
	expected := rows * cols / total
	maxIndex := (rows + cols) / 2
	if maxIndex == expected {
		return 1, nil
	}

	return (cells - expected) / (maxIndex - expected), nil
}

// ClassProp returns the largest fraction of points on which a and b agree
// over all one-to-one relabellings of b.
//
// Complexity: O(m!·m) for m = max(#classes of a, #classes of b) ≤ MaxPermutedClasses.
func ClassProp(a, b []int) (float64, error) {
	t, err := newTable(a, b)
	if err != nil {
		return 0, fmt.Errorf("ClassProp: %w", err)
	}
	m := len(t.rows)
	if len(t.cols) > m {
		m = len(t.cols)
	}
	if m > MaxPermutedClasses {
		return 0, fmt.Errorf("ClassProp: %d classes: %w", m, ErrTooManyClasses)
	}

	at := func(r, c int) float64 {
		if r < len(t.rows) && c < len(t.cols) {
			return t.counts[r][c]
		}
		return 0
	}
	best := 0.0
	gen := combin.NewPermutationGenerator(m, m)
	perm := make([]int, m)
	for gen.Next() {
		gen.Permutation(perm)
		var hit float64
		for r, c := range perm {
			hit += at(r, c)
		}
		best = math.Max(best, hit)
	}

	return best / float64(t.n), nil
}

// VarInf returns the variation of information between a and b in nats.
func VarInf(a, b []int) (float64, error) {
	t, err := newTable(a, b)
	if err != nil {
		return 0, fmt.Errorf("VarInf: %w", err)
	}
	n := float64(t.n)
	entropy := func(marg []float64) float64 {
		var h float64
		for _, v := range marg {
			if v > 0 {
				p := v / n
				h -= p * math.Log(p)
			}
		}
		return h
	}
	var mi float64
	for i, row := range t.counts {
		for j, v := range row {
			if v > 0 {
				mi += v / n * math.Log(v*n/(t.rows[i]*t.cols[j]))
			}
		}
	}
	vi := entropy(t.rows) + entropy(t.cols) - 2*mi
	if vi < 0 { // round-off on identical partitions
		vi = 0
	}

	return vi, nil
}
