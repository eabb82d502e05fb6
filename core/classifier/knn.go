// Package classifier evaluates a k-nearest-neighbour attack on a feature
// dataset.
package classifier

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// DefaultK is the neighbour count of the baseline attack.
const DefaultK = 5

// ErrNotFitted is returned when predicting before Fit.
var ErrNotFitted = errors.New("classifier not fitted")

// KNN is a brute-force Euclidean k-nearest-neighbour classifier with
// uniform voting.
type KNN struct {
	K int

	rows   [][]float64
	labels []int
}

// NewKNN returns an unfitted classifier.
func NewKNN(k int) *KNN {
	return &KNN{K: k}
}

// Fit stores the training rows. All rows must have the same width.
func (m *KNN) Fit(rows [][]float64, labels []int) error {
	if m.K < 1 {
		return fmt.Errorf("k must be positive, got %d", m.K)
	}
	if len(rows) == 0 {
		return fmt.Errorf("no training rows")
	}
	if len(rows) != len(labels) {
		return fmt.Errorf("%d rows but %d labels", len(rows), len(labels))
	}
	width := len(rows[0])
	for i, r := range rows {
		if len(r) != width {
			return fmt.Errorf("row %d has width %d, want %d", i, len(r), width)
		}
	}
	m.rows = rows
	m.labels = labels
	return nil
}

type neighbour struct {
	dist  float64
	index int
}

// Predict returns the majority label among the K nearest training rows.
// Distance ties keep training order; vote ties go to the smallest label.
// K is capped at the number of training rows.
func (m *KNN) Predict(row []float64) (int, error) {
	if len(m.rows) == 0 {
		return 0, ErrNotFitted
	}
	if len(row) != len(m.rows[0]) {
		return 0, fmt.Errorf("row has width %d, want %d", len(row), len(m.rows[0]))
	}

	ns := make([]neighbour, len(m.rows))
	for i, r := range m.rows {
		ns[i] = neighbour{dist: floats.Distance(row, r, 2), index: i}
	}
	sort.SliceStable(ns, func(i, j int) bool { return ns[i].dist < ns[j].dist })

	k := m.K
	if k > len(ns) {
		k = len(ns)
	}
	votes := make(map[int]int)
	for _, n := range ns[:k] {
		votes[m.labels[n.index]]++
	}

	best, bestVotes := 0, -1
	for label, v := range votes {
		if v > bestVotes || (v == bestVotes && label < best) {
			best, bestVotes = label, v
		}
	}
	return best, nil
}

// PredictAll predicts every row.
func (m *KNN) PredictAll(rows [][]float64) ([]int, error) {
	out := make([]int, len(rows))
	for i, r := range rows {
		p, err := m.Predict(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// Accuracy is the fraction of exact matches. It is 0 for empty input.
func Accuracy(predicted, truth []int) float64 {
	if len(truth) == 0 || len(predicted) != len(truth) {
		return 0
	}
	hits := 0
	for i := range truth {
		if predicted[i] == truth[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}
