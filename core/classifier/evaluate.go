package classifier

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/wfshape/wfshape/core/features"
	"github.com/wfshape/wfshape/pkg/rng"
)

// DefaultTrainFraction is the share of samples used for training.
const DefaultTrainFraction = 0.7

// Options configures an evaluation run.
type Options struct {
	K             int
	TrainFraction float64
}

// DefaultOptions is the fixed baseline: k=5 on a 70/30 split.
func DefaultOptions() Options {
	return Options{K: DefaultK, TrainFraction: DefaultTrainFraction}
}

// Split holds flattened rows and class indices for both partitions.
type Split struct {
	TrainX [][]float64
	TrainY []int
	TestX  [][]float64
	TestY  []int
}

// SplitDataset shuffles the samples with r and cuts them by position:
// floor(fraction*N) for training, the rest for testing. Labels come from
// the arg-max of each one-hot vector.
func SplitDataset(ds *features.Dataset, r *rand.Rand, fraction float64) Split {
	order := make([]int, len(ds.Samples))
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(r, len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	cut := int(math.Floor(float64(len(order)) * fraction))
	var s Split
	for pos, idx := range order {
		sample := ds.Samples[idx]
		row := sample.Channels().Flatten()
		if pos < cut {
			s.TrainX = append(s.TrainX, row)
			s.TrainY = append(s.TrainY, sample.Class())
		} else {
			s.TestX = append(s.TestX, row)
			s.TestY = append(s.TestY, sample.Class())
		}
	}
	return s
}

// Result reports accuracy on both partitions.
type Result struct {
	TrainSize     int
	TestSize      int
	TrainAccuracy float64
	TestAccuracy  float64
}

// Evaluate splits the dataset, fits a k-NN classifier on the training
// rows and scores it on both partitions.
func Evaluate(ds *features.Dataset, r *rand.Rand, opts Options) (Result, error) {
	if opts.TrainFraction <= 0 || opts.TrainFraction > 1 {
		return Result{}, fmt.Errorf("train fraction must be in (0, 1], got %v", opts.TrainFraction)
	}
	split := SplitDataset(ds, r, opts.TrainFraction)
	res := Result{TrainSize: len(split.TrainX), TestSize: len(split.TestX)}

	model := NewKNN(opts.K)
	if err := model.Fit(split.TrainX, split.TrainY); err != nil {
		return res, fmt.Errorf("failed to fit classifier on %d samples: %w", len(ds.Samples), err)
	}

	trainPred, err := model.PredictAll(split.TrainX)
	if err != nil {
		return res, err
	}
	testPred, err := model.PredictAll(split.TestX)
	if err != nil {
		return res, err
	}
	res.TrainAccuracy = Accuracy(trainPred, split.TrainY)
	res.TestAccuracy = Accuracy(testPred, split.TestY)
	return res, nil
}
