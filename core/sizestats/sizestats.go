// Package sizestats summarizes the sizes of plain sent packets.
package sizestats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wfshape/wfshape/core/trace"
)

// ErrNoSentPackets is returned for a trace without any plain sent event.
var ErrNoSentPackets = errors.New("no sent packets")

// Stats describes the sent packet sizes of one file. StdDev is the sample
// standard deviation and is NaN for a single packet.
type Stats struct {
	File   string
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Count  int
}

// Compute collects the sizes of events tagged exactly "s".
func Compute(file string, tr *trace.Trace) (Stats, error) {
	var sizes []float64
	for _, ev := range tr.Events {
		if ev.Kind == trace.KindSent {
			sizes = append(sizes, float64(ev.Size))
		}
	}
	if len(sizes) == 0 {
		return Stats{}, fmt.Errorf("%s: %w", file, ErrNoSentPackets)
	}

	s := Stats{
		File:  file,
		Min:   floats.Min(sizes),
		Max:   floats.Max(sizes),
		Count: len(sizes),
	}
	if len(sizes) == 1 {
		s.Mean, s.StdDev = sizes[0], math.NaN()
	} else {
		s.Mean, s.StdDev = stat.MeanStdDev(sizes, nil)
	}
	return s, nil
}

// Summary aggregates per-file stats: the mean of means, the mean of the
// defined standard deviations, the extreme sizes and the total count.
type Summary struct {
	Files      int
	MeanSize   float64
	MeanStdDev float64
	Min        float64
	Max        float64
	Count      int
}

// Aggregate folds a batch. An empty batch yields NaN means.
func Aggregate(stats []Stats) Summary {
	sum := Summary{
		Files:      len(stats),
		MeanSize:   math.NaN(),
		MeanStdDev: math.NaN(),
		Min:        math.NaN(),
		Max:        math.NaN(),
	}
	if len(stats) == 0 {
		return sum
	}

	means := make([]float64, 0, len(stats))
	var stds []float64
	sum.Min, sum.Max = math.Inf(1), math.Inf(-1)
	for _, s := range stats {
		means = append(means, s.Mean)
		if !math.IsNaN(s.StdDev) {
			stds = append(stds, s.StdDev)
		}
		sum.Min = math.Min(sum.Min, s.Min)
		sum.Max = math.Max(sum.Max, s.Max)
		sum.Count += s.Count
	}
	sum.MeanSize = stat.Mean(means, nil)
	if len(stds) > 0 {
		sum.MeanStdDev = stat.Mean(stds, nil)
	}
	return sum
}

// Columns is the header of the packet size report.
var Columns = []string{"file", "mean_packet_size", "std_packet_size", "min_packet_size", "max_packet_size", "count"}

// WriteCSV writes one row per file; NaN values are left empty.
func WriteCSV(w io.Writer, stats []Stats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, s := range stats {
		row := []string{
			s.File,
			formatFloat(s.Mean),
			formatFloat(s.StdDev),
			formatFloat(s.Min),
			formatFloat(s.Max),
			strconv.Itoa(s.Count),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile is WriteCSV into a newly created file.
func WriteCSVFile(path string, stats []Stats) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WriteCSV(f, stats)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
