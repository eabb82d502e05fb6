// Package overhead compares the byte volume of original and perturbed
// traces.
package overhead

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/wfshape/wfshape/core/trace"
)

// Stats is the byte accounting for one original/modified pair.
type Stats struct {
	File           string
	OriginalBytes  int64
	ModifiedBytes  int64
	ReductionBytes int64
	// ReductionPct is 0 and PctDefined false when OriginalBytes is 0.
	ReductionPct float64
	PctDefined   bool
}

// Account sums the size column of both traces.
func Account(file string, original, modified *trace.Trace) Stats {
	return fromTotals(file, original.TotalBytes(), modified.TotalBytes())
}

func fromTotals(file string, original, modified int64) Stats {
	s := Stats{
		File:           file,
		OriginalBytes:  original,
		ModifiedBytes:  modified,
		ReductionBytes: original - modified,
	}
	if original != 0 {
		s.ReductionPct = float64(s.ReductionBytes) / float64(original) * 100
		s.PctDefined = true
	}
	return s
}

// Summary aggregates a batch. MeanReductionPct averages only the
// files whose percentage is defined.
type Summary struct {
	Files            int
	OriginalBytes    int64
	ModifiedBytes    int64
	ReductionBytes   int64
	ReductionPct     float64
	PctDefined       bool
	MeanReductionPct float64
}

// Aggregate totals a batch of per-file stats.
func Aggregate(stats []Stats) Summary {
	var sum Summary
	var pctSum float64
	var pctCount int
	for _, s := range stats {
		sum.Files++
		sum.OriginalBytes += s.OriginalBytes
		sum.ModifiedBytes += s.ModifiedBytes
		if s.PctDefined {
			pctSum += s.ReductionPct
			pctCount++
		}
	}
	total := fromTotals("", sum.OriginalBytes, sum.ModifiedBytes)
	sum.ReductionBytes = total.ReductionBytes
	sum.ReductionPct = total.ReductionPct
	sum.PctDefined = total.PctDefined
	if pctCount > 0 {
		sum.MeanReductionPct = pctSum / float64(pctCount)
	}
	return sum
}

var (
	columns    = []string{"file", "original_overhead", "modified_overhead", "overhead_reduction"}
	pctColumns = append(append([]string(nil), columns...), "overhead_reduction_percentage")
)

// WriteCSV writes one row per file. The percentage column is included
// when withPct is set and is left empty for undefined percentages.
func WriteCSV(w io.Writer, stats []Stats, withPct bool) error {
	cw := csv.NewWriter(w)
	header := columns
	if withPct {
		header = pctColumns
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range stats {
		row := []string{
			s.File,
			strconv.FormatInt(s.OriginalBytes, 10),
			strconv.FormatInt(s.ModifiedBytes, 10),
			strconv.FormatInt(s.ReductionBytes, 10),
		}
		if withPct {
			pct := ""
			if s.PctDefined {
				pct = strconv.FormatFloat(s.ReductionPct, 'f', 2, 64)
			}
			row = append(row, pct)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile is WriteCSV into a newly created file.
func WriteCSVFile(path string, stats []Stats, withPct bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WriteCSV(f, stats, withPct)
}
