// Package features turns packet traces into fixed-width, time-binned
// packet-rate vectors for the fingerprinting attack.
package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/wfshape/wfshape/core/trace"
)

const (
	// BinsPerSecond is the time resolution of every channel.
	BinsPerSecond = 4
	// BinSeconds is the width of one bin.
	BinSeconds = 0.25

	nsPerSecond int64 = 1_000_000_000
	binNs             = nsPerSecond / BinsPerSecond

	// NoAnchor is the anchor time reported for a trace without a
	// qualifying event.
	NoAnchor int64 = -1
)

var (
	// ErrNoAnchor means the trace has no event that can anchor the window.
	ErrNoAnchor = errors.New("no anchor event")
	// ErrInvalidWindow means the window bounds do not describe a span.
	ErrInvalidWindow = errors.New("invalid window")
)

// Window is the capture span in whole seconds before the anchor time.
type Window struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// DefaultWindow covers the final minute of a trace.
func DefaultWindow() Window {
	return Window{Start: 60, End: 0}
}

// Validate checks that the window is non-empty and lies before the anchor.
func (w Window) Validate() error {
	if w.End < 0 {
		return fmt.Errorf("%w: end %d is negative", ErrInvalidWindow, w.End)
	}
	if w.Start <= w.End {
		return fmt.Errorf("%w: start %d must be greater than end %d", ErrInvalidWindow, w.Start, w.End)
	}
	return nil
}

// Bins returns the number of bins per channel.
func (w Window) Bins() int {
	return (w.Start - w.End) * BinsPerSecond
}

// AnchorTime scans from the end of the trace for the last event whose kind
// can anchor the window and returns its timestamp rounded up to the next
// even second. It returns NoAnchor and ErrNoAnchor if none qualifies.
func AnchorTime(events []trace.Event) (int64, error) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind.IsAnchor() {
			return ceilEvenSecond(events[i].TimestampNs), nil
		}
	}
	return NoAnchor, ErrNoAnchor
}

// secondsToNs converts whole seconds to nanoseconds and reports whether
// the result fits in an int64.
func secondsToNs(sec int64) (int64, bool) {
	if sec > math.MaxInt64/nsPerSecond || sec < math.MinInt64/nsPerSecond {
		return 0, false
	}
	return sec * nsPerSecond, true
}

func ceilEvenSecond(ns int64) int64 {
	const span = 2 * nsPerSecond
	q := ns / span
	if ns%span > 0 {
		q++
	}
	return q * 2
}

// PacketCounts counts events of one direction per quarter-second bin over
// [anchor-Start, anchor-End). The result always has w.Bins() entries.
//
// Scanning stops at the first event past the window, which assumes time
// order. Input that is not sorted is counted over a sorted copy.
func PacketCounts(tr *trace.Trace, dir trace.Direction, w Window) ([]int, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	events := timeOrdered(tr)

	anchor, err := AnchorTime(events)
	if err != nil {
		return nil, err
	}
	startNs, ok := secondsToNs(anchor - int64(w.Start))
	if !ok {
		return nil, fmt.Errorf("%w: start %ds before anchor %ds is out of range", ErrInvalidWindow, w.Start, anchor)
	}
	// The end lies after the start, so it can only overflow upwards; an end
	// past MaxInt64 admits every remaining event.
	endNs, bounded := secondsToNs(anchor - int64(w.End))

	counts := make([]int, w.Bins())
	for _, e := range events {
		if e.TimestampNs < startNs {
			continue
		}
		if bounded && e.TimestampNs >= endNs {
			break
		}
		if !dir.Matches(e.Kind) {
			continue
		}
		// The difference is non-negative here; uint64 keeps it exact even
		// when the int64 subtraction wraps.
		bin := uint64(e.TimestampNs-startNs) / uint64(binNs)
		if bin >= uint64(len(counts)) {
			break
		}
		counts[bin]++
	}
	return counts, nil
}

// Rates converts bin counts into packets per second.
func Rates(counts []int) []float64 {
	rates := make([]float64, len(counts))
	for i, c := range counts {
		rates[i] = float64(c) / BinSeconds
	}
	return rates
}

// Extract computes the raw, unnormalized download, upload and combined
// packet-rate channels of a trace.
func Extract(tr *trace.Trace, w Window) (Channels, error) {
	up, err := PacketCounts(tr, trace.Upload, w)
	if err != nil {
		return Channels{}, err
	}
	down, err := PacketCounts(tr, trace.Download, w)
	if err != nil {
		return Channels{}, err
	}
	all := make([]int, len(up))
	for i := range up {
		all[i] = up[i] + down[i]
	}
	return Channels{
		Download: Rates(down),
		Upload:   Rates(up),
		Combined: Rates(all),
	}, nil
}

func timeOrdered(tr *trace.Trace) []trace.Event {
	if tr.IsSorted() {
		return tr.Events
	}
	sorted := tr.Clone()
	sorted.SortByTime()
	return sorted.Events
}
