// Package perturb synthesizes the refined padding defense: it thins out
// padding packets, resizes the survivors, jitters every timestamp and adds
// dummy packets.
package perturb

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/wfshape/wfshape/core/trace"
	"github.com/wfshape/wfshape/pkg/rng"
)

var (
	// ErrEmptyTrace is returned for a trace with no events.
	ErrEmptyTrace = errors.New("empty trace")
	// ErrTimestampOverflow marks values that were clamped to stay within
	// the int64 range.
	ErrTimestampOverflow = errors.New("timestamp overflow")
)

// Params describes one defense variant.
type Params struct {
	PaddingSizeMin int64
	PaddingSizeMax int64
	// JitterStdNs is the standard deviation of the additive Gaussian
	// timestamp noise, in nanoseconds.
	JitterStdNs float64
	// KeepRatio is the share of padding packets retained.
	KeepRatio    float64
	ExtraDummies int
}

// DefaultParams is the shipped variant: 50-70 byte padding, 5 ms jitter,
// 30% of padding kept and 15 dummies.
func DefaultParams() Params {
	return Params{
		PaddingSizeMin: 50,
		PaddingSizeMax: 70,
		JitterStdNs:    5_000_000,
		KeepRatio:      0.3,
		ExtraDummies:   15,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if p.PaddingSizeMin < 0 || p.PaddingSizeMax < p.PaddingSizeMin {
		return fmt.Errorf("invalid padding size range [%d, %d]", p.PaddingSizeMin, p.PaddingSizeMax)
	}
	if p.JitterStdNs < 0 || math.IsNaN(p.JitterStdNs) || math.IsInf(p.JitterStdNs, 0) {
		return fmt.Errorf("invalid jitter standard deviation %v", p.JitterStdNs)
	}
	if p.KeepRatio < 0 || p.KeepRatio > 1 || math.IsNaN(p.KeepRatio) {
		return fmt.Errorf("keep ratio must be in [0, 1], got %v", p.KeepRatio)
	}
	if p.ExtraDummies < 0 {
		return fmt.Errorf("extra dummy count must not be negative, got %d", p.ExtraDummies)
	}
	return nil
}

// Result is a perturbed trace and the number of values that had to be
// clamped to avoid int64 overflow.
type Result struct {
	Trace   *trace.Trace
	Clamped int
}

// Overflow returns ErrTimestampOverflow when any value was clamped.
func (r *Result) Overflow() error {
	if r.Clamped == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d values clamped", ErrTimestampOverflow, r.Clamped)
}

// Engine applies one defense variant with an injected generator. An Engine
// is not safe for concurrent use because the generator is not.
type Engine struct {
	params Params
	rnd    *rand.Rand
}

// NewEngine validates params and binds the generator.
func NewEngine(params Params, rnd *rand.Rand) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rnd == nil {
		return nil, fmt.Errorf("random generator must not be nil")
	}
	return &Engine{params: params, rnd: rnd}, nil
}

// Params returns the variant the engine applies.
func (e *Engine) Params() Params {
	return e.params
}

// Perturb returns a new trace; the input is not modified. The output is
// sorted by timestamp and its cumulative counters are recomputed.
func (e *Engine) Perturb(in *trace.Trace) (*Result, error) {
	if in.Len() == 0 {
		return nil, ErrEmptyTrace
	}
	res := &Result{}
	startTime := in.Events[0].AbsoluteTimestamp

	kept, err := e.thinPadding(in.Events)
	if err != nil {
		return nil, err
	}

	var maxTs int64
	for i := range kept {
		if kept[i].Kind.IsPadding() {
			if kept[i].Size, err = e.paddingSize(); err != nil {
				return nil, err
			}
		}
		kept[i].TimestampNs = e.jitter(kept[i].TimestampNs, res)
		kept[i].AbsoluteTimestamp = absolute(startTime, kept[i].TimestampNs, res)
		if i == 0 || kept[i].TimestampNs > maxTs {
			maxTs = kept[i].TimestampNs
		}
	}

	dummies, err := e.dummies(startTime, maxTs, res)
	if err != nil {
		return nil, err
	}

	out := trace.New(append(kept, dummies...))
	out.SortByTime()
	out.Recount()
	res.Trace = out
	return res, nil
}

// thinPadding keeps all non-padding events and a uniform random subset of
// floor(n*KeepRatio) padding events, preserving source order.
func (e *Engine) thinPadding(events []trace.Event) ([]trace.Event, error) {
	var padding []int
	for i, ev := range events {
		if ev.Kind.IsPadding() {
			padding = append(padding, i)
		}
	}
	keep := int(math.Floor(float64(len(padding)) * e.params.KeepRatio))
	picked, err := rng.Sample(e.rnd, len(padding), keep)
	if err != nil {
		return nil, err
	}

	retained := make(map[int]bool, keep)
	for _, p := range picked {
		retained[padding[p]] = true
	}
	out := make([]trace.Event, 0, len(events)-len(padding)+keep+e.params.ExtraDummies)
	for i, ev := range events {
		if !ev.Kind.IsPadding() || retained[i] {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (e *Engine) paddingSize() (int64, error) {
	return rng.Int(e.rnd, e.params.PaddingSizeMin, e.params.PaddingSizeMax)
}

// jitter adds truncated Gaussian noise and clamps the result to
// [0, MaxInt64].
func (e *Engine) jitter(ts int64, res *Result) int64 {
	noise := int64(rng.Normal(e.rnd, 0, e.params.JitterStdNs))
	if noise > 0 && ts > math.MaxInt64-noise {
		res.Clamped++
		return math.MaxInt64
	}
	if noise < 0 && ts < math.MinInt64-noise {
		res.Clamped++
		return 0
	}
	ts += noise
	if ts < 0 {
		return 0
	}
	return ts
}

func (e *Engine) dummies(startTime, maxTs int64, res *Result) ([]trace.Event, error) {
	out := make([]trace.Event, 0, e.params.ExtraDummies)
	for i := 0; i < e.params.ExtraDummies; i++ {
		ts, err := rng.Int(e.rnd, 0, maxTs)
		if err != nil {
			return nil, err
		}
		kind := trace.KindSentPadding
		if e.rnd.IntN(2) == 1 {
			kind = trace.KindReceivedPadding
		}
		size, err := e.paddingSize()
		if err != nil {
			return nil, err
		}
		out = append(out, trace.Event{
			TimestampNs:       ts,
			Kind:              kind,
			Size:              size,
			AbsoluteTimestamp: absolute(startTime, ts, res),
		})
	}
	return out, nil
}

// absolute maps a relative nanosecond timestamp onto the wall clock of the
// original first event, in milliseconds.
func absolute(startTime, ts int64, res *Result) int64 {
	ms := ts / 1_000_000
	if (ms > 0 && startTime > math.MaxInt64-ms) || (ms < 0 && startTime < math.MinInt64-ms) {
		res.Clamped++
		if ms > 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return startTime + ms
}
