package features

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrDegenerateCorpus means the corpus cannot produce a usable dataset.
var ErrDegenerateCorpus = errors.New("degenerate corpus")

// Channels holds the three packet-rate sequences of one trace.
type Channels struct {
	Download []float64
	Upload   []float64
	Combined []float64
}

// Flatten concatenates download, upload and combined into one row.
func (c Channels) Flatten() []float64 {
	row := make([]float64, 0, len(c.Download)+len(c.Upload)+len(c.Combined))
	row = append(row, c.Download...)
	row = append(row, c.Upload...)
	return append(row, c.Combined...)
}

// Maxima holds the per-channel normalization divisors.
type Maxima struct {
	Download float64 `yaml:"download"`
	Upload   float64 `yaml:"upload"`
	Combined float64 `yaml:"combined"`
}

// Maxima returns the largest value of each channel.
func (c Channels) Maxima() Maxima {
	return Maxima{
		Download: maxOf(c.Download),
		Upload:   maxOf(c.Upload),
		Combined: maxOf(c.Combined),
	}
}

// Merge combines two partial maxima.
func (m Maxima) Merge(o Maxima) Maxima {
	return Maxima{
		Download: math.Max(m.Download, o.Download),
		Upload:   math.Max(m.Upload, o.Upload),
		Combined: math.Max(m.Combined, o.Combined),
	}
}

// FoldMaxima reduces the maxima of every trace in a corpus. It is the only
// cross-trace step and must see all traces before any is normalized.
func FoldMaxima(all []Channels) Maxima {
	var m Maxima
	for _, c := range all {
		m = m.Merge(c.Maxima())
	}
	return m
}

// Validate rejects divisors that would zero-divide a channel.
func (m Maxima) Validate() error {
	for _, ch := range []struct {
		name string
		v    float64
	}{{"download", m.Download}, {"upload", m.Upload}, {"combined", m.Combined}} {
		if !(ch.v > 0) || math.IsInf(ch.v, 0) {
			return fmt.Errorf("%w: %s channel maximum is %v", ErrDegenerateCorpus, ch.name, ch.v)
		}
	}
	return nil
}

// Normalize divides every bin by the corpus-wide maximum of its channel and
// returns new slices.
func Normalize(c Channels, m Maxima) (Channels, error) {
	if err := m.Validate(); err != nil {
		return Channels{}, err
	}
	return Channels{
		Download: scaled(c.Download, m.Download),
		Upload:   scaled(c.Upload, m.Upload),
		Combined: scaled(c.Combined, m.Combined),
	}, nil
}

func scaled(v []float64, divisor float64) []float64 {
	out := append([]float64(nil), v...)
	floats.Scale(1/divisor, out)
	return out
}

func maxOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Max(v)
}
