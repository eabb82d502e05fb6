package features

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// DatasetVersion is the schema version written by Encode.
const DatasetVersion = 1

// Sample is one normalized feature vector with its class.
type Sample struct {
	Source   string    `yaml:"source,omitempty"`
	Label    int       `yaml:"label"`
	OneHot   []float64 `yaml:"one_hot,flow"`
	Download []float64 `yaml:"download,flow"`
	Upload   []float64 `yaml:"upload,flow"`
	Combined []float64 `yaml:"combined,flow"`
}

// Channels returns the three feature channels of the sample.
func (s Sample) Channels() Channels {
	return Channels{Download: s.Download, Upload: s.Upload, Combined: s.Combined}
}

// Class returns the arg-max of the one-hot label.
func (s Sample) Class() int {
	best := 0
	for i, v := range s.OneHot {
		if v > s.OneHot[best] {
			best = i
		}
	}
	return best
}

// OneHot returns a vector of length classes with 1.0 at index.
func OneHot(index, classes int) []float64 {
	v := make([]float64, classes)
	if index >= 0 && index < classes {
		v[index] = 1.0
	}
	return v
}

// Dataset is the persisted output of a corpus feature build.
type Dataset struct {
	Version int      `yaml:"version"`
	Window  Window   `yaml:"window"`
	Labels  []string `yaml:"labels"`
	Maxima  Maxima   `yaml:"maxima"`
	Samples []Sample `yaml:"samples"`
}

// Validate checks the schema invariants: every channel has Window.Bins()
// entries and every label is a valid one-hot class index.
func (d *Dataset) Validate() error {
	if d.Version != DatasetVersion {
		return fmt.Errorf("unsupported dataset version %d", d.Version)
	}
	if err := d.Window.Validate(); err != nil {
		return err
	}
	if len(d.Labels) == 0 {
		return fmt.Errorf("dataset has no labels")
	}
	bins := d.Window.Bins()
	for i, s := range d.Samples {
		if s.Label < 0 || s.Label >= len(d.Labels) {
			return fmt.Errorf("sample %d: label %d out of range for %d classes", i, s.Label, len(d.Labels))
		}
		if len(s.OneHot) != len(d.Labels) {
			return fmt.Errorf("sample %d: one-hot length %d, want %d", i, len(s.OneHot), len(d.Labels))
		}
		if s.Class() != s.Label {
			return fmt.Errorf("sample %d: one-hot class %d does not match label %d", i, s.Class(), s.Label)
		}
		for name, ch := range map[string][]float64{"download": s.Download, "upload": s.Upload, "combined": s.Combined} {
			if len(ch) != bins {
				return fmt.Errorf("sample %d: %s channel has %d bins, want %d", i, name, len(ch), bins)
			}
		}
	}
	return nil
}

// UniqueVectors counts distinct flattened feature vectors. Duplicates are
// kept in the dataset; the count is only a diagnostic.
func (d *Dataset) UniqueVectors() int {
	seen := make(map[string]struct{}, len(d.Samples))
	for _, s := range d.Samples {
		row := s.Channels().Flatten()
		key := make([]byte, 8*len(row))
		for i, v := range row {
			binary.LittleEndian.PutUint64(key[8*i:], math.Float64bits(v))
		}
		seen[string(key)] = struct{}{}
	}
	return len(seen)
}

// Encode writes the dataset as YAML.
func Encode(w io.Writer, d *Dataset) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	return enc.Close()
}

// Decode reads and validates a dataset.
func Decode(r io.Reader) (*Dataset, error) {
	var d Dataset
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}
	return &d, nil
}

// SaveFile writes the dataset to path.
func SaveFile(path string, d *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset file '%s': %w", path, err)
	}
	if err := Encode(f, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads a dataset written by SaveFile.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file '%s': %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}
