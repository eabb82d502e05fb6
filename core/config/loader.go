package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default returns the shipped configuration.
func Default() *Config {
	folders := make([]string, 16)
	for i := range folders {
		folders[i] = strconv.Itoa(i)
	}
	return &Config{
		Defense: Defense{
			PaddingSizeMin: 50,
			PaddingSizeMax: 70,
			JitterStdNs:    5_000_000,
			KeepRatio:      0.3,
			ExtraDummies:   15,
		},
		Dataset: Dataset{
			DefendedRoot: "./LongEnough-defended",
			Variant:      "constant_4000-scramblerz120z1100z400z1000",
			BaseRoot:     "./LongEnough",
			SizeFolders:  folders,
		},
		Reports: Reports{
			PerturbStats:       "overhead_stats.csv",
			OverheadComparison: "overhead_comparison.csv",
			PacketSizes:        "packet_size_stats.csv",
		},
		Classifier: Classifier{
			Features:      "features.yaml",
			WindowStart:   60,
			WindowEnd:     0,
			K:             5,
			TrainFraction: 0.7,
			Workers:       1,
		},
	}
}

// LoadConfig reads a YAML file over the defaults and validates the result.
func LoadConfig(filePath string) (*Config, error) {
	buf, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filePath, err)
	}
	return Parse(buf)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(buf []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// VariantDir is the folder holding the label folders of the defended
// corpus.
func (d Dataset) VariantDir() string {
	return filepath.Join(d.DefendedRoot, d.Variant)
}
