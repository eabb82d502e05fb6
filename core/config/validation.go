package config

import (
	"fmt"
	"math"
)

func (c *Config) Validate() error {
	if err := c.Defense.Validate(); err != nil {
		return fmt.Errorf("defense: %w", err)
	}
	if err := c.Dataset.Validate(); err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	if err := c.Reports.Validate(); err != nil {
		return fmt.Errorf("reports: %w", err)
	}
	if err := c.Classifier.Validate(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	return nil
}

func (d Defense) Validate() error {
	if d.PaddingSizeMin < 0 {
		return fmt.Errorf("padding_size_min must not be negative, got %d", d.PaddingSizeMin)
	}
	if d.PaddingSizeMax < d.PaddingSizeMin {
		return fmt.Errorf("padding_size_max %d is below padding_size_min %d", d.PaddingSizeMax, d.PaddingSizeMin)
	}
	if d.JitterStdNs < 0 || math.IsNaN(d.JitterStdNs) || math.IsInf(d.JitterStdNs, 0) {
		return fmt.Errorf("jitter_std_ns must be a non-negative number, got %v", d.JitterStdNs)
	}
	if d.KeepRatio < 0 || d.KeepRatio > 1 || math.IsNaN(d.KeepRatio) {
		return fmt.Errorf("keep_ratio must be in [0, 1], got %v", d.KeepRatio)
	}
	if d.ExtraDummies < 0 {
		return fmt.Errorf("extra_dummies must not be negative, got %d", d.ExtraDummies)
	}
	return nil
}

func (d Dataset) Validate() error {
	switch {
	case d.DefendedRoot == "":
		return fmt.Errorf("defended_root must be specified")
	case d.Variant == "":
		return fmt.Errorf("variant must be specified")
	case d.BaseRoot == "":
		return fmt.Errorf("base_root must be specified")
	case len(d.SizeFolders) == 0:
		return fmt.Errorf("size_folders must not be empty")
	}
	return nil
}

func (r Reports) Validate() error {
	if r.PerturbStats == "" || r.OverheadComparison == "" || r.PacketSizes == "" {
		return fmt.Errorf("every report path must be specified")
	}
	return nil
}

func (c Classifier) Validate() error {
	if c.Features == "" {
		return fmt.Errorf("features must be specified")
	}
	if c.WindowEnd < 0 || c.WindowStart <= c.WindowEnd {
		return fmt.Errorf("window must satisfy window_start > window_end >= 0, got %d..%d", c.WindowStart, c.WindowEnd)
	}
	if c.K < 1 {
		return fmt.Errorf("k must be positive, got %d", c.K)
	}
	if c.TrainFraction <= 0 || c.TrainFraction > 1 || math.IsNaN(c.TrainFraction) {
		return fmt.Errorf("train_fraction must be in (0, 1], got %v", c.TrainFraction)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}
