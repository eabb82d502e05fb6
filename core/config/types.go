package config

// Config is the full toolkit configuration. Every field has a default, so
// a file only needs to name what it overrides.
type Config struct {
	Defense    Defense    `yaml:"defense"`
	Dataset    Dataset    `yaml:"dataset"`
	Reports    Reports    `yaml:"reports"`
	Classifier Classifier `yaml:"classifier"`
}

// Defense is one padding perturbation variant.
type Defense struct {
	PaddingSizeMin int64   `yaml:"padding_size_min"`
	PaddingSizeMax int64   `yaml:"padding_size_max"`
	JitterStdNs    float64 `yaml:"jitter_std_ns"`
	KeepRatio      float64 `yaml:"keep_ratio"`
	ExtraDummies   int     `yaml:"extra_dummies"`
}

// Dataset locates the defended and undefended corpora.
type Dataset struct {
	DefendedRoot string `yaml:"defended_root"`
	Variant      string `yaml:"variant"`
	BaseRoot     string `yaml:"base_root"`
	// SizeFolders are the label folders scanned for packet size statistics.
	SizeFolders []string `yaml:"size_folders"`
}

// Reports names the CSV outputs of the batch commands.
type Reports struct {
	PerturbStats       string `yaml:"perturb_stats"`
	OverheadComparison string `yaml:"overhead_comparison"`
	PacketSizes        string `yaml:"packet_sizes"`
}

// Classifier configures the feature build and the k-NN evaluation.
type Classifier struct {
	Features      string  `yaml:"features"`
	WindowStart   int     `yaml:"window_start"`
	WindowEnd     int     `yaml:"window_end"`
	K             int     `yaml:"k"`
	TrainFraction float64 `yaml:"train_fraction"`
	Workers       int     `yaml:"workers"`
}
