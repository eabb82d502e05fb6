// Package wfshape runs the website-fingerprinting experiments end to end:
// building feature datasets and scoring the k-NN attack, perturbing a
// defended corpus and accounting for the bytes the perturbation saves.
package wfshape

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"github.com/wfshape/wfshape/core/classifier"
	"github.com/wfshape/wfshape/core/config"
	"github.com/wfshape/wfshape/core/corpus"
	"github.com/wfshape/wfshape/core/features"
	"github.com/wfshape/wfshape/core/overhead"
	"github.com/wfshape/wfshape/core/perturb"
	"github.com/wfshape/wfshape/core/sizestats"
	"github.com/wfshape/wfshape/core/trace"
	"github.com/wfshape/wfshape/pkg/logging"
	"github.com/wfshape/wfshape/pkg/rng"
)

var (
	// ErrNoInput is returned when a batch finds no files to process.
	ErrNoInput = errors.New("no input files")
	// ErrNoStatistics is returned when every file of a batch was skipped.
	ErrNoStatistics = errors.New("no valid statistics collected")
)

// Toolkit binds a configuration, a logger and one seeded generator. Runs
// with the same seed and inputs are reproducible.
type Toolkit struct {
	cfg    *config.Config
	logger logging.Logger
	seed   uint64
	rnd    *rand.Rand

	progress rate.Sometimes
}

// New validates cfg and seeds the toolkit generator.
func New(cfg *config.Config, logger logging.Logger, seed uint64) (*Toolkit, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Toolkit{
		cfg:      cfg,
		logger:   logger,
		seed:     seed,
		rnd:      rng.New(seed),
		progress: rate.Sometimes{First: 1, Interval: 2 * time.Second},
	}, nil
}

// Config returns the configuration in use.
func (t *Toolkit) Config() *config.Config {
	return t.cfg
}

// Seed returns the generator seed.
func (t *Toolkit) Seed() uint64 {
	return t.seed
}

// PerturbParams maps a configured defense onto engine parameters.
func PerturbParams(d config.Defense) perturb.Params {
	return perturb.Params{
		PaddingSizeMin: d.PaddingSizeMin,
		PaddingSizeMax: d.PaddingSizeMax,
		JitterStdNs:    d.JitterStdNs,
		KeepRatio:      d.KeepRatio,
		ExtraDummies:   d.ExtraDummies,
	}
}

// BuildDataset scans root for labelled traces, base or perturbed, and
// builds the normalized dataset over window.
func (t *Toolkit) BuildDataset(ctx context.Context, root string, modified bool, window features.Window) (*features.Dataset, error) {
	c, err := corpus.NewScanner(t.logger).Scan(root, corpus.SelectorFor(modified))
	if err != nil {
		return nil, err
	}
	b := features.NewBuilder(t.logger, window)
	b.Workers = t.cfg.Classifier.Workers
	return b.Build(ctx, c)
}

// Evaluate scores the k-NN attack on ds with the configured k and split.
func (t *Toolkit) Evaluate(ds *features.Dataset) (classifier.Result, error) {
	res, err := classifier.Evaluate(ds, t.rnd, classifier.Options{
		K:             t.cfg.Classifier.K,
		TrainFraction: t.cfg.Classifier.TrainFraction,
	})
	if err != nil {
		return res, err
	}
	t.logger.Info("k-NN evaluation finished",
		"train", res.TrainSize, "test", res.TestSize,
		"train_accuracy", res.TrainAccuracy, "test_accuracy", res.TestAccuracy)
	return res, nil
}

// OverheadReport is the outcome of a perturbation or comparison batch.
type OverheadReport struct {
	Stats   []overhead.Stats
	Summary overhead.Summary
	Skipped int
}

// PerturbBatch perturbs every base log of the defended variant, writes
// each result next to its source as a _modified.log and reports the byte
// accounting. Failing files are logged and skipped.
func (t *Toolkit) PerturbBatch(ctx context.Context) (*OverheadReport, error) {
	dir := t.cfg.Dataset.VariantDir()
	files, err := corpus.CollectFiles(dir, corpus.BaseLogSelector)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no base logs under '%s'", ErrNoInput, dir)
	}

	engine, err := perturb.NewEngine(PerturbParams(t.cfg.Defense), t.rnd)
	if err != nil {
		return nil, err
	}

	report := &OverheadReport{}
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t.reportProgress("perturbing traces", i, len(files))

		stats, err := t.perturbOne(engine, file)
		if err != nil {
			t.logger.Warn("skipping trace", "file", file, "error", err)
			report.Skipped++
			continue
		}
		t.logger.Debug("processed trace",
			"file", file, "original", stats.OriginalBytes,
			"modified", stats.ModifiedBytes, "reduction", stats.ReductionBytes)
		report.Stats = append(report.Stats, stats)
	}
	return t.finishOverhead(report, t.cfg.Reports.PerturbStats, false)
}

func (t *Toolkit) perturbOne(engine *perturb.Engine, file string) (overhead.Stats, error) {
	original, err := t.readTrace(file)
	if err != nil {
		return overhead.Stats{}, err
	}
	res, err := engine.Perturb(original)
	if err != nil {
		return overhead.Stats{}, err
	}
	if err := res.Overflow(); err != nil {
		t.logger.Warn("clamped perturbed values", "file", file, "error", err)
	}
	out := corpus.ModifiedPath(file)
	if err := trace.WriteFile(out, res.Trace); err != nil {
		return overhead.Stats{}, err
	}
	return overhead.Account(file, original, res.Trace), nil
}

// CompareOverhead pairs every base log of the defended variant with its
// perturbed sibling and reports the byte accounting with percentages.
func (t *Toolkit) CompareOverhead(ctx context.Context) (*OverheadReport, error) {
	dir := t.cfg.Dataset.VariantDir()
	originals, err := corpus.CollectFiles(dir, corpus.BaseLogSelector)
	if err != nil {
		return nil, err
	}
	modified, err := corpus.CollectFiles(dir, corpus.ModifiedLogSelector)
	if err != nil {
		return nil, err
	}
	if len(originals) == 0 || len(modified) == 0 {
		return nil, fmt.Errorf("%w: need base and modified logs under '%s'", ErrNoInput, dir)
	}

	pairs, missing := corpus.PairFiles(originals, modified)
	report := &OverheadReport{Skipped: len(missing)}
	for _, err := range missing {
		t.logger.Warn("skipping unpaired trace", "error", err)
	}

	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t.reportProgress("comparing traces", i, len(pairs))

		stats, err := t.compareOne(p)
		if err != nil {
			t.logger.Warn("skipping trace pair", "file", p.Original, "error", err)
			report.Skipped++
			continue
		}
		if !stats.PctDefined {
			t.logger.Warn("original trace carries no bytes, reduction percentage undefined", "file", p.Original)
		}
		report.Stats = append(report.Stats, stats)
	}
	return t.finishOverhead(report, t.cfg.Reports.OverheadComparison, true)
}

func (t *Toolkit) compareOne(p corpus.Pair) (overhead.Stats, error) {
	original, err := t.readTrace(p.Original)
	if err != nil {
		return overhead.Stats{}, err
	}
	modified, err := t.readTrace(p.Modified)
	if err != nil {
		return overhead.Stats{}, err
	}
	return overhead.Account(p.Original, original, modified), nil
}

func (t *Toolkit) finishOverhead(report *OverheadReport, path string, withPct bool) (*OverheadReport, error) {
	if len(report.Stats) == 0 {
		return nil, ErrNoStatistics
	}
	report.Summary = overhead.Aggregate(report.Stats)
	if err := overhead.WriteCSVFile(path, report.Stats, withPct); err != nil {
		return nil, err
	}
	t.logger.Info("overhead report written", "path", path, "files", len(report.Stats), "skipped", report.Skipped)
	return report, nil
}

// SizeReport is the outcome of a packet size batch.
type SizeReport struct {
	Stats   []sizestats.Stats
	Summary sizestats.Summary
	Skipped int
}

// PacketSizes summarizes the plain sent packet sizes of every base log in
// the configured folders of the undefended corpus.
func (t *Toolkit) PacketSizes(ctx context.Context) (*SizeReport, error) {
	root := t.cfg.Dataset.BaseRoot
	files, err := corpus.CollectFilesIn(root, t.cfg.Dataset.SizeFolders, corpus.BaseLogSelector)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no base logs in folders %v under '%s'", ErrNoInput, t.cfg.Dataset.SizeFolders, root)
	}

	report := &SizeReport{}
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t.reportProgress("measuring packet sizes", i, len(files))

		tr, err := t.readTrace(file)
		if err != nil {
			t.logger.Warn("skipping trace", "file", file, "error", err)
			report.Skipped++
			continue
		}
		stats, err := sizestats.Compute(file, tr)
		if err != nil {
			t.logger.Warn("skipping trace", "file", file, "error", err)
			report.Skipped++
			continue
		}
		report.Stats = append(report.Stats, stats)
	}
	if len(report.Stats) == 0 {
		return nil, ErrNoStatistics
	}

	report.Summary = sizestats.Aggregate(report.Stats)
	path := t.cfg.Reports.PacketSizes
	if err := sizestats.WriteCSVFile(path, report.Stats); err != nil {
		return nil, err
	}
	t.logger.Info("packet size report written", "path", path, "files", len(report.Stats), "skipped", report.Skipped)
	return report, nil
}

// readTrace loads a trace file and warns about every dropped row.
func (t *Toolkit) readTrace(path string) (*trace.Trace, error) {
	tr, dropped, err := trace.ReadFile(path)
	if err != nil {
		return nil, err
	}
	for _, d := range dropped {
		t.logger.Warn("dropped malformed row", "file", path, "line", d.Line, "reason", d.Reason)
	}
	return tr, nil
}

func (t *Toolkit) reportProgress(msg string, done, total int) {
	t.progress.Do(func() {
		t.logger.Info(msg, "done", done, "total", total)
	})
}
