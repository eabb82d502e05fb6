package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/wfshape/wfshape"
	"github.com/wfshape/wfshape/core/config"
	"github.com/wfshape/wfshape/core/features"
	"github.com/wfshape/wfshape/pkg/logging"
	"github.com/wfshape/wfshape/pkg/rng"
)

const usage = "expected 'knn', 'perturb', 'overhead' or 'sizes' subcommands"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

// run dispatches a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout io.Writer) int {
	// Global logging flags may precede the subcommand.
	var logLevel, logFormat string
	fs := flag.NewFlagSet("wfshape", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addLoggingFlags(fs, &logLevel, &logFormat, "info", "console")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	args = fs.Args()
	logging.InitLogger(logLevel, logFormat, nil)

	if len(args) < 1 {
		logging.GetLogger().Error(usage)
		return 1
	}

	var err error
	switch args[0] {
	case "knn":
		err = runKNN(ctx, args[1:], stdout, logLevel, logFormat)
	case "perturb":
		err = runBatch(ctx, "perturb", args[1:], stdout, logLevel, logFormat)
	case "overhead":
		err = runBatch(ctx, "overhead", args[1:], stdout, logLevel, logFormat)
	case "sizes":
		err = runBatch(ctx, "sizes", args[1:], stdout, logLevel, logFormat)
	default:
		logging.GetLogger().Error(usage, "command", args[0])
		return 1
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		logging.GetLogger().Error("command failed", "command", args[0], "error", err)
		return 1
	}
	return 0
}

func addLoggingFlags(fs *flag.FlagSet, level, format *string, defaultLevel, defaultFormat string) {
	fs.StringVar(level, "log-level", defaultLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(format, "log-format", defaultFormat, "Log format (console, json)")
}

// common holds the flags every subcommand accepts.
type common struct {
	configFile string
	seed       uint64
	logLevel   string
	logFormat  string
}

func (c *common) register(fs *flag.FlagSet, logLevel, logFormat string) {
	fs.StringVar(&c.configFile, "config", "", "Path to a YAML configuration file. Defaults apply when empty.")
	fs.Uint64Var(&c.seed, "seed", 0, "Random seed. A random seed is drawn and logged when 0.")
	// Subcommand logging flags default to the global ones.
	addLoggingFlags(fs, &c.logLevel, &c.logFormat, logLevel, logFormat)
}

// toolkit applies subcommand logging flags, loads the configuration and
// seeds the toolkit.
func (c *common) toolkit() (*wfshape.Toolkit, error) {
	logging.InitLogger(c.logLevel, c.logFormat, nil)
	logger := logging.GetLogger()

	cfg := config.Default()
	if c.configFile != "" {
		var err error
		if cfg, err = config.LoadConfig(c.configFile); err != nil {
			return nil, err
		}
	}

	seed := c.seed
	if seed == 0 {
		var err error
		if seed, err = rng.Seed(); err != nil {
			return nil, fmt.Errorf("failed to draw seed: %w", err)
		}
	}
	logger.Info("using random seed", "seed", seed)
	return wfshape.New(cfg, logger, seed)
}

func runKNN(ctx context.Context, args []string, stdout io.Writer, logLevel, logFormat string) error {
	fs := flag.NewFlagSet("knn", flag.ContinueOnError)
	var (
		c                 common
		start, end        int
		extract, modified bool
		featuresPath      string
		workers           int
	)
	c.register(fs, logLevel, logFormat)
	fs.IntVar(&start, "s", -1, "Eavesdropping start time, in seconds from the end of the trace (default from config, 60)")
	fs.IntVar(&start, "start", -1, "Alias of -s")
	fs.IntVar(&end, "e", -1, "Eavesdropping end time, in seconds from the end of the trace (default from config, 0)")
	fs.IntVar(&end, "end", -1, "Alias of -e")
	fs.BoolVar(&extract, "extract", false, "Extract features from PATH before evaluating. Required on the first run.")
	fs.BoolVar(&modified, "modified", false, "Read _modified.log files instead of base .log files")
	fs.StringVar(&featuresPath, "features", "", "Feature dataset path (default from config, features.yaml)")
	fs.IntVar(&workers, "workers", 0, "Extraction workers (default from config, 1)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: wfshape knn [flags] PATH")
		fs.PrintDefaults()
	}

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		fs.Usage()
		return fmt.Errorf("knn expects exactly one PATH argument, got %d", len(positional))
	}
	path := positional[0]

	tk, err := c.toolkit()
	if err != nil {
		return err
	}
	cfg := tk.Config()
	if featuresPath == "" {
		featuresPath = cfg.Classifier.Features
	}
	if workers > 0 {
		cfg.Classifier.Workers = workers
	}
	window := features.Window{Start: cfg.Classifier.WindowStart, End: cfg.Classifier.WindowEnd}
	if start >= 0 {
		window.Start = start
	}
	if end >= 0 {
		window.End = end
	}

	if extract {
		ds, err := tk.BuildDataset(ctx, path, modified, window)
		if err != nil {
			return err
		}
		if err := features.SaveFile(featuresPath, ds); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Extracted %d feature-label pairs from %d classes into %s\n", len(ds.Samples), len(ds.Labels), featuresPath)
	}

	ds, err := features.LoadFile(featuresPath)
	if err != nil {
		return err
	}
	res, err := tk.Evaluate(ds)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Training set size: %d, Test set size: %d\n", res.TrainSize, res.TestSize)
	fmt.Fprintf(stdout, "Train accuracy: %.4f\n", res.TrainAccuracy)
	fmt.Fprintf(stdout, "Test accuracy: %.4f\n", res.TestAccuracy)
	return nil
}

func runBatch(ctx context.Context, name string, args []string, stdout io.Writer, logLevel, logFormat string) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var c common
	c.register(fs, logLevel, logFormat)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%s takes no positional arguments, got %v", name, fs.Args())
	}

	tk, err := c.toolkit()
	if err != nil {
		return err
	}
	switch name {
	case "perturb":
		report, err := tk.PerturbBatch(ctx)
		if err != nil {
			return err
		}
		printOverhead(stdout, report, false)
	case "overhead":
		report, err := tk.CompareOverhead(ctx)
		if err != nil {
			return err
		}
		printOverhead(stdout, report, true)
	case "sizes":
		report, err := tk.PacketSizes(ctx)
		if err != nil {
			return err
		}
		printSizes(stdout, report)
	}
	return nil
}

func printOverhead(out io.Writer, report *wfshape.OverheadReport, withPct bool) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	if withPct {
		fmt.Fprintln(w, "FILE\tORIGINAL\tMODIFIED\tREDUCTION\tREDUCTION %")
		fmt.Fprintln(w, "----\t--------\t--------\t---------\t-----------")
	} else {
		fmt.Fprintln(w, "FILE\tORIGINAL\tMODIFIED\tREDUCTION")
		fmt.Fprintln(w, "----\t--------\t--------\t---------")
	}
	for _, s := range report.Stats {
		if withPct {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", s.File, s.OriginalBytes, s.ModifiedBytes, s.ReductionBytes, formatPct(s.ReductionPct, s.PctDefined))
		} else {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", s.File, s.OriginalBytes, s.ModifiedBytes, s.ReductionBytes)
		}
	}
	w.Flush()

	sum := report.Summary
	fmt.Fprintf(out, "\nAggregated overhead across %d files (%d skipped):\n", sum.Files, report.Skipped)
	fmt.Fprintf(out, "Total original overhead: %d bytes\n", sum.OriginalBytes)
	fmt.Fprintf(out, "Total modified overhead: %d bytes\n", sum.ModifiedBytes)
	if withPct {
		fmt.Fprintf(out, "Total overhead reduction: %d bytes (%s)\n", sum.ReductionBytes, formatPct(sum.ReductionPct, sum.PctDefined))
	} else {
		fmt.Fprintf(out, "Total overhead reduction: %d bytes\n", sum.ReductionBytes)
	}
}

func printSizes(out io.Writer, report *wfshape.SizeReport) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	fmt.Fprintln(w, "FILE\tMEAN\tSTD\tMIN\tMAX\tCOUNT")
	fmt.Fprintln(w, "----\t----\t---\t---\t---\t-----")
	for _, s := range report.Stats {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.0f\t%.0f\t%d\n", s.File, s.Mean, s.StdDev, s.Min, s.Max, s.Count)
	}
	w.Flush()

	sum := report.Summary
	fmt.Fprintf(out, "\nAggregated packet size statistics for sent packets across %d files (%d skipped):\n", sum.Files, report.Skipped)
	fmt.Fprintf(out, "Mean packet size: %.2f bytes\n", sum.MeanSize)
	fmt.Fprintf(out, "Mean standard deviation: %.2f bytes\n", sum.MeanStdDev)
	fmt.Fprintf(out, "Minimum packet size: %.2f bytes\n", sum.Min)
	fmt.Fprintf(out, "Maximum packet size: %.2f bytes\n", sum.Max)
	fmt.Fprintf(out, "Total number of sent packets: %d\n", sum.Count)
}

func formatPct(pct float64, defined bool) string {
	if !defined {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", pct)
}
