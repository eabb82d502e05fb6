package features

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/wfshape/wfshape/core/corpus"
	"github.com/wfshape/wfshape/core/trace"
	"github.com/wfshape/wfshape/pkg/logging"
	"golang.org/x/time/rate"
)

// Builder extracts, normalizes and labels feature vectors for a corpus.
type Builder struct {
	Window Window
	// Workers bounds phase-one extraction concurrency. Values below 2 run
	// sequentially.
	Workers int

	logger   logging.Logger
	progress rate.Sometimes
}

// NewBuilder returns a sequential builder for window.
func NewBuilder(logger logging.Logger, window Window) *Builder {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Builder{
		Window:   window,
		Workers:  1,
		logger:   logger,
		progress: rate.Sometimes{First: 1, Interval: time.Second},
	}
}

// extraction is the phase-one result for one trace file.
type extraction struct {
	file     corpus.TraceFile
	channels Channels
	ok       bool
}

// Build runs the two-phase pipeline: raw extraction of every trace, a fold
// of the per-channel maxima, then normalization. Traces that cannot be
// extracted are skipped with a warning. It fails with ErrDegenerateCorpus
// when nothing usable remains or a channel maximum is zero.
func (b *Builder) Build(ctx context.Context, c *corpus.Corpus) (*Dataset, error) {
	if err := b.Window.Validate(); err != nil {
		return nil, err
	}
	if c.Labels.Len() == 0 {
		return nil, fmt.Errorf("%w: no label folders under '%s'", ErrDegenerateCorpus, c.Root)
	}

	results, err := b.extractAll(ctx, c.Traces)
	if err != nil {
		return nil, err
	}

	var (
		usable []extraction
		raw    []Channels
	)
	for _, r := range results {
		if r.ok {
			usable = append(usable, r)
			raw = append(raw, r.channels)
		}
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: no traces yielded usable features", ErrDegenerateCorpus)
	}

	maxima := FoldMaxima(raw)
	b.logger.Debug("corpus maxima", "download", maxima.Download, "upload", maxima.Upload, "combined", maxima.Combined)

	ds := &Dataset{
		Version: DatasetVersion,
		Window:  b.Window,
		Labels:  c.Labels.Names(),
		Maxima:  maxima,
		Samples: make([]Sample, 0, len(usable)),
	}
	for _, r := range usable {
		norm, err := Normalize(r.channels, maxima)
		if err != nil {
			return nil, err
		}
		ds.Samples = append(ds.Samples, Sample{
			Source:   relativeTo(c.Root, r.file.Path),
			Label:    r.file.Label,
			OneHot:   OneHot(r.file.Label, c.Labels.Len()),
			Download: norm.Download,
			Upload:   norm.Upload,
			Combined: norm.Combined,
		})
	}

	b.logger.Info("extracted feature-label pairs", "pairs", len(ds.Samples), "skipped", len(results)-len(usable))
	b.logger.Info("unique feature vectors", "unique", ds.UniqueVectors(), "total", len(ds.Samples))
	return ds, nil
}

// extractAll is phase one. Results keep the input order; the method
// returns only after every file has been processed.
func (b *Builder) extractAll(ctx context.Context, files []corpus.TraceFile) ([]extraction, error) {
	results := make([]extraction, len(files))

	if b.Workers < 2 {
		for i, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = b.extractOne(f, i, len(files))
		}
		return results, nil
	}

	jobs := make(chan int)
	wg := new(sync.WaitGroup)
	for w := 0; w < b.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = b.extractOne(files[i], i, len(files))
			}
		}()
	}

	var cancelled error
	for i := range files {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}
	return results, nil
}

func (b *Builder) extractOne(f corpus.TraceFile, i, total int) extraction {
	b.progress.Do(func() {
		b.logger.Info("extracting features", "done", i, "total", total)
	})

	tr, dropped, err := trace.ReadFile(f.Path)
	if err != nil {
		b.logger.Warn("skipping trace", "file", f.Path, "error", err)
		return extraction{file: f}
	}
	for _, d := range dropped {
		b.logger.Warn("dropped malformed row", "file", f.Path, "line", d.Line, "reason", d.Reason)
	}

	channels, err := Extract(tr, b.Window)
	if err != nil {
		b.logger.Warn("skipping trace", "file", f.Path, "error", err)
		return extraction{file: f}
	}
	return extraction{file: f, channels: channels, ok: true}
}

func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
