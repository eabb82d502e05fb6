// Package corpus discovers labelled trace files on disk and pairs base logs
// with their perturbed siblings.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/wfshape/wfshape/pkg/logging"
)

// ErrMissingPair marks a base log without a perturbed sibling or the reverse.
var ErrMissingPair = errors.New("missing pair")

// TraceFile is one trace belonging to a class.
type TraceFile struct {
	Label int
	Path  string
}

// Corpus is the labelled set of trace files under one root.
type Corpus struct {
	Root   string
	Labels *Registry
	Traces []TraceFile
}

// Scanner walks a corpus root laid out as <root>/<label>/<trace files>.
type Scanner struct {
	Logger logging.Logger
}

// NewScanner returns a scanner that reports skipped folders to logger.
func NewScanner(logger logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Scanner{Logger: logger}
}

// Scan builds the label registry from the subfolders of root and collects
// every file accepted by sel, in class order and then file name order.
func (s *Scanner) Scan(root string, sel Selector) (*Corpus, error) {
	folders, err := subfolders(root)
	if err != nil {
		return nil, err
	}

	registry, rejected := NewRegistry(folders)
	for _, le := range rejected {
		s.Logger.Warn("skipping label folder", "folder", le.Name, "error", le.Err)
	}
	s.Logger.Info("discovered label folders", "root", root, "classes", registry.Len())

	c := &Corpus{Root: root, Labels: registry}
	for class, name := range registry.Names() {
		dir := filepath.Join(root, name)
		files, err := selectFiles(dir, sel)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			s.Logger.Warn("no valid traces in label folder", "folder", dir)
			continue
		}
		s.Logger.Debug("found traces", "folder", dir, "count", len(files))
		for _, f := range files {
			c.Traces = append(c.Traces, TraceFile{Label: class, Path: f})
		}
	}
	return c, nil
}

// CollectFiles returns every file accepted by sel in the immediate
// subfolders of root, without interpreting folder names as labels.
func CollectFiles(root string, sel Selector) ([]string, error) {
	folders, err := subfolders(root)
	if err != nil {
		return nil, err
	}
	sort.Strings(folders)
	return CollectFilesIn(root, folders, sel)
}

// CollectFilesIn is CollectFiles restricted to the named subfolders.
// Missing subfolders are skipped.
func CollectFilesIn(root string, folders []string, sel Selector) ([]string, error) {
	var all []string
	for _, name := range folders {
		dir := filepath.Join(root, name)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		files, err := selectFiles(dir, sel)
		if err != nil {
			return nil, err
		}
		all = append(all, files...)
	}
	return all, nil
}

// Pair is a base log and its perturbed sibling.
type Pair struct {
	Original string
	Modified string
}

// PairFiles matches base logs with perturbed siblings. Files on either side
// without a partner are returned as ErrMissingPair errors.
func PairFiles(originals, modified []string) ([]Pair, []error) {
	have := make(map[string]bool, len(modified))
	for _, m := range modified {
		have[m] = true
	}

	var (
		pairs   []Pair
		missing []error
		matched = make(map[string]bool, len(originals))
	)
	for _, o := range originals {
		m := ModifiedPath(o)
		if !have[m] {
			missing = append(missing, fmt.Errorf("%w: no modified file for '%s'", ErrMissingPair, o))
			continue
		}
		matched[m] = true
		pairs = append(pairs, Pair{Original: o, Modified: m})
	}
	for _, m := range modified {
		if !matched[m] {
			missing = append(missing, fmt.Errorf("%w: no original file for '%s'", ErrMissingPair, m))
		}
	}
	return pairs, missing
}

func subfolders(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus root '%s': %w", root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func selectFiles(dir string, sel Selector) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder '%s': %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !sel(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}
