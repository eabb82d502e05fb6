package features

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfshape/wfshape/core/corpus"
	"github.com/wfshape/wfshape/core/trace"
	"github.com/wfshape/wfshape/mocks"
	"github.com/wfshape/wfshape/testutils"
	"go.uber.org/mock/gomock"
)

func scan(t *testing.T, root string, sel corpus.Selector) *corpus.Corpus {
	t.Helper()
	c, err := corpus.NewScanner(testutils.NewTestLogger()).Scan(root, sel)
	require.NoError(t, err)
	return c
}

func TestBuild(t *testing.T) {
	noAnchor := []trace.Event{{TimestampNs: sec, Kind: trace.Kind("qoe"), Size: 1}}
	root := testutils.NewCorpus(t, map[string]map[string][]trace.Event{
		"0": {
			"a.log": testutils.PeriodicTrace(4, 1, 4),
			"b.log": testutils.PeriodicTrace(4, 1, 4),
		},
		"1": {
			"c.log":          testutils.PeriodicTrace(4, 2, 1),
			"broken.log":     noAnchor,
			"c.qoe.log":      testutils.PeriodicTrace(4, 9, 9),
			"c_modified.log": testutils.PeriodicTrace(4, 9, 9),
		},
	})

	b := NewBuilder(testutils.NewTestLogger(), Window{Start: 4, End: 0})
	ds, err := b.Build(context.Background(), scan(t, root, corpus.AttackBaseSelector))
	require.NoError(t, err)

	require.NoError(t, ds.Validate())
	assert.Equal(t, []string{"0", "1"}, ds.Labels)
	assert.Equal(t, Maxima{Download: 16, Upload: 8, Combined: 20}, ds.Maxima)

	require.Len(t, ds.Samples, 3)
	assert.Equal(t, []string{"0/a.log", "0/b.log", "1/c.log"}, []string{ds.Samples[0].Source, ds.Samples[1].Source, ds.Samples[2].Source})
	assert.Equal(t, []float64{1, 0}, ds.Samples[0].OneHot)
	assert.Equal(t, []float64{0, 1}, ds.Samples[2].OneHot)

	for _, v := range ds.Samples[0].Download {
		assert.Equal(t, 1.0, v)
	}
	for _, v := range ds.Samples[0].Upload {
		assert.Equal(t, 0.5, v)
	}
	for _, v := range ds.Samples[2].Download {
		assert.Equal(t, 0.25, v)
	}
	for _, v := range ds.Samples[2].Combined {
		assert.InDelta(t, 0.6, v, 1e-12)
	}
	assert.Equal(t, 2, ds.UniqueVectors())
}

func TestBuildParallelMatchesSequential(t *testing.T) {
	layout := map[string]map[string][]trace.Event{}
	for label, rate := range map[string]int{"0": 1, "1": 2, "2": 3} {
		files := map[string][]trace.Event{}
		for _, name := range []string{"a.log", "b.log", "c.log", "d.log"} {
			files[name] = testutils.PeriodicTrace(6, rate, 4-rate)
		}
		layout[label] = files
	}
	root := testutils.NewCorpus(t, layout)
	c := scan(t, root, corpus.AttackBaseSelector)

	seq := NewBuilder(testutils.NewTestLogger(), Window{Start: 6, End: 0})
	want, err := seq.Build(context.Background(), c)
	require.NoError(t, err)

	par := NewBuilder(testutils.NewTestLogger(), Window{Start: 6, End: 0})
	par.Workers = 4
	got, err := par.Build(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestBuildModifiedSelector(t *testing.T) {
	root := testutils.NewCorpus(t, map[string]map[string][]trace.Event{
		"0": {"a.log": testutils.PeriodicTrace(2, 1, 1), "a_modified.log": testutils.PeriodicTrace(2, 2, 2)},
	})
	ds, err := NewBuilder(testutils.NewTestLogger(), Window{Start: 2, End: 0}).
		Build(context.Background(), scan(t, root, corpus.SelectorFor(true)))
	require.NoError(t, err)
	require.Len(t, ds.Samples, 1)
	assert.Equal(t, "0/a_modified.log", ds.Samples[0].Source)
}

func TestBuildWarnsOnSkippedTraces(t *testing.T) {
	root := testutils.NewCorpus(t, map[string]map[string][]trace.Event{
		"0": {"good.log": testutils.PeriodicTrace(2, 1, 1)},
	})
	testutils.WriteRaw(t, filepath.Join(root, "0", "empty.log"), "")
	testutils.WriteRaw(t, filepath.Join(root, "0", "rows.log"), "x,s,1\n100,r,5\n")

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn("skipping trace", "file", filepath.Join(root, "0", "empty.log"), "error", gomock.Any()).Times(1)
	logger.EXPECT().Warn("dropped malformed row", "file", filepath.Join(root, "0", "rows.log"), "line", 1, "reason", gomock.Any()).Times(1)
	logger.EXPECT().Info("extracting features", "done", gomock.Any(), "total", 3).AnyTimes()
	logger.EXPECT().Debug("corpus maxima", gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(1)
	logger.EXPECT().Info("extracted feature-label pairs", "pairs", 2, "skipped", 1).Times(1)
	logger.EXPECT().Info("unique feature vectors", "unique", gomock.Any(), "total", 2).Times(1)

	b := NewBuilder(logger, Window{Start: 2, End: 0})
	_, err := b.Build(context.Background(), scan(t, root, corpus.AttackBaseSelector))
	require.NoError(t, err)
}

func TestBuildDegenerate(t *testing.T) {
	t.Run("NoUsableTraces", func(t *testing.T) {
		root := testutils.NewCorpus(t, map[string]map[string][]trace.Event{
			"0": {"a.log": {{TimestampNs: 1, Kind: trace.Kind("qoe")}}},
		})
		_, err := NewBuilder(testutils.NewTestLogger(), DefaultWindow()).
			Build(context.Background(), scan(t, root, corpus.AttackBaseSelector))
		assert.True(t, errors.Is(err, ErrDegenerateCorpus))
	})

	t.Run("ZeroChannelMaximum", func(t *testing.T) {
		root := testutils.NewCorpus(t, map[string]map[string][]trace.Event{
			"0": {"a.log": testutils.PeriodicTrace(2, 0, 3)},
		})
		_, err := NewBuilder(testutils.NewTestLogger(), Window{Start: 2, End: 0}).
			Build(context.Background(), scan(t, root, corpus.AttackBaseSelector))
		assert.True(t, errors.Is(err, ErrDegenerateCorpus))
	})

	t.Run("NoLabels", func(t *testing.T) {
		_, err := NewBuilder(testutils.NewTestLogger(), DefaultWindow()).
			Build(context.Background(), scan(t, t.TempDir(), corpus.AttackBaseSelector))
		assert.True(t, errors.Is(err, ErrDegenerateCorpus))
	})
}

func TestBuildCancelled(t *testing.T) {
	root := testutils.NewCorpus(t, map[string]map[string][]trace.Event{
		"0": {"a.log": testutils.PeriodicTrace(2, 1, 1)},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBuilder(testutils.NewTestLogger(), Window{Start: 2, End: 0}).
		Build(ctx, scan(t, root, corpus.AttackBaseSelector))
	assert.True(t, errors.Is(err, context.Canceled))
}
