// Package testutils provides fixture builders shared by package tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wfshape/wfshape/core/trace"
)

// BaseAbsolute is the absolute_timestamp of the first event in synthetic traces.
const BaseAbsolute int64 = 1700000000000

// WriteTrace writes events as a trace log at path, creating parent folders.
func WriteTrace(t testing.TB, path string, events []trace.Event) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, trace.WriteFile(path, trace.New(events)))
}

// WriteRaw writes content verbatim at path, creating parent folders.
func WriteRaw(t testing.TB, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// NewCorpus lays out label folder -> file name -> events under a fresh
// temporary root and returns the root.
func NewCorpus(t testing.TB, layout map[string]map[string][]trace.Event) string {
	t.Helper()
	root := t.TempDir()
	for label, files := range layout {
		require.NoError(t, os.MkdirAll(filepath.Join(root, label), 0o755))
		for name, events := range files {
			WriteTrace(t, filepath.Join(root, label, name), events)
		}
	}
	return root
}

// MixedTrace interleaves the given numbers of sent, received, sent-padding
// and received-padding events at a fixed spacing, with cumulative counters
// filled in. Sizes are 1000 for payload and 500 for padding.
func MixedTrace(sent, received, sentPadding, receivedPadding int, spacingNs int64) *trace.Trace {
	remaining := map[trace.Kind]int{
		trace.KindSent:            sent,
		trace.KindReceived:        received,
		trace.KindSentPadding:     sentPadding,
		trace.KindReceivedPadding: receivedPadding,
	}
	order := []trace.Kind{trace.KindSent, trace.KindReceived, trace.KindSentPadding, trace.KindReceivedPadding}

	var events []trace.Event
	var ts int64
	for left := sent + received + sentPadding + receivedPadding; left > 0; {
		for _, k := range order {
			if remaining[k] == 0 {
				continue
			}
			remaining[k]--
			left--
			size := int64(1000)
			if k.IsPadding() {
				size = 500
			}
			events = append(events, trace.Event{
				TimestampNs:       ts,
				Kind:              k,
				Size:              size,
				AbsoluteTimestamp: BaseAbsolute + ts/1_000_000,
			})
			ts += spacingNs
		}
	}
	tr := trace.New(events)
	tr.Recount()
	return tr
}

// PeriodicTrace emits, for every quarter second in [0, seconds), up sent
// events and down received events at the start of the bin.
func PeriodicTrace(seconds, up, down int) []trace.Event {
	const quarter = 250_000_000
	var events []trace.Event
	for bin := 0; bin < seconds*4; bin++ {
		ts := int64(bin) * quarter
		for i := 0; i < up; i++ {
			events = append(events, trace.Event{TimestampNs: ts + int64(i), Kind: trace.KindSent, Size: 100})
		}
		for i := 0; i < down; i++ {
			events = append(events, trace.Event{TimestampNs: ts + int64(up+i), Kind: trace.KindReceived, Size: 1500})
		}
	}
	tr := trace.New(events)
	tr.Recount()
	return tr.Events
}
