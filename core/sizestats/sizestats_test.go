package sizestats

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfshape/wfshape/core/trace"
)

func mixed(sent []int64, other ...trace.Kind) *trace.Trace {
	var events []trace.Event
	for i, s := range sent {
		events = append(events, trace.Event{TimestampNs: int64(i), Kind: trace.KindSent, Size: s})
	}
	for _, k := range other {
		events = append(events, trace.Event{Kind: k, Size: 9999})
	}
	return trace.New(events)
}

func TestCompute(t *testing.T) {
	s, err := Compute("a.log", mixed([]int64{2, 4, 4, 4, 5, 5, 7, 9}, trace.KindSentPadding, trace.KindReceived, trace.KindSentCompound))
	require.NoError(t, err)
	assert.Equal(t, 8, s.Count)
	assert.InDelta(t, 5.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7.0), s.StdDev, 1e-12)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
}

func TestComputeSinglePacket(t *testing.T) {
	s, err := Compute("one.log", mixed([]int64{1200}))
	require.NoError(t, err)
	assert.Equal(t, 1200.0, s.Mean)
	assert.True(t, math.IsNaN(s.StdDev))
}

func TestComputeNoSentPackets(t *testing.T) {
	_, err := Compute("pad.log", mixed(nil, trace.KindSentPadding, trace.KindReceived))
	assert.ErrorIs(t, err, ErrNoSentPackets)
}

func TestAggregate(t *testing.T) {
	a, err := Compute("a", mixed([]int64{10, 20}))
	require.NoError(t, err)
	b, err := Compute("b", mixed([]int64{100}))
	require.NoError(t, err)

	sum := Aggregate([]Stats{a, b})
	assert.Equal(t, 2, sum.Files)
	assert.InDelta(t, 57.5, sum.MeanSize, 1e-12)
	assert.InDelta(t, a.StdDev, sum.MeanStdDev, 1e-12)
	assert.Equal(t, 10.0, sum.Min)
	assert.Equal(t, 100.0, sum.Max)
	assert.Equal(t, 3, sum.Count)

	empty := Aggregate(nil)
	assert.True(t, math.IsNaN(empty.MeanSize))
	assert.Zero(t, empty.Count)
}

func TestWriteCSV(t *testing.T) {
	one, err := Compute("one.log", mixed([]int64{1200}))
	require.NoError(t, err)
	two, err := Compute("two.log", mixed([]int64{1, 3}))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []Stats{one, two}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(Columns, ","), lines[0])
	assert.Equal(t, "one.log,1200,,1200,1200,1", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "two.log,2,1.414"), lines[2])
}
