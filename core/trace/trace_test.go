package trace

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		kind     Kind
		padding  bool
		sent     bool
		received bool
		anchor   bool
	}{
		{KindSent, false, true, false, true},
		{KindReceived, false, false, true, true},
		{KindSentPadding, true, true, false, true},
		{KindReceivedPadding, true, false, true, true},
		{KindSentCompound, false, false, false, true},
		{KindReceivedCompound, false, false, false, true},
		{Kind("x"), false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.padding, tt.kind.IsPadding())
			assert.Equal(t, tt.sent, tt.kind.CountsAsSent())
			assert.Equal(t, tt.received, tt.kind.CountsAsReceived())
			assert.Equal(t, tt.anchor, tt.kind.IsAnchor())
		})
	}
}

func TestDirectionMatches(t *testing.T) {
	assert.True(t, Upload.Matches(KindSent))
	assert.True(t, Upload.Matches(KindSentPadding))
	assert.True(t, Upload.Matches(KindSentCompound))
	assert.False(t, Upload.Matches(KindReceived))
	assert.True(t, Download.Matches(KindReceivedPadding))
	assert.False(t, Download.Matches(KindSentPadding))
}

func TestRecount(t *testing.T) {
	tr := New([]Event{
		{Kind: KindSent}, {Kind: KindReceived}, {Kind: KindSentPadding},
		{Kind: KindSentCompound}, {Kind: KindReceivedPadding}, {Kind: KindSent},
	})
	// Stale counters must be overwritten, not patched.
	tr.Events[0].CumulativeSent = 99

	tr.Recount()

	var sent, received []int64
	for _, e := range tr.Events {
		sent = append(sent, e.CumulativeSent)
		received = append(received, e.CumulativeReceived)
	}
	assert.Equal(t, []int64{1, 1, 2, 2, 2, 3}, sent)
	assert.Equal(t, []int64{0, 1, 1, 1, 2, 2}, received)
}

func TestSortAndClone(t *testing.T) {
	tr := New([]Event{{TimestampNs: 30}, {TimestampNs: 10}, {TimestampNs: 20}})
	assert.False(t, tr.IsSorted())

	cp := tr.Clone()
	cp.SortByTime()

	assert.True(t, cp.IsSorted())
	assert.Equal(t, int64(30), tr.Events[0].TimestampNs, "clone must not alias the original")
	assert.Equal(t, []int64{10, 20, 30}, []int64{cp.Events[0].TimestampNs, cp.Events[1].TimestampNs, cp.Events[2].TimestampNs})
}

func TestTotalBytesAndCountKinds(t *testing.T) {
	tr := New([]Event{
		{Kind: KindSent, Size: 100},
		{Kind: KindSentPadding, Size: 60},
		{Kind: KindSent, Size: 40},
	})
	assert.Equal(t, int64(200), tr.TotalBytes())
	assert.Equal(t, map[Kind]int{KindSent: 2, KindSentPadding: 1}, tr.CountKinds())
}

func TestRead(t *testing.T) {
	input := strings.Join([]string{
		"1000000000,s,120,1700000000000,1,0",
		"1500000000,r,1400,1700000000500,1,1",
		"oops,r,10,0,0,0",
		"2000000000,sp,abc,0,0,0",
		"2100000000,rp,60",
		"2200000000,s",
		"2.3e9,r,50,1700000001300,1,2",
		"",
	}, "\n")

	tr, dropped, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, tr.Events, 4)
	assert.Equal(t, Event{TimestampNs: 1000000000, Kind: KindSent, Size: 120, AbsoluteTimestamp: 1700000000000, CumulativeSent: 1}, tr.Events[0])
	assert.Equal(t, Event{TimestampNs: 2100000000, Kind: KindReceivedPadding, Size: 60}, tr.Events[2])
	assert.Equal(t, int64(2300000000), tr.Events[3].TimestampNs)

	require.Len(t, dropped, 3)
	assert.Equal(t, []int{3, 4, 6}, []int{dropped[0].Line, dropped[1].Line, dropped[2].Line})
	for _, d := range dropped {
		assert.True(t, errors.Is(d, ErrMalformedRow))
	}
}

func TestReadRejectsFractionalValues(t *testing.T) {
	input := "1,s,12.5\n2,s,12.0\n3.5,r,10\n4,r,1e1\n"
	tr, dropped, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, tr.Events, 2)
	assert.Equal(t, int64(12), tr.Events[0].Size)
	assert.Equal(t, int64(10), tr.Events[1].Size)
	require.Len(t, dropped, 2)
	assert.Equal(t, []int{1, 3}, []int{dropped[0].Line, dropped[1].Line})
	assert.Contains(t, dropped[0].Reason, "packet_size")
}

func TestReadSkipsHeader(t *testing.T) {
	input := "timestamp_ns,event_type,packet_size,absolute_timestamp,cumulative_sent,cumulative_received\n5,s,10,0,1,0\n"
	tr, dropped, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, dropped)
	require.Len(t, tr.Events, 1)
	assert.Equal(t, int64(5), tr.Events[0].TimestampNs)
}

func TestWriteReadRoundTrip(t *testing.T) {
	tr := New([]Event{
		{TimestampNs: 0, Kind: KindSent, Size: 100, AbsoluteTimestamp: 1700000000000, CumulativeSent: 1},
		{TimestampNs: 7000000, Kind: KindReceivedPadding, Size: 55, AbsoluteTimestamp: 1700000000007, CumulativeSent: 1, CumulativeReceived: 1},
	})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tr))
	assert.Equal(t, "0,s,100,1700000000000,1,0\n7000000,rp,55,1700000000007,1,1\n", buf.String())

	path := filepath.Join(t.TempDir(), "a_modified.log")
	require.NoError(t, WriteFile(path, tr))
	back, dropped, err := ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, dropped)
	assert.Equal(t, tr.Events, back.Events)
}

func TestReadFileMissing(t *testing.T) {
	_, _, err := ReadFile(filepath.Join(t.TempDir(), "missing.log"))
	assert.Error(t, err)
}
