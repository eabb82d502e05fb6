// Package trace holds the in-memory model of one packet-event log and the
// CSV codec for the on-disk format.
package trace

import (
	"sort"
	"strings"
)

// Kind is the short tag in the event_type column.
type Kind string

const (
	KindSent            Kind = "s"
	KindReceived        Kind = "r"
	KindSentPadding     Kind = "sp"
	KindReceivedPadding Kind = "rp"

	// Compound tags appear in some captures and only matter as anchor markers.
	KindSentCompound     Kind = "s+p"
	KindReceivedCompound Kind = "r+p"
)

// IsPadding reports whether k is a defense dummy packet.
func (k Kind) IsPadding() bool {
	return k == KindSentPadding || k == KindReceivedPadding
}

// CountsAsSent reports whether k advances cumulative_sent.
func (k Kind) CountsAsSent() bool {
	return k == KindSent || k == KindSentPadding
}

// CountsAsReceived reports whether k advances cumulative_received.
func (k Kind) CountsAsReceived() bool {
	return k == KindReceived || k == KindReceivedPadding
}

// IsAnchor reports whether k can mark the last relevant event of a trace.
func (k Kind) IsAnchor() bool {
	switch k {
	case KindSent, KindReceived, KindSentPadding, KindReceivedPadding, KindSentCompound, KindReceivedCompound:
		return true
	}
	return false
}

// Direction selects events by substring match against the kind tag.
type Direction string

const (
	Upload   Direction = "s"
	Download Direction = "r"
)

// Matches reports whether the kind tag contains the direction, so Upload
// selects both "s" and "sp".
func (d Direction) Matches(k Kind) bool {
	return strings.Contains(string(k), string(d))
}

// Event is one row of a trace log.
type Event struct {
	TimestampNs        int64
	Kind               Kind
	Size               int64
	AbsoluteTimestamp  int64
	CumulativeSent     int64
	CumulativeReceived int64
}

// Trace is an ordered sequence of events in source order.
type Trace struct {
	Events []Event
}

// New wraps events in a Trace without copying.
func New(events []Event) *Trace {
	return &Trace{Events: events}
}

// Len returns the number of events.
func (t *Trace) Len() int {
	return len(t.Events)
}

// Clone returns a deep copy.
func (t *Trace) Clone() *Trace {
	events := make([]Event, len(t.Events))
	copy(events, t.Events)
	return &Trace{Events: events}
}

// TotalBytes sums the size column.
func (t *Trace) TotalBytes() int64 {
	var total int64
	for _, e := range t.Events {
		total += e.Size
	}
	return total
}

// CountKinds returns the number of events per kind tag.
func (t *Trace) CountKinds() map[Kind]int {
	counts := make(map[Kind]int)
	for _, e := range t.Events {
		counts[e.Kind]++
	}
	return counts
}

// IsSorted reports whether timestamps are non-decreasing in source order.
func (t *Trace) IsSorted() bool {
	return sort.SliceIsSorted(t.Events, func(i, j int) bool {
		return t.Events[i].TimestampNs < t.Events[j].TimestampNs
	})
}

// SortByTime orders events by timestamp. Equal timestamps keep their
// relative order.
func (t *Trace) SortByTime() {
	sort.SliceStable(t.Events, func(i, j int) bool {
		return t.Events[i].TimestampNs < t.Events[j].TimestampNs
	})
}

// Recount rebuilds both cumulative columns from scratch over the current
// event order. It must run after any drop, insert or reorder.
func (t *Trace) Recount() {
	var sent, received int64
	for i := range t.Events {
		if t.Events[i].Kind.CountsAsSent() {
			sent++
		}
		if t.Events[i].Kind.CountsAsReceived() {
			received++
		}
		t.Events[i].CumulativeSent = sent
		t.Events[i].CumulativeReceived = received
	}
}
