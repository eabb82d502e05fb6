package trace

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedRow marks a row that could not be parsed and was dropped.
var ErrMalformedRow = errors.New("malformed row")

// Columns is the logical schema of a trace log. Files carry no header.
var Columns = []string{
	"timestamp_ns", "event_type", "packet_size",
	"absolute_timestamp", "cumulative_sent", "cumulative_received",
}

// minFields is the number of leading columns a row needs to be usable.
const minFields = 3

// RowError describes one dropped row.
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *RowError) Unwrap() error {
	return ErrMalformedRow
}

// Read parses a trace log. Malformed rows are dropped and reported in the
// returned slice; only I/O failures produce an error.
func Read(r io.Reader) (*Trace, []*RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	var (
		events  []Event
		dropped []*RowError
	)
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				dropped = append(dropped, &RowError{Line: parseErr.Line, Reason: parseErr.Err.Error()})
				continue
			}
			return nil, dropped, fmt.Errorf("failed to read trace: %w", err)
		}
		if row == 1 && isHeader(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		event, reason := parseRecord(record)
		if reason != "" {
			dropped = append(dropped, &RowError{Line: line, Reason: reason})
			continue
		}
		events = append(events, event)
	}
	return &Trace{Events: events}, dropped, nil
}

// ReadFile opens and parses a trace log.
func ReadFile(path string) (*Trace, []*RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace '%s': %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Write serializes the trace without a header, one row per event.
func Write(w io.Writer, t *Trace) error {
	writer := csv.NewWriter(w)
	record := make([]string, len(Columns))
	for _, e := range t.Events {
		record[0] = strconv.FormatInt(e.TimestampNs, 10)
		record[1] = string(e.Kind)
		record[2] = strconv.FormatInt(e.Size, 10)
		record[3] = strconv.FormatInt(e.AbsoluteTimestamp, 10)
		record[4] = strconv.FormatInt(e.CumulativeSent, 10)
		record[5] = strconv.FormatInt(e.CumulativeReceived, 10)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write trace row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteFile writes the trace to path, replacing any existing file.
func WriteFile(path string, t *Trace) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace '%s': %w", path, err)
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.TrimSpace(record[0]) == Columns[0]
}

func parseRecord(record []string) (Event, string) {
	if len(record) < minFields {
		return Event{}, fmt.Sprintf("expected at least %d fields, got %d", minFields, len(record))
	}

	var e Event
	var ok bool
	if e.TimestampNs, ok = parseInt(record[0]); !ok {
		return Event{}, fmt.Sprintf("non-numeric timestamp_ns %q", record[0])
	}
	e.Kind = Kind(strings.TrimSpace(record[1]))
	if e.Kind == "" {
		return Event{}, "empty event_type"
	}
	if e.Size, ok = parseInt(record[2]); !ok || e.Size < 0 {
		return Event{}, fmt.Sprintf("invalid packet_size %q", record[2])
	}

	// Trailing columns are derived and recomputed by writers, so a missing
	// or unreadable value is left at zero.
	optional := []*int64{&e.AbsoluteTimestamp, &e.CumulativeSent, &e.CumulativeReceived}
	for i, dst := range optional {
		if minFields+i < len(record) {
			if v, ok := parseInt(record[minFields+i]); ok {
				*dst = v
			}
		}
	}
	return e, ""
}

// parseInt accepts plain integers and integral floats such as "1.5e9".
// Fractional values such as "12.5" are rejected.
func parseInt(field string) (int64, bool) {
	field = strings.TrimSpace(field)
	if v, err := strconv.ParseInt(field, 10, 64); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(field, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f >= math.MaxInt64 || f < math.MinInt64 || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
