package corpus

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrInvalidLabel marks a label folder whose name is not a class number.
	ErrInvalidLabel = errors.New("invalid label")
	// ErrDuplicateLabel marks a second folder that maps to an existing class.
	ErrDuplicateLabel = errors.New("duplicate label")
)

// LabelError explains why a folder was left out of the registry.
type LabelError struct {
	Name string
	Err  error
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("label folder '%s': %v", e.Name, e.Err)
}

func (e *LabelError) Unwrap() error {
	return e.Err
}

// Registry maps label folder names to dense 0-based class indices. Labels
// are ordered by their numeric value, so folders named 0..N-1 map to
// themselves.
type Registry struct {
	names []string
	index map[string]int
}

// NewRegistry builds a registry from folder names. Names that do not parse
// as non-negative integers, and names that collide numerically with an
// earlier one (e.g. "01" after "1"), are rejected and returned.
func NewRegistry(names []string) (*Registry, []*LabelError) {
	type parsed struct {
		name  string
		value int
	}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	var (
		accepted []parsed
		rejected []*LabelError
		seen     = make(map[int]string)
	)
	for _, name := range sorted {
		value, err := strconv.Atoi(strings.TrimSpace(name))
		if err != nil || value < 0 {
			rejected = append(rejected, &LabelError{Name: name, Err: fmt.Errorf("%w: not a non-negative integer", ErrInvalidLabel)})
			continue
		}
		if prev, ok := seen[value]; ok {
			rejected = append(rejected, &LabelError{Name: name, Err: fmt.Errorf("%w: same class as '%s'", ErrDuplicateLabel, prev)})
			continue
		}
		seen[value] = name
		accepted = append(accepted, parsed{name: name, value: value})
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].value < accepted[j].value })

	r := &Registry{index: make(map[string]int, len(accepted))}
	for i, p := range accepted {
		r.names = append(r.names, p.name)
		r.index[p.name] = i
	}
	return r, rejected
}

// Len returns the number of classes.
func (r *Registry) Len() int {
	return len(r.names)
}

// Index returns the class index of a label folder name.
func (r *Registry) Index(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// Name returns the label folder name of a class index.
func (r *Registry) Name(index int) string {
	if index < 0 || index >= len(r.names) {
		return ""
	}
	return r.names[index]
}

// Names returns the label folder names in class order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}
