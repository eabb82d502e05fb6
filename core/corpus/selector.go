package corpus

import (
	"path/filepath"
	"strings"
)

// ModifiedSuffix names the perturbed sibling of a base trace log.
const ModifiedSuffix = "_modified.log"

// Selector decides from a file name whether it is a trace to process.
type Selector func(name string) bool

// AttackBaseSelector matches the unperturbed logs read by the classifier
// harness: a ".log" name with a single dot that is not a perturbed sibling.
func AttackBaseSelector(name string) bool {
	return strings.Contains(name, ".log") &&
		strings.Count(name, ".") == 1 &&
		!strings.Contains(name, ModifiedSuffix)
}

// BaseLogSelector matches the unperturbed logs read by the batch tools:
// any ".log" except QoE side logs and perturbed siblings.
func BaseLogSelector(name string) bool {
	return strings.HasSuffix(name, ".log") &&
		!strings.HasSuffix(name, ".qoe.log") &&
		!strings.Contains(name, ModifiedSuffix)
}

// ModifiedLogSelector matches perturbed siblings.
func ModifiedLogSelector(name string) bool {
	return strings.HasSuffix(name, ModifiedSuffix) && !strings.HasSuffix(name, ".qoe.log")
}

// SelectorFor returns the classifier harness selector for base or
// perturbed traces.
func SelectorFor(modified bool) Selector {
	if modified {
		return ModifiedLogSelector
	}
	return AttackBaseSelector
}

// ModifiedPath returns the perturbed sibling path of a base log.
func ModifiedPath(base string) string {
	dir, name := filepath.Split(base)
	return dir + strings.TrimSuffix(name, ".log") + ModifiedSuffix
}

// BasePath is the inverse of ModifiedPath.
func BasePath(modified string) string {
	dir, name := filepath.Split(modified)
	return dir + strings.TrimSuffix(name, ModifiedSuffix) + ".log"
}
