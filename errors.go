package structurecomparer

import (
	"fmt"
	"strings"
)

// comparerError is a constant error value.
type comparerError string

func (e comparerError) Error() string {
	return string(e)
}

// Sentinel errors.
const (
	// ErrStructural is matched by every structural error. A computation that
	// returns it produced no partial output.
	ErrStructural = comparerError("structural error")
	// ErrNoInput is returned when a computation has no fields.
	ErrNoInput = comparerError("no fields to compare")
	// ErrUnsupportedVersion is returned for StructureDefinitions of an unknown FHIR version.
	ErrUnsupportedVersion = comparerError("unsupported FHIR version")
	// ErrUnknownAction is returned when an action name cannot be parsed.
	ErrUnknownAction = comparerError("unknown action")
)

// PathError reports a malformed field path.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("malformed field path %q: %s", e.Path, e.Reason)
}

// Is matches ErrStructural.
func (e *PathError) Is(target error) bool {
	return target == ErrStructural
}

// DuplicatePathError reports a field path that occurs twice in one list.
type DuplicatePathError struct {
	Path string
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("duplicate field path %q", e.Path)
}

// Is matches ErrStructural.
func (e *DuplicatePathError) Is(target error) bool {
	return target == ErrStructural
}

// CycleError reports a chain of "other" references that returns to its start.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "cyclic field reference: " + strings.Join(e.Chain, " -> ")
}

// Is matches ErrStructural.
func (e *CycleError) Is(target error) bool {
	return target == ErrStructural
}
