// Package hierarchy derives the parent/child structure of a flat list of
// FHIR field paths.
//
// Paths are dot-separated element names; a segment may carry one slice
// qualifier after a colon:
//
//	Patient
//	Patient.identifier
//	Patient.identifier:custom
//	Patient.identifier:custom.system
//
// The parent of a path is the path with its last dotted or sliced segment
// removed, so "Patient.identifier:custom" is a child of
// "Patient.identifier". No other normalization is applied.
//
// Example usage:
//
//	nav, err := hierarchy.Build(paths)
//	if err != nil {
//	    return err // malformed or duplicate path
//	}
//
//	for _, child := range nav.Children("Patient.identifier") {
//	    fmt.Println(child)
//	}
package hierarchy
