// Package structurecomparer decides, field by field, what happens to a
// target FHIR profile when it is populated from zero or more source profiles.
//
// For every target field the comparer computes exactly one active action
// (use, use recursively, not use, leave empty, manual, fixed, copy from,
// copy to, extension), a list of ranked recommendations for fields a human
// has not decided yet, and a status that rolls up into summary counts.
//
// # Quick Start
//
//	import (
//	    sc "github.com/gematik/structure-comparer"
//	    "github.com/gematik/structure-comparer/engine"
//	)
//
//	comparer, err := engine.New(sc.WithMaxRecommendations(3))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := comparer.Compute(ctx, &engine.Input{
//	    Target:         target,
//	    Sources:        sources,
//	    Manual:         entries,
//	    Classification: classes,
//	})
//	if errors.Is(err, sc.ErrStructural) {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Summary.CompletionPercentage())
//
// # Action Sources
//
// Actions are resolved in priority order:
//
//   - Manual: explicit user overrides, never overwritten
//   - Inherited: EMPTY and USE_RECURSIVE flow down transitively,
//     NOT_USE reaches direct children of a manual NOT_USE
//   - System default: a fixed value pinned by the target profile
//   - Otherwise no action, the user has to decide
//
// # Errors
//
// Structural errors (malformed paths, duplicate paths, cyclic references)
// abort the computation and match ErrStructural. Dangling references and
// missing classifications are reported as Issues on the Result.
//
// # Concurrency
//
// A computation shares no state with any other. Batch computation runs
// independent inputs on a worker pool.
package structurecomparer
