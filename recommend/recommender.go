// Package recommend proposes actions for fields the user has not decided
// yet. A fixed, ordered list of recommenders runs over the same read-only
// input; the engine merges their output with earlier recommenders taking
// priority.
package recommend

import (
	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/hierarchy"
	"github.com/gematik/structure-comparer/profile"
)

const stageName = "recommend"

// Recommendations maps field paths to ordered suggestions.
type Recommendations map[string][]sc.ActionInfo

func (r Recommendations) add(path string, recs ...sc.ActionInfo) {
	r[path] = append(r[path], recs...)
}

// Input is everything a recommender may read. Recommenders never modify it.
type Input struct {
	Mapping *profile.Mapping
	Nav     *hierarchy.Navigator

	// Actions is the active action per field
	Actions map[string]sc.ActionInfo

	// Manual holds the effective manual entries
	Manual sc.ManualEntries

	// Dangling marks fields whose copy reference does not exist
	Dangling map[string]bool

	Classification map[string]sc.Classification
	Evaluations    map[string]sc.EvaluationResult

	// Allowed overrides the allowed actions of the mapping fields
	Allowed map[string][]sc.ActionType
}

// allows reports whether action may be picked for path.
func (in *Input) allows(path string, action sc.ActionType) bool {
	if in.Allowed != nil {
		for _, a := range in.Allowed[path] {
			if a == action {
				return true
			}
		}
		return false
	}
	mf, ok := in.Mapping.Field(path)
	return ok && mf.Allows(action)
}

func (in *Input) isManual(path string) bool {
	_, ok := in.Manual[path]
	return ok
}

func (in *Input) isZeroCardinality(path string) bool {
	mf, ok := in.Mapping.Field(path)
	return ok && mf.IsZeroCardinalityInSources()
}

// Recommender computes suggestions for one concern.
type Recommender interface {
	// Name returns the unique identifier for this recommender.
	Name() string

	// Recommend returns suggestions and any issues raised while computing them.
	Recommend(in *Input) (Recommendations, []sc.Issue)
}

// Func is a function type that implements Recommender.
type Func struct {
	name string
	fn   func(in *Input) (Recommendations, []sc.Issue)
}

// NewFunc creates a Recommender from a function.
func NewFunc(name string, fn func(in *Input) (Recommendations, []sc.Issue)) Recommender {
	return &Func{name: name, fn: fn}
}

// Name returns the recommender name.
func (f *Func) Name() string {
	return f.name
}

// Recommend calls the wrapped function.
func (f *Func) Recommend(in *Input) (Recommendations, []sc.Issue) {
	return f.fn(in)
}

// Recommender names in priority order.
const (
	NameCompatible      = "compatible"
	NameCopy            = "copy"
	NameUseRecursive    = "use-recursive"
	NameUseNotUse       = "use-not-use"
	NameZeroCardinality = "zero-cardinality"
)

// DefaultRecommenders returns the built-in recommenders in priority order.
func DefaultRecommenders() []Recommender {
	return []Recommender{
		NewFunc(NameCompatible, recommendCompatible),
		NewFunc(NameCopy, recommendCopy),
		NewFunc(NameUseRecursive, recommendUseRecursive),
		NewFunc(NameUseNotUse, recommendUseNotUse),
		NewFunc(NameZeroCardinality, recommendZeroCardinality),
	}
}

// suggestion builds a recommendation with a system remark.
func suggestion(action sc.ActionType, remarks ...string) sc.ActionInfo {
	return sc.ActionInfo{
		Action:        action,
		Source:        sc.SourceRecommendation,
		AutoGenerated: true,
		SystemRemarks: remarks,
	}
}
