package recommend

import (
	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/pkg/logger"
)

// Engine runs recommenders in order and merges their output.
type Engine struct {
	recommenders []Recommender
	max          int
	log          *logger.Logger
}

// NewEngine creates an engine running the default recommenders.
func NewEngine(opts *sc.Options) *Engine {
	return NewEngineWith(opts, DefaultRecommenders()...)
}

// NewEngineWith creates an engine running the given recommenders in order.
func NewEngineWith(opts *sc.Options, recommenders ...Recommender) *Engine {
	if opts == nil {
		opts = sc.DefaultOptions()
	}
	return &Engine{
		recommenders: recommenders,
		max:          opts.MaxRecommendationsPerField,
		log:          logger.Default().Named(stageName),
	}
}

// Recommenders returns the recommender names in priority order.
func (e *Engine) Recommenders() []string {
	names := make([]string, len(e.recommenders))
	for i, r := range e.recommenders {
		names[i] = r.Name()
	}
	return names
}

// Run computes the suggestions for all fields. Per field the first
// suggestion of each action type wins, suggestions repeating the active
// action are dropped and fields no source can fill only keep NOT_USE.
func (e *Engine) Run(in *Input) (Recommendations, []sc.Issue) {
	merged := make(Recommendations)
	var issues []sc.Issue

	for _, r := range e.recommenders {
		recs, iss := r.Recommend(in)
		issues = append(issues, iss...)
		for path, list := range recs {
			merged.add(path, list...)
		}
		e.log.Debug("%s: %d fields", r.Name(), len(recs))
	}

	out := make(Recommendations, len(merged))
	for path, list := range merged {
		if final := e.finalize(in, path, list); len(final) > 0 {
			out[path] = final
		}
	}

	for _, iss := range issues {
		if iss.Code == sc.IssueTypeSuppressedRecommendation {
			e.log.Debug("suppressed at %s: %s", iss.Field, iss.Diagnostics)
		}
	}
	return out, issues
}

func (e *Engine) finalize(in *Input, path string, list []sc.ActionInfo) []sc.ActionInfo {
	active := in.Actions[path].Action
	zero := in.isZeroCardinality(path)

	seen := make(map[sc.ActionType]bool, len(list))
	out := make([]sc.ActionInfo, 0, len(list))
	for _, rec := range list {
		if seen[rec.Action] {
			continue
		}
		seen[rec.Action] = true

		if rec.Action == active {
			continue
		}
		if zero && rec.Action != sc.ActionNotUse {
			continue
		}
		out = append(out, rec)
		if e.max > 0 && len(out) == e.max {
			break
		}
	}
	return out
}
