package evaluation

import (
	"fmt"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/hierarchy"
)

// Propagate marks every descendant of an incompatible field as
// incompatible too. Descendants with a manual action and fields that are
// incompatible on their own keep their evaluation. The nearest incompatible
// ancestor is recorded. It returns the number of changed fields.
func Propagate(nav *hierarchy.Navigator, evals Evaluations, actions map[string]sc.ActionInfo) int {
	roots := make(map[string]bool)
	for path, res := range evals {
		if res.MappingStatus == sc.MappingIncompatible {
			roots[path] = true
		}
	}
	if len(roots) == 0 {
		return 0
	}

	changed := 0
	for _, path := range nav.TopDown() {
		if roots[path] || actions[path].Source == sc.SourceManual {
			continue
		}
		from := nav.NearestAncestor(path, func(p string) bool { return roots[p] })
		if from == "" {
			continue
		}

		res := evals[path]
		res.Status = sc.StatusActionRequired
		res.MappingStatus = sc.MappingIncompatible
		res.HasWarnings = true
		res.InheritedIncompatibleFrom = from
		res.Reasons = append(append([]sc.EvaluationReason(nil), res.Reasons...), sc.EvaluationReason{
			Code:     sc.ReasonCodeInheritedIncompatible,
			Severity: sc.ReasonWarning,
			Message:  fmt.Sprintf("ancestor %s is incompatible", from),
		})
		evals[path] = res
		changed++
	}
	return changed
}
