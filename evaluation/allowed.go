package evaluation

import (
	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/hierarchy"
	"github.com/gematik/structure-comparer/profile"
)

// creationActions are the only actions a creation offers.
var creationActions = []sc.ActionType{sc.ActionManual, sc.ActionFixed}

// DescendantsSettled reports whether every descendant of path is either
// classified compatible or evaluated as solved. A field without descendants
// is settled unless requireUnmanaged is set. With requireUnmanaged at least
// one descendant must lack a manual action.
func DescendantsSettled(nav *hierarchy.Navigator, path string, classification map[string]sc.Classification,
	evals Evaluations, actions map[string]sc.ActionInfo, requireUnmanaged bool) bool {
	desc := nav.Descendants(path)
	if len(desc) == 0 {
		return !requireUnmanaged
	}

	unmanaged := false
	for _, d := range desc {
		if actions[d].Source != sc.SourceManual {
			unmanaged = true
		}
		if classification[d] == sc.ClassificationCompatible {
			continue
		}
		if evals[d].MappingStatus == sc.MappingSolved {
			continue
		}
		return false
	}
	return unmanaged || !requireUnmanaged
}

// AllowedActions computes the selectable actions of every field. In a
// mapping USE_RECURSIVE is only offered on a field whose subtree is settled.
func AllowedActions(m *profile.Mapping, nav *hierarchy.Navigator, classification map[string]sc.Classification,
	evals Evaluations, actions map[string]sc.ActionInfo) map[string][]sc.ActionType {
	out := make(map[string][]sc.ActionType, len(m.Fields()))

	for _, mf := range m.Fields() {
		if m.IsCreation() {
			out[mf.Path] = append([]sc.ActionType(nil), creationActions...)
			continue
		}

		base := mf.ActionsAllowed()
		recursive := DescendantsSettled(nav, mf.Path, classification, evals, actions, true)

		allowed := make([]sc.ActionType, 0, len(base))
		for _, a := range base {
			if a == sc.ActionUseRecursive && !recursive {
				continue
			}
			allowed = append(allowed, a)
		}
		out[mf.Path] = allowed
	}
	return out
}
