package recommend

import (
	sc "github.com/gematik/structure-comparer"
)

// factory derives the suggestion for path from the action of ancestor.
// Returning false moves the search on to the next ancestor.
type factory func(path, ancestor string, info sc.ActionInfo) (sc.ActionInfo, bool)

// inheritFrom walks the ancestors of every undecided field, nearest first,
// and asks build for a suggestion at each ancestor whose active action is
// in actions. The first suggestion wins. A suggestion the field does not
// allow ends the search for that field.
func inheritFrom(in *Input, actions map[sc.ActionType]bool, build factory) Recommendations {
	out := make(Recommendations)

	for _, path := range in.Nav.TopDown() {
		if in.isManual(path) || in.isZeroCardinality(path) {
			continue
		}
		for _, anc := range in.Nav.Ancestors(path) {
			info := in.Actions[anc]
			if !actions[info.Action] {
				continue
			}
			rec, ok := build(path, anc, info)
			if !ok {
				continue
			}
			if in.allows(path, rec.Action) {
				out.add(path, rec)
			}
			break
		}
	}
	return out
}
