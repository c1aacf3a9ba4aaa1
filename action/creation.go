package action

import (
	"fmt"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/hierarchy"
	"github.com/gematik/structure-comparer/profile"
)

// ResolveCreation computes the actions of a creation. Only manual and
// fixed entries apply and nothing is inherited; the remaining fields pick
// up fixed values from the target profile.
func (r *Resolver) ResolveCreation(m *profile.Mapping, nav *hierarchy.Navigator, manual sc.ManualEntries) *Resolution {
	entries, issues := filterEntries(manual, m.Has)
	for _, path := range sortedKeys(entries) {
		action := entries[path].Action
		if action == sc.ActionManual || action == sc.ActionFixed {
			continue
		}
		issues = append(issues, sc.Warning(sc.IssueTypeIgnoredEntry).
			Diagnostics(fmt.Sprintf("%s action is not available when creating a resource", action)).
			At(path).Stage(stageName).Build())
		delete(entries, path)
	}

	res := &Resolution{
		Actions:  make(map[string]sc.ActionInfo, nav.Size()),
		Manual:   entries,
		Dangling: map[string]bool{},
		Issues:   issues,
	}
	for _, path := range nav.TopDown() {
		if entry, ok := entries[path]; ok {
			res.Actions[path] = r.fromManual(m, path, entry)
			continue
		}
		if value, ok := r.fixedValue(m, path); ok {
			res.Actions[path] = sc.ActionInfo{
				Action:        sc.ActionFixed,
				Source:        sc.SourceSystemDefault,
				FixedValue:    value,
				AutoGenerated: true,
				SystemRemarks: []string{RemarkFixedDetected},
			}
			continue
		}
		res.Actions[path] = sc.ActionInfo{Source: sc.SourceSystemDefault, AutoGenerated: true}
	}

	r.log.Debug("creation %s: resolved %d fields from %d manual entries", m.ID, len(res.Actions), len(entries))
	return res
}
