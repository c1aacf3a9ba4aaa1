package recommend

import (
	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/fixedvalue"
)

// conflictDetector checks copy suggestions against the active action of
// the field they would write to.
type conflictDetector struct {
	actions map[string]sc.ActionInfo
}

// fixedValue returns the display value when target is pinned by an
// active FIXED action.
func (d conflictDetector) fixedValue(target string) (string, bool) {
	info, ok := d.actions[target]
	if !ok || info.Action != sc.ActionFixed || info.FixedValue == nil {
		return "", false
	}
	return fixedvalue.FormatForDisplay(info.FixedValue), true
}

// occupied returns the active action of target, if it has one.
func (d conflictDetector) occupied(target string) (sc.ActionInfo, bool) {
	info, ok := d.actions[target]
	if !ok || !info.HasAction() {
		return sc.ActionInfo{}, false
	}
	return info, true
}
