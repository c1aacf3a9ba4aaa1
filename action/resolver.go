// Package action computes the single active action of every mapping field.
//
// Three sources are merged in priority order: the user's manual entry, an
// action inherited from an ancestor, and a default derived from the target
// profile itself (a fixed value). Fields without any of these keep an empty
// action with source system_default.
package action

import (
	"fmt"
	"sort"
	"strings"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/fixedvalue"
	"github.com/gematik/structure-comparer/hierarchy"
	"github.com/gematik/structure-comparer/pkg/logger"
	"github.com/gematik/structure-comparer/profile"
)

// Remarks attached by the resolver.
const (
	RemarkFixedDetected = "Auto-detected fixed value from target profile"
	remarkInheritedFmt  = "Inherited from %s"
	remarkNotUseFmt     = "Automatically inherited NOT_USE from parent field %s"
	remarkLinkedFmt     = "Linked from the copy action on %s"
)

// Resolution is the output of one resolver run.
type Resolution struct {
	// Actions holds exactly one active action per mapping field
	Actions map[string]sc.ActionInfo

	// Manual is the effective set of manual entries after filtering and
	// copy-link augmentation
	Manual sc.ManualEntries

	// Dangling marks fields whose manual "other" does not exist
	Dangling map[string]bool

	Issues []sc.Issue
}

// Resolver produces the active action map of a mapping.
type Resolver struct {
	extractor *fixedvalue.Extractor
	augment   bool
	log       *logger.Logger
}

// NewResolver creates a resolver. A nil extractor disables fixed value
// detection.
func NewResolver(extractor *fixedvalue.Extractor, opts *sc.Options) *Resolver {
	if opts == nil {
		opts = sc.DefaultOptions()
	}
	return &Resolver{
		extractor: extractor,
		augment:   opts.CopyLinkAugmentation,
		log:       logger.Default().Named("action"),
	}
}

// Resolve computes the active actions. It fails only on structural errors
// in the manual entries; reference problems are reported as issues.
func (r *Resolver) Resolve(m *profile.Mapping, nav *hierarchy.Navigator, manual sc.ManualEntries) (*Resolution, error) {
	entries, issues := filterEntries(manual, m.Has)
	if err := checkCycles(entries); err != nil {
		return nil, err
	}

	derived := map[string]string{}
	if r.augment {
		entries, derived = augmentCopyLinks(entries, m.Has)
	}

	dangling, refIssues := checkReferences(entries, m.Has)
	issues = append(issues, refIssues...)

	res := &Resolution{
		Actions:  make(map[string]sc.ActionInfo, nav.Size()),
		Manual:   entries,
		Dangling: dangling,
		Issues:   issues,
	}

	// roots tracks the propagating action behind each inherited chain
	roots := make(map[string]sc.ActionType)

	for _, path := range nav.TopDown() {
		if entry, ok := entries[path]; ok {
			info := r.fromManual(m, path, entry)
			if from, ok := derived[path]; ok {
				info = info.WithSystemRemark(fmt.Sprintf(remarkLinkedFmt, from))
			}
			res.Actions[path] = info
			if propagates(entry.Action) {
				roots[path] = entry.Action
			}
			continue
		}

		parent := nav.Parent(path)
		if root, ok := roots[parent]; ok && parent != "" {
			res.Actions[path] = inherited(root, parent)
			roots[path] = root
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

	propagateNotUse(nav, res.Actions)

	r.log.Debug("mapping %s: resolved %d fields from %d manual entries (%d derived, %d dangling)",
		m.ID, len(res.Actions), len(entries), len(derived), len(dangling))
	return res, nil
}

// propagates reports whether action is handed down as an active action.
func propagates(action sc.ActionType) bool {
	return action == sc.ActionEmpty || action == sc.ActionUseRecursive
}

// inherited builds the action a descendant of a propagating root receives.
// USE_RECURSIVE hands down plain USE.
func inherited(root sc.ActionType, parent string) sc.ActionInfo {
	action := root
	if root == sc.ActionUseRecursive {
		action = sc.ActionUse
	}
	return sc.ActionInfo{
		Action:        action,
		Source:        sc.SourceInherited,
		AutoGenerated: true,
		InheritedFrom: parent,
		SystemRemarks: []string{fmt.Sprintf(remarkInheritedFmt, parent)},
	}
}

func (r *Resolver) fromManual(m *profile.Mapping, path string, entry sc.ManualEntry) sc.ActionInfo {
	info := sc.ActionInfo{
		Action: entry.Action,
		Source: sc.SourceManual,
		Other:  entry.Other,
		Remark: entry.Remark,
	}
	if entry.Action == sc.ActionFixed {
		if entry.Fixed != "" {
			info.FixedValue = entry.Fixed
		} else if value, ok := r.fixedValue(m, path); ok {
			info.FixedValue = value
		}
	}
	if info.Remark == "" {
		info.Remark = sc.DefaultRemark(entry.Action, entry.Other, fixedvalue.FormatForDisplay(info.FixedValue))
	}
	return info
}

// fixedValue reads a constant the target profile pins the field to. A
// ".system" field also picks up the pattern system of its parent, or of its
// grandparent when the parent is the coding of a patternCodeableConcept.
func (r *Resolver) fixedValue(m *profile.Mapping, path string) (any, bool) {
	if r.extractor == nil {
		return nil, false
	}
	mf, ok := m.Field(path)
	if !ok || !mf.TargetPresent() {
		return nil, false
	}
	if value, _, ok := r.extractor.Fixed(mf.Target.Definition); ok {
		return value, true
	}
	if !strings.HasSuffix(path, ".system") {
		return nil, false
	}
	parentPath := hierarchy.ParentPath(path)
	if parent, ok := m.Field(parentPath); ok && parent.TargetPresent() {
		if system, kind, ok := r.extractor.PatternSystem(parent.Target.Definition); ok && kind != fixedvalue.KindPatternCodeableConceptSystem {
			return system, true
		}
	}
	if !strings.HasSuffix(parentPath, ".coding") {
		return nil, false
	}
	concept, ok := m.Field(hierarchy.ParentPath(parentPath))
	if !ok || !concept.TargetPresent() {
		return nil, false
	}
	if system, kind, ok := r.extractor.PatternSystem(concept.Target.Definition); ok && kind == fixedvalue.KindPatternCodeableConceptSystem {
		return system, true
	}
	return nil, false
}

// propagateNotUse hands a manual NOT_USE down to direct children without
// a manual action of their own. Grandchildren are left alone.
func propagateNotUse(nav *hierarchy.Navigator, actions map[string]sc.ActionInfo) {
	for _, path := range nav.TopDown() {
		info := actions[path]
		if info.Action != sc.ActionNotUse || info.Source != sc.SourceManual {
			continue
		}
		for _, child := range nav.Children(path) {
			if actions[child].Source == sc.SourceManual {
				continue
			}
			actions[child] = sc.ActionInfo{
				Action:        sc.ActionNotUse,
				Source:        sc.SourceInherited,
				AutoGenerated: true,
				InheritedFrom: path,
				SystemRemarks: []string{fmt.Sprintf(remarkNotUseFmt, path)},
			}
		}
	}
}

func sortedKeys(manual sc.ManualEntries) []string {
	keys := make([]string, 0, len(manual))
	for k := range manual {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
