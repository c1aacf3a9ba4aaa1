package recommend

import (
	"fmt"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/evaluation"
)

// Remarks attached to suggestions.
const (
	RemarkCompatible      = "Recommendation: Field is compatible, suggest using it directly"
	RemarkCompatibleTree  = "Field and all descendants are compatible or solved; you can safely use USE_RECURSIVE to keep the subtree."
	RemarkZeroCardinality = "Field has cardinality 0..0 in all source profiles; it cannot be used and should be marked as NOT_USE."
	RemarkImplicitSlice   = "Target field not explicitly defined in profile but structurally valid (inherits from base type)."

	remarkInheritedFmt     = "Inherited recommendation from %s"
	remarkInheritedFromFmt = "Inherited from %s."
	remarkRecursiveFmt     = "Recommendation: Parent %s has USE_RECURSIVE"
	remarkFixedTargetFmt   = "Target field '%s' has a fixed value: %s. Copying to this field is not possible. Recommend NOT_USE for this field."
)

var (
	copyActions      = map[sc.ActionType]bool{sc.ActionCopyFrom: true, sc.ActionCopyTo: true, sc.ActionExtension: true}
	recursiveActions = map[sc.ActionType]bool{sc.ActionUseRecursive: true}
	useNotUseActions = map[sc.ActionType]bool{sc.ActionUse: true, sc.ActionNotUse: true}
)

// recommendCompatible suggests USE for compatible fields and, when the
// whole subtree is settled, USE_RECURSIVE as well.
func recommendCompatible(in *Input) (Recommendations, []sc.Issue) {
	out := make(Recommendations)

	for _, mf := range in.Mapping.Fields() {
		path := mf.Path
		if in.isManual(path) || mf.IsZeroCardinalityInSources() {
			continue
		}
		if in.Classification[path] != sc.ClassificationCompatible || !in.allows(path, sc.ActionUse) {
			continue
		}

		out.add(path, suggestion(sc.ActionUse, RemarkCompatible))
		if in.allows(path, sc.ActionUseRecursive) &&
			evaluation.DescendantsSettled(in.Nav, path, in.Classification, in.Evaluations, nil, false) {
			out.add(path, suggestion(sc.ActionUseRecursive, RemarkCompatibleTree))
		}
	}
	return out, nil
}

// recommendCopy hands the copy action of an ancestor down to its
// descendants with the reference shifted by the same suffix.
func recommendCopy(in *Input) (Recommendations, []sc.Issue) {
	var issues []sc.Issue
	conflicts := conflictDetector{actions: in.Actions}

	recs := inheritFrom(in, copyActions, func(path, ancestor string, info sc.ActionInfo) (sc.ActionInfo, bool) {
		if info.Source != sc.SourceManual {
			return sc.ActionInfo{}, false
		}
		if in.Dangling[ancestor] {
			issues = append(issues, sc.Warning(sc.IssueTypeSuppressedRecommendation).
				Diagnostics(fmt.Sprintf("%s not inherited: reference '%s' of %s does not exist", info.Action, info.Other, ancestor)).
				At(path).Related(ancestor).Stage(stageName).Build())
			return sc.ActionInfo{}, false
		}

		inherited, ok := inheritedOther(in, path, ancestor, info.Other)
		if !ok {
			if inherited.Rejected != "" {
				issues = append(issues, sc.Warning(sc.IssueTypeSuppressedRecommendation).
					Diagnostics(fmt.Sprintf("%s not inherited: '%s' (%s) does not match the type of %s (%s)",
						info.Action, inherited.Rejected, typeList(in, inherited.Rejected), path, typeList(in, path))).
					At(path).Related(inherited.Rejected).Stage(stageName).Build())
			}
			return sc.ActionInfo{}, false
		}
		ref := inherited.Ref

		rec := suggestion(info.Action, fmt.Sprintf(remarkInheritedFmt, ancestor))
		if inherited.Implicit {
			rec.SystemRemarks = []string{fmt.Sprintf(remarkInheritedFromFmt, ancestor), RemarkImplicitSlice}
			rec.ImplicitSlice = true
		}
		rec.Other = ref

		if rec.Action != sc.ActionCopyTo {
			return rec, true
		}
		if value, fixed := conflicts.fixedValue(ref); fixed {
			issues = append(issues, sc.Info(sc.IssueTypeConflict).
				Diagnostics(fmt.Sprintf("copy into fixed field '%s' replaced by NOT_USE", ref)).
				At(path).Related(ref).Stage(stageName).Build())
			return suggestion(sc.ActionNotUse, fmt.Sprintf(remarkFixedTargetFmt, ref, value)), true
		}
		if other, busy := conflicts.occupied(ref); busy {
			issues = append(issues, sc.Info(sc.IssueTypeSuppressedRecommendation).
				Diagnostics(fmt.Sprintf("copy to '%s' dropped: field already has %s action", ref, other.Action)).
				At(path).Related(ref).Stage(stageName).Build())
			return sc.ActionInfo{}, false
		}
		return rec, true
	})
	return recs, issues
}

// recommendUseRecursive suggests USE below a USE_RECURSIVE ancestor.
func recommendUseRecursive(in *Input) (Recommendations, []sc.Issue) {
	return inheritFrom(in, recursiveActions, func(_, ancestor string, _ sc.ActionInfo) (sc.ActionInfo, bool) {
		return suggestion(sc.ActionUse, fmt.Sprintf(remarkRecursiveFmt, ancestor)), true
	}), nil
}

// recommendUseNotUse suggests the USE or NOT_USE of the nearest ancestor.
func recommendUseNotUse(in *Input) (Recommendations, []sc.Issue) {
	return inheritFrom(in, useNotUseActions, func(_, ancestor string, info sc.ActionInfo) (sc.ActionInfo, bool) {
		return suggestion(info.Action, fmt.Sprintf(remarkInheritedFmt, ancestor)), true
	}), nil
}

// recommendZeroCardinality suggests NOT_USE for fields no source can fill.
func recommendZeroCardinality(in *Input) (Recommendations, []sc.Issue) {
	out := make(Recommendations)
	for _, mf := range in.Mapping.Fields() {
		if in.isManual(mf.Path) || !mf.IsZeroCardinalityInSources() {
			continue
		}
		if in.allows(mf.Path, sc.ActionNotUse) {
			out.add(mf.Path, suggestion(sc.ActionNotUse, RemarkZeroCardinality))
		}
	}
	return out, nil
}
