// Package evaluation derives a status for every field from its
// classification and its active action, propagates incompatibility down the
// hierarchy and rolls the statuses up into summary counts.
package evaluation

import (
	"fmt"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/profile"
)

const stageName = "evaluate"

// Evaluations maps field paths to their derived status.
type Evaluations map[string]sc.EvaluationResult

// IsActive reports whether info counts as a decision for the field: an
// action is set and its auto-generated flag matches its source.
func IsActive(info sc.ActionInfo) bool {
	if !info.HasAction() {
		return false
	}
	switch info.Source {
	case sc.SourceManual:
		return !info.AutoGenerated
	case sc.SourceInherited, sc.SourceSystemDefault:
		return info.AutoGenerated
	default:
		return false
	}
}

// EvaluateMapping evaluates every field of a mapping. Fields missing from
// classification are treated as unknown and flagged.
func EvaluateMapping(m *profile.Mapping, actions map[string]sc.ActionInfo, classification map[string]sc.Classification) (Evaluations, []sc.Issue) {
	out := make(Evaluations, len(m.Fields()))
	var issues []sc.Issue

	for _, mf := range m.Fields() {
		info, ok := actions[mf.Path]
		if !ok {
			out[mf.Path] = failed(mf.Path)
			continue
		}

		class, known := classification[mf.Path]
		if !known {
			class = sc.ClassificationUnknown
			issues = append(issues, sc.Info(sc.IssueTypeClassificationMissing).
				Diagnostics("no classification for field, evaluated as unknown").
				At(mf.Path).Stage(stageName).Build())
		}

		res := evaluateMappingField(mf, info, class)
		if !known {
			res.Reasons = append(res.Reasons, sc.EvaluationReason{
				Code:     sc.ReasonCodeClassificationMissing,
				Severity: sc.ReasonInfo,
				Message:  "classification missing, cardinality rule applied",
			})
		}
		out[mf.Path] = res
	}
	return out, issues
}

func evaluateMappingField(mf *profile.MappingField, info sc.ActionInfo, class sc.Classification) sc.EvaluationResult {
	required := mf.IsTargetRequired()
	active := IsActive(info)

	if required && info.Action == sc.ActionNotUse {
		return sc.EvaluationResult{
			Status:        sc.StatusActionRequired,
			MappingStatus: sc.MappingWarning,
			HasWarnings:   true,
			Reasons: []sc.EvaluationReason{{
				Code:          sc.ReasonCodeRequiredNotUse,
				Severity:      sc.ReasonWarning,
				Message:       fmt.Sprintf("target field is required (min %d) but marked NOT_USE", mf.Target.Min),
				RelatedAction: info.Action,
			}},
		}
	}

	if active {
		return resolved(info)
	}

	if class == sc.ClassificationIncompatible {
		return sc.EvaluationResult{
			Status:        sc.StatusActionRequired,
			MappingStatus: sc.MappingIncompatible,
			HasErrors:     true,
			Reasons: []sc.EvaluationReason{{
				Code:     sc.ReasonCodeIncompatible,
				Severity: sc.ReasonError,
				Message:  "field is incompatible and has no action",
			}},
		}
	}

	if required {
		return sc.EvaluationResult{
			Status:        sc.StatusActionRequired,
			MappingStatus: sc.MappingWarning,
			HasWarnings:   true,
			Reasons: []sc.EvaluationReason{{
				Code:     sc.ReasonCodeRequiredNoAction,
				Severity: sc.ReasonWarning,
				Message:  fmt.Sprintf("target field is required (min %d) and has no action", mf.Target.Min),
			}},
		}
	}

	res := sc.EvaluationResult{Status: sc.StatusOK, MappingStatus: sc.MappingCompatible}
	if class != sc.ClassificationCompatible {
		res.MappingStatus = sc.MappingWarning
		res.HasWarnings = true
	}
	return res
}

// EvaluateCreation evaluates a target without sources on cardinality alone.
func EvaluateCreation(m *profile.Mapping, actions map[string]sc.ActionInfo) Evaluations {
	out := make(Evaluations, len(m.Fields()))

	for _, mf := range m.Fields() {
		info, ok := actions[mf.Path]
		if !ok {
			out[mf.Path] = failed(mf.Path)
			continue
		}

		switch {
		case IsActive(info):
			out[mf.Path] = resolved(info)
		case mf.IsTargetRequired():
			out[mf.Path] = sc.EvaluationResult{
				Status:        sc.StatusActionRequired,
				MappingStatus: sc.MappingIncompatible,
				HasErrors:     true,
				Reasons: []sc.EvaluationReason{{
					Code:     sc.ReasonCodeRequiredNoAction,
					Severity: sc.ReasonError,
					Message:  fmt.Sprintf("target field is required (min %d) and has no action", mf.Target.Min),
				}},
			}
		default:
			out[mf.Path] = sc.EvaluationResult{
				Status:        sc.StatusOptionalPending,
				MappingStatus: sc.MappingCompatible,
				Reasons: []sc.EvaluationReason{{
					Code:     sc.ReasonCodeOptionalPending,
					Severity: sc.ReasonInfo,
					Message:  "optional field without action",
				}},
			}
		}
	}
	return out
}

func resolved(info sc.ActionInfo) sc.EvaluationResult {
	return sc.EvaluationResult{
		Status:        sc.StatusResolved,
		MappingStatus: sc.MappingSolved,
		Reasons: []sc.EvaluationReason{{
			Code:          sc.ReasonCodeResolvedByAction,
			Severity:      sc.ReasonInfo,
			Message:       fmt.Sprintf("resolved by %s action (%s)", info.Action, info.Source),
			RelatedAction: info.Action,
		}},
	}
}

func failed(path string) sc.EvaluationResult {
	return sc.EvaluationResult{
		Status:        sc.StatusEvaluationFailed,
		MappingStatus: sc.MappingIncompatible,
		HasErrors:     true,
		Reasons: []sc.EvaluationReason{{
			Code:     sc.ReasonCodeMissingAction,
			Severity: sc.ReasonError,
			Message:  "no action computed for " + path,
		}},
	}
}
