package structurecomparer

// Classification is the externally computed compatibility of a field.
type Classification string

const (
	ClassificationCompatible   Classification = "compatible"
	ClassificationWarning      Classification = "warning"
	ClassificationIncompatible Classification = "incompatible"
	ClassificationUnknown      Classification = "unknown"
)

// ParseClassification maps free text to a Classification. Anything
// unrecognized is ClassificationUnknown.
func ParseClassification(s string) Classification {
	switch Classification(s) {
	case ClassificationCompatible, ClassificationWarning, ClassificationIncompatible:
		return Classification(s)
	default:
		return ClassificationUnknown
	}
}

// Variant selects the comparison flavour.
type Variant string

const (
	// VariantMapping compares a target against one or more sources.
	VariantMapping Variant = "mapping"
	// VariantCreation populates a target with no source comparison.
	VariantCreation Variant = "creation"
)

// EvaluationStatus is the outcome of evaluating one field.
type EvaluationStatus string

const (
	StatusOK               EvaluationStatus = "ok"
	StatusActionRequired   EvaluationStatus = "action_required"
	StatusResolved         EvaluationStatus = "resolved"
	StatusIncompatible     EvaluationStatus = "incompatible"
	StatusOptionalPending  EvaluationStatus = "optional_pending"
	StatusUnknown          EvaluationStatus = "unknown"
	StatusEvaluationFailed EvaluationStatus = "evaluation_failed"
)

// MappingStatus is the status bucket surfaced to clients.
type MappingStatus string

const (
	MappingIncompatible MappingStatus = "incompatible"
	MappingWarning      MappingStatus = "warning"
	MappingSolved       MappingStatus = "solved"
	MappingCompatible   MappingStatus = "compatible"
)

// ReasonSeverity grades an evaluation reason.
type ReasonSeverity string

const (
	ReasonInfo    ReasonSeverity = "info"
	ReasonWarning ReasonSeverity = "warning"
	ReasonError   ReasonSeverity = "error"
)

// Reason codes emitted by the evaluators.
const (
	ReasonCodeIncompatible          = "CLASSIFICATION_INCOMPATIBLE"
	ReasonCodeResolvedByAction      = "RESOLVED_BY_ACTION"
	ReasonCodeRequiredNoAction      = "TARGET_REQUIRED_NO_ACTION"
	ReasonCodeRequiredNotUse        = "TARGET_REQUIRED_NOT_USE"
	ReasonCodeInheritedIncompatible = "INHERITED_INCOMPATIBLE"
	ReasonCodeClassificationMissing = "CLASSIFICATION_MISSING"
	ReasonCodeOptionalPending       = "OPTIONAL_NO_ACTION"
	ReasonCodeMissingAction         = "MISSING_ACTION_INFO"
)

// EvaluationReason explains an evaluation outcome.
type EvaluationReason struct {
	Code          string         `json:"code"`
	Severity      ReasonSeverity `json:"severity"`
	Message       string         `json:"message,omitempty"`
	RelatedAction ActionType     `json:"relatedAction,omitempty"`
}

// EvaluationResult is the derived status of one field.
type EvaluationResult struct {
	Status        EvaluationStatus   `json:"status"`
	MappingStatus MappingStatus      `json:"mappingStatus"`
	Reasons       []EvaluationReason `json:"reasons,omitempty"`
	HasWarnings   bool               `json:"hasWarnings"`
	HasErrors     bool               `json:"hasErrors"`

	// InheritedIncompatibleFrom names the incompatible ancestor when the
	// status was set by propagation.
	InheritedIncompatibleFrom string `json:"inheritedIncompatibleFrom,omitempty"`
}

// StatusSummary holds bucket counts over all evaluated fields.
type StatusSummary struct {
	Variant Variant `json:"variant"`
	Total   int     `json:"total"`

	// Mapping variant buckets.
	Incompatible int `json:"incompatible"`
	Warning      int `json:"warning"`
	Solved       int `json:"solved"`
	Compatible   int `json:"compatible"`

	// Creation variant buckets.
	ActionRequired  int `json:"actionRequired"`
	Resolved        int `json:"resolved"`
	OptionalPending int `json:"optionalPending"`
}

// BucketSum returns the sum of the variant's buckets. It always equals
// Total for a summary produced by the aggregator.
func (s StatusSummary) BucketSum() int {
	if s.Variant == VariantCreation {
		return s.ActionRequired + s.Resolved + s.OptionalPending
	}
	return s.Incompatible + s.Warning + s.Solved + s.Compatible
}

// CompletionPercentage returns the share of finished fields in [0, 100].
func (s StatusSummary) CompletionPercentage() float64 {
	if s.Total == 0 {
		return 0
	}
	done := s.Compatible + s.Solved
	if s.Variant == VariantCreation {
		done = s.Resolved + s.OptionalPending
	}
	return float64(done) / float64(s.Total) * 100
}
