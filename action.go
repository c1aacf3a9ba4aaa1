package structurecomparer

import (
	"fmt"
	"strings"
)

// ActionType is the decision taken for a single target field.
type ActionType string

const (
	// ActionNone means no action has been selected yet.
	ActionNone ActionType = ""
	// ActionUse retains the property and its value(s).
	ActionUse ActionType = "use"
	// ActionUseRecursive retains the property and every descendant.
	ActionUseRecursive ActionType = "use_recursive"
	// ActionNotUse drops the property and its value(s).
	ActionNotUse ActionType = "not_use"
	// ActionEmpty leaves the property empty for now.
	ActionEmpty ActionType = "empty"
	// ActionManual requires a human to implement the field, see the remark.
	ActionManual ActionType = "manual"
	// ActionFixed pins the field to a constant value.
	ActionFixed ActionType = "fixed"
	// ActionCopyFrom fills the field from another field.
	ActionCopyFrom ActionType = "copy_from"
	// ActionCopyTo writes the field's value into another field.
	ActionCopyTo ActionType = "copy_to"
	// ActionExtension derives the field from a source extension.
	ActionExtension ActionType = "extension"
)

// AllActions lists every selectable action in declaration order.
var AllActions = []ActionType{
	ActionUse,
	ActionUseRecursive,
	ActionNotUse,
	ActionEmpty,
	ActionManual,
	ActionFixed,
	ActionCopyFrom,
	ActionCopyTo,
	ActionExtension,
}

// String returns the action string.
func (a ActionType) String() string {
	return string(a)
}

// IsValid returns true if a is a known action. ActionNone is not valid.
func (a ActionType) IsValid() bool {
	switch a {
	case ActionUse, ActionUseRecursive, ActionNotUse, ActionEmpty, ActionManual,
		ActionFixed, ActionCopyFrom, ActionCopyTo, ActionExtension:
		return true
	default:
		return false
	}
}

// IsCopy reports whether the action links the field to another field.
func (a ActionType) IsCopy() bool {
	return a == ActionCopyFrom || a == ActionCopyTo || a == ActionExtension
}

// NeedsOther reports whether the action requires an "other" field reference.
func (a ActionType) NeedsOther() bool {
	return a == ActionCopyFrom || a == ActionCopyTo
}

// ParseAction parses an action name. Upper case and dashes are accepted.
func ParseAction(s string) (ActionType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	if norm == "" {
		return ActionNone, nil
	}
	a := ActionType(norm)
	if !a.IsValid() {
		return ActionNone, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// ActionSource tells where an active action came from.
type ActionSource string

const (
	// SourceManual is an explicit user override. It is never overwritten.
	SourceManual ActionSource = "manual"
	// SourceInherited is derived from an ancestor's action.
	SourceInherited ActionSource = "inherited"
	// SourceSystemDefault is derived from the schema itself.
	SourceSystemDefault ActionSource = "system_default"
	// SourceRecommendation marks a suggestion that is not active.
	SourceRecommendation ActionSource = "recommendation"
)

// ActionInfo describes one action for one field. Exactly one ActionInfo is
// active per field; recommendations carry SourceRecommendation.
type ActionInfo struct {
	Action        ActionType   `json:"action,omitempty" yaml:"action,omitempty"`
	Source        ActionSource `json:"source" yaml:"source"`
	FixedValue    any          `json:"fixedValue,omitempty" yaml:"fixedValue,omitempty"`
	Other         string       `json:"other,omitempty" yaml:"other,omitempty"`
	Remark        string       `json:"remark,omitempty" yaml:"remark,omitempty"`
	SystemRemarks []string     `json:"systemRemarks,omitempty" yaml:"systemRemarks,omitempty"`
	AutoGenerated bool         `json:"autoGenerated" yaml:"autoGenerated"`
	InheritedFrom string       `json:"inheritedFrom,omitempty" yaml:"inheritedFrom,omitempty"`

	// ImplicitSlice is set when Other points at a structurally valid field
	// that the target profile does not declare explicitly.
	ImplicitSlice bool `json:"implicitSlice,omitempty" yaml:"implicitSlice,omitempty"`
}

// HasAction returns true if an action has been selected.
func (i ActionInfo) HasAction() bool {
	return i.Action != ActionNone
}

// IsRecommendation returns true if this is a suggestion.
func (i ActionInfo) IsRecommendation() bool {
	return i.Source == SourceRecommendation
}

// SystemRemark returns the first system remark, or "".
func (i ActionInfo) SystemRemark() string {
	if len(i.SystemRemarks) == 0 {
		return ""
	}
	return i.SystemRemarks[0]
}

// WithSystemRemark returns a copy of i with remark appended.
func (i ActionInfo) WithSystemRemark(remark string) ActionInfo {
	if remark == "" {
		return i
	}
	remarks := make([]string, 0, len(i.SystemRemarks)+1)
	remarks = append(remarks, i.SystemRemarks...)
	i.SystemRemarks = append(remarks, remark)
	return i
}

// Equal compares two infos field by field. FixedValue is compared by its
// display form.
func (i ActionInfo) Equal(o ActionInfo) bool {
	if i.Action != o.Action || i.Source != o.Source || i.Other != o.Other ||
		i.Remark != o.Remark || i.AutoGenerated != o.AutoGenerated ||
		i.InheritedFrom != o.InheritedFrom || i.ImplicitSlice != o.ImplicitSlice {
		return false
	}
	if fmt.Sprint(i.FixedValue) != fmt.Sprint(o.FixedValue) {
		return false
	}
	if len(i.SystemRemarks) != len(o.SystemRemarks) {
		return false
	}
	for k := range i.SystemRemarks {
		if i.SystemRemarks[k] != o.SystemRemarks[k] {
			return false
		}
	}
	return true
}

// ManualEntry is a persisted user override for one field.
type ManualEntry struct {
	Action ActionType `json:"action" yaml:"action"`
	Fixed  string     `json:"fixed,omitempty" yaml:"fixed,omitempty"`
	Other  string     `json:"other,omitempty" yaml:"other,omitempty"`
	Remark string     `json:"remark,omitempty" yaml:"remark,omitempty"`

	// AutoGenerated entries were written back by an earlier computation
	// and are ignored on input.
	AutoGenerated bool `json:"autoGenerated,omitempty" yaml:"autoGenerated,omitempty"`
}

// ManualEntries maps field paths to overrides.
type ManualEntries map[string]ManualEntry

// DefaultRemark returns the standard remark for an action. other is
// substituted for the copy actions and fixed for ActionFixed.
func DefaultRemark(action ActionType, other, fixed string) string {
	switch action {
	case ActionUse, ActionUseRecursive:
		return "Property and value(s) will be retained"
	case ActionNotUse:
		return "Property and value(s) will NOT be retained"
	case ActionEmpty:
		return "Will remain empty for now, as no source information is available"
	case ActionExtension:
		return "Extension and value(s) will be retained"
	case ActionCopyFrom:
		return fmt.Sprintf("Mapped from '%s'", other)
	case ActionCopyTo:
		return fmt.Sprintf("Mapped to '%s'", other)
	case ActionFixed:
		return fmt.Sprintf("Set to '%s' fixed value", fixed)
	default:
		return ""
	}
}
