package structurecomparer

import (
	"sort"
	"sync"
)

// Result is the outcome of one computation.
type Result struct {
	// ID identifies the mapping or creation entity, if known
	ID string `json:"id,omitempty"`

	// Variant is the comparison flavour the result was computed for
	Variant Variant `json:"variant"`

	// Fields lists all field paths in hierarchy order
	Fields []string `json:"fields"`

	// Actions holds the active action per field
	Actions map[string]ActionInfo `json:"actions"`

	// Recommendations holds ordered suggestions per field
	Recommendations map[string][]ActionInfo `json:"recommendations,omitempty"`

	// ActionsAllowed holds the actions a user may pick per field
	ActionsAllowed map[string][]ActionType `json:"actionsAllowed,omitempty"`

	// Evaluations holds the derived status per field
	Evaluations map[string]EvaluationResult `json:"evaluations"`

	// Summary holds the aggregated status counts
	Summary StatusSummary `json:"summary"`

	// Issues contains non-fatal flags raised during the computation
	Issues []Issue `json:"issues,omitempty"`

	// mu protects concurrent access to Issues
	mu sync.Mutex
}

// NewResult creates an empty result.
func NewResult(id string, variant Variant) *Result {
	return &Result{
		ID:              id,
		Variant:         variant,
		Actions:         make(map[string]ActionInfo),
		Recommendations: make(map[string][]ActionInfo),
		ActionsAllowed:  make(map[string][]ActionType),
		Evaluations:     make(map[string]EvaluationResult),
	}
}

// AddIssue adds an issue to the result.
// This method is thread-safe.
func (r *Result) AddIssue(issue Issue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Issues = append(r.Issues, issue)
}

// AddIssues adds multiple issues to the result.
// This method is thread-safe.
func (r *Result) AddIssues(issues []Issue) {
	if len(issues) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Issues = append(r.Issues, issues...)
}

// IssuesFor returns the issues attached to a field.
func (r *Result) IssuesFor(path string) []Issue {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Issue
	for _, iss := range r.Issues {
		if iss.Field == path {
			out = append(out, iss)
		}
	}
	return out
}

// HasErrors returns true if any error issue was raised.
func (r *Result) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, iss := range r.Issues {
		if iss.IsError() {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error issues.
func (r *Result) ErrorCount() int {
	return r.countSeverity(SeverityError)
}

// WarningCount returns the number of warning issues.
func (r *Result) WarningCount() int {
	return r.countSeverity(SeverityWarning)
}

func (r *Result) countSeverity(s IssueSeverity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, iss := range r.Issues {
		if iss.Severity == s {
			n++
		}
	}
	return n
}

// RecommendationCount returns the number of recommendations over all fields.
func (r *Result) RecommendationCount() int {
	n := 0
	for _, recs := range r.Recommendations {
		n += len(recs)
	}
	return n
}

// SortIssues orders issues by field path, then code.
func (r *Result) SortIssues() {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.SliceStable(r.Issues, func(i, j int) bool {
		if r.Issues[i].Field != r.Issues[j].Field {
			return r.Issues[i].Field < r.Issues[j].Field
		}
		return r.Issues[i].Code < r.Issues[j].Code
	})
}
