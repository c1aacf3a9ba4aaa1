package structurecomparer

// IssueSeverity represents the severity of a flag raised during a computation.
type IssueSeverity string

const (
	// SeverityError indicates a reference the caller must fix.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates degraded output that should be reviewed.
	SeverityWarning IssueSeverity = "warning"
	// SeverityInformation indicates informational feedback.
	SeverityInformation IssueSeverity = "information"
)

// IssueType identifies the kind of flag.
type IssueType string

const (
	// IssueTypeDanglingReference indicates a manual "other" reference to a field that does not exist.
	IssueTypeDanglingReference IssueType = "dangling-reference"
	// IssueTypeMissingReference indicates a copy action without an "other" reference.
	IssueTypeMissingReference IssueType = "missing-reference"
	// IssueTypeSuppressedRecommendation indicates a recommendation was dropped.
	IssueTypeSuppressedRecommendation IssueType = "suppressed-recommendation"
	// IssueTypeClassificationMissing indicates the field had no classification.
	IssueTypeClassificationMissing IssueType = "classification-missing"
	// IssueTypeIgnoredEntry indicates a manual entry that was not applied.
	IssueTypeIgnoredEntry IssueType = "ignored-entry"
	// IssueTypeConflict indicates a recommendation was rewritten by the conflict detector.
	IssueTypeConflict IssueType = "conflict"
)

// Issue is a non-fatal flag attached to a field.
type Issue struct {
	// Severity of the issue
	Severity IssueSeverity `json:"severity"`

	// Code identifying the type of issue
	Code IssueType `json:"code"`

	// Diagnostics contains human-readable details about the issue
	Diagnostics string `json:"diagnostics,omitempty"`

	// Field is the path of the field the issue is attached to
	Field string `json:"field"`

	// Related is the path of the other field involved, if any
	Related string `json:"related,omitempty"`

	// Stage is the computation stage that raised the issue
	Stage string `json:"stage,omitempty"`
}

// IsError returns true if this is an error issue.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError
}

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	return string(i.Severity) + ": " + i.Diagnostics + " at " + i.Field
}

// IssueBuilder provides a fluent API for building issues.
type IssueBuilder struct {
	issue Issue
}

// NewIssue creates a new IssueBuilder.
func NewIssue(severity IssueSeverity, code IssueType) *IssueBuilder {
	return &IssueBuilder{
		issue: Issue{
			Severity: severity,
			Code:     code,
		},
	}
}

// Error creates an error issue.
func Error(code IssueType) *IssueBuilder {
	return NewIssue(SeverityError, code)
}

// Warning creates a warning issue.
func Warning(code IssueType) *IssueBuilder {
	return NewIssue(SeverityWarning, code)
}

// Info creates an informational issue.
func Info(code IssueType) *IssueBuilder {
	return NewIssue(SeverityInformation, code)
}

// Diagnostics sets the diagnostic message.
func (b *IssueBuilder) Diagnostics(msg string) *IssueBuilder {
	b.issue.Diagnostics = msg
	return b
}

// At sets the field path.
func (b *IssueBuilder) At(path string) *IssueBuilder {
	b.issue.Field = path
	return b
}

// Related sets the other field involved.
func (b *IssueBuilder) Related(path string) *IssueBuilder {
	b.issue.Related = path
	return b
}

// Stage sets the stage name.
func (b *IssueBuilder) Stage(stage string) *IssueBuilder {
	b.issue.Stage = stage
	return b
}

// Build returns the constructed issue.
func (b *IssueBuilder) Build() Issue {
	return b.issue
}
