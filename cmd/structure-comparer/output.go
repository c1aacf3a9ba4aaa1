package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/fixedvalue"
)

func printTextResult(w io.Writer, result *sc.Result, opts *Options) {
	name := result.ID
	if name == "" {
		name = string(result.Variant)
	}

	s := result.Summary
	fmt.Fprintf(w, "== %s ==\n", name)
	fmt.Fprintf(w, "Variant: %s\n", result.Variant)
	if result.Variant == sc.VariantCreation {
		fmt.Fprintf(w, "Fields: %d (resolved %d, optional pending %d, action required %d)\n",
			s.Total, s.Resolved, s.OptionalPending, s.ActionRequired)
	} else {
		fmt.Fprintf(w, "Fields: %d (compatible %d, solved %d, warning %d, incompatible %d)\n",
			s.Total, s.Compatible, s.Solved, s.Warning, s.Incompatible)
	}
	fmt.Fprintf(w, "Completion: %.1f%%\n\n", s.CompletionPercentage())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tSTATUS\tACTION\tRECOMMENDED")
	for _, path := range result.Fields {
		eval := result.Evaluations[path]
		if opts.Quiet && !needsAttention(eval) {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", path, eval.Status,
			formatAction(result.Actions[path]), formatRecommendations(result.Recommendations[path]))
	}
	tw.Flush()

	if len(result.Issues) > 0 {
		fmt.Fprintln(w, "\nIssues:")
		for _, iss := range result.Issues {
			if opts.Quiet && iss.Severity == sc.SeverityInformation {
				continue
			}
			location := ""
			if iss.Field != "" {
				location = " @ " + iss.Field
			}
			fmt.Fprintf(w, "  %s [%s] %s%s\n", severityLabel(iss.Severity), iss.Code, iss.Diagnostics, location)
		}
	}
	fmt.Fprintln(w)
}

func needsAttention(eval sc.EvaluationResult) bool {
	switch eval.Status {
	case sc.StatusOK, sc.StatusResolved, sc.StatusOptionalPending:
		return false
	default:
		return true
	}
}

func formatAction(info sc.ActionInfo) string {
	if !info.HasAction() {
		return "-"
	}
	var b strings.Builder
	b.WriteString(string(info.Action))
	switch {
	case info.Other != "":
		b.WriteString(" " + info.Other)
	case info.FixedValue != nil:
		b.WriteString(" = " + fixedvalue.FormatForDisplay(info.FixedValue))
	}
	fmt.Fprintf(&b, " (%s)", strings.ToLower(string(info.Source)))
	return b.String()
}

func formatRecommendations(recs []sc.ActionInfo) string {
	if len(recs) == 0 {
		return ""
	}
	parts := make([]string, len(recs))
	for i, r := range recs {
		parts[i] = string(r.Action)
		if r.Other != "" {
			parts[i] += " " + r.Other
		}
	}
	return strings.Join(parts, ", ")
}

func severityLabel(severity sc.IssueSeverity) string {
	switch severity {
	case sc.SeverityError:
		return "ERROR"
	case sc.SeverityWarning:
		return "WARN "
	case sc.SeverityInformation:
		return "INFO "
	default:
		return "     "
	}
}
