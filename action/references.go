package action

import (
	"fmt"

	sc "github.com/gematik/structure-comparer"
)

const stageName = "resolve"

// filterEntries drops auto-generated and unusable entries. Dropped entries
// are reported as issues.
func filterEntries(manual sc.ManualEntries, has func(string) bool) (sc.ManualEntries, []sc.Issue) {
	out := make(sc.ManualEntries, len(manual))
	var issues []sc.Issue

	for _, path := range sortedKeys(manual) {
		entry := manual[path]
		switch {
		case entry.AutoGenerated:
			continue
		case !entry.Action.IsValid():
			issues = append(issues, sc.Warning(sc.IssueTypeIgnoredEntry).
				Diagnostics(fmt.Sprintf("manual entry has no valid action (%q)", entry.Action)).
				At(path).Stage(stageName).Build())
			continue
		case !has(path):
			issues = append(issues, sc.Info(sc.IssueTypeIgnoredEntry).
				Diagnostics("manual entry for a field that is not part of the mapping").
				At(path).Stage(stageName).Build())
			continue
		}
		out[path] = entry
	}
	return out, issues
}

// checkCycles fails when following "other" through entries of the same copy
// direction returns to a field already on the chain.
func checkCycles(manual sc.ManualEntries) error {
	done := make(map[string]bool, len(manual))

	for _, start := range sortedKeys(manual) {
		if done[start] {
			continue
		}
		entry := manual[start]
		if !entry.Action.NeedsOther() || entry.Other == "" {
			continue
		}

		onChain := map[string]int{}
		var chain []string
		cur := start
		for {
			if idx, seen := onChain[cur]; seen {
				cycle := append([]string(nil), chain[idx:]...)
				return &sc.CycleError{Chain: append(cycle, cur)}
			}
			if done[cur] {
				break
			}
			e, ok := manual[cur]
			if !ok || e.Action != entry.Action || e.Other == "" {
				break
			}
			onChain[cur] = len(chain)
			chain = append(chain, cur)
			cur = e.Other
		}
		for _, p := range chain {
			done[p] = true
		}
	}
	return nil
}

// augmentCopyLinks mirrors every copy link: COPY_FROM on X with other Y
// implies COPY_TO on Y with other X, and vice versa. Fields with their own
// entry keep it. The returned set marks the derived paths.
func augmentCopyLinks(manual sc.ManualEntries, has func(string) bool) (sc.ManualEntries, map[string]string) {
	out := make(sc.ManualEntries, len(manual))
	for path, entry := range manual {
		out[path] = entry
	}
	derived := make(map[string]string)

	for _, path := range sortedKeys(manual) {
		entry := manual[path]
		if entry.Other == "" || !has(entry.Other) {
			continue
		}
		if _, exists := out[entry.Other]; exists {
			continue
		}

		var mirrored sc.ActionType
		switch entry.Action {
		case sc.ActionCopyFrom:
			mirrored = sc.ActionCopyTo
		case sc.ActionCopyTo:
			mirrored = sc.ActionCopyFrom
		default:
			continue
		}
		out[entry.Other] = sc.ManualEntry{Action: mirrored, Other: path}
		derived[entry.Other] = path
	}
	return out, derived
}

// checkReferences flags copy entries whose "other" is missing or does not
// exist. It returns the paths with a dangling reference.
func checkReferences(manual sc.ManualEntries, has func(string) bool) (map[string]bool, []sc.Issue) {
	dangling := make(map[string]bool)
	var issues []sc.Issue

	for _, path := range sortedKeys(manual) {
		entry := manual[path]
		if !entry.Action.IsCopy() {
			continue
		}
		if entry.Other == "" {
			if entry.Action.NeedsOther() {
				issues = append(issues, sc.Warning(sc.IssueTypeMissingReference).
					Diagnostics(fmt.Sprintf("%s action without a referenced field", entry.Action)).
					At(path).Stage(stageName).Build())
			}
			continue
		}
		if !has(entry.Other) {
			dangling[path] = true
			issues = append(issues, sc.Error(sc.IssueTypeDanglingReference).
				Diagnostics(fmt.Sprintf("referenced field '%s' does not exist", entry.Other)).
				At(path).Related(entry.Other).Stage(stageName).Build())
		}
	}
	return dangling, issues
}
