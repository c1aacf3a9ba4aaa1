package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/hierarchy"
	"github.com/gematik/structure-comparer/profile"
)

func fld(path string, min int, max string) profile.Field {
	return profile.Field{Path: path, Min: min, Max: max}
}

func testMapping(t *testing.T) (*profile.Mapping, *hierarchy.Navigator) {
	t.Helper()

	target := profile.New("target", []profile.Field{
		fld("Observation", 0, "*"),
		fld("Observation.status", 1, "1"),
		fld("Observation.code", 1, "1"),
		fld("Observation.code.coding", 0, "*"),
		fld("Observation.code.coding.system", 0, "1"),
		fld("Observation.code.text", 0, "1"),
		fld("Observation.note", 0, "*"),
		fld("Observation.note.text", 0, "1"),
	})
	source := profile.New("source", []profile.Field{
		fld("Observation", 0, "*"),
		fld("Observation.status", 1, "1"),
		fld("Observation.code", 1, "1"),
		fld("Observation.code.coding", 0, "*"),
		fld("Observation.code.coding.system", 0, "1"),
		fld("Observation.code.text", 0, "1"),
		fld("Observation.note", 0, "*"),
		fld("Observation.note.text", 0, "1"),
	})

	m, err := profile.NewMapping("m1", target, source)
	require.NoError(t, err)
	nav, err := hierarchy.Build(m.Paths())
	require.NoError(t, err)
	return m, nav
}

func noActions(m *profile.Mapping) map[string]sc.ActionInfo {
	out := make(map[string]sc.ActionInfo)
	for _, p := range m.Paths() {
		out[p] = sc.ActionInfo{Source: sc.SourceSystemDefault, AutoGenerated: true}
	}
	return out
}

func allCompatible(m *profile.Mapping) map[string]sc.Classification {
	out := make(map[string]sc.Classification)
	for _, p := range m.Paths() {
		out[p] = sc.ClassificationCompatible
	}
	return out
}

func TestIsActive(t *testing.T) {
	tests := []struct {
		name string
		info sc.ActionInfo
		want bool
	}{
		{"no action", sc.ActionInfo{Source: sc.SourceSystemDefault, AutoGenerated: true}, false},
		{"manual", sc.ActionInfo{Action: sc.ActionUse, Source: sc.SourceManual}, true},
		{"manual flagged auto", sc.ActionInfo{Action: sc.ActionUse, Source: sc.SourceManual, AutoGenerated: true}, false},
		{"inherited", sc.ActionInfo{Action: sc.ActionUse, Source: sc.SourceInherited, AutoGenerated: true}, true},
		{"inherited not auto", sc.ActionInfo{Action: sc.ActionUse, Source: sc.SourceInherited}, false},
		{"fixed default", sc.ActionInfo{Action: sc.ActionFixed, Source: sc.SourceSystemDefault, AutoGenerated: true}, true},
		{"recommendation", sc.ActionInfo{Action: sc.ActionUse, Source: sc.SourceRecommendation, AutoGenerated: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsActive(tt.info))
		})
	}
}

func TestEvaluateMapping(t *testing.T) {
	m, _ := testMapping(t)
	manual := sc.ActionInfo{Action: sc.ActionUse, Source: sc.SourceManual}
	notUse := sc.ActionInfo{Action: sc.ActionNotUse, Source: sc.SourceManual}

	tests := []struct {
		name       string
		path       string
		class      sc.Classification
		action     *sc.ActionInfo
		wantStatus sc.EvaluationStatus
		wantMap    sc.MappingStatus
		wantCode   string
	}{
		{"incompatible without action", "Observation.note", sc.ClassificationIncompatible, nil,
			sc.StatusActionRequired, sc.MappingIncompatible, sc.ReasonCodeIncompatible},
		{"incompatible resolved", "Observation.note", sc.ClassificationIncompatible, &manual,
			sc.StatusResolved, sc.MappingSolved, sc.ReasonCodeResolvedByAction},
		{"required without action", "Observation.status", sc.ClassificationCompatible, nil,
			sc.StatusActionRequired, sc.MappingWarning, sc.ReasonCodeRequiredNoAction},
		{"required not used", "Observation.status", sc.ClassificationCompatible, &notUse,
			sc.StatusActionRequired, sc.MappingWarning, sc.ReasonCodeRequiredNotUse},
		{"required with action", "Observation.status", sc.ClassificationCompatible, &manual,
			sc.StatusResolved, sc.MappingSolved, sc.ReasonCodeResolvedByAction},
		{"optional compatible", "Observation.note.text", sc.ClassificationCompatible, nil,
			sc.StatusOK, sc.MappingCompatible, ""},
		{"optional warning", "Observation.note.text", sc.ClassificationWarning, nil,
			sc.StatusOK, sc.MappingWarning, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := noActions(m)
			if tt.action != nil {
				actions[tt.path] = *tt.action
			}
			class := allCompatible(m)
			class[tt.path] = tt.class

			evals, issues := EvaluateMapping(m, actions, class)
			assert.Empty(t, issues)

			res := evals[tt.path]
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantMap, res.MappingStatus)
			if tt.wantCode == "" {
				assert.Empty(t, res.Reasons)
			} else {
				require.NotEmpty(t, res.Reasons)
				assert.Equal(t, tt.wantCode, res.Reasons[0].Code)
			}
		})
	}
}

func TestEvaluateMapping_MissingClassification(t *testing.T) {
	m, _ := testMapping(t)
	class := allCompatible(m)
	delete(class, "Observation.note.text")

	evals, issues := EvaluateMapping(m, noActions(m), class)

	require.Len(t, issues, 1)
	assert.Equal(t, sc.IssueTypeClassificationMissing, issues[0].Code)
	assert.Equal(t, "Observation.note.text", issues[0].Field)

	res := evals["Observation.note.text"]
	assert.Equal(t, sc.MappingWarning, res.MappingStatus)
	require.Len(t, res.Reasons, 1)
	assert.Equal(t, sc.ReasonCodeClassificationMissing, res.Reasons[0].Code)
}

func TestEvaluateMapping_MissingAction(t *testing.T) {
	m, _ := testMapping(t)
	actions := noActions(m)
	delete(actions, "Observation.code.text")

	evals, _ := EvaluateMapping(m, actions, allCompatible(m))
	res := evals["Observation.code.text"]
	assert.Equal(t, sc.StatusEvaluationFailed, res.Status)
	assert.True(t, res.HasErrors)
	require.Len(t, res.Reasons, 1)
	assert.Equal(t, sc.ReasonCodeMissingAction, res.Reasons[0].Code)
	assert.Equal(t, sc.ReasonError, res.Reasons[0].Severity)
	assert.Len(t, evals, len(m.Paths()))
}

func TestEvaluateCreation(t *testing.T) {
	m, _ := testMapping(t)
	actions := noActions(m)
	actions["Observation.code"] = sc.ActionInfo{Action: sc.ActionManual, Source: sc.SourceManual}

	evals := EvaluateCreation(m, actions)

	assert.Equal(t, sc.StatusResolved, evals["Observation.code"].Status)
	assert.Equal(t, sc.StatusActionRequired, evals["Observation.status"].Status)
	assert.Equal(t, sc.MappingIncompatible, evals["Observation.status"].MappingStatus)
	assert.Equal(t, sc.StatusOptionalPending, evals["Observation.note"].Status)

	s := Aggregate(sc.VariantCreation, evals)
	assert.Equal(t, len(m.Paths()), s.Total)
	assert.Equal(t, 1, s.Resolved)
	assert.Equal(t, 1, s.ActionRequired)
	assert.Equal(t, s.Total, s.BucketSum())
}

func TestPropagate(t *testing.T) {
	m, nav := testMapping(t)
	class := allCompatible(m)
	class["Observation.code"] = sc.ClassificationIncompatible
	class["Observation.code.coding"] = sc.ClassificationIncompatible

	actions := noActions(m)
	actions["Observation.code.text"] = sc.ActionInfo{Action: sc.ActionUse, Source: sc.SourceManual}

	evals, _ := EvaluateMapping(m, actions, class)
	changed := Propagate(nav, evals, actions)
	assert.Equal(t, 1, changed)

	system := evals["Observation.code.coding.system"]
	assert.Equal(t, sc.StatusActionRequired, system.Status)
	assert.Equal(t, sc.MappingIncompatible, system.MappingStatus)
	assert.Equal(t, "Observation.code.coding", system.InheritedIncompatibleFrom)
	assert.Equal(t, sc.ReasonCodeInheritedIncompatible, system.Reasons[len(system.Reasons)-1].Code)

	assert.Empty(t, evals["Observation.code.coding"].InheritedIncompatibleFrom)
	assert.Equal(t, sc.MappingSolved, evals["Observation.code.text"].MappingStatus)
	assert.Equal(t, sc.MappingCompatible, evals["Observation.note.text"].MappingStatus)
}

func TestPropagate_ResolvedParentStopsPropagation(t *testing.T) {
	m, nav := testMapping(t)
	class := allCompatible(m)
	class["Observation.note"] = sc.ClassificationIncompatible

	actions := noActions(m)
	actions["Observation.note"] = sc.ActionInfo{Action: sc.ActionNotUse, Source: sc.SourceManual}

	evals, _ := EvaluateMapping(m, actions, class)
	assert.Zero(t, Propagate(nav, evals, actions))
	assert.Equal(t, sc.MappingCompatible, evals["Observation.note.text"].MappingStatus)
}

func TestAggregate(t *testing.T) {
	evals := Evaluations{
		"a": {MappingStatus: sc.MappingCompatible},
		"b": {MappingStatus: sc.MappingCompatible},
		"c": {MappingStatus: sc.MappingSolved},
		"d": {MappingStatus: sc.MappingWarning},
		"e": {MappingStatus: sc.MappingIncompatible},
		"f": {},
	}

	s := Aggregate(sc.VariantMapping, evals)
	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 2, s.Compatible)
	assert.Equal(t, 1, s.Solved)
	assert.Equal(t, 1, s.Warning)
	assert.Equal(t, 2, s.Incompatible)
	assert.Equal(t, s.Total, s.BucketSum())
	assert.InDelta(t, 50.0, s.CompletionPercentage(), 0.001)

	empty := Aggregate(sc.VariantMapping, nil)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.CompletionPercentage())
}

func TestDescendantsSettled(t *testing.T) {
	m, nav := testMapping(t)
	class := allCompatible(m)
	actions := noActions(m)

	evals, _ := EvaluateMapping(m, actions, class)
	assert.True(t, DescendantsSettled(nav, "Observation.code", class, evals, actions, true))
	assert.True(t, DescendantsSettled(nav, "Observation.note.text", class, evals, nil, false))
	assert.False(t, DescendantsSettled(nav, "Observation.note.text", class, evals, actions, true))

	class["Observation.code.coding.system"] = sc.ClassificationWarning
	evals, _ = EvaluateMapping(m, actions, class)
	assert.False(t, DescendantsSettled(nav, "Observation.code", class, evals, actions, true))

	actions["Observation.code.coding.system"] = sc.ActionInfo{Action: sc.ActionUse, Source: sc.SourceManual}
	evals, _ = EvaluateMapping(m, actions, class)
	assert.True(t, DescendantsSettled(nav, "Observation.code", class, evals, actions, true))

	t.Run("all descendants manual", func(t *testing.T) {
		acts := noActions(m)
		acts["Observation.note.text"] = sc.ActionInfo{Action: sc.ActionUse, Source: sc.SourceManual}
		assert.False(t, DescendantsSettled(nav, "Observation.note", allCompatible(m), evals, acts, true))
	})
}

func TestAllowedActions(t *testing.T) {
	m, nav := testMapping(t)
	class := allCompatible(m)
	class["Observation.note.text"] = sc.ClassificationIncompatible
	actions := noActions(m)
	evals, _ := EvaluateMapping(m, actions, class)

	allowed := AllowedActions(m, nav, class, evals, actions)

	assert.Contains(t, allowed["Observation.code"], sc.ActionUseRecursive)
	assert.NotContains(t, allowed["Observation.note"], sc.ActionUseRecursive)
	assert.NotContains(t, allowed["Observation.code.text"], sc.ActionUseRecursive)
	assert.Contains(t, allowed["Observation.code.text"], sc.ActionUse)
	assert.NotContains(t, allowed["Observation.code.text"], sc.ActionEmpty)

	t.Run("creation", func(t *testing.T) {
		c, err := profile.NewMapping("c1", m.Target)
		require.NoError(t, err)
		cnav, err := hierarchy.Build(c.Paths())
		require.NoError(t, err)

		got := AllowedActions(c, cnav, nil, nil, nil)
		assert.Equal(t, []sc.ActionType{sc.ActionManual, sc.ActionFixed}, got["Observation.status"])
	})
}
