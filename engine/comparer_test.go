package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/pkg/logger"
	"github.com/gematik/structure-comparer/profile"
	"github.com/gematik/structure-comparer/worker"
)

func init() {
	logger.Disable()
}

func field(path string, min int, def string) profile.Field {
	f := profile.Field{Path: path, Min: min, Max: "*"}
	if def != "" {
		f.Definition = json.RawMessage(def)
	}
	return f
}

var observationPaths = []string{
	"Observation",
	"Observation.status",
	"Observation.code",
	"Observation.code.coding",
	"Observation.code.text",
	"Observation.note",
}

func observation(key string) *profile.Profile {
	fields := make([]profile.Field, 0, len(observationPaths))
	for _, p := range observationPaths {
		min := 0
		if p == "Observation.status" {
			min = 1
		}
		fields = append(fields, field(p, min, ""))
	}
	return profile.New(key, fields)
}

func observationInput() *Input {
	return &Input{
		ID:      "obs-mapping",
		Target:  observation("target"),
		Sources: []*profile.Profile{observation("source")},
		Classification: map[string]sc.Classification{
			"Observation":             sc.ClassificationCompatible,
			"Observation.status":      sc.ClassificationCompatible,
			"Observation.code":        sc.ClassificationIncompatible,
			"Observation.code.coding": sc.ClassificationCompatible,
			"Observation.code.text":   sc.ClassificationCompatible,
			"Observation.note":        sc.ClassificationCompatible,
		},
	}
}

func newComparer(t *testing.T, opts ...sc.Option) *Comparer {
	t.Helper()
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	c := newComparer(t)

	assert.Equal(t, []string{"resolve", "evaluate", "propagate", "allowed-actions", "recommend", "aggregate"}, c.Stages())
	assert.Equal(t, []string{"compatible", "copy", "use-recursive", "use-not-use", "zero-cardinality"}, c.Recommenders())
	assert.True(t, c.Options().Recommendations)
	assert.NotNil(t, c.Metrics())
}

func TestCompute_Mapping(t *testing.T) {
	c := newComparer(t)

	result, err := c.Compute(context.Background(), observationInput())
	require.NoError(t, err)

	assert.Equal(t, "obs-mapping", result.ID)
	assert.Equal(t, sc.VariantMapping, result.Variant)
	assert.Equal(t, observationPaths, result.Fields)
	assert.Len(t, result.Actions, len(observationPaths))

	for _, p := range observationPaths {
		assert.False(t, result.Actions[p].HasAction(), p)
		assert.Equal(t, sc.SourceSystemDefault, result.Actions[p].Source, p)
	}

	tests := []struct {
		path   string
		status sc.EvaluationStatus
		ms     sc.MappingStatus
		from   string
	}{
		{"Observation", sc.StatusOK, sc.MappingCompatible, ""},
		{"Observation.status", sc.StatusActionRequired, sc.MappingWarning, ""},
		{"Observation.code", sc.StatusActionRequired, sc.MappingIncompatible, ""},
		{"Observation.code.coding", sc.StatusActionRequired, sc.MappingIncompatible, "Observation.code"},
		{"Observation.code.text", sc.StatusActionRequired, sc.MappingIncompatible, "Observation.code"},
		{"Observation.note", sc.StatusOK, sc.MappingCompatible, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res := result.Evaluations[tt.path]
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.ms, res.MappingStatus)
			assert.Equal(t, tt.from, res.InheritedIncompatibleFrom)
		})
	}

	s := result.Summary
	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 2, s.Compatible)
	assert.Equal(t, 1, s.Warning)
	assert.Equal(t, 3, s.Incompatible)
	assert.Equal(t, s.Total, s.BucketSum())

	require.NotEmpty(t, result.Recommendations["Observation.note"], spew.Sdump(result.Recommendations))
	assert.Equal(t, sc.ActionUse, result.Recommendations["Observation.note"][0].Action)
	assert.True(t, result.Recommendations["Observation.note"][0].IsRecommendation())
	for _, rec := range result.Recommendations["Observation.code"] {
		assert.NotEqual(t, sc.ActionUse, rec.Action)
	}

	assert.NotContains(t, result.ActionsAllowed["Observation"], sc.ActionUseRecursive)
	assert.Contains(t, result.ActionsAllowed["Observation"], sc.ActionUse)
	assert.Empty(t, result.Issues)
}

func TestCompute_ManualResolvesSubtree(t *testing.T) {
	in := observationInput()
	in.Manual = sc.ManualEntries{
		"Observation.code": {Action: sc.ActionUseRecursive},
	}

	result, err := newComparer(t).Compute(context.Background(), in)
	require.NoError(t, err)

	for _, p := range []string{"Observation.code", "Observation.code.coding", "Observation.code.text"} {
		assert.Equal(t, sc.StatusResolved, result.Evaluations[p].Status, p)
		assert.Equal(t, sc.MappingSolved, result.Evaluations[p].MappingStatus, p)
	}
	assert.Equal(t, sc.SourceInherited, result.Actions["Observation.code.text"].Source)

	s := result.Summary
	assert.Equal(t, 3, s.Solved)
	assert.Equal(t, 0, s.Incompatible)
	assert.InDelta(t, 5.0/6.0*100, s.CompletionPercentage(), 0.001)
}

func TestCompute_MissingClassification(t *testing.T) {
	in := observationInput()
	delete(in.Classification, "Observation.note")

	result, err := newComparer(t).Compute(context.Background(), in)
	require.NoError(t, err)

	issues := result.IssuesFor("Observation.note")
	require.Len(t, issues, 1)
	assert.Equal(t, sc.IssueTypeClassificationMissing, issues[0].Code)
	assert.Equal(t, sc.MappingWarning, result.Evaluations["Observation.note"].MappingStatus)
}

func TestCompute_DanglingReference(t *testing.T) {
	in := observationInput()
	in.Manual = sc.ManualEntries{
		"Observation.note": {Action: sc.ActionCopyFrom, Other: "Observation.comment"},
	}

	result, err := newComparer(t).Compute(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, result.HasErrors())
	issues := result.IssuesFor("Observation.note")
	require.NotEmpty(t, issues)
	assert.Equal(t, sc.IssueTypeDanglingReference, issues[0].Code)
	assert.Equal(t, "Observation.comment", result.Actions["Observation.note"].Other)
	for path, info := range result.Actions {
		if path != "Observation.note" {
			assert.NotEqual(t, "Observation.comment", info.Other, path)
		}
	}
	for path, recs := range result.Recommendations {
		for _, rec := range recs {
			assert.NotEqual(t, "Observation.comment", rec.Other, path)
		}
	}
}

func TestCompute_Options(t *testing.T) {
	t.Run("no recommendations", func(t *testing.T) {
		result, err := newComparer(t, sc.WithRecommendations(false)).Compute(context.Background(), observationInput())
		require.NoError(t, err)
		assert.Zero(t, result.RecommendationCount())
	})

	t.Run("no propagation", func(t *testing.T) {
		result, err := newComparer(t, sc.WithStatusPropagation(false)).Compute(context.Background(), observationInput())
		require.NoError(t, err)
		assert.Equal(t, sc.MappingCompatible, result.Evaluations["Observation.code.coding"].MappingStatus)
		assert.Equal(t, 1, result.Summary.Incompatible)
	})

	t.Run("capped recommendations", func(t *testing.T) {
		result, err := newComparer(t, sc.WithMaxRecommendations(1)).Compute(context.Background(), observationInput())
		require.NoError(t, err)
		for path, recs := range result.Recommendations {
			assert.LessOrEqual(t, len(recs), 1, path)
		}
	})
}

func TestNew_StageToggles(t *testing.T) {
	tests := []struct {
		name string
		opts []sc.Option
		want []string
	}{
		{"defaults", nil,
			[]string{"resolve", "evaluate", "propagate", "allowed-actions", "recommend", "aggregate"}},
		{"no recommendations", []sc.Option{sc.WithRecommendations(false)},
			[]string{"resolve", "evaluate", "propagate", "allowed-actions", "aggregate"}},
		{"no propagation", []sc.Option{sc.WithStatusPropagation(false)},
			[]string{"resolve", "evaluate", "allowed-actions", "recommend", "aggregate"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newComparer(t, tt.opts...)
			assert.Equal(t, tt.want, c.Stages())

			_, err := c.Compute(context.Background(), observationInput())
			require.NoError(t, err)
			for _, stage := range []string{"propagate", "recommend"} {
				_, ran := c.Metrics().StageStats(stage)
				assert.Equal(t, contains(tt.want, stage), ran, stage)
			}
		})
	}

	t.Run("disabled propagation records nothing", func(t *testing.T) {
		c := newComparer(t, sc.WithStatusPropagation(false))
		_, err := c.Compute(context.Background(), observationInput())
		require.NoError(t, err)
		assert.Zero(t, c.Metrics().PropagatedTotal())
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestCompute_Creation(t *testing.T) {
	target := profile.New("org", []profile.Field{
		field("Organization", 0, ""),
		field("Organization.active", 1, ""),
		field("Organization.name", 1, ""),
		field("Organization.identifier", 0, ""),
		field("Organization.identifier.system", 0, `{"fixedUri":"http://example.org/ids"}`),
	})

	result, err := newComparer(t).Compute(context.Background(), &Input{
		ID:     "org-creation",
		Target: target,
		Manual: sc.ManualEntries{
			"Organization.name":       {Action: sc.ActionManual, Remark: "set by hand"},
			"Organization.identifier": {Action: sc.ActionUseRecursive},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, sc.VariantCreation, result.Variant)
	assert.Equal(t, sc.ActionFixed, result.Actions["Organization.identifier.system"].Action)
	assert.Equal(t, "http://example.org/ids", result.Actions["Organization.identifier.system"].FixedValue)
	assert.False(t, result.Actions["Organization.identifier"].HasAction())

	s := result.Summary
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Resolved)
	assert.Equal(t, 2, s.OptionalPending)
	assert.Equal(t, 1, s.ActionRequired)
	assert.Equal(t, sc.StatusActionRequired, result.Evaluations["Organization.active"].Status)

	assert.Zero(t, result.RecommendationCount())
	assert.Equal(t, []sc.ActionType{sc.ActionManual, sc.ActionFixed}, result.ActionsAllowed["Organization.name"])

	ignored := result.IssuesFor("Organization.identifier")
	require.Len(t, ignored, 1)
	assert.Equal(t, sc.IssueTypeIgnoredEntry, ignored[0].Code)
}

func TestCompute_CreationIgnoresSources(t *testing.T) {
	in := observationInput()
	in.Variant = sc.VariantCreation

	result, err := newComparer(t).Compute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, sc.VariantCreation, result.Variant)
	assert.Equal(t, 1, result.Summary.ActionRequired)
	assert.Equal(t, 5, result.Summary.OptionalPending)
}

func TestCompute_Errors(t *testing.T) {
	dup := profile.New("dup", []profile.Field{
		field("Observation", 0, ""),
		field("Observation.note", 0, ""),
		field("Observation.note", 0, ""),
	})

	cyclic := observationInput()
	cyclic.Manual = sc.ManualEntries{
		"Observation.note":      {Action: sc.ActionCopyFrom, Other: "Observation.code.text"},
		"Observation.code.text": {Action: sc.ActionCopyFrom, Other: "Observation.note"},
	}

	malformed := &Input{
		Target:  profile.New("bad", []profile.Field{field("Observation", 0, ""), field("Observation..note", 0, "")}),
		Sources: []*profile.Profile{observation("source")},
	}

	tests := []struct {
		name       string
		in         *Input
		structural bool
		sentinel   error
	}{
		{"nil input", nil, false, sc.ErrNoInput},
		{"no target", &Input{Sources: []*profile.Profile{observation("s")}}, false, sc.ErrNoInput},
		{"mapping without sources", &Input{Target: observation("t"), Variant: sc.VariantMapping}, false, sc.ErrNoInput},
		{"duplicate path", &Input{Target: dup, Sources: []*profile.Profile{observation("s")}}, true, nil},
		{"cyclic reference", cyclic, true, nil},
		{"malformed path", malformed, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newComparer(t)
			result, err := c.Compute(context.Background(), tt.in)
			require.Error(t, err)
			assert.Nil(t, result)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			assert.Equal(t, tt.structural, errors.Is(err, sc.ErrStructural), err.Error())
		})
	}

	t.Run("cycle chain", func(t *testing.T) {
		_, err := newComparer(t).Compute(context.Background(), cyclic)
		var cycle *sc.CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Len(t, cycle.Chain, 3)
	})
}

func TestCompute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newComparer(t).Compute(ctx, observationInput())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompute_Metrics(t *testing.T) {
	c := newComparer(t)

	_, err := c.Compute(context.Background(), observationInput())
	require.NoError(t, err)
	_, err = c.Compute(context.Background(), nil)
	require.Error(t, err)

	m := c.Metrics()
	assert.Equal(t, uint64(1), m.ComputationsTotal())
	assert.Equal(t, uint64(6), m.FieldsTotal())
	assert.Greater(t, m.RecommendationsTotal(), uint64(0))
	assert.Equal(t, uint64(2), m.PropagatedTotal())

	for _, stage := range c.Stages() {
		stats, ok := m.StageStats(stage)
		require.True(t, ok, stage)
		assert.Equal(t, uint64(1), stats.Invocations, stage)
	}
}

func TestComputeBatch(t *testing.T) {
	c := newComparer(t, sc.WithWorkerCount(2))

	second := observationInput()
	second.ID = "second"
	inputs := []*Input{observationInput(), nil, second, observationInput()}

	br := c.ComputeBatch(context.Background(), inputs)
	require.Len(t, br.Results, 4)
	assert.Equal(t, 4, br.CompletedJobs)
	assert.Equal(t, 1, br.FailedJobs)

	assert.Equal(t, "obs-mapping", br.Results[0].ID)
	assert.Equal(t, "#1", br.Results[1].ID)
	assert.ErrorIs(t, br.Results[1].Error, sc.ErrNoInput)
	assert.Equal(t, "second", br.Results[2].Result.ID)
	assert.Equal(t, br.Results[0].Result.Summary, br.Results[3].Result.Summary)
}

func TestStream(t *testing.T) {
	c := newComparer(t, sc.WithWorkerCount(2))

	second := observationInput()
	second.ID = "second"

	in := make(chan *Input)
	go func() {
		defer close(in)
		for _, input := range []*Input{observationInput(), nil, second} {
			in <- input
		}
	}()

	byID := make(map[string]*worker.JobResult)
	for r := range c.Stream(context.Background(), in) {
		byID[r.ID] = r
	}

	require.Len(t, byID, 3, spew.Sdump(byID))
	require.NoError(t, byID["obs-mapping"].Error)
	assert.Equal(t, 3, byID["obs-mapping"].Result.Summary.Incompatible)
	assert.ErrorIs(t, byID["#1"].Error, sc.ErrNoInput)
	assert.Equal(t, "second", byID["second"].Result.ID)
}

func TestStream_Cancelled(t *testing.T) {
	c := newComparer(t, sc.WithWorkerCount(1))

	// in is never closed; cancellation alone has to end the stream
	ctx, cancel := context.WithCancel(context.Background())
	results := c.Stream(ctx, make(chan *Input))
	cancel()

	select {
	case _, open := <-results:
		assert.False(t, open)
	case <-time.After(5 * time.Second):
		t.Fatal("stream not closed after cancel")
	}
}
