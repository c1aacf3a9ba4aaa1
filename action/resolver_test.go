package action

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/fixedvalue"
	"github.com/gematik/structure-comparer/hierarchy"
	"github.com/gematik/structure-comparer/pkg/logger"
	"github.com/gematik/structure-comparer/profile"
)

func init() {
	logger.Disable()
}

func field(path, def string) profile.Field {
	f := profile.Field{Path: path, Min: 0, Max: "*"}
	if def != "" {
		f.Definition = json.RawMessage(def)
	}
	return f
}

func testMapping(t *testing.T) (*profile.Mapping, *hierarchy.Navigator) {
	t.Helper()

	target := profile.New("target", []profile.Field{
		field("Patient", ""),
		field("Patient.identifier", ""),
		field("Patient.identifier.system", ""),
		field("Patient.identifier.value", ""),
		field("Patient.identifier.use", ""),
		field("Patient.identifier.type", ""),
		field("Patient.identifier.type.coding", ""),
		field("Patient.meta", ""),
		field("Patient.meta.profile", `{"fixedCanonical":"http://example.org/StructureDefinition/p"}`),
		field("Patient.code", ""),
		field("Patient.code.coding", `{"patternCoding":{"system":"http://loinc.org"}}`),
		field("Patient.code.coding.system", ""),
		field("Patient.name", ""),
		field("Patient.name.family", ""),
		field("Patient.name.given", ""),
		field("Patient.address", ""),
		field("Patient.address.line", ""),
		field("Patient.address.line.id", ""),
	})
	source := profile.New("source", []profile.Field{
		field("Patient", ""),
		field("Patient.identifier", ""),
		field("Patient.name", ""),
		field("Patient.extension:legacy", ""),
	})

	m, err := profile.NewMapping("m1", target, source)
	require.NoError(t, err)
	nav, err := hierarchy.Build(m.Paths())
	require.NoError(t, err)
	return m, nav
}

func newResolver(t *testing.T, opts ...sc.Option) *Resolver {
	t.Helper()
	e, err := fixedvalue.New(8)
	require.NoError(t, err)
	return NewResolver(e, sc.Apply(opts...))
}

func TestResolve_NotUsePropagatesOneLevel(t *testing.T) {
	m, nav := testMapping(t)

	res, err := newResolver(t).Resolve(m, nav, sc.ManualEntries{
		"Patient.identifier":     {Action: sc.ActionNotUse},
		"Patient.identifier.use": {Action: sc.ActionUse, Remark: "kept"},
	})
	require.NoError(t, err)

	for _, child := range []string{"Patient.identifier.system", "Patient.identifier.value", "Patient.identifier.type"} {
		info := res.Actions[child]
		assert.Equal(t, sc.ActionNotUse, info.Action, child)
		assert.Equal(t, sc.SourceInherited, info.Source, child)
		assert.Equal(t, "Patient.identifier", info.InheritedFrom, child)
		assert.True(t, info.AutoGenerated, child)
		assert.Equal(t, "Automatically inherited NOT_USE from parent field Patient.identifier", info.SystemRemark())
	}

	use := res.Actions["Patient.identifier.use"]
	assert.Equal(t, sc.SourceManual, use.Source)
	assert.Equal(t, "kept", use.Remark)

	coding := res.Actions["Patient.identifier.type.coding"]
	assert.False(t, coding.HasAction(), spew.Sdump(coding))
	assert.Equal(t, sc.SourceSystemDefault, coding.Source)
}

func TestResolve_FixedValues(t *testing.T) {
	m, nav := testMapping(t)
	r := newResolver(t)

	t.Run("schema fixed", func(t *testing.T) {
		res, err := r.Resolve(m, nav, nil)
		require.NoError(t, err)

		info := res.Actions["Patient.meta.profile"]
		assert.Equal(t, sc.ActionFixed, info.Action)
		assert.Equal(t, sc.SourceSystemDefault, info.Source)
		assert.True(t, info.AutoGenerated)
		assert.Equal(t, "http://example.org/StructureDefinition/p", info.FixedValue)
		assert.Equal(t, RemarkFixedDetected, info.SystemRemark())
	})

	t.Run("pattern system applies to the system child only", func(t *testing.T) {
		res, err := r.Resolve(m, nav, nil)
		require.NoError(t, err)

		assert.Equal(t, sc.ActionFixed, res.Actions["Patient.code.coding.system"].Action)
		assert.Equal(t, "http://loinc.org", res.Actions["Patient.code.coding.system"].FixedValue)
		assert.False(t, res.Actions["Patient.code.coding"].HasAction())
	})

	t.Run("identifier and codeable concept patterns", func(t *testing.T) {
		target := profile.New("target", []profile.Field{
			field("Coverage", ""),
			field("Coverage.identifier", `{"patternIdentifier":{"system":"http://fhir.de/sid/gkv/kvid-10"}}`),
			field("Coverage.identifier.system", ""),
			field("Coverage.type", `{"patternCodeableConcept":{"coding":[{"code":"GKV"},{"system":"http://fhir.de/CodeSystem/versicherungsart-de-basis","code":"GKV"}]}}`),
			field("Coverage.type.coding", ""),
			field("Coverage.type.coding.system", ""),
			field("Coverage.type.system", ""),
		})
		cm, err := profile.NewMapping("m2", target, profile.New("source", nil))
		require.NoError(t, err)
		cnav, err := hierarchy.Build(cm.Paths())
		require.NoError(t, err)

		res, err := r.Resolve(cm, cnav, nil)
		require.NoError(t, err)

		assert.Equal(t, sc.ActionFixed, res.Actions["Coverage.identifier.system"].Action)
		assert.Equal(t, "http://fhir.de/sid/gkv/kvid-10", res.Actions["Coverage.identifier.system"].FixedValue)
		assert.Equal(t, sc.ActionFixed, res.Actions["Coverage.type.coding.system"].Action)
		assert.Equal(t, "http://fhir.de/CodeSystem/versicherungsart-de-basis", res.Actions["Coverage.type.coding.system"].FixedValue)
		assert.False(t, res.Actions["Coverage.type.system"].HasAction())
		assert.False(t, res.Actions["Coverage.type.coding"].HasAction())
	})

	t.Run("manual value wins", func(t *testing.T) {
		res, err := r.Resolve(m, nav, sc.ManualEntries{
			"Patient.meta.profile": {Action: sc.ActionFixed, Fixed: "http://example.org/other"},
		})
		require.NoError(t, err)

		info := res.Actions["Patient.meta.profile"]
		assert.Equal(t, sc.SourceManual, info.Source)
		assert.False(t, info.AutoGenerated)
		assert.Equal(t, "http://example.org/other", info.FixedValue)
		assert.Equal(t, "Set to 'http://example.org/other' fixed value", info.Remark)
	})

	t.Run("manual fixed without value takes the schema value", func(t *testing.T) {
		res, err := r.Resolve(m, nav, sc.ManualEntries{
			"Patient.meta.profile": {Action: sc.ActionFixed},
		})
		require.NoError(t, err)
		assert.Equal(t, "http://example.org/StructureDefinition/p", res.Actions["Patient.meta.profile"].FixedValue)
	})
}

func TestResolve_TransitiveInheritance(t *testing.T) {
	m, nav := testMapping(t)

	tests := []struct {
		name   string
		root   string
		action sc.ActionType
		want   sc.ActionType
		chain  []string
	}{
		{"empty", "Patient.address", sc.ActionEmpty, sc.ActionEmpty, []string{"Patient.address.line", "Patient.address.line.id"}},
		{"use recursive", "Patient.name", sc.ActionUseRecursive, sc.ActionUse, []string{"Patient.name.family", "Patient.name.given"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newResolver(t).Resolve(m, nav, sc.ManualEntries{tt.root: {Action: tt.action}})
			require.NoError(t, err)

			for _, p := range tt.chain {
				info := res.Actions[p]
				assert.Equal(t, tt.want, info.Action, p)
				assert.Equal(t, sc.SourceInherited, info.Source, p)
				assert.Equal(t, nav.Parent(p), info.InheritedFrom, p)
				assert.Equal(t, "Inherited from "+nav.Parent(p), info.SystemRemark())
			}
		})
	}
}

func TestResolve_CopyActionsDoNotPropagate(t *testing.T) {
	m, nav := testMapping(t)

	res, err := newResolver(t).Resolve(m, nav, sc.ManualEntries{
		"Patient.address.line": {Action: sc.ActionExtension, Other: "Patient.extension:legacy"},
	})
	require.NoError(t, err)

	assert.Equal(t, sc.ActionExtension, res.Actions["Patient.address.line"].Action)
	assert.False(t, res.Actions["Patient.address.line.id"].HasAction())
}

func TestResolve_CopyLinkAugmentation(t *testing.T) {
	m, nav := testMapping(t)
	manual := sc.ManualEntries{
		"Patient.name.family": {Action: sc.ActionCopyFrom, Other: "Patient.name.given"},
	}

	res, err := newResolver(t).Resolve(m, nav, manual)
	require.NoError(t, err)

	mirror := res.Actions["Patient.name.given"]
	assert.Equal(t, sc.ActionCopyTo, mirror.Action)
	assert.Equal(t, sc.SourceManual, mirror.Source)
	assert.Equal(t, "Patient.name.family", mirror.Other)
	assert.Equal(t, "Mapped to 'Patient.name.family'", mirror.Remark)
	assert.Equal(t, "Linked from the copy action on Patient.name.family", mirror.SystemRemark())
	assert.Contains(t, res.Manual, "Patient.name.given")

	t.Run("disabled", func(t *testing.T) {
		res, err := newResolver(t, sc.WithCopyLinkAugmentation(false)).Resolve(m, nav, manual)
		require.NoError(t, err)
		assert.False(t, res.Actions["Patient.name.given"].HasAction())
	})

	t.Run("existing entry is kept", func(t *testing.T) {
		res, err := newResolver(t).Resolve(m, nav, sc.ManualEntries{
			"Patient.name.family": {Action: sc.ActionCopyFrom, Other: "Patient.name.given"},
			"Patient.name.given":  {Action: sc.ActionNotUse},
		})
		require.NoError(t, err)
		assert.Equal(t, sc.ActionNotUse, res.Actions["Patient.name.given"].Action)
	})
}

func TestResolve_Cycles(t *testing.T) {
	m, nav := testMapping(t)

	tests := []struct {
		name   string
		manual sc.ManualEntries
	}{
		{"two fields", sc.ManualEntries{
			"Patient.name.family": {Action: sc.ActionCopyFrom, Other: "Patient.name.given"},
			"Patient.name.given":  {Action: sc.ActionCopyFrom, Other: "Patient.name.family"},
		}},
		{"self reference", sc.ManualEntries{
			"Patient.name": {Action: sc.ActionCopyTo, Other: "Patient.name"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newResolver(t).Resolve(m, nav, tt.manual)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, sc.ErrStructural))

			var cycle *sc.CycleError
			require.True(t, errors.As(err, &cycle))
			assert.Equal(t, cycle.Chain[0], cycle.Chain[len(cycle.Chain)-1])
		})
	}

	t.Run("opposite directions are not a cycle", func(t *testing.T) {
		_, err := newResolver(t).Resolve(m, nav, sc.ManualEntries{
			"Patient.name.family": {Action: sc.ActionCopyFrom, Other: "Patient.name.given"},
			"Patient.name.given":  {Action: sc.ActionCopyTo, Other: "Patient.name.family"},
		})
		assert.NoError(t, err)
	})
}

func TestResolve_References(t *testing.T) {
	m, nav := testMapping(t)

	res, err := newResolver(t).Resolve(m, nav, sc.ManualEntries{
		"Patient.address": {Action: sc.ActionCopyFrom, Other: "Patient.missing"},
		"Patient.name":    {Action: sc.ActionCopyTo},
		"Patient.unknown": {Action: sc.ActionUse},
		"Patient.meta":    {Action: sc.ActionNotUse, AutoGenerated: true},
	})
	require.NoError(t, err)

	info := res.Actions["Patient.address"]
	assert.Equal(t, sc.ActionCopyFrom, info.Action, "action is applied despite the dangling reference")
	assert.True(t, res.Dangling["Patient.address"])

	codes := map[sc.IssueType]string{}
	for _, iss := range res.Issues {
		codes[iss.Code] = iss.Field
	}
	assert.Equal(t, "Patient.address", codes[sc.IssueTypeDanglingReference])
	assert.Equal(t, "Patient.name", codes[sc.IssueTypeMissingReference])
	assert.Equal(t, "Patient.unknown", codes[sc.IssueTypeIgnoredEntry])

	assert.False(t, res.Actions["Patient.meta"].HasAction(), "auto-generated entries are ignored")
	assert.NotContains(t, res.Manual, "Patient.meta")
}

func TestResolve_Idempotent(t *testing.T) {
	m, nav := testMapping(t)
	manual := sc.ManualEntries{
		"Patient.identifier":   {Action: sc.ActionNotUse},
		"Patient.name":         {Action: sc.ActionUseRecursive},
		"Patient.address":      {Action: sc.ActionEmpty},
		"Patient.name.family":  {Action: sc.ActionCopyFrom, Other: "Patient.name.given"},
		"Patient.meta.profile": {Action: sc.ActionFixed, Fixed: "x"},
	}
	r := newResolver(t)

	first, err := r.Resolve(m, nav, manual)
	require.NoError(t, err)
	second, err := r.Resolve(m, nav, manual)
	require.NoError(t, err)

	assert.Equal(t, first.Actions, second.Actions)
	assert.Len(t, first.Actions, nav.Size())
}

func TestResolveCreation(t *testing.T) {
	target := profile.New("target", []profile.Field{
		field("Organization", ""),
		field("Organization.name", ""),
		field("Organization.type", ""),
		field("Organization.meta.profile", `{"fixedUri":"http://example.org/org"}`),
	})
	m, err := profile.NewMapping("c1", target)
	require.NoError(t, err)
	nav, err := hierarchy.Build(m.Paths())
	require.NoError(t, err)

	res := newResolver(t).ResolveCreation(m, nav, sc.ManualEntries{
		"Organization.name": {Action: sc.ActionManual, Remark: "from registry"},
		"Organization":      {Action: sc.ActionUseRecursive},
	})

	assert.Equal(t, sc.ActionManual, res.Actions["Organization.name"].Action)
	assert.Equal(t, sc.SourceManual, res.Actions["Organization.name"].Source)
	assert.False(t, res.Actions["Organization"].HasAction())
	assert.False(t, res.Actions["Organization.type"].HasAction())
	assert.Equal(t, sc.ActionFixed, res.Actions["Organization.meta.profile"].Action)
	assert.Equal(t, "http://example.org/org", res.Actions["Organization.meta.profile"].FixedValue)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, sc.IssueTypeIgnoredEntry, res.Issues[0].Code)
	assert.Equal(t, "Organization", res.Issues[0].Field)
}
