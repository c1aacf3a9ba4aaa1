package structurecomparer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseClassification(t *testing.T) {
	assert.Equal(t, ClassificationCompatible, ParseClassification("compatible"))
	assert.Equal(t, ClassificationIncompatible, ParseClassification("incompatible"))
	assert.Equal(t, ClassificationWarning, ParseClassification("warning"))
	assert.Equal(t, ClassificationUnknown, ParseClassification(""))
	assert.Equal(t, ClassificationUnknown, ParseClassification("compat"))
}

func TestStatusSummary(t *testing.T) {
	t.Run("mapping", func(t *testing.T) {
		s := StatusSummary{Variant: VariantMapping, Total: 4, Incompatible: 1, Warning: 1, Solved: 1, Compatible: 1}
		assert.Equal(t, 4, s.BucketSum())
		assert.InDelta(t, 50.0, s.CompletionPercentage(), 0.001)
	})

	t.Run("creation", func(t *testing.T) {
		s := StatusSummary{Variant: VariantCreation, Total: 4, ActionRequired: 2, Resolved: 1, OptionalPending: 1}
		assert.Equal(t, 4, s.BucketSum())
		assert.InDelta(t, 50.0, s.CompletionPercentage(), 0.001)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Zero(t, StatusSummary{}.CompletionPercentage())
	})
}
