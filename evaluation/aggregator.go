package evaluation

import (
	sc "github.com/gematik/structure-comparer"
)

// Aggregate counts evaluations into the buckets of the variant. Every
// evaluation lands in exactly one bucket, so the buckets sum to Total.
func Aggregate(variant sc.Variant, evals Evaluations) sc.StatusSummary {
	s := sc.StatusSummary{Variant: variant, Total: len(evals)}

	for _, res := range evals {
		if variant == sc.VariantCreation {
			switch res.Status {
			case sc.StatusResolved:
				s.Resolved++
			case sc.StatusOK, sc.StatusOptionalPending:
				s.OptionalPending++
			default:
				s.ActionRequired++
			}
			continue
		}

		switch res.MappingStatus {
		case sc.MappingCompatible:
			s.Compatible++
		case sc.MappingSolved:
			s.Solved++
		case sc.MappingWarning:
			s.Warning++
		default:
			s.Incompatible++
		}
	}
	return s
}
