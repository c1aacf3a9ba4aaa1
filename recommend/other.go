package recommend

import (
	"strings"

	"github.com/gematik/structure-comparer/hierarchy"
)

// inheritedRef is the reference a descendant inherits from a copy ancestor.
type inheritedRef struct {
	Ref string

	// Implicit is set when Ref relies on the field being valid by its base
	// type rather than declared.
	Implicit bool

	// Rejected names a declared candidate skipped because its types do not
	// match those of the descendant.
	Rejected string
}

// inheritedOther computes the reference a descendant inherits from a copy
// ancestor whose reference is other. The suffix of path below ancestor is
// appended to other. When that field does not exist, or declares types the
// descendant cannot hold, a few structural fallbacks are tried. ok is false
// when nothing fits.
func inheritedOther(in *Input, path, ancestor, other string) (res inheritedRef, ok bool) {
	if other == "" {
		return res, false
	}
	suffix := hierarchy.ChildSuffix(ancestor, path)
	if suffix == "" || strings.HasPrefix(suffix, ":value") {
		return res, false
	}

	has := in.Mapping.Has
	ref := other + suffix
	if has(ref) {
		if typesCompatible(in, path, ref) {
			return inheritedRef{Ref: ref}, true
		}
		res.Rejected = ref
	}

	if strings.Contains(other, ".value[x]") {
		if alt, found := choiceOther(in, path, other, suffix); found {
			return inheritedRef{Ref: alt}, true
		}
	}

	if !strings.Contains(ancestor, ":") {
		return res, false
	}

	// the implicit fallbacks below reuse ref, which was already turned down
	if res.Rejected == "" {
		if !strings.Contains(other, ":") {
			// sliced ancestor copied onto an unsliced field
			if has(path) {
				return inheritedRef{Ref: ref, Implicit: true}, true
			}
		} else if has(ancestor) && has(path) {
			return inheritedRef{Ref: ref, Implicit: true}, true
		}

		if idx := strings.LastIndex(other, ":"); idx >= 0 {
			if base := other[:idx] + suffix; has(base) && typesCompatible(in, path, base) {
				return inheritedRef{Ref: ref, Implicit: true}, true
			}
		}
	}
	return res, false
}

// choiceOther looks for a type choice of a value[x] reference that declares
// the suffix, such as "X.value[x]:valueCoding.system".
func choiceOther(in *Input, path, other, suffix string) (string, bool) {
	prefix := other + ":"
	colons := strings.Count(other, ":") + 1
	for _, p := range in.Mapping.Paths() {
		if !strings.HasPrefix(p, prefix) || strings.Count(p, ":") != colons {
			continue
		}
		if in.Mapping.Has(p+suffix) && typesCompatible(in, path, p+suffix) {
			return p + suffix, true
		}
	}
	return "", false
}

// typesCompatible reports whether the fields at a and b share a declared
// type. A field without declared types accepts any.
func typesCompatible(in *Input, a, b string) bool {
	ta, tb := fieldTypes(in, a), fieldTypes(in, b)
	if len(ta) == 0 || len(tb) == 0 {
		return true
	}
	for _, x := range ta {
		for _, y := range tb {
			if x == y {
				return true
			}
		}
	}
	return false
}

func fieldTypes(in *Input, path string) []string {
	f, ok := in.Mapping.Field(path)
	if !ok {
		return nil
	}
	if def := f.Definition(); def != nil {
		return def.Types
	}
	return nil
}

// typeList renders the declared types of path for diagnostics.
func typeList(in *Input, path string) string {
	types := fieldTypes(in, path)
	if len(types) == 0 {
		return "any"
	}
	return strings.Join(types, "|")
}
