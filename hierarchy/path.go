package hierarchy

import (
	"strings"

	sc "github.com/gematik/structure-comparer"
)

// ValidatePath checks that path is a well formed field path: non-empty
// dot-separated segments, each optionally qualified by one ":slice" name.
func ValidatePath(path string) error {
	if path == "" {
		return &sc.PathError{Path: path, Reason: "empty path"}
	}
	if strings.ContainsAny(path, " \t\r\n") {
		return &sc.PathError{Path: path, Reason: "contains whitespace"}
	}
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return &sc.PathError{Path: path, Reason: "empty segment"}
		}
		name, slice, sliced := strings.Cut(seg, ":")
		if name == "" {
			return &sc.PathError{Path: path, Reason: "slice qualifier without element name in segment " + seg}
		}
		if sliced && slice == "" {
			return &sc.PathError{Path: path, Reason: "dangling colon in segment " + seg}
		}
		if strings.Contains(slice, ":") {
			return &sc.PathError{Path: path, Reason: "more than one slice qualifier in segment " + seg}
		}
	}
	return nil
}

// ParentPath returns the path with its last dotted or sliced segment removed.
// Example: "Patient.identifier:custom" -> "Patient.identifier",
// "Patient.identifier:custom.system" -> "Patient.identifier:custom".
func ParentPath(path string) string {
	idx := strings.LastIndexAny(path, ".:")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// Depth returns the number of dotted and sliced segments below the root.
func Depth(path string) int {
	return strings.Count(path, ".") + strings.Count(path, ":")
}

// SplitPath splits a field path into dotted segments. Slice qualifiers stay
// attached to their segment.
// Example: "Patient.identifier:custom.system" -> ["Patient", "identifier:custom", "system"]
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// JoinPath joins path segments with a dot.
func JoinPath(segments ...string) string {
	return strings.Join(segments, ".")
}

// LastSegment returns the last dotted segment of a path.
func LastSegment(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// IsDescendant reports whether path lies strictly below ancestor.
func IsDescendant(ancestor, path string) bool {
	if len(path) <= len(ancestor) || !strings.HasPrefix(path, ancestor) {
		return false
	}
	c := path[len(ancestor)]
	return c == '.' || c == ':'
}

// ChildSuffix returns the part of path below ancestor, including the
// leading separator. It returns "" when path is not a descendant.
func ChildSuffix(ancestor, path string) string {
	if !IsDescendant(ancestor, path) {
		return ""
	}
	return path[len(ancestor):]
}

// IsSliced reports whether the last dotted segment carries a slice qualifier.
func IsSliced(path string) bool {
	return strings.Contains(LastSegment(path), ":")
}

// SliceBase removes the slice qualifier from the last dotted segment.
// Example: "Patient.identifier:custom" -> "Patient.identifier".
func SliceBase(path string) string {
	last := LastSegment(path)
	name, _, sliced := strings.Cut(last, ":")
	if !sliced {
		return path
	}
	return path[:len(path)-len(last)] + name
}

// IsChoiceSlice reports whether a sliced segment names a type choice,
// such as "value[x]:valueString" or "value:valueQuantity".
func IsChoiceSlice(path string) bool {
	last := LastSegment(path)
	name, slice, sliced := strings.Cut(last, ":")
	if !sliced {
		return false
	}
	base := strings.TrimSuffix(name, "[x]")
	return strings.HasPrefix(slice, base) && len(slice) > len(base)
}
