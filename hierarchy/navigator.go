package hierarchy

import (
	"sort"

	sc "github.com/gematik/structure-comparer"
)

// Navigator provides O(1) parent and child lookup over a flat field list.
// It is built once per computation and never mutated afterwards.
type Navigator struct {
	// order holds the paths in declaration order
	order []string

	// position maps a path to its index in order
	position map[string]int

	// parent maps a path to its nearest present ancestor
	parent map[string]string

	// children maps a path to its direct children in declaration order
	children map[string][]string

	// topDown is order sorted by depth, stable within one depth
	topDown []string
}

// Build creates a Navigator. It fails with a structural error on the first
// malformed or duplicate path.
func Build(paths []string) (*Navigator, error) {
	nav := &Navigator{
		order:    make([]string, 0, len(paths)),
		position: make(map[string]int, len(paths)),
		parent:   make(map[string]string, len(paths)),
		children: make(map[string][]string, len(paths)/2+1),
	}

	for _, p := range paths {
		if err := ValidatePath(p); err != nil {
			return nil, err
		}
		if _, dup := nav.position[p]; dup {
			return nil, &sc.DuplicatePathError{Path: p}
		}
		nav.position[p] = len(nav.order)
		nav.order = append(nav.order, p)
	}

	// A field whose structural parent is missing attaches to the nearest
	// ancestor that is present.
	for _, p := range nav.order {
		for anc := ParentPath(p); anc != ""; anc = ParentPath(anc) {
			if _, ok := nav.position[anc]; ok {
				nav.parent[p] = anc
				nav.children[anc] = append(nav.children[anc], p)
				break
			}
		}
	}

	nav.topDown = make([]string, len(nav.order))
	copy(nav.topDown, nav.order)
	sort.SliceStable(nav.topDown, func(i, j int) bool {
		return Depth(nav.topDown[i]) < Depth(nav.topDown[j])
	})

	return nav, nil
}

// Has returns true if the path is part of the field list.
func (n *Navigator) Has(path string) bool {
	if n == nil {
		return false
	}
	_, ok := n.position[path]
	return ok
}

// Size returns the number of fields.
func (n *Navigator) Size() int {
	if n == nil {
		return 0
	}
	return len(n.order)
}

// Paths returns all paths in declaration order.
func (n *Navigator) Paths() []string {
	if n == nil {
		return nil
	}
	out := make([]string, len(n.order))
	copy(out, n.order)
	return out
}

// TopDown returns all paths ordered so that every field follows its
// ancestors. Fields of equal depth keep declaration order.
func (n *Navigator) TopDown() []string {
	if n == nil {
		return nil
	}
	out := make([]string, len(n.topDown))
	copy(out, n.topDown)
	return out
}

// Parent returns the nearest present ancestor of path, or "" for roots
// and unknown paths.
func (n *Navigator) Parent(path string) string {
	if n == nil {
		return ""
	}
	return n.parent[path]
}

// Children returns the direct children of path in declaration order.
func (n *Navigator) Children(path string) []string {
	if n == nil {
		return nil
	}
	kids := n.children[path]
	out := make([]string, len(kids))
	copy(out, kids)
	return out
}

// Descendants returns every field below path, depth first in
// declaration order.
func (n *Navigator) Descendants(path string) []string {
	if n == nil {
		return nil
	}
	var out []string
	var walk func(string)
	walk = func(p string) {
		for _, c := range n.children[p] {
			out = append(out, c)
			walk(c)
		}
	}
	walk(path)
	return out
}

// Ancestors returns the present ancestors of path, nearest first.
func (n *Navigator) Ancestors(path string) []string {
	if n == nil {
		return nil
	}
	var out []string
	for p := n.parent[path]; p != ""; p = n.parent[p] {
		out = append(out, p)
	}
	return out
}

// NearestAncestor returns the closest ancestor of path satisfying match,
// or "" if there is none.
func (n *Navigator) NearestAncestor(path string, match func(string) bool) string {
	for _, a := range n.Ancestors(path) {
		if match(a) {
			return a
		}
	}
	return ""
}

// Less orders two paths by declaration order. Unknown paths sort last.
func (n *Navigator) Less(a, b string) bool {
	pa, oka := n.position[a]
	pb, okb := n.position[b]
	switch {
	case oka && okb:
		return pa < pb
	case oka:
		return true
	case okb:
		return false
	default:
		return a < b
	}
}
