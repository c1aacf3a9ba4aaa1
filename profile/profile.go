// Package profile holds the field model the comparer works on: profiles as
// flat field lists, and mappings that join a target profile with its
// source profiles path by path.
package profile

import (
	"encoding/json"
	"strconv"

	sc "github.com/gematik/structure-comparer"
)

// Unbounded is the max cardinality of a repeating element.
const Unbounded = "*"

// Field represents one element of a profile snapshot.
type Field struct {
	// Path is the element id, including slice qualifiers
	Path string `json:"path"`

	Min         int      `json:"min"`
	Max         string   `json:"max"`
	Types       []string `json:"types,omitempty"`
	IsExtension bool     `json:"isExtension,omitempty"`
	Description string   `json:"description,omitempty"`

	// Definition is the raw ElementDefinition JSON. Fixed and pattern
	// constraints are read from it.
	Definition json.RawMessage `json:"definition,omitempty"`
}

// IsRequired returns true if the field must occur at least once.
func (f *Field) IsRequired() bool {
	return f != nil && f.Min > 0
}

// IsProhibited returns true if the field has cardinality 0..0.
func (f *Field) IsProhibited() bool {
	return f != nil && f.Min == 0 && f.Max == "0"
}

// MaxNum returns the numeric max cardinality, or -1 when unbounded or unparseable.
func (f *Field) MaxNum() int {
	if f == nil || f.Max == Unbounded || f.Max == "" {
		return -1
	}
	n, err := strconv.Atoi(f.Max)
	if err != nil {
		return -1
	}
	return n
}

// Cardinality returns "min..max".
func (f *Field) Cardinality() string {
	if f == nil {
		return ""
	}
	return strconv.Itoa(f.Min) + ".." + f.Max
}

// Profile is an ordered list of fields from one StructureDefinition.
type Profile struct {
	// Key identifies the profile within a mapping, usually url|version
	Key         string         `json:"key"`
	URL         string         `json:"url,omitempty"`
	Name        string         `json:"name,omitempty"`
	Version     string         `json:"version,omitempty"`
	Type        string         `json:"type,omitempty"`
	FHIRVersion sc.FHIRVersion `json:"fhirVersion,omitempty"`
	Fields      []Field        `json:"fields"`

	index map[string]int
}

// New creates a Profile and indexes its fields.
func New(key string, fields []Field) *Profile {
	p := &Profile{Key: key, Fields: fields}
	p.Reindex()
	return p
}

// Field returns the field with the given path.
func (p *Profile) Field(path string) (*Field, bool) {
	if p == nil {
		return nil, false
	}
	if p.index == nil {
		for i := range p.Fields {
			if p.Fields[i].Path == path {
				return &p.Fields[i], true
			}
		}
		return nil, false
	}
	i, ok := p.index[path]
	if !ok {
		return nil, false
	}
	return &p.Fields[i], true
}

// Has returns true if the profile declares the path.
func (p *Profile) Has(path string) bool {
	_, ok := p.Field(path)
	return ok
}

// Paths returns the field paths in declaration order.
func (p *Profile) Paths() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.Fields))
	for i := range p.Fields {
		out[i] = p.Fields[i].Path
	}
	return out
}

// Validate fails with a DuplicatePathError when a path occurs twice.
func (p *Profile) Validate() error {
	seen := make(map[string]struct{}, len(p.Fields))
	for i := range p.Fields {
		path := p.Fields[i].Path
		if _, dup := seen[path]; dup {
			return &sc.DuplicatePathError{Path: path}
		}
		seen[path] = struct{}{}
	}
	return nil
}

// Reindex rebuilds the path index. Call it after changing Fields; it is not
// safe to call while other goroutines read the profile.
func (p *Profile) Reindex() {
	p.index = make(map[string]int, len(p.Fields))
	for i := range p.Fields {
		if _, ok := p.index[p.Fields[i].Path]; !ok {
			p.index[p.Fields[i].Path] = i
		}
	}
}
