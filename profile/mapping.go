package profile

import (
	sc "github.com/gematik/structure-comparer"
)

// MappingField is one path of a mapping with its definition in the target
// and in every source profile.
type MappingField struct {
	Path string

	// Target is nil when the target profile does not declare the path
	Target *Field

	// Sources is aligned with Mapping.Sources; an entry is nil when that
	// source does not declare the path
	Sources []*Field
}

// TargetPresent returns true if the target declares the field.
func (f *MappingField) TargetPresent() bool {
	return f.Target != nil
}

// AnySourcePresent returns true if at least one source declares the field.
func (f *MappingField) AnySourcePresent() bool {
	for _, s := range f.Sources {
		if s != nil {
			return true
		}
	}
	return false
}

// IsTargetRequired returns true if the target field has min > 0.
func (f *MappingField) IsTargetRequired() bool {
	return f.Target.IsRequired()
}

// IsZeroCardinalityInSources returns true if the field exists in at least
// one source and every source that declares it has cardinality 0..0.
func (f *MappingField) IsZeroCardinalityInSources() bool {
	found := false
	for _, s := range f.Sources {
		if s == nil {
			continue
		}
		if !s.IsProhibited() {
			return false
		}
		found = true
	}
	return found
}

// Definition returns the field from the target, or from the first source
// that declares it.
func (f *MappingField) Definition() *Field {
	if f.Target != nil {
		return f.Target
	}
	for _, s := range f.Sources {
		if s != nil {
			return s
		}
	}
	return nil
}

// ActionsAllowed returns the actions that make sense for the field given
// which profiles declare it.
func (f *MappingField) ActionsAllowed() []sc.ActionType {
	removed := make(map[sc.ActionType]bool, 4)
	if !f.AnySourcePresent() {
		removed[sc.ActionUse] = true
		removed[sc.ActionNotUse] = true
		removed[sc.ActionCopyTo] = true
	} else {
		removed[sc.ActionEmpty] = true
	}
	if !f.TargetPresent() {
		removed[sc.ActionUse] = true
		removed[sc.ActionEmpty] = true
		removed[sc.ActionCopyFrom] = true
	}

	allowed := make([]sc.ActionType, 0, len(sc.AllActions))
	for _, a := range sc.AllActions {
		if removed[a] {
			continue
		}
		// USE_RECURSIVE follows USE
		if a == sc.ActionUseRecursive && removed[sc.ActionUse] {
			continue
		}
		allowed = append(allowed, a)
	}
	return allowed
}

// Allows reports whether action is in ActionsAllowed.
func (f *MappingField) Allows(action sc.ActionType) bool {
	for _, a := range f.ActionsAllowed() {
		if a == action {
			return true
		}
	}
	return false
}

// Mapping joins a target profile with its source profiles. A creation has
// no sources.
type Mapping struct {
	ID      string
	Target  *Profile
	Sources []*Profile

	fields []*MappingField
	byPath map[string]*MappingField
}

// NewMapping joins target and sources. Fields are ordered as declared in
// the target, followed by source-only fields in source order. Duplicate
// paths inside one profile are a structural error.
func NewMapping(id string, target *Profile, sources ...*Profile) (*Mapping, error) {
	m := &Mapping{
		ID:      id,
		Target:  target,
		Sources: sources,
		byPath:  make(map[string]*MappingField),
	}

	profiles := make([]*Profile, 0, len(sources)+1)
	if target != nil {
		profiles = append(profiles, target)
	}
	profiles = append(profiles, sources...)

	for _, p := range profiles {
		if p == nil {
			continue
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		for i := range p.Fields {
			m.add(p.Fields[i].Path)
		}
	}

	for _, mf := range m.fields {
		if target != nil {
			mf.Target, _ = target.Field(mf.Path)
		}
		mf.Sources = make([]*Field, len(sources))
		for i, s := range sources {
			if s != nil {
				mf.Sources[i], _ = s.Field(mf.Path)
			}
		}
	}

	return m, nil
}

func (m *Mapping) add(path string) {
	if _, ok := m.byPath[path]; ok {
		return
	}
	mf := &MappingField{Path: path}
	m.byPath[path] = mf
	m.fields = append(m.fields, mf)
}

// IsCreation returns true if the mapping has no sources.
func (m *Mapping) IsCreation() bool {
	return len(m.Sources) == 0
}

// Fields returns all mapping fields in order.
func (m *Mapping) Fields() []*MappingField {
	return m.fields
}

// Field returns the mapping field for path.
func (m *Mapping) Field(path string) (*MappingField, bool) {
	mf, ok := m.byPath[path]
	return mf, ok
}

// Has returns true if any profile of the mapping declares path.
func (m *Mapping) Has(path string) bool {
	_, ok := m.byPath[path]
	return ok
}

// Paths returns all field paths in order.
func (m *Mapping) Paths() []string {
	out := make([]string, len(m.fields))
	for i, mf := range m.fields {
		out[i] = mf.Path
	}
	return out
}
