package loader

import (
	"encoding/json"
	"fmt"

	"github.com/gofhir/fhir/r4"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/profile"
)

// R4Converter converts R4 StructureDefinitions to comparer profiles.
type R4Converter struct{}

// NewR4Converter creates a new R4 converter.
func NewR4Converter() *R4Converter {
	return &R4Converter{}
}

// ConvertStructureDefinition converts the snapshot of sd into a profile.
// Element ids are used as field paths so slices stay distinguishable; the
// element path is the fallback when an element has no id.
func (c *R4Converter) ConvertStructureDefinition(sd *r4.StructureDefinition) (*profile.Profile, error) {
	if sd == nil {
		return nil, fmt.Errorf("structure definition is nil")
	}

	version := sc.R4
	if v := c.convertFHIRVersion(sd.FhirVersion); v != "" {
		parsed, ok := sc.ParseFHIRVersion(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s", sc.ErrUnsupportedVersion, v)
		}
		version = parsed
	}

	if sd.Snapshot == nil || len(sd.Snapshot.Element) == 0 {
		return nil, fmt.Errorf("structure definition %s has no snapshot", derefString(sd.Url))
	}

	fields, err := c.convertElementDefinitions(sd.Snapshot.Element)
	if err != nil {
		return nil, err
	}

	url := derefString(sd.Url)
	ver := derefString(sd.Version)

	p := profile.New(ProfileKey(url, ver), fields)
	p.URL = url
	p.Name = derefString(sd.Name)
	p.Version = ver
	p.Type = derefString(sd.Type)
	p.FHIRVersion = version

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ProfileKey builds the url|version key of a profile.
func ProfileKey(url, version string) string {
	if version == "" {
		return url
	}
	return url + "|" + version
}

func (c *R4Converter) convertElementDefinitions(elements []r4.ElementDefinition) ([]profile.Field, error) {
	result := make([]profile.Field, 0, len(elements))
	for i := range elements {
		f, err := c.convertElementDefinition(&elements[i])
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, nil
}

func (c *R4Converter) convertElementDefinition(ed *r4.ElementDefinition) (profile.Field, error) {
	path := derefString(ed.Id)
	if path == "" {
		path = derefString(ed.Path)
	}

	raw, err := json.Marshal(ed)
	if err != nil {
		return profile.Field{}, fmt.Errorf("failed to encode element %s: %w", path, err)
	}

	types := c.convertTypes(ed.Type)
	return profile.Field{
		Path:        path,
		Min:         c.convertMin(ed.Min),
		Max:         derefString(ed.Max),
		Types:       types,
		IsExtension: isExtension(types),
		Description: derefString(ed.Short),
		Definition:  raw,
	}, nil
}

func (c *R4Converter) convertTypes(types []r4.ElementDefinitionType) []string {
	if len(types) == 0 {
		return nil
	}
	result := make([]string, 0, len(types))
	for i := range types {
		if code := derefString(types[i].Code); code != "" {
			result = append(result, code)
		}
	}
	return result
}

func (c *R4Converter) convertFHIRVersion(version *r4.FHIRVersion) string {
	if version == nil {
		return ""
	}
	return string(*version)
}

func (c *R4Converter) convertMin(minVal *uint32) int {
	if minVal == nil {
		return 0
	}
	return int(*minVal)
}

func isExtension(types []string) bool {
	for _, t := range types {
		if t == "Extension" {
			return true
		}
	}
	return false
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
