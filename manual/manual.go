// Package manual reads and writes manual entry documents. A document holds
// the user overrides of every mapping, keyed by mapping id and field name.
//
// YAML (.yaml, .yml) and JSON (.json, .jsonc) files are supported. JSON
// files may contain comments and trailing commas.
package manual

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	sc "github.com/gematik/structure-comparer"
)

// Format is the on-disk encoding of a document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned for file extensions without a codec.
var ErrUnsupportedFormat = errors.New("unsupported manual entries format")

// FormatFromPath derives the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json", ".jsonc":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Field is one persisted override.
type Field struct {
	Name          string `json:"name" yaml:"name"`
	Action        string `json:"action" yaml:"action"`
	Other         string `json:"other,omitempty" yaml:"other,omitempty"`
	Fixed         string `json:"fixed,omitempty" yaml:"fixed,omitempty"`
	Remark        string `json:"remark,omitempty" yaml:"remark,omitempty"`
	AutoGenerated bool   `json:"auto_generated,omitempty" yaml:"auto_generated,omitempty"`
}

// Mapping groups the overrides of one mapping.
type Mapping struct {
	ID     string  `json:"id" yaml:"id"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// Field returns the override for name.
func (m *Mapping) Field(name string) (*Field, bool) {
	for i := range m.Fields {
		if m.Fields[i].Name == name {
			return &m.Fields[i], true
		}
	}
	return nil, false
}

// Set replaces the override for f.Name or appends it.
func (m *Mapping) Set(f Field) {
	if existing, ok := m.Field(f.Name); ok {
		*existing = f
		return
	}
	m.Fields = append(m.Fields, f)
}

// Entries converts the overrides to the comparer's input form. Action names
// are normalized; an unknown action fails the whole mapping unless the entry
// was auto generated, in which case only that entry is skipped.
func (m *Mapping) Entries() (sc.ManualEntries, error) {
	out := make(sc.ManualEntries, len(m.Fields))
	for _, f := range m.Fields {
		action, err := sc.ParseAction(f.Action)
		if err != nil {
			if f.AutoGenerated {
				continue
			}
			return nil, fmt.Errorf("mapping %s, field %s: %w", m.ID, f.Name, err)
		}
		out[f.Name] = sc.ManualEntry{
			Action:        action,
			Fixed:         f.Fixed,
			Other:         f.Other,
			Remark:        f.Remark,
			AutoGenerated: f.AutoGenerated,
		}
	}
	return out, nil
}

// Document is the content of a manual entries file.
type Document struct {
	Entries []Mapping `json:"entries" yaml:"entries"`
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse manual entries: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
			return nil, fmt.Errorf("failed to parse manual entries: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return &doc, nil
}

// Read loads a document from path.
func Read(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return Parse(data, format)
}

// Encode serializes the document.
func (d *Document) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(d)
	case FormatJSON:
		return json.MarshalIndent(d, "", "    ")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Write stores the document at path in the format given by its extension.
func (d *Document) Write(path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := d.Encode(format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Mapping returns the overrides of the mapping with the given id.
func (d *Document) Mapping(id string) (*Mapping, bool) {
	for i := range d.Entries {
		if d.Entries[i].ID == id {
			return &d.Entries[i], true
		}
	}
	return nil, false
}

// Lookup returns the comparer input for mapping id. A mapping without
// overrides yields an empty set.
func (d *Document) Lookup(id string) (sc.ManualEntries, error) {
	m, ok := d.Mapping(id)
	if !ok {
		return sc.ManualEntries{}, nil
	}
	return m.Entries()
}

// Set replaces the overrides of m.ID or appends m.
func (d *Document) Set(m Mapping) {
	if existing, ok := d.Mapping(m.ID); ok {
		*existing = m
		return
	}
	d.Entries = append(d.Entries, m)
}

// FromEntries builds a persisted mapping from comparer entries. Fields are
// written in the order of names; names missing from entries are skipped.
func FromEntries(id string, names []string, entries sc.ManualEntries) Mapping {
	m := Mapping{ID: id}
	for _, name := range names {
		e, ok := entries[name]
		if !ok {
			continue
		}
		m.Fields = append(m.Fields, Field{
			Name:          name,
			Action:        e.Action.String(),
			Other:         e.Other,
			Fixed:         e.Fixed,
			Remark:        e.Remark,
			AutoGenerated: e.AutoGenerated,
		})
	}
	return m
}
