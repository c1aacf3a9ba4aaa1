package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/buger/jsonparser"
	"github.com/gofhir/fhir/r4"

	"github.com/gematik/structure-comparer/profile"
)

// Store holds converted profiles indexed by url|version and by url.
// A url lookup returns the most recently loaded version.
type Store struct {
	mu        sync.RWMutex
	byKey     map[string]*profile.Profile
	byURL     map[string]*profile.Profile
	converter *R4Converter
}

// NewStore creates an empty profile store.
func NewStore() *Store {
	return &Store{
		byKey:     make(map[string]*profile.Profile),
		byURL:     make(map[string]*profile.Profile),
		converter: NewR4Converter(),
	}
}

// Add converts sd and stores the resulting profile.
func (s *Store) Add(sd *r4.StructureDefinition) (*profile.Profile, error) {
	p, err := s.converter.ConvertStructureDefinition(sd)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[p.Key] = p
	if p.URL != "" {
		s.byURL[p.URL] = p
	}
	return p, nil
}

// Get returns a profile by url|version key or by bare url.
func (s *Store) Get(ref string) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.byKey[ref]; ok {
		return p, nil
	}
	if p, ok := s.byURL[ref]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("profile not found: %s", ref)
}

// Count returns the number of loaded profiles.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// Keys returns all profile keys, sorted.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.byKey))
	for k := range s.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadFromFile loads StructureDefinitions from a JSON file.
// Supports both single StructureDefinition and Bundle formats.
func (s *Store) LoadFromFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return s.LoadFromJSON(data)
}

// LoadFromJSON loads StructureDefinitions from JSON data.
// Auto-detects Bundle vs single StructureDefinition format.
func (s *Store) LoadFromJSON(data []byte) (int, error) {
	resourceType, err := jsonparser.GetString(data, "resourceType")
	if err != nil {
		return 0, fmt.Errorf("invalid JSON: %w", err)
	}

	switch resourceType {
	case "Bundle":
		return s.loadBundle(data)
	case "StructureDefinition":
		if _, err := s.loadOne(data); err != nil {
			return 0, err
		}
		return 1, nil
	default:
		return 0, fmt.Errorf("unsupported resourceType: %s", resourceType)
	}
}

// loadBundle loads every StructureDefinition entry of a Bundle. Entries
// that fail to convert are skipped.
func (s *Store) loadBundle(data []byte) (int, error) {
	count := 0
	_, err := jsonparser.ArrayEach(data, func(entry []byte, _ jsonparser.ValueType, _ int, _ error) {
		resource, dataType, _, err := jsonparser.Get(entry, "resource")
		if err != nil || dataType != jsonparser.Object {
			return
		}
		if rt, _ := jsonparser.GetString(resource, "resourceType"); rt != "StructureDefinition" {
			return
		}
		if _, err := s.loadOne(resource); err != nil {
			return
		}
		count++
	}, "entry")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return count, fmt.Errorf("failed to parse Bundle: %w", err)
	}
	return count, nil
}

func (s *Store) loadOne(data []byte) (*profile.Profile, error) {
	var sd r4.StructureDefinition
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("failed to parse StructureDefinition: %w", err)
	}
	return s.Add(&sd)
}

// LoadFromDirectory loads all JSON files below dirPath. Files that are not
// StructureDefinitions or Bundles are skipped.
func (s *Store) LoadFromDirectory(dirPath string) (int, error) {
	total := 0
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if info.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		count, err := s.LoadFromFile(path)
		if err != nil {
			return nil // Skip files that fail
		}
		total += count
		return nil
	})
	return total, err
}

// ReadStructureDefinition loads a single profile file without a store.
func ReadStructureDefinition(path string) (*profile.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return NewStore().loadOne(data)
}
