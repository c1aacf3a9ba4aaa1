// Package loader reads FHIR StructureDefinitions and converts their
// snapshots into the flat profiles the comparer works on.
//
// Example usage:
//
//	store := loader.NewStore()
//	if _, err := store.LoadFromDirectory("./profiles"); err != nil {
//		return err
//	}
//	target, err := store.Get("http://example.org/StructureDefinition/Target|1.0.0")
package loader
