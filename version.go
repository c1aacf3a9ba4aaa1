package structurecomparer

import "strings"

// FHIRVersion represents a FHIR specification version.
type FHIRVersion string

// Supported FHIR versions.
const (
	// R4 is FHIR Release 4 (4.0.1)
	R4 FHIRVersion = "R4"
	// R4B is FHIR Release 4B (4.3.0)
	R4B FHIRVersion = "R4B"
	// R5 is FHIR Release 5 (5.0.0)
	R5 FHIRVersion = "R5"
)

// String returns the version string.
func (v FHIRVersion) String() string {
	return string(v)
}

// IsValid returns true if this is a supported FHIR version.
func (v FHIRVersion) IsValid() bool {
	_, ok := versionStrings[v]
	return ok
}

// VersionString returns the fhirVersion value used in StructureDefinitions.
func (v FHIRVersion) VersionString() string {
	return versionStrings[v]
}

// versionStrings maps versions to the release prefix found in
// StructureDefinition.fhirVersion.
var versionStrings = map[FHIRVersion]string{
	R4:  "4.0.1",
	R4B: "4.3.0",
	R5:  "5.0.0",
}

// ParseFHIRVersion maps a StructureDefinition fhirVersion such as "4.0.1"
// or "4.0" to a FHIRVersion.
func ParseFHIRVersion(s string) (FHIRVersion, bool) {
	switch {
	case strings.HasPrefix(s, "4.0"):
		return R4, true
	case strings.HasPrefix(s, "4.3"):
		return R4B, true
	case strings.HasPrefix(s, "5.0"):
		return R5, true
	}
	if v := FHIRVersion(strings.ToUpper(s)); v.IsValid() {
		return v, true
	}
	return "", false
}
