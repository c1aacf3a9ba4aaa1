// Package fixedvalue detects fixed[x] and pattern constraints in raw
// ElementDefinition JSON. It reads the constraint keys directly from the
// JSON so no FHIR type needs to be hardcoded beyond the key list.
package fixedvalue

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
	"github.com/gofhir/fhirpath"
	"github.com/gofhir/fhirpath/types"
	lru "github.com/hashicorp/golang-lru/v2"

	sc "github.com/gematik/structure-comparer"
)

// Kind names the constraint a value was read from.
type Kind string

// Pattern kinds whose code system pins a descendant ".system" field.
const (
	KindPatternCodingSystem          Kind = "patternCoding.system"
	KindPatternCodeableConceptSystem Kind = "patternCodeableConcept.coding.system"
	KindPatternIdentifierSystem      Kind = "patternIdentifier.system"
)

// PatternSystemKinds lists the pattern systems in priority order. Each kind
// is also the FHIRPath expression that selects it.
var PatternSystemKinds = []Kind{
	KindPatternCodingSystem,
	KindPatternCodeableConceptSystem,
	KindPatternIdentifierSystem,
}

// FixedKinds lists the fixed[x] keys in priority order.
var FixedKinds = []Kind{
	"fixedUri",
	"fixedUrl",
	"fixedCanonical",
	"fixedString",
	"fixedCode",
	"fixedOid",
	"fixedId",
	"fixedUuid",
	"fixedInteger",
	"fixedDecimal",
	"fixedBoolean",
	"fixedDate",
	"fixedDateTime",
	"fixedTime",
	"fixedInstant",
}

// DefaultCacheSize is used when New is given a non-positive size.
const DefaultCacheSize = 64

// Extractor reads fixed values from element definitions. It is safe for
// concurrent use.
type Extractor struct {
	exprCache *lru.Cache[string, *fhirpath.Expression]
	metrics   *sc.Metrics
}

// New creates an Extractor whose compiled FHIRPath expressions are kept in
// an LRU cache of the given size.
func New(cacheSize int) (*Extractor, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *fhirpath.Expression](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create expression cache: %w", err)
	}
	return &Extractor{exprCache: cache}, nil
}

// WithMetrics records cache hits and misses on m.
func (e *Extractor) WithMetrics(m *sc.Metrics) *Extractor {
	e.metrics = m
	return e
}

// Extract returns the first constant the element pins: a fixed[x] value in
// FixedKinds order, else a pattern system in PatternSystemKinds order.
func (e *Extractor) Extract(def json.RawMessage) (any, bool) {
	if v, _, ok := e.Fixed(def); ok {
		return v, true
	}
	if s, _, ok := e.PatternSystem(def); ok {
		return s, true
	}
	return nil, false
}

// DescribeType returns the kind of constraint Extract would read.
func (e *Extractor) DescribeType(def json.RawMessage) (Kind, bool) {
	if _, kind, ok := e.Fixed(def); ok {
		return kind, true
	}
	if _, kind, ok := e.PatternSystem(def); ok {
		return kind, true
	}
	return "", false
}

// HasAnyConstraint returns true if the element has a fixed value or a
// pattern system.
func (e *Extractor) HasAnyConstraint(def json.RawMessage) bool {
	_, ok := e.Extract(def)
	return ok
}

// Fixed returns the first fixed[x] value and its key.
func (e *Extractor) Fixed(def json.RawMessage) (any, Kind, bool) {
	if len(def) == 0 {
		return nil, "", false
	}
	for _, kind := range FixedKinds {
		raw, dataType, _, err := jsonparser.Get(def, string(kind))
		if err != nil || dataType == jsonparser.NotExist || dataType == jsonparser.Null {
			continue
		}
		v, ok := decode(kind, raw, dataType)
		if !ok {
			continue
		}
		return v, kind, true
	}
	return nil, "", false
}

// PatternSystem returns the first system a pattern[x] constraint pins, in
// PatternSystemKinds order. A patternCodeableConcept with several codings
// yields the system of the first one that has it.
func (e *Extractor) PatternSystem(def json.RawMessage) (string, Kind, bool) {
	if len(def) == 0 {
		return "", "", false
	}
	for _, kind := range PatternSystemKinds {
		system, err := e.firstString(def, string(kind))
		if err != nil {
			// fall back to a direct lookup when the expression cannot run
			system = lookupSystem(def, kind)
		}
		if system != "" {
			return system, kind, true
		}
	}
	return "", "", false
}

// firstString evaluates expr against def and returns its first string value.
func (e *Extractor) firstString(def json.RawMessage, expr string) (string, error) {
	compiled, err := e.compiled(expr)
	if err != nil {
		return "", err
	}
	result, err := compiled.Evaluate(def)
	if err != nil {
		return "", err
	}
	for _, v := range result {
		if s, ok := v.(types.String); ok && s.Value() != "" {
			return s.Value(), nil
		}
	}
	return "", nil
}

func lookupSystem(def json.RawMessage, kind Kind) string {
	var keys []string
	switch kind {
	case KindPatternCodingSystem:
		keys = []string{"patternCoding", "system"}
	case KindPatternCodeableConceptSystem:
		keys = []string{"patternCodeableConcept", "coding", "[0]", "system"}
	case KindPatternIdentifierSystem:
		keys = []string{"patternIdentifier", "system"}
	default:
		return ""
	}
	system, err := jsonparser.GetString(def, keys...)
	if err != nil {
		return ""
	}
	return system
}

func (e *Extractor) compiled(expr string) (*fhirpath.Expression, error) {
	if compiled, ok := e.exprCache.Get(expr); ok {
		if e.metrics != nil {
			e.metrics.RecordCacheHit()
		}
		return compiled, nil
	}
	if e.metrics != nil {
		e.metrics.RecordCacheMiss()
	}

	compiled, err := fhirpath.Compile(expr)
	if err != nil {
		return nil, err
	}
	e.exprCache.Add(expr, compiled)
	return compiled, nil
}

// decode converts a raw JSON value to a Go value according to its key.
func decode(kind Kind, raw []byte, dataType jsonparser.ValueType) (any, bool) {
	switch dataType {
	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			return nil, false
		}
		return s, true
	case jsonparser.Number:
		if kind == "fixedInteger" {
			n, err := jsonparser.ParseInt(raw)
			if err == nil {
				return n, true
			}
		}
		f, err := jsonparser.ParseFloat(raw)
		if err != nil {
			return nil, false
		}
		return f, true
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return nil, false
		}
		return b, true
	default:
		return nil, false
	}
}

// FormatForDisplay renders a fixed value as text. nil renders as "".
func FormatForDisplay(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		if val {
			return "true"
		}
		return "false"
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
