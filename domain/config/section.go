package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	apperrors "appconfig/pkg/errors"
)

// DefaultEnvironment is always consulted before the caller's environment.
const DefaultEnvironment = "default"

// Section is a merged, read-only group of configuration values.
// Value objects are immutable: nothing hands out the underlying map.
type Section struct {
	name   string
	values map[string]any
}

// NewSection creates a Section owning a deep copy of values.
func NewSection(name string, values map[string]any) *Section {
	return &Section{name: name, values: cloneObject(nonNil(values))}
}

// EmptySection is what a section with no stored record resolves to.
func EmptySection(name string) *Section {
	return &Section{name: name, values: map[string]any{}}
}

// ParseSection decodes a stored config blob. The blob must be a single JSON
// object; numbers are kept as json.Number.
func ParseSection(name, environment, raw string) (*Section, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, apperrors.NewParseError(name, environment, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, apperrors.NewParseError(name, environment, fmt.Errorf("unexpected data after JSON object"))
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, apperrors.NewParseError(name, environment, fmt.Errorf("expected JSON object, got %s", jsonKind(decoded)))
	}
	return &Section{name: name, values: obj}, nil
}

// Merge returns a new section with every key of defaults and overrides.
// Overrides win on conflict. Nested objects are replaced, not merged.
func Merge(defaults, overrides *Section) *Section {
	merged := make(map[string]any, defaults.Len()+overrides.Len())
	maps.Copy(merged, defaults.values)
	maps.Copy(merged, overrides.values)
	return &Section{name: defaults.name, values: merged}
}

// Name returns the section name
func (s *Section) Name() string {
	return s.name
}

// Get returns the value stored under key. Nested objects and arrays are
// returned as copies.
func (s *Section) Get(key string) (any, error) {
	v, ok := s.values[key]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("key '%s' in section '%s'", key, s.name)).
			WithDetail("section", s.name).
			WithDetail("key", key)
	}
	return cloneValue(v), nil
}

// String returns the value under key as text. Non-string values are rendered
// as their JSON encoding.
func (s *Section) String(key string) (string, error) {
	if !s.Contains(key) {
		_, err := s.Get(key)
		return "", err
	}
	v := s.values[key]
	if str, ok := v.(string); ok {
		return str, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", apperrors.NewParseError(s.name, "", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Contains reports whether key is present
func (s *Section) Contains(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Keys returns the sorted keys of the section
func (s *Section) Keys() []string {
	return slices.Sorted(maps.Keys(s.values))
}

// Len returns the number of keys
func (s *Section) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// Map returns a deep copy of the section's values.
func (s *Section) Map() map[string]any {
	return cloneObject(s.values)
}

// MarshalJSON implements json.Marshaler
func (s *Section) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.values)
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func cloneObject(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneObject(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
