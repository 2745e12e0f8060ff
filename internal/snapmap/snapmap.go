// Package snapmap converts between strongly typed snapshot values and the
// weakly typed map payloads consumed by expression engines and transport
// helpers. Conversion goes through a JSON round trip so struct tags decide
// the exposed field names.
package snapmap

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ToMap flattens v into a map keyed by its JSON field names. Values that do
// not encode to a JSON object (scalars, slices) yield an error.
func ToMap(v any) (map[string]any, error) {
	if v == nil {
		return nil, fmt.Errorf("snapmap: value is nil")
	}
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	buffer, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("snapmap: marshal value: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, fmt.Errorf("snapmap: value does not flatten to a map: %w", err)
	}
	return out, nil
}

// Decode converts payload into a strongly typed T. Configure hooks let
// callers toggle json.Decoder behaviour such as UseNumber.
func Decode[T any](payload map[string]any, configure ...func(*json.Decoder)) (T, error) {
	var zero T
	if payload == nil {
		return zero, fmt.Errorf("snapmap: payload is nil")
	}

	buffer, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("snapmap: marshal payload: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	for _, fn := range configure {
		if fn != nil {
			fn(decoder)
		}
	}
	var result T
	if err := decoder.Decode(&result); err != nil {
		return zero, fmt.Errorf("snapmap: decode payload: %w", err)
	}
	return result, nil
}
