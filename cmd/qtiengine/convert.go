package main

import (
	"fmt"
	"strconv"

	"github.com/mind-engage/qti-testengine/pkg/variable"
)

// parseResponseValue converts a JSON string field into a single-cardinality
// Value of the given baseType. Full QTI response shapes (multiple/ordered/
// record, points, pairs) are out of this demo surface's scope; a real
// authoring/delivery frontend would post typed payloads directly.
func parseResponseValue(bt variable.BaseType, raw string) (variable.Value, error) {
	switch bt {
	case variable.BaseTypeIdentifier:
		return variable.IdentValue(raw), nil
	case variable.BaseTypeString:
		return variable.StringValue(raw), nil
	case variable.BaseTypeInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return variable.Value{}, fmt.Errorf("integer response: %w", err)
		}
		return variable.IntValue(n), nil
	case variable.BaseTypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return variable.Value{}, fmt.Errorf("float response: %w", err)
		}
		return variable.FloatValue(f), nil
	case variable.BaseTypeBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return variable.Value{}, fmt.Errorf("boolean response: %w", err)
		}
		return variable.BoolValue(b), nil
	default:
		return variable.IdentValue(raw), nil
	}
}

// valueToJSON renders a Value as a plain JSON-friendly Go value for the
// session-state views the handlers return.
func valueToJSON(v variable.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Cardinality {
	case variable.Multiple, variable.Ordered:
		out := make([]any, 0, len(v.List()))
		for _, item := range v.List() {
			out = append(out, valueToJSON(item))
		}
		return out
	case variable.Record:
		out := make(map[string]any, len(v.Record()))
		for k, item := range v.Record() {
			out[k] = valueToJSON(item)
		}
		return out
	}
	switch v.BaseType {
	case variable.BaseTypeIdentifier:
		return v.Ident()
	case variable.BaseTypeBoolean:
		return v.Bool()
	case variable.BaseTypeInteger:
		return v.Int()
	case variable.BaseTypeFloat:
		return v.Float()
	case variable.BaseTypeString:
		return v.Str()
	case variable.BaseTypeDuration:
		return v.Duration().String()
	case variable.BaseTypeURI:
		return v.URI()
	default:
		return nil
	}
}
