package sync

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

const (
	// PropertyPrefix is the namespace of HubSpot properties this integration owns.
	// Only keys carrying it are ever written.
	PropertyPrefix = "akkio"

	// PropertyGroupName is the HubSpot property group provisioned for owned properties.
	PropertyGroupName = "akkio"
)

// InferDataType maps a raw value to the HubSpot property type used to store it.
// Anything that parses as a number is a number, everything else a string.
func InferDataType(v interface{}) DataType {
	if isNumeric(v) {
		return DataTypeNumber
	}
	return DataTypeString
}

// InferFieldType maps a raw value to the HubSpot field type used to render it.
func InferFieldType(v interface{}) FieldType {
	if isNumeric(v) {
		return FieldTypeNumber
	}
	return FieldTypeText
}

func isNumeric(v interface{}) bool {
	switch t := v.(type) {
	case nil, bool:
		return false
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case *big.Float, *big.Rat, *big.Int:
		return true
	case json.Number:
		return parsesAsNumber(t.String())
	case string:
		return parsesAsNumber(t)
	default:
		return parsesAsNumber(fmt.Sprintf("%v", t))
	}
}

// parsesAsNumber tries a float parse, then an integer parse.
// Out of range values still count as numbers.
func parsesAsNumber(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil || errors.Is(err, strconv.ErrRange) {
		return true
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil || errors.Is(err, strconv.ErrRange) {
		return true
	}
	return false
}

// CoerceJSONSafe converts arbitrary precision decimals to float64 so they are
// written as HubSpot numbers. Precision beyond float64 is lost; that is accepted
// in exchange for numeric properties. Integral json.Numbers stay int64.
// All other values pass through unchanged.
func CoerceJSONSafe(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return v
	case *big.Float:
		if t == nil {
			return nil
		}
		f, _ := t.Float64()
		return f
	case big.Float:
		f, _ := t.Float64()
		return f
	case *big.Rat:
		if t == nil {
			return nil
		}
		f, _ := t.Float64()
		return f
	default:
		return v
	}
}

// IsWritableKey reports whether a field may be written to HubSpot.
// The object id is never a property, and only keys in the owned namespace are
// writable so properties owned by anyone else are never overwritten.
func IsWritableKey(key string) bool {
	return key != IDField && strings.HasPrefix(key, PropertyPrefix)
}

// SanitizeRecord returns a new record with only writable fields, each coerced with CoerceJSONSafe.
func SanitizeRecord(record *Record) *Record {
	result := NewRecord()
	if record == nil {
		return result
	}
	for _, f := range record.Fields() {
		if IsWritableKey(f.Key) {
			result.SetField(f.Key, CoerceJSONSafe(f.Value))
		}
	}
	return result
}

// PropertyDefinitionsFor builds the property definitions provisioned for a sample record:
// one per writable field, named and labelled after the key, typed from its value.
func PropertyDefinitionsFor(sample *Record) []PropertyDefinition {
	sanitized := SanitizeRecord(sample)
	result := make([]PropertyDefinition, 0, sanitized.Len())
	for _, f := range sanitized.Fields() {
		result = append(result, PropertyDefinition{
			Name:      f.Key,
			Label:     f.Key,
			Type:      InferDataType(f.Value),
			FieldType: InferFieldType(f.Value),
			GroupName: PropertyGroupName,
		})
	}
	return result
}
