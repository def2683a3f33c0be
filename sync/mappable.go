package sync

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/tidwall/gjson"
)

// IDField is the record field naming the HubSpot object a record targets.
const IDField = "id"

// Mappable provides a common interface for types that hold field maps.
type Mappable interface {
	GetFields() map[string]interface{}
	SetField(key string, value interface{})
	DeleteField(key string)
}

// Field is a single key/value pair of a Record.
type Field struct {
	Key   string
	Value interface{}
}

// Record is an ordered mapping of field name to scalar value.
// Key order is preserved from the source and used when the record is marshalled.
type Record struct {
	keys   []string
	fields map[string]interface{}
}

var _ Mappable = (*Record)(nil)

// NewRecord creates a record holding fields in the given order.
// A repeated key keeps its first position and takes the last value.
func NewRecord(fields ...Field) *Record {
	r := &Record{fields: make(map[string]interface{}, len(fields))}
	for _, f := range fields {
		r.SetField(f.Key, f.Value)
	}
	return r
}

// ParseRecord parses a JSON object into a Record.
// Numbers are kept as json.Number so no precision is lost before sanitizing.
func ParseRecord(s string) (*Record, error) {
	if !gjson.Valid(s) {
		return nil, errors.New("invalid json record")
	}
	return recordFromResult(gjson.Parse(s))
}

func recordFromResult(res gjson.Result) (*Record, error) {
	if !res.IsObject() {
		return nil, fmt.Errorf("record must be a json object, have %s", res.Type)
	}
	r := NewRecord()
	res.ForEach(func(key, value gjson.Result) bool {
		r.SetField(key.String(), scalarFromResult(value))
		return true
	})
	return r, nil
}

func scalarFromResult(v gjson.Result) interface{} {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return json.Number(v.Raw)
	case gjson.String:
		return v.String()
	default:
		return v.Value()
	}
}

// GetFields returns the record's field map. Callers must not rely on its iteration order.
func (r *Record) GetFields() map[string]interface{} { return r.fields }

// SetField sets a field, appending the key if it is new.
func (r *Record) SetField(key string, value interface{}) {
	if r.fields == nil {
		r.fields = make(map[string]interface{})
	}
	if _, exists := r.fields[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = value
}

// DeleteField deletes a field.
func (r *Record) DeleteField(key string) {
	if _, exists := r.fields[key]; !exists {
		return
	}
	delete(r.fields, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Get returns the value for key and whether it exists.
func (r *Record) Get(key string) (interface{}, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// Keys returns the record's keys in order.
func (r *Record) Keys() []string {
	result := make([]string, len(r.keys))
	copy(result, r.keys)
	return result
}

// Fields returns the record's fields in order.
func (r *Record) Fields() []Field {
	result := make([]Field, 0, len(r.keys))
	for _, k := range r.keys {
		result = append(result, Field{Key: k, Value: r.fields[k]})
	}
	return result
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.keys) }

// ID returns the HubSpot object id of the record as a string.
func (r *Record) ID() (string, error) {
	v, ok := r.fields[IDField]
	if !ok || v == nil {
		return "", ErrMissingRecordID
	}
	var id string
	switch t := v.(type) {
	case string:
		id = t
	case json.Number:
		id = t.String()
	case int:
		id = strconv.Itoa(t)
	case int64:
		id = strconv.FormatInt(t, 10)
	case float64:
		if t != math.Trunc(t) {
			return "", fmt.Errorf("record id %v is not a whole number", t)
		}
		id = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		id = fmt.Sprintf("%v", t)
	}
	if id == "" {
		return "", ErrMissingRecordID
	}
	return id, nil
}

// MarshalJSON writes the fields as a JSON object in key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range r.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		valJSON, err := json.Marshal(r.fields[k])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		buf = append(buf, keyJSON...)
		buf = append(buf, ':')
		buf = append(buf, valJSON...)
	}
	buf = append(buf, '}')
	return buf, nil
}
