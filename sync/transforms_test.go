// go test github.com/homemade/hubspot-target/sync -v
package sync

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferDataType(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		data  DataType
		field FieldType
	}{
		{"int", 10, DataTypeNumber, FieldTypeNumber},
		{"float", 3.5, DataTypeNumber, FieldTypeNumber},
		{"numeric string", "42", DataTypeNumber, FieldTypeNumber},
		{"decimal string", " 0.25 ", DataTypeNumber, FieldTypeNumber},
		{"exponent string", "1e3", DataTypeNumber, FieldTypeNumber},
		{"out of range string", "1e400", DataTypeNumber, FieldTypeNumber},
		{"json number", json.Number("7"), DataTypeNumber, FieldTypeNumber},
		{"big float", big.NewFloat(1.5), DataTypeNumber, FieldTypeNumber},
		{"text", "abc", DataTypeString, FieldTypeText},
		{"empty", "", DataTypeString, FieldTypeText},
		{"nil", nil, DataTypeString, FieldTypeText},
		{"bool", true, DataTypeString, FieldTypeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.data, InferDataType(tt.value))
			assert.Equal(t, tt.field, InferFieldType(tt.value))
		})
	}
}

func TestCoerceJSONSafe(t *testing.T) {
	assert.Equal(t, int64(10), CoerceJSONSafe(json.Number("10")))
	assert.Equal(t, 1.25, CoerceJSONSafe(json.Number("1.25")))
	assert.Equal(t, 0.5, CoerceJSONSafe(big.NewFloat(0.5)))
	assert.Equal(t, 0.75, CoerceJSONSafe(*big.NewFloat(0.75)))
	assert.Equal(t, 0.5, CoerceJSONSafe(big.NewRat(1, 2)))
	assert.Equal(t, "text", CoerceJSONSafe("text"))
	assert.Equal(t, true, CoerceJSONSafe(true))
	assert.Nil(t, CoerceJSONSafe(nil))
}

func TestIsWritableKey(t *testing.T) {
	assert.True(t, IsWritableKey("akkio_score"))
	assert.True(t, IsWritableKey("akkio"))
	assert.False(t, IsWritableKey("id"))
	assert.False(t, IsWritableKey("email"))
	assert.False(t, IsWritableKey("Akkio_score"))
}

func TestSanitizeRecord(t *testing.T) {
	record, err := ParseRecord(`{"id":"1","email":"a@b.co","akkio_score":10,"akkio_label":"hot","akkio_p":0.125}`)
	require.NoError(t, err)

	result := SanitizeRecord(record)

	assert.Equal(t, []string{"akkio_score", "akkio_label", "akkio_p"}, result.Keys())
	b, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"akkio_score":10,"akkio_label":"hot","akkio_p":0.125}`, string(b))

	// the input is left untouched
	assert.Equal(t, 5, record.Len())
	assert.Equal(t, 0, SanitizeRecord(nil).Len())
}

func TestPropertyDefinitionsFor(t *testing.T) {
	record := NewRecord(
		Field{"id", "1"},
		Field{"email", "a@b.co"},
		Field{"akkio_score", 10},
		Field{"akkio_label", "hot"},
	)

	result := PropertyDefinitionsFor(record)

	require.Len(t, result, 2)
	assert.Equal(t, PropertyDefinition{
		Name: "akkio_score", Label: "akkio_score", Type: DataTypeNumber, FieldType: FieldTypeNumber, GroupName: "akkio",
	}, result[0])
	assert.Equal(t, PropertyDefinition{
		Name: "akkio_label", Label: "akkio_label", Type: DataTypeString, FieldType: FieldTypeText, GroupName: "akkio",
	}, result[1])
	for _, p := range result {
		assert.NoError(t, p.Validate())
	}
}

func TestPropertyDefinitionsForNoWritableKeys(t *testing.T) {
	assert.Empty(t, PropertyDefinitionsFor(NewRecord(Field{"id", "1"}, Field{"email", "x"})))
}
