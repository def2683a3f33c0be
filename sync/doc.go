package sync

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/iancoleman/strcase"
)

// PropertyDocRow represents a single row in the property documentation.
type PropertyDocRow struct {
	Name        string // HubSpot internal name, identical to the record key
	Label       string
	DataType    DataType
	FieldType   FieldType
	GroupName   string
	SampleValue string // value in the sample record the types were inferred from
}

// PropertyDocumentation describes the properties a sync would provision.
type PropertyDocumentation struct {
	ObjectType ObjectType
	Rows       []PropertyDocRow
	// Skipped lists keys of the sample record that will never be written.
	Skipped []string
}

// GeneratePropertyDocumentation documents the properties provisioned for sample,
// in the order they would be sent to HubSpot.
func GeneratePropertyDocumentation(objectType ObjectType, sample *Record) PropertyDocumentation {
	doc := PropertyDocumentation{
		ObjectType: objectType,
		Rows:       []PropertyDocRow{},
	}
	if sample == nil {
		return doc
	}

	sanitized := SanitizeRecord(sample)
	for _, p := range PropertyDefinitionsFor(sample) {
		v, _ := sanitized.Get(p.Name)
		doc.Rows = append(doc.Rows, PropertyDocRow{
			Name:        p.Name,
			Label:       p.Label,
			DataType:    p.Type,
			FieldType:   p.FieldType,
			GroupName:   p.GroupName,
			SampleValue: fmt.Sprintf("%v", v),
		})
	}

	for _, k := range sample.Keys() {
		if k != IDField && !IsWritableKey(k) {
			doc.Skipped = append(doc.Skipped, k)
		}
	}
	return doc
}

// FormatCSV formats the property documentation as CSV.
func (d PropertyDocumentation) FormatCSV() (string, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{fmt.Sprintf("# Object type: %s", strcase.ToCamel(string(d.ObjectType)))}); err != nil {
		return "", err
	}

	headers := []string{"Property Name", "Label", "Data Type", "Field Type", "Group", "Sample Value"}
	if err := writer.Write(headers); err != nil {
		return "", err
	}

	for _, row := range d.Rows {
		record := []string{row.Name, row.Label, string(row.DataType), string(row.FieldType), row.GroupName, row.SampleValue}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}

	for _, k := range d.Skipped {
		if err := writer.Write([]string{fmt.Sprintf("# Skipped: %s (outside the %s namespace)", k, PropertyPrefix)}); err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}

	return buf.String(), nil
}
