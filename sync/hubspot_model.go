package sync

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ObjectType selects the HubSpot CRM collection records are written to.
type ObjectType string

const (
	Contacts  ObjectType = "contacts"
	Companies ObjectType = "companies"
	Deals     ObjectType = "deals"
)

// objectCollections maps each supported object type to its path segment
// in the objects and properties APIs.
var objectCollections = map[ObjectType]string{
	Contacts:  "contacts",
	Companies: "companies",
	Deals:     "deals",
}

// SupportedObjectTypes returns the supported object types in sorted order.
func SupportedObjectTypes() []ObjectType {
	result := make([]ObjectType, 0, len(objectCollections))
	for t := range objectCollections {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// ParseObjectType converts a configured value into an ObjectType.
func ParseObjectType(s string) (ObjectType, error) {
	t := ObjectType(strings.ToLower(strings.TrimSpace(s)))
	if _, err := t.Collection(); err != nil {
		return "", err
	}
	return t, nil
}

// Collection returns the path segment for the object type.
func (t ObjectType) Collection() (string, error) {
	if c, ok := objectCollections[t]; ok {
		return c, nil
	}
	supported := make([]string, 0, len(objectCollections))
	for _, s := range SupportedObjectTypes() {
		supported = append(supported, string(s))
	}
	return "", &ConfigurationError{
		Field:  "objectType",
		Value:  string(t),
		Reason: fmt.Sprintf("supported types are [%s]", strings.Join(supported, ", ")),
		Err:    ErrUnsupportedObjectType,
	}
}

// DataType is the HubSpot property "type".
type DataType string

const (
	DataTypeString      DataType = "string"
	DataTypeNumber      DataType = "number"
	DataTypeDate        DataType = "date"
	DataTypeDatetime    DataType = "datetime"
	DataTypeEnumeration DataType = "enumeration"
	DataTypeBool        DataType = "bool"
)

// FieldType is the HubSpot property "fieldType", i.e. how it renders in the UI.
type FieldType string

const (
	FieldTypeText                FieldType = "text"
	FieldTypeTextarea            FieldType = "textarea"
	FieldTypeNumber              FieldType = "number"
	FieldTypeSelect              FieldType = "select"
	FieldTypeRadio               FieldType = "radio"
	FieldTypeCheckbox            FieldType = "checkbox"
	FieldTypeBooleanCheckbox     FieldType = "booleancheckbox"
	FieldTypeCalculationEquation FieldType = "calculation_equation"
	FieldTypeFile                FieldType = "file"
	FieldTypeDate                FieldType = "date"
)

// PropertyOption is one choice of an enumeration property.
type PropertyOption struct {
	Label        string `json:"label"`
	Value        string `json:"value"`
	DisplayOrder *int   `json:"displayOrder,omitempty"`
	Hidden       *bool  `json:"hidden,omitempty"`
	Description  string `json:"description,omitempty"`
}

// PropertyDefinition describes a custom HubSpot property.
// Optional fields are omitted from the request when unset so existing
// remote values are never cleared by an explicit null.
type PropertyDefinition struct {
	Name                 string           `json:"name"`
	Label                string           `json:"label"`
	Type                 DataType         `json:"type"`
	FieldType            FieldType        `json:"fieldType"`
	GroupName            string           `json:"groupName"`
	Hidden               *bool            `json:"hidden,omitempty"`
	DisplayOrder         *int             `json:"displayOrder,omitempty"`
	Description          string           `json:"description,omitempty"`
	Options              []PropertyOption `json:"options,omitempty"`
	HasUniqueValue       *bool            `json:"hasUniqueValue,omitempty"`
	FormField            *bool            `json:"formField,omitempty"`
	CalculationFormula   string           `json:"calculationFormula,omitempty"`
	ReferencedObjectType string           `json:"referencedObjectType,omitempty"`
	ExternalOptions      *bool            `json:"externalOptions,omitempty"`
}

// Validate checks the fields HubSpot requires.
func (p PropertyDefinition) Validate() error {
	switch {
	case p.Name == "":
		return errors.New("property name is required")
	case p.Label == "":
		return fmt.Errorf("property %s is missing a label", p.Name)
	case p.Type == "":
		return fmt.Errorf("property %s is missing a type", p.Name)
	case p.FieldType == "":
		return fmt.Errorf("property %s is missing a field type", p.Name)
	case p.GroupName == "":
		return fmt.Errorf("property %s is missing a group name", p.Name)
	}
	return nil
}

// BatchCreatePropertiesRequest is the body of POST /crm/v3/properties/{objectType}/batch/create.
type BatchCreatePropertiesRequest struct {
	Inputs []PropertyDefinition `json:"inputs"`
}

// Validate checks that the request has at least one valid property.
func (r BatchCreatePropertiesRequest) Validate() error {
	if len(r.Inputs) == 0 {
		return errors.New("no properties to create")
	}
	for _, p := range r.Inputs {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CreatePropertyGroupRequest is the body of POST /crm/v3/properties/{objectType}/groups.
type CreatePropertyGroupRequest struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	DisplayOrder *int   `json:"displayOrder,omitempty"`
}

// Validate checks that the group has a name and label.
func (r CreatePropertyGroupRequest) Validate() error {
	if r.Name == "" || r.Label == "" {
		return errors.New("property group requires a name and a label")
	}
	return nil
}

// ObjectUpdate is a single input of a batch update.
type ObjectUpdate struct {
	ID         string  `json:"id"`
	Properties *Record `json:"properties"`
}

// BatchUpdateRequest is the body of POST /crm/v3/objects/{objectType}/batch/update.
type BatchUpdateRequest struct {
	Inputs []ObjectUpdate `json:"inputs"`
}

// Validate checks that the request has at least one input and every input has an id.
func (r BatchUpdateRequest) Validate() error {
	if len(r.Inputs) == 0 {
		return errors.New("no objects to update")
	}
	for i, in := range r.Inputs {
		if in.ID == "" {
			return fmt.Errorf("input %d: %w", i, ErrMissingRecordID)
		}
		if in.Properties == nil {
			return fmt.Errorf("input %d (id %s) has no properties", i, in.ID)
		}
	}
	return nil
}

// ItemCount returns the number of objects in the request.
func (r BatchUpdateRequest) ItemCount() int {
	return len(r.Inputs)
}
