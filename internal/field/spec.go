// Package field describes the editable fields of a table's records and
// converts between the strings users type into cells and typed field values.
package field

import (
	"fmt"
)

// Type represents the expected data type of an editable field.
type Type int

const (
	Text Type = iota
	Integer
	Decimal
	Date
	Bool
	Enum
)

// String returns a human-readable name for a field type.
func (t Type) String() string {
	switch t {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case Decimal:
		return "decimal"
	case Date:
		return "date"
	case Bool:
		return "bool"
	case Enum:
		return "enum"
	default:
		return "value"
	}
}

// Spec defines how one editable field is parsed, validated and shown.
type Spec struct {
	Name          string              `validate:"required"` // Record field / database column
	Label         string              // Row header shown for the field (defaults to Name)
	Type          Type                // Expected data type
	AllowEmpty    bool                // Empty input parses to the type's empty value instead of "no value"
	Default       any                 // Used for unset fields when a record is created; nil means none
	EnumValues    []string            // Valid values for Enum
	DecimalPlaces int32               // Places shown for Decimal
	Normalizer    func(string) string // Optional transformation applied before parsing
}

// HasDefault reports whether unset values can fall back to a default.
func (s Spec) HasDefault() bool { return s.Default != nil }

// Editable reports whether the spec is bound to a field. Positions of the
// input dimension without a field (custom columns) use the zero Spec.
func (s Spec) Editable() bool { return s.Name != "" }

// DisplayLabel returns the label used for the field's row header.
func (s Spec) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

// ValidationError represents a single value that could not be parsed into
// its field's type.
type ValidationError struct {
	Field   string // Field name
	Value   string // The raw value as entered
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}
