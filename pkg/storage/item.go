package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// AttributeType tags the value held by an Attribute.
type AttributeType string

const (
	TypeString AttributeType = "S"
	TypeNumber AttributeType = "N"
	TypeBool   AttributeType = "BOOL"
)

// Attribute is a single typed value in an Item. Numbers are carried in their
// decimal string form and are never parsed by the table layer.
type Attribute struct {
	Type  AttributeType
	Value string
}

// String returns a string attribute.
func String(v string) Attribute {
	return Attribute{Type: TypeString, Value: v}
}

// Number returns a numeric attribute from its decimal string form.
func Number(v string) Attribute {
	return Attribute{Type: TypeNumber, Value: v}
}

// Int returns a numeric attribute from an integer.
func Int(v int64) Attribute {
	return Attribute{Type: TypeNumber, Value: strconv.FormatInt(v, 10)}
}

// Bool returns a boolean attribute.
func Bool(v bool) Attribute {
	return Attribute{Type: TypeBool, Value: strconv.FormatBool(v)}
}

// Item is a record keyed by attribute name. The "id" attribute is the
// primary key.
type Item map[string]Attribute

// ID returns the primary key of the item.
func (it Item) ID() (string, error) {
	attr, ok := it["id"]
	if !ok || attr.Value == "" {
		return "", fmt.Errorf("item has no id attribute")
	}
	if attr.Type != TypeString {
		return "", fmt.Errorf("item id must be a string attribute, got %s", attr.Type)
	}
	return attr.Value, nil
}

// MarshalJSON encodes the attribute in the typed {"S": "..."} form used by
// managed key-value tables.
func (a Attribute) MarshalJSON() ([]byte, error) {
	switch a.Type {
	case TypeBool:
		b, err := strconv.ParseBool(a.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid bool attribute %q: %w", a.Value, err)
		}
		return json.Marshal(map[string]bool{string(TypeBool): b})
	case TypeString, TypeNumber:
		return json.Marshal(map[string]string{string(a.Type): a.Value})
	default:
		return nil, fmt.Errorf("unknown attribute type %q", a.Type)
	}
}

// UnmarshalJSON decodes the typed {"S": "..."} form.
func (a *Attribute) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("attribute must have exactly one type tag, got %d", len(raw))
	}

	for tag, value := range raw {
		switch AttributeType(tag) {
		case TypeBool:
			var b bool
			if err := json.Unmarshal(value, &b); err != nil {
				return err
			}
			*a = Bool(b)
		case TypeString, TypeNumber:
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return err
			}
			*a = Attribute{Type: AttributeType(tag), Value: s}
		default:
			return fmt.Errorf("unknown attribute type %q", tag)
		}
	}
	return nil
}
