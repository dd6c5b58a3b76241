package schema

import (
	"fmt"
)

// DataType abstract type tag of a column
type DataType string

const (
	String        DataType = "string"
	Text          DataType = "text"
	Integer       DataType = "integer"
	Float         DataType = "float"
	Decimal       DataType = "decimal"
	Boolean       DataType = "boolean"
	Date          DataType = "date"
	DateTime      DataType = "datetime"
	Timestamp     DataType = "timestamp"
	Time          DataType = "time"
	DateTimePoint DataType = "datetime_point"
	Enumerable    DataType = "enumerable"
	Binary        DataType = "binary"
	JSON          DataType = "json"
	UUID          DataType = "uuid"
	Value         DataType = "value"
)

// Column attribute declaration
type Column struct {
	Name       string
	Type       DataType
	Default    interface{}
	HasDefault bool
	Null       bool
	Caster     Caster
	Schema     *Schema
}

// ColumnOption configures a column declaration
type ColumnOption func(*Column)

// Default sets the value used when a row doesn't carry the column
func Default(value interface{}) ColumnOption {
	return func(c *Column) {
		c.Default = value
		c.HasDefault = true
	}
}

// NotNull makes validation reject nil values
func NotNull() ColumnOption {
	return func(c *Column) {
		c.Null = false
	}
}

// Nullable sets the nullability flag
func Nullable(null bool) ColumnOption {
	return func(c *Column) {
		c.Null = null
	}
}

// Cast casts a raw value through the column caster
func (column *Column) Cast(value interface{}) (interface{}, error) {
	v, err := column.Caster.Cast(value)
	if err != nil {
		return nil, fmt.Errorf("failed to cast %v: %w", column.Name, err)
	}
	return v, nil
}

// Serialize returns the storage form of value
func (column *Column) Serialize(value interface{}) (interface{}, error) {
	v, err := column.Caster.Serialize(value)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %v: %w", column.Name, err)
	}
	return v, nil
}

// DefaultValue casts the declared default, nil when the column has none
func (column *Column) DefaultValue() (interface{}, error) {
	if !column.HasDefault {
		return nil, nil
	}
	return column.Cast(column.Default)
}
