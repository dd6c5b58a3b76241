package schema

import "time"

// Caster converts between raw/storage values and typed attribute values
type Caster interface {
	// Name caster class name, e.g. DateTime
	Name() string
	// Cast converts a raw value (row value, user input) to the typed value
	Cast(value interface{}) (interface{}, error)
	// Serialize converts a typed value to its storage form
	Serialize(value interface{}) (interface{}, error)
}

// CasterFactory builds a caster, zoned casters receive the configured location
type CasterFactory func(location *time.Location) Caster

// Instance is the view of a record given to hooks and validators
type Instance interface {
	Model() string
	Get(name string) interface{}
	Set(name string, value interface{}) error
}

// Validator validates an instance, returned errors are aggregated
type Validator func(Instance) error

// Hook runs while an instance is initialized
type Hook func(Instance) error

// Resolver looks up schemas by model name
type Resolver interface {
	Lookup(name string) (*Schema, bool)
}
