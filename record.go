package tableless

import (
	"fmt"

	"github.com/modelkit/tableless/schema"
)

// Record attribute values of a tableless model with its resolved associations
type Record struct {
	schema       *schema.Schema
	attributes   map[string]interface{}
	associations map[string]interface{}
}

func newRecord(s *schema.Schema) *Record {
	return &Record{
		schema:       s,
		attributes:   make(map[string]interface{}, len(s.Columns)),
		associations: make(map[string]interface{}, len(s.Associations)),
	}
}

// Model returns the model name
func (r *Record) Model() string {
	return r.schema.Name
}

// Schema returns the schema the record was built from
func (r *Record) Schema() *schema.Schema {
	return r.schema
}

// Get returns the typed value of an attribute, nil for unknown names
func (r *Record) Get(name string) interface{} {
	return r.attributes[name]
}

// Set casts value through the column caster and assigns it
func (r *Record) Set(name string, value interface{}) error {
	column := r.schema.LookUpColumn(name)
	if column == nil {
		return fmt.Errorf("%w: %v.%v", ErrUnknownAttribute, r.schema.Name, name)
	}

	v, err := column.Cast(value)
	if err != nil {
		return fmt.Errorf("%v: %w", r.schema.Name, err)
	}
	r.attributes[name] = v
	return nil
}

// Attributes returns a copy of the attribute values
func (r *Record) Attributes() map[string]interface{} {
	attributes := make(map[string]interface{}, len(r.attributes))
	for k, v := range r.attributes {
		attributes[k] = v
	}
	return attributes
}

// Association returns the target attached to name, loaded reports whether it was resolved
func (r *Record) Association(name string) (value interface{}, loaded bool) {
	value, loaded = r.associations[name]
	return
}

// SetAssociation attaches a target, nil marks the association as absent
func (r *Record) SetAssociation(name string, value interface{}) {
	r.associations[name] = value
}

// Serialize returns the storage form of every attribute
func (r *Record) Serialize() (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(r.schema.Columns))
	for _, column := range r.schema.Columns {
		v, err := column.Serialize(r.attributes[column.Name])
		if err != nil {
			return nil, fmt.Errorf("%v: %w", r.schema.Name, err)
		}
		result[column.Name] = v
	}
	return result, nil
}

// ToMap serializes the record with its loaded associations nested under their names
func (r *Record) ToMap() (map[string]interface{}, error) {
	result, err := r.Serialize()
	if err != nil {
		return nil, err
	}

	for _, association := range r.schema.Associations {
		value, loaded := r.associations[association.Name]
		if !loaded {
			continue
		}

		if target, ok := value.(*Record); ok && target != nil {
			if result[association.Name], err = target.ToMap(); err != nil {
				return nil, err
			}
		} else {
			result[association.Name] = value
		}
	}
	return result, nil
}

// Valid runs not null checks and the model validators again
func (r *Record) Valid() error {
	return validate(r)
}

// Save always fails, tableless records are never persisted
func (r *Record) Save() error {
	return fmt.Errorf("%w: %v", ErrReadOnly, r.schema.Name)
}

func (r *Record) String() string {
	return fmt.Sprintf("%v%v", r.schema.Name, r.attributes)
}
