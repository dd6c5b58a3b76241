package schema

import (
	"fmt"
)

// RelationshipType relationship type
type RelationshipType string

// BelongsTo is the only relationship a tableless model declares
const BelongsTo RelationshipType = "belongs_to"

// Association belongs_to declaration
type Association struct {
	Name        string
	Type        RelationshipType
	Model       string
	ForeignKey  string
	References  string
	Schema      *Schema
	FieldSchema *Schema
	target      *Schema
}

// AssociationOption configures a belongs_to declaration
type AssociationOption func(*Association)

// ForeignKey overrides the <association>_id foreign key column
func ForeignKey(column string) AssociationOption {
	return func(a *Association) {
		a.ForeignKey = column
	}
}

// Model names the target model explicitly
func Model(name string) AssociationOption {
	return func(a *Association) {
		a.Model = name
	}
}

// Target references the target schema directly
func Target(schema *Schema) AssociationOption {
	return func(a *Association) {
		a.target = schema
		if schema != nil {
			a.Model = schema.Name
		}
	}
}

// References sets the target column matched by the foreign key, the target's primary key by default
func References(column string) AssociationOption {
	return func(a *Association) {
		a.References = column
	}
}

// ForeignKeyColumn returns the owner's foreign key column
func (a *Association) ForeignKeyColumn() *Column {
	return a.Schema.LookUpColumn(a.ForeignKey)
}

// ReferencesColumn returns the target column the foreign key points at
func (a *Association) ReferencesColumn() *Column {
	if a.FieldSchema == nil {
		return nil
	}
	return a.FieldSchema.LookUpColumn(a.References)
}

// resolve binds the association to its target schema
func (a *Association) resolve(resolver Resolver) error {
	target := a.target
	if target == nil && resolver != nil {
		target, _ = resolver.Lookup(a.Model)
	}

	if target == nil {
		return &UnresolvedModelError{Model: a.Schema.Name, Association: a.Name, Target: a.Model}
	}

	if a.References == "" {
		a.References = target.PrimaryKey
	}

	if target.LookUpColumn(a.References) == nil {
		return fmt.Errorf("%w: %v.%v references missing column %v.%v", ErrInvalidDefinition, a.Schema.Name, a.Name, target.Name, a.References)
	}

	a.FieldSchema = target
	return nil
}
