package schema

import (
	"fmt"
	"strings"
	"time"
)

// Schema immutable descriptor of a model, built once from a Definition
type Schema struct {
	Name               string
	Table              string
	PrimaryKey         string
	Columns            []*Column
	ColumnsByName      map[string]*Column
	Associations       []*Association
	AssociationsByName map[string]*Association
	Validators         []Validator
	AfterInitialize    []Hook
}

func (schema Schema) String() string {
	return schema.Name
}

// LookUpColumn returns the column declared with name
func (schema Schema) LookUpColumn(name string) *Column {
	return schema.ColumnsByName[name]
}

// LookUpAssociation returns the association declared with name
func (schema Schema) LookUpAssociation(name string) *Association {
	return schema.AssociationsByName[name]
}

// ColumnNames returns column names in declaration order
func (schema Schema) ColumnNames() []string {
	names := make([]string, 0, len(schema.Columns))
	for _, column := range schema.Columns {
		names = append(names, column.Name)
	}
	return names
}

// CastRow casts the known columns of a fetched row, unknown keys are kept as is
func (schema Schema) CastRow(row map[string]interface{}) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(row))
	for key, value := range row {
		column := schema.LookUpColumn(key)
		if column == nil {
			result[key] = value
			continue
		}

		v, err := column.Cast(value)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", schema.Name, err)
		}
		result[key] = v
	}
	return result, nil
}

// Options parse options
type Options struct {
	Namer    Namer
	Casters  *CasterRegistry
	Location *time.Location
}

// Parse builds a schema from a definition. Every column tag is resolved to a caster
// here, associations stay unbound until ResolveAssociations.
func Parse(def *Definition, opts Options) (*Schema, error) {
	if def == nil || strings.TrimSpace(def.name) == "" {
		return nil, fmt.Errorf("%w: model name required", ErrInvalidDefinition)
	}

	if opts.Namer == nil {
		opts.Namer = NamingStrategy{}
	}
	if opts.Casters == nil {
		opts.Casters = DefaultCasters
	}

	chain, err := def.chain()
	if err != nil {
		return nil, err
	}

	schema := &Schema{
		Name:               def.name,
		Table:              opts.Namer.TableName(def.name),
		PrimaryKey:         "id",
		ColumnsByName:      map[string]*Column{},
		AssociationsByName: map[string]*Association{},
	}

	// parents first, later declarations of the same name override in place
	for _, d := range chain {
		if d.table != "" {
			schema.Table = d.table
		}
		if d.primaryKey != "" {
			schema.PrimaryKey = d.primaryKey
		}

		for _, decl := range d.columns {
			column := *decl
			column.Schema = schema
			if existing, ok := schema.ColumnsByName[column.Name]; ok {
				*existing = column
			} else {
				c := &column
				schema.Columns = append(schema.Columns, c)
				schema.ColumnsByName[c.Name] = c
			}
		}

		for _, decl := range d.associations {
			association := *decl
			association.Schema = schema
			if existing, ok := schema.AssociationsByName[association.Name]; ok {
				*existing = association
			} else {
				a := &association
				schema.Associations = append(schema.Associations, a)
				schema.AssociationsByName[a.Name] = a
			}
		}

		schema.Validators = append(schema.Validators, d.validators...)
		schema.AfterInitialize = append(schema.AfterInitialize, d.afterInitialize...)
	}

	for _, column := range schema.Columns {
		if column.Caster, err = opts.Casters.Resolve(column.Type, opts.Location); err != nil {
			if unknown, ok := err.(*UnknownTypeError); ok {
				unknown.Model, unknown.Column = schema.Name, column.Name
			}
			return nil, err
		}

		if column.HasDefault {
			if _, err := column.DefaultValue(); err != nil {
				return nil, fmt.Errorf("%w: default of %v.%v: %v", ErrInvalidDefinition, schema.Name, column.Name, err)
			}
		}
	}

	for _, association := range schema.Associations {
		if association.ForeignKey == "" {
			association.ForeignKey = opts.Namer.ForeignKeyName(association.Name)
		}
		if association.Model == "" {
			association.Model = opts.Namer.ModelName(association.Name)
		}

		if _, ok := schema.ColumnsByName[association.Name]; ok {
			return nil, fmt.Errorf("%w: association %v.%v conflicts with a column", ErrInvalidDefinition, schema.Name, association.Name)
		}

		if association.ForeignKeyColumn() == nil {
			return nil, fmt.Errorf("%w: foreign key %v of %v.%v is not declared", ErrInvalidDefinition, association.ForeignKey, schema.Name, association.Name)
		}
	}

	return schema, nil
}

// ResolveAssociations binds every association to its target schema
func (schema *Schema) ResolveAssociations(resolver Resolver) error {
	for _, association := range schema.Associations {
		if err := association.resolve(resolver); err != nil {
			return err
		}
	}
	return nil
}

// Definition accumulates declarations of a model
type Definition struct {
	name            string
	table           string
	primaryKey      string
	parent          *Definition
	columns         []*Column
	associations    []*Association
	validators      []Validator
	afterInitialize []Hook
}

// Define starts a model definition
func Define(name string) *Definition {
	return &Definition{name: name}
}

// Name returns the model name
func (d *Definition) Name() string {
	return d.name
}

// Table overrides the table name used by fetchers
func (d *Definition) Table(name string) *Definition {
	d.table = name
	return d
}

// PrimaryKey overrides the primary key column, id by default
func (d *Definition) PrimaryKey(column string) *Definition {
	d.primaryKey = column
	return d
}

// Inherit makes d start from the declarations of parent
func (d *Definition) Inherit(parent *Definition) *Definition {
	d.parent = parent
	return d
}

// Column declares a typed attribute, nullable unless NotNull is given
func (d *Definition) Column(name string, tag DataType, opts ...ColumnOption) *Definition {
	column := &Column{Name: name, Type: tag, Null: true}
	for _, opt := range opts {
		opt(column)
	}
	d.columns = append(d.columns, column)
	return d
}

// BelongsTo declares a belongs_to association
func (d *Definition) BelongsTo(name string, opts ...AssociationOption) *Definition {
	association := &Association{Name: name, Type: BelongsTo}
	for _, opt := range opts {
		opt(association)
	}
	d.associations = append(d.associations, association)
	return d
}

// Validate adds a validator
func (d *Definition) Validate(validator Validator) *Definition {
	d.validators = append(d.validators, validator)
	return d
}

// AfterInitialize adds a hook run once attributes are assigned
func (d *Definition) AfterInitialize(hook Hook) *Definition {
	d.afterInitialize = append(d.afterInitialize, hook)
	return d
}

// chain returns the inheritance chain, root first
func (d *Definition) chain() ([]*Definition, error) {
	var (
		chain []*Definition
		seen  = map[*Definition]bool{}
	)

	for cur := d; cur != nil; cur = cur.parent {
		if seen[cur] {
			return nil, fmt.Errorf("%w: inheritance cycle at %v", ErrInvalidDefinition, cur.name)
		}
		seen[cur] = true
		chain = append([]*Definition{cur}, chain...)
	}

	for _, def := range chain {
		for _, column := range def.columns {
			if strings.TrimSpace(column.Name) == "" {
				return nil, fmt.Errorf("%w: %v declares a column without name", ErrInvalidDefinition, d.name)
			}
		}
		for _, association := range def.associations {
			if strings.TrimSpace(association.Name) == "" {
				return nil, fmt.Errorf("%w: %v declares an association without name", ErrInvalidDefinition, d.name)
			}
		}
	}
	return chain, nil
}
