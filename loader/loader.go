package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/modelkit/tableless/schema"
)

// ErrUnknownParent model inherits from a model missing in the same document
var ErrUnknownParent = errors.New("unknown parent model")

// File models document
type File struct {
	Models []Model `yaml:"models"`
}

// Model model declaration
type Model struct {
	Name       string        `yaml:"name"`
	Table      string        `yaml:"table,omitempty"`
	PrimaryKey string        `yaml:"primary_key,omitempty"`
	Inherits   string        `yaml:"inherits,omitempty"`
	Columns    []Column      `yaml:"columns"`
	BelongsTo  []Association `yaml:"belongs_to,omitempty"`
}

// Column column declaration, a missing null key means nullable
type Column struct {
	Name    string     `yaml:"name"`
	Type    string     `yaml:"type"`
	Null    *bool      `yaml:"null,omitempty"`
	Default *yaml.Node `yaml:"default,omitempty"`
}

// Association belongs_to declaration
type Association struct {
	Name       string `yaml:"name"`
	Model      string `yaml:"model,omitempty"`
	ForeignKey string `yaml:"foreign_key,omitempty"`
	References string `yaml:"references,omitempty"`
}

// LoadFile reads model definitions from a YAML file
func LoadFile(path string) ([]*schema.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	defs, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return defs, nil
}

// Load reads model definitions, in document order
func Load(r io.Reader) ([]*schema.Definition, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode models: %w", err)
	}
	return file.Definitions()
}

// Definitions converts the document to schema definitions
func (f File) Definitions() ([]*schema.Definition, error) {
	var (
		defs   = make([]*schema.Definition, 0, len(f.Models))
		byName = make(map[string]*schema.Definition, len(f.Models))
	)

	for idx, model := range f.Models {
		if model.Name == "" {
			return nil, fmt.Errorf("%w: model #%d has no name", schema.ErrInvalidDefinition, idx+1)
		}
		if _, ok := byName[model.Name]; ok {
			return nil, fmt.Errorf("%w: model %v declared twice", schema.ErrInvalidDefinition, model.Name)
		}

		def, err := model.Definition()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
		byName[model.Name] = def
	}

	for idx, model := range f.Models {
		if model.Inherits == "" {
			continue
		}

		parent, ok := byName[model.Inherits]
		if !ok {
			return nil, fmt.Errorf("%w: %v inherits %v", ErrUnknownParent, model.Name, model.Inherits)
		}
		defs[idx].Inherit(parent)
	}
	return defs, nil
}

// Definition converts a single model, inheritance is left to File.Definitions
func (m Model) Definition() (*schema.Definition, error) {
	def := schema.Define(m.Name)
	if m.Table != "" {
		def.Table(m.Table)
	}
	if m.PrimaryKey != "" {
		def.PrimaryKey(m.PrimaryKey)
	}

	for _, column := range m.Columns {
		var opts []schema.ColumnOption
		if column.Null != nil {
			opts = append(opts, schema.Nullable(*column.Null))
		}

		if column.Default != nil {
			var value interface{}
			if err := column.Default.Decode(&value); err != nil {
				return nil, fmt.Errorf("%w: default of %v.%v: %v", schema.ErrInvalidDefinition, m.Name, column.Name, err)
			}
			opts = append(opts, schema.Default(value))
		}

		def.Column(column.Name, schema.DataType(column.Type), opts...)
	}

	for _, association := range m.BelongsTo {
		var opts []schema.AssociationOption
		if association.Model != "" {
			opts = append(opts, schema.Model(association.Model))
		}
		if association.ForeignKey != "" {
			opts = append(opts, schema.ForeignKey(association.ForeignKey))
		}
		if association.References != "" {
			opts = append(opts, schema.References(association.References))
		}
		def.BelongsTo(association.Name, opts...)
	}
	return def, nil
}

// LoadRows reads a YAML sequence of rows
func LoadRows(r io.Reader) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	if err := yaml.NewDecoder(r).Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	return rows, nil
}

// LoadRowsFile reads rows from a YAML file
func LoadRowsFile(path string) ([]map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadRows(bytes.NewReader(data))
}
