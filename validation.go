package tableless

import (
	"fmt"

	"go.uber.org/multierr"
)

// ValidationError all validation failures of a record
type ValidationError struct {
	Model string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v %v: %v", e.Model, ErrValidation, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// Errors returns every failure separately
func (e *ValidationError) Errors() []error {
	return multierr.Errors(e.Err)
}

func validate(r *Record) error {
	var err error
	for _, column := range r.schema.Columns {
		if !column.Null && r.attributes[column.Name] == nil {
			err = multierr.Append(err, fmt.Errorf("%v %w", column.Name, ErrBlank))
		}
	}

	for _, validator := range r.schema.Validators {
		err = multierr.Append(err, validator(r))
	}

	if err != nil {
		return &ValidationError{Model: r.schema.Name, Err: err}
	}
	return nil
}
