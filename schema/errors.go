package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType unknown abstract type tag
	ErrUnknownType = errors.New("unknown attribute type")
	// ErrInvalidValue value can't be cast by the column caster
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnresolvedModel association target model can't be resolved
	ErrUnresolvedModel = errors.New("unresolved association target")
	// ErrInvalidDefinition invalid model definition
	ErrInvalidDefinition = errors.New("invalid model definition")
)

// UnknownTypeError reports a type tag without a registered caster
type UnknownTypeError struct {
	Tag    DataType
	Model  string
	Column string
}

func (e *UnknownTypeError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("unknown attribute type %q", string(e.Tag))
	}
	return fmt.Sprintf("unknown attribute type %q for column %v.%v", string(e.Tag), e.Model, e.Column)
}

func (e *UnknownTypeError) Unwrap() error {
	return ErrUnknownType
}

// UnresolvedModelError reports a belongs_to target that is not registered
type UnresolvedModelError struct {
	Model       string
	Association string
	Target      string
}

func (e *UnresolvedModelError) Error() string {
	return fmt.Sprintf("failed to resolve target model %q of %v.%v", e.Target, e.Model, e.Association)
}

func (e *UnresolvedModelError) Unwrap() error {
	return ErrUnresolvedModel
}
