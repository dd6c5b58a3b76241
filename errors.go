package tableless

import (
	"errors"

	"github.com/modelkit/tableless/preload"
	"github.com/modelkit/tableless/schema"
)

var (
	// ErrUnknownType column declared with a type tag that has no caster
	ErrUnknownType = schema.ErrUnknownType
	// ErrUnresolvedModel belongs_to target model can't be resolved
	ErrUnresolvedModel = schema.ErrUnresolvedModel
	// ErrInvalidValue value can't be cast to the column type
	ErrInvalidValue = schema.ErrInvalidValue
	// ErrInvalidDefinition invalid model definition
	ErrInvalidDefinition = schema.ErrInvalidDefinition
	// ErrNoFetcher associations need a fetcher
	ErrNoFetcher = preload.ErrNoFetcher
	// ErrModelNotRegistered model not registered
	ErrModelNotRegistered = errors.New("model not registered")
	// ErrDuplicateModel model registered twice
	ErrDuplicateModel = errors.New("model already registered")
	// ErrUnknownAttribute attribute is not declared by the model
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrUnknownAssociation association is not declared by the model
	ErrUnknownAssociation = errors.New("unknown association")
	// ErrValidation record is invalid
	ErrValidation = errors.New("validation failed")
	// ErrBlank non nullable attribute is nil
	ErrBlank = errors.New("can't be blank")
	// ErrReadOnly records are never written
	ErrReadOnly = errors.New("record is read only")
)
