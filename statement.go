package tableless

import (
	"context"

	"go.uber.org/multierr"

	"github.com/modelkit/tableless/schema"
)

// Statement a batch of records under construction, passed through the initialize callbacks
type Statement struct {
	Context context.Context
	DB      *DB
	Schema  *schema.Schema
	Records []*Record
	Error   error
}

// AddError add error to statement, errors are accumulated
func (stmt *Statement) AddError(err error) error {
	stmt.Error = multierr.Append(stmt.Error, err)
	return stmt.Error
}
