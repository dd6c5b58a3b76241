package tableless

import (
	"fmt"
)

func registerDefaultCallbacks(db *DB) error {
	initializeCallback := db.Callback().Initialize()
	if err := initializeCallback.Register("tableless:after_initialize", AfterInitialize); err != nil {
		return err
	}
	return initializeCallback.Register("tableless:validate", Validate)
}

// AfterInitialize runs the model's after initialize hooks on every record
func AfterInitialize(stmt *Statement) {
	if len(stmt.Schema.AfterInitialize) == 0 {
		return
	}

	for _, record := range stmt.Records {
		for _, hook := range stmt.Schema.AfterInitialize {
			if err := hook(record); err != nil {
				stmt.AddError(fmt.Errorf("%v after initialize: %w", stmt.Schema.Name, err))
				return
			}
		}
	}
}

// Validate validates every record of the batch, failures of all records are collected
func Validate(stmt *Statement) {
	if stmt.Error != nil {
		return
	}

	for _, record := range stmt.Records {
		if err := validate(record); err != nil {
			stmt.AddError(err)
		}
	}
}
