package tableless

import (
	"context"
	"fmt"

	"github.com/modelkit/tableless/preload"
	"github.com/modelkit/tableless/schema"
)

// New builds one record of model from a row of raw values
func (db *DB) New(ctx context.Context, model string, row map[string]interface{}) (*Record, error) {
	records, err := db.NewBatch(ctx, model, []map[string]interface{}{row})
	if err != nil {
		return nil, err
	}
	return records[0], nil
}

// Build builds a record of model from column defaults
func (db *DB) Build(ctx context.Context, model string) (*Record, error) {
	return db.New(ctx, model, nil)
}

// NewBatch builds records of model from rows. Attributes are cast and defaulted,
// the initialize callbacks run over the whole batch, then every association is
// loaded with one fetch for all records.
func (db *DB) NewBatch(ctx context.Context, model string, rows []map[string]interface{}) ([]*Record, error) {
	s, err := db.Schema(model)
	if err != nil {
		return nil, err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	stmt := &Statement{Context: ctx, DB: db, Schema: s, Records: make([]*Record, 0, len(rows))}
	for idx, row := range rows {
		record, err := db.assign(s, row, db.IgnoreUnknownAttributes)
		if err != nil {
			if len(rows) > 1 {
				return nil, fmt.Errorf("row %d: %w", idx, err)
			}
			return nil, err
		}
		stmt.Records = append(stmt.Records, record)
	}

	db.callbacks.Initialize().Execute(stmt)
	if stmt.Error != nil {
		return nil, stmt.Error
	}

	owners := make([]preload.Owner, len(stmt.Records))
	for idx, record := range stmt.Records {
		owners[idx] = record
	}

	loader := preload.Loader{Fetcher: db.targetFetcher(), Logger: db.Logger}
	if err := loader.All(ctx, owners, s); err != nil {
		return nil, err
	}
	return stmt.Records, nil
}

// assign casts row values and fills the remaining columns with their defaults
func (db *DB) assign(s *schema.Schema, row map[string]interface{}, ignoreUnknown bool) (*Record, error) {
	record := newRecord(s)
	for name, value := range row {
		column := s.LookUpColumn(name)
		if column == nil {
			if ignoreUnknown {
				continue
			}
			return nil, fmt.Errorf("%w: %v.%v", ErrUnknownAttribute, s.Name, name)
		}

		v, err := column.Cast(value)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", s.Name, err)
		}
		record.attributes[name] = v
	}

	for _, column := range s.Columns {
		if _, ok := record.attributes[column.Name]; ok {
			continue
		}

		v, err := column.DefaultValue()
		if err != nil {
			return nil, fmt.Errorf("%v: %w", s.Name, err)
		}
		record.attributes[column.Name] = v
	}
	return record, nil
}

// targetFetcher wraps the configured fetcher so fetched rows become records of the target model
func (db *DB) targetFetcher() preload.Fetcher {
	if db.Fetcher == nil {
		return nil
	}

	return preload.FetcherFunc(func(ctx context.Context, target *schema.Schema, column string, ids []interface{}) (map[string]interface{}, error) {
		entities, err := db.Fetcher.FetchByIDs(ctx, target, column, ids)
		if err != nil {
			return nil, err
		}

		// the fetcher may hand out a map it keeps, leave it untouched
		result := make(map[string]interface{}, len(entities))
		for key, entity := range entities {
			row, ok := entity.(map[string]interface{})
			if !ok {
				result[key] = entity
				continue
			}

			record, err := db.assign(target, row, true)
			if err != nil {
				return nil, err
			}
			result[key] = record
		}
		return result, nil
	})
}

// Preload resolves the named associations of records again, all associations when
// no name is given. Records must share one model.
func (db *DB) Preload(ctx context.Context, records []*Record, names ...string) error {
	if len(records) == 0 {
		return nil
	}

	s := records[0].schema
	owners := make([]preload.Owner, len(records))
	for idx, record := range records {
		if record.schema != s {
			return fmt.Errorf("can't preload %v records together with %v records", record.schema.Name, s.Name)
		}
		owners[idx] = record
	}

	if ctx == nil {
		ctx = context.Background()
	}

	loader := preload.Loader{Fetcher: db.targetFetcher(), Logger: db.Logger}
	if len(names) == 0 {
		return loader.All(ctx, owners, s)
	}

	for _, name := range names {
		rel := s.LookUpAssociation(name)
		if rel == nil {
			return fmt.Errorf("%w: %v.%v", ErrUnknownAssociation, s.Name, name)
		}
		if err := loader.BelongsTo(ctx, owners, rel); err != nil {
			return err
		}
	}
	return nil
}
