package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/modelkit/tableless/logger"
	"github.com/modelkit/tableless/preload"
	"github.com/modelkit/tableless/schema"

	_ "modernc.org/sqlite"
)

// DriverName database/sql driver registered by modernc.org/sqlite
const DriverName = "sqlite"

// DefaultBatchSize stays below SQLite's default host parameter limit
const DefaultBatchSize = 999

// Fetcher loads target rows from SQLite tables named after the target schema
type Fetcher struct {
	DB        *sql.DB
	Logger    logger.Interface
	BatchSize int
}

// Open opens the SQLite database at dsn
func Open(dsn string) (*Fetcher, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return New(db), nil
}

// New wraps an opened database
func New(db *sql.DB) *Fetcher {
	return &Fetcher{DB: db, Logger: logger.Discard, BatchSize: DefaultBatchSize}
}

// Close closes the database
func (f *Fetcher) Close() error {
	return f.DB.Close()
}

// FetchByIDs selects rows whose column value is in ids, in as few queries as the batch size allows.
// Rows are keyed by that column, an empty column means the primary key.
func (f *Fetcher) FetchByIDs(ctx context.Context, target *schema.Schema, column string, ids []interface{}) (map[string]interface{}, error) {
	if column == "" {
		column = target.PrimaryKey
	}

	key := target.LookUpColumn(column)
	if key == nil {
		return nil, fmt.Errorf("%v: %v is not a column", target.Name, column)
	}

	vars := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		v, err := key.Serialize(id)
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}

	size := f.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	result := make(map[string]interface{}, len(ids))
	for start := 0; start < len(vars); start += size {
		end := start + size
		if end > len(vars) {
			end = len(vars)
		}

		if err := f.fetch(ctx, target, column, vars[start:end], result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (f *Fetcher) fetch(ctx context.Context, target *schema.Schema, column string, vars []interface{}, result map[string]interface{}) (err error) {
	var (
		query = BuildQuery(target, column, len(vars))
		begin = time.Now()
		found int64
	)

	if f.Logger != nil {
		defer func() {
			f.Logger.Trace(ctx, begin, func() (string, int64) {
				if err != nil {
					return logger.ExplainSQL(query, nil, `'`, vars...), -1
				}
				return logger.ExplainSQL(query, nil, `'`, vars...), found
			}, err)
		}()
	}

	rows, err := f.DB.QueryContext(ctx, query, vars...)
	if err != nil {
		return err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for idx := range values {
			pointers[idx] = &values[idx]
		}

		if err = rows.Scan(pointers...); err != nil {
			return err
		}

		row := make(map[string]interface{}, len(columns))
		for idx, name := range columns {
			row[name] = values[idx]
		}

		if row, err = target.CastRow(row); err != nil {
			return err
		}
		result[preload.Key(row[column])] = row
		found++
	}
	return rows.Err()
}

// BuildQuery returns the select statement matching n values of column
func BuildQuery(target *schema.Schema, column string, n int) string {
	var sql strings.Builder
	sql.WriteString("SELECT * FROM ")
	sql.WriteString(Quote(target.Table))
	sql.WriteString(" WHERE ")
	sql.WriteString(Quote(column))
	sql.WriteString(" IN (")
	for i := 0; i < n; i++ {
		if i > 0 {
			sql.WriteByte(',')
		}
		sql.WriteByte('?')
	}
	sql.WriteByte(')')
	return sql.String()
}

// Quote quotes a possibly qualified identifier, main.orders => `main`.`orders`
func Quote(name string) string {
	parts := strings.Split(name, ".")
	for idx, part := range parts {
		parts[idx] = "`" + strings.ReplaceAll(part, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}
