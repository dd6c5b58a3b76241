package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modelkit/tableless/logger"
	"github.com/modelkit/tableless/preload"
	"github.com/modelkit/tableless/schema"
)

// DefaultBatchSize keeps queries well below the 65535 bind parameters postgres accepts
const DefaultBatchSize = 10000

var numericPlaceholder = regexp.MustCompile(`\$(\d+)`)

// Querier subset of *pgxpool.Pool used by the fetcher
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Fetcher loads target rows from PostgreSQL tables named after the target schema
type Fetcher struct {
	Conn      Querier
	Logger    logger.Interface
	BatchSize int
	pool      *pgxpool.Pool
}

// Connect opens a connection pool and checks it is reachable
func Connect(ctx context.Context, dsn string) (*Fetcher, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	f := New(pool)
	f.pool = pool
	return f, nil
}

// New wraps an existing pool, connection or transaction
func New(conn Querier) *Fetcher {
	return &Fetcher{Conn: conn, Logger: logger.Discard, BatchSize: DefaultBatchSize}
}

// Close closes the pool opened by Connect
func (f *Fetcher) Close() {
	if f.pool != nil {
		f.pool.Close()
	}
}

// FetchByIDs selects rows whose column value is in ids.
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
					return logger.ExplainSQL(query, numericPlaceholder, `'`, vars...), -1
				}
				return logger.ExplainSQL(query, numericPlaceholder, `'`, vars...), found
			}, err)
		}()
	}

	rows, err := f.Conn.Query(ctx, query, vars...)
	if err != nil {
		return err
	}

	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return err
	}

	for _, row := range maps {
		values, err := target.CastRow(row)
		if err != nil {
			return err
		}
		result[preload.Key(values[column])] = values
		found++
	}
	return nil
}

// BuildQuery returns the select statement matching n values of column
func BuildQuery(target *schema.Schema, column string, n int) string {
	var sql strings.Builder
	sql.WriteString("SELECT * FROM ")
	sql.WriteString(Quote(target.Table))
	sql.WriteString(" WHERE ")
	sql.WriteString(Quote(column))
	sql.WriteString(" IN (")
	for i := 1; i <= n; i++ {
		if i > 1 {
			sql.WriteByte(',')
		}
		sql.WriteByte('$')
		sql.WriteString(strconv.Itoa(i))
	}
	sql.WriteByte(')')
	return sql.String()
}

// Quote quotes a possibly qualified identifier, public.orders => "public"."orders"
func Quote(name string) string {
	parts := strings.Split(name, ".")
	for idx, part := range parts {
		parts[idx] = `"` + strings.ReplaceAll(part, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}
