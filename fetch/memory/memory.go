package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelkit/tableless/preload"
	"github.com/modelkit/tableless/schema"
)

// Call a recorded FetchByIDs call
type Call struct {
	Model  string
	Column string
	IDs    []interface{}
}

// Store in memory entity source, rows are grouped by model and keyed by primary key
type Store struct {
	mu     sync.RWMutex
	tables map[string]map[string]map[string]interface{}
	calls  []Call
}

// New returns an empty store
func New() *Store {
	return &Store{tables: map[string]map[string]map[string]interface{}{}}
}

// Put casts rows with the target schema and stores them by primary key
func (s *Store) Put(target *schema.Schema, rows ...map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[target.Name]
	if !ok {
		table = map[string]map[string]interface{}{}
		s.tables[target.Name] = table
	}

	for _, row := range rows {
		values, err := target.CastRow(row)
		if err != nil {
			return err
		}

		pk := values[target.PrimaryKey]
		if pk == nil {
			return fmt.Errorf("%v: missing primary key %v", target.Name, target.PrimaryKey)
		}
		table[preload.Key(pk)] = values
	}
	return nil
}

// FetchByIDs returns copies of the stored rows whose column value is in ids,
// keyed by that value. An empty column means the primary key.
func (s *Store) FetchByIDs(ctx context.Context, target *schema.Schema, column string, ids []interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if column == "" {
		column = target.PrimaryKey
	}
	if target.LookUpColumn(column) == nil {
		return nil, fmt.Errorf("%v: %v is not a column", target.Name, column)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Model: target.Name, Column: column, IDs: append([]interface{}(nil), ids...)})

	table := s.tables[target.Name]
	if column != target.PrimaryKey {
		index := make(map[string]map[string]interface{}, len(table))
		for _, row := range table {
			if v := row[column]; v != nil {
				index[preload.Key(v)] = row
			}
		}
		table = index
	}

	result := make(map[string]interface{}, len(ids))
	for _, id := range ids {
		key := preload.Key(id)
		if row, ok := table[key]; ok {
			values := make(map[string]interface{}, len(row))
			for k, v := range row {
				values[k] = v
			}
			result[key] = values
		}
	}
	return result, nil
}

// Calls returns the recorded fetches
func (s *Store) Calls() []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Call(nil), s.calls...)
}

// Reset forgets recorded fetches
func (s *Store) Reset() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

// Len returns the number of rows stored for model
func (s *Store) Len(model string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[model])
}
