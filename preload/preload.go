package preload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelkit/tableless/logger"
	"github.com/modelkit/tableless/schema"
	"github.com/modelkit/tableless/utils"
)

// ErrNoFetcher owners carry foreign keys but no fetcher is configured
var ErrNoFetcher = errors.New("no fetcher configured")

// Owner record holding the foreign key of a belongs_to association
type Owner interface {
	Get(name string) interface{}
	SetAssociation(name string, value interface{})
}

// Fetcher batched lookup of target entities whose column value is in ids, results are
// keyed by Key of that value. column is the referenced column, the primary key unless
// the association says otherwise.
type Fetcher interface {
	FetchByIDs(ctx context.Context, target *schema.Schema, column string, ids []interface{}) (map[string]interface{}, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, target *schema.Schema, column string, ids []interface{}) (map[string]interface{}, error)

// FetchByIDs calls f
func (f FetcherFunc) FetchByIDs(ctx context.Context, target *schema.Schema, column string, ids []interface{}) (map[string]interface{}, error) {
	return f(ctx, target, column, ids)
}

// Key identity key of a primary or foreign key value
func Key(value interface{}) string {
	return utils.ToStringKey(value)
}

// Loader resolves belongs_to associations for batches of owners
type Loader struct {
	Fetcher Fetcher
	Logger  logger.Interface
}

// BelongsTo resolves one association for every owner with a single fetch.
// Owners whose foreign key is nil or unmatched get a nil association.
func (l Loader) BelongsTo(ctx context.Context, owners []Owner, rel *schema.Association) error {
	if rel == nil || rel.FieldSchema == nil {
		name := "<nil>"
		if rel != nil {
			name = rel.Name
		}
		return fmt.Errorf("%w: association %v is not resolved", schema.ErrUnresolvedModel, name)
	}

	var (
		references = rel.ReferencesColumn()
		keys       = make([]string, len(owners))
		found      = make([]bool, len(owners))
		ids        = make([]interface{}, 0, len(owners))
		seen       = map[string]bool{}
	)

	for idx, owner := range owners {
		value, err := references.Cast(owner.Get(rel.ForeignKey))
		if err != nil {
			return fmt.Errorf("%v.%v: %w", rel.Schema.Name, rel.Name, err)
		}
		if value == nil {
			continue
		}

		key := Key(value)
		keys[idx], found[idx] = key, true
		if !seen[key] {
			seen[key] = true
			ids = append(ids, value)
		}
	}

	if len(ids) == 0 {
		for _, owner := range owners {
			owner.SetAssociation(rel.Name, nil)
		}
		return nil
	}

	if l.Fetcher == nil {
		return ErrNoFetcher
	}

	begin := time.Now()
	entities, err := l.Fetcher.FetchByIDs(ctx, rel.FieldSchema, rel.References, ids)
	if l.Logger != nil {
		l.Logger.Trace(ctx, begin, func() (string, int64) {
			desc := fmt.Sprintf("%v.%v: %v.%v IN %v", rel.Schema.Name, rel.Name, rel.FieldSchema.Table, rel.References, ids)
			if err != nil {
				return desc, -1
			}
			return desc, int64(len(entities))
		}, err)
	}
	if err != nil {
		return err
	}

	for idx, owner := range owners {
		if !found[idx] {
			owner.SetAssociation(rel.Name, nil)
			continue
		}
		// a missing entity is absence, not an error
		owner.SetAssociation(rel.Name, entities[keys[idx]])
	}
	return nil
}

// All resolves every association of s, one fetch per association
func (l Loader) All(ctx context.Context, owners []Owner, s *schema.Schema) error {
	if len(owners) == 0 {
		return nil
	}
	for _, rel := range s.Associations {
		if err := l.BelongsTo(ctx, owners, rel); err != nil {
			return err
		}
	}
	return nil
}

// BelongsTo resolves rel for owners through fetcher
func BelongsTo(ctx context.Context, fetcher Fetcher, owners []Owner, rel *schema.Association) error {
	return Loader{Fetcher: fetcher}.BelongsTo(ctx, owners, rel)
}

// All resolves every association of s through fetcher
func All(ctx context.Context, fetcher Fetcher, owners []Owner, s *schema.Schema) error {
	return Loader{Fetcher: fetcher}.All(ctx, owners, s)
}
