package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelkit/tableless/fetch/cache"
	"github.com/modelkit/tableless/fetch/memory"
	"github.com/modelkit/tableless/preload"
	"github.com/modelkit/tableless/schema"
)

func customerSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse(schema.Define("Customer").
		Column("id", schema.Integer).
		Column("name", schema.String), schema.Options{})
	require.NoError(t, err)
	return s
}

func TestFetcherServesCachedEntities(t *testing.T) {
	customer := customerSchema(t)
	store := memory.New()
	require.NoError(t, store.Put(customer,
		map[string]interface{}{"id": 1, "name": "Ann"},
		map[string]interface{}{"id": 2, "name": "Bob"},
	))

	fetcher := cache.New(store, 0, 0)
	ctx := context.Background()

	rows, err := fetcher.FetchByIDs(ctx, customer, "", []interface{}{int64(1), int64(3)})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, fetcher.Len())

	rows, err = fetcher.FetchByIDs(ctx, customer, "", []interface{}{int64(1), int64(2), int64(3)})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "Bob", rows["2"].(map[string]interface{})["name"])

	calls := store.Calls()
	require.Len(t, calls, 2)
	// unmatched ids are fetched again
	assert.Equal(t, []interface{}{int64(2), int64(3)}, calls[1].IDs)

	rows, err = fetcher.FetchByIDs(ctx, customer, "", []interface{}{int64(1), int64(2)})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Len(t, store.Calls(), 2)

	fetcher.Forget(customer, "", int64(1))
	_, err = fetcher.FetchByIDs(ctx, customer, "", []interface{}{int64(1)})
	require.NoError(t, err)
	assert.Len(t, store.Calls(), 3)

	fetcher.Purge()
	assert.Zero(t, fetcher.Len())
}

func TestFetcherKeysByModel(t *testing.T) {
	customer := customerSchema(t)
	supplier, err := schema.Parse(schema.Define("Supplier").Column("id", schema.Integer).Column("name", schema.String), schema.Options{})
	require.NoError(t, err)

	store := memory.New()
	require.NoError(t, store.Put(customer, map[string]interface{}{"id": 1, "name": "Ann"}))
	require.NoError(t, store.Put(supplier, map[string]interface{}{"id": 1, "name": "Acme"}))

	fetcher := cache.New(store, 10, time.Minute)
	_, err = fetcher.FetchByIDs(context.Background(), customer, "", []interface{}{int64(1)})
	require.NoError(t, err)

	rows, err := fetcher.FetchByIDs(context.Background(), supplier, "", []interface{}{int64(1)})
	require.NoError(t, err)
	assert.Equal(t, "Acme", rows["1"].(map[string]interface{})["name"])
	assert.Len(t, store.Calls(), 2)
}

func TestFetcherErrors(t *testing.T) {
	customer := customerSchema(t)

	_, err := cache.New(nil, 0, 0).FetchByIDs(context.Background(), customer, "", []interface{}{int64(1)})
	assert.ErrorIs(t, err, preload.ErrNoFetcher)

	failure := errors.New("source unavailable")
	fetcher := cache.New(preload.FetcherFunc(func(context.Context, *schema.Schema, string, []interface{}) (map[string]interface{}, error) {
		return nil, failure
	}), 0, 0)
	_, err = fetcher.FetchByIDs(context.Background(), customer, "", []interface{}{int64(1)})
	assert.Same(t, failure, err)
	assert.Zero(t, fetcher.Len())
}

func TestFetcherKeysByColumn(t *testing.T) {
	customer, err := schema.Parse(schema.Define("Customer").
		Column("id", schema.Integer).
		Column("code", schema.String), schema.Options{})
	require.NoError(t, err)

	store := memory.New()
	require.NoError(t, store.Put(customer,
		map[string]interface{}{"id": 1, "code": "2"},
		map[string]interface{}{"id": 2, "code": "ACME"},
	))

	fetcher := cache.New(store, 0, 0)
	ctx := context.Background()

	rows, err := fetcher.FetchByIDs(ctx, customer, "id", []interface{}{int64(2)})
	require.NoError(t, err)
	assert.Equal(t, "ACME", rows["2"].(map[string]interface{})["code"])

	// "2" as a code is a different entity than 2 as an id
	rows, err = fetcher.FetchByIDs(ctx, customer, "code", []interface{}{"2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows["2"].(map[string]interface{})["id"])

	calls := store.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "code", calls[1].Column)

	fetcher.Forget(customer, "code", "2")
	assert.Equal(t, 1, fetcher.Len())
}
