package tableless_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelkit/tableless"
	"github.com/modelkit/tableless/fetch/memory"
	"github.com/modelkit/tableless/logger"
	"github.com/modelkit/tableless/preload"
	"github.com/modelkit/tableless/schema"
	. "github.com/modelkit/tableless/utils/tests"
)

func open(t *testing.T, store *memory.Store) *tableless.DB {
	t.Helper()
	config := &tableless.Config{Logger: logger.Discard}
	if store != nil {
		config.Fetcher = store
	}

	db, err := tableless.Open(config)
	require.NoError(t, err)
	require.NoError(t, db.Register(Definitions()...))
	return db
}

func seed(t *testing.T, db *tableless.DB, store *memory.Store, model string, rows ...map[string]interface{}) {
	t.Helper()
	s, err := db.Schema(model)
	require.NoError(t, err)
	require.NoError(t, store.Put(s, rows...))
}

func TestNewBatchResolvesBelongsTo(t *testing.T) {
	store := memory.New()
	db := open(t, store)
	seed(t, db, store, "Company",
		map[string]interface{}{"id": 1, "name": "A"},
		map[string]interface{}{"id": 2, "name": "B"},
	)

	users, err := db.NewBatch(context.Background(), "User", []map[string]interface{}{
		{"id": 1, "company_id": 1},
		{"id": 2, "company_id": 2},
		{"id": 3, "company_id": "1"},
		{"id": 4, "company_id": nil},
	})
	require.NoError(t, err)
	require.Len(t, users, 4)

	var names []interface{}
	for _, user := range users {
		company, loaded := user.Association("company")
		require.True(t, loaded)
		if company == nil {
			names = append(names, nil)
			continue
		}
		names = append(names, company.(*tableless.Record).Get("name"))
	}
	assert.Equal(t, []interface{}{"A", "B", "A", nil}, names)

	var companyCalls []memory.Call
	for _, call := range store.Calls() {
		if call.Model == "Company" {
			companyCalls = append(companyCalls, call)
		}
	}
	require.Len(t, companyCalls, 1)
	assert.ElementsMatch(t, []interface{}{int64(1), int64(2)}, companyCalls[0].IDs)
}

func TestNewBatchFetchesOncePerAssociation(t *testing.T) {
	store := memory.New()
	db := open(t, store)
	seed(t, db, store, "User", map[string]interface{}{"id": 1, "name": "owner"})

	rows := make([]map[string]interface{}, 100)
	for i := range rows {
		rows[i] = map[string]interface{}{"id": i + 1, "user_id": 1}
	}

	pets, err := db.NewBatch(context.Background(), "Pet", rows)
	require.NoError(t, err)
	require.Len(t, pets, 100)
	assert.Len(t, store.Calls(), 1)

	for _, pet := range pets {
		user, _ := pet.Association("user")
		require.NotNil(t, user)
		assert.Equal(t, "owner", user.(*tableless.Record).Get("name"))
	}
}

func TestNewBatchUnmatchedForeignKey(t *testing.T) {
	store := memory.New()
	db := open(t, store)

	user, err := db.New(context.Background(), "User", map[string]interface{}{"id": 1, "company_id": 42, "language_code": "fr"})
	require.NoError(t, err)

	company, loaded := user.Association("company")
	assert.True(t, loaded)
	assert.Nil(t, company)

	language, loaded := user.Association("language")
	assert.True(t, loaded)
	assert.Nil(t, language)
	assert.Len(t, store.Calls(), 2)
}

func TestNewSelfReference(t *testing.T) {
	store := memory.New()
	db := open(t, store)
	seed(t, db, store, "User", map[string]interface{}{"id": 1, "name": "boss", "manager_id": 1})
	seed(t, db, store, "Language", map[string]interface{}{"code": "en", "name": "English"})

	user, err := db.New(context.Background(), "User", map[string]interface{}{"id": 2, "manager_id": 1, "language_code": "en"})
	require.NoError(t, err)

	manager, _ := user.Association("manager")
	require.IsType(t, &tableless.Record{}, manager)
	AssertAttributes(t, manager.(*tableless.Record), map[string]interface{}{"id": int64(1), "name": "boss"})

	// fetched targets are not loaded further
	_, loaded := manager.(*tableless.Record).Association("manager")
	assert.False(t, loaded)

	language, _ := user.Association("language")
	assert.Equal(t, "English", language.(*tableless.Record).Get("name"))
}

func TestNewCastsAndDefaults(t *testing.T) {
	db := open(t, nil)
	birthday := Now()

	user, err := db.New(context.Background(), "User", map[string]interface{}{
		"id":       "7",
		"name":     "jinzhu",
		"birthday": *birthday,
		"active":   nil,
	})
	require.NoError(t, err)

	year, month, day := birthday.UTC().Date()
	AssertAttributes(t, user, map[string]interface{}{
		"id":       int64(7),
		"name":     "jinzhu",
		"age":      int64(0),
		"birthday": time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
	})
	// explicit nil wins over the default
	assert.Nil(t, user.Get("active"))
	assert.Nil(t, user.Get("company_id"))

	built, err := db.Build(context.Background(), "Company")
	assert.Nil(t, built)
	assert.ErrorIs(t, err, tableless.ErrValidation)
}

func TestNewTimeLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	db, err := tableless.Open(&tableless.Config{Logger: logger.Discard, TimeLocation: tokyo})
	require.NoError(t, err)
	require.NoError(t, db.Register(schema.Define("Event").
		Column("at", schema.DateTime).
		Column("on", schema.Date)))

	event, err := db.New(context.Background(), "Event", map[string]interface{}{"at": "2024-05-17T20:00:00Z", "on": "2024-05-17T20:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, 18, event.Get("at").(time.Time).Day())
	assert.Equal(t, "JST", event.Get("at").(time.Time).Location().String())
	on := event.Get("on").(time.Time)
	assert.True(t, on.Equal(time.Date(2024, 5, 18, 0, 0, 0, 0, tokyo)), on)
	assert.Equal(t, "JST", on.Location().String())
}

func TestNewUnknownAttribute(t *testing.T) {
	db := open(t, nil)

	_, err := db.New(context.Background(), "Company", map[string]interface{}{"id": 1, "founded": 1990})
	assert.ErrorIs(t, err, tableless.ErrUnknownAttribute)
	assert.Contains(t, err.Error(), "Company.founded")

	ignoring := db.Session(&tableless.Session{})
	ignoring.IgnoreUnknownAttributes = true
	company, err := ignoring.New(context.Background(), "Company", map[string]interface{}{"id": 1, "founded": 1990})
	require.NoError(t, err)
	assert.Nil(t, company.Get("founded"))

	// sessions don't leak settings
	_, err = db.New(context.Background(), "Company", map[string]interface{}{"id": 1, "founded": 1990})
	assert.ErrorIs(t, err, tableless.ErrUnknownAttribute)
}

func TestNewInvalidValue(t *testing.T) {
	db := open(t, nil)

	_, err := db.NewBatch(context.Background(), "Company", []map[string]interface{}{{"id": 1}, {"id": "one"}})
	assert.ErrorIs(t, err, tableless.ErrInvalidValue)
	assert.Contains(t, err.Error(), "row 1")
}

func TestNewModelNotRegistered(t *testing.T) {
	db := open(t, nil)

	_, err := db.New(context.Background(), "Invoice", nil)
	assert.ErrorIs(t, err, tableless.ErrModelNotRegistered)
}

func TestNewWithoutFetcher(t *testing.T) {
	db := open(t, nil)

	_, err := db.New(context.Background(), "Pet", map[string]interface{}{"id": 1, "user_id": 3})
	assert.ErrorIs(t, err, tableless.ErrNoFetcher)

	pet, err := db.New(context.Background(), "Pet", map[string]interface{}{"id": 1})
	require.NoError(t, err)
	user, loaded := pet.Association("user")
	assert.True(t, loaded)
	assert.Nil(t, user)
}

func TestNewFetchErrorPropagates(t *testing.T) {
	failure := errors.New("source unavailable")
	db := open(t, nil).WithFetcher(preload.FetcherFunc(func(context.Context, *schema.Schema, string, []interface{}) (map[string]interface{}, error) {
		return nil, failure
	}))

	_, err := db.New(context.Background(), "Pet", map[string]interface{}{"id": 1, "user_id": 3})
	assert.Same(t, failure, err)
}

func TestNewBelongsToReferencesColumn(t *testing.T) {
	store := memory.New()
	db, err := tableless.Open(&tableless.Config{Logger: logger.Discard, Fetcher: store})
	require.NoError(t, err)
	require.NoError(t, db.Register(
		schema.Define("Customer").Column("id", schema.Integer).Column("code", schema.String),
		schema.Define("Order").
			Column("id", schema.Integer).
			Column("customer_code", schema.String).
			BelongsTo("customer", schema.ForeignKey("customer_code"), schema.References("code")),
	))
	seed(t, db, store, "Customer", map[string]interface{}{"id": 1, "code": "ACME"})

	order, err := db.New(context.Background(), "Order", map[string]interface{}{"id": 1, "customer_code": "ACME"})
	require.NoError(t, err)

	customer, loaded := order.Association("customer")
	require.True(t, loaded)
	require.NotNil(t, customer)
	assert.Equal(t, int64(1), customer.(*tableless.Record).Get("id"))

	calls := store.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "code", calls[0].Column)
	assert.Equal(t, []interface{}{"ACME"}, calls[0].IDs)
}

func TestNewLeavesFetchedMapUntouched(t *testing.T) {
	shared := map[string]interface{}{"3": map[string]interface{}{"id": int64(3), "name": "Ann"}}
	db := open(t, nil).WithFetcher(preload.FetcherFunc(func(context.Context, *schema.Schema, string, []interface{}) (map[string]interface{}, error) {
		return shared, nil
	}))

	pet, err := db.New(context.Background(), "Pet", map[string]interface{}{"id": 1, "user_id": 3})
	require.NoError(t, err)

	user, loaded := pet.Association("user")
	require.True(t, loaded)
	assert.Equal(t, "Ann", user.(*tableless.Record).Get("name"))
	assert.IsType(t, map[string]interface{}{}, shared["3"])
}

func TestRegisterFailsFast(t *testing.T) {
	db, err := tableless.Open(&tableless.Config{Logger: logger.Discard})
	require.NoError(t, err)

	err = db.Register(CompanyDefinition(), UserDefinition())
	require.ErrorIs(t, err, tableless.ErrUnresolvedModel)
	assert.Contains(t, err.Error(), "Language")
	// nothing of a failed batch is registered
	assert.Empty(t, db.Models())

	err = db.Register(schema.Define("Invoice").Column("total", "money"))
	require.ErrorIs(t, err, tableless.ErrUnknownType)
	assert.Contains(t, err.Error(), "Invoice.total")

	require.NoError(t, db.Register(CompanyDefinition(), LanguageDefinition()))
	// targets registered earlier resolve too
	require.NoError(t, db.Register(UserDefinition()))
	assert.Equal(t, []string{"Company", "Language", "User"}, db.Models())

	err = db.Register(CompanyDefinition())
	assert.ErrorIs(t, err, tableless.ErrDuplicateModel)

	err = db.Register(PetDefinition().Column("kind", schema.String), PetDefinition())
	assert.ErrorIs(t, err, tableless.ErrDuplicateModel)
}

func TestValidation(t *testing.T) {
	db, err := tableless.Open(&tableless.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.Register(schema.Define("Signup").
		Column("email", schema.String, schema.NotNull()).
		Column("age", schema.Integer, schema.NotNull()).
		Validate(func(instance schema.Instance) error {
			if age, ok := instance.Get("age").(int64); ok && age < 18 {
				return fmt.Errorf("age must be at least 18")
			}
			return nil
		})))

	_, err = db.New(context.Background(), "Signup", map[string]interface{}{"age": 12})
	require.ErrorIs(t, err, tableless.ErrValidation)
	assert.ErrorIs(t, err, tableless.ErrBlank)

	var validation *tableless.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "Signup", validation.Model)
	require.Len(t, validation.Errors(), 2)
	assert.EqualError(t, validation.Errors()[0], "email can't be blank")
	assert.EqualError(t, validation.Errors()[1], "age must be at least 18")

	signup, err := db.New(context.Background(), "Signup", map[string]interface{}{"email": "a@b.c", "age": 30})
	require.NoError(t, err)
	assert.NoError(t, signup.Valid())

	require.NoError(t, signup.Set("age", "16"))
	assert.ErrorIs(t, signup.Valid(), tableless.ErrValidation)
}

func TestAfterInitialize(t *testing.T) {
	db, err := tableless.Open(&tableless.Config{Logger: logger.Discard})
	require.NoError(t, err)

	base := schema.Define("Ticket").
		Column("code", schema.String).
		Column("status", schema.String, schema.NotNull()).
		AfterInitialize(func(instance schema.Instance) error {
			if instance.Get("status") == nil {
				return instance.Set("status", "open")
			}
			return nil
		})
	urgent := schema.Define("UrgentTicket").
		Inherit(base).
		AfterInitialize(func(instance schema.Instance) error {
			if instance.Get("code") == "bad" {
				return errors.New("bad code")
			}
			return instance.Set("code", fmt.Sprintf("!%v", instance.Get("code")))
		})
	require.NoError(t, db.Register(base, urgent))

	ticket, err := db.New(context.Background(), "UrgentTicket", map[string]interface{}{"code": "T1"})
	require.NoError(t, err)
	assert.Equal(t, "open", ticket.Get("status"))
	assert.Equal(t, "!T1", ticket.Get("code"))
	assert.Equal(t, "UrgentTicket", ticket.Model())

	_, err = db.New(context.Background(), "UrgentTicket", map[string]interface{}{"code": "bad"})
	assert.EqualError(t, err, "UrgentTicket after initialize: bad code")
}

func TestInitializeCallbacks(t *testing.T) {
	store := memory.New()
	db := open(t, store)

	var steps []string
	require.NoError(t, db.Callback().Initialize().Before("tableless:validate").Register("test:fill_name", func(stmt *tableless.Statement) {
		steps = append(steps, "fill_name")
		for _, record := range stmt.Records {
			if record.Get("name") == nil {
				stmt.AddError(record.Set("name", "unnamed"))
			}
		}
	}))
	require.NoError(t, db.Callback().Initialize().After("tableless:validate").Register("test:after_validate", func(stmt *tableless.Statement) {
		steps = append(steps, "after_validate")
		assert.Empty(t, store.Calls(), "associations load after callbacks")
	}))

	company, err := db.New(context.Background(), "Company", map[string]interface{}{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, "unnamed", company.Get("name"))
	assert.Equal(t, []string{"fill_name", "after_validate"}, steps)

	require.NoError(t, db.Callback().Initialize().Remove("test:fill_name"))
	company, err = db.New(context.Background(), "Company", map[string]interface{}{"id": 1})
	require.NoError(t, err)
	assert.Nil(t, company.Get("name"))

	require.NoError(t, db.Callback().Initialize().Register("test:fail", func(stmt *tableless.Statement) {
		stmt.AddError(errors.New("rejected"))
	}))
	_, err = db.New(context.Background(), "Company", map[string]interface{}{"id": 1})
	assert.EqualError(t, err, "rejected")
}

func TestRecord(t *testing.T) {
	store := memory.New()
	db := open(t, store)
	seed(t, db, store, "Pet", map[string]interface{}{"id": 5, "name": "Rex"})

	toyID := uuid.New()
	toy, err := db.New(context.Background(), "Toy", map[string]interface{}{
		"id":       toyID.String(),
		"name":     "ball",
		"price":    "9.90",
		"owner_id": 5,
	})
	require.NoError(t, err)

	AssertAttributes(t, toy, map[string]interface{}{
		"id":    toyID,
		"price": big.NewRat(99, 10),
	})
	assert.Same(t, toy.Schema(), toy.Schema().LookUpColumn("id").Schema)

	assert.ErrorIs(t, toy.Set("color", "red"), tableless.ErrUnknownAttribute)
	assert.ErrorIs(t, toy.Set("price", "cheap"), tableless.ErrInvalidValue)
	assert.ErrorIs(t, toy.Save(), tableless.ErrReadOnly)

	attributes := toy.Attributes()
	attributes["name"] = "changed"
	assert.Equal(t, "ball", toy.Get("name"))

	serialized, err := toy.Serialize()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"id":       toyID.String(),
		"name":     "ball",
		"price":    "9.9",
		"owner_id": int64(5),
	}, serialized)

	m, err := toy.ToMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"id": int64(5), "name": "Rex", "user_id": nil}, m["owner"])

	_, loaded := toy.Association("missing")
	assert.False(t, loaded)
}

func TestDebugSession(t *testing.T) {
	db := open(t, nil)
	debug := db.Debug()

	assert.NotSame(t, db.Config, debug.Config)
	assert.Equal(t, db.Models(), debug.Models())
	_, ok := debug.Lookup("User")
	assert.True(t, ok)
}

func TestPreload(t *testing.T) {
	store := memory.New()
	db := open(t, store)
	seed(t, db, store, "Company",
		map[string]interface{}{"id": 1, "name": "A"},
		map[string]interface{}{"id": 2, "name": "B"},
	)

	user, err := db.New(context.Background(), "User", map[string]interface{}{"id": 1, "company_id": 1})
	require.NoError(t, err)
	store.Reset()

	require.NoError(t, user.Set("company_id", 2))
	require.NoError(t, db.Preload(context.Background(), []*tableless.Record{user}, "company"))
	company, _ := user.Association("company")
	assert.Equal(t, "B", company.(*tableless.Record).Get("name"))
	assert.Len(t, store.Calls(), 1)

	err = db.Preload(context.Background(), []*tableless.Record{user}, "employer")
	assert.ErrorIs(t, err, tableless.ErrUnknownAssociation)

	pet, err := db.New(context.Background(), "Pet", map[string]interface{}{"id": 1})
	require.NoError(t, err)
	assert.Error(t, db.Preload(context.Background(), []*tableless.Record{user, pet}))
	assert.NoError(t, db.Preload(context.Background(), nil))
}
