package tableless

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/modelkit/tableless/logger"
	"github.com/modelkit/tableless/preload"
	"github.com/modelkit/tableless/schema"
)

// Config tableless config
type Config struct {
	// NamingStrategy tables, foreign keys and target model naming strategy
	NamingStrategy schema.Namer
	// Logger
	Logger logger.Interface
	// TimeLocation location of date and time attributes, UTC by default
	TimeLocation *time.Location
	// Casters caster registry, schema.DefaultCasters by default
	Casters *schema.CasterRegistry
	// Fetcher source of belongs_to targets
	Fetcher preload.Fetcher
	// IgnoreUnknownAttributes drop undeclared row keys instead of failing
	IgnoreUnknownAttributes bool

	callbacks  *callbacks
	cacheStore *sync.Map
	mu         *sync.Mutex
}

// DB registry of models and entry point of record construction
type DB struct {
	*Config
}

// Session session config when create session with Session() method
type Session struct {
	Logger  logger.Interface
	Fetcher preload.Fetcher
}

// Open initialize a model registry
func Open(config *Config) (db *DB, err error) {
	if config == nil {
		config = &Config{}
	}

	if config.NamingStrategy == nil {
		config.NamingStrategy = schema.NamingStrategy{}
	}

	if config.Logger == nil {
		config.Logger = logger.Default
	}

	if config.TimeLocation == nil {
		config.TimeLocation = time.UTC
	}

	if config.Casters == nil {
		config.Casters = schema.DefaultCasters
	}

	if config.cacheStore == nil {
		config.cacheStore = &sync.Map{}
	}

	if config.mu == nil {
		config.mu = &sync.Mutex{}
	}

	db = &DB{Config: config}
	db.callbacks = initializeCallbacks(db)
	err = registerDefaultCallbacks(db)
	return
}

// Session create new db session sharing registered models
func (db *DB) Session(config *Session) *DB {
	var (
		txConfig = *db.Config
		tx       = &DB{Config: &txConfig}
	)

	if config.Logger != nil {
		tx.Config.Logger = config.Logger
	}

	if config.Fetcher != nil {
		tx.Config.Fetcher = config.Fetcher
	}

	return tx
}

// Debug start debug mode
func (db *DB) Debug() (tx *DB) {
	return db.Session(&Session{
		Logger: db.Logger.LogMode(logger.Info),
	})
}

// WithFetcher returns a session resolving associations through fetcher
func (db *DB) WithFetcher(fetcher preload.Fetcher) *DB {
	return db.Session(&Session{Fetcher: fetcher})
}

// Register builds and registers schemas for defs. Every column type and every
// association target is resolved before anything is registered, targets may be
// registered earlier or in the same call.
func (db *DB) Register(defs ...*schema.Definition) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var (
		opts  = schema.Options{Namer: db.NamingStrategy, Casters: db.Casters, Location: db.TimeLocation}
		batch = map[string]*schema.Schema{}
		order = make([]*schema.Schema, 0, len(defs))
	)

	for _, def := range defs {
		s, err := schema.Parse(def, opts)
		if err != nil {
			return err
		}

		if _, ok := db.cacheStore.Load(s.Name); ok {
			return fmt.Errorf("%w: %v", ErrDuplicateModel, s.Name)
		}
		if _, ok := batch[s.Name]; ok {
			return fmt.Errorf("%w: %v", ErrDuplicateModel, s.Name)
		}

		batch[s.Name] = s
		order = append(order, s)
	}

	resolver := resolverFunc(func(name string) (*schema.Schema, bool) {
		if s, ok := batch[name]; ok {
			return s, true
		}
		return db.Lookup(name)
	})

	for _, s := range order {
		if err := s.ResolveAssociations(resolver); err != nil {
			return err
		}
	}

	for _, s := range order {
		db.cacheStore.Store(s.Name, s)
		db.Logger.Info(context.Background(), "registered model %v (%d columns, %d associations)", s.Name, len(s.Columns), len(s.Associations))
	}
	return nil
}

// Lookup returns the registered schema of model
func (db *DB) Lookup(model string) (*schema.Schema, bool) {
	v, ok := db.cacheStore.Load(model)
	if !ok {
		return nil, false
	}
	return v.(*schema.Schema), true
}

// Schema returns the registered schema of model or ErrModelNotRegistered
func (db *DB) Schema(model string) (*schema.Schema, error) {
	if s, ok := db.Lookup(model); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrModelNotRegistered, model)
}

// Models returns registered model names, sorted
func (db *DB) Models() []string {
	var names []string
	db.cacheStore.Range(func(key, _ interface{}) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}

// Callback returns callback manager
func (db *DB) Callback() *callbacks {
	return db.callbacks
}

type resolverFunc func(name string) (*schema.Schema, bool)

func (f resolverFunc) Lookup(name string) (*schema.Schema, bool) {
	return f(name)
}
