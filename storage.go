/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/suparena/tablestore/backend"
	"github.com/suparena/tablestore/config"
	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/datastore/ddb"
	"github.com/suparena/tablestore/datastore/memory"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/logger"
	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
)

// Storage opens DataStore instances for one deployment. It decides the
// backend, owns the emulator registry and the DynamoDB client, and keeps
// the stores it opened so each (type, table) pair is built once.
type Storage struct {
	cfg    *config.Config
	log    logrus.FieldLogger
	clock  func() time.Time
	memory *memory.Registry

	clientMu  sync.Mutex
	api       ddb.API
	newClient func(ctx context.Context) (ddb.API, error)

	mu     sync.RWMutex
	stores map[storeKey]any
}

type storeKey struct {
	typ   reflect.Type
	table string
}

// Option configures a Storage
type Option func(*Storage)

// WithLogger sets the logger passed to every store
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Storage) {
		s.log = l
	}
}

// WithAPI supplies the DynamoDB client instead of building one from config
func WithAPI(api ddb.API) Option {
	return func(s *Storage) {
		s.api = api
	}
}

// WithMemoryRegistry shares an emulator registry between Storage instances
func WithMemoryRegistry(r *memory.Registry) Option {
	return func(s *Storage) {
		s.memory = r
	}
}

// WithClock overrides the clock used for createdAt/updatedAt
func WithClock(clock func() time.Time) Option {
	return func(s *Storage) {
		s.clock = clock
	}
}

// NewStorage creates a Storage. A nil cfg uses config.Default().
func NewStorage(cfg *config.Config, opts ...Option) (*Storage, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Storage{
		cfg:    cfg,
		stores: make(map[storeKey]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.New(cfg.Log.Level, cfg.Log.Format)
	}
	if s.memory == nil {
		s.memory = memory.NewRegistry()
	}
	s.newClient = func(ctx context.Context) (ddb.API, error) {
		return ddb.NewClient(ctx, ddb.ClientConfig{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Endpoint:        cfg.AWS.Endpoint,
		})
	}
	return s, nil
}

// Config returns the configuration the storage was created with.
func (s *Storage) Config() *config.Config {
	return s.cfg
}

// MemoryRegistry returns the registry backing emulated stores.
func (s *Storage) MemoryRegistry() *memory.Registry {
	return s.memory
}

// Decision reports which backend new stores get and why.
func (s *Storage) Decision() backend.Decision {
	return backend.Choose(s.cfg.Backend, s.cfg.Stage)
}

// Tables returns the full names of the tables with open stores.
func (s *Storage) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool, len(s.stores))
	names := make([]string, 0, len(s.stores))
	for k := range s.stores {
		if !seen[k.table] {
			seen[k.table] = true
			names = append(names, k.table)
		}
	}
	sort.Strings(names)
	return names
}

func (s *Storage) client(ctx context.Context) (ddb.API, error) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	if s.api != nil {
		return s.api, nil
	}
	api, err := s.newClient(ctx)
	if err != nil {
		return nil, err
	}
	s.api = api
	return api, nil
}

// Open returns the store for items of type T in the table described by tc.
// tc.TableName is the base name; the stage prefix is applied here. Calling
// Open again for the same type and table returns the same store.
func Open[T any](ctx context.Context, s *Storage, tc storagemodels.TableConfig) (datastore.DataStore[T], error) {
	if tc.TableName == "" {
		return nil, errors.NewValidationError("tableName", "table name is required")
	}
	tc.TableName = s.cfg.TableName(tc.TableName)
	if tc.Region == "" {
		tc.Region = s.cfg.AWS.Region
	}
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	key := storeKey{typ: reflect.TypeOf((*T)(nil)).Elem(), table: tc.TableName}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.stores[key]; ok {
		return existing.(datastore.DataStore[T]), nil
	}

	decision := s.Decision()
	log := s.log.WithFields(logrus.Fields{
		"table":   tc.TableName,
		"backend": decision.Backend,
	})
	if decision.Warning != "" {
		log.Warn(decision.Warning)
	}

	var (
		store datastore.DataStore[T]
		err   error
	)
	switch decision.Backend {
	case backend.Emulated:
		store, err = memory.New[T](s.memory, tc,
			memory.WithLogger(s.log),
			memory.WithClock(s.clock),
		)
	default:
		var api ddb.API
		if api, err = s.client(ctx); err != nil {
			return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
		}
		store, err = ddb.New[T](api, tc,
			ddb.WithLogger(s.log),
			ddb.WithClock(s.clock),
			ddb.WithBatchRetry(s.cfg.Batch.MaxRetries, s.cfg.Batch.BaseDelay, s.cfg.Batch.MaxDelay),
		)
	}
	if err != nil {
		return nil, err
	}

	s.stores[key] = store
	log.WithField("reason", decision.Reason).Info("datastore opened")
	return store, nil
}

// OpenRegistered opens the store for the table registered for T with
// registry.RegisterTable.
func OpenRegistered[T any](ctx context.Context, s *Storage) (datastore.DataStore[T], error) {
	tc, ok := registry.GetTableConfig[T]()
	if !ok {
		var zero T
		return nil, errors.NewValidationError("type", fmt.Sprintf("no table registered for %T", zero))
	}
	return Open[T](ctx, s, tc)
}

// GetDataStore returns a store previously opened for T on the base table.
func GetDataStore[T any](s *Storage, table string) (datastore.DataStore[T], error) {
	key := storeKey{typ: reflect.TypeOf((*T)(nil)).Elem(), table: s.cfg.TableName(table)}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.stores[key]
	if !ok {
		return nil, fmt.Errorf("datastore for table %q not found", key.table)
	}
	return ds.(datastore.DataStore[T]), nil
}
