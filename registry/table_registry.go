/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/suparena/tablestore/storagemodels"
)

var (
	mu     sync.RWMutex
	byType = make(map[reflect.Type]storagemodels.TableConfig)
	byName = make(map[string]storagemodels.TableConfig)
)

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// RegisterTable associates type T with a table configuration. Registering a
// type or a table name twice is an error.
func RegisterTable[T any](cfg storagemodels.TableConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	t := typeOf[T]()

	mu.Lock()
	defer mu.Unlock()
	if _, exists := byType[t]; exists {
		return fmt.Errorf("registry: type %s already registered", t)
	}
	if _, exists := byName[cfg.TableName]; exists {
		return fmt.Errorf("registry: table %q already registered", cfg.TableName)
	}
	byType[t] = cfg
	byName[cfg.TableName] = cfg
	return nil
}

// MustRegisterTable is RegisterTable that panics on error.
func MustRegisterTable[T any](cfg storagemodels.TableConfig) {
	if err := RegisterTable[T](cfg); err != nil {
		panic(err)
	}
}

// GetTableConfig retrieves the table configuration registered for T, if any.
func GetTableConfig[T any]() (storagemodels.TableConfig, bool) {
	mu.RLock()
	defer mu.RUnlock()
	cfg, ok := byType[typeOf[T]()]
	return cfg, ok
}

// LookupTable retrieves a registration by base table name.
func LookupTable(name string) (storagemodels.TableConfig, bool) {
	mu.RLock()
	defer mu.RUnlock()
	cfg, ok := byName[name]
	return cfg, ok
}

// Tables returns the registered base table names in order.
func Tables() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes the registration for T. It reports whether one existed.
func Unregister[T any]() bool {
	t := typeOf[T]()

	mu.Lock()
	defer mu.Unlock()
	cfg, ok := byType[t]
	if !ok {
		return false
	}
	delete(byType, t)
	delete(byName, cfg.TableName)
	return true
}
