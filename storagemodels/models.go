/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"strings"

	"github.com/suparena/tablestore/errors"
)

// ScalarType is the type of a key attribute.
type ScalarType string

const (
	ScalarString ScalarType = "S"
	ScalarNumber ScalarType = "N"
)

// Valid reports whether t is a supported key type.
func (t ScalarType) Valid() bool {
	return t == ScalarString || t == ScalarNumber
}

// ParseScalarType accepts "S", "N", "string" and "number" in any case.
func ParseScalarType(s string) (ScalarType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s", "string":
		return ScalarString, nil
	case "n", "number":
		return ScalarNumber, nil
	}
	return "", fmt.Errorf("unsupported key type %q", s)
}

// KeyPart is a single (name, type) key attribute definition.
type KeyPart struct {
	Name string     `yaml:"name" json:"name"`
	Type ScalarType `yaml:"type" json:"type"`
}

// StringKey defines a string key attribute.
func StringKey(name string) KeyPart {
	return KeyPart{Name: name, Type: ScalarString}
}

// NumberKey defines a number key attribute.
func NumberKey(name string) KeyPart {
	return KeyPart{Name: name, Type: ScalarNumber}
}

// KeySchema is a required partition key plus an optional sort key.
type KeySchema struct {
	PartitionKey KeyPart  `yaml:"partitionKey" json:"partitionKey"`
	SortKey      *KeyPart `yaml:"sortKey,omitempty" json:"sortKey,omitempty"`
}

// NewKeySchema builds a schema. Only the first sort key, if any, is used.
func NewKeySchema(partitionKey KeyPart, sortKey ...KeyPart) KeySchema {
	s := KeySchema{PartitionKey: partitionKey}
	if len(sortKey) > 0 {
		sk := sortKey[0]
		s.SortKey = &sk
	}
	return s
}

// HasSortKey reports whether the schema declares a sort key.
func (s KeySchema) HasSortKey() bool {
	return s.SortKey != nil
}

// AttributeNames returns the key attribute names, partition key first.
func (s KeySchema) AttributeNames() []string {
	if s.SortKey == nil {
		return []string{s.PartitionKey.Name}
	}
	return []string{s.PartitionKey.Name, s.SortKey.Name}
}

// Part returns the key part named name.
func (s KeySchema) Part(name string) (KeyPart, bool) {
	if s.PartitionKey.Name == name {
		return s.PartitionKey, true
	}
	if s.SortKey != nil && s.SortKey.Name == name {
		return *s.SortKey, true
	}
	return KeyPart{}, false
}

// Validate checks the schema definition itself.
func (s KeySchema) Validate() error {
	if s.PartitionKey.Name == "" {
		return errors.NewValidationError("partitionKey", "name is required")
	}
	if !s.PartitionKey.Type.Valid() {
		return errors.NewValidationError(s.PartitionKey.Name, fmt.Sprintf("unsupported key type %q", s.PartitionKey.Type))
	}
	if s.SortKey == nil {
		return nil
	}
	if s.SortKey.Name == "" {
		return errors.NewValidationError("sortKey", "name is required")
	}
	if s.SortKey.Name == s.PartitionKey.Name {
		return errors.NewValidationError(s.SortKey.Name, "sort key must differ from partition key")
	}
	if !s.SortKey.Type.Valid() {
		return errors.NewValidationError(s.SortKey.Name, fmt.Sprintf("unsupported key type %q", s.SortKey.Type))
	}
	return nil
}

// Key builds a key for this schema. The sort key value is ignored when the
// schema has no sort key; validation against the declared types happens when
// the key is used.
func (s KeySchema) Key(partitionValue any, sortValue ...any) Key {
	k := Key{s.PartitionKey.Name: partitionValue}
	if s.SortKey != nil && len(sortValue) > 0 {
		k[s.SortKey.Name] = sortValue[0]
	}
	return k
}

// Key identifies one item: key attribute name to Go value.
type Key map[string]any

// IndexConfig maps an index name to its key schema.
type IndexConfig map[string]KeySchema

// Validator validates an item before it is written and after it is read.
type Validator interface {
	Validate(item any) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(item any) error

// Validate calls f(item).
func (f ValidatorFunc) Validate(item any) error {
	return f(item)
}

// TableConfig holds the construction parameters shared by every backend.
type TableConfig struct {
	// TableName is the stage-prefixed table name, e.g. "dev-users".
	TableName string
	KeySchema KeySchema
	Indexes   IndexConfig
	// Region is a locality hint; the in-memory backend ignores it.
	Region string
	// Validator overrides the default struct-tag validator when set.
	Validator Validator
}

// Validate checks the table configuration.
func (c TableConfig) Validate() error {
	if c.TableName == "" {
		return errors.NewValidationError("tableName", "table name is required")
	}
	if err := c.KeySchema.Validate(); err != nil {
		return err
	}
	for name, idx := range c.Indexes {
		if name == "" {
			return errors.NewValidationError("indexes", "index name is required")
		}
		if err := idx.Validate(); err != nil {
			return fmt.Errorf("index %q: %w", name, err)
		}
	}
	return nil
}

// ResolveIndex returns the key schema for index name, or the table's schema
// when name is empty.
func (c TableConfig) ResolveIndex(name string) (KeySchema, error) {
	if name == "" {
		return c.KeySchema, nil
	}
	idx, ok := c.Indexes[name]
	if !ok {
		return KeySchema{}, errors.NewValidationError("index", fmt.Sprintf("unknown index %q on table %q", name, c.TableName))
	}
	return idx, nil
}
