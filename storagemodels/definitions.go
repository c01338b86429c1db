/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// TableDefinitions is the top-level shape of a table definition file:
//
//	tables:
//	  - name: chats
//	    partitionKey: {name: chatId, type: string}
//	    sortKey: {name: sentAt, type: number}
//	    indexes:
//	      - name: bySender
//	        partitionKey: {name: senderId, type: string}
type TableDefinitions struct {
	Tables []TableDefinition `yaml:"tables"`
}

// TableDefinition describes one table without its stage prefix.
type TableDefinition struct {
	Name         string            `yaml:"name"`
	PartitionKey KeyPart           `yaml:"partitionKey"`
	SortKey      *KeyPart          `yaml:"sortKey,omitempty"`
	Indexes      []IndexDefinition `yaml:"indexes,omitempty"`
}

// IndexDefinition describes a secondary index.
type IndexDefinition struct {
	Name         string   `yaml:"name"`
	PartitionKey KeyPart  `yaml:"partitionKey"`
	SortKey      *KeyPart `yaml:"sortKey,omitempty"`
}

// UnmarshalYAML accepts "string"/"number" as well as "S"/"N".
func (t *ScalarType) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseScalarType(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*t = parsed
	return nil
}

// TableConfig converts the definition into a TableConfig bound to tableName.
func (d TableDefinition) TableConfig(tableName string) TableConfig {
	cfg := TableConfig{
		TableName: tableName,
		KeySchema: KeySchema{PartitionKey: d.PartitionKey, SortKey: d.SortKey},
	}
	if len(d.Indexes) > 0 {
		cfg.Indexes = make(IndexConfig, len(d.Indexes))
		for _, idx := range d.Indexes {
			cfg.Indexes[idx.Name] = KeySchema{PartitionKey: idx.PartitionKey, SortKey: idx.SortKey}
		}
	}
	return cfg
}

// Find returns the definition named name.
func (d TableDefinitions) Find(name string) (TableDefinition, bool) {
	for _, t := range d.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableDefinition{}, false
}

// LoadTableDefinitions decodes and validates a YAML table definition document.
func LoadTableDefinitions(r io.Reader) (*TableDefinitions, error) {
	var defs TableDefinitions
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil {
		return nil, fmt.Errorf("failed to decode table definitions: %w", err)
	}

	seen := make(map[string]bool, len(defs.Tables))
	for _, t := range defs.Tables {
		if seen[t.Name] {
			return nil, fmt.Errorf("table %q defined twice", t.Name)
		}
		seen[t.Name] = true
		if err := t.TableConfig(t.Name).Validate(); err != nil {
			return nil, fmt.Errorf("table %q: %w", t.Name, err)
		}
	}
	return &defs, nil
}

// LoadTableDefinitionsFile reads table definitions from path.
func LoadTableDefinitionsFile(path string) (*TableDefinitions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table definitions: %w", err)
	}
	defer f.Close()
	return LoadTableDefinitions(f)
}
