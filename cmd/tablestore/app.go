/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/suparena/tablestore"
	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

// Item is an untyped table item.
type Item = map[string]any

type app struct {
	storage *tablestore.Storage
	defs    *storagemodels.TableDefinitions
	out     io.Writer
}

type request struct {
	table    string
	pk       string
	sk       string
	index    string
	limit    int32
	backward bool
	all      bool
}

type pageOutput struct {
	Items        []Item `json:"items"`
	Count        int    `json:"count"`
	ScannedCount int    `json:"scannedCount"`
	HasMore      bool   `json:"hasMore"`
}

func (a *app) run(ctx context.Context, command string, req request) error {
	def, ok := a.defs.Find(req.table)
	if !ok {
		return errors.NewValidationError("table", fmt.Sprintf("table %q is not defined in the schema file", req.table))
	}
	tc := def.TableConfig(def.Name)
	store, err := tablestore.Open[Item](ctx, a.storage, tc)
	if err != nil {
		return err
	}

	switch command {
	case "count":
		n, err := store.GetItemCount(ctx)
		if err != nil {
			return err
		}
		return a.print(map[string]any{"table": store.TableConfig().TableName, "count": n})

	case "get":
		key, err := buildKey(tc.KeySchema, req.pk, req.sk)
		if err != nil {
			return err
		}
		item, err := store.GetItem(ctx, key)
		if err != nil {
			return err
		}
		if item == nil {
			return errors.NewNotFoundError(store.TableConfig().TableName, fmt.Sprint(key))
		}
		return a.print(*item)

	case "scan":
		b := store.Scan().Index(req.index).Limit(req.limit)
		if req.all {
			items, err := b.ExecuteAll(ctx)
			if err != nil {
				return err
			}
			return a.print(pageOutput{Items: items, Count: len(items)})
		}
		page, err := b.Execute(ctx)
		if err != nil {
			return err
		}
		return a.printPage(page)

	case "query":
		schema, err := tc.ResolveIndex(req.index)
		if err != nil {
			return err
		}
		pk, err := parseKeyValue(schema.PartitionKey, req.pk)
		if err != nil {
			return err
		}
		b := store.Query(pk).Index(req.index).Limit(req.limit)
		if req.backward {
			b.ScanBackward()
		}
		return a.runQuery(ctx, b, req.all)

	default:
		return errors.NewValidationError("command", fmt.Sprintf("unknown command %q", command))
	}
}

func (a *app) runQuery(ctx context.Context, b *datastore.QueryBuilder[Item], all bool) error {
	if all {
		items, err := b.ExecuteAll(ctx)
		if err != nil {
			return err
		}
		return a.print(pageOutput{Items: items, Count: len(items)})
	}
	page, err := b.Execute(ctx)
	if err != nil {
		return err
	}
	return a.printPage(page)
}

func (a *app) printPage(page *storagemodels.Page[Item]) error {
	return a.print(pageOutput{
		Items:        page.Items,
		Count:        len(page.Items),
		ScannedCount: page.ScannedCount,
		HasMore:      page.HasMore(),
	})
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func buildKey(schema storagemodels.KeySchema, pk, sk string) (storagemodels.Key, error) {
	pv, err := parseKeyValue(schema.PartitionKey, pk)
	if err != nil {
		return nil, err
	}
	if !schema.HasSortKey() {
		return schema.Key(pv), nil
	}
	sv, err := parseKeyValue(*schema.SortKey, sk)
	if err != nil {
		return nil, err
	}
	return schema.Key(pv, sv), nil
}

// parseKeyValue converts a command-line key value to the declared type.
func parseKeyValue(part storagemodels.KeyPart, raw string) (any, error) {
	if raw == "" {
		return nil, errors.NewValidationError(part.Name, "key value is required")
	}
	if part.Type != storagemodels.ScalarNumber {
		return raw, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.NewValidationError(part.Name, fmt.Sprintf("invalid number %q", raw))
	}
	return f, nil
}
