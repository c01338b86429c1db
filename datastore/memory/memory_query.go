/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory

import (
	"context"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"github.com/suparena/tablestore/expression"
	"github.com/suparena/tablestore/internal/codec"
	"github.com/suparena/tablestore/storagemodels"
)

// entry is a candidate item with its ordering position.
type entry struct {
	item codec.Item
	sort types.AttributeValue
	ck   string
}

func compareEntries(a, b entry) int {
	if a.sort != nil && b.sort != nil {
		if c, ok := expression.Compare(a.sort, b.sort); ok && c != 0 {
			return c
		}
	}
	return strings.Compare(a.ck, b.ck)
}

// ExecuteQuery runs a query against the table or one of its indexes. Items
// are ordered by sort key with the primary key as tie breaker.
func (d *DataStore[T]) ExecuteQuery(ctx context.Context, req *storagemodels.QueryRequest) (*storagemodels.Page[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := d.registry.lookup(d.table.TableName)
	if err != nil {
		return nil, err
	}

	schema := req.KeySchema
	isIndex := req.IndexName != ""
	var sortName string
	if schema.HasSortKey() {
		sortName = schema.SortKey.Name
	}

	var candidates []entry
	t.mu.RLock()
	for _, item := range t.items {
		// Items without every index key attribute are not in the index.
		if isIndex && !codec.HasKey(item, schema) {
			continue
		}
		if !expression.Equal(item[schema.PartitionKey.Name], req.PartitionValue) {
			continue
		}
		if req.SortCondition != nil && !matchSort(item[sortName], req.SortCondition) {
			continue
		}
		candidates = append(candidates, entry{
			item: expression.CloneItem(item),
			sort: item[sortName],
			ck:   codec.CanonicalKey(d.codec.KeyOf(item)),
		})
	}
	t.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		return compareEntries(candidates[i], candidates[j]) < 0
	})
	if !req.ScanForward {
		for i, j := 0, len(candidates)-1; i < j; i, j = i+1, j-1 {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		}
	}

	start := 0
	if len(req.StartKey) > 0 {
		pos := entry{
			sort: req.StartKey[sortName],
			ck:   codec.CanonicalKey(codec.Project(req.StartKey, d.table.KeySchema)),
		}
		start = sort.Search(len(candidates), func(i int) bool {
			c := compareEntries(candidates[i], pos)
			if req.ScanForward {
				return c > 0
			}
			return c < 0
		})
	}

	tokenSchemas := []storagemodels.KeySchema{d.table.KeySchema}
	if isIndex {
		tokenSchemas = append(tokenSchemas, schema)
	}
	page, err := d.collect(candidates[start:], req.Filter, req.Limit, tokenSchemas)
	if err != nil {
		return nil, err
	}

	d.log.WithFields(logrus.Fields{
		"index":   req.IndexName,
		"count":   page.Count,
		"scanned": page.ScannedCount,
	}).Debug("query executed")
	return page, nil
}

// ExecuteScan runs a scan over the table or one of its indexes in primary
// key order.
func (d *DataStore[T]) ExecuteScan(ctx context.Context, req *storagemodels.ScanRequest) (*storagemodels.Page[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := d.registry.lookup(d.table.TableName)
	if err != nil {
		return nil, err
	}

	isIndex := req.IndexName != ""

	var candidates []entry
	t.mu.RLock()
	for _, item := range t.items {
		if isIndex && !codec.HasKey(item, req.KeySchema) {
			continue
		}
		ck := codec.CanonicalKey(d.codec.KeyOf(item))
		if req.TotalSegments > 0 && segmentOf(ck, req.TotalSegments) != req.Segment {
			continue
		}
		candidates = append(candidates, entry{item: expression.CloneItem(item), ck: ck})
	}
	t.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ck < candidates[j].ck
	})

	start := 0
	if len(req.StartKey) > 0 {
		after := codec.CanonicalKey(codec.Project(req.StartKey, d.table.KeySchema))
		start = sort.Search(len(candidates), func(i int) bool {
			return candidates[i].ck > after
		})
	}

	tokenSchemas := []storagemodels.KeySchema{d.table.KeySchema}
	if isIndex {
		tokenSchemas = append(tokenSchemas, req.KeySchema)
	}
	page, err := d.collect(candidates[start:], req.Filter, req.Limit, tokenSchemas)
	if err != nil {
		return nil, err
	}

	d.log.WithFields(logrus.Fields{
		"index":   req.IndexName,
		"segment": req.Segment,
		"count":   page.Count,
		"scanned": page.ScannedCount,
	}).Debug("scan executed")
	return page, nil
}

// collect filters the ordered candidates and stops once limit items matched.
// A continuation token is returned only when candidates remain.
func (d *DataStore[T]) collect(candidates []entry, filter *storagemodels.Expression, limit int32, tokenSchemas []storagemodels.KeySchema) (*storagemodels.Page[T], error) {
	var matched []codec.Item
	scanned := 0
	for _, e := range candidates {
		scanned++
		if evaluate(filter, e.item) {
			matched = append(matched, e.item)
		}
		// A page cut by the limit always carries a token, even when no
		// candidate remains, as DynamoDB does.
		if limit > 0 && len(matched) == int(limit) {
			items, err := d.codec.DecodeItems(matched)
			if err != nil {
				return nil, err
			}
			return &storagemodels.Page[T]{
				Items:            items,
				Count:            len(items),
				ScannedCount:     scanned,
				LastEvaluatedKey: storagemodels.Token(codec.Project(e.item, tokenSchemas...)),
			}, nil
		}
	}

	items, err := d.codec.DecodeItems(matched)
	if err != nil {
		return nil, err
	}
	return &storagemodels.Page[T]{Items: items, Count: len(items), ScannedCount: scanned}, nil
}

func matchSort(v types.AttributeValue, cond *storagemodels.SortKeyCondition) bool {
	if v == nil {
		return false
	}
	cmp := func(i int) (int, bool) {
		return expression.Compare(v, cond.Values[i])
	}
	switch cond.Operator {
	case storagemodels.SortEqual:
		c, ok := cmp(0)
		return ok && c == 0
	case storagemodels.SortGreaterThan:
		c, ok := cmp(0)
		return ok && c > 0
	case storagemodels.SortGreaterOrEqual:
		c, ok := cmp(0)
		return ok && c >= 0
	case storagemodels.SortLessThan:
		c, ok := cmp(0)
		return ok && c < 0
	case storagemodels.SortLessOrEqual:
		c, ok := cmp(0)
		return ok && c <= 0
	case storagemodels.SortBeginsWith:
		s, ok := v.(*types.AttributeValueMemberS)
		prefix, pok := cond.Values[0].(*types.AttributeValueMemberS)
		return ok && pok && strings.HasPrefix(s.Value, prefix.Value)
	case storagemodels.SortBetween:
		lo, ok := cmp(0)
		if !ok {
			return false
		}
		hi, ok := cmp(1)
		return ok && lo >= 0 && hi <= 0
	}
	return false
}

// segmentOf assigns a canonical key to one of total parallel scan segments.
func segmentOf(ck string, total int32) int32 {
	h := fnv.New32a()
	h.Write([]byte(ck))
	return int32(h.Sum32() % uint32(total))
}
