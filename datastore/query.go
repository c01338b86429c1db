/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"fmt"

	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/internal/codec"
	"github.com/suparena/tablestore/storagemodels"
)

// QueryBuilder provides a fluent interface for building queries. The
// partition key equality is fixed at construction. Every method mutates and
// returns the same builder, so a builder must not be shared between
// concurrent executions.
type QueryBuilder[T any] struct {
	exec           Executor[T]
	table          storagemodels.TableConfig
	partitionValue any
	indexName      string
	sortOperator   storagemodels.SortOperator
	sortValues     []any
	filter         *storagemodels.Condition
	limit          int32
	backward       bool
	consistentRead bool
	startKey       storagemodels.Token
}

// NewQueryBuilder creates a query over table executed by exec.
func NewQueryBuilder[T any](exec Executor[T], table storagemodels.TableConfig, partitionValue any) *QueryBuilder[T] {
	return &QueryBuilder[T]{
		exec:           exec,
		table:          table,
		partitionValue: partitionValue,
	}
}

// SortKey sets the sort key condition. A later call replaces an earlier one.
func (q *QueryBuilder[T]) SortKey(op storagemodels.SortOperator, values ...any) *QueryBuilder[T] {
	q.sortOperator = op
	q.sortValues = values
	return q
}

// SortKeyEquals sets the sort key condition to "= value"
func (q *QueryBuilder[T]) SortKeyEquals(value any) *QueryBuilder[T] {
	return q.SortKey(storagemodels.SortEqual, value)
}

// SortKeyGreaterThan sets the sort key condition to "> value"
func (q *QueryBuilder[T]) SortKeyGreaterThan(value any) *QueryBuilder[T] {
	return q.SortKey(storagemodels.SortGreaterThan, value)
}

// SortKeyGreaterOrEqual sets the sort key condition to ">= value"
func (q *QueryBuilder[T]) SortKeyGreaterOrEqual(value any) *QueryBuilder[T] {
	return q.SortKey(storagemodels.SortGreaterOrEqual, value)
}

// SortKeyLessThan sets the sort key condition to "< value"
func (q *QueryBuilder[T]) SortKeyLessThan(value any) *QueryBuilder[T] {
	return q.SortKey(storagemodels.SortLessThan, value)
}

// SortKeyLessOrEqual sets the sort key condition to "<= value"
func (q *QueryBuilder[T]) SortKeyLessOrEqual(value any) *QueryBuilder[T] {
	return q.SortKey(storagemodels.SortLessOrEqual, value)
}

// SortKeyBeginsWith sets the sort key condition to begins_with(prefix)
func (q *QueryBuilder[T]) SortKeyBeginsWith(prefix string) *QueryBuilder[T] {
	return q.SortKey(storagemodels.SortBeginsWith, prefix)
}

// SortKeyBetween sets the sort key condition to an inclusive range
func (q *QueryBuilder[T]) SortKeyBetween(start, end any) *QueryBuilder[T] {
	return q.SortKey(storagemodels.SortBetween, start, end)
}

// Filter sets the filter expression applied after key matching. A later
// call replaces an earlier one.
func (q *QueryBuilder[T]) Filter(expression string, names map[string]string, values map[string]any) *QueryBuilder[T] {
	q.filter = &storagemodels.Condition{Expression: expression, Names: names, Values: values}
	return q
}

// ScanBackward returns items in descending sort key order
func (q *QueryBuilder[T]) ScanBackward() *QueryBuilder[T] {
	q.backward = true
	return q
}

// Index queries the named secondary index instead of the table
func (q *QueryBuilder[T]) Index(name string) *QueryBuilder[T] {
	q.indexName = name
	return q
}

// Limit caps the number of returned items
func (q *QueryBuilder[T]) Limit(limit int32) *QueryBuilder[T] {
	q.limit = limit
	return q
}

// ConsistentRead requests a strongly consistent read
func (q *QueryBuilder[T]) ConsistentRead() *QueryBuilder[T] {
	q.consistentRead = true
	return q
}

// StartFrom resumes after the given continuation token
func (q *QueryBuilder[T]) StartFrom(token storagemodels.Token) *QueryBuilder[T] {
	q.startKey = token
	return q
}

// Build resolves the builder state into a backend-neutral request.
func (q *QueryBuilder[T]) Build() (*storagemodels.QueryRequest, error) {
	schema, err := q.table.ResolveIndex(q.indexName)
	if err != nil {
		return nil, err
	}

	pk, err := storagemodels.MarshalValue(q.partitionValue)
	if err != nil {
		return nil, err
	}
	if err := codec.CheckKeyValue(schema.PartitionKey, pk); err != nil {
		return nil, err
	}

	req := &storagemodels.QueryRequest{
		IndexName:      q.indexName,
		KeySchema:      schema,
		PartitionValue: pk,
		Limit:          q.limit,
		ScanForward:    !q.backward,
		ConsistentRead: q.consistentRead,
		StartKey:       q.startKey,
	}

	if q.sortOperator != "" {
		cond, err := resolveSortCondition(schema, q.sortOperator, q.sortValues)
		if err != nil {
			return nil, err
		}
		req.SortCondition = cond
	}

	if req.Filter, err = q.filter.Resolve(); err != nil {
		return nil, err
	}
	if q.limit < 0 {
		return nil, errors.NewValidationError("limit", "limit must not be negative")
	}
	if q.consistentRead && q.indexName != "" {
		return nil, errors.NewValidationError("consistentRead", "consistent reads are not supported on secondary indexes")
	}
	return req, nil
}

// Execute runs the query and returns one page.
func (q *QueryBuilder[T]) Execute(ctx context.Context) (*storagemodels.Page[T], error) {
	req, err := q.Build()
	if err != nil {
		return nil, err
	}
	return q.exec.ExecuteQuery(ctx, req)
}

// ExecuteAll follows continuation tokens and returns every matching item.
// When a limit is set it applies per page.
func (q *QueryBuilder[T]) ExecuteAll(ctx context.Context) ([]T, error) {
	var all []T
	for {
		page, err := q.Execute(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if !page.HasMore() {
			return all, nil
		}
		q.startKey = page.LastEvaluatedKey
	}
}

func resolveSortCondition(schema storagemodels.KeySchema, op storagemodels.SortOperator, values []any) (*storagemodels.SortKeyCondition, error) {
	if !schema.HasSortKey() {
		return nil, errors.NewValidationError("sortKey", "key schema has no sort key")
	}
	arity := op.Arity()
	if arity == 0 {
		return nil, errors.NewValidationError("sortKey", fmt.Sprintf("unsupported sort key operator %q", op))
	}
	if len(values) != arity {
		return nil, errors.NewValidationError("sortKey", fmt.Sprintf("operator %q takes %d value(s), got %d", op, arity, len(values)))
	}
	if op == storagemodels.SortBeginsWith && schema.SortKey.Type != storagemodels.ScalarString {
		return nil, errors.NewValidationError(schema.SortKey.Name, "begins_with requires a string sort key")
	}

	cond := &storagemodels.SortKeyCondition{Operator: op}
	for _, v := range values {
		if tb, ok := v.(timeBound); ok {
			v = tb.render(*schema.SortKey)
		}
		av, err := storagemodels.MarshalValue(v)
		if err != nil {
			return nil, err
		}
		if err := codec.CheckKeyValue(*schema.SortKey, av); err != nil {
			return nil, err
		}
		cond.Values = append(cond.Values, av)
	}
	return cond, nil
}
