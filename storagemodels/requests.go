/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/tablestore/errors"
)

// Token is an opaque continuation token (the last evaluated key).
type Token map[string]types.AttributeValue

// Page is one page of validated items.
type Page[T any] struct {
	Items            []T
	LastEvaluatedKey Token
	// Count is len(Items) after filtering and limiting.
	Count int
	// ScannedCount counts every item inspected before filter or limit.
	ScannedCount int
}

// HasMore reports whether a continuation token was returned.
func (p *Page[T]) HasMore() bool {
	return len(p.LastEvaluatedKey) > 0
}

// Condition is a condition expression with its alias maps.
type Condition struct {
	Expression string
	Names      map[string]string
	Values     map[string]any
}

// Update is an update expression with its alias maps.
type Update struct {
	Expression string
	Names      map[string]string
	Values     map[string]any
}

// Expression is a condition or filter with values already marshaled.
type Expression struct {
	Expression string
	Names      map[string]string
	Values     map[string]types.AttributeValue
}

// ReturnValue selects what a write reports back.
type ReturnValue string

const (
	ReturnNone   ReturnValue = "NONE"
	ReturnAllOld ReturnValue = "ALL_OLD"
	ReturnAllNew ReturnValue = "ALL_NEW"
)

// ReadOptions configures single and batch reads.
type ReadOptions struct {
	ConsistentRead bool
}

// ReadOption is a functional option for reads
type ReadOption func(*ReadOptions)

// WithConsistentRead requests a strongly consistent read.
func WithConsistentRead() ReadOption {
	return func(opts *ReadOptions) {
		opts.ConsistentRead = true
	}
}

// ApplyReadOptions folds opts into a ReadOptions value.
func ApplyReadOptions(opts ...ReadOption) ReadOptions {
	var o ReadOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WriteOptions configures put, update and delete.
type WriteOptions struct {
	Condition    *Condition
	ReturnValues ReturnValue
}

// WriteOption is a functional option for writes
type WriteOption func(*WriteOptions)

// WithCondition gates the write on a condition expression.
func WithCondition(expression string, names map[string]string, values map[string]any) WriteOption {
	return func(opts *WriteOptions) {
		opts.Condition = &Condition{Expression: expression, Names: names, Values: values}
	}
}

// WithReturnValues selects the item reported by UpdateItem.
func WithReturnValues(rv ReturnValue) WriteOption {
	return func(opts *WriteOptions) {
		opts.ReturnValues = rv
	}
}

// ApplyWriteOptions folds opts into a WriteOptions value.
func ApplyWriteOptions(opts ...WriteOption) WriteOptions {
	var o WriteOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WriteOperation is one batchWrite entry: a put when Item is set, else a delete of Key.
type WriteOperation[T any] struct {
	Item *T
	Key  Key
}

// PutOperation returns a batch put.
func PutOperation[T any](item T) WriteOperation[T] {
	return WriteOperation[T]{Item: &item}
}

// DeleteOperation returns a batch delete.
func DeleteOperation[T any](key Key) WriteOperation[T] {
	return WriteOperation[T]{Key: key}
}

// TransactKind identifies a transaction member.
type TransactKind string

const (
	TransactPutKind            TransactKind = "put"
	TransactUpdateKind         TransactKind = "update"
	TransactDeleteKind         TransactKind = "delete"
	TransactConditionCheckKind TransactKind = "conditionCheck"
)

// TransactOperation is one member of a transactWrite group.
type TransactOperation[T any] struct {
	Kind      TransactKind
	Item      *T
	Key       Key
	Update    *Update
	Condition *Condition
}

// TransactPut puts item, optionally gated by cond.
func TransactPut[T any](item T, cond *Condition) TransactOperation[T] {
	return TransactOperation[T]{Kind: TransactPutKind, Item: &item, Condition: cond}
}

// TransactUpdate applies upd to an existing item.
func TransactUpdate[T any](key Key, upd Update, cond *Condition) TransactOperation[T] {
	return TransactOperation[T]{Kind: TransactUpdateKind, Key: key, Update: &upd, Condition: cond}
}

// TransactDelete deletes key, optionally gated by cond.
func TransactDelete[T any](key Key, cond *Condition) TransactOperation[T] {
	return TransactOperation[T]{Kind: TransactDeleteKind, Key: key, Condition: cond}
}

// TransactConditionCheck asserts cond against key without writing.
func TransactConditionCheck[T any](key Key, cond Condition) TransactOperation[T] {
	return TransactOperation[T]{Kind: TransactConditionCheckKind, Key: key, Condition: &cond}
}

// SortOperator is a sort key comparison.
type SortOperator string

const (
	SortEqual          SortOperator = "="
	SortGreaterThan    SortOperator = ">"
	SortGreaterOrEqual SortOperator = ">="
	SortLessThan       SortOperator = "<"
	SortLessOrEqual    SortOperator = "<="
	SortBeginsWith     SortOperator = "begins_with"
	SortBetween        SortOperator = "between"
)

// Arity returns how many operands the operator takes, or 0 if unknown.
func (o SortOperator) Arity() int {
	switch o {
	case SortEqual, SortGreaterThan, SortGreaterOrEqual, SortLessThan, SortLessOrEqual, SortBeginsWith:
		return 1
	case SortBetween:
		return 2
	}
	return 0
}

// SortKeyCondition is a resolved sort key condition.
type SortKeyCondition struct {
	Operator SortOperator
	Values   []types.AttributeValue
}

// QueryRequest is the backend-neutral form of an executed query builder.
type QueryRequest struct {
	IndexName      string
	KeySchema      KeySchema
	PartitionValue types.AttributeValue
	SortCondition  *SortKeyCondition
	Filter         *Expression
	Limit          int32
	ScanForward    bool
	ConsistentRead bool
	StartKey       Token
}

// ScanRequest is the backend-neutral form of an executed scan builder.
type ScanRequest struct {
	IndexName string
	// KeySchema is the index schema for index scans, zero otherwise.
	KeySchema      KeySchema
	Filter         *Expression
	Limit          int32
	ConsistentRead bool
	StartKey       Token
	Segment        int32
	TotalSegments  int32
}

// MarshalValue converts a Go value to an attribute value. Attribute values
// pass through unchanged.
func MarshalValue(v any) (types.AttributeValue, error) {
	if av, ok := v.(types.AttributeValue); ok {
		return av, nil
	}
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, errors.NewValidationError("", fmt.Sprintf("cannot marshal value %v: %v", v, err))
	}
	return av, nil
}

// MarshalValues converts an expression value alias map.
func MarshalValues(values map[string]any) (map[string]types.AttributeValue, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]types.AttributeValue, len(values))
	for k, v := range values {
		av, err := MarshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("value %s: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

// Resolve marshals the condition into an Expression. A nil or empty
// condition resolves to nil.
func (c *Condition) Resolve() (*Expression, error) {
	if c == nil || c.Expression == "" {
		return nil, nil
	}
	values, err := MarshalValues(c.Values)
	if err != nil {
		return nil, err
	}
	return &Expression{Expression: c.Expression, Names: c.Names, Values: values}, nil
}

// Resolve marshals the update into an Expression.
func (u Update) Resolve() (*Expression, error) {
	if u.Expression == "" {
		return nil, errors.NewValidationError("updateExpression", "update expression is required")
	}
	values, err := MarshalValues(u.Values)
	if err != nil {
		return nil, err
	}
	return &Expression{Expression: u.Expression, Names: u.Names, Values: values}, nil
}
