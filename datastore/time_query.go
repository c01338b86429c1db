/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/suparena/tablestore/storagemodels"
)

// timeBound is a sort key bound given as a time. It is rendered when the
// query is built, once the sort key type is known: number keys get unix
// seconds, string keys the same UTC millisecond format used for createdAt
// and updatedAt.
type timeBound time.Time

func (b timeBound) render(part storagemodels.KeyPart) any {
	t := time.Time(b)
	if part.Type == storagemodels.ScalarNumber {
		return t.Unix()
	}
	return strfmt.DateTime(t.UTC()).String()
}

// After restricts the sort key to times strictly after t
func (q *QueryBuilder[T]) After(t time.Time) *QueryBuilder[T] {
	return q.SortKey(storagemodels.SortGreaterThan, timeBound(t))
}

// Before restricts the sort key to times strictly before t
func (q *QueryBuilder[T]) Before(t time.Time) *QueryBuilder[T] {
	return q.SortKey(storagemodels.SortLessThan, timeBound(t))
}

// TimeBetween restricts the sort key to the inclusive range [start, end]
func (q *QueryBuilder[T]) TimeBetween(start, end time.Time) *QueryBuilder[T] {
	return q.SortKey(storagemodels.SortBetween, timeBound(start), timeBound(end))
}

// InLast restricts the sort key to the trailing window d ending now
func (q *QueryBuilder[T]) InLast(d time.Duration) *QueryBuilder[T] {
	return q.After(time.Now().Add(-d))
}

// Latest returns results newest first
func (q *QueryBuilder[T]) Latest() *QueryBuilder[T] {
	q.backward = true
	return q
}

// Oldest returns results oldest first
func (q *QueryBuilder[T]) Oldest() *QueryBuilder[T] {
	q.backward = false
	return q
}
