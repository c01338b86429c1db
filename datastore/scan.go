/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

// ScanBuilder provides a fluent interface for building scans. Like
// QueryBuilder, methods mutate and return the same instance.
type ScanBuilder[T any] struct {
	exec           Executor[T]
	table          storagemodels.TableConfig
	indexName      string
	filter         *storagemodels.Condition
	limit          int32
	consistentRead bool
	startKey       storagemodels.Token
	parallel       bool
	totalSegments  int32
	segment        int32
}

// NewScanBuilder creates a scan over table executed by exec.
func NewScanBuilder[T any](exec Executor[T], table storagemodels.TableConfig) *ScanBuilder[T] {
	return &ScanBuilder[T]{exec: exec, table: table}
}

// Filter sets the filter expression. A later call replaces an earlier one.
func (s *ScanBuilder[T]) Filter(expression string, names map[string]string, values map[string]any) *ScanBuilder[T] {
	s.filter = &storagemodels.Condition{Expression: expression, Names: names, Values: values}
	return s
}

// Index scans the named secondary index
func (s *ScanBuilder[T]) Index(name string) *ScanBuilder[T] {
	s.indexName = name
	return s
}

// Limit caps the number of returned items
func (s *ScanBuilder[T]) Limit(limit int32) *ScanBuilder[T] {
	s.limit = limit
	return s
}

// ConsistentRead requests a strongly consistent read
func (s *ScanBuilder[T]) ConsistentRead() *ScanBuilder[T] {
	s.consistentRead = true
	return s
}

// StartFrom resumes after the given continuation token
func (s *ScanBuilder[T]) StartFrom(token storagemodels.Token) *ScanBuilder[T] {
	s.startKey = token
	return s
}

// Parallel restricts the scan to one segment of totalSegments.
func (s *ScanBuilder[T]) Parallel(totalSegments, segment int32) *ScanBuilder[T] {
	s.parallel = true
	s.totalSegments = totalSegments
	s.segment = segment
	return s
}

// Build resolves the builder state into a backend-neutral request.
func (s *ScanBuilder[T]) Build() (*storagemodels.ScanRequest, error) {
	req := &storagemodels.ScanRequest{
		IndexName:      s.indexName,
		Limit:          s.limit,
		ConsistentRead: s.consistentRead,
		StartKey:       s.startKey,
	}
	if s.indexName != "" {
		schema, err := s.table.ResolveIndex(s.indexName)
		if err != nil {
			return nil, err
		}
		req.KeySchema = schema
		if s.consistentRead {
			return nil, errors.NewValidationError("consistentRead", "consistent reads are not supported on secondary indexes")
		}
	}
	if s.parallel {
		if s.totalSegments < 1 || s.totalSegments > 1000000 {
			return nil, errors.NewValidationError("totalSegments", "total segments must be between 1 and 1000000")
		}
		if s.segment < 0 || s.segment >= s.totalSegments {
			return nil, errors.NewValidationError("segment", "segment must be in [0, totalSegments)")
		}
		req.TotalSegments = s.totalSegments
		req.Segment = s.segment
	}
	if s.limit < 0 {
		return nil, errors.NewValidationError("limit", "limit must not be negative")
	}

	var err error
	if req.Filter, err = s.filter.Resolve(); err != nil {
		return nil, err
	}
	return req, nil
}

// Execute runs the scan and returns one page.
func (s *ScanBuilder[T]) Execute(ctx context.Context) (*storagemodels.Page[T], error) {
	req, err := s.Build()
	if err != nil {
		return nil, err
	}
	return s.exec.ExecuteScan(ctx, req)
}

// ExecuteAll follows continuation tokens and returns every matching item.
func (s *ScanBuilder[T]) ExecuteAll(ctx context.Context) ([]T, error) {
	var all []T
	for {
		page, err := s.Execute(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if !page.HasMore() {
			return all, nil
		}
		s.startKey = page.LastEvaluatedKey
	}
}
