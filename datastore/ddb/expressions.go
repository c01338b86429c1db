/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/tablestore/storagemodels"
)

// Reserved placeholders for key conditions and the existence guard.
const (
	partitionKeyName  = "#_pk"
	partitionKeyValue = ":_pk"
	sortKeyName       = "#_sk"
	sortKeyValue      = ":_sk"
	sortKeyValue2     = ":_sk2"
)

// expressionSet merges the alias maps of the expressions sent in one request.
// DynamoDB rejects empty maps, so the accessors return nil when unused.
type expressionSet struct {
	names  map[string]string
	values map[string]types.AttributeValue
}

func (s *expressionSet) add(e *storagemodels.Expression) {
	if e == nil {
		return
	}
	for k, v := range e.Names {
		s.addName(k, v)
	}
	for k, v := range e.Values {
		s.addValue(k, v)
	}
}

func (s *expressionSet) addName(placeholder, name string) {
	if s.names == nil {
		s.names = make(map[string]string)
	}
	s.names[placeholder] = name
}

func (s *expressionSet) addValue(placeholder string, v types.AttributeValue) {
	if s.values == nil {
		s.values = make(map[string]types.AttributeValue)
	}
	s.values[placeholder] = v
}

func (s *expressionSet) Names() map[string]string {
	if len(s.names) == 0 {
		return nil
	}
	return s.names
}

func (s *expressionSet) Values() map[string]types.AttributeValue {
	if len(s.values) == 0 {
		return nil
	}
	return s.values
}

// keyCondition renders the key condition expression of req into s.
func keyCondition(s *expressionSet, req *storagemodels.QueryRequest) (string, error) {
	s.addName(partitionKeyName, req.KeySchema.PartitionKey.Name)
	s.addValue(partitionKeyValue, req.PartitionValue)
	expr := partitionKeyName + " = " + partitionKeyValue

	cond := req.SortCondition
	if cond == nil {
		return expr, nil
	}
	if !req.KeySchema.HasSortKey() {
		return "", fmt.Errorf("sort key condition on a schema without sort key")
	}
	s.addName(sortKeyName, req.KeySchema.SortKey.Name)
	s.addValue(sortKeyValue, cond.Values[0])

	switch cond.Operator {
	case storagemodels.SortEqual, storagemodels.SortGreaterThan, storagemodels.SortGreaterOrEqual,
		storagemodels.SortLessThan, storagemodels.SortLessOrEqual:
		return fmt.Sprintf("%s AND %s %s %s", expr, sortKeyName, cond.Operator, sortKeyValue), nil
	case storagemodels.SortBeginsWith:
		return fmt.Sprintf("%s AND begins_with(%s, %s)", expr, sortKeyName, sortKeyValue), nil
	case storagemodels.SortBetween:
		s.addValue(sortKeyValue2, cond.Values[1])
		return fmt.Sprintf("%s AND %s BETWEEN %s AND %s", expr, sortKeyName, sortKeyValue, sortKeyValue2), nil
	}
	return "", fmt.Errorf("unsupported sort key operator %q", cond.Operator)
}
