/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package expression

import (
	"bytes"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Evaluator resolves alias maps for a single evaluation.
type Evaluator struct {
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// EvaluateCondition evaluates expr against item; a nil item means the item
// does not exist. An empty expression is true. Expressions that do not parse,
// reference unknown aliases or compare mismatched types evaluate to false.
func EvaluateCondition(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) bool {
	if strings.TrimSpace(expr) == "" {
		return true
	}
	node, err := ParseCondition(expr)
	if err != nil {
		return false
	}
	e := &Evaluator{Names: names, Values: values}
	return e.Evaluate(node, item)
}

// Evaluate evaluates a parsed condition. A nil node is true.
func (e *Evaluator) Evaluate(node Node, item map[string]types.AttributeValue) bool {
	switch n := node.(type) {
	case nil:
		return true
	case *LogicalNode:
		if n.Or {
			return e.Evaluate(n.Left, item) || e.Evaluate(n.Right, item)
		}
		return e.Evaluate(n.Left, item) && e.Evaluate(n.Right, item)
	case *ExistsNode:
		name, ok := e.ResolveName(n.Path.Name)
		if !ok {
			return false
		}
		_, exists := item[name]
		return exists != n.Negated
	case *ComparisonNode:
		left, okl := e.operandValue(n.Left, item)
		right, okr := e.operandValue(n.Right, item)
		if !okl || !okr {
			return false
		}
		return compareWith(n.Operator, left, right)
	case *BeginsWithNode:
		target, okt := e.operandValue(n.Path, item)
		prefix, okp := e.operandValue(n.Prefix, item)
		if !okt || !okp {
			return false
		}
		return beginsWith(target, prefix)
	case *BetweenNode:
		target, okt := e.operandValue(n.Target, item)
		low, okl := e.operandValue(n.Low, item)
		high, okh := e.operandValue(n.High, item)
		if !okt || !okl || !okh {
			return false
		}
		return compareWith(OpGreaterOrEqual, target, low) && compareWith(OpLessOrEqual, target, high)
	}
	return false
}

// ResolveName maps a #alias to its attribute name. Plain names resolve to themselves.
func (e *Evaluator) ResolveName(name string) (string, bool) {
	if !strings.HasPrefix(name, "#") {
		return name, true
	}
	resolved, ok := e.Names[name]
	return resolved, ok
}

func (e *Evaluator) operandValue(op Operand, item map[string]types.AttributeValue) (types.AttributeValue, bool) {
	switch o := op.(type) {
	case ValueOperand:
		v, ok := e.Values[o.Placeholder]
		return v, ok && v != nil
	case PathOperand:
		name, ok := e.ResolveName(o.Name)
		if !ok {
			return nil, false
		}
		v, ok := item[name]
		return v, ok && v != nil
	}
	return nil, false
}

func compareWith(op Operator, left, right types.AttributeValue) bool {
	switch op {
	case OpEqual:
		return Equal(left, right)
	case OpNotEqual:
		return !Equal(left, right)
	}

	// Ordering needs both sides to be strings or both numbers.
	if !sameOrderedType(left, right) {
		return false
	}
	c, ok := Compare(left, right)
	if !ok {
		return false
	}
	switch op {
	case OpLessThan:
		return c < 0
	case OpLessOrEqual:
		return c <= 0
	case OpGreaterThan:
		return c > 0
	case OpGreaterOrEqual:
		return c >= 0
	}
	return false
}

func sameOrderedType(a, b types.AttributeValue) bool {
	switch a.(type) {
	case *types.AttributeValueMemberS:
		_, ok := b.(*types.AttributeValueMemberS)
		return ok
	case *types.AttributeValueMemberN:
		_, ok := b.(*types.AttributeValueMemberN)
		return ok
	}
	return false
}

func beginsWith(target, prefix types.AttributeValue) bool {
	switch t := target.(type) {
	case *types.AttributeValueMemberS:
		p, ok := prefix.(*types.AttributeValueMemberS)
		return ok && strings.HasPrefix(t.Value, p.Value)
	case *types.AttributeValueMemberB:
		p, ok := prefix.(*types.AttributeValueMemberB)
		return ok && bytes.HasPrefix(t.Value, p.Value)
	}
	return false
}
