/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package expression

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ApplyUpdate applies expr to item in place and returns the names of the
// attributes it wrote. Malformed actions, actions whose operands cannot be
// resolved, and ADDs whose prior value or addend is not numeric, are skipped.
func ApplyUpdate(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) []string {
	e := &Evaluator{Names: names, Values: values}
	return e.ApplyUpdate(item, ParseUpdate(expr))
}

// ApplyUpdate applies a parsed update. All SET operands are read from the
// item as it was before the update.
func (e *Evaluator) ApplyUpdate(item map[string]types.AttributeValue, update *UpdateNode) []string {
	before := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		before[k] = v
	}

	var written []string
	pending := make(map[string]types.AttributeValue, len(update.Sets))
	var order []string
	for _, action := range update.Sets {
		name, ok := e.ResolveName(action.Path.Name)
		if !ok {
			continue
		}
		v, ok := e.setValue(action, before)
		if !ok {
			continue
		}
		if _, dup := pending[name]; !dup {
			order = append(order, name)
		}
		pending[name] = v
	}
	for _, name := range order {
		item[name] = Clone(pending[name])
		written = append(written, name)
	}

	for _, action := range update.Adds {
		name, ok := e.ResolveName(action.Path.Name)
		if !ok {
			continue
		}
		addend, ok := e.operandValue(action.Value, item)
		if !ok {
			continue
		}
		var prior types.AttributeValue = &types.AttributeValueMemberN{Value: "0"}
		if existing, exists := item[name]; exists {
			prior = existing
		}
		sum, ok := arithmetic(TokenPlus, prior, addend)
		if !ok {
			continue
		}
		item[name] = sum
		written = append(written, name)
	}
	return written
}

func (e *Evaluator) setValue(action SetAction, item map[string]types.AttributeValue) (types.AttributeValue, bool) {
	left, ok := e.operandValue(action.Left, item)
	if !ok {
		return nil, false
	}
	if action.Op == TokenEOF {
		return left, true
	}
	right, ok := e.operandValue(action.Right, item)
	if !ok {
		return nil, false
	}
	return arithmetic(action.Op, left, right)
}

func arithmetic(op TokenType, a, b types.AttributeValue) (types.AttributeValue, bool) {
	an, ok := a.(*types.AttributeValueMemberN)
	if !ok {
		return nil, false
	}
	bn, ok := b.(*types.AttributeValueMemberN)
	if !ok {
		return nil, false
	}
	x, okx := parseNumber(an.Value)
	y, oky := parseNumber(bn.Value)
	if !okx || !oky {
		return nil, false
	}
	if op == TokenMinus {
		x.Sub(x, y)
	} else {
		x.Add(x, y)
	}
	return &types.AttributeValueMemberN{Value: formatNumber(x)}, true
}

// SetTargets returns the resolved attribute names written by the SET clause of expr.
func SetTargets(expr string, names map[string]string) []string {
	e := &Evaluator{Names: names}
	var targets []string
	for _, action := range ParseUpdate(expr).Sets {
		if name, ok := e.ResolveName(action.Path.Name); ok {
			targets = append(targets, name)
		}
	}
	return targets
}

// Targets returns every resolved attribute name the update expression writes,
// including REMOVE and DELETE clauses that ApplyUpdate ignores.
func Targets(expr string, names map[string]string) []string {
	tokens := Lex(expr)
	e := &Evaluator{Names: names}
	var targets []string
	expectPath := false
	for _, tok := range tokens {
		switch {
		case tok.isClause(), tok.Type == TokenComma:
			expectPath = true
		case tok.Type == TokenIdentifier && expectPath:
			if name, ok := e.ResolveName(tok.Literal); ok {
				targets = append(targets, name)
			}
			expectPath = false
		default:
			expectPath = false
		}
	}
	return targets
}

// MergeSet appends assignment to the SET clause of expr, or adds a SET
// clause when expr has none.
func MergeSet(expr, assignment string) string {
	tokens := Lex(expr)
	setAt := -1
	for i, tok := range tokens {
		if tok.Type == TokenSET {
			setAt = i
			break
		}
	}
	if setAt < 0 {
		if strings.TrimSpace(expr) == "" {
			return "SET " + assignment
		}
		return "SET " + assignment + " " + strings.TrimSpace(expr)
	}

	end := len(expr)
	for _, tok := range tokens[setAt+1:] {
		if tok.isClause() {
			end = tok.Pos
			break
		}
	}
	head := strings.TrimRight(expr[:end], " \t\r\n")
	tail := expr[end:]
	if tail == "" {
		return head + ", " + assignment
	}
	return head + ", " + assignment + " " + tail
}
