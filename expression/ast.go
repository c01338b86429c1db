/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package expression

// Node is a condition AST node.
type Node interface {
	conditionNode()
}

// Operand is either an attribute path or a value placeholder.
type Operand interface {
	operand()
}

// PathOperand names an attribute directly or through a #alias.
type PathOperand struct {
	Name string
}

// ValueOperand is a :placeholder from the value alias map.
type ValueOperand struct {
	Placeholder string
}

func (PathOperand) operand()  {}
func (ValueOperand) operand() {}

// Operator is a comparison operator.
type Operator string

const (
	OpEqual          Operator = "="
	OpNotEqual       Operator = "<>"
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreaterThan    Operator = ">"
	OpGreaterOrEqual Operator = ">="
)

var comparators = map[TokenType]Operator{
	TokenEq:  OpEqual,
	TokenNE:  OpNotEqual,
	TokenLT:  OpLessThan,
	TokenLTE: OpLessOrEqual,
	TokenGT:  OpGreaterThan,
	TokenGTE: OpGreaterOrEqual,
}

// LogicalNode joins two conditions with AND or OR.
type LogicalNode struct {
	Or    bool
	Left  Node
	Right Node
}

// ComparisonNode is "left OP right".
type ComparisonNode struct {
	Operator Operator
	Left     Operand
	Right    Operand
}

// ExistsNode is attribute_exists(path) or, when Negated, attribute_not_exists(path).
type ExistsNode struct {
	Path    PathOperand
	Negated bool
}

// BeginsWithNode is begins_with(path, prefix).
type BeginsWithNode struct {
	Path   Operand
	Prefix Operand
}

// BetweenNode is "target BETWEEN low AND high".
type BetweenNode struct {
	Target Operand
	Low    Operand
	High   Operand
}

func (*LogicalNode) conditionNode()    {}
func (*ComparisonNode) conditionNode() {}
func (*ExistsNode) conditionNode()     {}
func (*BeginsWithNode) conditionNode() {}
func (*BetweenNode) conditionNode()    {}

// UpdateNode is a parsed update expression. Unsupported clauses are dropped.
type UpdateNode struct {
	Sets []SetAction
	Adds []AddAction
}

// SetAction is "path = value" or "path = left (+|-) right".
type SetAction struct {
	Path  PathOperand
	Left  Operand
	Op    TokenType // TokenPlus, TokenMinus, or TokenEOF when there is no arithmetic
	Right Operand
}

// AddAction is "path :value".
type AddAction struct {
	Path  PathOperand
	Value ValueOperand
}
