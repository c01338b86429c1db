/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package expression

import (
	"fmt"
	"strings"
)

// Parser is a recursive-descent parser over a token slice.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser returns a parser for input.
func NewParser(input string) *Parser {
	return &Parser{tokens: Lex(input)}
}

// ParseCondition parses a condition or filter expression. The grammar has no
// parentheses or NOT; "(" and NOT are reported as errors.
func ParseCondition(input string) (Node, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	p := NewParser(input)
	if err := p.lexError(); err != nil {
		return nil, err
	}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.check(TokenEOF) {
		return nil, fmt.Errorf("unexpected token %q at %d", p.peek().Literal, p.peek().Pos)
	}
	return node, nil
}

// lexError returns the first TokenError, if any.
func (p *Parser) lexError() error {
	for _, tok := range p.tokens {
		if tok.Type == TokenError {
			return fmt.Errorf("lex error: %s", tok.Literal)
		}
	}
	return nil
}

// Precedence: OR < AND < condition

func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.match(TokenOR) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &LogicalNode{Or: true, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	for p.match(TokenAND) {
		right, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		left = &LogicalNode{Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseCondition() (Node, error) {
	switch {
	case p.match(TokenAttributeExists), p.match(TokenAttributeNotExists):
		negated := p.prev().Type == TokenAttributeNotExists
		if !p.match(TokenLParen) {
			return nil, fmt.Errorf("expected '(' after %s", p.prev().Literal)
		}
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		if !p.match(TokenRParen) {
			return nil, fmt.Errorf("expected ')'")
		}
		return &ExistsNode{Path: path, Negated: negated}, nil

	case p.match(TokenBeginsWith):
		if !p.match(TokenLParen) {
			return nil, fmt.Errorf("expected '(' after begins_with")
		}
		path, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		if !p.match(TokenComma) {
			return nil, fmt.Errorf("expected ',' in begins_with")
		}
		prefix, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		if !p.match(TokenRParen) {
			return nil, fmt.Errorf("expected ')'")
		}
		return &BeginsWithNode{Path: path, Prefix: prefix}, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	if p.match(TokenBETWEEN) {
		low, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		if !p.match(TokenAND) {
			return nil, fmt.Errorf("expected AND in BETWEEN")
		}
		high, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &BetweenNode{Target: left, Low: low, High: high}, nil
	}

	op, ok := comparators[p.peek().Type]
	if !ok {
		return nil, fmt.Errorf("expected comparator, got %q", p.peek().Literal)
	}
	p.advance()
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &ComparisonNode{Operator: op, Left: left, Right: right}, nil
}

func (p *Parser) parseOperand() (Operand, error) {
	switch {
	case p.match(TokenValue):
		return ValueOperand{Placeholder: p.prev().Literal}, nil
	case p.match(TokenIdentifier):
		return PathOperand{Name: p.prev().Literal}, nil
	}
	return nil, fmt.Errorf("expected attribute or value, got %q", p.peek().Literal)
}

func (p *Parser) parsePath() (PathOperand, error) {
	if !p.match(TokenIdentifier) {
		return PathOperand{}, fmt.Errorf("expected attribute, got %q", p.peek().Literal)
	}
	return PathOperand{Name: p.prev().Literal}, nil
}

// ParseUpdate parses an update expression. SET and ADD clauses are kept,
// each recognized once. Repeated clauses, REMOVE/DELETE clauses and
// malformed actions are skipped; an action containing a character the lexer
// rejects is malformed, and the actions around it still apply.
func ParseUpdate(input string) *UpdateNode {
	p := NewParser(input)

	update := &UpdateNode{}
	seen := make(map[TokenType]bool)
	for !p.check(TokenEOF) {
		tok := p.advance()
		if !tok.isClause() {
			p.skipToClause()
			continue
		}
		if seen[tok.Type] {
			p.skipToClause()
			continue
		}
		seen[tok.Type] = true

		switch tok.Type {
		case TokenSET:
			update.Sets = p.parseSetActions()
		case TokenADD:
			update.Adds = p.parseAddActions()
		default:
			p.skipToClause()
		}
	}
	return update
}

func (p *Parser) parseSetActions() []SetAction {
	var actions []SetAction
	for {
		if action, ok := p.parseSetAction(); ok {
			actions = append(actions, action)
		} else {
			p.skipToSeparator()
		}
		if !p.match(TokenComma) {
			return actions
		}
	}
}

func (p *Parser) parseSetAction() (SetAction, bool) {
	path, err := p.parsePath()
	if err != nil || !p.match(TokenEq) {
		return SetAction{}, false
	}
	left, err := p.parseOperand()
	if err != nil {
		return SetAction{}, false
	}
	action := SetAction{Path: path, Left: left, Op: TokenEOF}
	if p.match(TokenPlus) || p.match(TokenMinus) {
		action.Op = p.prev().Type
		right, err := p.parseOperand()
		if err != nil {
			return SetAction{}, false
		}
		action.Right = right
	}
	if !p.atSeparator() {
		return SetAction{}, false
	}
	return action, true
}

func (p *Parser) parseAddActions() []AddAction {
	var actions []AddAction
	for {
		if action, ok := p.parseAddAction(); ok {
			actions = append(actions, action)
		} else {
			p.skipToSeparator()
		}
		if !p.match(TokenComma) {
			return actions
		}
	}
}

func (p *Parser) parseAddAction() (AddAction, bool) {
	path, err := p.parsePath()
	if err != nil || !p.match(TokenValue) {
		return AddAction{}, false
	}
	action := AddAction{Path: path, Value: ValueOperand{Placeholder: p.prev().Literal}}
	return action, p.atSeparator()
}

// atSeparator reports whether the next token ends an action.
func (p *Parser) atSeparator() bool {
	t := p.peek()
	return t.Type == TokenComma || t.Type == TokenEOF || t.isClause()
}

func (p *Parser) skipToSeparator() {
	for !p.atSeparator() {
		p.advance()
	}
}

func (p *Parser) skipToClause() {
	for !p.check(TokenEOF) && !p.peek().isClause() {
		p.advance()
	}
}

func (p *Parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *Parser) prev() Token {
	return p.tokens[p.pos-1]
}

func (p *Parser) check(t TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}
