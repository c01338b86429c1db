/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package expression

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError

	// Identifiers and placeholders
	TokenIdentifier // name or #alias
	TokenValue      // :v1

	// Comparators
	TokenEq  // =
	TokenNE  // <>
	TokenLT  // <
	TokenLTE // <=
	TokenGT  // >
	TokenGTE // >=

	// Keywords
	TokenAND
	TokenOR
	TokenNOT
	TokenBETWEEN
	TokenBeginsWith
	TokenAttributeExists
	TokenAttributeNotExists

	// Update clauses
	TokenSET
	TokenADD
	TokenREMOVE
	TokenDELETE

	// Delimiters
	TokenLParen
	TokenRParen
	TokenComma
	TokenPlus
	TokenMinus
)

// Keywords that are matched case-insensitively.
var keywords = map[string]TokenType{
	"AND":     TokenAND,
	"OR":      TokenOR,
	"NOT":     TokenNOT,
	"BETWEEN": TokenBETWEEN,
	"SET":     TokenSET,
	"ADD":     TokenADD,
	"REMOVE":  TokenREMOVE,
	"DELETE":  TokenDELETE,
}

// Function names are case-sensitive.
var functions = map[string]TokenType{
	"begins_with":          TokenBeginsWith,
	"attribute_exists":     TokenAttributeExists,
	"attribute_not_exists": TokenAttributeNotExists,
}

type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%d, %q)", t.Type, t.Literal)
}

// isClause reports whether the token opens an update clause.
func (t Token) isClause() bool {
	switch t.Type {
	case TokenSET, TokenADD, TokenREMOVE, TokenDELETE:
		return true
	}
	return false
}

type Lexer struct {
	input  string
	start  int
	pos    int
	width  int
	tokens []Token
}

// Lex tokenizes input. A character that starts no token is reported as a
// TokenError in place and lexing resumes after it, so the last token is
// always TokenEOF.
func Lex(input string) []Token {
	l := &Lexer{input: input}
	for state := lexText; state != nil; {
		state = state(l)
	}
	return l.tokens
}

func (l *Lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return 0
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

func (l *Lexer) backup() {
	l.pos -= l.width
}

func (l *Lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *Lexer) ignore() {
	l.start = l.pos
}

func (l *Lexer) emit(t TokenType) {
	l.tokens = append(l.tokens, Token{Type: t, Literal: l.input[l.start:l.pos], Pos: l.start})
	l.start = l.pos
}

func (l *Lexer) errorf(format string, args ...any) stateFn {
	l.tokens = append(l.tokens, Token{Type: TokenError, Literal: fmt.Sprintf(format, args...), Pos: l.start})
	l.ignore()
	return lexText
}

type stateFn func(*Lexer) stateFn

func lexText(l *Lexer) stateFn {
	for {
		r := l.next()
		switch {
		case r == 0:
			l.emit(TokenEOF)
			return nil
		case unicode.IsSpace(r):
			l.ignore()
		case r == '=':
			l.emit(TokenEq)
		case r == '<':
			switch l.peek() {
			case '=':
				l.next()
				l.emit(TokenLTE)
			case '>':
				l.next()
				l.emit(TokenNE)
			default:
				l.emit(TokenLT)
			}
		case r == '>':
			if l.peek() == '=' {
				l.next()
				l.emit(TokenGTE)
			} else {
				l.emit(TokenGT)
			}
		case r == '(':
			l.emit(TokenLParen)
		case r == ')':
			l.emit(TokenRParen)
		case r == ',':
			l.emit(TokenComma)
		case r == '+':
			l.emit(TokenPlus)
		case r == '-':
			l.emit(TokenMinus)
		case r == ':':
			return lexValue
		case r == '#' || isIdentRune(r):
			return lexIdentifier
		default:
			return l.errorf("unexpected character %q at %d", r, l.start)
		}
	}
}

func lexValue(l *Lexer) stateFn {
	for isIdentRune(l.peek()) {
		l.next()
	}
	if l.pos-l.start < 2 {
		return l.errorf("empty value placeholder at %d", l.start)
	}
	l.emit(TokenValue)
	return lexText
}

func lexIdentifier(l *Lexer) stateFn {
	for isIdentRune(l.peek()) {
		l.next()
	}
	word := l.input[l.start:l.pos]
	if word == "#" {
		return l.errorf("empty name placeholder at %d", l.start)
	}
	if t, ok := functions[word]; ok {
		l.emit(t)
		return lexText
	}
	if t, ok := keywords[strings.ToUpper(word)]; ok {
		l.emit(t)
		return lexText
	}
	l.emit(TokenIdentifier)
	return lexText
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
