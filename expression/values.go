/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package expression

import (
	"bytes"
	"math/big"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Decimal digits kept when formatting a non-integer result. DynamoDB numbers
// carry at most 38 significant digits.
const fractionDigits = 38

func parseNumber(s string) (*big.Rat, bool) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	return r, ok
}

func formatNumber(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	s := r.FloatString(fractionDigits)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// NormalizeNumber returns the canonical text of a number, so that "1e3",
// "1000" and "1000.0" normalize identically.
func NormalizeNumber(s string) (string, bool) {
	r, ok := parseNumber(s)
	if !ok {
		return "", false
	}
	return formatNumber(r), true
}

// Compare orders two scalar values. Both must be strings, both numbers or
// both binary; ok is false otherwise.
func Compare(a, b types.AttributeValue) (int, bool) {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false
		}
		return strings.Compare(av.Value, bv.Value), true
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, false
		}
		x, okx := parseNumber(av.Value)
		y, oky := parseNumber(bv.Value)
		if !okx || !oky {
			return 0, false
		}
		return x.Cmp(y), true
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		if !ok {
			return 0, false
		}
		return bytes.Compare(av.Value, bv.Value), true
	}
	return 0, false
}

// Equal reports deep equality of two attribute values. Numbers compare by value.
func Equal(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS, *types.AttributeValueMemberN, *types.AttributeValueMemberB:
		c, ok := Compare(a, b)
		return ok && c == 0
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberNULL:
		bv, ok := b.(*types.AttributeValueMemberNULL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberL:
		bv, ok := b.(*types.AttributeValueMemberL)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for i := range av.Value {
			if !Equal(av.Value[i], bv.Value[i]) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberM:
		bv, ok := b.(*types.AttributeValueMemberM)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for k, v := range av.Value {
			other, exists := bv.Value[k]
			if !exists || !Equal(v, other) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberSS:
		bv, ok := b.(*types.AttributeValueMemberSS)
		return ok && sameSet(av.Value, bv.Value, func(s string) string { return s })
	case *types.AttributeValueMemberNS:
		bv, ok := b.(*types.AttributeValueMemberNS)
		return ok && sameSet(av.Value, bv.Value, func(s string) string {
			if n, ok := NormalizeNumber(s); ok {
				return n
			}
			return s
		})
	case *types.AttributeValueMemberBS:
		bv, ok := b.(*types.AttributeValueMemberBS)
		if !ok {
			return false
		}
		as := make([]string, len(av.Value))
		for i, v := range av.Value {
			as[i] = string(v)
		}
		bs := make([]string, len(bv.Value))
		for i, v := range bv.Value {
			bs[i] = string(v)
		}
		return sameSet(as, bs, func(s string) string { return s })
	}
	return false
}

func sameSet(a, b []string, norm func(string) string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, v := range a {
		set[norm(v)]++
	}
	for _, v := range b {
		k := norm(v)
		if set[k] == 0 {
			return false
		}
		set[k]--
	}
	return true
}

// Clone deep-copies an attribute value.
func Clone(v types.AttributeValue) types.AttributeValue {
	switch tv := v.(type) {
	case *types.AttributeValueMemberS:
		return &types.AttributeValueMemberS{Value: tv.Value}
	case *types.AttributeValueMemberN:
		return &types.AttributeValueMemberN{Value: tv.Value}
	case *types.AttributeValueMemberB:
		return &types.AttributeValueMemberB{Value: bytes.Clone(tv.Value)}
	case *types.AttributeValueMemberBOOL:
		return &types.AttributeValueMemberBOOL{Value: tv.Value}
	case *types.AttributeValueMemberNULL:
		return &types.AttributeValueMemberNULL{Value: tv.Value}
	case *types.AttributeValueMemberL:
		out := make([]types.AttributeValue, len(tv.Value))
		for i, e := range tv.Value {
			out[i] = Clone(e)
		}
		return &types.AttributeValueMemberL{Value: out}
	case *types.AttributeValueMemberM:
		return &types.AttributeValueMemberM{Value: CloneItem(tv.Value)}
	case *types.AttributeValueMemberSS:
		return &types.AttributeValueMemberSS{Value: append([]string(nil), tv.Value...)}
	case *types.AttributeValueMemberNS:
		return &types.AttributeValueMemberNS{Value: append([]string(nil), tv.Value...)}
	case *types.AttributeValueMemberBS:
		out := make([][]byte, len(tv.Value))
		for i, e := range tv.Value {
			out[i] = bytes.Clone(e)
		}
		return &types.AttributeValueMemberBS{Value: out}
	}
	return v
}

// CloneItem deep-copies an item. A nil item stays nil.
func CloneItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = Clone(v)
	}
	return out
}
