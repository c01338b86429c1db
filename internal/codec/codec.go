/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package codec converts between typed items and attribute maps and enforces
// the key schema. Both backends go through it so they validate, stamp and
// decode items identically.
package codec

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/expression"
	"github.com/suparena/tablestore/storagemodels"
)

// Item is a marshaled item.
type Item = map[string]types.AttributeValue

const (
	CreatedAtAttribute = "createdAt"
	UpdatedAtAttribute = "updatedAt"

	updatedAtName  = "#_updatedAt"
	updatedAtValue = ":_updatedAt"
)

// Codec marshals, validates and decodes items of type T for one table.
type Codec[T any] struct {
	table     storagemodels.TableConfig
	validator storagemodels.Validator
	clock     func() time.Time
	createdAt *timestampField
	updatedAt *timestampField
}

type timestampField struct {
	unix bool
}

// New returns a codec for table. A nil clock means time.Now.
func New[T any](table storagemodels.TableConfig, clock func() time.Time) *Codec[T] {
	if clock == nil {
		clock = time.Now
	}
	v := table.Validator
	if v == nil {
		v = DefaultValidator()
	}
	c := &Codec[T]{table: table, validator: v, clock: clock}
	c.createdAt, c.updatedAt = timestampFields(reflect.TypeOf((*T)(nil)).Elem())
	return c
}

// Table returns the table configuration.
func (c *Codec[T]) Table() storagemodels.TableConfig {
	return c.table
}

// HasTimestamps reports which timestamp attributes T carries.
func (c *Codec[T]) HasTimestamps() (createdAt, updatedAt bool) {
	return c.createdAt != nil, c.updatedAt != nil
}

// EncodeItem validates and marshals item and checks its key attributes.
func (c *Codec[T]) EncodeItem(item T) (Item, error) {
	if err := c.validator.Validate(item); err != nil {
		return nil, err
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, errors.NewValidationError("", fmt.Sprintf("failed to marshal item: %v", err))
	}
	if err := c.checkItemKeys(av); err != nil {
		return nil, err
	}
	return av, nil
}

// EncodeForPut encodes item and applies the write timestamps: createdAt only
// when unset, updatedAt always.
func (c *Codec[T]) EncodeForPut(item T) (Item, error) {
	av, err := c.EncodeItem(item)
	if err != nil {
		return nil, err
	}
	now := c.clock()
	if c.createdAt != nil && isUnset(av[CreatedAtAttribute]) {
		av[CreatedAtAttribute] = c.createdAt.value(now)
	}
	if c.updatedAt != nil {
		av[UpdatedAtAttribute] = c.updatedAt.value(now)
	}
	return av, nil
}

// DecodeItem unmarshals and validates a stored item. A nil item decodes to nil.
func (c *Codec[T]) DecodeItem(av Item) (*T, error) {
	if av == nil {
		return nil, nil
	}
	result := new(T)
	if err := attributevalue.UnmarshalMap(av, result); err != nil {
		return nil, errors.NewValidationError("", fmt.Sprintf("failed to unmarshal item: %v", err))
	}
	if err := c.validator.Validate(*result); err != nil {
		return nil, err
	}
	return result, nil
}

// DecodeItems decodes a page of items.
func (c *Codec[T]) DecodeItems(items []Item) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, av := range items {
		item, err := c.DecodeItem(av)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, nil
}

// EncodeKey marshals key. It must carry exactly the primary key attributes.
func (c *Codec[T]) EncodeKey(key storagemodels.Key) (Item, error) {
	return EncodeKey(c.table.KeySchema, key)
}

// EncodeKey marshals key against schema.
func EncodeKey(schema storagemodels.KeySchema, key storagemodels.Key) (Item, error) {
	names := schema.AttributeNames()
	for attr := range key {
		if _, ok := schema.Part(attr); !ok {
			return nil, errors.NewValidationError(attr, "attribute is not part of the key schema")
		}
	}
	av := make(Item, len(names))
	for _, name := range names {
		raw, ok := key[name]
		if !ok {
			return nil, errors.NewValidationError(name, "key attribute is required")
		}
		v, err := storagemodels.MarshalValue(raw)
		if err != nil {
			return nil, err
		}
		part, _ := schema.Part(name)
		if err := CheckKeyValue(part, v); err != nil {
			return nil, err
		}
		av[name] = v
	}
	return av, nil
}

// KeyOf extracts the primary key from a marshaled item.
func (c *Codec[T]) KeyOf(av Item) Item {
	return Project(av, c.table.KeySchema)
}

// Project copies the attributes of every schema's key out of av.
func Project(av Item, schemas ...storagemodels.KeySchema) Item {
	out := make(Item)
	for _, schema := range schemas {
		for _, name := range schema.AttributeNames() {
			if v, ok := av[name]; ok {
				out[name] = expression.Clone(v)
			}
		}
	}
	return out
}

// HasKey reports whether av carries every attribute of schema with the declared type.
func HasKey(av Item, schema storagemodels.KeySchema) bool {
	for _, name := range schema.AttributeNames() {
		part, _ := schema.Part(name)
		if CheckKeyValue(part, av[name]) != nil {
			return false
		}
	}
	return true
}

// CheckKeyValue verifies that v is a non-empty value of the part's type.
func CheckKeyValue(part storagemodels.KeyPart, v types.AttributeValue) error {
	switch part.Type {
	case storagemodels.ScalarString:
		sv, ok := v.(*types.AttributeValueMemberS)
		if !ok {
			return errors.NewValidationError(part.Name, "expected a string key value")
		}
		if sv.Value == "" {
			return errors.NewValidationError(part.Name, "key value must not be empty")
		}
	case storagemodels.ScalarNumber:
		nv, ok := v.(*types.AttributeValueMemberN)
		if !ok {
			return errors.NewValidationError(part.Name, "expected a number key value")
		}
		if _, ok := expression.NormalizeNumber(nv.Value); !ok {
			return errors.NewValidationError(part.Name, fmt.Sprintf("invalid number %q", nv.Value))
		}
	default:
		return errors.NewValidationError(part.Name, fmt.Sprintf("unsupported key type %q", part.Type))
	}
	return nil
}

func (c *Codec[T]) checkItemKeys(av Item) error {
	for _, name := range c.table.KeySchema.AttributeNames() {
		part, _ := c.table.KeySchema.Part(name)
		v, ok := av[name]
		if !ok {
			return errors.NewValidationError(name, "item is missing key attribute")
		}
		if err := CheckKeyValue(part, v); err != nil {
			return err
		}
	}
	// Index key attributes are optional but must match their declared type.
	for _, idx := range c.table.Indexes {
		for _, name := range idx.AttributeNames() {
			v, ok := av[name]
			if !ok {
				continue
			}
			part, _ := idx.Part(name)
			if err := CheckKeyValue(part, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// ResolveUpdate marshals update, rejects writes to primary key attributes
// and merges the updatedAt assignment into the SET clause.
func (c *Codec[T]) ResolveUpdate(update storagemodels.Update) (*storagemodels.Expression, error) {
	expr, err := update.Resolve()
	if err != nil {
		return nil, err
	}
	for _, target := range expression.Targets(expr.Expression, expr.Names) {
		if _, isKey := c.table.KeySchema.Part(target); isKey {
			return nil, errors.NewValidationError(target, "cannot update a key attribute")
		}
	}
	if c.updatedAt == nil {
		return expr, nil
	}
	for _, target := range expression.SetTargets(expr.Expression, expr.Names) {
		if target == UpdatedAtAttribute {
			return expr, nil
		}
	}

	names := make(map[string]string, len(expr.Names)+1)
	for k, v := range expr.Names {
		names[k] = v
	}
	names[updatedAtName] = UpdatedAtAttribute
	values := make(map[string]types.AttributeValue, len(expr.Values)+1)
	for k, v := range expr.Values {
		values[k] = v
	}
	values[updatedAtValue] = c.updatedAt.value(c.clock())

	return &storagemodels.Expression{
		Expression: expression.MergeSet(expr.Expression, updatedAtName+" = "+updatedAtValue),
		Names:      names,
		Values:     values,
	}, nil
}

// ReturnValues validates rv, substituting def when rv is empty.
func ReturnValues(rv, def storagemodels.ReturnValue) (storagemodels.ReturnValue, error) {
	if rv == "" {
		return def, nil
	}
	switch rv {
	case storagemodels.ReturnNone, storagemodels.ReturnAllOld, storagemodels.ReturnAllNew:
		return rv, nil
	}
	return "", errors.NewValidationError("returnValues", fmt.Sprintf("unsupported return values %q", rv))
}

// CanonicalKey serializes a key as JSON with attribute names sorted.
// Numbers are normalized so equal numbers produce equal keys.
func CanonicalKey(key Item) string {
	plain := make(map[string]any, len(key))
	for name, v := range key {
		switch tv := v.(type) {
		case *types.AttributeValueMemberS:
			plain[name] = tv.Value
		case *types.AttributeValueMemberN:
			if norm, ok := expression.NormalizeNumber(tv.Value); ok {
				plain[name] = json.Number(norm)
			} else {
				plain[name] = tv.Value
			}
		case *types.AttributeValueMemberB:
			plain[name] = tv.Value
		default:
			plain[name] = fmt.Sprintf("%T", v)
		}
	}
	// encoding/json writes map keys in sorted order.
	b, err := json.Marshal(plain)
	if err != nil {
		names := make([]string, 0, len(key))
		for name := range key {
			names = append(names, name)
		}
		sort.Strings(names)
		return strings.Join(names, ",")
	}
	return string(b)
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[E any](items []E, size int) [][]E {
	if size <= 0 {
		size = len(items)
	}
	var chunks [][]E
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

func (f *timestampField) value(now time.Time) types.AttributeValue {
	if f.unix {
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)}
	}
	return &types.AttributeValueMemberS{Value: strfmt.DateTime(now.UTC()).String()}
}

func isUnset(v types.AttributeValue) bool {
	switch tv := v.(type) {
	case nil:
		return true
	case *types.AttributeValueMemberNULL:
		return true
	case *types.AttributeValueMemberS:
		if tv.Value == "" {
			return true
		}
		dt, err := strfmt.ParseDateTime(tv.Value)
		return err == nil && time.Time(dt).IsZero()
	case *types.AttributeValueMemberN:
		norm, ok := expression.NormalizeNumber(tv.Value)
		return ok && norm == "0"
	}
	return false
}

// timestampFields finds createdAt/updatedAt attributes using the same naming
// rules as attributevalue: the dynamodbav tag name, else the field name.
func timestampFields(t reflect.Type) (created, updated *timestampField) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, nil
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("dynamodbav")
		parts := strings.Split(tag, ",")
		name := parts[0]
		if name == "-" {
			continue
		}
		if name == "" && f.Anonymous {
			ec, eu := timestampFields(f.Type)
			if created == nil {
				created = ec
			}
			if updated == nil {
				updated = eu
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		field := &timestampField{}
		for _, opt := range parts[1:] {
			if opt == "unixtime" {
				field.unix = true
			}
		}
		switch name {
		case CreatedAtAttribute:
			created = field
		case UpdatedAtAttribute:
			updated = field
		}
	}
	return created, updated
}
