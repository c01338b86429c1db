/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/expression"
	"github.com/suparena/tablestore/internal/codec"
	"github.com/suparena/tablestore/storagemodels"
)

const (
	reasonNone            = "None"
	reasonConditionFailed = "ConditionalCheckFailed"
)

type preparedOp struct {
	kind   storagemodels.TransactKind
	ck     string
	item   codec.Item
	cond   *storagemodels.Expression
	update *storagemodels.Expression
	parsed *expression.UpdateNode
}

// TransactWrite applies every operation or none. All conditions are checked
// against the state before the transaction.
func (d *DataStore[T]) TransactWrite(ctx context.Context, ops []storagemodels.TransactOperation[T]) error {
	if len(ops) == 0 || len(ops) > maxTransactItems {
		return errors.NewValidationError("operations", fmt.Sprintf("a transaction takes between 1 and %d operations, got %d", maxTransactItems, len(ops)))
	}

	prepared := make([]preparedOp, 0, len(ops))
	seen := make(map[string]bool, len(ops))
	for i, op := range ops {
		p, err := d.prepare(op)
		if err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		if seen[p.ck] {
			return errors.NewValidationError("operations", fmt.Sprintf("transaction touches item %s more than once", p.ck))
		}
		seen[p.ck] = true
		prepared = append(prepared, p)
	}

	t, err := d.registry.lookup(d.table.TableName)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	reasons := make([]string, len(prepared))
	cancelled := false
	for i, p := range prepared {
		existing := t.items[p.ck]
		ok := evaluate(p.cond, existing)
		if p.kind == storagemodels.TransactUpdateKind && existing == nil {
			ok = false
		}
		reasons[i] = reasonNone
		if !ok {
			reasons[i] = reasonConditionFailed
			cancelled = true
		}
	}
	if cancelled {
		d.log.WithField("reasons", reasons).Debug("transaction cancelled")
		return errors.NewTransactionCancelledError(reasons)
	}

	// Updated items are built and validated before anything is applied.
	updates := make(map[string]codec.Item)
	for i, p := range prepared {
		if p.kind != storagemodels.TransactUpdateKind {
			continue
		}
		updated := applyUpdate(t.items[p.ck], p.update, p.parsed)
		if _, err := d.codec.DecodeItem(updated); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		updates[p.ck] = updated
	}

	for _, p := range prepared {
		switch p.kind {
		case storagemodels.TransactPutKind:
			t.items[p.ck] = p.item
		case storagemodels.TransactUpdateKind:
			t.items[p.ck] = updates[p.ck]
		case storagemodels.TransactDeleteKind:
			delete(t.items, p.ck)
		}
	}

	d.log.WithFields(logrus.Fields{"operations": len(prepared)}).Debug("transaction committed")
	return nil
}

func (d *DataStore[T]) prepare(op storagemodels.TransactOperation[T]) (preparedOp, error) {
	p := preparedOp{kind: op.Kind}
	cond, err := op.Condition.Resolve()
	if err != nil {
		return p, err
	}
	p.cond = cond

	switch op.Kind {
	case storagemodels.TransactPutKind:
		if op.Item == nil {
			return p, errors.NewValidationError("item", "put requires an item")
		}
		av, err := d.codec.EncodeForPut(*op.Item)
		if err != nil {
			return p, err
		}
		p.item = av
		p.ck = codec.CanonicalKey(d.codec.KeyOf(av))
		return p, nil

	case storagemodels.TransactUpdateKind:
		if op.Update == nil {
			return p, errors.NewValidationError("update", "update requires an update expression")
		}
		if p.update, err = d.codec.ResolveUpdate(*op.Update); err != nil {
			return p, err
		}
		p.parsed = expression.ParseUpdate(p.update.Expression)

	case storagemodels.TransactDeleteKind:

	case storagemodels.TransactConditionCheckKind:
		if cond == nil {
			return p, errors.NewValidationError("condition", "condition check requires a condition")
		}

	default:
		return p, errors.NewValidationError("kind", fmt.Sprintf("unknown transaction operation %q", op.Kind))
	}

	keyAV, err := d.codec.EncodeKey(op.Key)
	if err != nil {
		return p, err
	}
	p.ck = codec.CanonicalKey(keyAV)
	return p, nil
}
