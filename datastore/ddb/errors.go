/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	stderrors "errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/suparena/tablestore/errors"
)

const (
	reasonNone           = "None"
	validationErrorCode  = "ValidationException"
	resourceNotFoundCode = "ResourceNotFoundException"
)

// translateError maps a DynamoDB failure onto the store's error kinds.
// condition is reported on conditional check failures.
func (d *DataStore[T]) translateError(op, condition string, err error) error {
	if err == nil {
		return nil
	}

	var ccf *types.ConditionalCheckFailedException
	if stderrors.As(err, &ccf) {
		return errors.NewConditionFailedError(op, condition)
	}

	var rnf *types.ResourceNotFoundException
	if stderrors.As(err, &rnf) {
		return errors.NewTableNotFoundError(d.table.TableName)
	}

	var tce *types.TransactionCanceledException
	if stderrors.As(err, &tce) {
		return errors.NewTransactionCancelledError(cancellationReasons(tce.CancellationReasons))
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case validationErrorCode:
			return errors.NewValidationError("", apiErr.ErrorMessage())
		case resourceNotFoundCode:
			return errors.NewTableNotFoundError(d.table.TableName)
		}
	}

	return errors.NewUnknownError(op, err)
}

// isMissingItem reports whether a conditional check failure was caused by
// the attribute_exists guard, i.e. the item did not exist.
func isMissingItem(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return stderrors.As(err, &ccf) && len(ccf.Item) == 0
}

func cancellationReasons(reasons []types.CancellationReason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		code := aws.ToString(r.Code)
		if code == "" {
			code = reasonNone
		}
		out[i] = code
	}
	return out
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var pte *types.ProvisionedThroughputExceededException
	var rle *types.RequestLimitExceeded
	var ise *types.InternalServerError
	switch {
	case stderrors.As(err, &pte), stderrors.As(err, &rle), stderrors.As(err, &ise):
		return true
	}

	var retryable interface{ RetryableError() bool }
	if stderrors.As(err, &retryable) {
		return retryable.RetryableError()
	}
	return false
}
