/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package codec

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// DefaultValidator validates structs through their `validate` tags.
// Non-struct items (maps, for example) are accepted as-is.
func DefaultValidator() storagemodels.Validator {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return storagemodels.ValidatorFunc(validateStruct)
}

func validateStruct(item any) error {
	v := reflect.ValueOf(item)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return errors.NewValidationError("", "item is nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	err := validate.Struct(v.Interface())
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return errors.NewValidationError(fe.Field(), fmt.Sprintf("failed on the %q rule", fe.Tag()))
	}
	return errors.NewValidationError("", err.Error())
}
