/*
Package errors provides the error taxonomy shared by every tablestore backend.

Each kind has a sentinel that typed errors match through errors.Is, so callers
never need to know which backend produced a failure.

Common Errors:

	var (
	    ErrNotFound               = errors.New("item not found")
	    ErrConditionalCheckFailed = errors.New("conditional check failed")
	    ErrValidationFailed       = errors.New("validation failed")
	    ErrTableNotFound          = errors.New("table not found")
	    ErrTransactionCancelled   = errors.New("transaction cancelled")
	    ErrUnknown                = errors.New("unknown error")
	)

Usage:

	_, err := store.DeleteItem(ctx, key)
	if err != nil {
	    if errors.IsNotFound(err) {
	        return nil, fmt.Errorf("user %s does not exist", id)
	    }
	    return nil, err
	}

	// Map to a transport status
	w.WriteHeader(errors.StatusCode(err))
	fmt.Fprint(w, errors.Code(err))
*/
package errors
