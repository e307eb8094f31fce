package state

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned by Store operations on a zero-value Store.
var ErrNotInitialized = errors.New("store not initialized")

// ContractError reports a programming contract violation. Op names the
// operation that detected it.
type ContractError struct {
	Op  string
	Err error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("state: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *ContractError) Unwrap() error {
	return e.Err
}

// IsContractError reports whether err (or anything it wraps) is a ContractError.
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}
