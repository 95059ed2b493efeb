// internal/domain/click/errors.go
package click

import (
	"errors"
	"fmt"
)

// Error taxonomy. Callers match with errors.Is.
var (
	ErrIdentityMismatch      = errors.New("click: identity mismatch")
	ErrUnauthorized          = errors.New("click: unauthorized")
	ErrMissingSigner         = fmt.Errorf("%w: missing required signature", ErrUnauthorized)
	ErrInsufficientBalance   = errors.New("click: insufficient balance")
	ErrAccountNotInitialized = errors.New("click: account not initialized")

	ErrOperationDisabled  = errors.New("click: operation disabled in this deployment")
	ErrArithmeticOverflow = errors.New("click: arithmetic overflow")
	ErrInvalidRequest     = errors.New("click: invalid request")
)

// OperationError は失敗したオペレーションと、原因となったアカウントの役割を保持します。
type OperationError struct {
	Op   Operation
	Role string // "payer", "click_token_account" など。特定できない場合は空
	Err  error
}

func (e *OperationError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Role, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Fail wraps err with the operation and role it belongs to.
func Fail(op Operation, role string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OperationError
	if errors.As(err, &oe) && oe.Op == op {
		return err
	}
	return &OperationError{Op: op, Role: role, Err: err}
}
