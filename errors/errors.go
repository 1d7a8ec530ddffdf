package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code Code
	Op   string
	Err  error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Op, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func WrapWithCode(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code: code,
		Op:   op,
		Err:  err,
	}
}

// New builds an AppError from a plain message.
func New(code Code, op string, msg string) error {
	return &AppError{
		Code: code,
		Op:   op,
		Err:  stderrors.New(msg),
	}
}

// CodeOf returns the code of the outermost AppError in the chain, or "" if
// err carries none.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether any AppError in the chain of err carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Err
	}
	return false
}

// IsRetryable reports whether the failure came from the gas/data context and
// may succeed when the caller tries the whole operation again.
func IsRetryable(err error) bool {
	return HasCode(err, CodeEstimationFailed) ||
		HasCode(err, CodeChainRPC) ||
		HasCode(err, DailChain)
}
