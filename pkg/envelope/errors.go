package envelope

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrDecode         = errors.New("decode error")
	ErrInvalidVariant = errors.New("invalid variant")
	ErrTypeMismatch   = errors.New("payload type mismatch")
	ErrKeySize        = errors.New("invalid key or iv size")
)

// Error describes a failed envelope operation.
type Error struct {
	Op   string // operation, e.g. "decrypt", "check_code"
	Kind error  // one of the Err* kinds above
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("envelope %s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("envelope %s: %v", e.Op, e.Kind)
}

// Is reports whether target is the error kind.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, kind error, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}
