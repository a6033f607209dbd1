package codegen

import (
	"fmt"

	"github.com/pkg/errors"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Kind differentiates code generation errors.
type Kind int

// Error is a code generation error. Any error aborts the translation unit.
type Error struct {
	Kind Kind   // Kind of error.
	Msg  string // Description of the offending construct.
}

// ---------------------
// ----- Constants -----
// ---------------------

const (
	KindInternal       Kind = iota // The tree violates an invariant the checker should have enforced.
	KindNotImplemented             // The construct is valid but not supported by the generator.
)

// ---------------------
// ----- Functions -----
// ---------------------

// Error returns the message of Error e prefixed by its kind.
func (e *Error) Error() string {
	if e.Kind == KindNotImplemented {
		return "not implemented: " + e.Msg
	}
	return "internal compiler error: " + e.Msg
}

// internalf returns an internal error.
func internalf(format string, args ...interface{}) error {
	return &Error{Kind: KindInternal, Msg: fmt.Sprintf(format, args...)}
}

// notImplementedf returns a not implemented error.
func notImplementedf(format string, args ...interface{}) error {
	return &Error{Kind: KindNotImplemented, Msg: fmt.Sprintf(format, args...)}
}

// IsInternal returns true if err, or any error it wraps, is an internal error.
func IsInternal(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindInternal
}

// IsNotImplemented returns true if err, or any error it wraps, is a not implemented error.
func IsNotImplemented(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotImplemented
}

// recoverInternal converts a panic of the IR builder into an internal error stored in err.
func recoverInternal(err *error) {
	if r := recover(); r != nil {
		*err = internalf("%v", r)
	}
}
