// Package exc is the single failure type shared by the heap, the native
// operations and the dispatch layer. An *Error is either a user-visible
// exception (a Class plus a message) or an engine fault such as resource
// exhaustion.
package exc

import (
	"fmt"

	"github.com/pkg/errors"
)

type Class uint8

const (
	NoClass Class = iota
	TypeError
	ValueError
	LookupError
	KeyError
	IndexError
	ZeroDivisionError
	OverflowError
	AttributeError
	RecursionError
	RuntimeError
	MemoryError
	NotImplementedError
)

var classNames = [...]string{
	NoClass:             "Exception",
	TypeError:           "TypeError",
	ValueError:          "ValueError",
	LookupError:         "LookupError",
	KeyError:            "KeyError",
	IndexError:          "IndexError",
	ZeroDivisionError:   "ZeroDivisionError",
	OverflowError:       "OverflowError",
	AttributeError:      "AttributeError",
	RecursionError:      "RecursionError",
	RuntimeError:        "RuntimeError",
	MemoryError:         "MemoryError",
	NotImplementedError: "NotImplementedError",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("Class(%d)", c)
}

// ClassByName maps an exception type name back to its Class.
func ClassByName(name string) (Class, bool) {
	for i, n := range classNames {
		if n == name && i != int(NoClass) {
			return Class(i), true
		}
	}
	return NoClass, false
}

// Fault classifies engine failures. They never originate from user code.
type Fault uint8

const (
	NoFault Fault = iota
	ResourceExhaustedFault
	CorruptedFault
)

func (f Fault) String() string {
	switch f {
	case ResourceExhaustedFault:
		return "resource exhausted"
	case CorruptedFault:
		return "corrupted internal state"
	default:
		return "no fault"
	}
}

type Error struct {
	Class   Class
	Message string
	Fault   Fault

	cause error
}

func (e *Error) Error() string {
	if e.Fault != NoFault {
		if e.cause != nil {
			return fmt.Sprintf("internal error: %s: %v", e.Fault, e.cause)
		}
		return "internal error: " + e.Fault.String()
	}
	if e.Message == "" {
		return e.Class.String()
	}
	return e.Class.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// IsEngine reports whether e is an engine fault rather than an exception
// raised on behalf of user code.
func (e *Error) IsEngine() bool { return e != nil && e.Fault != NoFault }

func Newf(class Class, format string, args ...any) *Error {
	return &Error{Class: class, Message: fmt.Sprintf(format, args...)}
}

func TypeErrorf(format string, args ...any) *Error {
	return Newf(TypeError, format, args...)
}

func ValueErrorf(format string, args ...any) *Error {
	return Newf(ValueError, format, args...)
}

func LookupErrorf(format string, args ...any) *Error {
	return Newf(LookupError, format, args...)
}

func KeyErrorf(format string, args ...any) *Error {
	return Newf(KeyError, format, args...)
}

func IndexErrorf(format string, args ...any) *Error {
	return Newf(IndexError, format, args...)
}

func ZeroDivisionf(format string, args ...any) *Error {
	return Newf(ZeroDivisionError, format, args...)
}

func OverflowErrorf(format string, args ...any) *Error {
	return Newf(OverflowError, format, args...)
}

func AttributeErrorf(format string, args ...any) *Error {
	return Newf(AttributeError, format, args...)
}

func RecursionErrorf(format string, args ...any) *Error {
	return Newf(RecursionError, format, args...)
}

func RuntimeErrorf(format string, args ...any) *Error {
	return Newf(RuntimeError, format, args...)
}

// ResourceExhausted wraps a policy refusal.
func ResourceExhausted(cause error) *Error {
	return &Error{Class: RuntimeError, Fault: ResourceExhaustedFault, cause: errors.WithStack(cause)}
}

// Corruptedf reports a broken internal invariant (double release, stale
// handle, reentrant mutation).
func Corruptedf(format string, args ...any) *Error {
	return &Error{Class: RuntimeError, Fault: CorruptedFault, cause: errors.Errorf(format, args...)}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsTypeMismatch reports whether err is a user-visible TypeError. Only this
// class of native failure may fall through to special-method dispatch.
func IsTypeMismatch(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Fault == NoFault && e.Class == TypeError
}

func IsEngine(err error) bool {
	e, ok := As(err)
	return ok && e.IsEngine()
}

// Surface converts err into the exception interpreted code observes.
// Engine faults become a RuntimeError that keeps the fault as its cause.
// Foreign errors become RuntimeErrors too.
func Surface(err error) *Error {
	if err == nil {
		return nil
	}
	e, ok := err.(*Error)
	if !ok {
		return &Error{Class: RuntimeError, Message: err.Error(), cause: err}
	}
	if !e.IsEngine() {
		return e
	}
	msg := e.Fault.String()
	if e.cause != nil {
		msg = errors.Cause(e.cause).Error()
	}
	return &Error{Class: RuntimeError, Message: msg, cause: e}
}
