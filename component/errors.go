package component

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNotFound reports that no qualifying method exists for a role.
	// It is a logged outcome and is never returned by lifecycle calls.
	ErrNotFound = errors.New("scr: method not found")

	// ErrInaccessible reports that a candidate method exists but is neither
	// protected nor public.
	ErrInaccessible = errors.New("scr: method is not protected or public")

	// ErrUnavailable reports that a service object could not be materialized.
	ErrUnavailable = errors.New("scr: service unavailable")

	// ErrCircular reports that materializing a service would recurse into a
	// component whose activation is already in progress.
	ErrCircular = fmt.Errorf("%w: circular dependency", ErrUnavailable)

	// ErrNilHandle is returned when an invocation is attempted without a resolved method.
	ErrNilHandle = errors.New("scr: nil method handle")

	// ErrNilInstance is returned when an invocation is attempted on a nil instance.
	ErrNilInstance = errors.New("scr: nil component instance")
)

// InvocationError means the engine itself could not call a method: a nil handle,
// or a receiver/argument that does not fit the declared signature.
// It never wraps a failure of user code, see TargetError for that.
type InvocationError struct {
	Method string
	Err    error
}

// Error implements the error interface.
func (e InvocationError) Error() string {
	// Example: scr: cannot invoke "activate": scr: nil component instance
	return "scr: cannot invoke " + strconv.Quote(e.Method) + ": " + e.Err.Error()
}

func (e InvocationError) Unwrap() error { return e.Err }

// TargetError means the invoked component method itself failed, either by
// returning an error or by panicking. Cause is the original failure.
type TargetError struct {
	Method string
	Cause  error
}

// Error implements the error interface.
func (e TargetError) Error() string {
	// Example: scr: method "bindLog" failed: connection refused
	return "scr: method " + strconv.Quote(e.Method) + " failed: " + e.Cause.Error()
}

func (e TargetError) Unwrap() error { return e.Cause }

// DuplicateMethodError is returned when a type declares the same method name with
// the same parameter type twice.
type DuplicateMethodError struct {
	Type   string
	Method string
	Param  string
}

// Error implements the error interface.
func (e DuplicateMethodError) Error() string {
	return "scr: type " + strconv.Quote(e.Type) + " declares " + e.Method + "(" + e.Param + ") twice"
}

// UnknownTypeError is returned when a TypeID or Go type is not part of the arena.
type UnknownTypeError struct{ Type string }

// Error implements the error interface.
func (e UnknownTypeError) Error() string {
	return "scr: unknown type " + strconv.Quote(e.Type)
}

// DuplicateTypeError is returned when a Go type is defined twice in one arena.
type DuplicateTypeError struct{ Type string }

// Error implements the error interface.
func (e DuplicateTypeError) Error() string {
	return "scr: type " + strconv.Quote(e.Type) + " already defined"
}

// ReceiverMismatchError is returned when a method is declared on a type whose
// receiver differs from the type being defined.
type ReceiverMismatchError struct {
	Type     string
	Method   string
	Receiver string
}

// Error implements the error interface.
func (e ReceiverMismatchError) Error() string {
	return "scr: method " + strconv.Quote(e.Method) + " has receiver " + e.Receiver +
		", want " + e.Type
}

// MissingProjectionError is returned by Derived when no base projection is given
// and the subtype cannot stand in for its supertype.
type MissingProjectionError struct {
	Type  string
	Super string
}

// Error implements the error interface.
func (e MissingProjectionError) Error() string {
	return "scr: type " + strconv.Quote(e.Type) + " needs a projection to " + strconv.Quote(e.Super)
}

// UnknownCapabilityError is returned when a reference names a capability that was
// never registered.
type UnknownCapabilityError struct {
	Component string
	Reference string
	Interface string
}

// Error implements the error interface.
func (e UnknownCapabilityError) Error() string {
	return "scr: component " + strconv.Quote(e.Component) + " reference " + strconv.Quote(e.Reference) +
		" names unregistered capability " + strconv.Quote(e.Interface)
}

// DuplicateReferenceError is returned when a descriptor declares two references
// with the same name.
type DuplicateReferenceError struct{ Name string }

// Error implements the error interface.
func (e DuplicateReferenceError) Error() string {
	return "scr: duplicate reference " + strconv.Quote(e.Name)
}

// InvalidDescriptorError wraps validation failures of a DescriptorSpec.
type InvalidDescriptorError struct {
	Component string
	Problems  []string
}

// Error implements the error interface.
func (e InvalidDescriptorError) Error() string {
	msg := "scr: invalid descriptor " + strconv.Quote(e.Component)
	for i, p := range e.Problems {
		if i == 0 {
			msg += ": " + p
			continue
		}
		msg += "; " + p
	}
	return msg
}
