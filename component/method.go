package component

import (
	"fmt"
	"reflect"
)

// Method is one entry of a type's dispatch table: a named, single-parameter
// method with a declared access level.
type Method struct {
	Name     string
	Access   Access
	Receiver reflect.Type
	Param    reflect.Type

	call func(instance, arg any) error
}

// Declare builds a Method from a typed function. T is the receiver type (usually a
// pointer to the implementation struct) and A the single parameter type.
//
//	component.Declare("activate", component.Protected,
//	    func(c *Cache, cc component.ComponentContext) error { return c.open(cc) })
func Declare[T any, A any](name string, access Access, fn func(T, A) error) Method {
	m := Method{
		Name:     name,
		Access:   access,
		Receiver: reflect.TypeFor[T](),
		Param:    reflect.TypeFor[A](),
	}
	if fn != nil {
		m.call = func(instance, arg any) error {
			var a A
			if arg != nil {
				a = arg.(A)
			}
			return fn(instance.(T), a)
		}
	}
	return m
}

// DeclareFunc is Declare for methods that cannot fail.
func DeclareFunc[T any, A any](name string, access Access, fn func(T, A)) Method {
	if fn == nil {
		return Declare[T, A](name, access, nil)
	}
	return Declare(name, access, func(t T, a A) error {
		fn(t, a)
		return nil
	})
}

func (m Method) String() string {
	param := "?"
	if m.Param != nil {
		param = m.Param.String()
	}
	return m.Access.String() + " " + m.Name + "(" + param + ")"
}

// Handle is a resolved method, ready to be invoked on instances of the runtime type
// it was resolved against. Handles are shared by every configuration of a descriptor.
type Handle struct {
	Method  Method
	Owner   TypeID
	Variant Variant

	project func(any) (any, error)
}

// NewHandle binds m, declared on owner, to a projection from runtime instances to
// owner's receiver. A nil projection means the instance is the receiver.
func NewHandle(m Method, owner TypeID, v Variant, project func(any) (any, error)) *Handle {
	return &Handle{Method: m, Owner: owner, Variant: v, project: project}
}

// Arg returns the argument a bind or unbind call expects for this handle: the
// reference itself for the ByReference variant, the service object otherwise.
func (h *Handle) Arg(ref ServiceReference, obj any) any {
	if h.Variant == ByReference {
		return ref
	}
	return obj
}

// Invoke calls the method on instance with arg. Engine-level failures are reported
// as InvocationError, failures of the called method as TargetError.
func (h *Handle) Invoke(instance, arg any) (err error) {
	if h == nil || h.Method.call == nil {
		name := ""
		if h != nil {
			name = h.Method.Name
		}
		return InvocationError{Method: name, Err: ErrNilHandle}
	}
	name := h.Method.Name
	if instance == nil {
		return InvocationError{Method: name, Err: ErrNilInstance}
	}

	recv := instance
	if h.project != nil {
		if recv, err = h.project(instance); err != nil {
			return InvocationError{Method: name, Err: err}
		}
	}
	if rt := reflect.TypeOf(recv); !rt.AssignableTo(h.Method.Receiver) {
		return InvocationError{
			Method: name,
			Err:    fmt.Errorf("receiver %s is not assignable to %s", rt, h.Method.Receiver),
		}
	}
	if arg == nil {
		if !nilable(h.Method.Param) {
			return InvocationError{Method: name, Err: fmt.Errorf("nil argument for %s", h.Method.Param)}
		}
	} else if at := reflect.TypeOf(arg); !at.AssignableTo(h.Method.Param) {
		return InvocationError{
			Method: name,
			Err:    fmt.Errorf("argument %s is not assignable to %s", at, h.Method.Param),
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = TargetError{Method: name, Cause: fmt.Errorf("panic: %v", rec)}
		}
	}()
	if cerr := h.Method.call(recv, arg); cerr != nil {
		return TargetError{Method: name, Cause: cerr}
	}
	return nil
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}
