package component

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"go.uber.org/multierr"
)

// TypeID indexes a type in a Types arena.
type TypeID int

// NoType marks the absence of a supertype. The ancestor walk stops there.
const NoType TypeID = -1

// TypeInfo describes one implementation type: its own declared methods and the
// index of its supertype. It is immutable once defined.
type TypeInfo struct {
	ID      TypeID
	Name    string
	Go      reflect.Type
	Super   TypeID
	Methods []Method

	base func(any) (any, error)
}

// TypeSpec is the input of Types.Define.
type TypeSpec struct {
	// Name defaults to Go.String().
	Name string
	Go   reflect.Type
	// Super is the supertype, which must already be defined, or NoType.
	Super TypeID
	// Base projects an instance of Go to the receiver of Super (for example the
	// embedded struct). Nil means the instance is used as is.
	Base    func(any) (any, error)
	Methods []Method
}

// Types is an append-only arena of implementation types and capability types.
// Because a supertype must be defined before its subtypes, every ancestor chain is
// finite and acyclic.
type Types struct {
	mu    sync.RWMutex
	infos []TypeInfo
	byGo  map[reflect.Type]TypeID
	caps  map[string]reflect.Type
}

// NewTypes returns an empty arena.
func NewTypes() *Types {
	return &Types{
		byGo: make(map[reflect.Type]TypeID),
		caps: make(map[string]reflect.Type),
	}
}

// Define adds a type and its declared methods. Methods keep their order, which is
// the search order used by resolution.
func (t *Types) Define(spec TypeSpec) (TypeID, error) {
	if spec.Go == nil {
		return NoType, errors.New("scr: type spec without Go type")
	}
	name := spec.Name
	if name == "" {
		name = spec.Go.String()
	}

	type sig struct {
		name  string
		param reflect.Type
	}
	seen := make(map[sig]struct{}, len(spec.Methods))
	for _, m := range spec.Methods {
		if m.Receiver == nil || !spec.Go.AssignableTo(m.Receiver) {
			recv := "<nil>"
			if m.Receiver != nil {
				recv = m.Receiver.String()
			}
			return NoType, ReceiverMismatchError{Type: name, Method: m.Name, Receiver: recv}
		}
		s := sig{m.Name, m.Param}
		if _, dup := seen[s]; dup {
			return NoType, DuplicateMethodError{Type: name, Method: m.Name, Param: typeName(m.Param)}
		}
		seen[s] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.byGo[spec.Go]; exists {
		return NoType, DuplicateTypeError{Type: name}
	}
	if spec.Super != NoType && (spec.Super < 0 || int(spec.Super) >= len(t.infos)) {
		return NoType, UnknownTypeError{Type: "#" + strconv.Itoa(int(spec.Super))}
	}

	id := TypeID(len(t.infos))
	t.infos = append(t.infos, TypeInfo{
		ID:      id,
		Name:    name,
		Go:      spec.Go,
		Super:   spec.Super,
		Methods: append([]Method(nil), spec.Methods...),
		base:    spec.Base,
	})
	t.byGo[spec.Go] = id
	return id, nil
}

// Root defines T as a type without supertype.
func Root[T any](types *Types, methods ...Method) (TypeID, error) {
	return types.Define(TypeSpec{Go: reflect.TypeFor[T](), Super: NoType, Methods: methods})
}

// Derived defines T as a subtype of super, whose Go type must be B. base projects a
// T to its B part, typically returning the embedded value.
func Derived[T any, B any](types *Types, super TypeID, base func(T) B, methods ...Method) (TypeID, error) {
	info, ok := types.Info(super)
	if !ok {
		return NoType, UnknownTypeError{Type: "#" + strconv.Itoa(int(super))}
	}
	if want := reflect.TypeFor[B](); info.Go != want {
		return NoType, fmt.Errorf("scr: supertype %s is not %s", info.Go, want)
	}
	if base == nil && !reflect.TypeFor[T]().AssignableTo(reflect.TypeFor[B]()) {
		return NoType, MissingProjectionError{Type: reflect.TypeFor[T]().String(), Super: info.Go.String()}
	}
	var project func(any) (any, error)
	if base != nil {
		project = func(x any) (any, error) {
			v, ok := x.(T)
			if !ok {
				return nil, fmt.Errorf("instance %T is not %s", x, reflect.TypeFor[T]())
			}
			return base(v), nil
		}
	}
	return types.Define(TypeSpec{Go: reflect.TypeFor[T](), Super: super, Base: project, Methods: methods})
}

// Info returns the type registered under id.
func (t *Types) Info(id TypeID) (TypeInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id < 0 || int(id) >= len(t.infos) {
		return TypeInfo{}, false
	}
	return t.infos[id], true
}

// Lookup returns the id of a Go type.
func (t *Types) Lookup(goType reflect.Type) (TypeID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byGo[goType]
	return id, ok
}

// TypeOf returns the id of the dynamic type of instance.
func (t *Types) TypeOf(instance any) (TypeID, bool) {
	if instance == nil {
		return NoType, false
	}
	return t.Lookup(reflect.TypeOf(instance))
}

// Chain returns id followed by each of its ancestors, most derived first.
func (t *Types) Chain(id TypeID) []TypeID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var chain []TypeID
	for id >= 0 && int(id) < len(t.infos) {
		chain = append(chain, id)
		id = t.infos[id].Super
	}
	return chain
}

// Projection returns a function mapping an instance of from to the receiver of
// its ancestor to. It returns nil when no projection is needed.
func (t *Types) Projection(from, to TypeID) (func(any) (any, error), error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var steps []func(any) (any, error)
	for id := from; id != to; {
		if id < 0 || int(id) >= len(t.infos) {
			return nil, UnknownTypeError{Type: "#" + strconv.Itoa(int(to))}
		}
		info := t.infos[id]
		if info.base != nil {
			steps = append(steps, info.base)
		}
		id = info.Super
	}
	if len(steps) == 0 {
		return nil, nil
	}
	return func(x any) (any, error) {
		var err error
		for _, step := range steps {
			if x, err = step(x); err != nil {
				return nil, err
			}
		}
		return x, nil
	}, nil
}

// RegisterCapability makes a capability type known under the name references use
// in their Interface field.
func (t *Types) RegisterCapability(name string, typ reflect.Type) error {
	if name == "" || typ == nil {
		return errors.New("scr: capability needs a name and a type")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.caps[name]; ok && prev != typ {
		return fmt.Errorf("scr: capability %q already registered as %s", name, prev)
	}
	t.caps[name] = typ
	return nil
}

// Capability registers I under name.
func Capability[I any](types *Types, name string) error {
	return types.RegisterCapability(name, reflect.TypeFor[I]())
}

// CapabilityType returns the type registered under name.
func (t *Types) CapabilityType(name string) (reflect.Type, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	typ, ok := t.caps[name]
	return typ, ok
}

// CheckDescriptor reports every reference of d whose Interface names no registered
// capability. Bind resolution cannot try the capability-typed method for those.
func (t *Types) CheckDescriptor(d *Descriptor) error {
	var err error
	for _, r := range d.refs {
		if _, ok := t.CapabilityType(r.Interface); !ok {
			err = multierr.Append(err, UnknownCapabilityError{
				Component: d.name,
				Reference: r.Name,
				Interface: r.Interface,
			})
		}
	}
	return err
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
