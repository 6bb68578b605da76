package component

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
)

// Default lifecycle method names.
const (
	DefaultActivate   = "activate"
	DefaultDeactivate = "deactivate"
)

var validate = validator.New()

// Cardinality says how many services a reference accepts and whether it must be
// satisfied. The engine binds single and multiple references the same way.
type Cardinality uint8

const (
	Optional   Cardinality = iota // 0..1
	Mandatory                     // 1..1
	Multiple                      // 0..n
	AtLeastOne                    // 1..n
)

func (c Cardinality) String() string {
	switch c {
	case Optional:
		return "0..1"
	case Mandatory:
		return "1..1"
	case Multiple:
		return "0..n"
	case AtLeastOne:
		return "1..n"
	default:
		return "?"
	}
}

// IsMandatory reports whether at least one service must be bound.
func (c Cardinality) IsMandatory() bool { return c == Mandatory || c == AtLeastOne }

// IsMultiple reports whether more than one service may be bound.
func (c Cardinality) IsMultiple() bool { return c == Multiple || c == AtLeastOne }

// Reference declares one dependency of a component.
type Reference struct {
	Name string `validate:"required"`
	// Interface names the capability type, see Types.RegisterCapability.
	Interface   string      `validate:"required"`
	Cardinality Cardinality `validate:"lte=3"`
	// Bind and Unbind name the hook methods. Empty means no hook.
	Bind   string
	Unbind string
}

// Method returns the hook name for RoleBind or RoleUnbind.
func (r Reference) Method(role Role) string {
	switch role {
	case RoleBind:
		return r.Bind
	case RoleUnbind:
		return r.Unbind
	default:
		return ""
	}
}

// DescriptorSpec is the parsed form of a component declaration.
type DescriptorSpec struct {
	Name string `validate:"required"`
	// Type is the implementation type in the arena.
	Type TypeID `validate:"gte=0"`
	// Activate and Deactivate default to "activate" and "deactivate".
	Activate   string
	Deactivate string
	References []Reference `validate:"dive"`
}

// BindKey identifies a memoized bind or unbind resolution. Service is nil for the
// service-independent entry.
type BindKey struct {
	Role      Role
	Reference string
	Runtime   TypeID
	Service   reflect.Type
}

// Descriptor is the immutable model of a component type plus its resolved-method
// cache. A Descriptor is shared by every configuration of the component and is
// safe for concurrent use.
type Descriptor struct {
	name       string
	typ        TypeID
	activate   string
	deactivate string
	refs       []Reference
	byName     map[string]int

	lifecycle [2]Cell
	flight    singleflight.Group

	bindMu sync.Mutex
	binds  map[BindKey]*Cell
}

// NewDescriptor validates spec and builds a Descriptor.
func NewDescriptor(spec DescriptorSpec) (*Descriptor, error) {
	if err := validate.Struct(spec); err != nil {
		return nil, invalidDescriptor(spec.Name, err)
	}
	d := &Descriptor{
		name:       spec.Name,
		typ:        spec.Type,
		activate:   spec.Activate,
		deactivate: spec.Deactivate,
		refs:       append([]Reference(nil), spec.References...),
		byName:     make(map[string]int, len(spec.References)),
		binds:      make(map[BindKey]*Cell),
	}
	if d.activate == "" {
		d.activate = DefaultActivate
	}
	if d.deactivate == "" {
		d.deactivate = DefaultDeactivate
	}
	for i, r := range d.refs {
		if _, exists := d.byName[r.Name]; exists {
			return nil, DuplicateReferenceError{Name: r.Name}
		}
		d.byName[r.Name] = i
	}
	return d, nil
}

func (d *Descriptor) Name() string { return d.name }

// Type returns the implementation type.
func (d *Descriptor) Type() TypeID { return d.typ }

// MethodName returns the configured method name for RoleActivate or RoleDeactivate.
func (d *Descriptor) MethodName(role Role) string {
	switch role {
	case RoleActivate:
		return d.activate
	case RoleDeactivate:
		return d.deactivate
	default:
		return ""
	}
}

// References returns a copy of the declared references, in declaration order.
func (d *Descriptor) References() []Reference {
	return append([]Reference(nil), d.refs...)
}

// Reference returns the named reference.
func (d *Descriptor) Reference(name string) (Reference, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Reference{}, false
	}
	return d.refs[i], true
}

// LifecycleCell returns the cache cell of RoleActivate or RoleDeactivate.
func (d *Descriptor) LifecycleCell(role Role) *Cell {
	switch role {
	case RoleActivate:
		return &d.lifecycle[0]
	case RoleDeactivate:
		return &d.lifecycle[1]
	default:
		return nil
	}
}

// Memoize returns the cached lifecycle entry for role, computing it with resolve on
// first use. Concurrent first callers share a single computation. stored is called
// once, by the caller whose entry ended up in the cell.
func (d *Descriptor) Memoize(role Role, resolve func() Entry, stored func(Entry)) Entry {
	cell := d.LifecycleCell(role)
	if cell == nil {
		return Entry{Outcome: NotFound}
	}
	if e, ok := cell.Load(); ok {
		return e
	}
	v, _, _ := d.flight.Do(role.String(), func() (any, error) {
		if e, ok := cell.Load(); ok {
			return e, nil
		}
		e, won := cell.Claim(resolve())
		if won && stored != nil {
			stored(e)
		}
		return e, nil
	})
	return v.(Entry)
}

// BindCell returns the cache cell for key, creating it on first use.
func (d *Descriptor) BindCell(key BindKey) *Cell {
	d.bindMu.Lock()
	defer d.bindMu.Unlock()
	c, ok := d.binds[key]
	if !ok {
		c = &Cell{}
		d.binds[key] = c
	}
	return c
}

func invalidDescriptor(name string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return InvalidDescriptorError{Component: name, Problems: []string{err.Error()}}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, formatFieldError(fe))
	}
	return InvalidDescriptorError{Component: name, Problems: problems}
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "DescriptorSpec.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte":
		return field + " must be a defined type"
	case "lte":
		return field + " is not a valid cardinality"
	default:
		return field + " is invalid"
	}
}
