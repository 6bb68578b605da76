package component

// Access is the declared visibility of a component method.
type Access uint8

const (
	// Private methods are never called by the engine.
	Private Access = iota
	// Package methods are visible within the defining package only and are never called.
	Package
	// Protected methods are callable by the engine.
	Protected
	// Public methods are callable by the engine.
	Public
)

// Invocable reports whether the engine may call a method with this access.
func (a Access) Invocable() bool { return a == Protected || a == Public }

func (a Access) String() string {
	switch a {
	case Private:
		return "private"
	case Package:
		return "package"
	case Protected:
		return "protected"
	case Public:
		return "public"
	default:
		return "unknown"
	}
}

// Role is the lifecycle or binding event a method is resolved for.
type Role uint8

const (
	RoleActivate Role = iota
	RoleDeactivate
	RoleBind
	RoleUnbind
)

func (r Role) String() string {
	switch r {
	case RoleActivate:
		return "activate"
	case RoleDeactivate:
		return "deactivate"
	case RoleBind:
		return "bind"
	case RoleUnbind:
		return "unbind"
	default:
		return "unknown"
	}
}

// Outcome classifies the result of a resolution.
type Outcome uint8

const (
	// Found means a callable method was selected.
	Found Outcome = iota
	// NotFound means no qualifying method exists.
	NotFound
	// Inaccessible means the selected candidate is neither protected nor public.
	Inaccessible
	// Unavailable means resolution needed a service object that could not be
	// acquired (for example a circular dependency). It is never memoized.
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	case Inaccessible:
		return "inaccessible"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Err maps the outcome to its sentinel error, nil for Found.
func (o Outcome) Err() error {
	switch o {
	case Found:
		return nil
	case Inaccessible:
		return ErrInaccessible
	case Unavailable:
		return ErrUnavailable
	default:
		return ErrNotFound
	}
}

// Variant records which bind-method search step selected a method.
type Variant uint8

const (
	// ByContext is used for activate/deactivate methods taking a ComponentContext.
	ByContext Variant = iota
	// ByReference means the method takes the ServiceReference itself.
	ByReference
	// ByCapability means the method takes the reference's declared capability type.
	ByCapability
	// ByAssignable means the method takes a type the service object is assignable to.
	ByAssignable
)

func (v Variant) String() string {
	switch v {
	case ByContext:
		return "context"
	case ByReference:
		return "reference"
	case ByCapability:
		return "capability"
	case ByAssignable:
		return "assignable"
	default:
		return "unknown"
	}
}
