package component

import (
	"maps"
	"reflect"
)

// ComponentContext is handed to activate and deactivate methods.
type ComponentContext interface {
	// ComponentName returns the name of the component being (de)activated.
	ComponentName() string
	// Properties returns the configuration properties of the component.
	Properties() map[string]any
	// LocateService returns the first service object bound to the named reference.
	LocateService(reference string) (any, bool)
	// LocateServices returns all service objects bound to the named reference.
	LocateServices(reference string) []any
}

// ServiceID identifies a registered service.
type ServiceID int64

// ServiceReference is the opaque handle of a candidate service for a reference.
// Bind methods that declare a ServiceReference parameter receive it directly.
type ServiceReference interface {
	ServiceID() ServiceID
	// Provider is the name of the component that provides the service, or "" when
	// the service is not backed by a component.
	Provider() string
	Property(key string) (any, bool)
}

var (
	contextType   = reflect.TypeFor[ComponentContext]()
	referenceType = reflect.TypeFor[ServiceReference]()
)

// ContextType is the parameter type of activate and deactivate methods.
func ContextType() reflect.Type { return contextType }

// ReferenceType is the parameter type of bind methods that take the handle itself.
func ReferenceType() reflect.Type { return referenceType }

// BasicServiceReference is a plain ServiceReference value.
type BasicServiceReference struct {
	id       ServiceID
	provider string
	props    map[string]any
}

// NewServiceReference returns a ServiceReference. props is copied.
func NewServiceReference(id ServiceID, provider string, props map[string]any) *BasicServiceReference {
	return &BasicServiceReference{id: id, provider: provider, props: maps.Clone(props)}
}

func (r *BasicServiceReference) ServiceID() ServiceID { return r.id }

func (r *BasicServiceReference) Provider() string { return r.provider }

func (r *BasicServiceReference) Property(key string) (any, bool) {
	v, ok := r.props[key]
	return v, ok
}
