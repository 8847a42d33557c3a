package trace

import (
	"fmt"
	"reflect"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/dasim/dasim/sim"
)

// decodeFunc fills a value from its encoded payload.
type decodeFunc func(into any) error

type payloadType struct {
	name   string
	decode func(decodeFunc) (any, error)
}

// Registry maps the concrete event and state types of an algorithm to stable
// names, so a persisted trace can be decoded back into the same types.
// Payloads are YAML-encoded, so registered types need YAML tags.
type Registry struct {
	byName map[string]payloadType
	byType map[reflect.Type]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]payloadType),
		byType: make(map[reflect.Type]string),
	}
}

func register[T any](r *Registry, name string) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if prev, ok := r.byType[typ]; ok && prev != name {
		panic(fmt.Sprintf("trace: %v already registered as %q", typ, prev))
	}
	if _, ok := r.byName[name]; ok {
		panic(fmt.Sprintf("trace: duplicate registration of %q", name))
	}
	r.byType[typ] = name
	r.byName[name] = payloadType{
		name: name,
		decode: func(decode decodeFunc) (any, error) {
			var v T
			if err := decode(&v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// RegisterEvent records T as an event type under name. Registering the same
// name twice panics.
func RegisterEvent[T sim.Event](r *Registry, name string) {
	register[T](r, name)
}

// RegisterState records T as a state type under name.
func RegisterState[T sim.State](r *Registry, name string) {
	register[T](r, name)
}

// nameOf returns the registered name of v's dynamic type.
func (r *Registry) nameOf(v any) (string, error) {
	name, ok := r.byType[reflect.TypeOf(v)]
	if !ok {
		return "", fmt.Errorf("trace: type %T is not registered", v)
	}
	return name, nil
}

func (r *Registry) decode(name string, decode decodeFunc) (any, error) {
	pt, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("trace: unknown registered type %q", name)
	}
	v, err := pt.decode(decode)
	if err != nil {
		return nil, fmt.Errorf("trace: decoding %q: %w", name, err)
	}
	return v, nil
}

func (r *Registry) decodeEvent(name string, decode decodeFunc) (sim.Event, error) {
	v, err := r.decode(name, decode)
	if err != nil {
		return nil, err
	}
	ev, ok := v.(sim.Event)
	if !ok {
		return nil, fmt.Errorf("trace: %q is registered as a state, not an event", name)
	}
	return ev, nil
}

func (r *Registry) decodeState(name string, decode decodeFunc) (sim.State, error) {
	v, err := r.decode(name, decode)
	if err != nil {
		return nil, err
	}
	st, ok := v.(sim.State)
	if !ok {
		return nil, fmt.Errorf("trace: %q is registered as an event, not a state", name)
	}
	return st, nil
}

// Names returns the registered names in ascending order.
func (r *Registry) Names() []string {
	names := maps.Keys(r.byName)
	slices.Sort(names)
	return names
}
