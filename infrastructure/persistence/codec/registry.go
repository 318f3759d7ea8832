package codec

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"dynamo-eventstore/domain/events"
)

// storable is what the registry hands back when rebuilding an event
type storable[K comparable] interface {
	events.AggregateEvent[K]
	SetAggregateID(K)
}

// registration describes one concrete event type
type registration[K comparable] struct {
	name     string
	typ      reflect.Type
	newEvent func() storable[K]
	shape    *shape
}

// Registry is the closed set of event types one store can persist,
// keyed by discriminator name and by Go type.
type Registry[K comparable] struct {
	mu     sync.RWMutex
	byName map[string]*registration[K]
	byType map[reflect.Type]*registration[K]
}

// NewRegistry creates an empty registry
func NewRegistry[K comparable]() *Registry[K] {
	return &Registry[K]{
		byName: make(map[string]*registration[K]),
		byType: make(map[reflect.Type]*registration[K]),
	}
}

// Register binds the discriminator name to the event struct E.
// Events of type E may be appended either as E or *E and are always read back as *E.
func Register[K comparable, E any, PE interface {
	*E
	storable[K]
}](r *Registry[K], name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("event type name cannot be empty")
	}

	typ := reflect.TypeOf((*E)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return fmt.Errorf("event type %s must be a struct", typ)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		return fmt.Errorf("event type name %q already registered for %s", name, existing.typ)
	}
	if existing, ok := r.byType[typ]; ok {
		return fmt.Errorf("event type %s already registered as %q", typ, existing.name)
	}

	reg := &registration[K]{
		name:     name,
		typ:      typ,
		newEvent: func() storable[K] { return PE(new(E)) },
		shape:    shapeOf(typ),
	}
	r.byName[name] = reg
	r.byType[typ] = reg
	return nil
}

// MustRegister is Register for start-up wiring
func MustRegister[K comparable, E any, PE interface {
	*E
	storable[K]
}](r *Registry[K], name string) {
	if err := Register[K, E, PE](r, name); err != nil {
		panic(err)
	}
}

// Names returns the registered discriminator names in sorted order
func (r *Registry[K]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NameOf returns the discriminator registered for the event's concrete type
func (r *Registry[K]) NameOf(event events.AggregateEvent[K]) (string, bool) {
	reg, ok := r.lookupType(event)
	if !ok {
		return "", false
	}
	return reg.name, true
}

func (r *Registry[K]) lookupName(name string) (*registration[K], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byName[name]
	return reg, ok
}

func (r *Registry[K]) lookupType(event events.AggregateEvent[K]) (*registration[K], bool) {
	typ := reflect.TypeOf(event)
	if typ == nil {
		return nil, false
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byType[typ]
	return reg, ok
}
