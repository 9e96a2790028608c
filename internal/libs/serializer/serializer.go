// Package serializer provides serialization interfaces and implementations for converting
// Go values to and from byte slices. Typed memory stores use it to turn structured
// values into the opaque strings the remote store holds.
//
// The package ships JSON (goccy/go-json), msgpack (shamaton/msgpack) and CBOR
// (ugorji/go/codec) serializers, looked up by name in a Registry.
package serializer

import (
	"slices"
	"sync"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/memclient/internal/sentinel"
)

// Names of the built-in serializers.
const (
	JSON    = "json"
	Msgpack = "msgpack"
	CBOR    = "cbor"
)

// ISerializer is the interface that wraps the basic serializer methods.
type ISerializer interface {
	// Marshal serializes the given value into a byte slice.
	Marshal(v any) ([]byte, error)
	// Unmarshal deserializes the given byte slice into the given value.
	Unmarshal(data []byte, v any) error
}

// Factory builds a serializer.
type Factory func() ISerializer

// Registry maps serializer names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in serializers.
func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]Factory{
			JSON:    func() ISerializer { return &DefaultJSONSerializer{} },
			Msgpack: func() ISerializer { return &MsgpackSerializer{} },
			CBOR:    func() ISerializer { return NewCBORSerializer() },
		},
	}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" || factory == nil {
		return ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "serializer name and factory")
	}

	r.mu.Lock()
	r.factories[name] = factory
	r.mu.Unlock()

	return nil
}

// New builds the serializer registered as name.
func (r *Registry) New(name string) (ISerializer, error) {
	if name == "" {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "serializer name")
	}

	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, ewrap.Wrapf(sentinel.ErrSerializerNotFound, "%q (known: %v)", name, r.Names())
	}

	return factory(), nil
}

// Names lists the registered serializers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

var defaultRegistry = sync.OnceValue(NewRegistry)

// Default returns the process-wide registry used by New.
func Default() *Registry { return defaultRegistry() }

// New builds a serializer from the default registry.
func New(name string) (ISerializer, error) {
	return Default().New(name)
}
