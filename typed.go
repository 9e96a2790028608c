package memclient

import (
	"context"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/memclient/internal/constants"
	"github.com/hyp3rd/memclient/internal/libs/serializer"
	"github.com/hyp3rd/memclient/internal/sentinel"
	"github.com/hyp3rd/memclient/pkg/memerr"
)

// Typed stores Go values of type T through a Service. Values are serialized with a named
// serializer ("json", "msgpack" or "cbor") before the base64 wire encoding.
type Typed[T any] struct {
	svc        Service
	serializer serializer.ISerializer
}

// NewTyped returns a Typed store over svc. An empty serializer name selects JSON.
func NewTyped[T any](svc Service, serializerName string) (*Typed[T], error) {
	if svc == nil {
		return nil, sentinel.ErrNilClient
	}

	if serializerName == "" {
		serializerName = constants.DefaultSerializer
	}

	s, err := serializer.New(serializerName)
	if err != nil {
		return nil, err
	}

	return &Typed[T]{svc: svc, serializer: s}, nil
}

// Put serializes value and stores it under key.
func (t *Typed[T]) Put(ctx context.Context, key string, value T) error {
	data, err := t.serializer.Marshal(value)
	if err != nil {
		return &memerr.ValidationError{Message: "cannot serialize value", Cause: err}
	}

	return t.svc.Put(ctx, key, string(data))
}

// Get loads and deserializes the value stored under key. A missing key returns the zero T and false.
func (t *Typed[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var out T

	raw, found, err := t.svc.Get(ctx, key)
	if err != nil || !found {
		return out, false, err
	}

	err = t.serializer.Unmarshal([]byte(raw), &out)
	if err != nil {
		return out, false, &memerr.ValidationError{
			Message: "malformed value",
			Details: key,
			Cause:   ewrap.Wrap(err, "deserialize value"),
		}
	}

	return out, true, nil
}

// Delete removes key.
func (t *Typed[T]) Delete(ctx context.Context, key string) (bool, error) {
	return t.svc.Delete(ctx, key)
}
