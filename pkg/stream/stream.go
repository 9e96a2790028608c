package stream

import (
	"context"
	"io"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/hyp3rd/memclient/internal/sentinel"
	"github.com/hyp3rd/memclient/pkg/memerr"
)

// ParseFunc decodes one record.
type ParseFunc[T any] func(record []byte) (T, error)

// JSON returns a ParseFunc that unmarshals each record into a T.
func JSON[T any]() ParseFunc[T] {
	return func(record []byte) (T, error) {
		var v T

		err := json.Unmarshal(record, &v)

		return v, err
	}
}

// Option configures a Stream.
type Option func(*options)

type options struct {
	chunkSize int
}

// WithChunkSize sets the read size of the underlying decoder.
func WithChunkSize(n int) Option {
	return func(o *options) { o.chunkSize = n }
}

// Stream is a lazy, finite, single-use sequence of decoded records.
// It is not safe for concurrent iteration; Close may be called from any goroutine.
//
//	s, err := client.ListAllKeys(ctx)
//	if err != nil { ... }
//	defer s.Close()
//
//	for key, err := range s.All() { ... }
type Stream[T any] struct {
	ctx   context.Context
	body  io.ReadCloser
	dec   *Decoder
	parse ParseFunc[T]

	item T
	err  error
	done bool

	iterated atomic.Bool
	closed   atomic.Bool
	stop     func() bool
	once     sync.Once
	closeErr error
}

// New returns a Stream over body. Cancelling ctx closes body, unblocking any pending read.
func New[T any](ctx context.Context, body io.ReadCloser, parse ParseFunc[T], opts ...Option) *Stream[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Stream[T]{
		ctx:   ctx,
		body:  body,
		dec:   NewDecoder(body, o.chunkSize),
		parse: parse,
	}

	s.stop = context.AfterFunc(ctx, func() { _ = s.closeBody() })

	return s
}

// Next advances to the next record. It returns false at the end of the stream,
// on the first failure (see Err) and after Close.
func (s *Stream[T]) Next() bool {
	if s.done {
		return false
	}

	if s.closed.Load() {
		s.finish(nil)

		return false
	}

	rec, line, err := s.dec.Next()
	if err != nil {
		if err == io.EOF { //nolint:errorlint // decoder returns io.EOF unwrapped
			s.finish(nil)

			return false
		}

		s.finish(s.readError(err))

		return false
	}

	v, err := s.parse(rec)
	if err != nil {
		s.finish(&memerr.StreamError{Line: line, Raw: string(rec), Err: err})

		return false
	}

	s.item = v

	return true
}

// Item returns the record produced by the last successful Next.
func (s *Stream[T]) Item() T { return s.item }

// Err returns the failure that ended the stream, nil on a clean end or after Close.
func (s *Stream[T]) Err() error { return s.err }

// All returns the records as an iterator. A failure is yielded once, with a zero
// record, as the final element. Breaking out of the loop closes the stream.
// A stream can be ranged over only once.
func (s *Stream[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		if !s.iterated.CompareAndSwap(false, true) {
			yield(zero, sentinel.ErrStreamConsumed)

			return
		}

		defer func() { _ = s.Close() }()

		for s.Next() {
			if !yield(s.item, nil) {
				return
			}
		}

		if s.err != nil {
			yield(zero, s.err)
		}
	}
}

// Collect drains the stream into a slice. Records decoded before a failure are returned with it.
func (s *Stream[T]) Collect() ([]T, error) {
	var out []T

	for v, err := range s.All() {
		if err != nil {
			return out, err
		}

		out = append(out, v)
	}

	return out, nil
}

// Close releases the underlying body without draining it. It is idempotent.
func (s *Stream[T]) Close() error {
	s.closed.Store(true)

	if s.stop != nil {
		s.stop()
	}

	return s.closeBody()
}

func (s *Stream[T]) closeBody() error {
	s.once.Do(func() {
		s.closeErr = s.body.Close()
	})

	return s.closeErr
}

func (s *Stream[T]) finish(err error) {
	s.done = true
	s.err = err

	_ = s.closeBody()
}

// readError classifies a failure of the underlying reader.
func (s *Stream[T]) readError(err error) error {
	if s.closed.Load() {
		return nil
	}

	if cerr := s.ctx.Err(); cerr != nil {
		return &memerr.NetworkError{Cause: cerr}
	}

	return &memerr.NetworkError{Cause: err}
}
