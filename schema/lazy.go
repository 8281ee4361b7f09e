package schema

import (
	"sync"

	"github.com/qnighy/minibuf/wire"
)

// Lazy defers building a type until it is first used, so that a message
// type can refer to itself or to a type defined after it.
func Lazy[T any](resolve func() Type[T]) Type[T] {
	return &lazyType[T]{resolve: resolve}
}

type lazyType[T any] struct {
	once    sync.Once
	resolve func() Type[T]
	typ     Type[T]
}

func (l *lazyType[T]) get() Type[T] {
	l.once.Do(func() {
		l.typ = resolveType(l.resolve())
		l.resolve = nil
	})
	return l.typ
}

func (l *lazyType[T]) Flags() wire.Flags { return l.get().Flags() }

func (l *lazyType[T]) ToScalar(typ wire.Type, v wire.Value) (T, error) {
	return l.get().ToScalar(typ, v)
}

func (l *lazyType[T]) WriteScalar(s *wire.Sink, num wire.Number, v T) error {
	return l.get().WriteScalar(s, num, v)
}

func (l *lazyType[T]) Convert(v any) (T, error) { return l.get().Convert(v) }

// resolveType unwraps lazy cells so optional capabilities (packed writes,
// groups) of the underlying type can be detected.
func resolveType[T any](t Type[T]) Type[T] {
	for {
		l, ok := t.(*lazyType[T])
		if !ok {
			return t
		}
		t = l.get()
	}
}
