// Package observer implements ordered listener registries with disposers.
package observer

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// List is an ordered set of callbacks notified synchronously with values
// of type T. The zero value is ready to use.
type List[T any] struct {
	mu        sync.Mutex
	next      uint64
	listeners []entry[T]
	log       zerolog.Logger
}

type entry[T any] struct {
	id uint64
	fn func(T)
}

// NewList returns a List that reports listener panics to log.
func NewList[T any](log zerolog.Logger) *List[T] {
	return &List[T]{log: log}
}

// Subscribe appends fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (l *List[T]) Subscribe(fn func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.next++
	id := l.next
	l.listeners = append(l.listeners, entry[T]{id: id, fn: fn})

	return func() { l.remove(id) }
}

func (l *List[T]) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.listeners {
		if e.id == id {
			l.listeners = append(l.listeners[:i:i], l.listeners[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered listeners.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.listeners)
}

// Notify calls every listener in subscription order. A panicking listener
// is logged and does not stop later listeners.
func (l *List[T]) Notify(v T) {
	l.mu.Lock()
	snapshot := make([]entry[T], len(l.listeners))
	copy(snapshot, l.listeners)
	l.mu.Unlock()

	for _, e := range snapshot {
		l.call(e.fn, v)
	}
}

func (l *List[T]) call(fn func(T), v T) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Str("panic", fmt.Sprint(r)).Msg("listener failed")
		}
	}()
	fn(v)
}
