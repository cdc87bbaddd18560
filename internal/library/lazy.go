package library

import (
	"context"
	"io"
	"sync"
)

// Lazy defers opening a fetcher until the first Fetch. A failed open is
// retried on the next Fetch.
type Lazy struct {
	Open func() (Fetcher, error)

	mu sync.Mutex
	f  Fetcher
}

var _ Fetcher = (*Lazy)(nil)

// Fetch implements Fetcher.
func (l *Lazy) Fetch(ctx context.Context, ref Ref) (*Document, error) {
	f, err := l.get()
	if err != nil {
		return nil, err
	}
	return f.Fetch(ctx, ref)
}

// Opened reports whether the underlying fetcher has been opened.
func (l *Lazy) Opened() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f != nil
}

func (l *Lazy) get() (Fetcher, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f != nil {
		return l.f, nil
	}
	f, err := l.Open()
	if err != nil {
		return nil, err
	}
	l.f = f
	return f, nil
}

// Close closes the underlying fetcher if it was opened and is an io.Closer.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.f.(io.Closer)
	l.f = nil
	if !ok {
		return nil
	}
	return c.Close()
}
