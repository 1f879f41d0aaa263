package contract

import (
	"context"
	"sync"
	"time"

	"intelligencehub-console/pkg/session"
)

// Console is one browser console: its session store and the hook that detaches the
// store's listeners when the console is evicted.
type Console struct {
	ID      string
	Store   *session.Store
	Release func()

	ready     chan struct{}
	readyOnce sync.Once
}

// NewConsole returns a console that is not ready until MarkReady is called.
func NewConsole(id string, store *session.Store, release func()) *Console {
	return &Console{ID: id, Store: store, Release: release, ready: make(chan struct{})}
}

// MarkReady releases every WaitReady caller. It may be called more than once.
func (c *Console) MarkReady() {
	if c.ready == nil {
		return
	}
	c.readyOnce.Do(func() { close(c.ready) })
}

// WaitReady blocks until the console's first opener finished restoring it. Consoles
// built without NewConsole are always ready.
func (c *Console) WaitReady(ctx context.Context) error {
	if c.ready == nil {
		return nil
	}
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type ConsoleRepository interface {
	// GetOrCreate returns the console for id, building it with create when absent.
	// created reports whether create ran.
	GetOrCreate(id string, create func() *Console) (console *Console, created bool)
	Get(id string) (*Console, bool)
	Delete(id string)
	Count() int
}

type TokenRepository interface {
	// For returns the persister bound to one console.
	For(consoleID string) session.Persister
	TTL(ctx context.Context, consoleID string) (time.Duration, error)
}
