package exam

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when a session already has an action in flight.
var ErrBusy = errors.New("a generation is already in progress")

// DefaultSession is the session key used when the context carries none.
const DefaultSession = "local"

// Guard serializes actions per session key. Acquire returns ErrBusy when
// the key is held; the returned release func must be called exactly once.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LocalGuard is an in-process Guard.
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalGuard returns an empty LocalGuard.
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: make(map[string]bool)}
}

func (g *LocalGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] {
		return nil, ErrBusy
	}
	g.held[key] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

type sessionKey struct{}

// WithSession tags ctx with the session whose actions are serialized.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFrom returns the session from ctx, or DefaultSession.
func SessionFrom(ctx context.Context) string {
	if v, ok := ctx.Value(sessionKey{}).(string); ok && v != "" {
		return v
	}
	return DefaultSession
}
