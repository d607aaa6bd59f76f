package definition

import (
	"context"
	"sync"
)

// guildLock serializes join, play and leave within one guild. It is a
// one-slot semaphore so that waiting can be abandoned when a request is
// stopped.
type guildLock chan struct{}

func (l guildLock) lock(ctx context.Context) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

func (l guildLock) unlock() { <-l }

// guildLocks hands out one lock per guild. Locks are never removed.
type guildLocks struct {
	mu    sync.Mutex
	locks map[string]guildLock
}

func (g *guildLocks) get(guildID string) guildLock {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locks == nil {
		g.locks = make(map[string]guildLock)
	}
	l, ok := g.locks[guildID]
	if !ok {
		l = make(guildLock, 1)
		g.locks[guildID] = l
	}
	return l
}
