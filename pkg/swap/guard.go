package swap

import (
	"sync"
	"sync/atomic"

	"solramp/pkg/types"
)

// Guard admits one submission at a time
type Guard struct {
	busy atomic.Bool
}

// TryAcquire takes the slot, reporting false when it is already held
func (g *Guard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

func (g *Guard) Release() {
	g.busy.Store(false)
}

func (g *Guard) Busy() bool {
	return g.busy.Load()
}

// Bus delivers pipeline events to subscribers synchronously, in publish order
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(types.Event)
}

func NewBus() *Bus {
	return &Bus{subs: map[int]func(types.Event){}}
}

// Subscribe registers fn and returns a function that removes it
func (b *Bus) Subscribe(fn func(types.Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

func (b *Bus) Publish(ev types.Event) {
	b.mu.RLock()
	subs := make([]func(types.Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
