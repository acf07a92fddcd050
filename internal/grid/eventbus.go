package grid

import "sync"

// Bus is an in-process publish/subscribe channel between nodes, the model
// and the distributor. Dispatch is synchronous, which keeps the model's
// view current by the time Publish returns. Delivery is
// at-least-once from the subscriber's perspective: publishers may resend a
// snapshot and subscribers must tolerate duplicates.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]func(Event)
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn for every subsequent event. The returned cancel
// func removes the subscription; calling it more than once is harmless.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers e to all current subscribers.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(e)
	}
}
