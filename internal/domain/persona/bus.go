package persona

import "sync"

// SelectionEvent is published when a tenant's active persona changes.
type SelectionEvent struct {
	Tenant  string
	Persona string
}

// Bus is an explicit observer registry for selection changes. It is owned
// and injected by whoever needs it; there is no package-level listener state.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]func(SelectionEvent)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(SelectionEvent))}
}

// Subscribe registers a listener and returns its unsubscribe handle.
func (b *Bus) Subscribe(fn func(SelectionEvent)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers the event to every current subscriber, synchronously and
// in no particular order.
func (b *Bus) Publish(ev SelectionEvent) {
	b.mu.Lock()
	fns := make([]func(SelectionEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
