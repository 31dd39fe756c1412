// Package events carries the ambient change notifications the rendering
// layer listens for. The notifier is an explicit object injected into the
// coordinator and migrator; subscribers are invoked synchronously on the
// publishing goroutine and must not block.
package events

import (
	"sync"

	"github.com/dreamlayer/artvault/pkg/types"
)

// Notifier fans events out to subscribers.
type Notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func(types.Event)
}

// New creates an empty notifier.
func New() *Notifier {
	return &Notifier{subs: make(map[int]func(types.Event))}
}

// Subscribe registers fn for all topics and returns a cancel function.
func (n *Notifier) Subscribe(fn func(types.Event)) (cancel func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Publish delivers ev to every current subscriber.
func (n *Notifier) Publish(ev types.Event) {
	n.mu.Lock()
	fns := make([]func(types.Event), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
