package gateway

import (
	"context"
	"reflect"
	"sync"
)

// watchHub fans writes out to live queries registered against the same
// gateway instance. Delivery happens on the writer's goroutine while the
// hub's read lock is held, so Unsubscribe (which takes the write lock)
// returns only after any in-flight delivery has finished; after that no
// further onChange call can start.
type watchHub struct {
	mu   sync.RWMutex
	next int
	subs map[int]*liveQuery
}

type liveQuery struct {
	collection string
	filters    []Filter
	order      *Ordering
	onChange   func([]Document)

	// deliverMu serializes deliveries per subscription and guards last.
	deliverMu sync.Mutex
	last      []Document
}

func newWatchHub() *watchHub {
	return &watchHub{subs: make(map[int]*liveQuery)}
}

type queryFn func(ctx context.Context, collection string, filters []Filter, order *Ordering) ([]Document, error)

// register adds a live query and returns its unsubscribe func. initial is
// the snapshot already delivered to the caller; identical results are not
// redelivered.
func (h *watchHub) register(lq *liveQuery, initial []Document) Unsubscribe {
	lq.last = initial
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = lq
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// notify re-runs every live query on the collection and delivers the fresh
// snapshot when it differs from the last delivered one. Query failures drop
// the delivery; the next write retries.
func (h *watchHub) notify(ctx context.Context, collection string, query queryFn) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, lq := range h.subs {
		if lq.collection != collection {
			continue
		}
		docs, err := query(ctx, lq.collection, lq.filters, lq.order)
		if err != nil {
			continue
		}
		lq.deliverMu.Lock()
		if reflect.DeepEqual(lq.last, docs) {
			lq.deliverMu.Unlock()
			continue
		}
		lq.last = docs
		lq.onChange(docs)
		lq.deliverMu.Unlock()
	}
}
