package gateway

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Memory is an in-process Gateway used by unit tests and by the seed tool
// when no MongoDB is configured. Live queries see writes made through the
// same instance.
type Memory struct {
	mu   sync.RWMutex
	cols map[string]map[string]Document
	hub  *watchHub

	// FailNextPut makes the next Put/Create return a StoreError; used by
	// tests to exercise provisioning failure paths. When FailCollection is
	// set only writes to that collection trip it.
	FailNextPut    error
	FailCollection string
}

func NewMemory() *Memory {
	return &Memory{cols: make(map[string]map[string]Document), hub: newWatchHub()}
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col, ok := m.cols[collection]
	if !ok {
		return nil, nil
	}
	doc, ok := col[id]
	if !ok {
		return nil, nil
	}
	out := clone(doc)
	out["id"] = id
	return out, nil
}

func (m *Memory) Create(ctx context.Context, collection string, doc Document) (string, error) {
	id := ulid.Make().String()
	if err := m.Put(ctx, collection, id, doc, false); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Put(ctx context.Context, collection, id string, doc Document, merge bool) error {
	m.mu.Lock()
	if m.FailNextPut != nil && (m.FailCollection == "" || m.FailCollection == collection) {
		err := m.FailNextPut
		m.FailNextPut = nil
		m.mu.Unlock()
		return &StoreError{Op: "put", Collection: collection, Err: err}
	}
	col, ok := m.cols[collection]
	if !ok {
		col = make(map[string]Document)
		m.cols[collection] = col
	}
	stored := clone(doc)
	delete(stored, "id")
	if merge {
		if existing, ok := col[id]; ok {
			merged := clone(existing)
			for k, v := range stored {
				merged[k] = v
			}
			stored = merged
		}
	}
	col[id] = stored
	m.mu.Unlock()

	m.hub.notify(ctx, collection, m.Query)
	return nil
}

func (m *Memory) Query(ctx context.Context, collection string, filters []Filter, order *Ordering) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Document{}
	for id, doc := range m.cols[collection] {
		if !matches(doc, filters) {
			continue
		}
		d := clone(doc)
		d["id"] = id
		out = append(out, d)
	}
	sortDocs(out, order)
	return out, nil
}

func (m *Memory) Subscribe(ctx context.Context, collection string, filters []Filter, order *Ordering, onChange func([]Document)) (Unsubscribe, error) {
	initial, err := m.Query(ctx, collection, filters, order)
	if err != nil {
		return nil, err
	}
	onChange(initial)
	return m.hub.register(&liveQuery{collection: collection, filters: filters, order: order, onChange: onChange}, initial), nil
}

// Dump returns a copy of a collection keyed by id; test helper.
func (m *Memory) Dump(collection string) map[string]Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Document, len(m.cols[collection]))
	for id, doc := range m.cols[collection] {
		out[id] = clone(doc)
	}
	return out
}
