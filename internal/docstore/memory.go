package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRecord struct {
	version   int64
	body      []byte
	createdAt time.Time
	updatedAt time.Time
}

// Memory is an in-process Backend. Bodies are kept serialized so callers
// never share maps with the store.
type Memory struct {
	mu      sync.RWMutex
	records map[string]map[string]*memoryRecord
	applied map[string]struct{}
	now     func() time.Time
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]map[string]*memoryRecord),
		applied: make(map[string]struct{}),
		now:     time.Now,
	}
}

// NewMemoryStore returns an in-memory Store with subscriptions.
func NewMemoryStore() *Bus {
	return NewBus(NewMemory())
}

func (m *Memory) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[collection][id]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
	}
	return rec.document(collection, id)
}

func (m *Memory) Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	_, body, err := normalizeData(data)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	coll := m.collection(collection)
	if _, exists := coll[id]; exists {
		return nil, fmt.Errorf("create %s/%s: %w", collection, id, ErrAlreadyExists)
	}
	now := m.now()
	rec := &memoryRecord{version: 1, body: body, createdAt: now, updatedAt: now}
	coll[id] = rec
	return rec.document(collection, id)
}

func (m *Memory) Update(ctx context.Context, collection, id string, patch map[string]any, opts ...UpdateOption) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o := buildUpdateOptions(opts)

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[collection][id]
	if !ok {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}
	if o.expectedVersion != nil && *o.expectedVersion != rec.version {
		return nil, fmt.Errorf("update %s/%s: expected version %d, stored %d: %w",
			collection, id, *o.expectedVersion, rec.version, ErrVersionConflict)
	}

	var current map[string]any
	if err := json.Unmarshal(rec.body, &current); err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	_, body, err := normalizeData(applyPatch(current, patch))
	if err != nil {
		return nil, err
	}

	rec.body = body
	rec.version++
	rec.updatedAt = m.now()
	return rec.document(collection, id)
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[collection][id]; !ok {
		return fmt.Errorf("delete %s/%s: %w", collection, id, ErrNotFound)
	}
	delete(m.records[collection], id)
	return nil
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := q.Validate()
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	var docs []Document
	for id, rec := range m.records[q.Collection] {
		doc, err := rec.document(q.Collection, id)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		if q.Matches(doc.Data) {
			docs = append(docs, *doc)
		}
	}
	m.mu.RUnlock()

	sortDocuments(docs, q.OrderBy)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func (m *Memory) Increment(ctx context.Context, collection, id string, deltas map[string]float64, opts ...IncrementOption) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	o := buildIncrementOptions(opts)

	m.mu.Lock()
	defer m.mu.Unlock()

	appliedKey := ""
	if o.idempotencyKey != "" {
		appliedKey = collection + "/" + o.idempotencyKey
		if _, done := m.applied[appliedKey]; done {
			return false, nil
		}
	}

	coll := m.collection(collection)
	now := m.now()
	rec, exists := coll[id]

	var current map[string]any
	if exists {
		if err := json.Unmarshal(rec.body, &current); err != nil {
			return false, fmt.Errorf("increment %s/%s: %w", collection, id, err)
		}
	} else {
		defaults, _, err := normalizeData(o.defaults)
		if err != nil {
			return false, err
		}
		current = defaults
	}

	next, err := applyDeltas(current, deltas)
	if err != nil {
		return false, fmt.Errorf("increment %s/%s: %w", collection, id, err)
	}
	_, body, err := normalizeData(next)
	if err != nil {
		return false, err
	}

	if exists {
		rec.body = body
		rec.version++
		rec.updatedAt = now
	} else {
		coll[id] = &memoryRecord{version: 1, body: body, createdAt: now, updatedAt: now}
	}
	if appliedKey != "" {
		m.applied[appliedKey] = struct{}{}
	}
	return true, nil
}

func (m *Memory) Close() error {
	return nil
}

// collection returns the record map for name; callers hold the write lock.
func (m *Memory) collection(name string) map[string]*memoryRecord {
	coll, ok := m.records[name]
	if !ok {
		coll = make(map[string]*memoryRecord)
		m.records[name] = coll
	}
	return coll
}

func (r *memoryRecord) document(collection, id string) (*Document, error) {
	var data map[string]any
	if err := json.Unmarshal(r.body, &data); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return &Document{
		Collection: collection,
		ID:         id,
		Version:    r.version,
		Data:       data,
		CreatedAt:  r.createdAt,
		UpdatedAt:  r.updatedAt,
	}, nil
}
