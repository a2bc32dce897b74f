package docstore

import (
	"context"
	"log"
	"sync"
	"time"
)

// Bus wraps a Backend with in-process change fan-out. Every successful
// write wakes the subscriptions on the written collection, which re-run
// their query and deliver a fresh snapshot.
type Bus struct {
	Backend
	mu   sync.RWMutex
	subs map[*subscription]struct{}
}

type subscription struct {
	collection string
	wake       chan struct{}
}

// NewBus creates a Bus wrapping the given backend.
func NewBus(backend Backend) *Bus {
	return &Bus{
		Backend: backend,
		subs:    make(map[*subscription]struct{}),
	}
}

func (b *Bus) Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	doc, err := b.Backend.Create(ctx, collection, id, data)
	if err != nil {
		return nil, err
	}
	b.publish(collection)
	return doc, nil
}

func (b *Bus) Update(ctx context.Context, collection, id string, patch map[string]any, opts ...UpdateOption) (*Document, error) {
	doc, err := b.Backend.Update(ctx, collection, id, patch, opts...)
	if err != nil {
		return nil, err
	}
	b.publish(collection)
	return doc, nil
}

func (b *Bus) Delete(ctx context.Context, collection, id string) error {
	if err := b.Backend.Delete(ctx, collection, id); err != nil {
		return err
	}
	b.publish(collection)
	return nil
}

func (b *Bus) Increment(ctx context.Context, collection, id string, deltas map[string]float64, opts ...IncrementOption) (bool, error) {
	applied, err := b.Backend.Increment(ctx, collection, id, deltas, opts...)
	if err != nil {
		return false, err
	}
	if applied {
		b.publish(collection)
	}
	return applied, nil
}

// Subscribe implements Store.
func (b *Bus) Subscribe(ctx context.Context, q Query) (<-chan Snapshot, error) {
	if _, err := q.Validate(); err != nil {
		return nil, err
	}

	sub := &subscription{
		collection: q.Collection,
		wake:       make(chan struct{}, 1),
	}
	// Deliver the initial snapshot.
	sub.wake <- struct{}{}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	out := make(chan Snapshot, 1)
	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.subs, sub)
			b.mu.Unlock()
			close(out)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.wake:
			}

			docs, err := b.Backend.Query(ctx, q)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[ERROR] subscription query on %s failed: %v", q.Collection, err)
				continue
			}

			select {
			case out <- Snapshot{Documents: docs, ReadAt: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (b *Bus) publish(collection string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if sub.collection != collection {
			continue
		}
		select {
		case sub.wake <- struct{}{}:
		default:
			// a wake-up is already pending; the next query sees this write too
		}
	}
}
