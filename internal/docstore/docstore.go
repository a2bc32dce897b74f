// Package docstore is the document-oriented storage the portal runs on:
// collections of schemaless JSON records addressed by id, queryable by
// equality/range predicates and ordering, with change subscriptions.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrAlreadyExists   = errors.New("document already exists")
	ErrVersionConflict = errors.New("document version conflict")
	ErrInvalidQuery    = errors.New("invalid query")
)

// Document is one stored record.
type Document struct {
	Collection string
	ID         string
	Version    int64
	Data       map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Decode unmarshals the document body into v.
func (d *Document) Decode(v any) error {
	b, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("marshal document %s/%s: %w", d.Collection, d.ID, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode document %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

// Encode converts a value to a document body.
func Encode(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Backend is the request/response part of a document store.
type Backend interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Create stores a new document. An empty id is replaced by a generated one.
	Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error)
	// Update merges patch into the document; a nil value removes the field.
	Update(ctx context.Context, collection, id string, patch map[string]any, opts ...UpdateOption) (*Document, error)
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, q Query) ([]Document, error)
	// Increment adds deltas to numeric fields in one atomic step, creating the
	// document when it does not exist. It reports false when an idempotency
	// key was given and had already been applied.
	Increment(ctx context.Context, collection, id string, deltas map[string]float64, opts ...IncrementOption) (bool, error)
	Close() error
}

// Store is a Backend with realtime subscriptions.
type Store interface {
	Backend
	// Subscribe delivers a snapshot of q immediately and again after every
	// write to q's collection. The channel closes when ctx is done.
	Subscribe(ctx context.Context, q Query) (<-chan Snapshot, error)
}

// Snapshot is the result set of a subscribed query at one point in time.
type Snapshot struct {
	Documents []Document
	ReadAt    time.Time
}

type updateOptions struct {
	expectedVersion *int64
}

// UpdateOption configures Update.
type UpdateOption func(*updateOptions)

// IfVersion makes Update fail with ErrVersionConflict unless the stored
// version equals v.
func IfVersion(v int64) UpdateOption {
	return func(o *updateOptions) {
		o.expectedVersion = &v
	}
}

func buildUpdateOptions(opts []UpdateOption) updateOptions {
	var o updateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type incrementOptions struct {
	idempotencyKey string
	defaults       map[string]any
}

// IncrementOption configures Increment.
type IncrementOption func(*incrementOptions)

// WithIdempotencyKey applies the increment at most once per key and collection.
func WithIdempotencyKey(key string) IncrementOption {
	return func(o *incrementOptions) {
		o.idempotencyKey = key
	}
}

// WithDefaults sets the initial body used when Increment creates the document.
func WithDefaults(data map[string]any) IncrementOption {
	return func(o *incrementOptions) {
		o.defaults = data
	}
}

func buildIncrementOptions(opts []IncrementOption) incrementOptions {
	var o incrementOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// applyPatch returns a copy of data with patch merged in.
func applyPatch(data, patch map[string]any) map[string]any {
	out := make(map[string]any, len(data)+len(patch))
	for k, v := range data {
		out[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// applyDeltas returns a copy of data with deltas added to numeric fields.
func applyDeltas(data map[string]any, deltas map[string]float64) (map[string]any, error) {
	out := make(map[string]any, len(data)+len(deltas))
	for k, v := range data {
		out[k] = v
	}
	for field, delta := range deltas {
		current := 0.0
		if v, ok := out[field]; ok && v != nil {
			n, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("increment field %q: not a number", field)
			}
			current = n
		}
		out[field] = current + delta
	}
	return out, nil
}

// normalizeData round-trips data through JSON so stored bodies only contain
// JSON types (string, float64, bool, nil, []any, map[string]any).
func normalizeData(data map[string]any) (map[string]any, []byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return out, b, nil
}
