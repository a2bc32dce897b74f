package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqljson"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	tableDocuments       = "documents"
	tableIdempotencyKeys = "idempotency_keys"
	columnData           = "data"

	// Optimistic writes that keep losing the version race give up after this.
	maxWriteAttempts = 5
)

var documentColumns = []string{"collection", "id", "version", "data", "created_at", "updated_at"}

type documentRow struct {
	Collection string `db:"collection"`
	ID         string `db:"id"`
	Version    int64  `db:"version"`
	Data       []byte `db:"data"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`
}

func (r documentRow) document() (*Document, error) {
	doc := &Document{
		Collection: r.Collection,
		ID:         r.ID,
		Version:    r.Version,
		CreatedAt:  time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt:  time.UnixMilli(r.UpdatedAt).UTC(),
	}
	if err := json.Unmarshal(r.Data, &doc.Data); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", r.Collection, r.ID, err)
	}
	return doc, nil
}

// SQLStore is a Backend keeping every collection in one JSON column table.
// PostgreSQL stores bodies as JSONB, SQLite as JSON text.
type SQLStore struct {
	db      *sqlx.DB
	dialect string
	now     func() time.Time
}

// NewSQLStore creates a SQL backend for a Postgres or SQLite database.
func NewSQLStore(db *sqlx.DB, dialectName string) (*SQLStore, error) {
	switch dialectName {
	case dialect.Postgres, dialect.SQLite:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialectName)
	}
	return &SQLStore{db: db, dialect: dialectName, now: time.Now}, nil
}

// EnsureSchema creates the storage tables if they don't exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	dataType := "TEXT"
	if s.dialect == dialect.Postgres {
		dataType = "JSONB"
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			collection  TEXT NOT NULL,
			id          TEXT NOT NULL,
			version     BIGINT NOT NULL,
			data        %s NOT NULL,
			created_at  BIGINT NOT NULL,
			updated_at  BIGINT NOT NULL,
			PRIMARY KEY (collection, id)
		)`, tableDocuments, dataType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			scope       TEXT NOT NULL,
			idem_key    TEXT NOT NULL,
			created_at  BIGINT NOT NULL,
			PRIMARY KEY (scope, idem_key)
		)`, tableIdempotencyKeys),
	}
	if s.dialect == dialect.Postgres {
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_documents_data ON %s USING GIN (data)`, tableDocuments))
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	return s.get(ctx, s.db, collection, id)
}

func (s *SQLStore) Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	if id == "" {
		id = uuid.NewString()
	}
	normalized, body, err := normalizeData(data)
	if err != nil {
		return nil, err
	}

	now := s.now()
	inserted, err := s.insert(ctx, s.db, collection, id, body, now)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, fmt.Errorf("create %s/%s: %w", collection, id, ErrAlreadyExists)
	}

	return &Document{
		Collection: collection,
		ID:         id,
		Version:    1,
		Data:       normalized,
		CreatedAt:  time.UnixMilli(now.UnixMilli()).UTC(),
		UpdatedAt:  time.UnixMilli(now.UnixMilli()).UTC(),
	}, nil
}

func (s *SQLStore) Update(ctx context.Context, collection, id string, patch map[string]any, opts ...UpdateOption) (*Document, error) {
	o := buildUpdateOptions(opts)

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		current, err := s.get(ctx, s.db, collection, id)
		if err != nil {
			return nil, err
		}
		if o.expectedVersion != nil && *o.expectedVersion != current.Version {
			return nil, fmt.Errorf("update %s/%s: expected version %d, stored %d: %w",
				collection, id, *o.expectedVersion, current.Version, ErrVersionConflict)
		}

		normalized, body, err := normalizeData(applyPatch(current.Data, patch))
		if err != nil {
			return nil, err
		}

		now := s.now()
		ok, err := s.update(ctx, s.db, collection, id, current.Version, body, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			if o.expectedVersion != nil {
				return nil, fmt.Errorf("update %s/%s: %w", collection, id, ErrVersionConflict)
			}
			continue
		}

		current.Data = normalized
		current.Version++
		current.UpdatedAt = time.UnixMilli(now.UnixMilli()).UTC()
		return current, nil
	}
	return nil, fmt.Errorf("update %s/%s: %w", collection, id, ErrVersionConflict)
}

func (s *SQLStore) Delete(ctx context.Context, collection, id string) error {
	query, args := entsql.Dialect(s.dialect).
		Delete(tableDocuments).
		Where(entsql.And(
			entsql.EQ("collection", collection),
			entsql.EQ("id", id),
		)).
		Query()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) Query(ctx context.Context, q Query) ([]Document, error) {
	q, err := q.Validate()
	if err != nil {
		return nil, err
	}

	preds := []*entsql.Predicate{entsql.EQ("collection", q.Collection)}
	for _, p := range q.Where {
		preds = append(preds, jsonPredicate(p))
	}

	selector := entsql.Dialect(s.dialect).
		Select(documentColumns...).
		From(entsql.Table(tableDocuments)).
		Where(entsql.And(preds...))

	for _, o := range q.OrderBy {
		o := o
		selector.OrderExprFunc(func(b *entsql.Builder) {
			s.writeValuePath(b, o.Field)
			if o.Desc {
				b.WriteString(" DESC")
			}
		})
	}
	selector.OrderBy("id")

	if q.Limit > 0 {
		selector.Limit(q.Limit)
	}

	query, args := selector.Query()
	var rows []documentRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.document()
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (s *SQLStore) Increment(ctx context.Context, collection, id string, deltas map[string]float64, opts ...IncrementOption) (bool, error) {
	o := buildIncrementOptions(opts)

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		applied, retry, err := s.incrementOnce(ctx, collection, id, deltas, o)
		if err != nil {
			return false, fmt.Errorf("increment %s/%s: %w", collection, id, err)
		}
		if !retry {
			return applied, nil
		}
	}
	return false, fmt.Errorf("increment %s/%s: %w", collection, id, ErrVersionConflict)
}

// incrementOnce runs one transactional attempt. retry is set when another
// writer changed the document between read and write.
func (s *SQLStore) incrementOnce(ctx context.Context, collection, id string, deltas map[string]float64, o incrementOptions) (applied, retry bool, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, false, fmt.Errorf("begin transaction: %w", err)
	}

	now := s.now()
	if o.idempotencyKey != "" {
		fresh, err := s.claimKey(ctx, tx, collection, o.idempotencyKey, now)
		if err != nil {
			return false, false, rollback(tx, err)
		}
		if !fresh {
			return false, false, rollback(tx, nil)
		}
	}

	current, err := s.get(ctx, tx, collection, id)
	switch {
	case errors.Is(err, ErrNotFound):
		defaults, _, err := normalizeData(o.defaults)
		if err != nil {
			return false, false, rollback(tx, err)
		}
		next, err := applyDeltas(defaults, deltas)
		if err != nil {
			return false, false, rollback(tx, err)
		}
		_, body, err := normalizeData(next)
		if err != nil {
			return false, false, rollback(tx, err)
		}
		inserted, err := s.insert(ctx, tx, collection, id, body, now)
		if err != nil {
			return false, false, rollback(tx, err)
		}
		if !inserted {
			return false, true, rollback(tx, nil)
		}
	case err != nil:
		return false, false, rollback(tx, err)
	default:
		next, err := applyDeltas(current.Data, deltas)
		if err != nil {
			return false, false, rollback(tx, err)
		}
		_, body, err := normalizeData(next)
		if err != nil {
			return false, false, rollback(tx, err)
		}
		ok, err := s.update(ctx, tx, collection, id, current.Version, body, now)
		if err != nil {
			return false, false, rollback(tx, err)
		}
		if !ok {
			return false, true, rollback(tx, nil)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, false, fmt.Errorf("commit: %w", err)
	}
	return true, false, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) get(ctx context.Context, q sqlx.QueryerContext, collection, id string) (*Document, error) {
	query, args := entsql.Dialect(s.dialect).
		Select(documentColumns...).
		From(entsql.Table(tableDocuments)).
		Where(entsql.And(
			entsql.EQ("collection", collection),
			entsql.EQ("id", id),
		)).
		Query()

	var row documentRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return row.document()
}

func (s *SQLStore) insert(ctx context.Context, e sqlx.ExecerContext, collection, id string, body []byte, now time.Time) (bool, error) {
	query, args := entsql.Dialect(s.dialect).
		Insert(tableDocuments).
		Columns(documentColumns...).
		Values(collection, id, int64(1), string(body), now.UnixMilli(), now.UnixMilli()).
		OnConflict(
			entsql.ConflictColumns("collection", "id"),
			entsql.DoNothing(),
		).
		Query()

	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	return n == 1, nil
}

// update writes body only if the stored version still equals prev.
func (s *SQLStore) update(ctx context.Context, e sqlx.ExecerContext, collection, id string, prev int64, body []byte, now time.Time) (bool, error) {
	query, args := entsql.Dialect(s.dialect).
		Update(tableDocuments).
		Set("data", string(body)).
		Set("version", prev+1).
		Set("updated_at", now.UnixMilli()).
		Where(entsql.And(
			entsql.EQ("collection", collection),
			entsql.EQ("id", id),
			entsql.EQ("version", prev),
		)).
		Query()

	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return n == 1, nil
}

func (s *SQLStore) claimKey(ctx context.Context, e sqlx.ExecerContext, scope, key string, now time.Time) (bool, error) {
	query, args := entsql.Dialect(s.dialect).
		Insert(tableIdempotencyKeys).
		Columns("scope", "idem_key", "created_at").
		Values(scope, key, now.UnixMilli()).
		OnConflict(
			entsql.ConflictColumns("scope", "idem_key"),
			entsql.DoNothing(),
		).
		Query()

	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("claim idempotency key %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key %s: %w", key, err)
	}
	return n == 1, nil
}

// writeValuePath writes an expression yielding the JSON value at field that
// orders numbers numerically and strings lexically.
func (s *SQLStore) writeValuePath(b *entsql.Builder, field string) {
	parts := strings.Split(field, ".")
	if s.dialect == dialect.Postgres {
		b.Ident(columnData).WriteString(" #> '{" + strings.Join(parts, ",") + "}'")
		return
	}
	b.WriteString("json_extract(").Ident(columnData).WriteString(", '$." + strings.Join(parts, ".") + "')")
}

func jsonPredicate(p Predicate) *entsql.Predicate {
	path := sqljson.DotPath(p.Field)
	switch p.Op {
	case OpEQ:
		if p.Value == nil {
			return entsql.Or(
				entsql.Not(sqljson.HasKey(columnData, path)),
				sqljson.ValueIsNull(columnData, path),
			)
		}
		return sqljson.ValueEQ(columnData, p.Value, path)
	case OpNEQ:
		if p.Value == nil {
			return entsql.And(
				sqljson.HasKey(columnData, path),
				entsql.Not(sqljson.ValueIsNull(columnData, path)),
			)
		}
		return sqljson.ValueNEQ(columnData, p.Value, path)
	case OpLT:
		return sqljson.ValueLT(columnData, p.Value, path)
	case OpLTE:
		return sqljson.ValueLTE(columnData, p.Value, path)
	case OpGT:
		return sqljson.ValueGT(columnData, p.Value, path)
	case OpGTE:
		return sqljson.ValueGTE(columnData, p.Value, path)
	default:
		return sqljson.ValueIn(columnData, p.Value.([]any), path)
	}
}

// rollback aborts tx and returns err, extended with the rollback failure
// if there was one.
func rollback(tx *sqlx.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		if err == nil {
			return fmt.Errorf("rollback: %w", rerr)
		}
		err = fmt.Errorf("%w: %v", err, rerr)
	}
	return err
}
