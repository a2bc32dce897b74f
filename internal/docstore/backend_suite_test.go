package docstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runBackendSuite exercises the behavior every Backend must share.
func runBackendSuite(t *testing.T, newBackend func(t *testing.T) Backend) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		b := newBackend(t)
		doc, err := b.Create(ctx, "tasks", "t1", map[string]any{"title": "Write report", "points": 5})
		require.NoError(t, err)
		assert.Equal(t, int64(1), doc.Version)
		assert.Equal(t, "t1", doc.ID)

		got, err := b.Get(ctx, "tasks", "t1")
		require.NoError(t, err)
		assert.Equal(t, "Write report", got.Data["title"])
		assert.Equal(t, float64(5), got.Data["points"])
	})

	t.Run("create generates id", func(t *testing.T) {
		b := newBackend(t)
		doc, err := b.Create(ctx, "tasks", "", map[string]any{"title": "x"})
		require.NoError(t, err)
		assert.NotEmpty(t, doc.ID)
	})

	t.Run("create duplicate", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Create(ctx, "tasks", "t1", map[string]any{"title": "a"})
		require.NoError(t, err)
		_, err = b.Create(ctx, "tasks", "t1", map[string]any{"title": "b"})
		assert.ErrorIs(t, err, ErrAlreadyExists)

		// same id in another collection is a different document
		_, err = b.Create(ctx, "notifications", "t1", map[string]any{"title": "c"})
		assert.NoError(t, err)
	})

	t.Run("get missing", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Get(ctx, "tasks", "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update merges and removes nil fields", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Create(ctx, "tasks", "t1", map[string]any{"title": "a", "points": 10, "status": "pending"})
		require.NoError(t, err)

		doc, err := b.Update(ctx, "tasks", "t1", map[string]any{"status": "completed", "points": nil})
		require.NoError(t, err)
		assert.Equal(t, int64(2), doc.Version)

		got, err := b.Get(ctx, "tasks", "t1")
		require.NoError(t, err)
		assert.Equal(t, "completed", got.Data["status"])
		assert.Equal(t, "a", got.Data["title"])
		_, hasPoints := got.Data["points"]
		assert.False(t, hasPoints)
	})

	t.Run("update with version check", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Create(ctx, "tasks", "t1", map[string]any{"status": "pending"})
		require.NoError(t, err)

		_, err = b.Update(ctx, "tasks", "t1", map[string]any{"status": "in_progress"}, IfVersion(1))
		require.NoError(t, err)

		_, err = b.Update(ctx, "tasks", "t1", map[string]any{"status": "completed"}, IfVersion(1))
		assert.ErrorIs(t, err, ErrVersionConflict)

		got, err := b.Get(ctx, "tasks", "t1")
		require.NoError(t, err)
		assert.Equal(t, "in_progress", got.Data["status"])
	})

	t.Run("update missing", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Update(ctx, "tasks", "nope", map[string]any{"a": 1})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Create(ctx, "tasks", "t1", map[string]any{"a": 1})
		require.NoError(t, err)
		require.NoError(t, b.Delete(ctx, "tasks", "t1"))
		_, err = b.Get(ctx, "tasks", "t1")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, b.Delete(ctx, "tasks", "t1"), ErrNotFound)
	})

	t.Run("query filters orders and limits", func(t *testing.T) {
		b := newBackend(t)
		seed := []struct {
			id   string
			data map[string]any
		}{
			{"a", map[string]any{"assigneeId": "u1", "status": "pending", "occurrence": 10, "dueDate": "2024-03-12T00:00:00Z"}},
			{"b", map[string]any{"assigneeId": "u1", "status": "completed", "occurrence": 2, "dueDate": "2024-03-10T00:00:00Z"}},
			{"c", map[string]any{"assigneeId": "u2", "status": "pending", "occurrence": 9, "dueDate": "2024-03-11T00:00:00Z"}},
			{"d", map[string]any{"assigneeId": "u1", "status": "pending", "occurrence": 1, "dueDate": "2024-03-09T00:00:00Z"}},
		}
		for _, s := range seed {
			_, err := b.Create(ctx, "tasks", s.id, s.data)
			require.NoError(t, err)
		}

		docs, err := b.Query(ctx, Query{
			Collection: "tasks",
			Where:      []Predicate{Where("assigneeId", OpEQ, "u1")},
			OrderBy:    []Order{{Field: "occurrence"}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"d", "b", "a"}, ids(docs))

		docs, err = b.Query(ctx, Query{
			Collection: "tasks",
			Where: []Predicate{
				Where("status", OpEQ, "pending"),
				Where("dueDate", OpGTE, "2024-03-10T00:00:00Z"),
			},
			OrderBy: []Order{{Field: "dueDate", Desc: true}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, ids(docs))

		docs, err = b.Query(ctx, Query{
			Collection: "tasks",
			Where:      []Predicate{Where("status", OpIn, []string{"completed", "in_progress"})},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, ids(docs))

		docs, err = b.Query(ctx, Query{
			Collection: "tasks",
			Where:      []Predicate{Where("assigneeId", OpNEQ, "u1")},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, ids(docs))

		docs, err = b.Query(ctx, Query{
			Collection: "tasks",
			OrderBy:    []Order{{Field: "occurrence", Desc: true}},
			Limit:      2,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, ids(docs))
	})

	t.Run("query rejects bad input", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Query(ctx, Query{})
		assert.ErrorIs(t, err, ErrInvalidQuery)
		_, err = b.Query(ctx, Query{Collection: "tasks", Where: []Predicate{Where("x'; drop", OpEQ, 1)}})
		assert.ErrorIs(t, err, ErrInvalidQuery)
		_, err = b.Query(ctx, Query{Collection: "tasks", Where: []Predicate{Where("x", OpIn, "not-a-list")}})
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})

	t.Run("increment creates and accumulates", func(t *testing.T) {
		b := newBackend(t)
		applied, err := b.Increment(ctx, "user_statistics", "u1",
			map[string]float64{"totalPoints": 150, "tasksCompleted": 1},
			WithDefaults(map[string]any{"userId": "u1"}))
		require.NoError(t, err)
		assert.True(t, applied)

		applied, err = b.Increment(ctx, "user_statistics", "u1", map[string]float64{"totalPoints": 75, "tasksCompleted": 1})
		require.NoError(t, err)
		assert.True(t, applied)

		got, err := b.Get(ctx, "user_statistics", "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.Data["userId"])
		assert.Equal(t, float64(225), got.Data["totalPoints"])
		assert.Equal(t, float64(2), got.Data["tasksCompleted"])
	})

	t.Run("increment idempotency key", func(t *testing.T) {
		b := newBackend(t)
		for i := 0; i < 3; i++ {
			applied, err := b.Increment(ctx, "user_statistics", "u1",
				map[string]float64{"totalPoints": 50}, WithIdempotencyKey("task-1-1"))
			require.NoError(t, err)
			assert.Equal(t, i == 0, applied)
		}

		got, err := b.Get(ctx, "user_statistics", "u1")
		require.NoError(t, err)
		assert.Equal(t, float64(50), got.Data["totalPoints"])
	})

	t.Run("increment rejects non numeric field", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Create(ctx, "user_statistics", "u1", map[string]any{"totalPoints": "lots"})
		require.NoError(t, err)
		_, err = b.Increment(ctx, "user_statistics", "u1", map[string]float64{"totalPoints": 1})
		assert.Error(t, err)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		b := newBackend(t)
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := b.Increment(ctx, "user_statistics", "u1", map[string]float64{"tasksCompleted": 1})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := b.Get(ctx, "user_statistics", "u1")
		require.NoError(t, err)
		assert.Equal(t, float64(20), got.Data["tasksCompleted"])
	})
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
