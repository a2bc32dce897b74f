// internal/service/test_helpers_test.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gurkanbulca/teamportal/internal/docstore"
	"github.com/gurkanbulca/teamportal/internal/models"
	"github.com/gurkanbulca/teamportal/pkg/recurrence"
)

var (
	testAdmin    = models.Actor{ID: "admin-1", Name: "Grace", Role: "admin"}
	testAssignee = models.Actor{ID: "user-1", Name: "Ada", Role: "member"}
	testOther    = models.Actor{ID: "user-2", Name: "Linus", Role: "member"}
)

// TestHelpers provides common test utilities
type TestHelpers struct {
	t        *testing.T
	Store    docstore.Store
	Services *Services
	Clock    *testClock
	Sink     *recordingNotifier
}

// NewTestHelpers creates services over an in-memory store
func NewTestHelpers(t *testing.T) *TestHelpers {
	return NewTestHelpersWithStore(t, docstore.NewMemoryStore())
}

// NewTestHelpersWithStore creates services over the given store
func NewTestHelpersWithStore(t *testing.T, store docstore.Store) *TestHelpers {
	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	sink := &recordingNotifier{}
	return &TestHelpers{
		t:     t,
		Store: store,
		Services: New(store, Options{
			Calendar:      recurrence.Calendar{Boundary: recurrence.Exclusive},
			NotifyTimeout: time.Second,
			Notifier:      sink,
			Now:           clock.Now,
		}),
		Clock: clock,
		Sink:  sink,
	}
}

// setupTestDB opens a private in-memory SQLite document store
func setupTestDB(t *testing.T) docstore.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:service-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sqlx.Open("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	backend, err := docstore.NewSQLStore(db, dialect.SQLite)
	require.NoError(t, err)
	require.NoError(t, backend.EnsureSchema(context.Background()))

	t.Cleanup(func() { _ = backend.Close() })
	return docstore.NewBus(backend)
}

// CreateTask creates a task through the task manager
func (h *TestHelpers) CreateTask(in CreateTaskInput) *models.Task {
	h.t.Helper()
	if in.AssigneeID == "" {
		in.AssigneeID = testAssignee.ID
	}
	tasks, err := h.Services.Tasks.Create(context.Background(), in, testAdmin)
	require.NoError(h.t, err)
	require.Len(h.t, tasks, 1)
	return tasks[0]
}

// Complete completes a task as actor at the given instant
func (h *TestHelpers) Complete(taskID string, actor models.Actor, at time.Time) *TransitionResult {
	h.t.Helper()
	h.Clock.Set(at)
	res, err := h.Services.Engine.Transition(context.Background(), TransitionRequest{
		TaskID: taskID,
		Status: models.TaskStatusCompleted,
		Actor:  actor,
	})
	require.NoError(h.t, err)
	return res
}

// Stats returns a user's statistics
func (h *TestHelpers) Stats(userID string) *models.UserStatistics {
	h.t.Helper()
	stats, err := h.Services.Statistics.Get(context.Background(), userID)
	require.NoError(h.t, err)
	return stats
}

// History returns the completion records of a task
func (h *TestHelpers) History(taskID string) []*models.TaskCompletion {
	h.t.Helper()
	recs, err := h.Services.Completions.History(context.Background(), taskID, 0)
	require.NoError(h.t, err)
	return recs
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type sentNotification struct {
	UserID, Title, Body, Category string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	fail bool
}

func (n *recordingNotifier) Notify(ctx context.Context, userID, title, body, category string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("notification sink unavailable")
	}
	n.sent = append(n.sent, sentNotification{UserID: userID, Title: title, Body: body, Category: category})
	return nil
}

func (n *recordingNotifier) For(userID string) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

func (n *recordingNotifier) SetFail(fail bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fail = fail
}
