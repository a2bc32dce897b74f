// internal/repository/task_repository.go
package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/teamportal/internal/docstore"
	"github.com/gurkanbulca/teamportal/internal/models"
)

// Optional task fields. A task write sends nil for the ones that are unset
// so that a cleared value is removed from the stored document.
var taskOptionalFields = []string{
	"assigneeName", "creatorName", "clientId",
	"completedAt", "completionHours", "points", "isEarly",
	"cadence", "recurringEndDate", "lastCompletedAt",
	"seriesId", "seriesIndex",
}

type TaskRepository struct {
	store docstore.Store
	now   func() time.Time
}

func NewTaskRepository(store docstore.Store) *TaskRepository {
	return &TaskRepository{
		store: store,
		now:   time.Now,
	}
}

// Create stores a new task. An empty id is generated.
func (r *TaskRepository) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	t = t.Clone()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := r.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	t.Normalize()

	data, err := docstore.Encode(t)
	if err != nil {
		return nil, err
	}
	doc, err := r.store.Create(ctx, models.CollectionTasks, t.ID, data)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	t.Version = doc.Version
	return t, nil
}

// CreateBatch stores several tasks, stopping at the first failure.
func (r *TaskRepository) CreateBatch(ctx context.Context, tasks []*models.Task) ([]*models.Task, error) {
	created := make([]*models.Task, 0, len(tasks))
	for i, t := range tasks {
		c, err := r.Create(ctx, t)
		if err != nil {
			return created, fmt.Errorf("create task %d of %d: %w", i+1, len(tasks), err)
		}
		created = append(created, c)
	}
	return created, nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	doc, err := r.store.Get(ctx, models.CollectionTasks, id)
	if err != nil {
		return nil, err
	}
	return decodeTask(doc)
}

// Save writes the whole task if the stored version still equals t.Version.
// A lost race returns docstore.ErrVersionConflict.
func (r *TaskRepository) Save(ctx context.Context, t *models.Task) (*models.Task, error) {
	t = t.Clone()
	t.UpdatedAt = r.now()
	t.Normalize()

	data, err := docstore.Encode(t)
	if err != nil {
		return nil, err
	}
	for _, field := range taskOptionalFields {
		if _, ok := data[field]; !ok {
			data[field] = nil
		}
	}

	doc, err := r.store.Update(ctx, models.CollectionTasks, t.ID, data, docstore.IfVersion(t.Version))
	if err != nil {
		return nil, fmt.Errorf("save task %s: %w", t.ID, err)
	}
	t.Version = doc.Version
	return t, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, models.CollectionTasks, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

func (r *TaskRepository) List(ctx context.Context, filter ListFilter) ([]*models.Task, error) {
	docs, err := r.store.Query(ctx, filter.query())
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	return decodeTasks(docs)
}

// Watch streams the tasks matching filter, once immediately and again after
// every change to the task collection.
func (r *TaskRepository) Watch(ctx context.Context, filter ListFilter) (<-chan []*models.Task, error) {
	snapshots, err := r.store.Subscribe(ctx, filter.query())
	if err != nil {
		return nil, fmt.Errorf("watch tasks: %w", err)
	}

	out := make(chan []*models.Task)
	go func() {
		defer close(out)
		for snap := range snapshots {
			tasks, err := decodeTasks(snap.Documents)
			if err != nil {
				log.Printf("[ERROR] decode watched tasks: %v", err)
				continue
			}
			select {
			case out <- tasks:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func decodeTask(doc *docstore.Document) (*models.Task, error) {
	var t models.Task
	if err := doc.Decode(&t); err != nil {
		return nil, err
	}
	t.ID = doc.ID
	t.Version = doc.Version
	return &t, nil
}

func decodeTasks(docs []docstore.Document) ([]*models.Task, error) {
	tasks := make([]*models.Task, 0, len(docs))
	for i := range docs {
		t, err := decodeTask(&docs[i])
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

type ListFilter struct {
	AssigneeID *string
	CreatorID  *string
	ClientID   *string
	Status     *string
	Priority   *string
	Recurring  *bool
	SeriesID   *string
	DueAfter   *time.Time
	DueBefore  *time.Time
	Limit      int
}

func (f ListFilter) query() docstore.Query {
	q := docstore.Query{
		Collection: models.CollectionTasks,
		OrderBy:    []docstore.Order{{Field: "dueDate"}},
		Limit:      f.Limit,
	}

	if f.AssigneeID != nil {
		q.Where = append(q.Where, docstore.Where("assigneeId", docstore.OpEQ, *f.AssigneeID))
	}
	if f.CreatorID != nil {
		q.Where = append(q.Where, docstore.Where("creatorId", docstore.OpEQ, *f.CreatorID))
	}
	if f.ClientID != nil {
		q.Where = append(q.Where, docstore.Where("clientId", docstore.OpEQ, *f.ClientID))
	}
	if f.Status != nil {
		q.Where = append(q.Where, docstore.Where("status", docstore.OpEQ, *f.Status))
	}
	if f.Priority != nil {
		q.Where = append(q.Where, docstore.Where("priority", docstore.OpEQ, *f.Priority))
	}
	if f.Recurring != nil {
		q.Where = append(q.Where, docstore.Where("isRecurring", docstore.OpEQ, *f.Recurring))
	}
	if f.SeriesID != nil {
		q.Where = append(q.Where, docstore.Where("seriesId", docstore.OpEQ, *f.SeriesID))
	}
	if f.DueAfter != nil {
		q.Where = append(q.Where, docstore.Where("dueDate", docstore.OpGTE, models.NormalizeTime(*f.DueAfter)))
	}
	if f.DueBefore != nil {
		q.Where = append(q.Where, docstore.Where("dueDate", docstore.OpLT, models.NormalizeTime(*f.DueBefore)))
	}
	return q
}
