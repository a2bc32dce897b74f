package service

import (
	"fmt"
	"time"

	"github.com/gurkanbulca/teamportal/internal/docstore"
	"github.com/gurkanbulca/teamportal/internal/lifecycle"
	"github.com/gurkanbulca/teamportal/internal/repository"
	"github.com/gurkanbulca/teamportal/pkg/email"
	"github.com/gurkanbulca/teamportal/pkg/recurrence"
	"github.com/gurkanbulca/teamportal/pkg/scoring"
)

var errNotOwned = fmt.Errorf("owned by another user: %w", docstore.ErrNotFound)

// Options tunes the services.
type Options struct {
	GraceWindow    time.Duration
	Calendar       recurrence.Calendar
	MaxOccurrences int
	NotifyTimeout  time.Duration
	// Mailer, when set, e-mails notifications to users with a known address.
	Mailer email.Sender
	// Notifier replaces the store backed notification sink.
	Notifier Notifier
	Now      func() time.Time
}

// Services is the set of domain services sharing one document store.
type Services struct {
	Engine        *TaskEngine
	Tasks         *TaskManager
	Statistics    *StatisticsService
	Completions   *CompletionRecorder
	Notifications *NotificationService
}

// New wires the services over store.
func New(store docstore.Store, opts Options) *Services {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = 52
	}

	tasks := repository.NewTaskRepository(store)
	completions := repository.NewCompletionRepository(store)
	statistics := repository.NewStatisticsRepository(store)
	notifications := repository.NewNotificationRepository(store)
	users := repository.NewUserRepository(store)

	sink := opts.Notifier
	if sink == nil {
		sink = NewStoreNotifier(notifications, users, opts.Mailer)
	}
	notify := notifier{sink: sink, timeout: opts.NotifyTimeout}
	dir := directory{users: users}

	machine := lifecycle.NewMachine(scoring.NewScorer(opts.GraceWindow), opts.Calendar)
	recorder := NewCompletionRecorder(completions)
	stats := NewStatisticsService(statistics)
	locks := newKeyedMutex()

	return &Services{
		Engine: &TaskEngine{
			tasks:    tasks,
			recorder: recorder,
			stats:    stats,
			machine:  machine,
			notify:   notify,
			dir:      dir,
			locks:    locks,
			now:      opts.Now,
		},
		Tasks: &TaskManager{
			tasks:          tasks,
			recorder:       recorder,
			stats:          stats,
			machine:        machine,
			notify:         notify,
			dir:            dir,
			locks:          locks,
			maxOccurrences: opts.MaxOccurrences,
			now:            opts.Now,
		},
		Statistics:    stats,
		Completions:   recorder,
		Notifications: NewNotificationService(notifications),
	}
}
