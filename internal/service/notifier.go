package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gurkanbulca/teamportal/internal/docstore"
	"github.com/gurkanbulca/teamportal/internal/models"
	"github.com/gurkanbulca/teamportal/internal/repository"
	"github.com/gurkanbulca/teamportal/pkg/email"
)

const defaultNotifyTimeout = 5 * time.Second

// Notifier is the notification sink.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body, category string) error
}

// StoreNotifier writes notifications to the notifications collection and,
// when a mailer is configured, e-mails recipients with a known address.
type StoreNotifier struct {
	notifications *repository.NotificationRepository
	users         *repository.UserRepository
	mailer        email.Sender
}

func NewStoreNotifier(notifications *repository.NotificationRepository, users *repository.UserRepository, mailer email.Sender) *StoreNotifier {
	return &StoreNotifier{
		notifications: notifications,
		users:         users,
		mailer:        mailer,
	}
}

func (n *StoreNotifier) Notify(ctx context.Context, userID, title, body, category string) error {
	if _, err := models.ParseCategory(category); err != nil {
		return err
	}

	created, err := n.notifications.Create(ctx, &models.Notification{
		UserID:   userID,
		Title:    title,
		Body:     body,
		Category: category,
	})
	if err != nil {
		return err
	}

	if n.mailer == nil || n.users == nil {
		return nil
	}
	profile, err := n.users.GetByID(ctx, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}
	if profile.Email == "" {
		return nil
	}
	return n.mailer.SendNotification(ctx, email.Recipient{Name: profile.Name, Email: profile.Email}, created)
}

// notifier delivers notifications without ever failing the caller.
type notifier struct {
	sink    Notifier
	timeout time.Duration
}

func (n notifier) send(ctx context.Context, userID, title, body, category string) {
	if n.sink == nil || userID == "" {
		return
	}
	timeout := n.timeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := n.sink.Notify(ctx, userID, title, body, category); err != nil {
		log.Printf("[WARN] notify %s (%s) failed: %v", userID, category, err)
	}
}

// directory keeps user profiles fresh from the actors seen by the service.
type directory struct {
	users *repository.UserRepository
}

func (d directory) remember(ctx context.Context, actor models.Actor) {
	if d.users == nil || actor.ID == "" || (actor.Name == "" && actor.Email == "") {
		return
	}
	err := d.users.Upsert(ctx, &models.UserProfile{
		ID:    actor.ID,
		Name:  actor.Name,
		Email: actor.Email,
		Role:  actor.Role,
	})
	if err != nil {
		log.Printf("[WARN] remember user %s: %v", actor.ID, err)
	}
}
