package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gurkanbulca/teamportal/internal/docstore"
	"github.com/gurkanbulca/teamportal/internal/models"
)

type UserRepository struct {
	store docstore.Backend
	now   func() time.Time
}

func NewUserRepository(store docstore.Backend) *UserRepository {
	return &UserRepository{store: store, now: time.Now}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	doc, err := r.store.Get(ctx, models.CollectionUsers, id)
	if err != nil {
		return nil, err
	}
	var p models.UserProfile
	if err := doc.Decode(&p); err != nil {
		return nil, err
	}
	p.ID = doc.ID
	return &p, nil
}

// Upsert creates or refreshes a profile. Empty fields of p keep the stored
// values.
func (r *UserRepository) Upsert(ctx context.Context, p *models.UserProfile) error {
	patch := map[string]any{
		"id":        p.ID,
		"updatedAt": models.NormalizeTime(r.now()),
	}
	if p.Name != "" {
		patch["name"] = p.Name
	}
	if p.Email != "" {
		patch["email"] = p.Email
	}
	if p.Role != "" {
		patch["role"] = p.Role
	}

	_, err := r.store.Update(ctx, models.CollectionUsers, p.ID, patch)
	if errors.Is(err, docstore.ErrNotFound) {
		_, err = r.store.Create(ctx, models.CollectionUsers, p.ID, patch)
		if errors.Is(err, docstore.ErrAlreadyExists) {
			_, err = r.store.Update(ctx, models.CollectionUsers, p.ID, patch)
		}
	}
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", p.ID, err)
	}
	return nil
}
