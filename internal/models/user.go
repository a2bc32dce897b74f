package models

import "time"

// CollectionUsers holds the profiles of users seen by the portal.
const CollectionUsers = "users"

// UserProfile is the contact card of a user. Identity itself lives with the
// external identity provider; profiles are refreshed from token claims.
type UserProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
