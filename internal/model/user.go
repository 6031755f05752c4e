// Package model defines domain entities for the application.
package model

import "time"

// User mirrors an identity-provider account in the local store.
// ID is the provider's user id, never generated locally.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identity is the subset of a provider account that User Sync persists.
type Identity struct {
	ID    string
	Email string
}

// Valid reports whether the identity carries enough data to be synced.
func (i Identity) Valid() bool {
	return i.ID != "" && i.Email != ""
}
