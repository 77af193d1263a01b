// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a player account. PasswordHash is opaque to the storage layer:
// hashing and verification happen in the HTTP layer.
type User struct {
	ID             int64
	Username       string
	PasswordHash   string
	IsSubscription bool
	Crystal        int64
	CreatedAt      time.Time
}
