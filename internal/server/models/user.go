// Package models defines server-side records persisted in PostgreSQL.
package models

import "time"

// User is an account. PasswordHash is a bcrypt hash and never leaves the server.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
