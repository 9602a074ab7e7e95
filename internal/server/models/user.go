package models

import "time"

// User is the identity record read by the authentication service.
// PasswordHash never leaves the server.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}
