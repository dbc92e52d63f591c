package models

import "time"

// User is the signed-in console operator.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session pairs a user with the bearer token issued at login. Both are
// stored and cleared together.
type Session struct {
	User     User      `json:"user"`
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issuedAt"`
}
