// Package model defines domain entities for the application.
package model

import "time"

// User is an account holder. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the authenticated view of a user attached to a request.
// It carries the ids of owned transactions but never the password hash.
type Identity struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Incomes  []string `json:"incomes"`
	Expenses []string `json:"expenses"`
}

// Identity returns the user's identity without transaction references.
func (u *User) Identity() *Identity {
	return &Identity{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Incomes:  []string{},
		Expenses: []string{},
	}
}
