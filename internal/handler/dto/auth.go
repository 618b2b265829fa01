// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import "github.com/moneytrail/moneytrail/internal/model"

// MessageResponse is the body of simple success and failure replies.
type MessageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// ErrorResponse represents an error reply. Error carries the violated rule for 400s.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

// UserResponse is the authenticated user. It never carries the password hash.
type UserResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Incomes  []string `json:"incomes"`
	Expenses []string `json:"expenses"`
}

// VerifyResponse is the body of GET /api/auth/verify.
type VerifyResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	User    *UserResponse `json:"user"`
}

// ToUserResponse converts an Identity to UserResponse.
func ToUserResponse(identity *model.Identity) *UserResponse {
	resp := &UserResponse{
		ID:       identity.ID,
		Name:     identity.Name,
		Email:    identity.Email,
		Incomes:  identity.Incomes,
		Expenses: identity.Expenses,
	}
	if resp.Incomes == nil {
		resp.Incomes = []string{}
	}
	if resp.Expenses == nil {
		resp.Expenses = []string{}
	}
	return resp
}
