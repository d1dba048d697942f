package remote

import "github.com/theirongolddev/smartpay/internal/model"

// Result is the outcome of one remote call. It never carries a Go error: failures are
// reported through Success and Error only.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failed builds an unsuccessful result.
func Failed[T any](msg string) Result[T] {
	return Result[T]{Error: msg}
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"fullName" validate:"required,notblank"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AnalysisRequest is the body of POST /analysis.
type AnalysisRequest struct {
	FullName string `json:"fullName" validate:"required,notblank"`
}

// Account is the account record returned by the auth endpoints.
type Account struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Token    string `json:"token,omitempty"`
}

// Card is a card as the remote service stores it.
type Card struct {
	ID string `json:"id"`
	model.CardFields
}

// Ack is the generic acknowledgement body.
type Ack struct {
	Message string `json:"message,omitempty"`
}
