// Package models holds the entities, request/response payloads and sentinel
// errors shared by the storage, service and router layers.
package models

import "errors"

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// Note is a text record owned by exactly one user.
type Note struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	UserID  int64  `json:"-"`
}

type Notes []Note

type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// NoteRequest is the body of note creation and update. Content is a pointer so
// that an empty string is accepted while an absent field is rejected.
type NoteRequest struct {
	Title   string  `json:"title" validate:"required"`
	Content *string `json:"content" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeSQLite
	StorageTypeMemory
)

var (
	// ErrConflict is returned when a username or email is already registered.
	ErrConflict = errors.New("user already exists")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotFound is returned when a note does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
)
