// Package mockstorage provides a testify-based mock implementation
// of the storage interfaces used by the service package.
// It is used for unit testing the service and the HTTP handlers by
// simulating storage behavior, including failures.
package mockstorage

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/notekeeper/internal/models"
)

// StorageMock is a testify mock that implements all interfaces
// used by the service for storage operations.
type StorageMock struct {
	mock.Mock
}

// Ping mocks the pinger interface to simulate a health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// BeginTransaction mocks the beginning of a transaction.
func (m *StorageMock) BeginTransaction(ctx context.Context) (*sql.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(*sql.Tx)
	return tx, args.Error(1)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// RollbackTransaction mocks rolling back a transaction.
func (m *StorageMock) RollbackTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// UserExists mocks the username/email uniqueness lookup.
func (m *StorageMock) UserExists(
	ctx context.Context,
	username,
	email string,
	tx *sql.Tx,
) (bool, error) {
	args := m.Called(ctx, username, email, tx)
	return args.Bool(0), args.Error(1)
}

// CreateUser mocks inserting a user.
func (m *StorageMock) CreateUser(
	ctx context.Context,
	usr *models.User,
	tx *sql.Tx,
) (int64, error) {
	args := m.Called(ctx, usr, tx)
	return args.Get(0).(int64), args.Error(1)
}

// GetUserByEmail mocks fetching a user for login.
func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Error(1)
}

// CreateNote mocks inserting a note.
func (m *StorageMock) CreateNote(ctx context.Context, note *models.Note) (int64, error) {
	args := m.Called(ctx, note)
	return args.Get(0).(int64), args.Error(1)
}

// GetUserNotes mocks listing a user's notes.
func (m *StorageMock) GetUserNotes(ctx context.Context, userID int64) (models.Notes, error) {
	args := m.Called(ctx, userID)
	notes, _ := args.Get(0).(models.Notes)
	return notes, args.Error(1)
}

// GetNote mocks an owner-scoped note lookup.
func (m *StorageMock) GetNote(ctx context.Context, userID, noteID int64) (*models.Note, error) {
	args := m.Called(ctx, userID, noteID)
	note, _ := args.Get(0).(*models.Note)
	return note, args.Error(1)
}

// UpdateNote mocks an owner-scoped note update.
func (m *StorageMock) UpdateNote(ctx context.Context, note *models.Note) (*models.Note, error) {
	args := m.Called(ctx, note)
	updated, _ := args.Get(0).(*models.Note)
	return updated, args.Error(1)
}

// DeleteNote mocks an owner-scoped note deletion.
func (m *StorageMock) DeleteNote(ctx context.Context, userID, noteID int64) error {
	args := m.Called(ctx, userID, noteID)
	return args.Error(0)
}
