// Package memorystorage keeps users and notes in process memory. It is used
// when neither a database DSN nor a storage file is configured, and in tests.
package memorystorage

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/patric-chuzhbe/notekeeper/internal/models"
)

type MemoryStorage struct {
	mu sync.RWMutex

	users       map[int64]*models.User
	userByEmail map[string]int64
	userByName  map[string]int64
	notes       map[int64]*models.Note
	nextUserID  int64
	nextNoteID  int64
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		users:       map[int64]*models.User{},
		userByEmail: map[string]int64{},
		userByName:  map[string]int64{},
		notes:       map[int64]*models.Note{},
		nextUserID:  1,
		nextNoteID:  1,
	}, nil
}

// BeginTransaction returns a nil transaction: every method is atomic on its
// own and accepts a nil *sql.Tx.
func (theStorage *MemoryStorage) BeginTransaction(ctx context.Context) (*sql.Tx, error) {
	return nil, nil
}

func (theStorage *MemoryStorage) CommitTransaction(transaction *sql.Tx) error {
	return nil
}

func (theStorage *MemoryStorage) RollbackTransaction(transaction *sql.Tx) error {
	return nil
}

func (theStorage *MemoryStorage) UserExists(
	ctx context.Context,
	username,
	email string,
	transaction *sql.Tx,
) (bool, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	_, emailTaken := theStorage.userByEmail[email]
	_, nameTaken := theStorage.userByName[username]

	return emailTaken || nameTaken, nil
}

// CreateUser checks uniqueness and inserts under one lock, so concurrent
// registrations with the same email cannot both succeed.
func (theStorage *MemoryStorage) CreateUser(
	ctx context.Context,
	usr *models.User,
	transaction *sql.Tx,
) (int64, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	if _, ok := theStorage.userByEmail[usr.Email]; ok {
		return 0, models.ErrConflict
	}
	if _, ok := theStorage.userByName[usr.Username]; ok {
		return 0, models.ErrConflict
	}

	stored := *usr
	stored.ID = theStorage.nextUserID
	theStorage.nextUserID++

	theStorage.users[stored.ID] = &stored
	theStorage.userByEmail[stored.Email] = stored.ID
	theStorage.userByName[stored.Username] = stored.ID

	return stored.ID, nil
}

func (theStorage *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	userID, ok := theStorage.userByEmail[email]
	if !ok {
		return nil, models.ErrNotFound
	}

	usr := *theStorage.users[userID]

	return &usr, nil
}

func (theStorage *MemoryStorage) CreateNote(ctx context.Context, note *models.Note) (int64, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	stored := *note
	stored.ID = theStorage.nextNoteID
	theStorage.nextNoteID++

	theStorage.notes[stored.ID] = &stored

	return stored.ID, nil
}

func (theStorage *MemoryStorage) GetUserNotes(ctx context.Context, userID int64) (models.Notes, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	result := models.Notes{}
	for _, note := range theStorage.notes {
		if note.UserID == userID {
			result = append(result, *note)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID > result[j].ID
	})

	return result, nil
}

func (theStorage *MemoryStorage) GetNote(ctx context.Context, userID, noteID int64) (*models.Note, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	note, ok := theStorage.notes[noteID]
	if !ok || note.UserID != userID {
		return nil, models.ErrNotFound
	}

	result := *note

	return &result, nil
}

func (theStorage *MemoryStorage) UpdateNote(ctx context.Context, note *models.Note) (*models.Note, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	stored, ok := theStorage.notes[note.ID]
	if !ok || stored.UserID != note.UserID {
		return nil, models.ErrNotFound
	}

	stored.Title = note.Title
	stored.Content = note.Content

	result := *stored

	return &result, nil
}

func (theStorage *MemoryStorage) DeleteNote(ctx context.Context, userID, noteID int64) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	note, ok := theStorage.notes[noteID]
	if !ok || note.UserID != userID {
		return models.ErrNotFound
	}

	delete(theStorage.notes, noteID)

	return nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
