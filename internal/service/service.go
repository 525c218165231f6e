package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/patric-chuzhbe/notekeeper/internal/models"
)

type transactioner interface {
	BeginTransaction(ctx context.Context) (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

type userKeeper interface {
	UserExists(
		ctx context.Context,
		username,
		email string,
		transaction *sql.Tx,
	) (bool, error)

	CreateUser(
		ctx context.Context,
		usr *models.User,
		transaction *sql.Tx,
	) (int64, error)

	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type notesKeeper interface {
	CreateNote(ctx context.Context, note *models.Note) (int64, error)

	GetUserNotes(ctx context.Context, userID int64) (models.Notes, error)

	GetNote(ctx context.Context, userID, noteID int64) (*models.Note, error)

	UpdateNote(ctx context.Context, note *models.Note) (*models.Note, error)

	DeleteNote(ctx context.Context, userID, noteID int64) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	transactioner
	userKeeper
	notesKeeper
	pinger
}

type passwordHasher interface {
	Hash(password string) (string, error)

	Verify(hash, password string) bool
}

var (
	ErrConflict           = models.ErrConflict
	ErrInvalidCredentials = models.ErrInvalidCredentials
	ErrNotFound           = models.ErrNotFound
)

type Service struct {
	db     storage
	hasher passwordHasher
}

func New(db storage, hasher passwordHasher) *Service {
	return &Service{
		db:     db,
		hasher: hasher,
	}
}

// RegisterUser creates an account. The existence check and the insert share
// one transaction; a concurrent insert that slips past the check is still
// reported as ErrConflict by the storage uniqueness constraint.
func (s *Service) RegisterUser(ctx context.Context, request models.RegisterRequest) (int64, error) {
	passwordHash, err := s.hasher.Hash(request.Password)
	if err != nil {
		return 0, fmt.Errorf(
			"in internal/service/service.go/RegisterUser(): error while `s.hasher.Hash()` calling: %w",
			err,
		)
	}

	tx, err := s.db.BeginTransaction(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	exists, err := s.db.UserExists(ctx, request.Username, request.Email, tx)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrConflict
	}

	userID, err := s.db.CreateUser(ctx, &models.User{
		Username:     request.Username,
		Email:        request.Email,
		PasswordHash: passwordHash,
	}, tx)
	if err != nil {
		return 0, err
	}

	if err := s.db.CommitTransaction(tx); err != nil {
		return 0, err
	}

	return userID, nil
}

// AuthenticateUser returns the user matching email and password. An unknown
// email and a wrong password both yield ErrInvalidCredentials.
func (s *Service) AuthenticateUser(ctx context.Context, request models.LoginRequest) (*models.User, error) {
	usr, err := s.db.GetUserByEmail(ctx, request.Email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(usr.PasswordHash, request.Password) {
		return nil, ErrInvalidCredentials
	}

	return usr, nil
}

func (s *Service) CreateNote(ctx context.Context, userID int64, title, content string) (*models.Note, error) {
	note := &models.Note{
		Title:   title,
		Content: content,
		UserID:  userID,
	}

	noteID, err := s.db.CreateNote(ctx, note)
	if err != nil {
		return nil, err
	}
	note.ID = noteID

	return note, nil
}

// ListNotes returns the user's notes, newest first. The result is never nil.
func (s *Service) ListNotes(ctx context.Context, userID int64) (models.Notes, error) {
	notes, err := s.db.GetUserNotes(ctx, userID)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = models.Notes{}
	}

	return notes, nil
}

func (s *Service) GetNote(ctx context.Context, userID, noteID int64) (*models.Note, error) {
	return s.db.GetNote(ctx, userID, noteID)
}

func (s *Service) UpdateNote(
	ctx context.Context,
	userID,
	noteID int64,
	title,
	content string,
) (*models.Note, error) {
	return s.db.UpdateNote(ctx, &models.Note{
		ID:      noteID,
		Title:   title,
		Content: content,
		UserID:  userID,
	})
}

func (s *Service) DeleteNote(ctx context.Context, userID, noteID int64) error {
	return s.db.DeleteNote(ctx, userID, noteID)
}

// Ping checks the health of the database/storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
