// Package sqldb provides the SQL implementation of the user and note storage.
// The same queries serve PostgreSQL (through pgx) and SQLite (through
// modernc.org/sqlite); the baseline schema is applied with goose on startup.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/patric-chuzhbe/notekeeper/internal/db/sqldb/migrations"
	"github.com/patric-chuzhbe/notekeeper/internal/models"
)

// Store is a database/sql backed storage for users and notes. All methods
// borrow a pooled connection for the duration of one statement or one
// transaction and release it on every return path.
type Store struct {
	database          *sql.DB
	dialect           dialect
	connectionTimeout time.Duration
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops the application tables before the schema is applied.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// NewPostgres connects to PostgreSQL and ensures the schema.
func NewPostgres(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*Store, error) {
	return open(ctx, postgresDialect, databaseDSN, connectionTimeout, optionsProto...)
}

// NewSQLite opens (creating if needed) the SQLite database file and ensures
// the schema. Foreign keys are enforced so that deleting a user cascades.
func NewSQLite(
	ctx context.Context,
	fileName string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*Store, error) {
	dsn := fileName + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

	return open(ctx, sqliteDialect, dsn, connectionTimeout, optionsProto...)
}

func open(
	ctx context.Context,
	d dialect,
	dsn string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*Store, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/sqldb/sqldb.go/open(): error while `sql.Open()` calling: %w",
			err,
		)
	}

	result := newStore(database, d, connectionTimeout)

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf(
			"in internal/db/sqldb/sqldb.go/open(): error while `result.Ping()` calling: %w",
			err,
		)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			_ = database.Close()
			return nil, err
		}
	}

	if err := result.migrate(ctx); err != nil {
		_ = database.Close()
		return nil, err
	}

	return result, nil
}

func newStore(database *sql.DB, d dialect, connectionTimeout time.Duration) *Store {
	return &Store{
		database:          database,
		dialect:           d,
		connectionTimeout: connectionTimeout,
	}
}

func (db *Store) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect(db.dialect.gooseDialect); err != nil {
		return fmt.Errorf(
			"in internal/db/sqldb/sqldb.go/migrate(): error while `goose.SetDialect()` calling: %w",
			err,
		)
	}

	if err := goose.UpContext(ctx, db.database, db.dialect.migrationsDir); err != nil {
		return fmt.Errorf(
			"in internal/db/sqldb/sqldb.go/migrate(): error while `goose.UpContext()` calling: %w",
			err,
		)
	}

	return nil
}

func (db *Store) q(query string) string {
	return db.dialect.rebind(query)
}

func (db *Store) queryer(transaction *sql.Tx) queryer {
	if transaction == nil {
		return db.database
	}

	return transaction
}

// BeginTransaction starts a new SQL transaction and returns it.
// The caller is responsible for committing or rolling it back.
func (db *Store) BeginTransaction(ctx context.Context) (*sql.Tx, error) {
	return db.database.BeginTx(ctx, nil)
}

// CommitTransaction commits the given SQL transaction.
func (db *Store) CommitTransaction(transaction *sql.Tx) error {
	return transaction.Commit()
}

// RollbackTransaction rolls back the given SQL transaction. Rolling back a
// transaction that was already committed is a no-op.
func (db *Store) RollbackTransaction(transaction *sql.Tx) error {
	err := transaction.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}

// UserExists reports whether a user with the given username or email exists.
func (db *Store) UserExists(
	ctx context.Context,
	username,
	email string,
	transaction *sql.Tx,
) (bool, error) {
	var exists bool
	err := db.queryer(transaction).QueryRowContext(
		ctx,
		db.q(`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR username = $2)`),
		email,
		username,
	).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// CreateUser inserts a user and returns its id. A uniqueness violation on
// username or email is reported as models.ErrConflict.
func (db *Store) CreateUser(ctx context.Context, usr *models.User, transaction *sql.Tx) (int64, error) {
	var userID int64
	err := db.queryer(transaction).QueryRowContext(
		ctx,
		db.q(`
			INSERT INTO users (username, email, password_hash)
				VALUES ($1, $2, $3)
				RETURNING id
		`),
		usr.Username,
		usr.Email,
		usr.PasswordHash,
	).Scan(&userID)
	if err != nil {
		if db.dialect.isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %w", models.ErrConflict, err)
		}
		return 0, err
	}

	return userID, nil
}

// GetUserByEmail fetches a user with its password hash. models.ErrNotFound is
// returned when no user has that email.
func (db *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	usr := &models.User{}
	err := db.database.QueryRowContext(
		ctx,
		db.q(`SELECT id, username, email, password_hash FROM users WHERE email = $1`),
		email,
	).Scan(&usr.ID, &usr.Username, &usr.Email, &usr.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	return usr, nil
}

// CreateNote inserts a note owned by note.UserID and returns its id.
func (db *Store) CreateNote(ctx context.Context, note *models.Note) (int64, error) {
	var noteID int64
	err := db.database.QueryRowContext(
		ctx,
		db.q(`
			INSERT INTO notes (title, content, user_id)
				VALUES ($1, $2, $3)
				RETURNING id
		`),
		note.Title,
		note.Content,
		note.UserID,
	).Scan(&noteID)
	if err != nil {
		return 0, err
	}

	return noteID, nil
}

// GetUserNotes returns the user's notes, newest (highest id) first.
func (db *Store) GetUserNotes(ctx context.Context, userID int64) (models.Notes, error) {
	rows, err := db.database.QueryContext(
		ctx,
		db.q(`
			SELECT id, title, content, user_id
				FROM notes
				WHERE user_id = $1
				ORDER BY id DESC
		`),
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := models.Notes{}
	for rows.Next() {
		var note models.Note
		err = rows.Scan(&note.ID, &note.Title, &note.Content, &note.UserID)
		if err != nil {
			return nil, err
		}

		result = append(result, note)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetNote returns the note only if it belongs to userID.
func (db *Store) GetNote(ctx context.Context, userID, noteID int64) (*models.Note, error) {
	note := &models.Note{}
	err := db.database.QueryRowContext(
		ctx,
		db.q(`SELECT id, title, content, user_id FROM notes WHERE id = $1 AND user_id = $2`),
		noteID,
		userID,
	).Scan(&note.ID, &note.Title, &note.Content, &note.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	return note, nil
}

// UpdateNote rewrites title and content in one conditional statement matching
// both note.ID and note.UserID.
func (db *Store) UpdateNote(ctx context.Context, note *models.Note) (*models.Note, error) {
	updated := &models.Note{}
	err := db.database.QueryRowContext(
		ctx,
		db.q(`
			UPDATE notes
				SET title = $1, content = $2
				WHERE id = $3 AND user_id = $4
				RETURNING id, title, content, user_id
		`),
		note.Title,
		note.Content,
		note.ID,
		note.UserID,
	).Scan(&updated.ID, &updated.Title, &updated.Content, &updated.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	return updated, nil
}

// DeleteNote removes the note in one conditional statement matching both ids.
func (db *Store) DeleteNote(ctx context.Context, userID, noteID int64) error {
	var deletedID int64
	err := db.database.QueryRowContext(
		ctx,
		db.q(`DELETE FROM notes WHERE id = $1 AND user_id = $2 RETURNING id`),
		noteID,
		userID,
	).Scan(&deletedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		return err
	}

	return nil
}

// Ping verifies connectivity with the database within the configured timeout.
func (db *Store) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *Store) Close() error {
	return db.database.Close()
}

func (db *Store) resetDB(ctx context.Context) error {
	for _, statement := range []string{
		`DROP TABLE IF EXISTS notes`,
		`DROP TABLE IF EXISTS users`,
		`DROP TABLE IF EXISTS goose_db_version`,
	} {
		if _, err := db.database.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf(
				"in internal/db/sqldb/sqldb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
				err,
			)
		}
	}

	return nil
}
