// Package app initializes and runs the notes service.
// It configures logging, storage, sessions, and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patric-chuzhbe/notekeeper/internal/auth"
	"github.com/patric-chuzhbe/notekeeper/internal/config"
	"github.com/patric-chuzhbe/notekeeper/internal/db/memorystorage"
	"github.com/patric-chuzhbe/notekeeper/internal/db/sqldb"
	"github.com/patric-chuzhbe/notekeeper/internal/logger"
	"github.com/patric-chuzhbe/notekeeper/internal/models"
	"github.com/patric-chuzhbe/notekeeper/internal/password"
	"github.com/patric-chuzhbe/notekeeper/internal/revocation"
	"github.com/patric-chuzhbe/notekeeper/internal/router"
	"github.com/patric-chuzhbe/notekeeper/internal/service"
)

const shutdownTimeout = 10 * time.Second

type transactioner interface {
	BeginTransaction(ctx context.Context) (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

type userKeeper interface {
	UserExists(ctx context.Context, username, email string, transaction *sql.Tx) (bool, error)

	CreateUser(ctx context.Context, usr *models.User, transaction *sql.Tx) (int64, error)

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
	Close() error
}

// App encapsulates the configuration, HTTP handler, storage backend
// and the optional session revocation list.
type App struct {
	cfg         *config.Config
	db          storage
	revoker     *revocation.RedisRevoker
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - connecting the session revocation list, when configured
// - setting up the router and middleware
func New(configOptions ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(configOptions...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	authOptions := []auth.InitOption{auth.WithSecureCookie(app.cfg.SessionCookieSecure)}
	if app.cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.DBConnectionTimeout)
		defer cancel()

		rdb, err := revocation.NewRedisClient(ctx, app.cfg.RedisAddr, app.cfg.RedisPassword)
		if err != nil {
			_ = app.db.Close()
			return nil, err
		}
		app.revoker = revocation.New(rdb)
		authOptions = append(authOptions, auth.WithRevoker(app.revoker))
		logger.Log.Infow("session revocation list enabled", "RedisAddr", app.cfg.RedisAddr)
	}

	app.httpHandler = router.New(
		service.New(app.db, password.New(app.cfg.BcryptCost)),
		auth.New(
			app.cfg.SessionCookieName,
			[]byte(app.cfg.SecretKey),
			app.cfg.SessionTTL,
			authOptions...,
		),
		app.cfg.AllowedOrigins,
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.serve(ctx)
}

func (a *App) serve(ctx context.Context) error {
	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: shutdownTimeout,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing storage and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.closeBackends()

	case err := <-serverErrCh:
		return errors.Join(fmt.Errorf("server error: %w", err), a.closeBackends())
	}
}

func (a *App) closeBackends() error {
	var revokerErr error
	if a.revoker != nil {
		revokerErr = a.revoker.Close()
	}

	return errors.Join(a.db.Close(), revokerErr)
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeSQLite
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		logger.Log.Infoln("using PostgreSQL storage")
		return sqldb.NewPostgres(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeSQLite:
		logger.Log.Infow("using SQLite storage", "DBFileName", cfg.DBFileName)
		return sqldb.NewSQLite(
			context.Background(),
			cfg.DBFileName,
			cfg.DBConnectionTimeout,
		)
	}

	logger.Log.Infoln("using in-memory storage")
	return memorystorage.New()
}
