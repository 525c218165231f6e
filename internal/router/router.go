// Package router wires the HTTP API: account registration and sessions, and
// owner-scoped CRUD over notes. Handlers parse and validate input, take the
// caller's identity from the session middleware, call the service layer and
// translate its errors to status codes in one place.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/notekeeper/internal/auth"
	"github.com/patric-chuzhbe/notekeeper/internal/gzippedhttp"
	"github.com/patric-chuzhbe/notekeeper/internal/logger"
	"github.com/patric-chuzhbe/notekeeper/internal/models"
)

type noteService interface {
	RegisterUser(ctx context.Context, request models.RegisterRequest) (int64, error)

	AuthenticateUser(ctx context.Context, request models.LoginRequest) (*models.User, error)

	CreateNote(ctx context.Context, userID int64, title, content string) (*models.Note, error)

	ListNotes(ctx context.Context, userID int64) (models.Notes, error)

	GetNote(ctx context.Context, userID, noteID int64) (*models.Note, error)

	UpdateNote(ctx context.Context, userID, noteID int64, title, content string) (*models.Note, error)

	DeleteNote(ctx context.Context, userID, noteID int64) error

	Ping(ctx context.Context) error
}

type authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler

	Establish(response http.ResponseWriter, userID int64) error

	Clear(response http.ResponseWriter, request *http.Request) error
}

const (
	msgRegistered   = "registered"
	msgLoggedIn     = "logged in"
	msgLoggedOut    = "logged out"
	msgNoteCreated  = "note created"
	msgUpdated      = "updated"
	msgDeleted      = "deleted"
	msgStatusOK     = "ok"
	msgInvalidInput = "Invalid input"
	msgUserExists   = "User already exists"
	msgInvalidCreds = "Invalid credentials"
	msgUnauthorized = "Unauthorized"
	msgNotFound     = "Not found"
	msgInternal     = "internal server error"
)

// Router holds the dependencies of the HTTP handlers.
type Router struct {
	service  noteService
	auth     authenticator
	validate *validator.Validate
}

// New builds the chi router with the full middleware chain: panic recovery,
// request logging, CORS and gzip in both directions. Sessions are resolved
// only under /notes.
func New(
	service noteService,
	theAuth authenticator,
	allowedOrigins []string,
) *chi.Mux {
	myRouter := &Router{
		service:  service,
		auth:     theAuth,
		validate: newValidator(),
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithRecoveryHTTPMiddleware,
		logger.WithLoggingHTTPMiddleware,
		cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "Content-Encoding"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		gzippedhttp.UngzipJSONRequest,
		gzippedhttp.GzipResponse,
	)

	router.Get(`/`, myRouter.GetRoot)
	router.Get(`/ping`, myRouter.GetPing)

	router.Post(`/register`, myRouter.PostRegister)
	router.Post(`/login`, myRouter.PostLogin)
	router.Post(`/logout`, myRouter.PostLogout)

	router.Route(`/notes`, func(r chi.Router) {
		r.Use(theAuth.AuthenticateUser)

		r.Get(`/`, myRouter.GetNotes)
		r.Post(`/`, myRouter.PostNotes)
		r.Get(`/{noteID}`, myRouter.GetNotesNoteid)
		r.Put(`/{noteID}`, myRouter.PutNotesNoteid)
		r.Delete(`/{noteID}`, myRouter.DeleteNotesNoteid)
	})

	return router
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// GetRoot is the liveness endpoint.
func (router *Router) GetRoot(response http.ResponseWriter, request *http.Request) {
	writeJSON(response, http.StatusOK, models.StatusResponse{Status: msgStatusOK})
}

// GetPing reports whether the storage backend is reachable.
func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.service.Ping(request.Context()); err != nil {
		router.internalError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.StatusResponse{Status: msgStatusOK})
}

func (router *Router) PostRegister(response http.ResponseWriter, request *http.Request) {
	var registerRequest models.RegisterRequest
	if !router.decodeAndValidate(response, request, &registerRequest) {
		return
	}

	_, err := router.service.RegisterUser(request.Context(), registerRequest)
	if err != nil {
		router.writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.MessageResponse{Message: msgRegistered})
}

func (router *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	var loginRequest models.LoginRequest
	if !router.decodeAndValidate(response, request, &loginRequest) {
		return
	}

	usr, err := router.service.AuthenticateUser(request.Context(), loginRequest)
	if err != nil {
		router.writeServiceError(response, request, err)
		return
	}

	if err := router.auth.Establish(response, usr.ID); err != nil {
		router.internalError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.MessageResponse{Message: msgLoggedIn})
}

// PostLogout always clears the cookie, with or without a live session. A
// revocation list failure is logged and does not fail the request.
func (router *Router) PostLogout(response http.ResponseWriter, request *http.Request) {
	if err := router.auth.Clear(response, request); err != nil {
		logger.Log.Errorw(
			"session revocation failed",
			"method", request.Method,
			"uri", request.RequestURI,
			"error", err,
		)
	}

	writeJSON(response, http.StatusOK, models.MessageResponse{Message: msgLoggedOut})
}

func (router *Router) PostNotes(response http.ResponseWriter, request *http.Request) {
	userID, ok := requireUser(response, request)
	if !ok {
		return
	}

	var noteRequest models.NoteRequest
	if !router.decodeAndValidate(response, request, &noteRequest) {
		return
	}

	_, err := router.service.CreateNote(request.Context(), userID, noteRequest.Title, *noteRequest.Content)
	if err != nil {
		router.writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.MessageResponse{Message: msgNoteCreated})
}

// GetNotes lists the caller's notes; an anonymous caller gets an empty list.
func (router *Router) GetNotes(response http.ResponseWriter, request *http.Request) {
	userID, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		writeJSON(response, http.StatusOK, models.Notes{})
		return
	}

	notes, err := router.service.ListNotes(request.Context(), userID)
	if err != nil {
		router.writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, notes)
}

func (router *Router) GetNotesNoteid(response http.ResponseWriter, request *http.Request) {
	userID, ok := requireUser(response, request)
	if !ok {
		return
	}

	noteID, ok := noteIDFromPath(response, request)
	if !ok {
		return
	}

	note, err := router.service.GetNote(request.Context(), userID, noteID)
	if err != nil {
		router.writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, note)
}

func (router *Router) PutNotesNoteid(response http.ResponseWriter, request *http.Request) {
	userID, ok := requireUser(response, request)
	if !ok {
		return
	}

	noteID, ok := noteIDFromPath(response, request)
	if !ok {
		return
	}

	var noteRequest models.NoteRequest
	if !router.decodeAndValidate(response, request, &noteRequest) {
		return
	}

	_, err := router.service.UpdateNote(
		request.Context(),
		userID,
		noteID,
		noteRequest.Title,
		*noteRequest.Content,
	)
	if err != nil {
		router.writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.MessageResponse{Message: msgUpdated})
}

func (router *Router) DeleteNotesNoteid(response http.ResponseWriter, request *http.Request) {
	userID, ok := requireUser(response, request)
	if !ok {
		return
	}

	noteID, ok := noteIDFromPath(response, request)
	if !ok {
		return
	}

	if err := router.service.DeleteNote(request.Context(), userID, noteID); err != nil {
		router.writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.MessageResponse{Message: msgDeleted})
}

func requireUser(response http.ResponseWriter, request *http.Request) (int64, bool) {
	userID, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, msgUnauthorized)
		return 0, false
	}

	return userID, true
}

// noteIDFromPath answers 404 for ids that are not integers, the same as for
// ids that do not exist.
func noteIDFromPath(response http.ResponseWriter, request *http.Request) (int64, bool) {
	noteID, err := strconv.ParseInt(chi.URLParam(request, "noteID"), 10, 64)
	if err != nil {
		writeError(response, http.StatusNotFound, msgNotFound)
		return 0, false
	}

	return noteID, true
}

func (router *Router) decodeAndValidate(
	response http.ResponseWriter,
	request *http.Request,
	target any,
) bool {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		logger.Log.Debugln("Error calling the `json.NewDecoder().Decode()`: ", zap.Error(err))
		writeError(response, http.StatusBadRequest, msgInvalidInput)
		return false
	}

	if err := router.validate.Struct(target); err != nil {
		writeError(response, http.StatusBadRequest, validationErrorMessage(err))
		return false
	}

	return true
}

func validationErrorMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return msgInvalidInput
	}

	fields := funk.Map(fieldErrors, func(fieldError validator.FieldError) string {
		return fieldError.Field()
	}).([]string)

	return msgInvalidInput + ": " + strings.Join(fields, ", ")
}

func (router *Router) writeServiceError(
	response http.ResponseWriter,
	request *http.Request,
	err error,
) {
	switch {
	case errors.Is(err, models.ErrConflict):
		writeError(response, http.StatusBadRequest, msgUserExists)
	case errors.Is(err, models.ErrInvalidCredentials):
		writeError(response, http.StatusUnauthorized, msgInvalidCreds)
	case errors.Is(err, models.ErrNotFound):
		writeError(response, http.StatusNotFound, msgNotFound)
	default:
		router.internalError(response, request, err)
	}
}

func (router *Router) internalError(
	response http.ResponseWriter,
	request *http.Request,
	err error,
) {
	logger.Log.Errorw(
		"request failed",
		"method", request.Method,
		"uri", request.RequestURI,
		"error", err,
	)
	writeError(response, http.StatusInternalServerError, msgInternal)
}

func writeError(response http.ResponseWriter, status int, message string) {
	writeJSON(response, status, models.ErrorResponse{Error: message})
}

func writeJSON(response http.ResponseWriter, status int, payload any) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)

	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder().Encode()`: ", zap.Error(err))
	}
}
