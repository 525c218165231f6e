// Package auth implements cookie-based sessions. A session is a signed JWT
// (HS256) carrying the user identifier; nothing is stored server-side unless a
// revocation list is configured, in which case logged-out token ids are
// remembered until they expire.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/notekeeper/internal/logger"
)

type revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Auth issues, resolves and clears session cookies.
type Auth struct {
	// cookieName is the name of the cookie used to store the JWT.
	cookieName string

	// signingSecretKey is the key used to sign JWTs.
	signingSecretKey []byte

	// ttl is the lifetime of a freshly issued session.
	ttl time.Duration

	secureCookie bool

	// revoker is optional; without it logout only clears the client cookie.
	revoker revoker

	now func() time.Time
}

// Claims represents the JWT claims of a session token.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key used to store and retrieve the authenticated user's ID.
const UserIDKey ContextKey = "userID"

// ErrRevocationUnavailable wraps failures of the revocation backend.
var ErrRevocationUnavailable = errors.New("session revocation list unavailable")

// InitOption configures optional Auth behaviour.
type InitOption func(*Auth)

// WithSecureCookie sets the Secure attribute on session cookies.
func WithSecureCookie(secure bool) InitOption {
	return func(a *Auth) {
		a.secureCookie = secure
	}
}

// WithRevoker enables server-side invalidation of logged-out sessions.
func WithRevoker(r revoker) InitOption {
	return func(a *Auth) {
		a.revoker = r
	}
}

// New creates an Auth with the given cookie name, signing secret and session lifetime.
func New(
	cookieName string,
	signingSecretKey []byte,
	ttl time.Duration,
	optionsProto ...InitOption,
) *Auth {
	a := &Auth{
		cookieName:       cookieName,
		signingSecretKey: signingSecretKey,
		ttl:              ttl,
		now:              time.Now,
	}
	for _, protoOption := range optionsProto {
		protoOption(a)
	}

	return a
}

// Establish issues a session for userID and sets it as a cookie on the response.
func (a *Auth) Establish(response http.ResponseWriter, userID int64) error {
	issuedAt := a.now()
	expiresAt := issuedAt.Add(a.ttl)

	tokenString, err := a.buildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	})
	if err != nil {
		return err
	}

	http.SetCookie(response, a.cookie(tokenString, int(a.ttl/time.Second), expiresAt))

	return nil
}

// Resolve returns the user id of the request's session. ok is false for
// anonymous requests: no cookie, a bad signature, an expired or a revoked
// token. An error is returned only when the revocation list cannot be read.
func (a *Auth) Resolve(request *http.Request) (userID int64, ok bool, err error) {
	claims, ok := a.parseRequestToken(request)
	if !ok {
		return 0, false, nil
	}

	if a.revoker != nil {
		revoked, err := a.revoker.IsRevoked(request.Context(), claims.ID)
		if err != nil {
			return 0, false, fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
		}
		if revoked {
			return 0, false, nil
		}
	}

	return claims.UserID, true, nil
}

// Clear expires the session cookie. With a revocation list configured, a valid
// presented token is also revoked for the rest of its lifetime. Clearing an
// absent or already invalid session is not an error.
func (a *Auth) Clear(response http.ResponseWriter, request *http.Request) error {
	http.SetCookie(response, a.cookie("", -1, time.Unix(0, 0)))

	if a.revoker == nil {
		return nil
	}

	claims, ok := a.parseRequestToken(request)
	if !ok || claims.ExpiresAt == nil {
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(a.now())
	if ttl <= 0 {
		return nil
	}

	if err := a.revoker.Revoke(request.Context(), claims.ID, ttl); err != nil {
		return fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
	}

	return nil
}

// AuthenticateUser is an HTTP middleware that resolves the session once and
// stores the user id in the request context. Anonymous requests pass through
// without one.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, ok, err := a.Resolve(request)
		if err != nil {
			logger.Log.Errorln("Error calling the `a.Resolve()`: ", zap.Error(err))
			response.Header().Set("Content-Type", "application/json")
			response.WriteHeader(http.StatusInternalServerError)
			_, _ = response.Write([]byte(`{"error":"internal server error"}`))

			return
		}

		if !ok {
			h.ServeHTTP(response, request)

			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, userID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// UserIDFromContext returns the user id stored by AuthenticateUser.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)

	return userID, ok
}

func (a *Auth) cookie(value string, maxAge int, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     a.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *Auth) parseRequestToken(request *http.Request) (*Claims, bool) {
	cookie, err := request.Cookie(a.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	claims, err := a.parseJWTString(cookie.Value)
	if err != nil {
		logger.Log.Debugln("Error calling the `a.parseJWTString()`: ", zap.Error(err))
		return nil, false
	}

	return claims, true
}

func (a *Auth) parseJWTString(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingSecretKey, nil
		},
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid session token")
	}

	return claims, nil
}

func (a *Auth) buildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.signingSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
