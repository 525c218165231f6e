package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCookieName = "session"
	testTTL        = time.Hour
)

var testSecret = []byte("test-secret-key")

type fakeRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func newFakeRevoker() *fakeRevoker {
	return &fakeRevoker{revoked: map[string]time.Duration{}}
}

func (f *fakeRevoker) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.revoked[tokenID] = ttl
	return nil
}

func (f *fakeRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.revoked[tokenID]
	return ok, nil
}

func establishCookie(t *testing.T, a *Auth, userID int64) *http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	require.NoError(t, a.Establish(w, userID))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	return cookies[0]
}

func requestWithCookie(cookie *http.Cookie) *http.Request {
	request := httptest.NewRequest(http.MethodGet, "/notes", nil)
	if cookie != nil {
		request.AddCookie(cookie)
	}
	return request
}

func TestEstablishSetsCookieAttributes(t *testing.T) {
	a := New(testCookieName, testSecret, testTTL, WithSecureCookie(true))

	cookie := establishCookie(t, a, 42)

	assert.Equal(t, testCookieName, cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, int(testTTL/time.Second), cookie.MaxAge)
}

func TestResolve(t *testing.T) {
	a := New(testCookieName, testSecret, testTTL)
	valid := establishCookie(t, a, 7)

	other := New(testCookieName, []byte("another-secret"), testTTL)
	foreign := establishCookie(t, other, 7)

	expiredIssuer := New(testCookieName, testSecret, testTTL)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * testTTL) }
	expired := establishCookie(t, expiredIssuer, 7)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 7}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name       string
		cookie     *http.Cookie
		wantOK     bool
		wantUserID int64
	}{
		{name: "valid session", cookie: valid, wantOK: true, wantUserID: 7},
		{name: "no cookie", cookie: nil},
		{name: "empty cookie", cookie: &http.Cookie{Name: testCookieName, Value: ""}},
		{name: "garbage", cookie: &http.Cookie{Name: testCookieName, Value: "garbage"}},
		{name: "tampered", cookie: &http.Cookie{Name: testCookieName, Value: valid.Value + "x"}},
		{name: "signed with another key", cookie: foreign},
		{name: "expired", cookie: expired},
		{name: "alg none", cookie: &http.Cookie{Name: testCookieName, Value: noneToken}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, ok, err := a.Resolve(requestWithCookie(tt.cookie))
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantUserID, userID)
		})
	}
}

func TestClearIsIdempotent(t *testing.T) {
	a := New(testCookieName, testSecret, testTTL)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		require.NoError(t, a.Clear(w, requestWithCookie(nil)))

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, testCookieName, cookies[0].Name)
		assert.Equal(t, "", cookies[0].Value)
		assert.True(t, cookies[0].MaxAge < 0)
	}
}

func TestClearRevokesSession(t *testing.T) {
	revoker := newFakeRevoker()
	a := New(testCookieName, testSecret, testTTL, WithRevoker(revoker))

	cookie := establishCookie(t, a, 3)

	_, ok, err := a.Resolve(requestWithCookie(cookie))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, a.Clear(httptest.NewRecorder(), requestWithCookie(cookie)))
	require.Len(t, revoker.revoked, 1)
	for _, ttl := range revoker.revoked {
		assert.True(t, ttl > 0 && ttl <= testTTL)
	}

	_, ok, err = a.Resolve(requestWithCookie(cookie))
	require.NoError(t, err)
	assert.False(t, ok, "a revoked session must resolve to anonymous")

	// Clearing the same token again must not fail.
	require.NoError(t, a.Clear(httptest.NewRecorder(), requestWithCookie(cookie)))
}

func TestRevocationBackendFailure(t *testing.T) {
	revoker := newFakeRevoker()
	a := New(testCookieName, testSecret, testTTL, WithRevoker(revoker))
	cookie := establishCookie(t, a, 3)

	revoker.err = errors.New("connection refused")

	_, _, err := a.Resolve(requestWithCookie(cookie))
	assert.ErrorIs(t, err, ErrRevocationUnavailable)

	err = a.Clear(httptest.NewRecorder(), requestWithCookie(cookie))
	assert.ErrorIs(t, err, ErrRevocationUnavailable)

	// Without a cookie there is nothing to revoke, so the backend is not touched.
	assert.NoError(t, a.Clear(httptest.NewRecorder(), requestWithCookie(nil)))
}

func TestAuthenticateUser(t *testing.T) {
	a := New(testCookieName, testSecret, testTTL)
	cookie := establishCookie(t, a, 11)

	var (
		gotUserID int64
		gotOK     bool
	)
	handler := a.AuthenticateUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, gotOK = UserIDFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), requestWithCookie(cookie))
	assert.True(t, gotOK)
	assert.Equal(t, int64(11), gotUserID)

	handler.ServeHTTP(httptest.NewRecorder(), requestWithCookie(nil))
	assert.False(t, gotOK)
}

func TestAuthenticateUserRevocationFailure(t *testing.T) {
	revoker := newFakeRevoker()
	a := New(testCookieName, testSecret, testTTL, WithRevoker(revoker))
	cookie := establishCookie(t, a, 11)
	revoker.err = errors.New("connection refused")

	called := false
	handler := a.AuthenticateUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithCookie(cookie))

	assert.False(t, called)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
