package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medspa-practice/internal/identity"
)

func callerEcho(t *testing.T, got *identity.Caller) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := identity.CallerFromContext(r.Context())
		require.True(t, ok, "expected caller in context")
		*got = c
		w.WriteHeader(http.StatusOK)
	})
}

func TestCallerJWT_Rejects(t *testing.T) {
	valid, err := identity.IssueToken(identity.Caller{ID: "client-1", Role: identity.RoleClient}, "other-secret", time.Minute)
	require.NoError(t, err)
	expired, err := identity.IssueToken(identity.Caller{ID: "client-1", Role: identity.RoleClient}, "secret", -time.Minute)
	require.NoError(t, err)

	cases := map[string]struct {
		secret string
		header string
	}{
		"auth disabled":  {"", "Bearer " + valid},
		"missing header": {"secret", ""},
		"not bearer":     {"secret", "Basic abc"},
		"wrong secret":   {"secret", "Bearer " + valid},
		"expired":        {"secret", "Bearer " + expired},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/appointments", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			CallerJWT(tc.secret)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler must not run")
			})).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestCallerJWT_UnknownRoleRejected(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "someone",
		"role": "receptionist",
		"exp":  time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	CallerJWT("secret")(http.NotFoundHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallerJWT_ValidToken(t *testing.T) {
	signed, err := identity.IssueToken(identity.Caller{ID: "prac-1", Role: identity.RolePractitioner}, "secret", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	var got identity.Caller
	CallerJWT("secret")(callerEcho(t, &got)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, identity.Caller{ID: "prac-1", Role: identity.RolePractitioner}, got)
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	serve := func(c *identity.Caller) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if c != nil {
			req = req.WithContext(identity.WithCaller(req.Context(), *c))
		}
		rec := httptest.NewRecorder()
		RequireRole(identity.RolePractitioner)(ok).ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&identity.Caller{ID: "c", Role: identity.RoleClient}))
	assert.Equal(t, http.StatusOK, serve(&identity.Caller{ID: "p", Role: identity.RolePractitioner}))
	assert.Equal(t, http.StatusOK, serve(&identity.Caller{ID: "a", Role: identity.RoleSuperAdmin}))
}
