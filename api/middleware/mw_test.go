package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dirsync/scim-provisioner/internal/authn"
	"github.com/stretchr/testify/assert"
)

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request without an Authorization header must not reach the handler")
	})

	req, err := http.NewRequest("GET", "/users", nil)
	if err != nil {
		t.Fatal(err)
	}

	mw := JWTMiddleware(next)
	w := httptest.NewRecorder()
	mw.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddleware_BadTokenFormat(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request with a non-bearer header must not reach the handler")
	})

	req, err := http.NewRequest("GET", "/users", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Add("Authorization", "Basic abc123")

	mw := JWTMiddleware(next)
	w := httptest.NewRecorder()
	mw.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminOnly_BlocksNonAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("non-admin operator must not reach the handler")
	})

	claims := authn.Claims{Username: "operator"}
	ctx := context.WithValue(context.Background(), ClaimsKey, claims)

	req, err := http.NewRequest("POST", "/users/bulk-sync", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = req.WithContext(ctx)

	mw := AdminOnly(next)
	w := httptest.NewRecorder()
	mw.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminOnly_AllowsAdmin(t *testing.T) {
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	claims := authn.Claims{Username: "operator"}
	claims.RealmAccess.Roles = []string{"directory-admin"}
	ctx := context.WithValue(context.Background(), ClaimsKey, claims)

	req, err := http.NewRequest("POST", "/users/bulk-sync", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = req.WithContext(ctx)

	mw := AdminOnly(next)
	w := httptest.NewRecorder()
	mw.ServeHTTP(w, req)

	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, w.Code)
}
