package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"tracker/internal/http/middleware"
	"tracker/internal/types"
)

// stubVerifier is a test double for infra.TokenVerifier.
type stubVerifier struct {
	actor types.Actor
	err   error
	seen  string
}

func (s *stubVerifier) Verify(_ context.Context, raw string) (types.Actor, error) {
	s.seen = raw
	return s.actor, s.err
}

func newTestRouter(verifier *stubVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Recovery(slog.New(slog.NewTextHandler(io.Discard, nil))))
	r.Use(middleware.Auth(verifier))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": middleware.CallerUID(c), "role": middleware.CallerRole(c)})
	})
	r.GET("/admin", middleware.RequireRole(types.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func get(r *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_MissingHeader(t *testing.T) {
	r := newTestRouter(&stubVerifier{actor: types.Actor{ID: "u"}})
	assert.Equal(t, http.StatusUnauthorized, get(r, "/test", "").Code)
}

func TestAuth_InvalidBearerPrefix(t *testing.T) {
	r := newTestRouter(&stubVerifier{actor: types.Actor{ID: "u"}})
	assert.Equal(t, http.StatusUnauthorized, get(r, "/test", "Token sometoken").Code)
}

func TestAuth_VerifierError(t *testing.T) {
	r := newTestRouter(&stubVerifier{err: errors.New("bad token")})
	assert.Equal(t, http.StatusUnauthorized, get(r, "/test", "Bearer invalid").Code)
}

func TestAuth_ValidToken_CallerPopulated(t *testing.T) {
	v := &stubVerifier{actor: types.Actor{ID: "driver123", Role: types.RoleDriver}}
	r := newTestRouter(v)
	w := get(r, "/test", "Bearer validtoken")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"driver123","role":"driver"}`, w.Body.String())
	assert.Equal(t, "validtoken", v.seen)
}

func TestAuth_QueryToken(t *testing.T) {
	v := &stubVerifier{actor: types.Actor{ID: "c", Role: types.RoleCustomer}}
	r := newTestRouter(v)
	assert.Equal(t, http.StatusOK, get(r, "/test?token=abc", "").Code)
	assert.Equal(t, "abc", v.seen)
}

func TestRequireRole(t *testing.T) {
	r := newTestRouter(&stubVerifier{actor: types.Actor{ID: "c", Role: types.RoleCustomer}})
	assert.Equal(t, http.StatusForbidden, get(r, "/admin", "Bearer t").Code)

	r = newTestRouter(&stubVerifier{actor: types.Actor{ID: "a", Role: types.RoleAdmin}})
	assert.Equal(t, http.StatusNoContent, get(r, "/admin", "Bearer t").Code)
}

func TestRecovery(t *testing.T) {
	r := newTestRouter(&stubVerifier{actor: types.Actor{ID: "a", Role: types.RoleAdmin}})
	assert.Equal(t, http.StatusInternalServerError, get(r, "/panic", "Bearer t").Code)
}
