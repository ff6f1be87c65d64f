package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ameenhub/internal/auth"
	"ameenhub/internal/rbac"
	"ameenhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccess struct {
	service.AccessService
	sets  map[string]rbac.EffectiveSet
	err   error
	calls int
}

func (f *fakeAccess) EffectivePermissions(_ context.Context, userID string) (rbac.EffectiveSet, error) {
	f.calls++
	if f.err != nil {
		return rbac.EffectiveSet{}, f.err
	}
	return f.sets[userID], nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestAuth(t *testing.T, access *fakeAccess) (*Auth, *auth.TokenManager) {
	t.Helper()
	tokens := auth.NewTokenManager([]byte("test-secret"), "ameenhub-test", time.Hour, 24*time.Hour)
	return NewAuth(tokens, access, false), tokens
}

func bearer(t *testing.T, tokens *auth.TokenManager, userID string) string {
	t.Helper()
	token, _, err := tokens.IssueAccessToken(userID, "tester")
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	a, tokens := newTestAuth(t, &fakeAccess{})
	router := gin.New()
	router.GET("/protected", a.Authenticate(), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})

	w := serve(router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(router, "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(router, "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(router, bearer(t, tokens, "user-1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())
}

func TestAuthenticate_Cookie(t *testing.T) {
	a, tokens := newTestAuth(t, &fakeAccess{})
	router := gin.New()
	router.GET("/protected", a.Authenticate(), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})

	token, _, err := tokens.IssueAccessToken("user-2", "tester")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-2", w.Body.String())
}

func TestRequirePermission(t *testing.T) {
	access := &fakeAccess{sets: map[string]rbac.EffectiveSet{
		"agent": rbac.Resolve([]string{"messages.send", "customers.view"}, nil),
		"root": rbac.Resolve([]string{rbac.Wildcard}, []rbac.Override{
			{Code: "backup.restore", Granted: false},
		}),
	}}
	a, tokens := newTestAuth(t, access)

	router := gin.New()
	router.GET("/protected", a.Authenticate(), a.RequirePermission("messages.send"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	restore := gin.New()
	restore.GET("/protected", a.Authenticate(), a.RequirePermission("backup.restore"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusNoContent, serve(router, bearer(t, tokens, "agent")).Code)
	assert.Equal(t, http.StatusNoContent, serve(router, bearer(t, tokens, "root")).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, bearer(t, tokens, "stranger")).Code)
	assert.Equal(t, http.StatusForbidden, serve(restore, bearer(t, tokens, "root")).Code, "deny beats wildcard")
	assert.Equal(t, http.StatusForbidden, serve(restore, bearer(t, tokens, "agent")).Code)
}

func TestRequirePermission_ResolutionFailureDenies(t *testing.T) {
	access := &fakeAccess{err: errors.New("connection refused")}
	a, tokens := newTestAuth(t, access)
	router := gin.New()
	router.GET("/protected", a.Authenticate(), a.RequirePermission("messages.send"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := serve(router, bearer(t, tokens, "agent"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequirePermission_WithoutAuthenticate(t *testing.T) {
	a, _ := newTestAuth(t, &fakeAccess{})
	router := gin.New()
	router.GET("/protected", a.RequirePermission("messages.send"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
}

func TestPermissions_ResolvedOncePerRequest(t *testing.T) {
	access := &fakeAccess{sets: map[string]rbac.EffectiveSet{
		"agent": rbac.Resolve([]string{"messages.send", "customers.view"}, nil),
	}}
	a, tokens := newTestAuth(t, access)
	router := gin.New()
	router.GET("/protected",
		a.Authenticate(),
		a.RequirePermission("messages.send"),
		a.RequireAnyPermission("backup.create", "customers.view"),
		func(c *gin.Context) {
			set, err := a.Permissions(c)
			require.NoError(t, err)
			c.JSON(http.StatusOK, set.Codes())
		})

	w := serve(router, bearer(t, tokens, "agent"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["customers.view","messages.send"]`, w.Body.String())
	assert.Equal(t, 1, access.calls)

	serve(router, bearer(t, tokens, "agent"))
	assert.Equal(t, 2, access.calls, "nothing is shared between requests")
}

func TestSetAndClearTokenCookies(t *testing.T) {
	a, _ := newTestAuth(t, &fakeAccess{})
	router := gin.New()
	router.GET("/login", func(c *gin.Context) {
		a.SetTokenCookies(c, "access", "refresh")
		c.Status(http.StatusOK)
	})
	router.GET("/logout", func(c *gin.Context) {
		a.ClearTokenCookies(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "access_token", cookies[0].Name)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, "refresh_token", cookies[1].Name)
	assert.Equal(t, 86400, cookies[1].MaxAge)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logout", nil))
	for _, c := range w.Result().Cookies() {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}
