package middleware

import (
	"net/http"
	"strings"
	"time"

	"ameenhub/internal/auth"
	"ameenhub/internal/rbac"
	"ameenhub/internal/service"
	"ameenhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// Context keys set by Authenticate and RequirePermission
const (
	ContextUserID   = "userID"
	ContextUsername = "username"
	contextPermSet  = "effectivePermissions"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

// Auth authenticates staff sessions and gates routes on permission codes.
// Effective permissions are resolved once per request and never shared
// across requests, so a grant change is visible to the very next call.
type Auth struct {
	tokens        *auth.TokenManager
	access        service.AccessService
	secureCookies bool
}

func NewAuth(tokens *auth.TokenManager, access service.AccessService, secureCookies bool) *Auth {
	return &Auth{tokens: tokens, access: access, secureCookies: secureCookies}
}

// Authenticate validates the access token from the cookie or the
// Authorization header and stores the user id in the context.
func (a *Auth) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie(accessCookie)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				response.Abort(c, http.StatusUnauthorized, "Authorization is missing")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Abort(c, http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'")
				return
			}
			tokenString = parts[1]
		}

		claims, err := a.tokens.Parse(tokenString)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextUsername, claims.Username)
		c.Next()
	}
}

// RequirePermission lets the request through only when the caller holds every
// listed code. It must run after Authenticate. A resolution failure denies.
func (a *Auth) RequirePermission(codes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		set, ok := a.permissions(c)
		if !ok {
			return
		}

		for _, code := range codes {
			if !set.Allows(code) {
				response.Abort(c, http.StatusForbidden, "Access denied: missing permission '"+code+"'")
				return
			}
		}
		c.Next()
	}
}

// RequireAnyPermission passes when the caller holds at least one code.
func (a *Auth) RequireAnyPermission(codes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		set, ok := a.permissions(c)
		if !ok {
			return
		}

		for _, code := range codes {
			if set.Allows(code) {
				c.Next()
				return
			}
		}
		response.Abort(c, http.StatusForbidden, "Access denied: insufficient permissions")
	}
}

// Permissions returns the caller's effective set, resolving it on first use
// within the request.
func (a *Auth) Permissions(c *gin.Context) (rbac.EffectiveSet, error) {
	if cached, ok := c.Get(contextPermSet); ok {
		return cached.(rbac.EffectiveSet), nil
	}

	set, err := a.access.EffectivePermissions(c.Request.Context(), UserID(c))
	if err != nil {
		return rbac.EffectiveSet{}, err
	}
	c.Set(contextPermSet, set)
	return set, nil
}

func (a *Auth) permissions(c *gin.Context) (rbac.EffectiveSet, bool) {
	if UserID(c) == "" {
		response.Abort(c, http.StatusUnauthorized, "Authorization is missing")
		return rbac.EffectiveSet{}, false
	}

	set, err := a.Permissions(c)
	if err != nil {
		_ = c.Error(err)
		response.Abort(c, http.StatusInternalServerError, "Failed to verify permissions")
		return rbac.EffectiveSet{}, false
	}
	return set, true
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func (a *Auth) SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	a.setSameSite(c)
	c.SetCookie(accessCookie, accessToken, seconds(a.tokens.AccessTTL()), "/", "", a.secureCookies, true)
	c.SetCookie(refreshCookie, refreshToken, seconds(a.tokens.RefreshTTL()), "/", "", a.secureCookies, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func (a *Auth) ClearTokenCookies(c *gin.Context) {
	a.setSameSite(c)
	c.SetCookie(accessCookie, "", -1, "/", "", a.secureCookies, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", a.secureCookies, true)
}

// RefreshCookie returns the refresh token cookie, if any.
func RefreshCookie(c *gin.Context) string {
	token, err := c.Cookie(refreshCookie)
	if err != nil {
		return ""
	}
	return token
}

// Production (cross-origin): SameSiteNoneMode + Secure
// Development (same-site):   SameSiteLaxMode
func (a *Auth) setSameSite(c *gin.Context) {
	if a.secureCookies {
		c.SetSameSite(http.SameSiteNoneMode)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
}

// UserID returns the authenticated user's id or "".
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
