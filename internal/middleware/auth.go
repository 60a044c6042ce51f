package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	domainUser "tour-booking-api/internal/domain/user"
)

const (
	PrincipalKey      = "principal"
	SessionCookieName = "jwt"
)

// Authenticator resolves the user behind an Authorization header value.
type Authenticator interface {
	Authenticate(ctx context.Context, rawAuthHeader string) (*domainUser.User, error)
}

// Authenticate rejects the request unless it carries a valid session, taken
// from the Authorization header or, failing that, the session cookie.
func Authenticate(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
				header = "Bearer " + cookie
			}
		}

		principal, err := authenticator.Authenticate(c.Request.Context(), header)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(PrincipalKey, principal)
		c.Next()
	}
}

// RequireRoles lets the request through only if the authenticated principal
// holds one of roles. It must run after Authenticate.
func RequireRoles(roles ...domainUser.Role) gin.HandlerFunc {
	allowed := domainUser.Roles(roles...)
	return func(c *gin.Context) {
		if err := domainUser.Authorize(Principal(c), allowed); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Principal returns the authenticated user, or nil on a public route.
func Principal(c *gin.Context) *domainUser.User {
	if v, ok := c.Get(PrincipalKey); ok {
		if u, ok := v.(*domainUser.User); ok {
			return u
		}
	}
	return nil
}
