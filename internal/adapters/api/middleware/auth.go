package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appauth "keygate/internal/application/auth"
)

// PrincipalContextKey is the key used to store the verified principal in the
// gin context.
const PrincipalContextKey = "principal"

// RequireAuth validates the bearer token and checks that its backing session
// is still alive before letting the request through.
func RequireAuth(service *appauth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		principal, err := service.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(PrincipalContextKey, principal)
		c.Next()
	}
}

// PrincipalFrom extracts the verified principal placed by RequireAuth.
func PrincipalFrom(c *gin.Context) (*appauth.Principal, bool) {
	v, ok := c.Get(PrincipalContextKey)
	if !ok {
		return nil, false
	}
	principal, ok := v.(*appauth.Principal)
	return principal, ok
}
