package auth

import (
	"net/http"
	"strings"

	"github.com/kennelworks/kennel-api/config/router"
)

const principalContextKey = "admin_principal"

// RequireAdmin rejects requests without a live admin session.
func RequireAdmin(service AuthService) router.MiddlewareFunc {
	return func(c *router.RequestContext) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, router.UnauthorizedResult("Authentication required").ToJSON())
			return
		}

		principal, err := service.Authenticate(c.Request.Context(), token)
		if err != nil {
			result := router.AppErrorResult(err)
			c.AbortWithStatusJSON(result.StatusCode, result.ToJSON())
			return
		}

		c.Set(principalContextKey, principal)
		c.Next()
	}
}

func PrincipalFromContext(c *router.RequestContext) (*Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return nil, false
	}
	principal, ok := value.(*Principal)
	return principal, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}
