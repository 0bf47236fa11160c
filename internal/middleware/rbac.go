package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/academiapro/academiapro-api/internal/models"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
	"github.com/academiapro/academiapro-api/pkg/response"
)

// The pseudo-role "SELF" lets a caller through when their user id
// matches the :id route parameter, regardless of their actual role.
const roleSelf = "SELF"

// RBAC enforces role-based access control after JWT authentication.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	roles := make(map[models.UserRole]struct{}, len(allowed))
	for _, name := range allowed {
		if name == roleSelf {
			allowSelf = true
			continue
		}
		roles[models.UserRole(name)] = struct{}{}
	}

	return func(c *gin.Context) {
		value, ok := c.Get(ContextUserKey)
		if !ok {
			response.Unauthenticated(c)
			c.Abort()
			return
		}
		claims := value.(*models.JWTClaims)

		if _, ok := roles[claims.Role]; ok {
			c.Next()
			return
		}
		if allowSelf && claims.UserID != "" && claims.UserID == c.Param("id") {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is the typed variant used by the route table.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return RBAC(names...)
}
