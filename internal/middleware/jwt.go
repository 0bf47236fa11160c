package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/academiapro/academiapro-api/internal/service"
	"github.com/academiapro/academiapro-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// JWT guards routes behind a bearer access token. Every rejection
// answers with the legacy unauthenticated body so existing mobile
// clients keep working; the reason (missing, malformed, expired) is
// deliberately not distinguished on the wire.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthenticated(c)
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			response.Unauthenticated(c)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}
