package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/academiapro/academiapro-api/internal/middleware"
	"github.com/academiapro/academiapro-api/internal/models"
)

// claimsFromContext reads the JWT claims the auth middleware stored on
// the request. Nil means the route was wired without the middleware,
// which handlers treat as an unauthenticated caller.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
