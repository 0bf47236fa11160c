package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academiapro/academiapro-api/internal/models"
	"github.com/academiapro/academiapro-api/internal/service"
	"github.com/academiapro/academiapro-api/pkg/response"
)

const testSecret = "middleware-test-secret"

func newAuthRouter(t *testing.T, extra ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	authSvc := service.NewAuthService(nil, nil, nil, service.AuthConfig{
		AccessTokenSecret: testSecret,
		AccessTokenExpiry: time.Minute,
		Issuer:            "academiapro-test",
	})

	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWT(authSvc)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		response.JSON(c, http.StatusOK, gin.H{"user_id": claims.UserID}, nil)
	})
	r.GET("/users/:id", handlers...)
	return r
}

func signToken(t *testing.T, userID string, role models.UserRole, ttl time.Duration) string {
	t.Helper()
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID: userID,
		Role:   role,
		Name:   "Test User",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "academiapro-test",
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestJWTMissingHeaderRepliesLegacyBody(t *testing.T) {
	r := newAuthRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/u1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"Unauthenticated."}`, w.Body.String())
	assert.Equal(t, "no-cache, private", w.Header().Get("Cache-Control"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	r := newAuthRouter(t)

	for _, header := range []string{"Token abc", "Bearer", signToken(t, "u1", models.RoleAdmin, time.Minute)} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users/u1", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.JSONEq(t, `{"message":"Unauthenticated."}`, w.Body.String(), header)
	}
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	r := newAuthRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/u1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u1", models.RoleAdmin, -time.Minute))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"Unauthenticated."}`, w.Body.String())
}

func TestJWTValidTokenExposesClaims(t *testing.T) {
	r := newAuthRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/u1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u1", models.RoleDirecteur, time.Minute))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"u1"`)
}

func TestRBACRejectsDisallowedRole(t *testing.T) {
	r := newAuthRouter(t, RequireRoles(models.RoleComptable))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/u1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u9", models.RoleEnseignant, time.Minute))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"FORBIDDEN"`)
}

func TestRBACFinanceReadsAdmitSecretaire(t *testing.T) {
	r := newAuthRouter(t, RequireRoles(models.RoleAdmin, models.RoleDirecteur, models.RoleComptable, models.RoleSecretaire))

	for _, role := range []models.UserRole{models.RoleComptable, models.RoleSecretaire} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users/u1", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "u9", role, time.Minute))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "role %s", role)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/u1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u9", models.RoleEnseignant, time.Minute))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACAllowsSelfOnMatchingID(t *testing.T) {
	r := newAuthRouter(t, RBAC(string(models.RoleAdmin), "SELF"))

	// Same user id as the route parameter passes despite the role.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/u1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u1", models.RoleEnseignant, time.Minute))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// A different caller is still rejected.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/users/u1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u2", models.RoleEnseignant, time.Minute))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
