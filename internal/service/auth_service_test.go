package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/academiapro/academiapro-api/internal/models"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[string]models.User
	refreshTokens map[string]models.RefreshToken
	lastLogins    int
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:         make(map[string]models.User),
		refreshTokens: make(map[string]models.RefreshToken),
	}
}

func (m *mockAuthRepo) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	for _, u := range m.users {
		if u.Phone == phone {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	m.users[user.ID] = *user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogins++
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	user, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.PasswordHash = passwordHash
	m.users[id] = user
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for key, token := range m.refreshTokens {
		if token.UserID == userID {
			token.Revoked = true
			m.refreshTokens[key] = token
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = *token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &stored, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for key, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
			m.refreshTokens[key] = token
		}
	}
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthRepo, models.User) {
	t.Helper()
	repo := newMockAuthRepo()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		ID:           uuid.NewString(),
		Name:         "Fatou Ndiaye",
		Email:        "fatou@example.com",
		Phone:        "+221770000001",
		PasswordHash: string(hash),
		Role:         models.RoleDirecteur,
		Active:       true,
	}
	repo.users[user.ID] = user

	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "academiapro-test",
	})
	return svc, repo, user
}

func TestLoginWithPhone(t *testing.T) {
	svc, repo, user := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Phone:    user.Phone,
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, 1, repo.lastLogins)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleDirecteur, claims.Role)
}

func TestLoginWrongPasswordDoesNotRevealWhich(t *testing.T) {
	svc, _, user := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Phone:    user.Phone,
		Password: "wrong",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)

	// Unknown phone yields the same error code and message.
	_, err2 := svc.Login(context.Background(), models.LoginRequest{
		Phone:    "+221779999999",
		Password: "secret123",
	})
	var appErr2 *appErrors.Error
	require.ErrorAs(t, err2, &appErr2)
	assert.Equal(t, appErr.Code, appErr2.Code)
	assert.Equal(t, appErr.Message, appErr2.Message)
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, repo, user := newAuthFixture(t)
	user.Active = false
	repo.users[user.ID] = user

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Phone:    user.Phone,
		Password: "secret123",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestRefreshTokenRotation(t *testing.T) {
	svc, repo, user := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Phone:    user.Phone,
		Password: "secret123",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: resp.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)

	// The old token is revoked and cannot be replayed.
	assert.True(t, repo.refreshTokens[resp.RefreshToken].Revoked)
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: resp.RefreshToken,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestRegisterDuplicatePhone(t *testing.T) {
	svc, _, user := newAuthFixture(t)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:            "Moussa Sow",
		Email:           "moussa@example.com",
		Password:        "secret123",
		PasswordConfirm: "secret123",
		Role:            models.RoleEnseignant,
		FirstName:       "Moussa",
		LastName:        "Sow",
		Phone:           user.Phone,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc, repo, user := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Phone:    user.Phone,
		Password: "secret123",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "evenmoresecret",
	})
	require.NoError(t, err)

	assert.True(t, repo.refreshTokens[resp.RefreshToken].Revoked)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Phone:    user.Phone,
		Password: "evenmoresecret",
	})
	require.NoError(t, err)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc, _, user := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Phone:    user.Phone,
		Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken + "x")
	require.Error(t, err)
}
