package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academiapro/academiapro-api/internal/models"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
)

type mockUserRepo struct {
	users map[string]models.User
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

func (m *mockUserRepo) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	for _, u := range m.users {
		if u.Phone == phone {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var result []models.User
	for _, u := range m.users {
		if filter.SchoolID != "" && (u.SchoolID == nil || *u.SchoolID != filter.SchoolID) {
			continue
		}
		result = append(result, u)
	}
	return result, len(result), nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	m.users[user.ID] = *user
	return nil
}

func newUserFixture(t *testing.T) (*UserService, *mockUserRepo, string, string) {
	t.Helper()
	schoolA := uuid.NewString()
	schoolB := uuid.NewString()

	repo := &mockUserRepo{users: map[string]models.User{}}
	for i, schoolID := range []string{schoolA, schoolA, schoolB} {
		id := uuid.NewString()
		sid := schoolID
		repo.users[id] = models.User{
			ID:       id,
			Name:     "Staff",
			Email:    uuid.NewString() + "@example.com",
			Phone:    "+22177000000" + string(rune('0'+i)),
			Role:     models.RoleEnseignant,
			SchoolID: &sid,
			Active:   true,
		}
	}

	svc := NewUserService(repo, nil, nil)
	return svc, repo, schoolA, schoolB
}

func TestUserListAdminSeesEveryone(t *testing.T) {
	svc, _, _, _ := newUserFixture(t)

	actor := &models.JWTClaims{UserID: uuid.NewString(), Role: models.RoleAdmin}
	users, pagination, err := svc.List(context.Background(), actor, models.UserFilter{})
	require.NoError(t, err)
	require.NotNil(t, pagination)
	assert.Len(t, users, 3)
}

func TestUserListDirecteurScopedToOwnSchool(t *testing.T) {
	svc, _, schoolA, schoolB := newUserFixture(t)

	actor := &models.JWTClaims{UserID: uuid.NewString(), Role: models.RoleDirecteur, SchoolID: &schoolA}
	// Asking for another school is ignored: the scope comes from claims.
	users, _, err := svc.List(context.Background(), actor, models.UserFilter{SchoolID: schoolB})
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Equal(t, schoolA, *u.SchoolID)
	}
}

func TestUserListDirecteurWithoutSchoolForbidden(t *testing.T) {
	svc, _, _, _ := newUserFixture(t)

	actor := &models.JWTClaims{UserID: uuid.NewString(), Role: models.RoleDirecteur}
	_, _, err := svc.List(context.Background(), actor, models.UserFilter{})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestUserListOthersSeeOnlyThemselves(t *testing.T) {
	svc, repo, _, _ := newUserFixture(t)

	var selfID string
	for id := range repo.users {
		selfID = id
		break
	}

	actor := &models.JWTClaims{UserID: selfID, Role: models.RoleEnseignant}
	users, _, err := svc.List(context.Background(), actor, models.UserFilter{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, selfID, users[0].ID)
}

func TestUserGetHiddenAnswersNotFound(t *testing.T) {
	svc, repo, schoolA, schoolB := newUserFixture(t)

	var targetID string
	for id, u := range repo.users {
		if u.SchoolID != nil && *u.SchoolID == schoolB {
			targetID = id
		}
	}
	require.NotEmpty(t, targetID)

	// A directeur of school A cannot tell a foreign user apart from a
	// missing one.
	actor := &models.JWTClaims{UserID: uuid.NewString(), Role: models.RoleDirecteur, SchoolID: &schoolA}
	_, err := svc.Get(context.Background(), actor, targetID)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)

	_, err = svc.Get(context.Background(), actor, uuid.NewString())
	var missingErr *appErrors.Error
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, appErr.Code, missingErr.Code)
}

func TestUserUpdateOnlyAdminTogglesActive(t *testing.T) {
	svc, repo, _, _ := newUserFixture(t)

	var selfID string
	for id := range repo.users {
		selfID = id
		break
	}
	inactive := false

	self := &models.JWTClaims{UserID: selfID, Role: models.RoleEnseignant}
	_, err := svc.Update(context.Background(), self, selfID, UpdateUserRequest{
		Name:   "Renamed",
		Email:  "renamed@example.com",
		Phone:  "+221770000009",
		Active: &inactive,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	// Without the active flag the self-update goes through.
	updated, err := svc.Update(context.Background(), self, selfID, UpdateUserRequest{
		Name:  "Renamed",
		Email: "renamed@example.com",
		Phone: "+221770000009",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.True(t, updated.Active)

	admin := &models.JWTClaims{UserID: uuid.NewString(), Role: models.RoleAdmin}
	updated, err = svc.Update(context.Background(), admin, selfID, UpdateUserRequest{
		Name:   "Renamed",
		Email:  "renamed@example.com",
		Phone:  "+221770000009",
		Active: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, updated.Active)
}
