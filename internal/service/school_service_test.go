package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academiapro/academiapro-api/internal/models"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
)

type mockSchoolRepo struct {
	schools map[string]models.School
}

func (m *mockSchoolRepo) FindByID(ctx context.Context, id string) (*models.School, error) {
	school, ok := m.schools[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &school, nil
}

func (m *mockSchoolRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, s := range m.schools {
		if s.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSchoolRepo) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error) {
	var result []models.School
	for _, s := range m.schools {
		result = append(result, s)
	}
	return result, len(result), nil
}

func (m *mockSchoolRepo) Create(ctx context.Context, school *models.School) error {
	if m.schools == nil {
		m.schools = make(map[string]models.School)
	}
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	m.schools[school.ID] = *school
	return nil
}

func (m *mockSchoolRepo) Update(ctx context.Context, school *models.School) error {
	if _, ok := m.schools[school.ID]; !ok {
		return sql.ErrNoRows
	}
	m.schools[school.ID] = *school
	return nil
}

type mockSchoolYearRepo struct {
	years      map[string]models.SchoolYear
	dependents map[string]int
}

func (m *mockSchoolYearRepo) FindByID(ctx context.Context, id string) (*models.SchoolYear, error) {
	year, ok := m.years[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &year, nil
}

func (m *mockSchoolYearRepo) List(ctx context.Context, filter models.SchoolYearFilter) ([]models.SchoolYear, int, error) {
	var result []models.SchoolYear
	for _, y := range m.years {
		result = append(result, y)
	}
	return result, len(result), nil
}

func (m *mockSchoolYearRepo) Create(ctx context.Context, year *models.SchoolYear) error {
	if m.years == nil {
		m.years = make(map[string]models.SchoolYear)
	}
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	m.years[year.ID] = *year
	return nil
}

func (m *mockSchoolYearRepo) Update(ctx context.Context, year *models.SchoolYear) error {
	if _, ok := m.years[year.ID]; !ok {
		return sql.ErrNoRows
	}
	m.years[year.ID] = *year
	return nil
}

func (m *mockSchoolYearRepo) Activate(ctx context.Context, schoolID, yearID string) error {
	if _, ok := m.years[yearID]; !ok {
		return sql.ErrNoRows
	}
	for id, year := range m.years {
		if year.SchoolID != schoolID {
			continue
		}
		year.Active = id == yearID
		m.years[id] = year
	}
	return nil
}

func (m *mockSchoolYearRepo) CountDependents(ctx context.Context, yearID string) (int, error) {
	return m.dependents[yearID], nil
}

func (m *mockSchoolYearRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.years[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.years, id)
	return nil
}

func newSchoolFixture(t *testing.T) (*SchoolService, *mockSchoolRepo, *mockSchoolYearRepo, string) {
	t.Helper()
	schoolID := uuid.NewString()
	schools := &mockSchoolRepo{schools: map[string]models.School{
		schoolID: {ID: schoolID, Name: "Ecole du Plateau", Email: "plateau@example.com", Active: true},
	}}
	years := &mockSchoolYearRepo{years: map[string]models.SchoolYear{}, dependents: map[string]int{}}

	svc := NewSchoolService(schools, years, nil, nil)
	return svc, schools, years, schoolID
}

func TestCreateSchoolYearLabelAndBounds(t *testing.T) {
	svc, _, _, schoolID := newSchoolFixture(t)

	year, err := svc.CreateSchoolYear(context.Background(), CreateSchoolYearRequest{
		SchoolID:  schoolID,
		YearStart: 2026,
		YearEnd:   2027,
		StartDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-2027", year.Label)
	assert.False(t, year.Active)
}

func TestCreateSchoolYearRejectsNonConsecutiveYears(t *testing.T) {
	svc, _, _, schoolID := newSchoolFixture(t)

	_, err := svc.CreateSchoolYear(context.Background(), CreateSchoolYearRequest{
		SchoolID:  schoolID,
		YearStart: 2026,
		YearEnd:   2028,
		StartDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestActivateSchoolYearDeactivatesSiblings(t *testing.T) {
	svc, _, years, schoolID := newSchoolFixture(t)

	first, err := svc.CreateSchoolYear(context.Background(), CreateSchoolYearRequest{
		SchoolID:  schoolID,
		YearStart: 2025,
		YearEnd:   2026,
		StartDate: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	second, err := svc.CreateSchoolYear(context.Background(), CreateSchoolYearRequest{
		SchoolID:  schoolID,
		YearStart: 2026,
		YearEnd:   2027,
		StartDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = svc.ActivateSchoolYear(context.Background(), first.ID)
	require.NoError(t, err)
	activated, err := svc.ActivateSchoolYear(context.Background(), second.ID)
	require.NoError(t, err)
	assert.True(t, activated.Active)

	assert.False(t, years.years[first.ID].Active)
	assert.True(t, years.years[second.ID].Active)
}

func TestDeleteSchoolYearGuards(t *testing.T) {
	svc, _, years, schoolID := newSchoolFixture(t)

	year, err := svc.CreateSchoolYear(context.Background(), CreateSchoolYearRequest{
		SchoolID:  schoolID,
		YearStart: 2026,
		YearEnd:   2027,
		StartDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// Active years cannot be deleted.
	_, err = svc.ActivateSchoolYear(context.Background(), year.ID)
	require.NoError(t, err)
	err = svc.DeleteSchoolYear(context.Background(), year.ID)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrDomain.Code, appErr.Code)

	// Neither can years with classrooms attached.
	inactive := years.years[year.ID]
	inactive.Active = false
	years.years[year.ID] = inactive
	years.dependents[year.ID] = 4
	err = svc.DeleteSchoolYear(context.Background(), year.ID)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrDomain.Code, appErr.Code)

	years.dependents[year.ID] = 0
	require.NoError(t, svc.DeleteSchoolYear(context.Background(), year.ID))
	_, ok := years.years[year.ID]
	assert.False(t, ok)
}

func TestCreateSchoolDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newSchoolFixture(t)

	_, err := svc.CreateSchool(context.Background(), CreateSchoolRequest{
		Name:  "Autre Ecole",
		Phone: "+221338000000",
		Email: "plateau@example.com",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}
