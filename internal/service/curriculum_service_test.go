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

type mockCurriculumRepo struct {
	// keyed by subjectID + ":" + year ("" for year-independent rows)
	rows map[string]models.ClassroomSubject
}

func curriculumKey(subjectID string, yearID *string) string {
	if yearID == nil {
		return subjectID + ":"
	}
	return subjectID + ":" + *yearID
}

func (m *mockCurriculumRepo) ListByClassroom(ctx context.Context, classroomID string, schoolYearID *string) ([]models.ClassroomSubjectDetail, error) {
	var result []models.ClassroomSubjectDetail
	for _, row := range m.rows {
		if row.ClassroomID != classroomID {
			continue
		}
		result = append(result, models.ClassroomSubjectDetail{ClassroomSubject: row})
	}
	return result, nil
}

func (m *mockCurriculumRepo) ListByYear(ctx context.Context, classroomID, schoolYearID string) ([]models.ClassroomSubject, error) {
	var result []models.ClassroomSubject
	for _, row := range m.rows {
		if row.ClassroomID != classroomID || row.SchoolYearID == nil || *row.SchoolYearID != schoolYearID {
			continue
		}
		result = append(result, row)
	}
	return result, nil
}

func (m *mockCurriculumRepo) Upsert(ctx context.Context, assignment *models.ClassroomSubject) error {
	if m.rows == nil {
		m.rows = make(map[string]models.ClassroomSubject)
	}
	key := curriculumKey(assignment.SubjectID, assignment.SchoolYearID)
	if existing, ok := m.rows[key]; ok {
		assignment.ID = existing.ID
	} else if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	m.rows[key] = *assignment
	return nil
}

func (m *mockCurriculumRepo) ReplaceAll(ctx context.Context, classroomID string, assignments []models.ClassroomSubject) error {
	m.rows = make(map[string]models.ClassroomSubject)
	for i := range assignments {
		_ = m.Upsert(ctx, &assignments[i])
	}
	return nil
}

func (m *mockCurriculumRepo) Remove(ctx context.Context, classroomID, subjectID string, schoolYearID *string) (int64, error) {
	key := curriculumKey(subjectID, schoolYearID)
	if _, ok := m.rows[key]; !ok {
		return 0, nil
	}
	delete(m.rows, key)
	return 1, nil
}

func (m *mockCurriculumRepo) CopyYear(ctx context.Context, classroomID, fromYearID, toYearID string) (int, error) {
	copied := 0
	for _, row := range m.rows {
		if row.SchoolYearID == nil || *row.SchoolYearID != fromYearID {
			continue
		}
		target := row
		target.ID = ""
		year := toYearID
		target.SchoolYearID = &year
		_ = m.Upsert(ctx, &target)
		copied++
	}
	return copied, nil
}

func (m *mockCurriculumRepo) ReplaceTeachers(ctx context.Context, classroomID, subjectID string, teacherIDs []string) error {
	return nil
}

func (m *mockCurriculumRepo) ListTeachers(ctx context.Context, classroomID, subjectID string) ([]models.ClassroomSubjectTeacherDetail, error) {
	return nil, nil
}

func (m *mockCurriculumRepo) CountSubjects(ctx context.Context, subjectIDs []string) (int, error) {
	// COUNT over IN matches each subject row once however often its
	// id repeats in the input.
	distinct := make(map[string]bool, len(subjectIDs))
	for _, id := range subjectIDs {
		distinct[id] = true
	}
	return len(distinct), nil
}

func (m *mockCurriculumRepo) CountTeachers(ctx context.Context, teacherIDs []string) (int, error) {
	return len(teacherIDs), nil
}

type mockClassroomFinder struct {
	classrooms map[string]models.Classroom
}

func (m *mockClassroomFinder) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	classroom, ok := m.classrooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &classroom, nil
}

type mockYearFinder struct {
	years map[string]models.SchoolYear
}

func (m *mockYearFinder) FindByID(ctx context.Context, id string) (*models.SchoolYear, error) {
	year, ok := m.years[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &year, nil
}

func newCurriculumFixture(t *testing.T) (*CurriculumService, *mockCurriculumRepo, string, string, string) {
	t.Helper()
	classroomID := uuid.NewString()
	yearA := uuid.NewString()
	yearB := uuid.NewString()

	repo := &mockCurriculumRepo{}
	classrooms := &mockClassroomFinder{classrooms: map[string]models.Classroom{
		classroomID: {ID: classroomID, Name: "6eme A"},
	}}
	years := &mockYearFinder{years: map[string]models.SchoolYear{
		yearA: {ID: yearA, Label: "2025-2026"},
		yearB: {ID: yearB, Label: "2026-2027"},
	}}

	svc := NewCurriculumService(repo, classrooms, years, nil, nil, CurriculumConfig{})
	return svc, repo, classroomID, yearA, yearB
}

func TestCurriculumAssignUpsertsCoefficient(t *testing.T) {
	svc, repo, classroomID, yearA, _ := newCurriculumFixture(t)
	subjectID := uuid.NewString()

	first, err := svc.Assign(context.Background(), classroomID, AssignSubjectRequest{
		SubjectID:    subjectID,
		Coefficient:  3,
		SchoolYearID: &yearA,
	})
	require.NoError(t, err)

	second, err := svc.Assign(context.Background(), classroomID, AssignSubjectRequest{
		SubjectID:    subjectID,
		Coefficient:  5,
		SchoolYearID: &yearA,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.rows, 1)
	assert.Equal(t, 5, repo.rows[curriculumKey(subjectID, &yearA)].Coefficient)
}

func TestCurriculumAssignRejectsCoefficientOutOfBounds(t *testing.T) {
	svc, _, classroomID, yearA, _ := newCurriculumFixture(t)

	_, err := svc.Assign(context.Background(), classroomID, AssignSubjectRequest{
		SubjectID:    uuid.NewString(),
		Coefficient:  11,
		SchoolYearID: &yearA,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCurriculumAssignUnknownClassroom(t *testing.T) {
	svc, _, _, yearA, _ := newCurriculumFixture(t)

	_, err := svc.Assign(context.Background(), uuid.NewString(), AssignSubjectRequest{
		SubjectID:    uuid.NewString(),
		Coefficient:  2,
		SchoolYearID: &yearA,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestCurriculumReplaceRejectsDuplicates(t *testing.T) {
	svc, _, classroomID, yearA, _ := newCurriculumFixture(t)
	subjectID := uuid.NewString()

	_, err := svc.Replace(context.Background(), classroomID, ReplaceCurriculumRequest{
		Subjects: []AssignSubjectRequest{
			{SubjectID: subjectID, Coefficient: 2, SchoolYearID: &yearA},
			{SubjectID: subjectID, Coefficient: 4, SchoolYearID: &yearA},
		},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCurriculumReplaceLeavesExactSet(t *testing.T) {
	svc, repo, classroomID, _, _ := newCurriculumFixture(t)
	kept := uuid.NewString()
	dropped := uuid.NewString()
	added := uuid.NewString()

	for _, id := range []string{kept, dropped} {
		_, err := svc.Assign(context.Background(), classroomID, AssignSubjectRequest{
			SubjectID:   id,
			Coefficient: 4,
		})
		require.NoError(t, err)
	}

	replaced, err := svc.Replace(context.Background(), classroomID, ReplaceCurriculumRequest{
		SubjectIDs: []string{kept, added},
	})
	require.NoError(t, err)
	require.Len(t, replaced, 2)

	// Exactly the requested subjects remain; the old association is gone.
	assert.Len(t, repo.rows, 2)
	_, hasKept := repo.rows[curriculumKey(kept, nil)]
	_, hasAdded := repo.rows[curriculumKey(added, nil)]
	_, hasDropped := repo.rows[curriculumKey(dropped, nil)]
	assert.True(t, hasKept)
	assert.True(t, hasAdded)
	assert.False(t, hasDropped)
	assert.Equal(t, 1, repo.rows[curriculumKey(added, nil)].Coefficient)

	// Replaying the same list leaves the same state.
	_, err = svc.Replace(context.Background(), classroomID, ReplaceCurriculumRequest{
		SubjectIDs: []string{kept, added},
	})
	require.NoError(t, err)
	assert.Len(t, repo.rows, 2)
	_, hasKept = repo.rows[curriculumKey(kept, nil)]
	_, hasAdded = repo.rows[curriculumKey(added, nil)]
	assert.True(t, hasKept)
	assert.True(t, hasAdded)
}

func TestCurriculumReplaceSameSubjectAcrossYears(t *testing.T) {
	svc, repo, classroomID, yearA, yearB := newCurriculumFixture(t)
	subjectID := uuid.NewString()

	replaced, err := svc.Replace(context.Background(), classroomID, ReplaceCurriculumRequest{
		Subjects: []AssignSubjectRequest{
			{SubjectID: subjectID, Coefficient: 2, SchoolYearID: &yearA},
			{SubjectID: subjectID, Coefficient: 5, SchoolYearID: &yearB},
		},
	})
	require.NoError(t, err)
	require.Len(t, replaced, 2)
	assert.Len(t, repo.rows, 2)
	assert.Equal(t, 2, repo.rows[curriculumKey(subjectID, &yearA)].Coefficient)
	assert.Equal(t, 5, repo.rows[curriculumKey(subjectID, &yearB)].Coefficient)
}

func TestCurriculumReplaceRejectsMixedForms(t *testing.T) {
	svc, _, classroomID, _, _ := newCurriculumFixture(t)
	subjectID := uuid.NewString()

	_, err := svc.Replace(context.Background(), classroomID, ReplaceCurriculumRequest{
		SubjectIDs: []string{subjectID},
		Subjects:   []AssignSubjectRequest{{SubjectID: subjectID, Coefficient: 2}},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	_, err = svc.Replace(context.Background(), classroomID, ReplaceCurriculumRequest{})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCurriculumRemoveNilYearOnlyTouchesYearIndependentRow(t *testing.T) {
	svc, repo, classroomID, yearA, _ := newCurriculumFixture(t)
	subjectID := uuid.NewString()

	_, err := svc.Assign(context.Background(), classroomID, AssignSubjectRequest{
		SubjectID:   subjectID,
		Coefficient: 2,
	})
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), classroomID, AssignSubjectRequest{
		SubjectID:    subjectID,
		Coefficient:  3,
		SchoolYearID: &yearA,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), classroomID, subjectID, nil))

	// The year-scoped row survives.
	assert.Len(t, repo.rows, 1)
	_, ok := repo.rows[curriculumKey(subjectID, &yearA)]
	assert.True(t, ok)

	// Removing again reports not found.
	err = svc.Remove(context.Background(), classroomID, subjectID, nil)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestCurriculumCopyIsIdempotent(t *testing.T) {
	svc, repo, classroomID, yearA, yearB := newCurriculumFixture(t)

	source := make(map[string]int, 3)
	for i := 0; i < 3; i++ {
		subjectID := uuid.NewString()
		source[subjectID] = i + 1
		_, err := svc.Assign(context.Background(), classroomID, AssignSubjectRequest{
			SubjectID:    subjectID,
			Coefficient:  i + 1,
			SchoolYearID: &yearA,
		})
		require.NoError(t, err)
	}

	yearCoefficients := func(yearID string) map[string]int {
		out := make(map[string]int)
		for _, row := range repo.rows {
			if row.SchoolYearID != nil && *row.SchoolYearID == yearID {
				out[row.SubjectID] = row.Coefficient
			}
		}
		return out
	}

	copied, err := svc.Copy(context.Background(), classroomID, CopyCurriculumRequest{
		FromSchoolYearID: yearA,
		ToSchoolYearID:   yearB,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, copied)
	assert.Len(t, repo.rows, 6)

	// The target year carries the same subjects with the same
	// coefficients as the source.
	assert.Equal(t, source, yearCoefficients(yearA))
	assert.Equal(t, source, yearCoefficients(yearB))

	// Running the copy again updates rows in place instead of duplicating.
	copied, err = svc.Copy(context.Background(), classroomID, CopyCurriculumRequest{
		FromSchoolYearID: yearA,
		ToSchoolYearID:   yearB,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, copied)
	assert.Len(t, repo.rows, 6)
	assert.Equal(t, source, yearCoefficients(yearB))
}

func TestCurriculumCopySameYearRejected(t *testing.T) {
	svc, _, classroomID, yearA, _ := newCurriculumFixture(t)

	_, err := svc.Copy(context.Background(), classroomID, CopyCurriculumRequest{
		FromSchoolYearID: yearA,
		ToSchoolYearID:   yearA,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCurriculumCopyEmptySourceRejected(t *testing.T) {
	svc, _, classroomID, yearA, yearB := newCurriculumFixture(t)

	_, err := svc.Copy(context.Background(), classroomID, CopyCurriculumRequest{
		FromSchoolYearID: yearA,
		ToSchoolYearID:   yearB,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrDomain.Code, appErr.Code)
}
