package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academiapro/academiapro-api/internal/models"
)

func newCurriculumRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClassroomSubjectListByClassroomIncludesYearIndependentRows(t *testing.T) {
	db, mock, cleanup := newCurriculumRepoMock(t)
	defer cleanup()
	repo := NewClassroomSubjectRepository(db)

	yearID := "y1"
	rows := sqlmock.NewRows([]string{"id", "classroom_id", "subject_id", "coefficient", "school_year_id", "created_at", "updated_at", "subject_name", "subject_code"}).
		AddRow("cs1", "c1", "s1", 3, yearID, time.Now(), time.Now(), "Mathematiques", "MATH").
		AddRow("cs2", "c1", "s2", 2, nil, time.Now(), time.Now(), "Sport", "EPS")
	mock.ExpectQuery(regexp.QuoteMeta("AND (cs.school_year_id = $2 OR cs.school_year_id IS NULL)")).
		WithArgs("c1", yearID).
		WillReturnRows(rows)

	list, err := repo.ListByClassroom(context.Background(), "c1", &yearID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Mathematiques", list[0].SubjectName)
	assert.Nil(t, list[1].SchoolYearID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomSubjectUpsertConflictTarget(t *testing.T) {
	db, mock, cleanup := newCurriculumRepoMock(t)
	defer cleanup()
	repo := NewClassroomSubjectRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (classroom_id, subject_id, COALESCE(school_year_id, ''))")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assignment := &models.ClassroomSubject{ClassroomID: "c1", SubjectID: "s1", Coefficient: 4}
	require.NoError(t, repo.Upsert(context.Background(), assignment))
	assert.NotEmpty(t, assignment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomSubjectRemoveNilYearTargetsNullRow(t *testing.T) {
	db, mock, cleanup := newCurriculumRepoMock(t)
	defer cleanup()
	repo := NewClassroomSubjectRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("AND school_year_id IS NULL")).
		WithArgs("c1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := repo.Remove(context.Background(), "c1", "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomSubjectRemoveWithYear(t *testing.T) {
	db, mock, cleanup := newCurriculumRepoMock(t)
	defer cleanup()
	repo := NewClassroomSubjectRepository(db)

	yearID := "y1"
	mock.ExpectExec(regexp.QuoteMeta("AND school_year_id = $3")).
		WithArgs("c1", "s1", yearID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows, err := repo.Remove(context.Background(), "c1", "s1", &yearID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomSubjectCopyYearUpsertsIntoTarget(t *testing.T) {
	db, mock, cleanup := newCurriculumRepoMock(t)
	defer cleanup()
	repo := NewClassroomSubjectRepository(db)

	mock.ExpectBegin()
	source := sqlmock.NewRows([]string{"id", "classroom_id", "subject_id", "coefficient", "school_year_id", "created_at", "updated_at"}).
		AddRow("cs1", "c1", "s1", 3, "y1", time.Now(), time.Now()).
		AddRow("cs2", "c1", "s2", 2, "y1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE classroom_id = $1 AND school_year_id = $2")).
		WithArgs("c1", "y1").
		WillReturnRows(source)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (classroom_id, subject_id, COALESCE(school_year_id, ''))")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (classroom_id, subject_id, COALESCE(school_year_id, ''))")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	copied, err := repo.CopyYear(context.Background(), "c1", "y1", "y2")
	require.NoError(t, err)
	assert.Equal(t, 2, copied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomSubjectReplaceAllRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newCurriculumRepoMock(t)
	defer cleanup()
	repo := NewClassroomSubjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM classroom_subjects WHERE classroom_id = $1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO classroom_subjects").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.ReplaceAll(context.Background(), "c1", []models.ClassroomSubject{
		{SubjectID: "s1", Coefficient: 2},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomSubjectCountSubjects(t *testing.T) {
	db, mock, cleanup := newCurriculumRepoMock(t)
	defer cleanup()
	repo := NewClassroomSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM subjects WHERE id IN ($1,$2)")).
		WithArgs("s1", "s2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountSubjects(context.Background(), []string{"s1", "s2"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Empty input never touches the database.
	count, err = repo.CountSubjects(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
