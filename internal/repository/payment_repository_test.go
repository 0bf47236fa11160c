package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academiapro/academiapro-api/internal/models"
)

func TestPaymentCreateGeneratesIDAndDate(t *testing.T) {
	db, mock, cleanup := newCurriculumRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	payment := &models.Payment{StudentID: "st1", Amount: 25000, Type: models.PaymentTuition}
	require.NoError(t, repo.Create(context.Background(), payment))
	assert.NotEmpty(t, payment.ID)
	assert.False(t, payment.PaymentDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentListFiltersAndOrders(t *testing.T) {
	db, mock, cleanup := newCurriculumRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM payments WHERE 1=1 AND student_id = $1 AND school_year_id = $2")).
		WithArgs("st1", "y1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	rows := sqlmock.NewRows([]string{"id", "student_id", "school_id", "school_year_id", "amount", "payment_date", "type", "notes", "created_at"}).
		AddRow("p2", "st1", nil, "y1", 30000, time.Now(), "TUITION", nil, time.Now()).
		AddRow("p1", "st1", nil, "y1", 25000, time.Now().Add(-24*time.Hour), "TUITION", nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY payment_date DESC, created_at DESC LIMIT $3 OFFSET $4")).
		WithArgs("st1", "y1", 20, 0).
		WillReturnRows(rows)

	payments, total, err := repo.List(context.Background(), models.PaymentFilter{
		StudentID:    "st1",
		SchoolYearID: "y1",
		Page:         1,
		PageSize:     20,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, payments, 2)
	assert.Equal(t, "p2", payments[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentSumForStudentSubtractsReversals(t *testing.T) {
	db, mock, cleanup := newCurriculumRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	yearID := "y1"
	mock.ExpectQuery(regexp.QuoteMeta("SUM(CASE WHEN type = 'REVERSAL' THEN -amount ELSE amount END)")).
		WithArgs("st1", yearID).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(45000.0))

	total, err := repo.SumForStudent(context.Background(), "st1", &yearID)
	require.NoError(t, err)
	assert.Equal(t, 45000.0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentSumForStudentAllYears(t *testing.T) {
	db, mock, cleanup := newCurriculumRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE student_id = $1")).
		WithArgs("st1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0.0))

	total, err := repo.SumForStudent(context.Background(), "st1", nil)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentExpectedForStudentJoinsEnrollments(t *testing.T) {
	db, mock, cleanup := newCurriculumRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	yearID := "y1"
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments e JOIN classrooms c ON c.id = e.classroom_id")).
		WithArgs("st1", yearID).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(120000.0))

	total, err := repo.ExpectedForStudent(context.Background(), "st1", &yearID)
	require.NoError(t, err)
	assert.Equal(t, 120000.0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentClassroomCollectionsComputesOutstanding(t *testing.T) {
	db, mock, cleanup := newCurriculumRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	rows := sqlmock.NewRows([]string{"classroom_id", "student_count", "expected", "collected"}).
		AddRow("c1", 30, 3600000.0, 2100000.0).
		AddRow("c2", 25, 3000000.0, 3000000.0)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY c.id, c.tuition_fee")).
		WithArgs("sch1", "y1").
		WillReturnRows(rows)

	collections, err := repo.ClassroomCollections(context.Background(), "sch1", "y1")
	require.NoError(t, err)
	require.Len(t, collections, 2)
	assert.Equal(t, 1500000.0, collections[0].Outstanding)
	assert.Zero(t, collections[1].Outstanding)
	assert.NoError(t, mock.ExpectationsWereMet())
}
