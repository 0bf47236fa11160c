package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/academiapro/academiapro-api/internal/models"
)

const paymentColumns = `id, student_id, school_id, school_year_id, amount, payment_date, type, notes, created_at`

// PaymentRepository manages the append-only payment ledger. Rows are
// only ever inserted; corrections go in as REVERSAL entries.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindByID retrieves a payment by id.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, fmt.Errorf("find payment by id: %w", err)
	}
	return &payment, nil
}

// Create appends a ledger entry.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = now
	}
	payment.CreatedAt = now
	const query = `INSERT INTO payments (id, student_id, school_id, school_year_id, amount, payment_date, type,
            notes, created_at)
        VALUES (:id, :student_id, :school_id, :school_year_id, :amount, :payment_date, :type, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// List returns ledger entries matching the filter, most recent payment
// first.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}

	if filter.StudentID != "" {
		where += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.SchoolYearID != "" {
		where += fmt.Sprintf(" AND school_year_id = $%d", len(args)+1)
		args = append(args, filter.SchoolYearID)
	}
	if filter.Type != "" {
		where += fmt.Sprintf(" AND type = $%d", len(args)+1)
		args = append(args, filter.Type)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM payments`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM payments%s ORDER BY payment_date DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		paymentColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	return payments, total, nil
}

// SumForStudent returns the effective paid total of a student for a
// school year: reversal entries subtract from the sum.
func (r *PaymentRepository) SumForStudent(ctx context.Context, studentID string, schoolYearID *string) (float64, error) {
	query := `SELECT COALESCE(SUM(CASE WHEN type = 'REVERSAL' THEN -amount ELSE amount END), 0)
        FROM payments WHERE student_id = $1`
	args := []interface{}{studentID}
	if schoolYearID != nil {
		query += " AND school_year_id = $2"
		args = append(args, *schoolYearID)
	}
	var total float64
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("sum payments for student: %w", err)
	}
	return total, nil
}

// ExpectedForStudent returns the tuition owed by a student: the sum of
// tuition fees across their enrollments, optionally scoped to one year.
func (r *PaymentRepository) ExpectedForStudent(ctx context.Context, studentID string, schoolYearID *string) (float64, error) {
	query := `SELECT COALESCE(SUM(c.tuition_fee), 0)
        FROM enrollments e JOIN classrooms c ON c.id = e.classroom_id
        WHERE e.student_id = $1`
	args := []interface{}{studentID}
	if schoolYearID != nil {
		query += " AND e.school_year_id = $2"
		args = append(args, *schoolYearID)
	}
	var total float64
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("sum expected for student: %w", err)
	}
	return total, nil
}

// ClassroomCollections aggregates expected and collected amounts per
// classroom for a school year.
func (r *PaymentRepository) ClassroomCollections(ctx context.Context, schoolID, schoolYearID string) ([]models.ClassroomCollection, error) {
	const query = `
SELECT c.id AS classroom_id,
       COUNT(DISTINCT e.student_id) AS student_count,
       COUNT(DISTINCT e.student_id) * c.tuition_fee AS expected,
       COALESCE((
           SELECT SUM(CASE WHEN p.type = 'REVERSAL' THEN -p.amount ELSE p.amount END)
           FROM payments p
           JOIN enrollments pe ON pe.student_id = p.student_id AND pe.school_year_id = p.school_year_id
           WHERE pe.classroom_id = c.id AND p.school_year_id = $2
       ), 0) AS collected
FROM classrooms c
LEFT JOIN enrollments e ON e.classroom_id = c.id AND e.school_year_id = $2
WHERE c.school_id = $1 AND c.school_year_id = $2
GROUP BY c.id, c.tuition_fee
ORDER BY c.id`
	var rows []models.ClassroomCollection
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, schoolYearID); err != nil {
		return nil, fmt.Errorf("list classroom collections: %w", err)
	}
	for i := range rows {
		rows[i].Outstanding = rows[i].Expected - rows[i].Collected
	}
	return rows, nil
}
