package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/academiapro/academiapro-api/internal/models"
)

const studentColumns = `id, school_id, classroom_id, school_year_id, first_name, last_name, matricule,
	birth_date, gender, parent_contact, address, active, created_at, updated_at`

// StudentRepository handles student and enrollment persistence.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID retrieves a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// FindByMatricule retrieves a student by registration number within a school.
func (r *StudentRepository) FindByMatricule(ctx context.Context, schoolID, matricule string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE school_id = $1 AND matricule = $2`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, schoolID, matricule); err != nil {
		return nil, fmt.Errorf("find student by matricule: %w", err)
	}
	return &student, nil
}

// List retrieves students matching the filter with pagination.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}

	if filter.SchoolID != "" {
		where += fmt.Sprintf(" AND school_id = $%d", len(args)+1)
		args = append(args, filter.SchoolID)
	}
	if filter.ClassroomID != "" {
		where += fmt.Sprintf(" AND classroom_id = $%d", len(args)+1)
		args = append(args, filter.ClassroomID)
	}
	if filter.SchoolYearID != "" {
		where += fmt.Sprintf(" AND school_year_id = $%d", len(args)+1)
		args = append(args, filter.SchoolYearID)
	}
	if filter.Gender != "" {
		where += fmt.Sprintf(" AND gender = $%d", len(args)+1)
		args = append(args, filter.Gender)
	}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d OR matricule ILIKE $%d)",
			len(args)+1, len(args)+2, len(args)+3)
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	sortBy := "last_name"
	allowedSorts := map[string]bool{"last_name": true, "first_name": true, "matricule": true, "created_at": true}
	if allowedSorts[filter.SortBy] {
		sortBy = filter.SortBy
	}
	sortOrder := "ASC"
	if filter.SortOrder == "desc" {
		sortOrder = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM students%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		studentColumns, where, sortBy, sortOrder, len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	return students, total, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, school_id, classroom_id, school_year_id, first_name, last_name, matricule,
            birth_date, gender, parent_contact, address, active, created_at, updated_at)
        VALUES (:id, :school_id, :classroom_id, :school_year_id, :first_name, :last_name, :matricule,
            :birth_date, :gender, :parent_contact, :address, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, matricule = :matricule,
            birth_date = :birth_date, gender = :gender, parent_contact = :parent_contact, address = :address,
            active = :active, updated_at = :updated_at
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Enroll records a student's placement for a school year and updates the
// current placement on the student row, inside one transaction.
func (r *StudentRepository) Enroll(ctx context.Context, enrollment *models.Enrollment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enroll student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if _, err = tx.NamedExecContext(ctx, `INSERT INTO enrollments (id, student_id, classroom_id, school_year_id, enrolled_at)
        VALUES (:id, :student_id, :classroom_id, :school_year_id, :enrolled_at)`, enrollment); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE students SET classroom_id = $1, school_year_id = $2, updated_at = $3 WHERE id = $4`,
		enrollment.ClassroomID, enrollment.SchoolYearID, time.Now().UTC(), enrollment.StudentID); err != nil {
		return fmt.Errorf("update student placement: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enroll student: %w", err)
	}
	return nil
}

// ListEnrollments returns a student's enrollment history, most recent first.
func (r *StudentRepository) ListEnrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `
SELECT e.id, e.student_id, e.classroom_id, e.school_year_id, e.enrolled_at,
       c.name AS classroom_name, c.tuition_fee, sy.label AS school_year_label
FROM enrollments e
JOIN classrooms c ON c.id = e.classroom_id
JOIN school_years sy ON sy.id = e.school_year_id
WHERE e.student_id = $1
ORDER BY e.enrolled_at DESC`
	var rows []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return rows, nil
}
