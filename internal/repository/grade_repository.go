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

const gradeColumns = `id, student_id, assignment_id, score, assignment_type, notes, graded_at, created_at, updated_at`

// GradeRepository handles grade persistence and the read models backing
// report cards and rankings.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// FindByID retrieves a grade by id.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	query := fmt.Sprintf(`SELECT %s FROM grades WHERE id = $1`, gradeColumns)
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		return nil, fmt.Errorf("find grade by id: %w", err)
	}
	return &grade, nil
}

// ExistsForAssignment checks whether the student already has a grade on
// the assignment.
func (r *GradeRepository) ExistsForAssignment(ctx context.Context, studentID, assignmentID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM grades WHERE student_id = $1 AND assignment_id = $2)`,
		studentID, assignmentID); err != nil {
		return false, fmt.Errorf("check grade exists: %w", err)
	}
	return exists, nil
}

// List retrieves grades matching the filter, most recent first.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	where := " WHERE 1=1"
	args := []interface{}{}

	if filter.StudentID != "" {
		where += fmt.Sprintf(" AND g.student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.AssignmentID != "" {
		where += fmt.Sprintf(" AND g.assignment_id = $%d", len(args)+1)
		args = append(args, filter.AssignmentID)
	}
	if filter.ClassroomID != "" {
		where += fmt.Sprintf(" AND a.classroom_id = $%d", len(args)+1)
		args = append(args, filter.ClassroomID)
	}

	query := `SELECT g.id, g.student_id, g.assignment_id, g.score, g.assignment_type, g.notes, g.graded_at,
        g.created_at, g.updated_at
        FROM grades g JOIN assignments a ON a.id = g.assignment_id` + where + ` ORDER BY g.graded_at DESC`

	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// Create inserts a new grade.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.GradedAt.IsZero() {
		grade.GradedAt = now
	}
	grade.CreatedAt = now
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, student_id, assignment_id, score, assignment_type, notes, graded_at,
            created_at, updated_at)
        VALUES (:id, :student_id, :assignment_id, :score, :assignment_type, :notes, :graded_at,
            :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// Update modifies an existing grade.
func (r *GradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	grade.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grades SET score = :score, assignment_type = :assignment_type, notes = :notes,
            graded_at = :graded_at, updated_at = :updated_at
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, grade)
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update grade rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a grade.
func (r *GradeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM grades WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete grade rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListForReportCard returns a student's grades joined with assignment
// subject and scale, scoped to the classroom of the assignments. Only
// subject-bound assignments participate in report cards.
func (r *GradeRepository) ListForReportCard(ctx context.Context, studentID, classroomID string) ([]models.GradeWithAssignment, error) {
	const query = `
SELECT g.id, g.student_id, g.assignment_id, g.score, g.assignment_type, g.notes, g.graded_at,
       g.created_at, g.updated_at,
       a.subject_id, s.name AS subject_name, a.max_score, a.type AS assignment_kind
FROM grades g
JOIN assignments a ON a.id = g.assignment_id
LEFT JOIN subjects s ON s.id = a.subject_id
WHERE g.student_id = $1 AND a.classroom_id = $2 AND a.subject_id IS NOT NULL
ORDER BY g.graded_at ASC`
	var rows []models.GradeWithAssignment
	if err := r.db.SelectContext(ctx, &rows, query, studentID, classroomID); err != nil {
		return nil, fmt.Errorf("list grades for report card: %w", err)
	}
	return rows, nil
}

// AverageRows returns each student of a classroom with the mean of
// their grade percentages on one assignment or across the classroom.
// Ranks are assigned by the service layer.
func (r *GradeRepository) AverageRows(ctx context.Context, classroomID string, assignmentID string) ([]models.RankingRow, error) {
	query := `
SELECT st.id AS student_id, st.first_name || ' ' || st.last_name AS student_name,
       AVG(g.score / NULLIF(a.max_score, 0) * 100) AS score
FROM grades g
JOIN assignments a ON a.id = g.assignment_id
JOIN students st ON st.id = g.student_id
WHERE a.classroom_id = $1`
	args := []interface{}{classroomID}
	if assignmentID != "" {
		query += " AND a.id = $2"
		args = append(args, assignmentID)
	}
	query += `
GROUP BY st.id, st.first_name, st.last_name
ORDER BY score DESC, student_name ASC`

	var rows []models.RankingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list ranking rows: %w", err)
	}
	return rows, nil
}
