package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/academiapro/academiapro-api/internal/models"
)

// ClassroomSubjectRepository manages the classroom curriculum: which
// subjects are taught in which classroom, with which coefficient, for
// which school year, and by which teachers.
type ClassroomSubjectRepository struct {
	db *sqlx.DB
}

// NewClassroomSubjectRepository creates a new repository.
func NewClassroomSubjectRepository(db *sqlx.DB) *ClassroomSubjectRepository {
	return &ClassroomSubjectRepository{db: db}
}

// ListByClassroom returns curriculum rows for a classroom. When a
// school year is given, year-specific rows plus year-independent rows
// are returned.
func (r *ClassroomSubjectRepository) ListByClassroom(ctx context.Context, classroomID string, schoolYearID *string) ([]models.ClassroomSubjectDetail, error) {
	query := `
SELECT cs.id, cs.classroom_id, cs.subject_id, cs.coefficient, cs.school_year_id, cs.created_at, cs.updated_at,
       s.name AS subject_name, s.code AS subject_code
FROM classroom_subjects cs
JOIN subjects s ON s.id = cs.subject_id
WHERE cs.classroom_id = $1`
	args := []interface{}{classroomID}
	if schoolYearID != nil {
		query += " AND (cs.school_year_id = $2 OR cs.school_year_id IS NULL)"
		args = append(args, *schoolYearID)
	}
	query += " ORDER BY s.name ASC"

	var rows []models.ClassroomSubjectDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list classroom subjects: %w", err)
	}
	return rows, nil
}

// ListByYear returns the year-scoped curriculum rows of a classroom.
func (r *ClassroomSubjectRepository) ListByYear(ctx context.Context, classroomID, schoolYearID string) ([]models.ClassroomSubject, error) {
	const query = `SELECT id, classroom_id, subject_id, coefficient, school_year_id, created_at, updated_at
        FROM classroom_subjects WHERE classroom_id = $1 AND school_year_id = $2 ORDER BY subject_id ASC`
	var rows []models.ClassroomSubject
	if err := r.db.SelectContext(ctx, &rows, query, classroomID, schoolYearID); err != nil {
		return nil, fmt.Errorf("list classroom subjects by year: %w", err)
	}
	return rows, nil
}

// Upsert inserts or updates one curriculum row. Uniqueness holds per
// (classroom, subject, school_year) where a NULL year counts as its own
// scope.
func (r *ClassroomSubjectRepository) Upsert(ctx context.Context, assignment *models.ClassroomSubject) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	const query = `INSERT INTO classroom_subjects (id, classroom_id, subject_id, coefficient, school_year_id, created_at, updated_at)
        VALUES (:id, :classroom_id, :subject_id, :coefficient, :school_year_id, :created_at, :updated_at)
        ON CONFLICT (classroom_id, subject_id, COALESCE(school_year_id, ''))
        DO UPDATE SET coefficient = EXCLUDED.coefficient, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("upsert classroom subject: %w", err)
	}
	return nil
}

// ReplaceAll replaces the full curriculum of a classroom with the given
// rows inside one transaction. All rows inserted or none.
func (r *ClassroomSubjectRepository) ReplaceAll(ctx context.Context, classroomID string, assignments []models.ClassroomSubject) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace classroom subjects: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM classroom_subjects WHERE classroom_id = $1`, classroomID); err != nil {
		return fmt.Errorf("clear classroom subjects: %w", err)
	}

	now := time.Now().UTC()
	for _, assignment := range assignments {
		payload := assignment
		payload.ClassroomID = classroomID
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO classroom_subjects (id, classroom_id, subject_id, coefficient, school_year_id, created_at, updated_at)
            VALUES (:id, :classroom_id, :subject_id, :coefficient, :school_year_id, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("insert classroom subject: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace classroom subjects: %w", err)
	}
	return nil
}

// Remove deletes one (classroom, subject, school_year) association. A
// nil school year deletes only the year-independent row, never the
// year-scoped ones.
func (r *ClassroomSubjectRepository) Remove(ctx context.Context, classroomID, subjectID string, schoolYearID *string) (int64, error) {
	query := `DELETE FROM classroom_subjects WHERE classroom_id = $1 AND subject_id = $2`
	args := []interface{}{classroomID, subjectID}
	if schoolYearID != nil {
		query += " AND school_year_id = $3"
		args = append(args, *schoolYearID)
	} else {
		query += " AND school_year_id IS NULL"
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("remove classroom subject: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove classroom subject rows: %w", err)
	}
	return rows, nil
}

// CopyYear duplicates every curriculum row of the source year into the
// target year, preserving coefficients, inside one transaction. Rows
// already present in the target year get their coefficient refreshed,
// so the operation is idempotent.
func (r *ClassroomSubjectRepository) CopyYear(ctx context.Context, classroomID, fromYearID, toYearID string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin copy curriculum: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var source []models.ClassroomSubject
	if err = tx.SelectContext(ctx, &source, `SELECT id, classroom_id, subject_id, coefficient, school_year_id, created_at, updated_at
        FROM classroom_subjects WHERE classroom_id = $1 AND school_year_id = $2`, classroomID, fromYearID); err != nil {
		return 0, fmt.Errorf("load source curriculum: %w", err)
	}

	now := time.Now().UTC()
	for _, row := range source {
		target := models.ClassroomSubject{
			ID:           uuid.NewString(),
			ClassroomID:  classroomID,
			SubjectID:    row.SubjectID,
			Coefficient:  row.Coefficient,
			SchoolYearID: &toYearID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO classroom_subjects (id, classroom_id, subject_id, coefficient, school_year_id, created_at, updated_at)
            VALUES (:id, :classroom_id, :subject_id, :coefficient, :school_year_id, :created_at, :updated_at)
            ON CONFLICT (classroom_id, subject_id, COALESCE(school_year_id, ''))
            DO UPDATE SET coefficient = EXCLUDED.coefficient, updated_at = EXCLUDED.updated_at`, &target); err != nil {
			return 0, fmt.Errorf("copy curriculum row: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit copy curriculum: %w", err)
	}
	return len(source), nil
}

// ReplaceTeachers replaces the teacher set of a (classroom, subject)
// pair inside one transaction.
func (r *ClassroomSubjectRepository) ReplaceTeachers(ctx context.Context, classroomID, subjectID string, teacherIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace subject teachers: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM classroom_subject_teachers WHERE classroom_id = $1 AND subject_id = $2`, classroomID, subjectID); err != nil {
		return fmt.Errorf("clear subject teachers: %w", err)
	}

	now := time.Now().UTC()
	for _, teacherID := range teacherIDs {
		link := models.ClassroomSubjectTeacher{
			ID:          uuid.NewString(),
			ClassroomID: classroomID,
			SubjectID:   subjectID,
			TeacherID:   teacherID,
			CreatedAt:   now,
		}
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO classroom_subject_teachers (id, classroom_id, subject_id, teacher_id, created_at)
            VALUES (:id, :classroom_id, :subject_id, :teacher_id, :created_at)`, &link); err != nil {
			return fmt.Errorf("insert subject teacher: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace subject teachers: %w", err)
	}
	return nil
}

// ListTeachers returns the teachers assigned to a (classroom, subject) pair.
func (r *ClassroomSubjectRepository) ListTeachers(ctx context.Context, classroomID, subjectID string) ([]models.ClassroomSubjectTeacherDetail, error) {
	const query = `
SELECT cst.id, cst.classroom_id, cst.subject_id, cst.teacher_id, cst.created_at,
       t.first_name || ' ' || t.last_name AS teacher_name
FROM classroom_subject_teachers cst
JOIN teachers t ON t.id = cst.teacher_id
WHERE cst.classroom_id = $1 AND cst.subject_id = $2
ORDER BY teacher_name ASC`
	var rows []models.ClassroomSubjectTeacherDetail
	if err := r.db.SelectContext(ctx, &rows, query, classroomID, subjectID); err != nil {
		return nil, fmt.Errorf("list subject teachers: %w", err)
	}
	return rows, nil
}

// CountSubjects reports how many of the provided subject ids exist.
// Lets the service reject payloads referencing unknown subjects before
// mutating anything.
func (r *ClassroomSubjectRepository) CountSubjects(ctx context.Context, subjectIDs []string) (int, error) {
	if len(subjectIDs) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(subjectIDs))
	args := make([]interface{}, len(subjectIDs))
	for i, id := range subjectIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM subjects WHERE id IN (%s)`, strings.Join(placeholders, ","))
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count subjects: %w", err)
	}
	return count, nil
}

// CountTeachers reports how many of the provided teacher ids exist.
func (r *ClassroomSubjectRepository) CountTeachers(ctx context.Context, teacherIDs []string) (int, error) {
	if len(teacherIDs) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(teacherIDs))
	args := make([]interface{}, len(teacherIDs))
	for i, id := range teacherIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM teachers WHERE id IN (%s)`, strings.Join(placeholders, ","))
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count teachers: %w", err)
	}
	return count, nil
}
