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

// SchoolYearRepository provides database access for school years.
type SchoolYearRepository struct {
	db *sqlx.DB
}

// NewSchoolYearRepository creates a new repository.
func NewSchoolYearRepository(db *sqlx.DB) *SchoolYearRepository {
	return &SchoolYearRepository{db: db}
}

const schoolYearColumns = `id, school_id, label, year_start, year_end, start_date, end_date, active, created_at, updated_at`

// FindByID returns a school year by identifier.
func (r *SchoolYearRepository) FindByID(ctx context.Context, id string) (*models.SchoolYear, error) {
	query := fmt.Sprintf(`SELECT %s FROM school_years WHERE id = $1 LIMIT 1`, schoolYearColumns)
	var year models.SchoolYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find school year by id: %w", err)
	}
	return &year, nil
}

// List returns school years matching the filter with total count.
func (r *SchoolYearRepository) List(ctx context.Context, filter models.SchoolYearFilter) ([]models.SchoolYear, int, error) {
	baseQuery := `FROM school_years WHERE 1=1`
	var args []interface{}

	if filter.SchoolID != "" {
		baseQuery += fmt.Sprintf(" AND school_id = $%d", len(args)+1)
		args = append(args, filter.SchoolID)
	}
	if filter.Active != nil {
		baseQuery += fmt.Sprintf(" AND active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY year_start DESC LIMIT %d OFFSET %d",
		schoolYearColumns, baseQuery, pageSize, (page-1)*pageSize)
	var years []models.SchoolYear
	if err := r.db.SelectContext(ctx, &years, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list school years: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count school years: %w", err)
	}
	return years, total, nil
}

// Create inserts a new school year.
func (r *SchoolYearRepository) Create(ctx context.Context, year *models.SchoolYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	year.CreatedAt = now
	year.UpdatedAt = now
	const query = `INSERT INTO school_years (id, school_id, label, year_start, year_end, start_date, end_date, active, created_at, updated_at)
        VALUES (:id, :school_id, :label, :year_start, :year_end, :start_date, :end_date, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create school year: %w", err)
	}
	return nil
}

// Update modifies a school year record.
func (r *SchoolYearRepository) Update(ctx context.Context, year *models.SchoolYear) error {
	year.UpdatedAt = time.Now().UTC()
	const query = `UPDATE school_years SET label = :label, year_start = :year_start, year_end = :year_end,
        start_date = :start_date, end_date = :end_date, active = :active, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, year)
	if err != nil {
		return fmt.Errorf("update school year: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Activate marks the given year active and deactivates every other year
// of the same school, inside one transaction. At most one year stays
// active per school.
func (r *SchoolYearRepository) Activate(ctx context.Context, schoolID, yearID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate school year: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE school_years SET active = FALSE, updated_at = NOW() WHERE school_id = $1 AND active = TRUE`, schoolID); err != nil {
		return fmt.Errorf("deactivate school years: %w", err)
	}
	var result sql.Result
	if result, err = tx.ExecContext(ctx, `UPDATE school_years SET active = TRUE, updated_at = NOW() WHERE id = $1 AND school_id = $2`, yearID, schoolID); err != nil {
		return fmt.Errorf("activate school year: %w", err)
	}
	if rows, raErr := result.RowsAffected(); raErr == nil && rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit activate school year: %w", err)
	}
	return nil
}

// CountDependents counts classrooms still referencing the school year.
// Deletion is refused while the count is non-zero.
func (r *SchoolYearRepository) CountDependents(ctx context.Context, yearID string) (int, error) {
	const query = `SELECT COUNT(*) FROM classrooms WHERE school_year_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, yearID); err != nil {
		return 0, fmt.Errorf("count school year dependents: %w", err)
	}
	return count, nil
}

// Delete removes a school year.
func (r *SchoolYearRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM school_years WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete school year: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
