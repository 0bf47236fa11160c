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

// EvaluationTypeRepository handles weighted assessment categories.
type EvaluationTypeRepository struct {
	db *sqlx.DB
}

// NewEvaluationTypeRepository creates a new repository.
func NewEvaluationTypeRepository(db *sqlx.DB) *EvaluationTypeRepository {
	return &EvaluationTypeRepository{db: db}
}

// FindByID retrieves an evaluation type by id.
func (r *EvaluationTypeRepository) FindByID(ctx context.Context, id string) (*models.EvaluationType, error) {
	const query = `SELECT id, school_year_id, name, weight, created_at, updated_at FROM evaluation_types WHERE id = $1`
	var et models.EvaluationType
	if err := r.db.GetContext(ctx, &et, query, id); err != nil {
		return nil, fmt.Errorf("find evaluation type by id: %w", err)
	}
	return &et, nil
}

// ListByYear returns the evaluation types of a school year.
func (r *EvaluationTypeRepository) ListByYear(ctx context.Context, schoolYearID string) ([]models.EvaluationType, error) {
	const query = `SELECT id, school_year_id, name, weight, created_at, updated_at
        FROM evaluation_types WHERE school_year_id = $1 ORDER BY name ASC`
	var types []models.EvaluationType
	if err := r.db.SelectContext(ctx, &types, query, schoolYearID); err != nil {
		return nil, fmt.Errorf("list evaluation types: %w", err)
	}
	return types, nil
}

// Create inserts a new evaluation type.
func (r *EvaluationTypeRepository) Create(ctx context.Context, et *models.EvaluationType) error {
	if et.ID == "" {
		et.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	et.CreatedAt = now
	et.UpdatedAt = now
	const query = `INSERT INTO evaluation_types (id, school_year_id, name, weight, created_at, updated_at)
        VALUES (:id, :school_year_id, :name, :weight, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, et); err != nil {
		return fmt.Errorf("create evaluation type: %w", err)
	}
	return nil
}

// Update modifies an existing evaluation type.
func (r *EvaluationTypeRepository) Update(ctx context.Context, et *models.EvaluationType) error {
	et.UpdatedAt = time.Now().UTC()
	const query = `UPDATE evaluation_types SET name = :name, weight = :weight, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, et)
	if err != nil {
		return fmt.Errorf("update evaluation type: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update evaluation type rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an evaluation type.
func (r *EvaluationTypeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM evaluation_types WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete evaluation type: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete evaluation type rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
