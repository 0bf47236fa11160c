package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/academiapro/academiapro-api/internal/models"
)

const reportCardColumns = `id, student_id, school_year_id, term_id, title, overall_average, subjects, file_path, generated_at`

// ReportCardRepository persists generated report cards. Subject lines
// are stored as a jsonb column.
type ReportCardRepository struct {
	db *sqlx.DB
}

// NewReportCardRepository creates a new repository.
func NewReportCardRepository(db *sqlx.DB) *ReportCardRepository {
	return &ReportCardRepository{db: db}
}

// FindByID retrieves a report card by id.
func (r *ReportCardRepository) FindByID(ctx context.Context, id string) (*models.ReportCard, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_cards WHERE id = $1`, reportCardColumns)
	var card models.ReportCard
	if err := r.db.GetContext(ctx, &card, query, id); err != nil {
		return nil, fmt.Errorf("find report card by id: %w", err)
	}
	if err := decodeSubjects(&card); err != nil {
		return nil, err
	}
	return &card, nil
}

// FindForStudent retrieves the report card of a student for a year and
// optional term.
func (r *ReportCardRepository) FindForStudent(ctx context.Context, studentID, schoolYearID string, termID *string) (*models.ReportCard, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_cards WHERE student_id = $1 AND school_year_id = $2`, reportCardColumns)
	args := []interface{}{studentID, schoolYearID}
	if termID != nil {
		query += " AND term_id = $3"
		args = append(args, *termID)
	} else {
		query += " AND term_id IS NULL"
	}
	var card models.ReportCard
	if err := r.db.GetContext(ctx, &card, query, args...); err != nil {
		return nil, fmt.Errorf("find report card for student: %w", err)
	}
	if err := decodeSubjects(&card); err != nil {
		return nil, err
	}
	return &card, nil
}

// ListByStudent returns all report cards of a student, newest first.
func (r *ReportCardRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ReportCard, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_cards WHERE student_id = $1 ORDER BY generated_at DESC`, reportCardColumns)
	var cards []models.ReportCard
	if err := r.db.SelectContext(ctx, &cards, query, studentID); err != nil {
		return nil, fmt.Errorf("list report cards: %w", err)
	}
	for i := range cards {
		if err := decodeSubjects(&cards[i]); err != nil {
			return nil, err
		}
	}
	return cards, nil
}

// Save inserts or replaces the report card for the student and scope.
// Regenerating is expected; the latest aggregate wins.
func (r *ReportCardRepository) Save(ctx context.Context, card *models.ReportCard) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if card.GeneratedAt.IsZero() {
		card.GeneratedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(card.Subjects)
	if err != nil {
		return fmt.Errorf("encode report card subjects: %w", err)
	}
	card.SubjectsRaw = raw
	const query = `INSERT INTO report_cards (id, student_id, school_year_id, term_id, title, overall_average,
            subjects, file_path, generated_at)
        VALUES (:id, :student_id, :school_year_id, :term_id, :title, :overall_average,
            :subjects, :file_path, :generated_at)
        ON CONFLICT (student_id, school_year_id, COALESCE(term_id, ''))
        DO UPDATE SET title = EXCLUDED.title, overall_average = EXCLUDED.overall_average,
            subjects = EXCLUDED.subjects, file_path = EXCLUDED.file_path, generated_at = EXCLUDED.generated_at`
	if _, err := r.db.NamedExecContext(ctx, query, card); err != nil {
		return fmt.Errorf("save report card: %w", err)
	}
	return nil
}

// UpdateFilePath records where the rendered PDF was stored.
func (r *ReportCardRepository) UpdateFilePath(ctx context.Context, id, filePath string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE report_cards SET file_path = $1 WHERE id = $2`, filePath, id)
	if err != nil {
		return fmt.Errorf("update report card file path: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update report card file path rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func decodeSubjects(card *models.ReportCard) error {
	if len(card.SubjectsRaw) == 0 {
		card.Subjects = nil
		return nil
	}
	if err := json.Unmarshal(card.SubjectsRaw, &card.Subjects); err != nil {
		return fmt.Errorf("decode report card subjects: %w", err)
	}
	return nil
}
