package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/academiapro/academiapro-api/internal/models"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
	"github.com/academiapro/academiapro-api/pkg/export"
	"github.com/academiapro/academiapro-api/pkg/jobs"
)

// JobTypeReportCardPDF identifies report card render jobs on the
// document queue.
const JobTypeReportCardPDF = "report_card_pdf"

type gradeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	ExistsForAssignment(ctx context.Context, studentID, assignmentID string) (bool, error)
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	Delete(ctx context.Context, id string) error
	ListForReportCard(ctx context.Context, studentID, classroomID string) ([]models.GradeWithAssignment, error)
	AverageRows(ctx context.Context, classroomID string, assignmentID string) ([]models.RankingRow, error)
}

type gradeAssignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type gradeStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type gradeEvaluationTypeRepository interface {
	ListByYear(ctx context.Context, schoolYearID string) ([]models.EvaluationType, error)
}

type gradeCurriculumRepository interface {
	ListByClassroom(ctx context.Context, classroomID string, schoolYearID *string) ([]models.ClassroomSubjectDetail, error)
}

type reportCardRepository interface {
	FindByID(ctx context.Context, id string) (*models.ReportCard, error)
	FindForStudent(ctx context.Context, studentID, schoolYearID string, termID *string) (*models.ReportCard, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.ReportCard, error)
	Save(ctx context.Context, card *models.ReportCard) error
	UpdateFilePath(ctx context.Context, id, filePath string) error
}

type documentStore interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
}

type documentQueue interface {
	Enqueue(job jobs.Job) error
}

// GradingConfig carries the grading scale. Subject and overall averages
// are expressed on ScaleMax regardless of each assignment's max score.
type GradingConfig struct {
	ScaleMax float64
}

// RecordGradeRequest creates a grade for a student on an assignment.
// GradedAt defaults to the current time when omitted.
type RecordGradeRequest struct {
	StudentID      string                `json:"student_id" validate:"required,uuid4"`
	AssignmentID   string                `json:"assignment_id" validate:"required,uuid4"`
	Score          float64               `json:"score"`
	AssignmentType *models.GradeCategory `json:"assignment_type" validate:"omitempty,oneof=exam homework participation project test"`
	Notes          *string               `json:"notes"`
	GradedAt       *time.Time            `json:"graded_at"`
}

// UpdateGradeRequest corrects an existing grade. Every field is
// optional; only the fields present in the payload are applied, so a
// caller can reclassify the category without touching the score.
type UpdateGradeRequest struct {
	Score          *float64              `json:"score"`
	AssignmentType *models.GradeCategory `json:"assignment_type" validate:"omitempty,oneof=exam homework participation project test"`
	Notes          *string               `json:"notes"`
	GradedAt       *time.Time            `json:"graded_at"`
}

// GenerateReportCardRequest triggers report card aggregation.
type GenerateReportCardRequest struct {
	StudentID    string  `json:"student_id" validate:"required,uuid4"`
	SchoolYearID string  `json:"school_year_id" validate:"required,uuid4"`
	TermID       *string `json:"term_id" validate:"omitempty,uuid4"`
	Title        string  `json:"title"`
}

// GradebookService records grades, aggregates report cards and computes
// classroom rankings. Report card PDFs render asynchronously on the
// document queue with a synchronous fallback at download time.
type GradebookService struct {
	grades      gradeRepository
	assignments gradeAssignmentRepository
	students    gradeStudentRepository
	evalTypes   gradeEvaluationTypeRepository
	curriculum  gradeCurriculumRepository
	reportCards reportCardRepository
	store       documentStore
	queue       documentQueue
	exporter    *export.PDFExporter
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     *MetricsService
	config      GradingConfig
}

// SetMetrics attaches Prometheus instrumentation for document renders.
func (s *GradebookService) SetMetrics(m *MetricsService) {
	s.metrics = m
}

// NewGradebookService constructs a GradebookService instance. queue and
// store may be nil in which case PDFs render synchronously on download.
func NewGradebookService(
	grades gradeRepository,
	assignments gradeAssignmentRepository,
	students gradeStudentRepository,
	evalTypes gradeEvaluationTypeRepository,
	curriculum gradeCurriculumRepository,
	reportCards reportCardRepository,
	store documentStore,
	queue documentQueue,
	validate *validator.Validate,
	logger *zap.Logger,
	config GradingConfig,
) *GradebookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.ScaleMax <= 0 {
		config.ScaleMax = 20
	}
	return &GradebookService{
		grades:      grades,
		assignments: assignments,
		students:    students,
		evalTypes:   evalTypes,
		curriculum:  curriculum,
		reportCards: reportCards,
		store:       store,
		queue:       queue,
		exporter:    export.NewPDFExporter(),
		validator:   validate,
		logger:      logger,
		config:      config,
	}
}

// RecordGrade creates a grade. The score must sit between zero and the
// assignment's max score; a student gets at most one grade per
// assignment.
func (s *GradebookService) RecordGrade(ctx context.Context, req RecordGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	assignment, err := s.loadAssignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkScore(req.Score, assignment.MaxScore); err != nil {
		return nil, err
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	exists, err := s.grades.ExistsForAssignment(ctx, req.StudentID, req.AssignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing grade")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has a grade for this assignment")
	}

	grade := &models.Grade{
		StudentID:      req.StudentID,
		AssignmentID:   req.AssignmentID,
		Score:          req.Score,
		AssignmentType: req.AssignmentType,
		Notes:          req.Notes,
	}
	if req.GradedAt != nil {
		grade.GradedAt = req.GradedAt.UTC()
	}
	if err := s.grades.Create(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}
	return grade, nil
}

// UpdateGrade corrects the score, category or notes of a grade. The
// same score bound applies as on creation.
func (s *GradebookService) UpdateGrade(ctx context.Context, id string, req UpdateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	grade, err := s.grades.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}

	if req.Score != nil {
		assignment, err := s.loadAssignment(ctx, grade.AssignmentID)
		if err != nil {
			return nil, err
		}
		if err := s.checkScore(*req.Score, assignment.MaxScore); err != nil {
			return nil, err
		}
		grade.Score = *req.Score
		grade.GradedAt = time.Now().UTC()
	}
	if req.Notes != nil {
		grade.Notes = req.Notes
	}
	if req.AssignmentType != nil {
		grade.AssignmentType = req.AssignmentType
	}
	if req.GradedAt != nil {
		grade.GradedAt = req.GradedAt.UTC()
	}

	if err := s.grades.Update(ctx, grade); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}
	return grade, nil
}

// ListGrades returns grades matching the filter.
func (s *GradebookService) ListGrades(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	grades, err := s.grades.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// DeleteGrade removes a grade.
func (s *GradebookService) DeleteGrade(ctx context.Context, id string) error {
	if err := s.grades.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade")
	}
	return nil
}

// GenerateReportCard aggregates a student's grades into per-subject
// averages and an overall average.
//
// Each grade is normalised onto the configured scale, then weighted by
// the school year's evaluation type matching the grade's category
// (weight 1 when no category or no matching type). The overall average
// weights each subject by its curriculum coefficient.
func (s *GradebookService) GenerateReportCard(ctx context.Context, req GenerateReportCardRequest) (*models.ReportCard, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report card payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.ClassroomID == nil {
		return nil, appErrors.Clone(appErrors.ErrDomain, "student is not enrolled in a classroom")
	}

	grades, err := s.grades.ListForReportCard(ctx, req.StudentID, *student.ClassroomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}
	if len(grades) == 0 {
		return nil, appErrors.Clone(appErrors.ErrDomain, "student has no grades to aggregate")
	}

	weights, err := s.evaluationWeights(ctx, req.SchoolYearID)
	if err != nil {
		return nil, err
	}
	coefficients, err := s.subjectCoefficients(ctx, *student.ClassroomID, req.SchoolYearID)
	if err != nil {
		return nil, err
	}

	subjects := s.aggregateSubjects(grades, weights, coefficients)

	var weightedSum, coefSum float64
	for _, subject := range subjects {
		weightedSum += subject.Average * float64(subject.Coefficient)
		coefSum += float64(subject.Coefficient)
	}
	overall := 0.0
	if coefSum > 0 {
		overall = weightedSum / coefSum
	}

	title := req.Title
	if title == "" {
		title = fmt.Sprintf("Bulletin de notes - %s %s", student.FirstName, student.LastName)
	}

	card := &models.ReportCard{
		ID:             uuid.NewString(),
		StudentID:      req.StudentID,
		SchoolYearID:   req.SchoolYearID,
		TermID:         req.TermID,
		Title:          title,
		OverallAverage: round2(overall),
		Subjects:       subjects,
		GeneratedAt:    time.Now().UTC(),
	}

	if err := s.reportCards.Save(ctx, card); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save report card")
	}

	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{
			ID:      uuid.NewString(),
			Type:    JobTypeReportCardPDF,
			Payload: card.ID,
		}); err != nil {
			s.logger.Warn("failed to enqueue report card render", zap.String("report_card_id", card.ID), zap.Error(err))
		}
	}
	return card, nil
}

// GetReportCard returns a stored report card.
func (s *GradebookService) GetReportCard(ctx context.Context, id string) (*models.ReportCard, error) {
	card, err := s.reportCards.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report card not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report card")
	}
	return card, nil
}

// ListReportCards returns all report cards of a student.
func (s *GradebookService) ListReportCards(ctx context.Context, studentID string) ([]models.ReportCard, error) {
	cards, err := s.reportCards.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report cards")
	}
	return cards, nil
}

// DownloadReportCard returns the rendered PDF of a report card. When
// the background render has not completed yet, the PDF renders inline.
func (s *GradebookService) DownloadReportCard(ctx context.Context, id string) ([]byte, string, error) {
	card, err := s.GetReportCard(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if card.FilePath != nil && s.store != nil {
		data, err := s.store.Read(*card.FilePath)
		if err == nil {
			return data, *card.FilePath, nil
		}
		s.logger.Warn("stored report card unreadable, re-rendering", zap.String("report_card_id", id), zap.Error(err))
	}

	data, filename, err := s.renderReportCard(ctx, card)
	if err != nil {
		return nil, "", err
	}
	return data, filename, nil
}

// RenderReportCardJob is the document queue handler for report card
// render jobs. The payload is the report card id.
func (s *GradebookService) RenderReportCardJob(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("report card job payload must be a string, got %T", job.Payload)
	}
	card, err := s.reportCards.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load report card %s: %w", id, err)
	}
	if _, _, err := s.renderReportCard(ctx, card); err != nil {
		return fmt.Errorf("render report card %s: %w", id, err)
	}
	return nil
}

// Ranking orders the students of a classroom by their average grade
// percentage, optionally restricted to one assignment. Tied scores
// share a rank and the ranks after a tie are skipped.
func (s *GradebookService) Ranking(ctx context.Context, classroomID string, assignmentID string) ([]models.RankingRow, error) {
	rows, err := s.grades.AverageRows(ctx, classroomID, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute ranking")
	}
	AssignRanks(rows)
	return rows, nil
}

// AssignRanks applies standard competition ranking to rows already
// sorted by score descending: equal scores share a rank and the next
// distinct score takes rank position+1.
func AssignRanks(rows []models.RankingRow) {
	for i := range rows {
		if i > 0 && rows[i].Score == rows[i-1].Score {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}
}

func (s *GradebookService) renderReportCard(ctx context.Context, card *models.ReportCard) ([]byte, string, error) {
	student, err := s.students.FindByID(ctx, card.StudentID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	dataset := export.Dataset{
		Headers: []string{"Matiere", "Coefficient", "Moyenne", "Notes"},
		Summary: []export.SummaryLine{
			{Label: "Eleve", Value: fmt.Sprintf("%s %s (%s)", student.FirstName, student.LastName, student.Matricule)},
			{Label: "Moyenne generale", Value: fmt.Sprintf("%.2f / %.0f", card.OverallAverage, s.config.ScaleMax)},
			{Label: "Genere le", Value: card.GeneratedAt.Format("2006-01-02")},
		},
	}
	for _, subject := range card.Subjects {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Matiere":     subject.SubjectName,
			"Coefficient": fmt.Sprintf("%d", subject.Coefficient),
			"Moyenne":     fmt.Sprintf("%.2f", subject.Average),
			"Notes":       fmt.Sprintf("%d", subject.GradeCount),
		})
	}

	data, err := s.exporter.Render(dataset, card.Title)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report card")
	}
	s.metrics.RecordDocumentRendered("report_card")

	filename := fmt.Sprintf("report-card-%s.pdf", card.ID)
	if s.store != nil {
		if _, err := s.store.Save(filename, data); err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report card")
		}
		if err := s.reportCards.UpdateFilePath(ctx, card.ID, filename); err != nil {
			s.logger.Warn("failed to record report card file path", zap.String("report_card_id", card.ID), zap.Error(err))
		}
	}
	return data, filename, nil
}

func (s *GradebookService) aggregateSubjects(grades []models.GradeWithAssignment, weights map[string]float64, coefficients map[string]int) []models.ReportCardSubject {
	type accumulator struct {
		name      string
		weighted  float64
		weightSum float64
		count     int
	}
	order := make([]string, 0)
	bySubject := make(map[string]*accumulator)

	for _, grade := range grades {
		if grade.SubjectID == nil || grade.MaxScore <= 0 {
			continue
		}
		subjectID := *grade.SubjectID
		acc, ok := bySubject[subjectID]
		if !ok {
			name := subjectID
			if grade.SubjectName != nil {
				name = *grade.SubjectName
			}
			acc = &accumulator{name: name}
			bySubject[subjectID] = acc
			order = append(order, subjectID)
		}

		weight := 1.0
		if grade.AssignmentType != nil {
			if w, ok := weights[strings.ToLower(string(*grade.AssignmentType))]; ok && w > 0 {
				weight = w
			}
		}
		normalized := grade.Score / grade.MaxScore * s.config.ScaleMax
		acc.weighted += normalized * weight
		acc.weightSum += weight
		acc.count++
	}

	subjects := make([]models.ReportCardSubject, 0, len(order))
	for _, subjectID := range order {
		acc := bySubject[subjectID]
		if acc.weightSum == 0 {
			continue
		}
		coefficient := coefficients[subjectID]
		if coefficient == 0 {
			coefficient = 1
		}
		subjects = append(subjects, models.ReportCardSubject{
			SubjectID:   subjectID,
			SubjectName: acc.name,
			Coefficient: coefficient,
			Average:     round2(acc.weighted / acc.weightSum),
			GradeCount:  acc.count,
		})
	}
	return subjects
}

func (s *GradebookService) evaluationWeights(ctx context.Context, schoolYearID string) (map[string]float64, error) {
	types, err := s.evalTypes.ListByYear(ctx, schoolYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation types")
	}
	weights := make(map[string]float64, len(types))
	for _, t := range types {
		weights[strings.ToLower(t.Name)] = t.Weight
	}
	return weights, nil
}

func (s *GradebookService) subjectCoefficients(ctx context.Context, classroomID, schoolYearID string) (map[string]int, error) {
	rows, err := s.curriculum.ListByClassroom(ctx, classroomID, &schoolYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum")
	}
	coefficients := make(map[string]int, len(rows))
	for _, row := range rows {
		// Year-scoped rows win over year-independent ones.
		if existing, ok := coefficients[row.SubjectID]; !ok || (row.SchoolYearID != nil && existing != row.Coefficient) {
			coefficients[row.SubjectID] = row.Coefficient
		}
	}
	return coefficients, nil
}

func (s *GradebookService) loadAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

func (s *GradebookService) checkScore(score, maxScore float64) error {
	if score < 0 || score > maxScore {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("score must be between 0 and %.2f", maxScore))
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
