package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/academiapro/academiapro-api/internal/models"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
)

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

// AssignmentRequest carries assignment attributes for create and update.
type AssignmentRequest struct {
	ClassroomID  string                `json:"classroom_id" validate:"required,uuid4"`
	SubjectID    *string               `json:"subject_id" validate:"omitempty,uuid4"`
	Title        string                `json:"title" validate:"required"`
	Description  *string               `json:"description"`
	Type         models.AssignmentType `json:"type" validate:"required,oneof=DEVOIR EXAMEN COMPOSITION INTERROGATION"`
	MaxScore     float64               `json:"max_score" validate:"required,gt=0"`
	PassingScore float64               `json:"passing_score" validate:"gte=0"`
	StartDate    *time.Time            `json:"start_date"`
	DueDate      *time.Time            `json:"due_date"`
}

// AssignmentService manages graded work definitions.
type AssignmentService struct {
	repo       assignmentRepository
	classrooms curriculumClassroomRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAssignmentService constructs an AssignmentService instance.
func NewAssignmentService(repo assignmentRepository, classrooms curriculumClassroomRepository, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentService{repo: repo, classrooms: classrooms, validator: validate, logger: logger}
}

// Get returns one assignment.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// List returns assignments matching the filter.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	assignments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Create declares an assignment for a classroom. The passing score
// cannot exceed the max score, and the due date cannot precede the
// start date.
func (s *AssignmentService) Create(ctx context.Context, req AssignmentRequest) (*models.Assignment, error) {
	if err := s.checkRequest(ctx, req); err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		ClassroomID:  req.ClassroomID,
		SubjectID:    req.SubjectID,
		Title:        req.Title,
		Description:  req.Description,
		Type:         req.Type,
		MaxScore:     req.MaxScore,
		PassingScore: req.PassingScore,
		StartDate:    req.StartDate,
		DueDate:      req.DueDate,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// Update modifies an assignment. Lowering the max score below already
// recorded grades is rejected at grade time, not here; existing grades
// keep their recorded value.
func (s *AssignmentService) Update(ctx context.Context, id string, req AssignmentRequest) (*models.Assignment, error) {
	if err := s.checkRequest(ctx, req); err != nil {
		return nil, err
	}

	assignment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	assignment.SubjectID = req.SubjectID
	assignment.Title = req.Title
	assignment.Description = req.Description
	assignment.Type = req.Type
	assignment.MaxScore = req.MaxScore
	assignment.PassingScore = req.PassingScore
	assignment.StartDate = req.StartDate
	assignment.DueDate = req.DueDate

	if err := s.repo.Update(ctx, assignment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return assignment, nil
}

// Delete removes an assignment.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}

func (s *AssignmentService) checkRequest(ctx context.Context, req AssignmentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if req.PassingScore > req.MaxScore {
		return appErrors.Clone(appErrors.ErrValidation, "passing_score cannot exceed max_score")
	}
	if req.StartDate != nil && req.DueDate != nil && req.DueDate.Before(*req.StartDate) {
		return appErrors.Clone(appErrors.ErrValidation, "due_date cannot precede start_date")
	}
	if _, err := s.classrooms.FindByID(ctx, req.ClassroomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	return nil
}
