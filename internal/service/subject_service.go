package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/academiapro/academiapro-api/internal/models"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
)

type subjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ExistsByCode(ctx context.Context, schoolID, code string) (bool, error)
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

type evaluationTypeRepository interface {
	FindByID(ctx context.Context, id string) (*models.EvaluationType, error)
	ListByYear(ctx context.Context, schoolYearID string) ([]models.EvaluationType, error)
	Create(ctx context.Context, et *models.EvaluationType) error
	Update(ctx context.Context, et *models.EvaluationType) error
	Delete(ctx context.Context, id string) error
}

// CreateSubjectRequest declares a subject for a school.
type CreateSubjectRequest struct {
	SchoolID     string  `json:"school_id" validate:"required,uuid4"`
	SchoolYearID *string `json:"school_year_id" validate:"omitempty,uuid4"`
	Name         string  `json:"name" validate:"required"`
	Code         string  `json:"code" validate:"required"`
	Coefficient  int     `json:"coefficient" validate:"required,min=1,max=10"`
}

// UpdateSubjectRequest modifies a subject.
type UpdateSubjectRequest struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code" validate:"required"`
	Coefficient int    `json:"coefficient" validate:"required,min=1,max=10"`
}

// EvaluationTypeRequest declares a weighted assessment category.
type EvaluationTypeRequest struct {
	SchoolYearID string  `json:"school_year_id" validate:"required,uuid4"`
	Name         string  `json:"name" validate:"required,oneof=exam homework participation project test"`
	Weight       float64 `json:"weight" validate:"required,gt=0"`
}

// SubjectService manages subjects and evaluation types.
type SubjectService struct {
	subjects  subjectRepository
	evalTypes evaluationTypeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService instance.
func NewSubjectService(subjects subjectRepository, evalTypes evaluationTypeRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubjectService{subjects: subjects, evalTypes: evalTypes, validator: validate, logger: logger}
}

// Get returns one subject.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// List returns subjects matching the filter.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	subjects, total, err := s.subjects.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Create declares a subject. The code must be unique within the school.
func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	exists, err := s.subjects.ExistsByCode(ctx, req.SchoolID, req.Code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject code already in use")
	}

	subject := &models.Subject{
		SchoolID:     req.SchoolID,
		SchoolYearID: req.SchoolYearID,
		Name:         req.Name,
		Code:         req.Code,
		Coefficient:  req.Coefficient,
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// Update modifies a subject.
func (s *SubjectService) Update(ctx context.Context, id string, req UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	subject.Name = req.Name
	subject.Code = req.Code
	subject.Coefficient = req.Coefficient

	if err := s.subjects.Update(ctx, subject); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// Delete removes a subject.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	if err := s.subjects.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}

// ListEvaluationTypes returns the evaluation types of a school year.
func (s *SubjectService) ListEvaluationTypes(ctx context.Context, schoolYearID string) ([]models.EvaluationType, error) {
	types, err := s.evalTypes.ListByYear(ctx, schoolYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluation types")
	}
	return types, nil
}

// CreateEvaluationType declares a weighted assessment category. A
// category name may appear once per school year.
func (s *SubjectService) CreateEvaluationType(ctx context.Context, req EvaluationTypeRequest) (*models.EvaluationType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation type payload")
	}

	existing, err := s.evalTypes.ListByYear(ctx, req.SchoolYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluation types")
	}
	for _, t := range existing {
		if t.Name == req.Name {
			return nil, appErrors.Clone(appErrors.ErrConflict, "evaluation type already defined for this school year")
		}
	}

	et := &models.EvaluationType{
		SchoolYearID: req.SchoolYearID,
		Name:         req.Name,
		Weight:       req.Weight,
	}
	if err := s.evalTypes.Create(ctx, et); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create evaluation type")
	}
	return et, nil
}

// UpdateEvaluationType changes the weight (or name) of a category.
func (s *SubjectService) UpdateEvaluationType(ctx context.Context, id string, req EvaluationTypeRequest) (*models.EvaluationType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation type payload")
	}

	et, err := s.evalTypes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation type")
	}

	et.Name = req.Name
	et.Weight = req.Weight
	if err := s.evalTypes.Update(ctx, et); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update evaluation type")
	}
	return et, nil
}

// DeleteEvaluationType removes a category. Grades referencing its name
// fall back to weight 1 at aggregation time.
func (s *SubjectService) DeleteEvaluationType(ctx context.Context, id string) error {
	if err := s.evalTypes.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "evaluation type not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete evaluation type")
	}
	return nil
}
