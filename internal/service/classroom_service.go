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

type classroomRepository interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error)
	Create(ctx context.Context, classroom *models.Classroom) error
	Update(ctx context.Context, classroom *models.Classroom) error
	Delete(ctx context.Context, id string) error
}

// CreateClassroomRequest opens a classroom for a school year.
type CreateClassroomRequest struct {
	SchoolID     string       `json:"school_id" validate:"required,uuid4"`
	SchoolYearID string       `json:"school_year_id" validate:"required,uuid4"`
	Name         string       `json:"name" validate:"required"`
	Code         string       `json:"code" validate:"required"`
	Cycle        models.Cycle `json:"cycle" validate:"required,oneof=PRIMAIRE COLLEGE LYCEE"`
	Level        string       `json:"level" validate:"required"`
	TuitionFee   float64      `json:"tuition_fee" validate:"gte=0"`
}

// UpdateClassroomRequest modifies a classroom.
type UpdateClassroomRequest struct {
	Name       string       `json:"name" validate:"required"`
	Code       string       `json:"code" validate:"required"`
	Cycle      models.Cycle `json:"cycle" validate:"required,oneof=PRIMAIRE COLLEGE LYCEE"`
	Level      string       `json:"level" validate:"required"`
	TuitionFee float64      `json:"tuition_fee" validate:"gte=0"`
}

// ClassroomService manages classrooms.
type ClassroomService struct {
	repo      classroomRepository
	years     curriculumYearRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassroomService constructs a ClassroomService instance.
func NewClassroomService(repo classroomRepository, years curriculumYearRepository, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassroomService{repo: repo, years: years, validator: validate, logger: logger}
}

// Get returns one classroom.
func (s *ClassroomService) Get(ctx context.Context, id string) (*models.Classroom, error) {
	classroom, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	return classroom, nil
}

// List returns classrooms matching the filter.
func (s *ClassroomService) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	classrooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}
	return classrooms, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Create opens a classroom. The school year must belong to the same
// school.
func (s *ClassroomService) Create(ctx context.Context, req CreateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}

	year, err := s.years.FindByID(ctx, req.SchoolYearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school year")
	}
	if year.SchoolID != req.SchoolID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "school year belongs to a different school")
	}

	classroom := &models.Classroom{
		SchoolID:     req.SchoolID,
		SchoolYearID: req.SchoolYearID,
		Name:         req.Name,
		Code:         req.Code,
		Cycle:        req.Cycle,
		Level:        req.Level,
		TuitionFee:   req.TuitionFee,
	}
	if err := s.repo.Create(ctx, classroom); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}
	return classroom, nil
}

// Update modifies a classroom.
func (s *ClassroomService) Update(ctx context.Context, id string, req UpdateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}

	classroom, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	classroom.Name = req.Name
	classroom.Code = req.Code
	classroom.Cycle = req.Cycle
	classroom.Level = req.Level
	classroom.TuitionFee = req.TuitionFee

	if err := s.repo.Update(ctx, classroom); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classroom")
	}
	return classroom, nil
}

// Delete removes a classroom.
func (s *ClassroomService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete classroom")
	}
	return nil
}
