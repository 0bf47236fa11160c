package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/academiapro/academiapro-api/internal/models"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
)

type schoolRepository interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error)
	Create(ctx context.Context, school *models.School) error
	Update(ctx context.Context, school *models.School) error
}

type schoolYearRepository interface {
	FindByID(ctx context.Context, id string) (*models.SchoolYear, error)
	List(ctx context.Context, filter models.SchoolYearFilter) ([]models.SchoolYear, int, error)
	Create(ctx context.Context, year *models.SchoolYear) error
	Update(ctx context.Context, year *models.SchoolYear) error
	Activate(ctx context.Context, schoolID, yearID string) error
	CountDependents(ctx context.Context, yearID string) (int, error)
	Delete(ctx context.Context, id string) error
}

// CreateSchoolRequest registers a new school.
type CreateSchoolRequest struct {
	Name    string  `json:"name" validate:"required"`
	Address *string `json:"address"`
	Phone   string  `json:"phone" validate:"required"`
	Email   string  `json:"email" validate:"required,email"`
}

// UpdateSchoolRequest modifies a school.
type UpdateSchoolRequest struct {
	Name    string  `json:"name" validate:"required"`
	Address *string `json:"address"`
	Phone   string  `json:"phone" validate:"required"`
	Email   string  `json:"email" validate:"required,email"`
	Active  *bool   `json:"active"`
}

// CreateSchoolYearRequest opens a new academic year for a school.
type CreateSchoolYearRequest struct {
	SchoolID  string    `json:"school_id" validate:"required,uuid4"`
	YearStart int       `json:"year_start" validate:"required,min=2000,max=2100"`
	YearEnd   int       `json:"year_end" validate:"required,min=2000,max=2100"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

// SchoolService manages schools and their academic years. At most one
// year per school is active at any time.
type SchoolService struct {
	schools   schoolRepository
	years     schoolYearRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService constructs a SchoolService instance.
func NewSchoolService(schools schoolRepository, years schoolYearRepository, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SchoolService{schools: schools, years: years, validator: validate, logger: logger}
}

// GetSchool returns one school.
func (s *SchoolService) GetSchool(ctx context.Context, id string) (*models.School, error) {
	school, err := s.schools.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return school, nil
}

// ListSchools returns schools matching the filter.
func (s *SchoolService) ListSchools(ctx context.Context, filter models.SchoolFilter) ([]models.School, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	schools, total, err := s.schools.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	return schools, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// CreateSchool registers a new school. The contact email must be
// unique.
func (s *SchoolService) CreateSchool(ctx context.Context, req CreateSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}

	exists, err := s.schools.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a school with this email already exists")
	}

	school := &models.School{
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
		Email:   req.Email,
		Active:  true,
	}
	if err := s.schools.Create(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}
	return school, nil
}

// UpdateSchool modifies a school.
func (s *SchoolService) UpdateSchool(ctx context.Context, id string, req UpdateSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}

	school, err := s.GetSchool(ctx, id)
	if err != nil {
		return nil, err
	}

	school.Name = req.Name
	school.Address = req.Address
	school.Phone = req.Phone
	school.Email = req.Email
	if req.Active != nil {
		school.Active = *req.Active
	}

	if err := s.schools.Update(ctx, school); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school")
	}
	return school, nil
}

// GetSchoolYear returns one school year.
func (s *SchoolService) GetSchoolYear(ctx context.Context, id string) (*models.SchoolYear, error) {
	year, err := s.years.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school year")
	}
	return year, nil
}

// ListSchoolYears returns school years matching the filter.
func (s *SchoolService) ListSchoolYears(ctx context.Context, filter models.SchoolYearFilter) ([]models.SchoolYear, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	years, total, err := s.years.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list school years")
	}
	return years, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// CreateSchoolYear opens a new academic year. The end year must follow
// the start year and the date range must be ordered.
func (s *SchoolService) CreateSchoolYear(ctx context.Context, req CreateSchoolYearRequest) (*models.SchoolYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school year payload")
	}
	if req.YearEnd != req.YearStart+1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year_end must be year_start + 1")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must come after start_date")
	}
	if _, err := s.GetSchool(ctx, req.SchoolID); err != nil {
		return nil, err
	}

	year := &models.SchoolYear{
		SchoolID:  req.SchoolID,
		Label:     fmt.Sprintf("%d-%d", req.YearStart, req.YearEnd),
		YearStart: req.YearStart,
		YearEnd:   req.YearEnd,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := s.years.Create(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school year")
	}
	return year, nil
}

// ActivateSchoolYear makes the year the single active one for its
// school. Any previously active year is deactivated in the same
// transaction.
func (s *SchoolService) ActivateSchoolYear(ctx context.Context, id string) (*models.SchoolYear, error) {
	year, err := s.GetSchoolYear(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.years.Activate(ctx, year.SchoolID, year.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate school year")
	}
	year.Active = true

	s.logger.Info("school year activated", zap.String("school_id", year.SchoolID), zap.String("school_year_id", year.ID))
	return year, nil
}

// DeleteSchoolYear removes a school year, refusing while classrooms
// still reference it.
func (s *SchoolService) DeleteSchoolYear(ctx context.Context, id string) error {
	year, err := s.GetSchoolYear(ctx, id)
	if err != nil {
		return err
	}
	if year.Active {
		return appErrors.Clone(appErrors.ErrDomain, "cannot delete the active school year")
	}

	dependents, err := s.years.CountDependents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count dependents")
	}
	if dependents > 0 {
		return appErrors.Clone(appErrors.ErrDomain,
			fmt.Sprintf("school year still has %d classrooms attached", dependents))
	}

	if err := s.years.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "school year not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete school year")
	}
	return nil
}
