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

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByMatricule(ctx context.Context, schoolID, matricule string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Enroll(ctx context.Context, enrollment *models.Enrollment) error
	ListEnrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

// CreateStudentRequest registers a student in a school.
type CreateStudentRequest struct {
	SchoolID      string  `json:"school_id" validate:"required,uuid4"`
	FirstName     string  `json:"first_name" validate:"required"`
	LastName      string  `json:"last_name" validate:"required"`
	Matricule     string  `json:"matricule" validate:"required"`
	BirthDate     string  `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Gender        string  `json:"gender" validate:"required,oneof=M F"`
	ParentContact string  `json:"parent_contact" validate:"required"`
	Address       *string `json:"address"`
}

// UpdateStudentRequest modifies a student's identity data.
type UpdateStudentRequest struct {
	FirstName     string  `json:"first_name" validate:"required"`
	LastName      string  `json:"last_name" validate:"required"`
	Matricule     string  `json:"matricule" validate:"required"`
	BirthDate     string  `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Gender        string  `json:"gender" validate:"required,oneof=M F"`
	ParentContact string  `json:"parent_contact" validate:"required"`
	Address       *string `json:"address"`
	Active        *bool   `json:"active"`
}

// EnrollStudentRequest places a student into a classroom for a year.
type EnrollStudentRequest struct {
	ClassroomID  string `json:"classroom_id" validate:"required,uuid4"`
	SchoolYearID string `json:"school_year_id" validate:"required,uuid4"`
}

// StudentService manages students and their enrollment history.
type StudentService struct {
	repo       studentRepository
	classrooms curriculumClassroomRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewStudentService constructs a StudentService instance.
func NewStudentService(repo studentRepository, classrooms curriculumClassroomRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{repo: repo, classrooms: classrooms, validator: validate, logger: logger}
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Create registers a student. The matricule must be unique within the
// school.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	if _, err := s.repo.FindByMatricule(ctx, req.SchoolID, req.Matricule); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "matricule already in use")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check matricule")
	}

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "birth_date must be YYYY-MM-DD")
	}

	student := &models.Student{
		SchoolID:      req.SchoolID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Matricule:     req.Matricule,
		BirthDate:     birthDate,
		Gender:        req.Gender,
		ParentContact: req.ParentContact,
		Address:       req.Address,
		Active:        true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies a student.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "birth_date must be YYYY-MM-DD")
	}

	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.Matricule = req.Matricule
	student.BirthDate = birthDate
	student.Gender = req.Gender
	student.ParentContact = req.ParentContact
	student.Address = req.Address
	if req.Active != nil {
		student.Active = *req.Active
	}

	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Enroll places a student into a classroom for a school year. The
// classroom must belong to that year and to the student's school.
func (s *StudentService) Enroll(ctx context.Context, studentID string, req EnrollStudentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	student, err := s.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}

	classroom, err := s.classrooms.FindByID(ctx, req.ClassroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	if classroom.SchoolID != student.SchoolID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classroom belongs to a different school")
	}
	if classroom.SchoolYearID != req.SchoolYearID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classroom belongs to a different school year")
	}

	enrollment := &models.Enrollment{
		StudentID:    studentID,
		ClassroomID:  req.ClassroomID,
		SchoolYearID: req.SchoolYearID,
	}
	if err := s.repo.Enroll(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}

	s.logger.Info("student enrolled",
		zap.String("student_id", studentID),
		zap.String("classroom_id", req.ClassroomID),
		zap.String("school_year_id", req.SchoolYearID))
	return enrollment, nil
}

// Enrollments returns the student's placement history, newest first.
func (s *StudentService) Enrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.Get(ctx, studentID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListEnrollments(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return rows, nil
}
