package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/academiapro/academiapro-api/internal/models"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
)

type curriculumRepository interface {
	ListByClassroom(ctx context.Context, classroomID string, schoolYearID *string) ([]models.ClassroomSubjectDetail, error)
	ListByYear(ctx context.Context, classroomID, schoolYearID string) ([]models.ClassroomSubject, error)
	Upsert(ctx context.Context, assignment *models.ClassroomSubject) error
	ReplaceAll(ctx context.Context, classroomID string, assignments []models.ClassroomSubject) error
	Remove(ctx context.Context, classroomID, subjectID string, schoolYearID *string) (int64, error)
	CopyYear(ctx context.Context, classroomID, fromYearID, toYearID string) (int, error)
	ReplaceTeachers(ctx context.Context, classroomID, subjectID string, teacherIDs []string) error
	ListTeachers(ctx context.Context, classroomID, subjectID string) ([]models.ClassroomSubjectTeacherDetail, error)
	CountSubjects(ctx context.Context, subjectIDs []string) (int, error)
	CountTeachers(ctx context.Context, teacherIDs []string) (int, error)
}

type curriculumClassroomRepository interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
}

type curriculumYearRepository interface {
	FindByID(ctx context.Context, id string) (*models.SchoolYear, error)
}

// CurriculumConfig bounds subject coefficients.
type CurriculumConfig struct {
	MinCoefficient int
	MaxCoefficient int
}

// AssignSubjectRequest binds one subject to a classroom.
type AssignSubjectRequest struct {
	SubjectID    string  `json:"subject_id" validate:"required,uuid4"`
	Coefficient  int     `json:"coefficient" validate:"required"`
	SchoolYearID *string `json:"school_year_id" validate:"omitempty,uuid4"`
}

// ReplaceCurriculumRequest replaces the full subject set of a
// classroom. Callers send either subject_ids (every subject gets the
// default coefficient) or subjects with explicit coefficients, not
// both.
type ReplaceCurriculumRequest struct {
	SubjectIDs []string               `json:"subject_ids" validate:"omitempty,min=1,dive,uuid4"`
	Subjects   []AssignSubjectRequest `json:"subjects" validate:"omitempty,min=1,dive"`
}

// CopyCurriculumRequest duplicates a classroom's curriculum between years.
type CopyCurriculumRequest struct {
	FromSchoolYearID string `json:"from_school_year_id" validate:"required,uuid4"`
	ToSchoolYearID   string `json:"to_school_year_id" validate:"required,uuid4"`
}

// AssignTeachersRequest sets the teacher list of a classroom subject.
type AssignTeachersRequest struct {
	TeacherIDs []string `json:"teacher_ids" validate:"required,dive,uuid4"`
}

// AssignClassroomTeachersRequest is the flat form of the same
// operation: the subject travels in the body instead of the path.
type AssignClassroomTeachersRequest struct {
	SubjectID  string   `json:"subject_id" validate:"required,uuid4"`
	TeacherIDs []string `json:"teacher_ids" validate:"required,dive,uuid4"`
}

// CurriculumService manages which subjects a classroom teaches, their
// coefficients, and the teachers assigned to them.
type CurriculumService struct {
	repo       curriculumRepository
	classrooms curriculumClassroomRepository
	years      curriculumYearRepository
	validator  *validator.Validate
	logger     *zap.Logger
	config     CurriculumConfig
}

// NewCurriculumService constructs a CurriculumService instance.
func NewCurriculumService(repo curriculumRepository, classrooms curriculumClassroomRepository, years curriculumYearRepository, validate *validator.Validate, logger *zap.Logger, config CurriculumConfig) *CurriculumService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.MinCoefficient == 0 {
		config.MinCoefficient = 1
	}
	if config.MaxCoefficient == 0 {
		config.MaxCoefficient = 10
	}
	return &CurriculumService{repo: repo, classrooms: classrooms, years: years, validator: validate, logger: logger, config: config}
}

// List returns the curriculum of a classroom, optionally scoped to a
// school year. Year-independent rows are always included when a year is
// given.
func (s *CurriculumService) List(ctx context.Context, classroomID string, schoolYearID *string) ([]models.ClassroomSubjectDetail, error) {
	if _, err := s.loadClassroom(ctx, classroomID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByClassroom(ctx, classroomID, schoolYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list curriculum")
	}
	return rows, nil
}

// Assign binds one subject to a classroom, creating or updating the
// coefficient. Assigning the same subject twice for the same year scope
// is an update, not a duplicate.
func (s *CurriculumService) Assign(ctx context.Context, classroomID string, req AssignSubjectRequest) (*models.ClassroomSubject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid curriculum payload")
	}
	if err := s.checkCoefficient(req.Coefficient); err != nil {
		return nil, err
	}
	if _, err := s.loadClassroom(ctx, classroomID); err != nil {
		return nil, err
	}
	if err := s.checkSubjects(ctx, []string{req.SubjectID}); err != nil {
		return nil, err
	}
	if req.SchoolYearID != nil {
		if _, err := s.loadYear(ctx, *req.SchoolYearID); err != nil {
			return nil, err
		}
	}

	assignment := &models.ClassroomSubject{
		ClassroomID:  classroomID,
		SubjectID:    req.SubjectID,
		Coefficient:  req.Coefficient,
		SchoolYearID: req.SchoolYearID,
	}
	if err := s.repo.Upsert(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign subject")
	}
	return assignment, nil
}

// Replace swaps the classroom's full curriculum for the provided list
// in one transaction.
func (s *CurriculumService) Replace(ctx context.Context, classroomID string, req ReplaceCurriculumRequest) ([]models.ClassroomSubject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid curriculum payload")
	}
	items := req.Subjects
	switch {
	case len(req.SubjectIDs) > 0 && len(items) > 0:
		return nil, appErrors.Clone(appErrors.ErrValidation, "provide either subject_ids or subjects, not both")
	case len(req.SubjectIDs) == 0 && len(items) == 0:
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject list is required")
	case len(req.SubjectIDs) > 0:
		items = make([]AssignSubjectRequest, 0, len(req.SubjectIDs))
		for _, id := range req.SubjectIDs {
			items = append(items, AssignSubjectRequest{SubjectID: id, Coefficient: s.config.MinCoefficient})
		}
	}
	if _, err := s.loadClassroom(ctx, classroomID); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(items))
	collected := make(map[string]bool, len(items))
	subjectIDs := make([]string, 0, len(items))
	assignments := make([]models.ClassroomSubject, 0, len(items))
	for _, item := range items {
		if err := s.checkCoefficient(item.Coefficient); err != nil {
			return nil, err
		}
		key := item.SubjectID
		if item.SchoolYearID != nil {
			key += ":" + *item.SchoolYearID
		}
		if seen[key] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate subject %s in payload", item.SubjectID))
		}
		seen[key] = true
		// The same subject may legitimately appear once per school
		// year; count it once against the subjects table.
		if !collected[item.SubjectID] {
			collected[item.SubjectID] = true
			subjectIDs = append(subjectIDs, item.SubjectID)
		}
		assignments = append(assignments, models.ClassroomSubject{
			ClassroomID:  classroomID,
			SubjectID:    item.SubjectID,
			Coefficient:  item.Coefficient,
			SchoolYearID: item.SchoolYearID,
		})
	}

	if err := s.checkSubjects(ctx, subjectIDs); err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceAll(ctx, classroomID, assignments); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace curriculum")
	}
	return assignments, nil
}

// Remove deletes one subject association. When schoolYearID is nil only
// the year-independent row is removed; year-scoped rows stay untouched.
func (s *CurriculumService) Remove(ctx context.Context, classroomID, subjectID string, schoolYearID *string) error {
	if _, err := s.loadClassroom(ctx, classroomID); err != nil {
		return err
	}
	rows, err := s.repo.Remove(ctx, classroomID, subjectID, schoolYearID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove subject")
	}
	if rows == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "subject is not assigned to this classroom")
	}
	return nil
}

// Copy duplicates the curriculum of one school year into another,
// preserving coefficients. Running it twice yields the same target
// state.
func (s *CurriculumService) Copy(ctx context.Context, classroomID string, req CopyCurriculumRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid copy payload")
	}
	if req.FromSchoolYearID == req.ToSchoolYearID {
		return 0, appErrors.Clone(appErrors.ErrValidation, "source and target school years must differ")
	}
	if _, err := s.loadClassroom(ctx, classroomID); err != nil {
		return 0, err
	}
	if _, err := s.loadYear(ctx, req.FromSchoolYearID); err != nil {
		return 0, err
	}
	if _, err := s.loadYear(ctx, req.ToSchoolYearID); err != nil {
		return 0, err
	}

	source, err := s.repo.ListByYear(ctx, classroomID, req.FromSchoolYearID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source curriculum")
	}
	if len(source) == 0 {
		return 0, appErrors.Clone(appErrors.ErrDomain, "source school year has no curriculum to copy")
	}

	copied, err := s.repo.CopyYear(ctx, classroomID, req.FromSchoolYearID, req.ToSchoolYearID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to copy curriculum")
	}

	s.logger.Info("curriculum copied",
		zap.String("classroom_id", classroomID),
		zap.String("from_year", req.FromSchoolYearID),
		zap.String("to_year", req.ToSchoolYearID),
		zap.Int("subjects", copied))
	return copied, nil
}

// AssignTeachers replaces the teacher set of a classroom subject.
func (s *CurriculumService) AssignTeachers(ctx context.Context, classroomID, subjectID string, req AssignTeachersRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teachers payload")
	}
	if _, err := s.loadClassroom(ctx, classroomID); err != nil {
		return err
	}
	if err := s.checkSubjects(ctx, []string{subjectID}); err != nil {
		return err
	}

	unique := make(map[string]bool, len(req.TeacherIDs))
	for _, id := range req.TeacherIDs {
		if unique[id] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate teacher %s in payload", id))
		}
		unique[id] = true
	}

	count, err := s.repo.CountTeachers(ctx, req.TeacherIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify teachers")
	}
	if count != len(req.TeacherIDs) {
		return appErrors.Clone(appErrors.ErrValidation, "one or more teachers do not exist")
	}

	if err := s.repo.ReplaceTeachers(ctx, classroomID, subjectID, req.TeacherIDs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign teachers")
	}
	return nil
}

// ListTeachers returns the teachers assigned to a classroom subject.
func (s *CurriculumService) ListTeachers(ctx context.Context, classroomID, subjectID string) ([]models.ClassroomSubjectTeacherDetail, error) {
	if _, err := s.loadClassroom(ctx, classroomID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListTeachers(ctx, classroomID, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject teachers")
	}
	return rows, nil
}

func (s *CurriculumService) checkCoefficient(coefficient int) error {
	if coefficient < s.config.MinCoefficient || coefficient > s.config.MaxCoefficient {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("coefficient must be between %d and %d", s.config.MinCoefficient, s.config.MaxCoefficient))
	}
	return nil
}

func (s *CurriculumService) checkSubjects(ctx context.Context, subjectIDs []string) error {
	count, err := s.repo.CountSubjects(ctx, subjectIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify subjects")
	}
	if count != len(subjectIDs) {
		return appErrors.Clone(appErrors.ErrValidation, "one or more subjects do not exist")
	}
	return nil
}

func (s *CurriculumService) loadClassroom(ctx context.Context, id string) (*models.Classroom, error) {
	classroom, err := s.classrooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	return classroom, nil
}

func (s *CurriculumService) loadYear(ctx context.Context, id string) (*models.SchoolYear, error) {
	year, err := s.years.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school year")
	}
	return year, nil
}
