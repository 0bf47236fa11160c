package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academiapro/academiapro-api/internal/models"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
	"github.com/academiapro/academiapro-api/pkg/jobs"
)

type gbGradeRepo struct {
	grades      map[string]models.Grade
	cardGrades  []models.GradeWithAssignment
	rankingRows []models.RankingRow
}

func (m *gbGradeRepo) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	grade, ok := m.grades[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &grade, nil
}

func (m *gbGradeRepo) ExistsForAssignment(ctx context.Context, studentID, assignmentID string) (bool, error) {
	for _, g := range m.grades {
		if g.StudentID == studentID && g.AssignmentID == assignmentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *gbGradeRepo) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	var result []models.Grade
	for _, g := range m.grades {
		if filter.StudentID != "" && filter.StudentID != g.StudentID {
			continue
		}
		if filter.AssignmentID != "" && filter.AssignmentID != g.AssignmentID {
			continue
		}
		result = append(result, g)
	}
	return result, nil
}

func (m *gbGradeRepo) Create(ctx context.Context, grade *models.Grade) error {
	if m.grades == nil {
		m.grades = make(map[string]models.Grade)
	}
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	m.grades[grade.ID] = *grade
	return nil
}

func (m *gbGradeRepo) Update(ctx context.Context, grade *models.Grade) error {
	if _, ok := m.grades[grade.ID]; !ok {
		return sql.ErrNoRows
	}
	m.grades[grade.ID] = *grade
	return nil
}

func (m *gbGradeRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.grades[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.grades, id)
	return nil
}

func (m *gbGradeRepo) ListForReportCard(ctx context.Context, studentID, classroomID string) ([]models.GradeWithAssignment, error) {
	return m.cardGrades, nil
}

func (m *gbGradeRepo) AverageRows(ctx context.Context, classroomID string, assignmentID string) ([]models.RankingRow, error) {
	return m.rankingRows, nil
}

type gbAssignmentRepo struct {
	assignments map[string]models.Assignment
}

func (m *gbAssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, ok := m.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &assignment, nil
}

type gbStudentRepo struct {
	students map[string]models.Student
}

func (m *gbStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

type gbEvalTypeRepo struct {
	types []models.EvaluationType
}

func (m *gbEvalTypeRepo) ListByYear(ctx context.Context, schoolYearID string) ([]models.EvaluationType, error) {
	return m.types, nil
}

type gbCurriculumRepo struct {
	rows []models.ClassroomSubjectDetail
}

func (m *gbCurriculumRepo) ListByClassroom(ctx context.Context, classroomID string, schoolYearID *string) ([]models.ClassroomSubjectDetail, error) {
	return m.rows, nil
}

type gbReportCardRepo struct {
	cards map[string]models.ReportCard
}

func (m *gbReportCardRepo) FindByID(ctx context.Context, id string) (*models.ReportCard, error) {
	card, ok := m.cards[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &card, nil
}

func (m *gbReportCardRepo) FindForStudent(ctx context.Context, studentID, schoolYearID string, termID *string) (*models.ReportCard, error) {
	for _, card := range m.cards {
		if card.StudentID == studentID && card.SchoolYearID == schoolYearID {
			return &card, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *gbReportCardRepo) ListByStudent(ctx context.Context, studentID string) ([]models.ReportCard, error) {
	var result []models.ReportCard
	for _, card := range m.cards {
		if card.StudentID == studentID {
			result = append(result, card)
		}
	}
	return result, nil
}

func (m *gbReportCardRepo) Save(ctx context.Context, card *models.ReportCard) error {
	if m.cards == nil {
		m.cards = make(map[string]models.ReportCard)
	}
	m.cards[card.ID] = *card
	return nil
}

func (m *gbReportCardRepo) UpdateFilePath(ctx context.Context, id, filePath string) error {
	card, ok := m.cards[id]
	if !ok {
		return sql.ErrNoRows
	}
	card.FilePath = &filePath
	m.cards[id] = card
	return nil
}

type gbQueue struct {
	enqueued []jobs.Job
}

func (m *gbQueue) Enqueue(job jobs.Job) error {
	m.enqueued = append(m.enqueued, job)
	return nil
}

type gbFixture struct {
	svc         *GradebookService
	grades      *gbGradeRepo
	assignments *gbAssignmentRepo
	students    *gbStudentRepo
	evalTypes   *gbEvalTypeRepo
	curriculum  *gbCurriculumRepo
	cards       *gbReportCardRepo
	queue       *gbQueue
}

func newGradebookFixture(t *testing.T) (*gbFixture, string, string, string) {
	t.Helper()
	studentID := uuid.NewString()
	classroomID := uuid.NewString()
	assignmentID := uuid.NewString()

	f := &gbFixture{
		grades: &gbGradeRepo{},
		assignments: &gbAssignmentRepo{assignments: map[string]models.Assignment{
			assignmentID: {ID: assignmentID, ClassroomID: classroomID, MaxScore: 20},
		}},
		students: &gbStudentRepo{students: map[string]models.Student{
			studentID: {ID: studentID, ClassroomID: &classroomID, FirstName: "Awa", LastName: "Diop", Matricule: "M-001"},
		}},
		evalTypes:  &gbEvalTypeRepo{},
		curriculum: &gbCurriculumRepo{},
		cards:      &gbReportCardRepo{},
		queue:      &gbQueue{},
	}
	f.svc = NewGradebookService(f.grades, f.assignments, f.students, f.evalTypes, f.curriculum, f.cards, nil, f.queue, nil, nil, GradingConfig{})
	return f, studentID, classroomID, assignmentID
}

func TestRecordGradeRejectsScoreAboveMax(t *testing.T) {
	f, studentID, _, assignmentID := newGradebookFixture(t)

	_, err := f.svc.RecordGrade(context.Background(), RecordGradeRequest{
		StudentID:    studentID,
		AssignmentID: assignmentID,
		Score:        20.5,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRecordGradeRejectsNegativeScore(t *testing.T) {
	f, studentID, _, assignmentID := newGradebookFixture(t)

	_, err := f.svc.RecordGrade(context.Background(), RecordGradeRequest{
		StudentID:    studentID,
		AssignmentID: assignmentID,
		Score:        -1,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRecordGradeOncePerAssignment(t *testing.T) {
	f, studentID, _, assignmentID := newGradebookFixture(t)

	_, err := f.svc.RecordGrade(context.Background(), RecordGradeRequest{
		StudentID:    studentID,
		AssignmentID: assignmentID,
		Score:        14,
	})
	require.NoError(t, err)

	_, err = f.svc.RecordGrade(context.Background(), RecordGradeRequest{
		StudentID:    studentID,
		AssignmentID: assignmentID,
		Score:        15,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestUpdateGradeReboundAgainstAssignment(t *testing.T) {
	f, studentID, _, assignmentID := newGradebookFixture(t)

	grade, err := f.svc.RecordGrade(context.Background(), RecordGradeRequest{
		StudentID:    studentID,
		AssignmentID: assignmentID,
		Score:        14,
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateGrade(context.Background(), grade.ID, UpdateGradeRequest{Score: floatPtr(25)})
	require.Error(t, err)

	updated, err := f.svc.UpdateGrade(context.Background(), grade.ID, UpdateGradeRequest{Score: floatPtr(18)})
	require.NoError(t, err)
	assert.Equal(t, 18.0, updated.Score)
}

func TestUpdateGradeAppliesOnlyProvidedFields(t *testing.T) {
	f, studentID, _, assignmentID := newGradebookFixture(t)

	grade, err := f.svc.RecordGrade(context.Background(), RecordGradeRequest{
		StudentID:    studentID,
		AssignmentID: assignmentID,
		Score:        17,
		Notes:        strPtr("premier trimestre"),
	})
	require.NoError(t, err)

	// Reclassifying the category must leave the score and notes intact.
	updated, err := f.svc.UpdateGrade(context.Background(), grade.ID, UpdateGradeRequest{
		AssignmentType: catPtr(models.GradeCategoryExam),
	})
	require.NoError(t, err)
	assert.Equal(t, 17.0, updated.Score)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "premier trimestre", *updated.Notes)
	require.NotNil(t, updated.AssignmentType)
	assert.Equal(t, models.GradeCategoryExam, *updated.AssignmentType)

	updated, err = f.svc.UpdateGrade(context.Background(), grade.ID, UpdateGradeRequest{
		Notes: strPtr("corrige"),
	})
	require.NoError(t, err)
	assert.Equal(t, 17.0, updated.Score)
	assert.Equal(t, "corrige", *updated.Notes)
}

func TestGradedAtCarriedFromPayload(t *testing.T) {
	f, studentID, _, assignmentID := newGradebookFixture(t)

	gradedAt := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	grade, err := f.svc.RecordGrade(context.Background(), RecordGradeRequest{
		StudentID:    studentID,
		AssignmentID: assignmentID,
		Score:        12,
		GradedAt:     &gradedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, gradedAt, grade.GradedAt)

	later := gradedAt.Add(48 * time.Hour)
	updated, err := f.svc.UpdateGrade(context.Background(), grade.ID, UpdateGradeRequest{GradedAt: &later})
	require.NoError(t, err)
	assert.Equal(t, later, updated.GradedAt)
	assert.Equal(t, 12.0, updated.Score)
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func catPtr(c models.GradeCategory) *models.GradeCategory { return &c }

func TestGenerateReportCardWeightedAverages(t *testing.T) {
	f, studentID, _, _ := newGradebookFixture(t)
	yearID := uuid.NewString()
	mathID := uuid.NewString()
	frenchID := uuid.NewString()

	// Exams count double, homework is the implicit weight 1.
	f.evalTypes.types = []models.EvaluationType{
		{SchoolYearID: yearID, Name: "Exam", Weight: 2},
	}
	f.curriculum.rows = []models.ClassroomSubjectDetail{
		{ClassroomSubject: models.ClassroomSubject{SubjectID: mathID, Coefficient: 3, SchoolYearID: &yearID}},
		{ClassroomSubject: models.ClassroomSubject{SubjectID: frenchID, Coefficient: 1, SchoolYearID: &yearID}},
	}
	f.grades.cardGrades = []models.GradeWithAssignment{
		// Math: exam 16/20 (weight 2) and homework 10/20 (weight 1)
		// -> (16*2 + 10*1) / 3 = 14.
		{Grade: models.Grade{Score: 16, AssignmentType: catPtr(models.GradeCategoryExam)}, SubjectID: &mathID, SubjectName: strPtr("Mathematiques"), MaxScore: 20},
		{Grade: models.Grade{Score: 10, AssignmentType: catPtr(models.GradeCategoryHomework)}, SubjectID: &mathID, SubjectName: strPtr("Mathematiques"), MaxScore: 20},
		// French: a single 5/10 normalises to 10/20.
		{Grade: models.Grade{Score: 5}, SubjectID: &frenchID, SubjectName: strPtr("Francais"), MaxScore: 10},
	}

	card, err := f.svc.GenerateReportCard(context.Background(), GenerateReportCardRequest{
		StudentID:    studentID,
		SchoolYearID: yearID,
	})
	require.NoError(t, err)
	require.Len(t, card.Subjects, 2)

	assert.Equal(t, 14.0, card.Subjects[0].Average)
	assert.Equal(t, 3, card.Subjects[0].Coefficient)
	assert.Equal(t, 10.0, card.Subjects[1].Average)
	assert.Equal(t, 1, card.Subjects[1].Coefficient)

	// Overall: (14*3 + 10*1) / 4 = 13.
	assert.Equal(t, 13.0, card.OverallAverage)
	assert.Equal(t, "Bulletin de notes - Awa Diop", card.Title)

	// The PDF render was queued with the card id as payload.
	require.Len(t, f.queue.enqueued, 1)
	assert.Equal(t, JobTypeReportCardPDF, f.queue.enqueued[0].Type)
	assert.Equal(t, card.ID, f.queue.enqueued[0].Payload)
}

func TestGenerateReportCardDefaultCoefficient(t *testing.T) {
	f, studentID, _, _ := newGradebookFixture(t)
	yearID := uuid.NewString()
	subjectID := uuid.NewString()

	// No curriculum row for the subject: coefficient falls back to 1.
	f.grades.cardGrades = []models.GradeWithAssignment{
		{Grade: models.Grade{Score: 12}, SubjectID: &subjectID, SubjectName: strPtr("Histoire"), MaxScore: 20},
	}

	card, err := f.svc.GenerateReportCard(context.Background(), GenerateReportCardRequest{
		StudentID:    studentID,
		SchoolYearID: yearID,
	})
	require.NoError(t, err)
	require.Len(t, card.Subjects, 1)
	assert.Equal(t, 1, card.Subjects[0].Coefficient)
	assert.Equal(t, 12.0, card.OverallAverage)
}

func TestGenerateReportCardRequiresEnrollment(t *testing.T) {
	f, _, _, _ := newGradebookFixture(t)
	unenrolledID := uuid.NewString()
	f.students.students[unenrolledID] = models.Student{ID: unenrolledID}

	_, err := f.svc.GenerateReportCard(context.Background(), GenerateReportCardRequest{
		StudentID:    unenrolledID,
		SchoolYearID: uuid.NewString(),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrDomain.Code, appErr.Code)
}

func TestGenerateReportCardRequiresGrades(t *testing.T) {
	f, studentID, _, _ := newGradebookFixture(t)

	_, err := f.svc.GenerateReportCard(context.Background(), GenerateReportCardRequest{
		StudentID:    studentID,
		SchoolYearID: uuid.NewString(),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrDomain.Code, appErr.Code)
}

func TestAssignRanksSkipsAfterTies(t *testing.T) {
	rows := []models.RankingRow{
		{StudentName: "A", Score: 18},
		{StudentName: "B", Score: 15},
		{StudentName: "C", Score: 15},
		{StudentName: "D", Score: 10},
	}
	AssignRanks(rows)

	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, 2, rows[1].Rank)
	assert.Equal(t, 2, rows[2].Rank)
	assert.Equal(t, 4, rows[3].Rank)
}
