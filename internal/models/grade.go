package models

import "time"

// GradeCategory classifies a grade entry for evaluation-type weighting.
// Accepted on both creation and update.
type GradeCategory string

const (
	GradeCategoryExam          GradeCategory = "exam"
	GradeCategoryHomework      GradeCategory = "homework"
	GradeCategoryParticipation GradeCategory = "participation"
	GradeCategoryProject       GradeCategory = "project"
	GradeCategoryTest          GradeCategory = "test"
)

// Grade represents a single score recorded for a student against an
// assignment.
type Grade struct {
	ID             string         `db:"id" json:"id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	AssignmentID   string         `db:"assignment_id" json:"assignment_id"`
	Score          float64        `db:"score" json:"score"`
	AssignmentType *GradeCategory `db:"assignment_type" json:"assignment_type,omitempty"`
	Notes          *string        `db:"notes" json:"notes,omitempty"`
	GradedAt       time.Time      `db:"graded_at" json:"graded_at"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// GradeFilter defines filter criteria for listing grades.
type GradeFilter struct {
	StudentID    string
	AssignmentID string
	ClassroomID  string
}

// GradeWithAssignment joins the owning assignment's metadata needed for
// report card aggregation.
type GradeWithAssignment struct {
	Grade
	SubjectID      *string        `db:"subject_id" json:"subject_id,omitempty"`
	SubjectName    *string        `db:"subject_name" json:"subject_name,omitempty"`
	MaxScore       float64        `db:"max_score" json:"max_score"`
	AssignmentKind AssignmentType `db:"assignment_kind" json:"assignment_kind"`
}

// RankingRow is one entry of a classroom ranking, ordered by score
// descending. Ties share a rank and the following rank is skipped.
type RankingRow struct {
	StudentID   string  `db:"student_id" json:"student_id"`
	StudentName string  `db:"student_name" json:"student_name"`
	Score       float64 `db:"score" json:"score"`
	Rank        int     `db:"-" json:"rank"`
}
