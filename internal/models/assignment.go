package models

import "time"

// AssignmentType enumerates the kinds of graded work.
type AssignmentType string

const (
	AssignmentDevoir        AssignmentType = "DEVOIR"
	AssignmentExamen        AssignmentType = "EXAMEN"
	AssignmentComposition   AssignmentType = "COMPOSITION"
	AssignmentInterrogation AssignmentType = "INTERROGATION"
)

// Assignment is a graded piece of work given to a classroom,
// optionally bound to one subject.
type Assignment struct {
	ID           string         `db:"id" json:"id"`
	ClassroomID  string         `db:"classroom_id" json:"classroom_id"`
	SubjectID    *string        `db:"subject_id" json:"subject_id,omitempty"`
	Title        string         `db:"title" json:"title"`
	Description  *string        `db:"description" json:"description,omitempty"`
	Type         AssignmentType `db:"type" json:"type"`
	MaxScore     float64        `db:"max_score" json:"max_score"`
	PassingScore float64        `db:"passing_score" json:"passing_score"`
	StartDate    *time.Time     `db:"start_date" json:"start_date,omitempty"`
	DueDate      *time.Time     `db:"due_date" json:"due_date,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// AssignmentFilter defines filter criteria for listing assignments.
type AssignmentFilter struct {
	ClassroomID string
	SubjectID   string
	Type        string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
