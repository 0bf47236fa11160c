package models

import "time"

// Student represents an enrolled pupil. ClassroomID/SchoolYearID track
// the current placement; the full history lives in enrollments.
type Student struct {
	ID            string    `db:"id" json:"id"`
	SchoolID      string    `db:"school_id" json:"school_id"`
	ClassroomID   *string   `db:"classroom_id" json:"classroom_id,omitempty"`
	SchoolYearID  *string   `db:"school_year_id" json:"school_year_id,omitempty"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	Matricule     string    `db:"matricule" json:"matricule"`
	BirthDate     time.Time `db:"birth_date" json:"birth_date"`
	Gender        string    `db:"gender" json:"gender"`
	ParentContact string    `db:"parent_contact" json:"parent_contact"`
	Address       *string   `db:"address" json:"address,omitempty"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter defines filter criteria for listing students.
type StudentFilter struct {
	SchoolID     string
	ClassroomID  string
	SchoolYearID string
	Gender       string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// Enrollment records a student's placement in a classroom for a school
// year. History is append-only; the latest row per year is the current
// placement.
type Enrollment struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	ClassroomID  string    `db:"classroom_id" json:"classroom_id"`
	SchoolYearID string    `db:"school_year_id" json:"school_year_id"`
	EnrolledAt   time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail joins classroom and year info for responses and for
// balance computation (tuition fee per enrollment).
type EnrollmentDetail struct {
	Enrollment
	ClassroomName   string  `db:"classroom_name" json:"classroom_name"`
	SchoolYearLabel string  `db:"school_year_label" json:"school_year_label"`
	TuitionFee      float64 `db:"tuition_fee" json:"tuition_fee"`
}
