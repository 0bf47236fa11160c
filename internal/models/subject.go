package models

import "time"

// Subject is a taught discipline. Coefficient is the school-level
// default weight; a classroom assignment may override it.
type Subject struct {
	ID           string    `db:"id" json:"id"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	SchoolYearID *string   `db:"school_year_id" json:"school_year_id,omitempty"`
	Name         string    `db:"name" json:"name"`
	Code         string    `db:"code" json:"code"`
	Coefficient  int       `db:"coefficient" json:"coefficient"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter defines filter criteria for listing subjects.
type SubjectFilter struct {
	SchoolID     string
	SchoolYearID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// EvaluationType is a weighted assessment category (exam, homework...)
// used during report card aggregation, scoped per school year.
type EvaluationType struct {
	ID           string    `db:"id" json:"id"`
	SchoolYearID string    `db:"school_year_id" json:"school_year_id"`
	Name         string    `db:"name" json:"name"`
	Weight       float64   `db:"weight" json:"weight"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
