package models

import "time"

// Cycle is the French schooling stage of a classroom.
type Cycle string

const (
	CyclePrimaire Cycle = "PRIMAIRE"
	CycleCollege  Cycle = "COLLEGE"
	CycleLycee    Cycle = "LYCEE"
)

// Classroom represents a class/section for a given cycle and level
// within one school year. TuitionFee is the expected charge per
// enrolled student for that year.
type Classroom struct {
	ID           string    `db:"id" json:"id"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	SchoolYearID string    `db:"school_year_id" json:"school_year_id"`
	Name         string    `db:"name" json:"name"`
	Code         string    `db:"code" json:"code"`
	Cycle        Cycle     `db:"cycle" json:"cycle"`
	Level        string    `db:"level" json:"level"`
	TuitionFee   float64   `db:"tuition_fee" json:"tuition_fee"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClassroomFilter defines filter criteria for listing classrooms.
type ClassroomFilter struct {
	SchoolID     string
	SchoolYearID string
	Cycle        string
	Level        string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
