package models

import "time"

// School is the root tenant boundary. Every scoped entity belongs to
// exactly one school, directly or through its school year.
type School struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   *string   `db:"address" json:"address,omitempty"`
	Phone     string    `db:"phone" json:"phone"`
	Email     string    `db:"email" json:"email"`
	LogoPath  *string   `db:"logo_path" json:"logo_path,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolFilter defines filter criteria for listing schools.
type SchoolFilter struct {
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// SchoolYear scopes classrooms, curriculum, evaluation types and
// payments to an academic year. At most one year is active per school.
type SchoolYear struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Label     string    `db:"label" json:"label"`
	YearStart int       `db:"year_start" json:"year_start"`
	YearEnd   int       `db:"year_end" json:"year_end"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolYearFilter defines filter criteria for listing school years.
type SchoolYearFilter struct {
	SchoolID string
	Active   *bool
	Page     int
	PageSize int
}
