package models

import "time"

// ReportCardSubject summarises a student's performance in one subject.
// Average is expressed on the configured grading scale.
type ReportCardSubject struct {
	SubjectID   string  `json:"subject_id"`
	SubjectName string  `json:"subject_name"`
	Coefficient int     `json:"coefficient"`
	Average     float64 `json:"average"`
	GradeCount  int     `json:"grade_count"`
}

// ReportCard is the persisted aggregate of a student's grades for a
// school year (and optional term). Subjects is stored as jsonb.
type ReportCard struct {
	ID             string              `db:"id" json:"id"`
	StudentID      string              `db:"student_id" json:"student_id"`
	SchoolYearID   string              `db:"school_year_id" json:"school_year_id"`
	TermID         *string             `db:"term_id" json:"term_id,omitempty"`
	Title          string              `db:"title" json:"title"`
	OverallAverage float64             `db:"overall_average" json:"overall_average"`
	Subjects       []ReportCardSubject `db:"-" json:"subjects"`
	SubjectsRaw    []byte              `db:"subjects" json:"-"`
	FilePath       *string             `db:"file_path" json:"-"`
	GeneratedAt    time.Time           `db:"generated_at" json:"generated_at"`
}
