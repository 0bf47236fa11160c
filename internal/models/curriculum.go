package models

import "time"

// ClassroomSubject maps a subject into a classroom's curriculum with a
// weighting coefficient. SchoolYearID nil means the assignment applies
// independently of the school year. Unique per
// (classroom, subject, school_year).
type ClassroomSubject struct {
	ID           string    `db:"id" json:"id"`
	ClassroomID  string    `db:"classroom_id" json:"classroom_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	Coefficient  int       `db:"coefficient" json:"coefficient"`
	SchoolYearID *string   `db:"school_year_id" json:"school_year_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClassroomSubjectDetail is a read view including subject info.
type ClassroomSubjectDetail struct {
	ClassroomSubject
	SubjectName string `db:"subject_name" json:"subject_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
}

// ClassroomSubjectTeacher links a teacher to a (classroom, subject) pair.
type ClassroomSubjectTeacher struct {
	ID          string    `db:"id" json:"id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ClassroomSubjectTeacherDetail includes the teacher's name for responses.
type ClassroomSubjectTeacherDetail struct {
	ClassroomSubjectTeacher
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}
