package models

import "time"

// PaymentType categorises a ledger entry. Reversals correct earlier
// payments; rows are never updated or deleted.
type PaymentType string

const (
	PaymentTuition      PaymentType = "TUITION"
	PaymentRegistration PaymentType = "REGISTRATION"
	PaymentCanteen      PaymentType = "CANTEEN"
	PaymentTransport    PaymentType = "TRANSPORT"
	PaymentOther        PaymentType = "OTHER"
	PaymentReversal     PaymentType = "REVERSAL"
)

// Payment is an append-only ledger entry against a student.
type Payment struct {
	ID           string      `db:"id" json:"id"`
	StudentID    string      `db:"student_id" json:"student_id"`
	SchoolID     *string     `db:"school_id" json:"school_id,omitempty"`
	SchoolYearID *string     `db:"school_year_id" json:"school_year_id,omitempty"`
	Amount       float64     `db:"amount" json:"amount"`
	PaymentDate  time.Time   `db:"payment_date" json:"payment_date"`
	Type         PaymentType `db:"type" json:"type"`
	Notes        *string     `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

// PaymentFilter defines filter criteria for payment history queries.
type PaymentFilter struct {
	StudentID    string
	SchoolYearID string
	Type         string
	Page         int
	PageSize     int
}

// Balance is the derived financial position of a student. Positive
// means the family still owes money.
type Balance struct {
	StudentID     string    `json:"student_id"`
	ExpectedTotal float64   `json:"expected_total"`
	PaidTotal     float64   `json:"paid_total"`
	Balance       float64   `json:"balance"`
	ComputedAt    time.Time `json:"computed_at"`
}

// ClassroomCollection aggregates collected vs expected amounts for a
// classroom, used by the accounting dashboards.
type ClassroomCollection struct {
	ClassroomID  string  `db:"classroom_id" json:"classroom_id"`
	StudentCount int     `db:"student_count" json:"student_count"`
	Expected     float64 `db:"expected" json:"expected"`
	Collected    float64 `db:"collected" json:"collected"`
	Outstanding  float64 `db:"-" json:"outstanding"`
}
