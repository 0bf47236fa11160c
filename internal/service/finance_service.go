package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/academiapro/academiapro-api/internal/models"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
	"github.com/academiapro/academiapro-api/pkg/export"
)

type paymentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	SumForStudent(ctx context.Context, studentID string, schoolYearID *string) (float64, error)
	ExpectedForStudent(ctx context.Context, studentID string, schoolYearID *string) (float64, error)
	ClassroomCollections(ctx context.Context, schoolID, schoolYearID string) ([]models.ClassroomCollection, error)
}

type financeStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type balanceCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// FinanceConfig tunes the finance layer.
type FinanceConfig struct {
	BalanceCacheTTL time.Duration
}

// RecordPaymentRequest appends one ledger entry. Amounts are always
// positive; a REVERSAL entry subtracts during aggregation.
type RecordPaymentRequest struct {
	StudentID    string             `json:"student_id" validate:"required,uuid4"`
	SchoolYearID *string            `json:"school_year_id" validate:"omitempty,uuid4"`
	Amount       float64            `json:"amount" validate:"required,gt=0"`
	Type         models.PaymentType `json:"type" validate:"required,oneof=TUITION REGISTRATION CANTEEN TRANSPORT OTHER REVERSAL"`
	PaymentDate  *time.Time         `json:"payment_date"`
	Notes        *string            `json:"notes"`
}

// FinanceService owns the append-only payment ledger, derived balances
// and receipts. Balances are cached in Redis and invalidated on every
// write for the affected student.
type FinanceService struct {
	payments  paymentRepository
	students  financeStudentRepository
	cache     balanceCache
	exporter  *export.PDFExporter
	csv       *export.CSVExporter
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	config    FinanceConfig
}

// SetMetrics attaches Prometheus instrumentation for balance cache
// lookups. Optional; a nil receiver is tolerated everywhere.
func (s *FinanceService) SetMetrics(m *MetricsService) {
	s.metrics = m
}

// NewFinanceService constructs a FinanceService instance. cache may be
// nil, in which case every balance is computed from the ledger.
func NewFinanceService(payments paymentRepository, students financeStudentRepository, cache balanceCache, validate *validator.Validate, logger *zap.Logger, config FinanceConfig) *FinanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.BalanceCacheTTL <= 0 {
		config.BalanceCacheTTL = 5 * time.Minute
	}
	return &FinanceService{
		payments:  payments,
		students:  students,
		cache:     cache,
		exporter:  export.NewPDFExporter(),
		csv:       export.NewCSVExporter(),
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// RecordPayment appends a ledger entry. Entries are immutable; a
// mistake is corrected by recording a REVERSAL, which may not exceed
// the student's effective paid total.
func (s *FinanceService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if req.Type == models.PaymentReversal {
		paid, err := s.payments.SumForStudent(ctx, req.StudentID, req.SchoolYearID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum payments")
		}
		if req.Amount > paid {
			return nil, appErrors.Clone(appErrors.ErrDomain, "reversal exceeds the amount paid")
		}
	}

	payment := &models.Payment{
		StudentID:    req.StudentID,
		SchoolID:     &student.SchoolID,
		SchoolYearID: req.SchoolYearID,
		Amount:       req.Amount,
		Type:         req.Type,
		Notes:        req.Notes,
	}
	if req.PaymentDate != nil {
		payment.PaymentDate = *req.PaymentDate
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	s.invalidateBalance(ctx, req.StudentID)

	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("student_id", payment.StudentID),
		zap.String("type", string(payment.Type)),
		zap.Float64("amount", payment.Amount))
	return payment, nil
}

// GetBalance returns the student's financial position: total tuition
// expected across enrollments minus the effective paid total. Positive
// means the family still owes money.
func (s *FinanceService) GetBalance(ctx context.Context, studentID string, schoolYearID *string) (*models.Balance, error) {
	key := s.balanceKey(studentID, schoolYearID)
	if s.cache != nil {
		var cached models.Balance
		lookupStart := time.Now()
		err := s.cache.Get(ctx, key, &cached)
		s.metrics.RecordCacheOperation(err == nil, time.Since(lookupStart))
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("balance cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	expected, err := s.payments.ExpectedForStudent(ctx, studentID, schoolYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute expected total")
	}
	paid, err := s.payments.SumForStudent(ctx, studentID, schoolYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum payments")
	}

	balance := &models.Balance{
		StudentID:     studentID,
		ExpectedTotal: expected,
		PaidTotal:     paid,
		Balance:       expected - paid,
		ComputedAt:    time.Now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, balance, s.config.BalanceCacheTTL); err != nil {
			s.logger.Warn("balance cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return balance, nil
}

// PaymentHistory returns the student's ledger entries, most recent
// payment first.
func (s *FinanceService) PaymentHistory(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	payments, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Receipt renders a payment receipt PDF.
func (s *FinanceService) Receipt(ctx context.Context, paymentID string) ([]byte, string, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}

	student, err := s.students.FindByID(ctx, payment.StudentID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	notes := ""
	if payment.Notes != nil {
		notes = *payment.Notes
	}
	dataset := export.Dataset{
		Headers: []string{"Type", "Montant", "Date", "Notes"},
		Summary: []export.SummaryLine{
			{Label: "Recu No", Value: payment.ID},
			{Label: "Eleve", Value: fmt.Sprintf("%s %s (%s)", student.FirstName, student.LastName, student.Matricule)},
		},
		Rows: []map[string]string{{
			"Type":    string(payment.Type),
			"Montant": fmt.Sprintf("%.2f", payment.Amount),
			"Date":    payment.PaymentDate.Format("2006-01-02"),
			"Notes":   notes,
		}},
	}

	data, err := s.exporter.Render(dataset, "Recu de paiement")
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	s.metrics.RecordDocumentRendered("receipt")
	return data, fmt.Sprintf("receipt-%s.pdf", payment.ID), nil
}

// ExportHistory renders a student's ledger as CSV for the accounting
// office.
func (s *FinanceService) ExportHistory(ctx context.Context, filter models.PaymentFilter) ([]byte, error) {
	filter.Page = 1
	filter.PageSize = 100
	var all []models.Payment
	for {
		page, total, err := s.payments.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
		}
		all = append(all, page...)
		if len(all) >= total || len(page) == 0 {
			break
		}
		filter.Page++
	}

	var paid float64
	dataset := export.Dataset{Headers: []string{"id", "student_id", "type", "amount", "payment_date"}}
	for _, payment := range all {
		amount := payment.Amount
		if payment.Type == models.PaymentReversal {
			amount = -amount
		}
		paid += amount
		dataset.Rows = append(dataset.Rows, map[string]string{
			"id":           payment.ID,
			"student_id":   payment.StudentID,
			"type":         string(payment.Type),
			"amount":       fmt.Sprintf("%.2f", payment.Amount),
			"payment_date": payment.PaymentDate.Format("2006-01-02"),
		})
	}
	dataset.Summary = []export.SummaryLine{
		{Label: "entries", Value: fmt.Sprintf("%d", len(all))},
		{Label: "effective_total", Value: fmt.Sprintf("%.2f", paid)},
	}

	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render payment export")
	}
	return data, nil
}

// ClassroomCollections aggregates expected vs collected amounts per
// classroom of a school for one year.
func (s *FinanceService) ClassroomCollections(ctx context.Context, schoolID, schoolYearID string) ([]models.ClassroomCollection, error) {
	rows, err := s.payments.ClassroomCollections(ctx, schoolID, schoolYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate collections")
	}
	return rows, nil
}

func (s *FinanceService) balanceKey(studentID string, schoolYearID *string) string {
	scope := "all"
	if schoolYearID != nil {
		scope = *schoolYearID
	}
	return fmt.Sprintf("balance:%s:%s", studentID, scope)
}

func (s *FinanceService) invalidateBalance(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("balance:%s:*", studentID)); err != nil {
		s.logger.Warn("balance cache invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}
}
