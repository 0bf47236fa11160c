package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academiapro/academiapro-api/internal/models"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
)

type mockPaymentRepo struct {
	payments []models.Payment
	expected float64
}

func (m *mockPaymentRepo) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	for _, p := range m.payments {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = time.Now().UTC()
	}
	m.payments = append(m.payments, *payment)
	return nil
}

func (m *mockPaymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	var result []models.Payment
	for _, p := range m.payments {
		if filter.StudentID != "" && filter.StudentID != p.StudentID {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PaymentDate.After(result[j].PaymentDate)
	})
	return result, len(result), nil
}

func (m *mockPaymentRepo) SumForStudent(ctx context.Context, studentID string, schoolYearID *string) (float64, error) {
	var sum float64
	for _, p := range m.payments {
		if p.StudentID != studentID {
			continue
		}
		if p.Type == models.PaymentReversal {
			sum -= p.Amount
		} else {
			sum += p.Amount
		}
	}
	return sum, nil
}

func (m *mockPaymentRepo) ExpectedForStudent(ctx context.Context, studentID string, schoolYearID *string) (float64, error) {
	return m.expected, nil
}

func (m *mockPaymentRepo) ClassroomCollections(ctx context.Context, schoolID, schoolYearID string) ([]models.ClassroomCollection, error) {
	return nil, nil
}

type mockBalanceCache struct {
	store      map[string]models.Balance
	getCalls   int
	setCalls   int
	deleteKeys []string
}

func (m *mockBalanceCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.getCalls++
	cached, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*models.Balance) = cached
	return nil
}

func (m *mockBalanceCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.setCalls++
	if m.store == nil {
		m.store = make(map[string]models.Balance)
	}
	m.store[key] = *value.(*models.Balance)
	return nil
}

func (m *mockBalanceCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleteKeys = append(m.deleteKeys, pattern)
	m.store = nil
	return nil
}

func newFinanceFixture(t *testing.T) (*FinanceService, *mockPaymentRepo, *mockBalanceCache, string) {
	t.Helper()
	studentID := uuid.NewString()
	schoolID := uuid.NewString()

	payments := &mockPaymentRepo{}
	students := &gbStudentRepo{students: map[string]models.Student{
		studentID: {ID: studentID, SchoolID: schoolID},
	}}
	cache := &mockBalanceCache{}

	svc := NewFinanceService(payments, students, cache, nil, nil, FinanceConfig{})
	return svc, payments, cache, studentID
}

func TestRecordPaymentAppendsAndInvalidatesCache(t *testing.T) {
	svc, repo, cache, studentID := newFinanceFixture(t)

	payment, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
		StudentID: studentID,
		Amount:    50000,
		Type:      models.PaymentTuition,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, payment.ID)
	require.NotNil(t, payment.SchoolID)
	assert.Len(t, repo.payments, 1)
	assert.Len(t, cache.deleteKeys, 1)
	assert.Contains(t, cache.deleteKeys[0], studentID)
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _, studentID := newFinanceFixture(t)

	_, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
		StudentID: studentID,
		Amount:    0,
		Type:      models.PaymentTuition,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestReversalMayNotExceedPaidTotal(t *testing.T) {
	svc, _, _, studentID := newFinanceFixture(t)

	_, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
		StudentID: studentID,
		Amount:    30000,
		Type:      models.PaymentTuition,
	})
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), RecordPaymentRequest{
		StudentID: studentID,
		Amount:    40000,
		Type:      models.PaymentReversal,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrDomain.Code, appErr.Code)

	// A reversal within the paid total goes through.
	_, err = svc.RecordPayment(context.Background(), RecordPaymentRequest{
		StudentID: studentID,
		Amount:    30000,
		Type:      models.PaymentReversal,
	})
	require.NoError(t, err)
}

func TestGetBalanceSubtractsReversals(t *testing.T) {
	svc, repo, _, studentID := newFinanceFixture(t)
	repo.expected = 120000

	for _, p := range []struct {
		amount float64
		kind   models.PaymentType
	}{
		{50000, models.PaymentTuition},
		{20000, models.PaymentTuition},
		{10000, models.PaymentReversal},
	} {
		_, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
			StudentID: studentID,
			Amount:    p.amount,
			Type:      p.kind,
		})
		require.NoError(t, err)
	}

	balance, err := svc.GetBalance(context.Background(), studentID, nil)
	require.NoError(t, err)
	assert.Equal(t, 120000.0, balance.ExpectedTotal)
	assert.Equal(t, 60000.0, balance.PaidTotal)
	assert.Equal(t, 60000.0, balance.Balance)
}

func TestGetBalanceUsesCache(t *testing.T) {
	svc, repo, cache, studentID := newFinanceFixture(t)
	repo.expected = 100000

	first, err := svc.GetBalance(context.Background(), studentID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.setCalls)

	// A second read comes from the cache even after the ledger moved
	// underneath it.
	repo.expected = 999999
	second, err := svc.GetBalance(context.Background(), studentID, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ExpectedTotal, second.ExpectedTotal)
	assert.Equal(t, 1, cache.setCalls)

	// A payment invalidates and the next read recomputes.
	_, err = svc.RecordPayment(context.Background(), RecordPaymentRequest{
		StudentID: studentID,
		Amount:    10000,
		Type:      models.PaymentTuition,
	})
	require.NoError(t, err)

	third, err := svc.GetBalance(context.Background(), studentID, nil)
	require.NoError(t, err)
	assert.Equal(t, 999999.0, third.ExpectedTotal)
	assert.Equal(t, 10000.0, third.PaidTotal)
}

func TestPaymentHistoryMostRecentFirst(t *testing.T) {
	svc, repo, _, studentID := newFinanceFixture(t)

	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	for i, day := range []int{5, 20, 1} {
		date := base.AddDate(0, 0, day)
		_, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
			StudentID:   studentID,
			Amount:      float64(1000 * (i + 1)),
			Type:        models.PaymentTuition,
			PaymentDate: &date,
		})
		require.NoError(t, err)
	}
	require.Len(t, repo.payments, 3)

	payments, pagination, err := svc.PaymentHistory(context.Background(), models.PaymentFilter{StudentID: studentID})
	require.NoError(t, err)
	require.NotNil(t, pagination)
	require.Len(t, payments, 3)

	assert.True(t, payments[0].PaymentDate.After(payments[1].PaymentDate))
	assert.True(t, payments[1].PaymentDate.After(payments[2].PaymentDate))
}
