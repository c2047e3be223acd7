package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arodriguezv/gestoram/pkg/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testLoan(ownerID string) *models.Loan {
	now := time.Now()
	return &models.Loan{
		ID:              uuid.New(),
		ClientID:        "100200300",
		OwnerID:         ownerID,
		Principal:       decimal.NewFromFloat(100.00),
		InterestRate:    decimal.NewFromInt(10),
		StartDate:       now,
		EndDate:         now.AddDate(0, 0, 10),
		TotalAmount:     decimal.NewFromFloat(110.00),
		DailyPayment:    decimal.NewFromFloat(11.00),
		RemainingAmount: decimal.NewFromFloat(110.00),
		Status:          models.LoanStatusOpen,
	}
}

func TestSQLiteStore_CreateAndGetLoan(t *testing.T) {
	s := newTestSQLiteStore(t)

	loan := testLoan("collector1")
	if err := s.CreateLoan(loan); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}

	fetched, err := s.GetLoan(loan.ID)
	if err != nil {
		t.Fatalf("Failed to get loan: %v", err)
	}

	if fetched.ClientID != loan.ClientID {
		t.Errorf("Expected ClientID %s, got %s", loan.ClientID, fetched.ClientID)
	}
	if !fetched.TotalAmount.Equal(loan.TotalAmount) {
		t.Errorf("Expected TotalAmount %s, got %s", loan.TotalAmount, fetched.TotalAmount)
	}
	if !fetched.RemainingAmount.Equal(loan.RemainingAmount) {
		t.Errorf("Expected RemainingAmount %s, got %s", loan.RemainingAmount, fetched.RemainingAmount)
	}
	if fetched.Status != models.LoanStatusOpen {
		t.Errorf("Expected status open, got %s", fetched.Status)
	}
}

func TestSQLiteStore_UpdateLoan(t *testing.T) {
	s := newTestSQLiteStore(t)

	loan := testLoan("collector1")
	if err := s.CreateLoan(loan); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}

	loan.RemainingAmount = decimal.NewFromFloat(60.00)
	loan.DailyPayment = decimal.NewFromFloat(12.00)
	if err := s.UpdateLoan(loan); err != nil {
		t.Fatalf("Failed to update loan: %v", err)
	}

	fetched, err := s.GetLoan(loan.ID)
	if err != nil {
		t.Fatalf("Failed to get loan: %v", err)
	}
	if !fetched.RemainingAmount.Equal(decimal.NewFromFloat(60.00)) {
		t.Errorf("Expected RemainingAmount 60.00, got %s", fetched.RemainingAmount)
	}
	if !fetched.DailyPayment.Equal(decimal.NewFromFloat(12.00)) {
		t.Errorf("Expected DailyPayment 12.00, got %s", fetched.DailyPayment)
	}
}

func TestSQLiteStore_PaymentsOrderedByCreation(t *testing.T) {
	s := newTestSQLiteStore(t)

	loan := testLoan("collector1")
	if err := s.CreateLoan(loan); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}

	base := time.Now()
	// Insert out of order to make sure ordering comes from created_at.
	for _, offset := range []int{2, 0, 1} {
		p := &models.Payment{
			ID:        uuid.New(),
			LoanID:    loan.ID,
			Amount:    decimal.NewFromInt(int64(10 * (offset + 1))),
			CreatedAt: base.Add(time.Duration(offset) * time.Minute),
		}
		if err := s.CreatePayment(p); err != nil {
			t.Fatalf("Failed to create payment: %v", err)
		}
	}

	payments, err := s.GetPaymentsForLoan(loan.ID)
	if err != nil {
		t.Fatalf("Failed to get payments: %v", err)
	}
	if len(payments) != 3 {
		t.Fatalf("Expected 3 payments, got %d", len(payments))
	}
	for i := 1; i < len(payments); i++ {
		if payments[i].CreatedAt.Before(payments[i-1].CreatedAt) {
			t.Errorf("Expected payments ordered by created_at ascending")
		}
	}
}

func TestSQLiteStore_DeleteLoanRemovesPayments(t *testing.T) {
	s := newTestSQLiteStore(t)

	loan := testLoan("collector1")
	if err := s.CreateLoan(loan); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}
	payment := &models.Payment{
		ID:        uuid.New(),
		LoanID:    loan.ID,
		Amount:    decimal.NewFromFloat(50.00),
		CreatedAt: time.Now(),
	}
	if err := s.CreatePayment(payment); err != nil {
		t.Fatalf("Failed to create payment: %v", err)
	}

	if err := s.DeleteLoan(loan.ID); err != nil {
		t.Fatalf("Failed to delete loan: %v", err)
	}

	if _, err := s.GetLoan(loan.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for deleted loan, got %v", err)
	}
	if _, err := s.GetPayment(payment.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for deleted payment, got %v", err)
	}
}

func TestSQLiteStore_ListLoansScopedToOwner(t *testing.T) {
	s := newTestSQLiteStore(t)

	if err := s.CreateLoan(testLoan("collector1")); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}
	if err := s.CreateLoan(testLoan("collector2")); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}

	loans, err := s.ListLoans("collector1")
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if len(loans) != 1 {
		t.Fatalf("Expected 1 loan for collector1, got %d", len(loans))
	}
	if loans[0].OwnerID != "collector1" {
		t.Errorf("Expected owner collector1, got %s", loans[0].OwnerID)
	}
}

func TestSQLiteStore_ClientDuplicate(t *testing.T) {
	s := newTestSQLiteStore(t)

	client := &models.Client{
		Cedula:    "100200300",
		FullName:  "Maria Lopez",
		OwnerID:   "collector1",
		CreatedAt: time.Now(),
	}
	if err := s.CreateClient(client); err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if err := s.CreateClient(client); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}

	// Same cedula under another owner is allowed.
	other := &models.Client{
		Cedula:    "100200300",
		FullName:  "Maria Lopez",
		OwnerID:   "collector2",
		CreatedAt: time.Now(),
	}
	if err := s.CreateClient(other); err != nil {
		t.Errorf("Expected same cedula under another owner to succeed, got %v", err)
	}
}

func TestSQLiteStore_DeleteClientNotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	if err := s.DeleteClient("missing", "collector1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
