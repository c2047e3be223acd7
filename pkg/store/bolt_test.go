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

func newTestBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStore_CreateAndGetLoan(t *testing.T) {
	s := newTestBoltStore(t)

	loan := testLoan("collector1")
	if err := s.CreateLoan(loan); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}

	fetched, err := s.GetLoan(loan.ID)
	if err != nil {
		t.Fatalf("Failed to get loan: %v", err)
	}
	if fetched.ID != loan.ID {
		t.Errorf("Expected ID %s, got %s", loan.ID, fetched.ID)
	}
	if !fetched.TotalAmount.Equal(loan.TotalAmount) {
		t.Errorf("Expected TotalAmount %s, got %s", loan.TotalAmount, fetched.TotalAmount)
	}
}

func TestBoltStore_GetLoanNotFound(t *testing.T) {
	s := newTestBoltStore(t)

	if _, err := s.GetLoan(uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBoltStore_UpdateLoanNotFound(t *testing.T) {
	s := newTestBoltStore(t)

	if err := s.UpdateLoan(testLoan("collector1")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBoltStore_PaymentsOrderedByCreation(t *testing.T) {
	s := newTestBoltStore(t)

	loan := testLoan("collector1")
	if err := s.CreateLoan(loan); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}

	base := time.Now()
	for _, offset := range []int{1, 2, 0} {
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

func TestBoltStore_DeleteLoanRemovesPayments(t *testing.T) {
	s := newTestBoltStore(t)

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

func TestBoltStore_ClientDuplicate(t *testing.T) {
	s := newTestBoltStore(t)

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
}

func TestBoltStore_ListLoansScopedToOwner(t *testing.T) {
	s := newTestBoltStore(t)

	mine := testLoan("collector1")
	other := testLoan("collector2")
	if err := s.CreateLoan(mine); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}
	if err := s.CreateLoan(other); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}

	loans, err := s.ListLoans("collector1")
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if len(loans) != 1 || loans[0].ID != mine.ID {
		t.Fatalf("Expected only collector1's loan, got %d loans", len(loans))
	}

	forClient, err := s.ListLoansForClient("100200300", "collector2")
	if err != nil {
		t.Fatalf("Failed to list loans for client: %v", err)
	}
	if len(forClient) != 1 || forClient[0].ID != other.ID {
		t.Fatalf("Expected only collector2's loan for the client, got %d loans", len(forClient))
	}
}
