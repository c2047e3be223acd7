// Package ledger holds the business rules for collector loans: origination,
// partial-payment (abono) application, payment reversal inside the edit
// window, and the open/closed lifecycle.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arodriguezv/gestoram/pkg/amortize"
	"github.com/arodriguezv/gestoram/pkg/models"
	"github.com/arodriguezv/gestoram/pkg/store"
	"github.com/arodriguezv/gestoram/pkg/window"
)

var (
	// closeTolerance is the residual balance below which a loan is
	// considered paid off. Keeps one-cent rounding leftovers from holding
	// a loan open forever.
	closeTolerance = decimal.NewFromFloat(0.01)
)

var (
	ErrInvalidAmount   = errors.New("payment amount must be positive")
	ErrExceedsBalance  = errors.New("payment exceeds remaining balance")
	ErrLoanClosed      = errors.New("loan is already closed")
	ErrWindowExpired   = errors.New("edit window has expired")
	ErrNotOwner        = errors.New("loan belongs to another collector")
	ErrLoanHasPayments = errors.New("loan has recorded payments")
	ErrClientHasLoans  = errors.New("client has registered loans")
)

// Ledger handles the business logic for clients, loans and payments.
type Ledger struct {
	storage store.Storage // Use the Storage interface
}

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage) *Ledger {
	return &Ledger{storage: s}
}

// RegisterClient adds a borrower for a collector. The cedula must be unique
// per owner; the store reports a duplicate as store.ErrDuplicate.
func (l *Ledger) RegisterClient(cedula, fullName, ownerID string, now time.Time) (*models.Client, error) {
	if cedula == "" || fullName == "" || ownerID == "" {
		return nil, fmt.Errorf("cedula, full name and owner are required")
	}

	client := &models.Client{
		Cedula:    cedula,
		FullName:  fullName,
		OwnerID:   ownerID,
		CreatedAt: now,
	}
	if err := l.storage.CreateClient(client); err != nil {
		return nil, fmt.Errorf("failed to store client: %w", err)
	}
	return client, nil
}

// ListClients retrieves all clients belonging to an owner.
func (l *Ledger) ListClients(ownerID string) ([]*models.Client, error) {
	return l.storage.ListClients(ownerID)
}

// RemoveClient deletes a client. A client with any loan on record, open or
// closed, cannot be removed.
func (l *Ledger) RemoveClient(cedula, ownerID string) error {
	loans, err := l.storage.ListLoansForClient(cedula, ownerID)
	if err != nil {
		return fmt.Errorf("failed to check loans for client: %w", err)
	}
	if len(loans) > 0 {
		return ErrClientHasLoans
	}
	return l.storage.DeleteClient(cedula, ownerID)
}

// Originate computes the figure set for a prospective loan without touching
// storage.
func (l *Ledger) Originate(principal, ratePct decimal.Decimal, start, end time.Time) (amortize.Quote, error) {
	return amortize.Originate(principal, ratePct, start, end)
}

// CreateLoan quotes and persists a new loan for a registered client. The
// loan starts open with the full total amount outstanding.
func (l *Ledger) CreateLoan(clientID, ownerID string, principal, ratePct decimal.Decimal, start, end time.Time) (*models.Loan, error) {
	if _, err := l.storage.GetClient(clientID, ownerID); err != nil {
		return nil, fmt.Errorf("failed to look up client %s: %w", clientID, err)
	}

	quote, err := amortize.Originate(principal, ratePct, start, end)
	if err != nil {
		return nil, err
	}

	loan := &models.Loan{
		ID:              uuid.New(),
		ClientID:        clientID,
		OwnerID:         ownerID,
		Principal:       principal,
		InterestRate:    ratePct,
		StartDate:       start,
		EndDate:         end,
		TotalAmount:     quote.TotalAmount,
		DailyPayment:    quote.DailyPayment,
		RemainingAmount: quote.TotalAmount,
		Status:          models.LoanStatusOpen,
	}

	if err := l.storage.CreateLoan(loan); err != nil {
		return nil, fmt.Errorf("failed to store loan: %w", err)
	}
	return loan, nil
}

// GetLoan retrieves a loan by its ID.
func (l *Ledger) GetLoan(id uuid.UUID) (*models.Loan, error) {
	return l.storage.GetLoan(id)
}

// ListLoans retrieves all loans belonging to an owner.
func (l *Ledger) ListLoans(ownerID string) ([]*models.Loan, error) {
	return l.storage.ListLoans(ownerID)
}

// LoanDetail is the read-only projection of a loan and its payment history,
// oldest payment first.
type LoanDetail struct {
	Loan     *models.Loan      `json:"loan"`
	Payments []*models.Payment `json:"payments"`
}

// GetLoanDetail returns a loan's current figures together with its ordered
// payment history.
func (l *Ledger) GetLoanDetail(id uuid.UUID) (*LoanDetail, error) {
	loan, err := l.storage.GetLoan(id)
	if err != nil {
		return nil, err
	}
	payments, err := l.storage.GetPaymentsForLoan(id)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	return &LoanDetail{Loan: loan, Payments: payments}, nil
}

// ApplyPayment records a partial payment against an open loan. The amount
// must be positive and no larger than the remaining balance; on success the
// balance, daily payment and status are updated together and the payment
// record is persisted. This is the only operation that can close a loan.
func (l *Ledger) ApplyPayment(loanID uuid.UUID, amount decimal.Decimal, now time.Time) (*models.Loan, *models.Payment, error) {
	loan, err := l.storage.GetLoan(loanID)
	if err != nil {
		return nil, nil, err
	}

	if loan.Status != models.LoanStatusOpen {
		return nil, nil, ErrLoanClosed
	}
	if !amount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}
	if amount.GreaterThan(loan.RemainingAmount) {
		return nil, nil, ErrExceedsBalance
	}

	loan.RemainingAmount = loan.RemainingAmount.Sub(amount).Round(2)
	recalculate(loan, now)

	if err := l.storage.UpdateLoan(loan); err != nil {
		return nil, nil, fmt.Errorf("failed to update loan balance: %w", err)
	}

	payment := &models.Payment{
		ID:        uuid.New(),
		LoanID:    loan.ID,
		Amount:    amount,
		CreatedAt: now,
	}
	if err := l.storage.CreatePayment(payment); err != nil {
		return nil, nil, fmt.Errorf("failed to store payment: %w", err)
	}

	return loan, payment, nil
}

// ReversePayment undoes a payment recorded within the edit window, restoring
// the amount to the loan's balance and deleting the payment record. A
// reversal that pushes the balance back above zero reopens a closed loan.
func (l *Ledger) ReversePayment(loanID, paymentID uuid.UUID, now time.Time) (*models.Loan, error) {
	payment, err := l.storage.GetPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.LoanID != loanID {
		return nil, fmt.Errorf("payment %s: %w", paymentID, store.ErrNotFound)
	}
	if !window.IsMutable(payment.CreatedAt, now) {
		return nil, ErrWindowExpired
	}

	loan, err := l.storage.GetLoan(loanID)
	if err != nil {
		return nil, err
	}

	loan.RemainingAmount = clamp(loan.RemainingAmount.Add(payment.Amount).Round(2), loan.TotalAmount)
	recalculate(loan, now)

	if err := l.storage.UpdateLoan(loan); err != nil {
		return nil, fmt.Errorf("failed to update loan balance: %w", err)
	}
	if err := l.storage.DeletePayment(paymentID); err != nil {
		return nil, fmt.Errorf("failed to delete payment: %w", err)
	}

	return loan, nil
}

// DeleteLoan removes a loan entirely. Only the owning collector may delete,
// only inside the edit window anchored to the loan's start date, and only
// while no payments are on record.
func (l *Ledger) DeleteLoan(loanID uuid.UUID, ownerID string, now time.Time) error {
	loan, err := l.storage.GetLoan(loanID)
	if err != nil {
		return err
	}
	if loan.OwnerID != ownerID {
		return ErrNotOwner
	}
	if !window.IsMutable(loan.StartDate, now) {
		return ErrWindowExpired
	}

	payments, err := l.storage.GetPaymentsForLoan(loanID)
	if err != nil {
		return fmt.Errorf("failed to check payments for loan: %w", err)
	}
	if len(payments) > 0 {
		return ErrLoanHasPayments
	}

	return l.storage.DeleteLoan(loanID)
}

// recalculate refreshes the daily payment and status from the current
// balance and the days left until the due date. Status is always derived
// here, never set forward on its own, so a reversal can reopen a loan.
func recalculate(loan *models.Loan, now time.Time) {
	remainingDays := amortize.DaysBetween(now, loan.EndDate)
	if loan.RemainingAmount.LessThanOrEqual(closeTolerance) || remainingDays <= 0 {
		loan.RemainingAmount = decimal.Zero
		loan.DailyPayment = decimal.Zero
		loan.Status = models.LoanStatusClosed
		return
	}
	loan.DailyPayment = amortize.Installment(loan.RemainingAmount, remainingDays)
	loan.Status = models.LoanStatusOpen
}

// clamp keeps a recomputed balance inside [0, total]. A correct reversal can
// never leave the range, but a corrupted payment record must not either.
func clamp(balance, total decimal.Decimal) decimal.Decimal {
	if balance.IsNegative() {
		return decimal.Zero
	}
	if balance.GreaterThan(total) {
		return total
	}
	return balance
}
