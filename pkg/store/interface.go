package store

import (
	"errors"

	"github.com/google/uuid"

	"github.com/arodriguezv/gestoram/pkg/models"
)

// ErrNotFound is returned when a requested client, loan or payment does not
// exist in the store.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a client with the same cedula already exists
// for the same owner.
var ErrDuplicate = errors.New("record already exists")

// Storage defines the persistence operations for clients, loans and payments.
type Storage interface {
	CreateClient(client *models.Client) error
	GetClient(cedula, ownerID string) (*models.Client, error)
	ListClients(ownerID string) ([]*models.Client, error)
	DeleteClient(cedula, ownerID string) error

	CreateLoan(loan *models.Loan) error
	GetLoan(id uuid.UUID) (*models.Loan, error)
	UpdateLoan(loan *models.Loan) error
	DeleteLoan(id uuid.UUID) error
	ListLoans(ownerID string) ([]*models.Loan, error)
	ListLoansForClient(cedula, ownerID string) ([]*models.Loan, error)

	CreatePayment(payment *models.Payment) error
	GetPayment(id uuid.UUID) (*models.Payment, error)
	DeletePayment(id uuid.UUID) error
	GetPaymentsForLoan(loanID uuid.UUID) ([]*models.Payment, error)

	Close() error
}
