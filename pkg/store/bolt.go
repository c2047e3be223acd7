package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/google/uuid"

	"github.com/arodriguezv/gestoram/pkg/models"
)

const (
	clientsBucket  = "clients"
	loansBucket    = "loans"
	paymentsBucket = "loan_payments"
)

// BoltStore is an embedded single-file alternative to SQLiteStore. Records
// are stored JSON-marshaled; clients are keyed by owner id plus cedula,
// loans and payments by their UUID.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a BoltDB database at the given path and
// ensures all buckets exist.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{clientsBucket, loansBucket, paymentsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func clientKey(cedula, ownerID string) []byte {
	return []byte(ownerID + "/" + cedula)
}

// CreateClient inserts a new client, rejecting a duplicate cedula for the
// same owner.
func (s *BoltStore) CreateClient(client *models.Client) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(clientsBucket))
		key := clientKey(client.Cedula, client.OwnerID)
		if b.Get(key) != nil {
			return ErrDuplicate
		}
		data, err := json.Marshal(client)
		if err != nil {
			return fmt.Errorf("failed to marshal client: %w", err)
		}
		return b.Put(key, data)
	})
}

// GetClient retrieves a client by cedula for a given owner.
func (s *BoltStore) GetClient(cedula, ownerID string) (*models.Client, error) {
	var client models.Client
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(clientsBucket)).Get(clientKey(cedula, ownerID))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &client)
	})
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// ListClients retrieves all clients belonging to an owner, newest first.
func (s *BoltStore) ListClients(ownerID string) ([]*models.Client, error) {
	var clients []*models.Client
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(clientsBucket)).ForEach(func(k, v []byte) error {
			var client models.Client
			if err := json.Unmarshal(v, &client); err != nil {
				return err
			}
			if client.OwnerID == ownerID {
				clients = append(clients, &client)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].CreatedAt.After(clients[j].CreatedAt)
	})
	return clients, nil
}

// DeleteClient removes a client by cedula for a given owner.
func (s *BoltStore) DeleteClient(cedula, ownerID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(clientsBucket))
		key := clientKey(cedula, ownerID)
		if b.Get(key) == nil {
			return ErrNotFound
		}
		return b.Delete(key)
	})
}

// CreateLoan inserts a new loan.
func (s *BoltStore) CreateLoan(loan *models.Loan) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(loan)
		if err != nil {
			return fmt.Errorf("failed to marshal loan: %w", err)
		}
		return tx.Bucket([]byte(loansBucket)).Put([]byte(loan.ID.String()), data)
	})
}

// GetLoan retrieves a loan by its ID.
func (s *BoltStore) GetLoan(id uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(loansBucket)).Get([]byte(id.String()))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &loan)
	})
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// UpdateLoan persists an existing loan.
func (s *BoltStore) UpdateLoan(loan *models.Loan) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(loansBucket))
		key := []byte(loan.ID.String())
		if b.Get(key) == nil {
			return ErrNotFound
		}
		data, err := json.Marshal(loan)
		if err != nil {
			return fmt.Errorf("failed to marshal loan: %w", err)
		}
		return b.Put(key, data)
	})
}

// DeleteLoan removes a loan and its payments in a single transaction.
func (s *BoltStore) DeleteLoan(id uuid.UUID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		loans := tx.Bucket([]byte(loansBucket))
		key := []byte(id.String())
		if loans.Get(key) == nil {
			return ErrNotFound
		}

		payments := tx.Bucket([]byte(paymentsBucket))
		var stale [][]byte
		err := payments.ForEach(func(k, v []byte) error {
			var payment models.Payment
			if err := json.Unmarshal(v, &payment); err != nil {
				return err
			}
			if payment.LoanID == id {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := payments.Delete(k); err != nil {
				return err
			}
		}

		return loans.Delete(key)
	})
}

// ListLoans retrieves all loans belonging to an owner, newest first.
func (s *BoltStore) ListLoans(ownerID string) ([]*models.Loan, error) {
	return s.filterLoans(func(loan *models.Loan) bool {
		return loan.OwnerID == ownerID
	})
}

// ListLoansForClient retrieves all loans issued to one client by one owner.
func (s *BoltStore) ListLoansForClient(cedula, ownerID string) ([]*models.Loan, error) {
	return s.filterLoans(func(loan *models.Loan) bool {
		return loan.ClientID == cedula && loan.OwnerID == ownerID
	})
}

func (s *BoltStore) filterLoans(keep func(*models.Loan) bool) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(loansBucket)).ForEach(func(k, v []byte) error {
			var loan models.Loan
			if err := json.Unmarshal(v, &loan); err != nil {
				return err
			}
			if keep(&loan) {
				loans = append(loans, &loan)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(loans, func(i, j int) bool {
		return loans[i].StartDate.After(loans[j].StartDate)
	})
	return loans, nil
}

// CreatePayment inserts a new payment.
func (s *BoltStore) CreatePayment(payment *models.Payment) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(payment)
		if err != nil {
			return fmt.Errorf("failed to marshal payment: %w", err)
		}
		return tx.Bucket([]byte(paymentsBucket)).Put([]byte(payment.ID.String()), data)
	})
}

// GetPayment retrieves a payment by its ID.
func (s *BoltStore) GetPayment(id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(paymentsBucket)).Get([]byte(id.String()))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &payment)
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// DeletePayment removes a payment by its ID.
func (s *BoltStore) DeletePayment(id uuid.UUID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(paymentsBucket))
		key := []byte(id.String())
		if b.Get(key) == nil {
			return ErrNotFound
		}
		return b.Delete(key)
	})
}

// GetPaymentsForLoan retrieves all payments for a given loan ID, oldest
// first.
func (s *BoltStore) GetPaymentsForLoan(loanID uuid.UUID) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(paymentsBucket)).ForEach(func(k, v []byte) error {
			var payment models.Payment
			if err := json.Unmarshal(v, &payment); err != nil {
				return err
			}
			if payment.LoanID == loanID {
				payments = append(payments, &payment)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.Before(payments[j].CreatedAt)
	})
	return payments, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
