package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/arodriguezv/gestoram/pkg/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore and initializes the database.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	// Manually enable foreign keys and WAL mode
	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	_, err = db.Exec("PRAGMA journal_mode = WAL;")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	log.Println("Database connection established and schema initialized.")
	return s, nil
}

// initSchema creates the database tables if they don't already exist.
// We use TEXT for decimal fields in SQLite to ensure no precision is lost.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS clients (
		cedula TEXT NOT NULL,
		full_name TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (cedula, owner_id)
	);
	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		client_cedula TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		principal TEXT NOT NULL,
		interest_rate TEXT NOT NULL,
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		total_amount TEXT NOT NULL,
		daily_payment TEXT NOT NULL,
		remaining_amount TEXT NOT NULL,
		status TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS loan_payments (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY(loan_id) REFERENCES loans(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateClient inserts a new client, rejecting a duplicate cedula for the
// same owner.
func (s *SQLiteStore) CreateClient(client *models.Client) error {
	var existing string
	err := s.db.QueryRow(`SELECT cedula FROM clients WHERE cedula = ? AND owner_id = ?`, client.Cedula, client.OwnerID).Scan(&existing)
	if err == nil {
		return ErrDuplicate
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check for existing client: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO clients (cedula, full_name, owner_id, created_at) VALUES (?, ?, ?, ?)`,
		client.Cedula, client.FullName, client.OwnerID, client.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// GetClient retrieves a client by cedula for a given owner.
func (s *SQLiteStore) GetClient(cedula, ownerID string) (*models.Client, error) {
	var client models.Client
	var created time.Time

	row := s.db.QueryRow(`SELECT cedula, full_name, owner_id, created_at FROM clients WHERE cedula = ? AND owner_id = ?`, cedula, ownerID)
	err := row.Scan(&client.Cedula, &client.FullName, &client.OwnerID, &created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	client.CreatedAt = created
	return &client, nil
}

// ListClients retrieves all clients belonging to an owner, newest first.
func (s *SQLiteStore) ListClients(ownerID string) ([]*models.Client, error) {
	rows, err := s.db.Query(`SELECT cedula, full_name, owner_id, created_at FROM clients WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		var client models.Client
		var created time.Time
		if err := rows.Scan(&client.Cedula, &client.FullName, &client.OwnerID, &created); err != nil {
			return nil, fmt.Errorf("failed to scan client row: %w", err)
		}
		client.CreatedAt = created
		clients = append(clients, &client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return clients, nil
}

// DeleteClient removes a client by cedula for a given owner.
func (s *SQLiteStore) DeleteClient(cedula, ownerID string) error {
	result, err := s.db.Exec(`DELETE FROM clients WHERE cedula = ? AND owner_id = ?`, cedula, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateLoan inserts a new loan into the database.
func (s *SQLiteStore) CreateLoan(loan *models.Loan) error {
	_, err := s.db.Exec(
		`INSERT INTO loans (id, client_cedula, owner_id, principal, interest_rate, start_date, end_date, total_amount, daily_payment, remaining_amount, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.ID.String(), loan.ClientID, loan.OwnerID, loan.Principal, loan.InterestRate, loan.StartDate, loan.EndDate, loan.TotalAmount, loan.DailyPayment, loan.RemainingAmount, string(loan.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

// GetLoan retrieves a loan by its ID.
func (s *SQLiteStore) GetLoan(id uuid.UUID) (*models.Loan, error) {
	row := s.db.QueryRow(`SELECT id, client_cedula, owner_id, principal, interest_rate, start_date, end_date, total_amount, daily_payment, remaining_amount, status FROM loans WHERE id = ?`, id.String())
	loan, err := scanLoan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

// UpdateLoan persists the mutable figures of an existing loan.
func (s *SQLiteStore) UpdateLoan(loan *models.Loan) error {
	result, err := s.db.Exec(
		`UPDATE loans SET daily_payment = ?, remaining_amount = ?, status = ? WHERE id = ?`,
		loan.DailyPayment, loan.RemainingAmount, string(loan.Status), loan.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLoan removes a loan and its payments from the database within a
// transaction.
func (s *SQLiteStore) DeleteLoan(id uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM loan_payments WHERE loan_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete associated payments: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM loans WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// ListLoans retrieves all loans belonging to an owner, newest first.
func (s *SQLiteStore) ListLoans(ownerID string) ([]*models.Loan, error) {
	rows, err := s.db.Query(`SELECT id, client_cedula, owner_id, principal, interest_rate, start_date, end_date, total_amount, daily_payment, remaining_amount, status FROM loans WHERE owner_id = ? ORDER BY start_date DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	return scanLoans(rows)
}

// ListLoansForClient retrieves all loans issued to one client by one owner.
func (s *SQLiteStore) ListLoansForClient(cedula, ownerID string) ([]*models.Loan, error) {
	rows, err := s.db.Query(`SELECT id, client_cedula, owner_id, principal, interest_rate, start_date, end_date, total_amount, daily_payment, remaining_amount, status FROM loans WHERE client_cedula = ? AND owner_id = ? ORDER BY start_date DESC`, cedula, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans for client %s: %w", cedula, err)
	}
	defer rows.Close()

	return scanLoans(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(row rowScanner) (*models.Loan, error) {
	var loan models.Loan
	var loanIDStr, status string
	var start, end time.Time
	if err := row.Scan(&loanIDStr, &loan.ClientID, &loan.OwnerID, &loan.Principal, &loan.InterestRate, &start, &end, &loan.TotalAmount, &loan.DailyPayment, &loan.RemainingAmount, &status); err != nil {
		return nil, err
	}
	loan.ID = uuid.MustParse(loanIDStr)
	loan.StartDate = start
	loan.EndDate = end
	loan.Status = models.LoanStatus(status)
	return &loan, nil
}

func scanLoans(rows *sql.Rows) ([]*models.Loan, error) {
	var loans []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return loans, nil
}

// CreatePayment inserts a new payment into the database.
func (s *SQLiteStore) CreatePayment(payment *models.Payment) error {
	_, err := s.db.Exec(
		`INSERT INTO loan_payments (id, loan_id, amount, created_at)
		VALUES (?, ?, ?, ?)`,
		payment.ID.String(), payment.LoanID.String(), payment.Amount, payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetPayment retrieves a payment by its ID.
func (s *SQLiteStore) GetPayment(id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	var paymentIDStr, loanIDStr string
	var created time.Time

	row := s.db.QueryRow(`SELECT id, loan_id, amount, created_at FROM loan_payments WHERE id = ?`, id.String())
	err := row.Scan(&paymentIDStr, &loanIDStr, &payment.Amount, &created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	payment.ID = uuid.MustParse(paymentIDStr)
	payment.LoanID = uuid.MustParse(loanIDStr)
	payment.CreatedAt = created
	return &payment, nil
}

// DeletePayment removes a payment by its ID.
func (s *SQLiteStore) DeletePayment(id uuid.UUID) error {
	result, err := s.db.Exec(`DELETE FROM loan_payments WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPaymentsForLoan retrieves all payments for a given loan ID, oldest
// first.
func (s *SQLiteStore) GetPaymentsForLoan(loanID uuid.UUID) ([]*models.Payment, error) {
	rows, err := s.db.Query(`SELECT id, loan_id, amount, created_at FROM loan_payments WHERE loan_id = ? ORDER BY created_at ASC`, loanID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get payments for loan %s: %w", loanID, err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		var payment models.Payment
		var paymentIDStr, loanIDStr string
		var created time.Time
		if err := rows.Scan(&paymentIDStr, &loanIDStr, &payment.Amount, &created); err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payment.ID = uuid.MustParse(paymentIDStr)
		payment.LoanID = uuid.MustParse(loanIDStr)
		payment.CreatedAt = created
		payments = append(payments, &payment)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for loan payments: %w", err)
	}
	return payments, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
