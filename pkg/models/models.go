package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusOpen   LoanStatus = "open"
	LoanStatusClosed LoanStatus = "closed"
)

// Client is a borrower registered by a collector. Cedula is the national ID
// number; the same cedula may exist again under a different owner.
type Client struct {
	Cedula    string    `json:"cedula"`
	FullName  string    `json:"full_name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Loan struct {
	ID              uuid.UUID       `json:"id"`
	ClientID        string          `json:"client_id"` // Borrower cedula
	OwnerID         string          `json:"owner_id"`  // Collector who issued the loan
	Principal       decimal.Decimal `json:"principal"`
	InterestRate    decimal.Decimal `json:"interest_rate"` // Percent, simple interest applied once
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	TotalAmount     decimal.Decimal `json:"total_amount"`     // Principal plus interest, fixed at origination
	DailyPayment    decimal.Decimal `json:"daily_payment"`    // Recomputed on every balance change
	RemainingAmount decimal.Decimal `json:"remaining_amount"` // Outstanding balance
	Status          LoanStatus      `json:"status"`
}

// Payment is a partial payment (abono) applied against a loan's balance.
type Payment struct {
	ID        uuid.UUID       `json:"id"`
	LoanID    uuid.UUID       `json:"loan_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
