// Package amortize computes origination and per-day installment figures for
// daily-payment loans: principal plus one-time simple interest, spread over
// the whole days left until the due date.
package amortize

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
)

var (
	ErrInvalidPrincipal = errors.New("principal must be positive")
	ErrInvalidRate      = errors.New("interest rate cannot be negative")
	ErrInvalidTerm      = errors.New("end date must be after start date")
)

// Quote is the figure set fixed for a loan at origination.
type Quote struct {
	TotalAmount  decimal.Decimal `json:"total_amount"`
	DailyPayment decimal.Decimal `json:"daily_payment"`
	NumDays      int             `json:"num_days"`
}

// DaysBetween returns the number of whole days from one date to another,
// never less than 1. Both sides are truncated to local midnight so the
// time-of-day components cannot shift the count. A loan due today still
// amortizes over one day.
func DaysBetween(from, to time.Time) int {
	start := atMidnight(from)
	end := atMidnight(to)
	days := int(math.Round(end.Sub(start).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

func atMidnight(t time.Time) time.Time {
	y, m, d := t.In(time.Local).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// Originate derives the total payable and daily installment for a new loan.
// Each figure is rounded half away from zero to two decimals exactly once,
// so requoting the same inputs always yields the same result.
func Originate(principal, ratePct decimal.Decimal, start, end time.Time) (Quote, error) {
	if !principal.IsPositive() {
		return Quote{}, ErrInvalidPrincipal
	}
	if ratePct.IsNegative() {
		return Quote{}, ErrInvalidRate
	}
	if !atMidnight(end).After(atMidnight(start)) {
		return Quote{}, ErrInvalidTerm
	}

	numDays := DaysBetween(start, end)
	total := principal.Mul(hundred.Add(ratePct)).Div(hundred).Round(2)
	return Quote{
		TotalAmount:  total,
		DailyPayment: Installment(total, numDays),
		NumDays:      numDays,
	}, nil
}

// Installment returns the per-day figure for an outstanding balance spread
// over the given number of days, rounded to two decimals.
func Installment(remaining decimal.Decimal, remainingDays int) decimal.Decimal {
	return remaining.Div(decimal.NewFromInt(int64(remainingDays))).Round(2)
}
