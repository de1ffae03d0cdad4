package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is a single parsed bank transaction.
type Record struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal // negative = debit, positive = credit
	Reference   string
	Account     string // optional

	// SEPA sub-fields taken from the narrative; "" when absent.
	CounterpartyName string
	RemittanceInfo   string
	CounterpartyIBAN string
}

// NewRecord validates r and returns it with its date truncated to the calendar day.
func NewRecord(r Record) (Record, error) {
	if strings.TrimSpace(r.Description) == "" {
		return Record{}, invalid("description", "cannot be empty")
	}
	if strings.TrimSpace(r.Reference) == "" {
		return Record{}, invalid("reference", "cannot be empty")
	}
	if r.Date.IsZero() {
		return Record{}, invalid("date", "cannot be zero")
	}
	r.Date = Day(r.Date)
	return r, nil
}

// IsDebit reports whether money left the account.
func (r Record) IsDebit() bool { return r.Amount.IsNegative() }

// Key is the composite dedup key (date, amount, reference).
// "2025-04-07_-177.29_INC25015736"
func (r Record) Key() string {
	return fmt.Sprintf("%s_%s_%s", r.Date.Format("2006-01-02"), r.Amount.String(), r.Reference)
}

// Day returns t truncated to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
