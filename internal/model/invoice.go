package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceCandidate is an invoice available for matching, usually derived
// from a PDF filename.
type InvoiceCandidate struct {
	Number      string
	SourcePath  string
	Amount      decimal.NullDecimal // Valid=false when unknown
	Date        time.Time           // zero when unknown
	Description string
	Vendor      string
}

// NewInvoiceCandidate validates c.
func NewInvoiceCandidate(c InvoiceCandidate) (InvoiceCandidate, error) {
	if strings.TrimSpace(c.Number) == "" {
		return InvoiceCandidate{}, invalid("invoice_number", "cannot be empty")
	}
	if strings.TrimSpace(c.SourcePath) == "" {
		return InvoiceCandidate{}, invalid("source_path", "cannot be empty")
	}
	if c.Amount.Valid && !c.Amount.Decimal.IsPositive() {
		return InvoiceCandidate{}, invalid("amount", "must be positive")
	}
	return c, nil
}

func (c InvoiceCandidate) same(o InvoiceCandidate) bool {
	return c.Number == o.Number && c.SourcePath == o.SourcePath
}
