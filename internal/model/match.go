package model

import (
	"github.com/shopspring/decimal"
)

// Match binds one Record to one InvoiceCandidate.
type Match struct {
	Record           Record
	Invoice          InvoiceCandidate
	Confidence       decimal.Decimal // 0..1
	AmountDifference decimal.Decimal // >= 0
	Reasons          []string
}

var one = decimal.NewFromInt(1)

// NewMatch validates confidence and amount difference and builds a Match.
func NewMatch(rec Record, inv InvoiceCandidate, confidence, amountDiff decimal.Decimal, reasons ...string) (Match, error) {
	if confidence.IsNegative() || confidence.GreaterThan(one) {
		return Match{}, invalid("confidence_score", "must be between 0.0 and 1.0, got "+confidence.String())
	}
	if amountDiff.IsNegative() {
		return Match{}, invalid("amount_difference", "must be non-negative, got "+amountDiff.String())
	}
	return Match{
		Record:           rec,
		Invoice:          inv,
		Confidence:       confidence,
		AmountDifference: amountDiff,
		Reasons:          append([]string(nil), reasons...),
	}, nil
}

func (m Match) same(o Match) bool {
	return m.Record.Key() == o.Record.Key() && m.Invoice.same(o.Invoice)
}
