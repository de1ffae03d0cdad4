package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Summary is the outcome of one reconciliation run.
type Summary struct {
	Matches           []Match
	UnmatchedRecords  []Record
	UnmatchedInvoices []InvoiceCandidate

	TotalRecords       int
	TotalInvoices      int
	MatchRate          float64 // percentage of records matched
	TotalMatchedAmount decimal.Decimal
}

// NewSummary checks the count invariant and the single use of every invoice,
// then derives MatchRate and TotalMatchedAmount.
func NewSummary(matches []Match, unmatchedRecords []Record, unmatchedInvoices []InvoiceCandidate, totalRecords, totalInvoices int) (*Summary, error) {
	if want := totalRecords - len(matches); len(unmatchedRecords) != want {
		return nil, invalid("unmatched_records",
			fmt.Sprintf("have %d, want %d (total %d - matched %d)", len(unmatchedRecords), want, totalRecords, len(matches)))
	}
	for i := range matches {
		for j := i + 1; j < len(matches); j++ {
			if matches[i].Invoice.same(matches[j].Invoice) {
				return nil, invalid("matches", fmt.Sprintf("invoice %s used more than once", matches[i].Invoice.Number))
			}
		}
	}

	s := &Summary{
		Matches:           append([]Match(nil), matches...),
		UnmatchedRecords:  append([]Record(nil), unmatchedRecords...),
		UnmatchedInvoices: append([]InvoiceCandidate(nil), unmatchedInvoices...),
		TotalRecords:      totalRecords,
		TotalInvoices:     totalInvoices,
	}
	s.TotalMatchedAmount = decimal.Zero
	for _, m := range s.Matches {
		s.TotalMatchedAmount = s.TotalMatchedAmount.Add(m.Record.Amount)
	}
	if totalRecords > 0 {
		s.MatchRate = float64(len(s.Matches)) / float64(totalRecords) * 100
	}
	return s, nil
}

// MatchedCount returns the number of matches.
func (s *Summary) MatchedCount() int { return len(s.Matches) }

// WithoutMatch returns a new Summary with match i removed and its record and
// invoice moved back to the unmatched lists. s is left untouched.
func (s *Summary) WithoutMatch(i int) (*Summary, error) {
	if i < 0 || i >= len(s.Matches) {
		return nil, invalid("match", fmt.Sprintf("index %d out of range [0,%d)", i, len(s.Matches)))
	}
	removed := s.Matches[i]

	matches := make([]Match, 0, len(s.Matches)-1)
	matches = append(matches, s.Matches[:i]...)
	matches = append(matches, s.Matches[i+1:]...)

	records := append(append([]Record(nil), s.UnmatchedRecords...), removed.Record)
	invoices := append(append([]InvoiceCandidate(nil), s.UnmatchedInvoices...), removed.Invoice)

	return NewSummary(matches, records, invoices, s.TotalRecords, s.TotalInvoices)
}

// ApplyRemoval un-matches m (identified by record key and invoice) and
// returns the recomputed summary.
func ApplyRemoval(s *Summary, m Match) (*Summary, error) {
	for i, existing := range s.Matches {
		if existing.same(m) {
			return s.WithoutMatch(i)
		}
	}
	return nil, invalid("match", fmt.Sprintf("%s/%s not in summary", m.Record.Reference, m.Invoice.Number))
}
