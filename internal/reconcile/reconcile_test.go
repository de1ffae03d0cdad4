package reconcile

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/invoicematch/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func rec(ref, desc, amount string) model.Record {
	return model.Record{
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: desc,
		Amount:      dec(amount),
		Reference:   ref,
	}
}

func inv(number string) model.InvoiceCandidate {
	return model.InvoiceCandidate{Number: number, SourcePath: "/invoices/" + number + ".pdf"}
}

func invAmount(number, amount string) model.InvoiceCandidate {
	c := inv(number)
	c.Amount = decimal.NewNullDecimal(dec(amount))
	return c
}

func reconcile(t *testing.T, m Matcher, records []model.Record, candidates []model.InvoiceCandidate) *model.Summary {
	t.Helper()
	s, err := New(m, zerolog.Nop()).Reconcile(records, candidates)
	require.NoError(t, err)
	return s
}

func TestReconcile_SingleMatch(t *testing.T) {
	s := reconcile(t, nil,
		[]model.Record{rec("TXN001", "Payment for invoice INV-2024-001", "-125.50")},
		[]model.InvoiceCandidate{inv("INV-2024-001")})

	require.Len(t, s.Matches, 1)
	m := s.Matches[0]
	assert.True(t, m.Confidence.Equal(decimal.NewFromInt(1)))
	assert.True(t, m.AmountDifference.IsZero())
	assert.Equal(t, []string{"Found 'INV-2024-001' in description"}, m.Reasons)
	assert.Empty(t, s.UnmatchedRecords)
	assert.Empty(t, s.UnmatchedInvoices)
}

func TestReconcile_NoMatch(t *testing.T) {
	s := reconcile(t, nil,
		[]model.Record{rec("TXN002", "Coffee supplies, no invoice number", "-12.00")},
		[]model.InvoiceCandidate{inv("INV-2024-001")})

	assert.Empty(t, s.Matches)
	assert.Len(t, s.UnmatchedRecords, 1)
	assert.Len(t, s.UnmatchedInvoices, 1)
	assert.Zero(t, s.MatchRate)
}

func TestReconcile_AllMatched(t *testing.T) {
	s := reconcile(t, nil,
		[]model.Record{
			rec("R1", "/REMI/SIP25024251", "-177.29"),
			rec("R2", "/REMI/SIP25024299", "-12.50"),
		},
		[]model.InvoiceCandidate{inv("SIP25024299"), inv("SIP25024251")})

	assert.Len(t, s.Matches, 2)
	assert.Empty(t, s.UnmatchedRecords)
	assert.Empty(t, s.UnmatchedInvoices)
	assert.Equal(t, 100.0, s.MatchRate)
	assert.Equal(t, "-189.79", s.TotalMatchedAmount.StringFixed(2))
	assert.Equal(t, "SIP25024251", s.Matches[0].Invoice.Number)
}

func TestReconcile_CaseInsensitive(t *testing.T) {
	s := reconcile(t, nil,
		[]model.Record{rec("R1", "betaling inv-2024-001", "-1")},
		[]model.InvoiceCandidate{inv("INV-2024-001")})
	assert.Len(t, s.Matches, 1)
}

func TestReconcile_InvoiceUsedOnce(t *testing.T) {
	s := reconcile(t, nil,
		[]model.Record{
			rec("R1", "SIP25024251 first", "-10"),
			rec("R2", "SIP25024251 again", "-10"),
		},
		[]model.InvoiceCandidate{inv("SIP25024251")})

	require.Len(t, s.Matches, 1)
	assert.Equal(t, "R1", s.Matches[0].Record.Reference)
	require.Len(t, s.UnmatchedRecords, 1)
	assert.Equal(t, "R2", s.UnmatchedRecords[0].Reference)
	assert.Empty(t, s.UnmatchedInvoices)
}

func TestReconcile_FirstCandidateWins(t *testing.T) {
	// Both numbers occur in the description; input order decides.
	s := reconcile(t, nil,
		[]model.Record{rec("R1", "SIP25024251 / SIP25024299", "-10")},
		[]model.InvoiceCandidate{inv("SIP25024299"), inv("SIP25024251")})

	require.Len(t, s.Matches, 1)
	assert.Equal(t, "SIP25024299", s.Matches[0].Invoice.Number)
	require.Len(t, s.UnmatchedInvoices, 1)
	assert.Equal(t, "SIP25024251", s.UnmatchedInvoices[0].Number)
}

func TestReconcile_Deterministic(t *testing.T) {
	records := []model.Record{
		rec("R1", "SIP1 SIP2", "-1"),
		rec("R2", "SIP1", "-2"),
		rec("R3", "nothing", "-3"),
	}
	candidates := []model.InvoiceCandidate{inv("SIP2"), inv("SIP1"), inv("SIP3")}

	a := reconcile(t, nil, records, candidates)
	b := reconcile(t, nil, records, candidates)
	assert.Equal(t, a, b)
	assert.Len(t, a.Matches, 2)
	assert.Equal(t, "SIP1", a.Matches[1].Invoice.Number)
}

func TestReconcile_AmountsIgnoredBySubstring(t *testing.T) {
	s := reconcile(t, nil,
		[]model.Record{rec("R1", "SIP25024251", "-5.00")},
		[]model.InvoiceCandidate{invAmount("SIP25024251", "500.00")})
	require.Len(t, s.Matches, 1)
	assert.True(t, s.Matches[0].AmountDifference.IsZero())
}

func TestReconcile_Empty(t *testing.T) {
	s := reconcile(t, nil, nil, nil)
	assert.Empty(t, s.Matches)
	assert.Zero(t, s.TotalRecords)
	assert.Zero(t, s.MatchRate)
}

func TestNewMatcher(t *testing.T) {
	m, err := NewMatcher(Config{})
	require.NoError(t, err)
	assert.IsType(t, SubstringMatcher{}, m)

	m, err = NewMatcher(Config{Strategy: "Fuzzy", AllowableDrift: 20, AmountTolerance: 0.01})
	require.NoError(t, err)
	assert.IsType(t, FuzzyMatcher{}, m)

	_, err = NewMatcher(Config{Strategy: "fuzzy", AllowableDrift: 120})
	assert.Error(t, err)

	_, err = NewMatcher(Config{Strategy: "ml"})
	assert.Error(t, err)
}

func TestFuzzyMatcher(t *testing.T) {
	f := FuzzyMatcher{AllowableDrift: 20, AmountTolerance: dec("0.01")}

	t.Run("exact substring", func(t *testing.T) {
		v, ok := f.Match(rec("R", "/REMI/SIP25024251/", "-10"), inv("SIP25024251"))
		require.True(t, ok)
		assert.Equal(t, "1", v.Confidence.String())
	})

	t.Run("typo within drift", func(t *testing.T) {
		v, ok := f.Match(rec("R", "Betaling SIP25024215 april", "-10"), inv("SIP25024251"))
		require.True(t, ok)
		assert.Equal(t, "0.8182", v.Confidence.String())
		assert.Contains(t, v.Reasons[0], "SIP25024215")
	})

	t.Run("too far", func(t *testing.T) {
		_, ok := f.Match(rec("R", "Betaling SIP99999999", "-10"), inv("SIP25024251"))
		assert.False(t, ok)
	})

	t.Run("amount agrees", func(t *testing.T) {
		v, ok := f.Match(rec("R", "SIP25024251", "-100.00"), invAmount("SIP25024251", "100"))
		require.True(t, ok)
		assert.True(t, v.AmountDifference.IsZero())
		assert.Equal(t, "1", v.Confidence.String())
		assert.Equal(t, "Amount agrees", v.Reasons[1])
	})

	t.Run("amount off", func(t *testing.T) {
		v, ok := f.Match(rec("R", "SIP25024251", "-110.00"), invAmount("SIP25024251", "100"))
		require.True(t, ok)
		assert.Equal(t, "10", v.AmountDifference.String())
		assert.Equal(t, "0.9", v.Confidence.String())
		assert.Equal(t, "Amount differs by 10.00", v.Reasons[1])
	})

	t.Run("amount wildly off", func(t *testing.T) {
		v, ok := f.Match(rec("R", "SIP25024251", "-500.00"), invAmount("SIP25024251", "100"))
		require.True(t, ok)
		assert.True(t, v.Confidence.IsZero())
	})
}

func TestReconcile_Fuzzy(t *testing.T) {
	f := FuzzyMatcher{AllowableDrift: 10}
	s := reconcile(t, f,
		[]model.Record{rec("R1", "factuur SIP2502425", "-10")},
		[]model.InvoiceCandidate{inv("SIP25024251")})

	require.Len(t, s.Matches, 1)
	assert.True(t, s.Matches[0].Confidence.LessThan(decimal.NewFromInt(1)))
}

func TestReconcile_SkipsInvalidCandidates(t *testing.T) {
	s := reconcile(t, nil,
		[]model.Record{rec("R1", "Payment for invoice INV-2024-001", "-125.50")},
		[]model.InvoiceCandidate{
			{Number: "", SourcePath: "/invoices/blank.pdf"},
			{Number: "INV-2024-002"},
			inv("INV-2024-001"),
		})

	require.Len(t, s.Matches, 1)
	assert.Equal(t, "INV-2024-001", s.Matches[0].Invoice.Number)
	assert.Equal(t, 1, s.TotalInvoices)
	assert.Empty(t, s.UnmatchedInvoices)
}
