package mt940

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/invoicematch/internal/model"
	"github.com/cleared-dev/invoicematch/internal/ref"
)

const dateFormat = "060102"

// :61: value date, optional MMDD entry date, (reversal) debit/credit mark,
// optional funds code, amount, transaction type, customer//bank reference.
var entryRe = regexp.MustCompile(`^(\d{6})(\d{4})?(R?[DC])([A-Z])?(\d[\d,]*)([A-Z][A-Z0-9]{3})?(.*)$`)

// LineError is a malformed transaction; the parser skips it and moves on.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// ToRecord converts a raw transaction into a validated model.Record. It is the
// only place that knows how :61: and :86: map onto the record fields.
func ToRecord(raw RawTransaction) (model.Record, error) {
	m := entryRe.FindStringSubmatch(strings.TrimSpace(raw.Entry))
	if m == nil {
		return model.Record{}, &LineError{Line: raw.Line, Err: fmt.Errorf("unrecognized :61: entry %q", raw.Entry)}
	}

	date, err := time.Parse(dateFormat, m[1])
	if err != nil {
		return model.Record{}, &LineError{Line: raw.Line, Err: fmt.Errorf("parsing value date %q: %w", m[1], err)}
	}

	amount, err := parseAmount(m[5])
	if err != nil {
		return model.Record{}, &LineError{Line: raw.Line, Err: err}
	}
	if mark := m[3]; mark == "D" || mark == "RC" {
		amount = amount.Neg()
	}

	reference := pickReference(m[7], raw, date)

	var parts []string
	if d := strings.TrimSpace(raw.Details); d != "" {
		parts = append(parts, d)
	}
	if s := strings.TrimSpace(raw.Supplementary); s != "" {
		parts = append(parts, s)
	}
	description := strings.Join(parts, " ")
	if description == "" {
		description = "Transaction " + reference
	}

	sepa := ExtractSEPA(description)
	rec, err := model.NewRecord(model.Record{
		Date:             date,
		Description:      description,
		Amount:           amount,
		Reference:        reference,
		Account:          raw.Account,
		CounterpartyName: sepa.Name,
		RemittanceInfo:   sepa.Remittance,
		CounterpartyIBAN: sepa.IBAN,
	})
	if err != nil {
		return model.Record{}, &LineError{Line: raw.Line, Err: err}
	}
	return rec, nil
}

// parseAmount reads "177,29" (comma decimal separator, no grouping).
func parseAmount(s string) (decimal.Decimal, error) {
	if strings.Count(s, ",") > 1 {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: more than one decimal separator", s)
	}
	s = strings.Replace(s, ",", ".", 1)
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

// pickReference prefers the customer reference, then the bank reference after
// "//", then a synthesized fallback.
func pickReference(tail string, raw RawTransaction, date time.Time) string {
	customer, bank, _ := strings.Cut(tail, "//")
	if c := strings.TrimSpace(customer); !ref.IsPlaceholder(c) {
		return c
	}
	if b := strings.TrimSpace(bank); !ref.IsPlaceholder(b) {
		return b
	}
	return ref.Fallback(date, raw.Text())
}
