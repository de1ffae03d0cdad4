package mt940

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Balance is an opening or closing balance line (:60F:/:62F:).
type Balance struct {
	Date     time.Time
	Currency string
	Amount   decimal.Decimal // signed: debit balances are negative
}

var balanceRe = regexp.MustCompile(`^([DC])(\d{6})([A-Z]{3})(\d[\d,]*)$`)

// ParseBalance reads "C250407EUR1234,56".
func ParseBalance(s string) (Balance, error) {
	m := balanceRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Balance{}, fmt.Errorf("unrecognized balance %q", s)
	}
	date, err := time.Parse(dateFormat, m[2])
	if err != nil {
		return Balance{}, fmt.Errorf("parsing balance date %q: %w", m[2], err)
	}
	amount, err := parseAmount(m[4])
	if err != nil {
		return Balance{}, err
	}
	if m[1] == "D" {
		amount = amount.Neg()
	}
	return Balance{Date: date, Currency: m[3], Amount: amount}, nil
}

// String formats the balance back into its field value.
func (b Balance) String() string {
	mark := "C"
	if b.Amount.IsNegative() {
		mark = "D"
	}
	return fmt.Sprintf("%s%s%s%s", mark, b.Date.Format(dateFormat), b.Currency, formatAmount(b.Amount))
}

// formatAmount renders |d| with two decimals and a comma separator.
func formatAmount(d decimal.Decimal) string {
	return strings.Replace(d.Abs().StringFixed(2), ".", ",", 1)
}
