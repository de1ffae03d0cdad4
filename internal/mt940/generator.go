package mt940

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/invoicematch/internal/model"
)

// Header holds the environment constants written at the top of a generated
// statement. None of them are derived from the records.
type Header struct {
	SenderBIC      string `yaml:"sender_bic"`
	MessageType    string `yaml:"message_type"`
	ReceiverBIC    string `yaml:"receiver_bic"`
	TransactionRef string `yaml:"transaction_ref"`
	Account        string `yaml:"account"`
	Currency       string `yaml:"currency"`
	TypeCode       string `yaml:"type_code"`
	DetailPrefix   string `yaml:"detail_prefix"`
}

// DefaultHeader matches the ABN AMRO export the accounting package accepts.
func DefaultHeader() Header {
	return Header{
		SenderBIC:      "ABNANL2A",
		MessageType:    "940",
		ReceiverBIC:    "ABNANL2A",
		TransactionRef: "MATCHED TRANSACTIONS",
		Account:        "438661141",
		Currency:       "EUR",
		TypeCode:       "N249",
		DetailPrefix:   "/TRTP/SEPA INCASSO BEDRIJVEN DOORLOPEND",
	}
}

// Generator writes matched records back out as an MT940 statement.
type Generator struct {
	header Header
	now    func() time.Time
	log    zerolog.Logger
}

// NewGenerator creates a Generator with the given header constants.
func NewGenerator(header Header, log zerolog.Logger) *Generator {
	return &Generator{header: header, now: time.Now, log: log}
}

// Generate writes a statement holding the records of matches to outputPath,
// replacing any existing file, and returns outputPath. Amounts that cannot be
// written with two decimals are rejected before anything is written.
func (g *Generator) Generate(matches []model.Match, outputPath string) (string, error) {
	if len(matches) == 0 {
		return "", model.ValidationError{Field: "matches", Reason: "no matches to generate a statement from"}
	}

	records := make([]model.Record, len(matches))
	for i, m := range matches {
		if !m.Record.Amount.Equal(m.Record.Amount.Round(2)) {
			return "", model.ValidationError{
				Field:  "amount",
				Reason: fmt.Sprintf("%s of %s has more than two decimals", m.Record.Amount.String(), m.Record.Reference),
			}
		}
		records[i] = m.Record
	}
	content := g.Render(records)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("creating statement dir: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing statement %s: %w", outputPath, err)
	}

	g.log.Info().Str("path", outputPath).Int("transactions", len(records)).Msg("generated statement")
	return outputPath, nil
}

// Render builds the statement text. Records are sorted by date (stable) since
// balances in the grammar run sequentially. The opening balance is a zero
// baseline: the true prior balance is not known here.
func (g *Generator) Render(records []model.Record) string {
	sorted := append([]model.Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	h := g.header
	var lines []string
	for _, l := range []string{h.SenderBIC, h.MessageType, h.ReceiverBIC} {
		if l != "" {
			lines = append(lines, l)
		}
	}
	lines = append(lines,
		":20:"+h.TransactionRef,
		":25:"+h.Account,
		":28:"+g.now().Format("0601")+"/1",
	)

	if len(sorted) == 0 {
		return strings.Join(lines, "\n")
	}

	opening := Balance{Date: sorted[0].Date, Currency: h.Currency, Amount: decimal.Zero}
	lines = append(lines, ":60F:"+opening.String())

	total := decimal.Zero
	for _, r := range sorted {
		lines = append(lines, g.entryLine(r), g.detailLine(r))
		total = total.Add(r.Amount)
	}

	closing := Balance{Date: sorted[len(sorted)-1].Date, Currency: h.Currency, Amount: opening.Amount.Add(total)}
	lines = append(lines, ":62F:"+closing.String())

	return strings.Join(lines, "\n")
}

func (g *Generator) entryLine(r model.Record) string {
	mark := "C"
	if r.IsDebit() {
		mark = "D"
	}
	return fmt.Sprintf(":61:%s%s%s%s%s%s",
		r.Date.Format(dateFormat), r.Date.Format("0102"), mark, formatAmount(r.Amount), g.header.TypeCode, r.Reference)
}

func (g *Generator) detailLine(r model.Record) string {
	var b strings.Builder
	b.WriteString(":86:" + g.header.DetailPrefix)
	for _, f := range []struct{ tag, value string }{
		{"NAME", r.CounterpartyName},
		{"REMI", r.RemittanceInfo},
		{"IBAN", r.CounterpartyIBAN},
		{"EREF", r.Reference},
	} {
		if f.value != "" {
			b.WriteString("/" + f.tag + "/" + f.value)
		}
	}
	return b.String()
}
