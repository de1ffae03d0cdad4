package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/invoicematch/internal/model"
)

// Header is the CSV header for matches.csv.
const Header = "reference,date,amount,counterparty,invoice_number,source_path,confidence,amount_difference,reasons"

const (
	numFields    = 9
	dateFormat   = "2006-01-02"
	reasonSep    = "; "
	colRef       = 0
	colDate      = 1
	colAmount    = 2
	colCparty    = 3
	colInvoice   = 4
	colSource    = 5
	colConf      = 6
	colAmountDif = 7
	colReasons   = 8
)

// Row is one line of the match report.
type Row struct {
	Reference        string
	Date             time.Time
	Amount           decimal.Decimal
	Counterparty     string
	InvoiceNumber    string
	SourcePath       string
	Confidence       decimal.Decimal
	AmountDifference decimal.Decimal
	Reasons          []string
}

// FromMatch flattens a Match into a report Row.
func FromMatch(m model.Match) Row {
	return Row{
		Reference:        m.Record.Reference,
		Date:             m.Record.Date,
		Amount:           m.Record.Amount,
		Counterparty:     m.Record.CounterpartyName,
		InvoiceNumber:    m.Invoice.Number,
		SourcePath:       m.Invoice.SourcePath,
		Confidence:       m.Confidence,
		AmountDifference: m.AmountDifference,
		Reasons:          m.Reasons,
	}
}

// WriteMatches writes matches to w, header first.
func WriteMatches(w io.Writer, matches []model.Match) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, m := range matches {
		if err := cw.Write(MarshalRow(FromMatch(m))); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRows reads a matches.csv written by WriteMatches.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading match report: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var rows []Row
	for i, rec := range records[1:] {
		row, err := UnmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// MarshalRow converts a Row to CSV fields.
func MarshalRow(r Row) []string {
	row := make([]string, numFields)
	row[colRef] = r.Reference
	row[colDate] = r.Date.Format(dateFormat)
	row[colAmount] = r.Amount.StringFixed(2)
	row[colCparty] = r.Counterparty
	row[colInvoice] = r.InvoiceNumber
	row[colSource] = r.SourcePath
	row[colConf] = r.Confidence.String()
	row[colAmountDif] = r.AmountDifference.StringFixed(2)
	row[colReasons] = strings.Join(r.Reasons, reasonSep)
	return row
}

// UnmarshalRow converts CSV fields to a Row.
func UnmarshalRow(record []string) (Row, error) {
	if len(record) != numFields {
		return Row{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return Row{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}
	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return Row{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}
	conf, err := decimal.NewFromString(record[colConf])
	if err != nil {
		return Row{}, fmt.Errorf("parsing confidence %q: %w", record[colConf], err)
	}
	diff, err := decimal.NewFromString(record[colAmountDif])
	if err != nil {
		return Row{}, fmt.Errorf("parsing amount_difference %q: %w", record[colAmountDif], err)
	}

	var reasons []string
	if record[colReasons] != "" {
		reasons = strings.Split(record[colReasons], reasonSep)
	}

	return Row{
		Reference:        record[colRef],
		Date:             date,
		Amount:           amount,
		Counterparty:     record[colCparty],
		InvoiceNumber:    record[colInvoice],
		SourcePath:       record[colSource],
		Confidence:       conf,
		AmountDifference: diff,
		Reasons:          reasons,
	}, nil
}
