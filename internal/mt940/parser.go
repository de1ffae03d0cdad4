package mt940

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/invoicematch/internal/model"
	"github.com/cleared-dev/invoicematch/internal/ref"
)

// Parser reads MT940 statements into records.
type Parser struct {
	log zerolog.Logger
}

// NewParser creates a Parser that reports skipped transactions to log.
func NewParser(log zerolog.Logger) *Parser {
	return &Parser{log: log.With().Str("component", "mt940").Logger()}
}

// Format returns the parser name.
func (p *Parser) Format() string { return "mt940" }

// Parse returns every well-formed transaction in r, in file order. Malformed
// transactions are logged and skipped; only a file with no readable
// statements is an error.
func (p *Parser) Parse(r io.Reader) ([]model.Record, error) {
	stmts, err := ReadStatements(r)
	if err != nil {
		return nil, err
	}

	var records []model.Record
	skipped := 0
	for i, st := range stmts {
		for _, raw := range st.Transactions {
			rec, err := ToRecord(raw)
			if err != nil {
				skipped++
				p.log.Warn().Err(err).
					Int("statement", i+1).
					Str("statement_ref", st.Reference).
					Msg("skipping malformed transaction")
				continue
			}
			if ref.IsFallback(rec.Reference) {
				p.log.Debug().Int("line", raw.Line).Str("reference", rec.Reference).Msg("synthesized reference")
			}
			records = append(records, rec)
		}
	}

	p.log.Debug().
		Int("statements", len(stmts)).
		Int("records", len(records)).
		Int("skipped", skipped).
		Msg("parsed statement")
	return records, nil
}
