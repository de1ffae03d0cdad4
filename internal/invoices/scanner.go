package invoices

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/invoicematch/internal/model"
)

// DefaultPattern matches the supplier invoice numbers found in PDF file names.
const DefaultPattern = `SIP\d{7,9}`

// Config controls how invoice numbers are derived from files.
type Config struct {
	Patterns    []string `yaml:"patterns"`
	ReadPDFText bool     `yaml:"read_pdf_text"`
}

// Scanner turns a directory of invoice PDFs into InvoiceCandidates.
type Scanner struct {
	patterns []*regexp.Regexp
	readText bool
	extract  func(path string) (string, error)
	log      zerolog.Logger
}

// NewScanner compiles cfg.Patterns, defaulting to DefaultPattern when empty.
func NewScanner(cfg Config, log zerolog.Logger) (*Scanner, error) {
	exprs := cfg.Patterns
	if len(exprs) == 0 {
		exprs = []string{DefaultPattern}
	}
	s := &Scanner{
		readText: cfg.ReadPDFText,
		extract:  pdfText,
		log:      log.With().Str("component", "invoices").Logger(),
	}
	for _, e := range exprs {
		re, err := regexp.Compile(e)
		if err != nil {
			return nil, fmt.Errorf("compiling invoice pattern %q: %w", e, err)
		}
		s.patterns = append(s.patterns, re)
	}
	return s, nil
}

// Number returns the first invoice number found in text. A pattern with a
// capture group yields the group; otherwise the whole match.
func (s *Scanner) Number(text string) (string, bool) {
	for _, re := range s.patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if len(m) > 1 && m[1] != "" {
			return m[1], true
		}
		return m[0], true
	}
	return "", false
}

// Scan lists *.pdf files in dir (case-insensitive, sorted by name) and
// returns one candidate per distinct invoice number. Files without a number
// are logged and skipped.
func (s *Scanner) Scan(dir string) ([]model.InvoiceCandidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading invoice dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	seen := make(map[string]string)
	var out []model.InvoiceCandidate
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(dir, e.Name())

		number, ok := s.Number(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		if !ok && s.readText {
			number, ok = s.numberFromText(path)
		}
		if !ok {
			s.log.Warn().Str("file", e.Name()).Msg("no invoice number found, skipping")
			continue
		}
		if prev, dup := seen[number]; dup {
			s.log.Warn().Str("invoice", number).Str("file", e.Name()).Str("kept", prev).
				Msg("duplicate invoice number, skipping")
			continue
		}

		c, err := model.NewInvoiceCandidate(model.InvoiceCandidate{
			Number:      number,
			SourcePath:  path,
			Description: e.Name(),
		})
		if err != nil {
			s.log.Warn().Err(err).Str("file", e.Name()).Msg("invalid invoice, skipping")
			continue
		}
		seen[number] = e.Name()
		out = append(out, c)
	}

	s.log.Info().Int("invoices", len(out)).Str("dir", dir).Msg("invoices scanned")
	return out, nil
}

func (s *Scanner) numberFromText(path string) (string, bool) {
	text, err := s.extract(path)
	if err != nil {
		s.log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("reading pdf text")
		return "", false
	}
	return s.Number(text)
}

// pdfText returns the plain text of a PDF. The pdf library panics on some
// malformed files, so panics are turned into errors.
func pdfText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	rd, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return string(b), nil
}
