package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Package is an assembled upload bundle. It lives until Cleanup is called.
type Package struct {
	RunID          string
	WorkDir        string
	StatementPath  string
	PDFFiles       map[string]string // invoice number -> copied pdf path
	TransactionMap map[string]string // transaction reference -> invoice number
	TotalMatches   int
	Skipped        []string // invoice numbers whose pdf could not be copied
	CreatedAt      time.Time
}

// Cleanup removes the package working directory and everything in it.
func (p *Package) Cleanup() error {
	if p.WorkDir == "" {
		return nil
	}
	if err := os.RemoveAll(p.WorkDir); err != nil {
		return fmt.Errorf("removing package dir: %w", err)
	}
	return nil
}

// Summary renders the package contents for a human.
func (p *Package) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Upload package %s\n", p.RunID)
	fmt.Fprintf(&b, "  Directory:  %s\n", p.WorkDir)
	fmt.Fprintf(&b, "  Statement:  %s\n", p.StatementPath)
	fmt.Fprintf(&b, "  Matches:    %d\n", p.TotalMatches)
	fmt.Fprintf(&b, "  PDFs:       %d\n", len(p.PDFFiles))
	if len(p.Skipped) > 0 {
		fmt.Fprintf(&b, "  Skipped:    %s\n", strings.Join(p.Skipped, ", "))
	}

	refs := make([]string, 0, len(p.TransactionMap))
	for r := range p.TransactionMap {
		refs = append(refs, r)
	}
	sort.Strings(refs)
	for _, r := range refs {
		fmt.Fprintf(&b, "  %s -> %s\n", r, p.TransactionMap[r])
	}
	return b.String()
}

// mapping is the on-disk form of a Package (mapping.json).
type mapping struct {
	RunID        string            `json:"run_id"`
	CreatedAt    time.Time         `json:"created_at"`
	Statement    string            `json:"statement"`
	TotalMatches int               `json:"total_matches"`
	Transactions map[string]string `json:"transactions"`
	Invoices     map[string]string `json:"invoices"`
	Skipped      []string          `json:"skipped,omitempty"`
}

// Open loads the package assembled into dir from its mapping.json.
func Open(dir string) (*Package, error) {
	p, err := readMapping(filepath.Join(dir, mappingFile))
	if err != nil {
		return nil, err
	}
	p.WorkDir = dir
	return p, nil
}

// ReportPath is the package's matches.csv.
func (p *Package) ReportPath() string {
	return filepath.Join(p.WorkDir, reportFile)
}

func readMapping(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping: %w", err)
	}
	var m mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing mapping: %w", err)
	}
	return &Package{
		RunID:          m.RunID,
		StatementPath:  m.Statement,
		PDFFiles:       m.Invoices,
		TransactionMap: m.Transactions,
		TotalMatches:   m.TotalMatches,
		Skipped:        m.Skipped,
		CreatedAt:      m.CreatedAt,
	}, nil
}

func writeMapping(path string, p *Package) error {
	data, err := json.MarshalIndent(mapping{
		RunID:        p.RunID,
		CreatedAt:    p.CreatedAt,
		Statement:    p.StatementPath,
		TotalMatches: p.TotalMatches,
		Transactions: p.TransactionMap,
		Invoices:     p.PDFFiles,
		Skipped:      p.Skipped,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling mapping: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing mapping: %w", err)
	}
	return nil
}
