package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/invoicematch/internal/model"
	"github.com/cleared-dev/invoicematch/internal/report"
)

// ErrCopyTimeout is returned when a single invoice copy exceeds its deadline.
var ErrCopyTimeout = errors.New("copy timed out")

const (
	pdfDir      = "pdfs"
	mappingFile = "mapping.json"
	reportFile  = "matches.csv"
	partSuffix  = ".part"
)

// Config controls package assembly.
type Config struct {
	CopyTimeout   time.Duration `yaml:"copy_timeout"` // 0 disables the per-copy deadline
	CopyWorkers   int           `yaml:"copy_workers"`
	DirPrefix     string        `yaml:"dir_prefix"`
	StatementFile string        `yaml:"-"`
}

// DefaultConfig returns the assembly defaults.
func DefaultConfig() Config {
	return Config{
		CopyTimeout:   30 * time.Second,
		CopyWorkers:   4,
		DirPrefix:     "upload_",
		StatementFile: "matched_transactions.STA",
	}
}

// StatementWriter renders matches into a statement file (see mt940.Generator).
type StatementWriter interface {
	Generate(matches []model.Match, outputPath string) (string, error)
}

// Assembler builds upload packages.
type Assembler struct {
	statements StatementWriter
	cfg        Config
	copyFile   func(src, dst string) error
	log        zerolog.Logger
}

// NewAssembler creates an Assembler. Zero-valued cfg fields fall back to DefaultConfig.
func NewAssembler(w StatementWriter, cfg Config, log zerolog.Logger) *Assembler {
	def := DefaultConfig()
	if cfg.CopyWorkers <= 0 {
		cfg.CopyWorkers = def.CopyWorkers
	}
	if cfg.DirPrefix == "" {
		cfg.DirPrefix = def.DirPrefix
	}
	if cfg.StatementFile == "" {
		cfg.StatementFile = def.StatementFile
	}
	return &Assembler{
		statements: w,
		cfg:        cfg,
		copyFile:   copyFile,
		log:        log.With().Str("component", "upload").Logger(),
	}
}

// Assemble writes a fresh package for summary under root (os.TempDir() when
// root is empty). Individual PDF copy failures are logged and skipped; any
// other failure removes the partly built directory.
func (a *Assembler) Assemble(ctx context.Context, summary *model.Summary, root string) (*Package, error) {
	if summary == nil || len(summary.Matches) == 0 {
		return nil, model.ValidationError{Field: "matches", Reason: "nothing to package"}
	}
	if root == "" {
		root = os.TempDir()
	}

	runID := uuid.New().String()
	workDir := filepath.Join(root, a.cfg.DirPrefix+runID)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating package root: %w", err)
	}
	if err := os.Mkdir(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating package dir: %w", err)
	}

	p, err := a.build(ctx, summary, runID, workDir)
	if err != nil {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			a.log.Error().Err(rmErr).Str("dir", workDir).Msg("rollback failed")
		}
		return nil, err
	}

	a.log.Info().
		Str("run_id", runID).
		Str("dir", workDir).
		Int("matches", p.TotalMatches).
		Int("pdfs", len(p.PDFFiles)).
		Int("skipped", len(p.Skipped)).
		Msg("package assembled")
	return p, nil
}

func (a *Assembler) build(ctx context.Context, summary *model.Summary, runID, workDir string) (*Package, error) {
	stmt, err := a.statements.Generate(summary.Matches, filepath.Join(workDir, a.cfg.StatementFile))
	if err != nil {
		return nil, fmt.Errorf("generating statement: %w", err)
	}

	pdfs := filepath.Join(workDir, pdfDir)
	if err := os.Mkdir(pdfs, 0o755); err != nil {
		return nil, fmt.Errorf("creating pdf dir: %w", err)
	}

	p := &Package{
		RunID:          runID,
		WorkDir:        workDir,
		StatementPath:  stmt,
		PDFFiles:       make(map[string]string),
		TransactionMap: make(map[string]string),
		TotalMatches:   len(summary.Matches),
		CreatedAt:      time.Now().UTC(),
	}
	for _, m := range summary.Matches {
		p.TransactionMap[m.Record.Reference] = m.Invoice.Number
	}

	a.copyAll(ctx, summary.Matches, pdfs, p)

	if err := writeMapping(filepath.Join(workDir, mappingFile), p); err != nil {
		return nil, err
	}
	if err := a.writeReport(filepath.Join(workDir, reportFile), summary.Matches); err != nil {
		return nil, err
	}
	return p, nil
}

// copyAll copies every matched invoice into dir with at most CopyWorkers in
// flight. Failures are isolated per file and recorded in p.Skipped.
func (a *Assembler) copyAll(ctx context.Context, matches []model.Match, dir string, p *Package) {
	type job struct {
		number, src, dst string
	}
	var jobs []job
	seen := make(map[string]bool)
	for _, m := range matches {
		n := m.Invoice.Number
		if seen[n] {
			a.log.Warn().Str("invoice", n).Str("source", m.Invoice.SourcePath).Msg("duplicate invoice number, pdf not copied")
			continue
		}
		seen[n] = true
		jobs = append(jobs, job{number: n, src: m.Invoice.SourcePath, dst: filepath.Join(dir, n+".pdf")})
	}

	errs := make([]error, len(jobs))
	var g errgroup.Group
	g.SetLimit(a.cfg.CopyWorkers)
	for i, j := range jobs {
		g.Go(func() error {
			errs[i] = a.copyWithTimeout(ctx, j.src, j.dst)
			return nil
		})
	}
	_ = g.Wait()

	for i, j := range jobs {
		if err := errs[i]; err != nil {
			a.log.Warn().Err(err).Str("invoice", j.number).Str("source", j.src).Msg("pdf copy failed, skipping")
			p.Skipped = append(p.Skipped, j.number)
			continue
		}
		p.PDFFiles[j.number] = j.dst
	}
}

// copyWithTimeout bounds a single copy. Data lands in dst+".part" and is
// renamed to dst only when the copy finishes in time. A copy that outlives its
// deadline is abandoned; its goroutine removes the .part file when it returns.
func (a *Assembler) copyWithTimeout(ctx context.Context, src, dst string) error {
	part := dst + partSuffix
	if a.cfg.CopyTimeout <= 0 {
		return commit(a.copyFile(src, part), part, dst)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.CopyTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.copyFile(src, part) }()

	select {
	case err := <-done:
		return commit(err, part, dst)
	case <-ctx.Done():
		go func() {
			<-done
			os.Remove(part)
		}()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s: %s", ErrCopyTimeout, a.cfg.CopyTimeout, filepath.Base(src))
		}
		return ctx.Err()
	}
}

// commit moves a finished part file into place, or discards it on error.
func commit(err error, part, dst string) error {
	if err != nil {
		os.Remove(part)
		return err
	}
	if err := os.Rename(part, dst); err != nil {
		os.Remove(part)
		return fmt.Errorf("finishing copy: %w", err)
	}
	return nil
}

func (a *Assembler) writeReport(path string, matches []model.Match) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating match report: %w", err)
	}
	if err := report.WriteMatches(f, matches); err != nil {
		f.Close()
		return fmt.Errorf("writing match report: %w", err)
	}
	return f.Close()
}
