package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/invoicematch/internal/importer"
	"github.com/cleared-dev/invoicematch/internal/invoices"
	"github.com/cleared-dev/invoicematch/internal/model"
	"github.com/cleared-dev/invoicematch/internal/mt940"
	"github.com/cleared-dev/invoicematch/internal/reconcile"
	"github.com/cleared-dev/invoicematch/internal/runlog"
	"github.com/cleared-dev/invoicematch/internal/upload"
)

type reconcileFlags struct {
	statements []string
	invoices   string
	out        string
	dryRun     bool
	archive    bool
}

func newReconcileCommand(g *globalFlags) *cobra.Command {
	f := &reconcileFlags{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match statement transactions to invoices and build an upload package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, g, f)
		},
	}

	cmd.Flags().StringSliceVar(&f.statements, "statements", []string{statementsDir}, "statement files or directories")
	cmd.Flags().StringVar(&f.invoices, "invoices", invoicesDir, "directory of invoice PDFs")
	cmd.Flags().StringVar(&f.out, "out", outputDir, "package output root")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "print the summary without building a package")
	cmd.Flags().BoolVar(&f.archive, "archive", false, "move loaded statements to processed/ after packaging")

	return cmd
}

func runReconcile(cmd *cobra.Command, g *globalFlags, f *reconcileFlags) error {
	cfg, log, err := g.setup(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	paths, err := statementPaths(f.statements)
	if err != nil {
		return err
	}
	loader, err := newLoader(cfg.Filter, log)
	if err != nil {
		return err
	}
	res, err := loader.LoadAll(paths)
	if err != nil {
		return err
	}
	if err := failuresError(out, res.Failures, len(paths)); err != nil {
		return err
	}

	scanner, err := invoices.NewScanner(cfg.Invoices, log)
	if err != nil {
		return err
	}
	candidates, err := scanner.Scan(f.invoices)
	if err != nil {
		return err
	}

	matcher, err := reconcile.NewMatcher(cfg.Matching)
	if err != nil {
		return err
	}
	summary, err := reconcile.New(matcher, log).Reconcile(res.Records, candidates)
	if err != nil {
		return err
	}
	printSummary(out, summary)

	entry := runlog.Entry{
		Timestamp:  time.Now().UTC().Truncate(time.Second),
		RunID:      uuid.New().String(),
		Statements: len(paths) - len(res.Failures),
		Records:    summary.TotalRecords,
		Invoices:   summary.TotalInvoices,
		Matches:    summary.MatchedCount(),
		MatchRate:  summary.MatchRate,
	}

	if f.dryRun || summary.MatchedCount() == 0 {
		if summary.MatchedCount() == 0 {
			fmt.Fprintln(out, "No matches, nothing to package.")
		}
		return runlog.Append(f.out, entry)
	}

	asm := upload.NewAssembler(mt940.NewGenerator(cfg.Statement.Header, log), cfg.UploadConfig(), log)
	pkg, err := asm.Assemble(cmd.Context(), summary, f.out)
	if err != nil {
		return err
	}
	fmt.Fprint(out, "\n"+pkg.Summary())

	entry.RunID = pkg.RunID
	entry.PackageDir = pkg.WorkDir
	if err := runlog.Append(f.out, entry); err != nil {
		return err
	}

	if f.archive {
		return archive(out, paths, res.Failures)
	}
	return nil
}

func archive(w io.Writer, paths []string, failures []importer.FileError) error {
	failed := make(map[string]bool, len(failures))
	for _, fe := range failures {
		failed[fe.Path] = true
	}
	for _, p := range paths {
		if failed[p] {
			continue
		}
		dst, err := importer.MarkProcessed(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "archived %s -> %s\n", filepath.Base(p), dst)
	}
	return nil
}

func printSummary(w io.Writer, s *model.Summary) {
	fmt.Fprintf(w, "Records:   %d\n", s.TotalRecords)
	fmt.Fprintf(w, "Invoices:  %d\n", s.TotalInvoices)
	fmt.Fprintf(w, "Matches:   %d (%.1f%%)\n", s.MatchedCount(), s.MatchRate)
	fmt.Fprintf(w, "Amount:    %s\n", s.TotalMatchedAmount.StringFixed(2))
	for _, m := range s.Matches {
		fmt.Fprintf(w, "  %s  %12s  %-20s -> %s (%s)\n",
			m.Record.Date.Format("2006-01-02"), m.Record.Amount.StringFixed(2), m.Record.Reference,
			m.Invoice.Number, m.Confidence.String())
	}
	for _, r := range s.UnmatchedRecords {
		fmt.Fprintf(w, "  unmatched record:  %s %s\n", r.Reference, r.Description)
	}
	for _, c := range s.UnmatchedInvoices {
		fmt.Fprintf(w, "  unmatched invoice: %s %s\n", c.Number, c.SourcePath)
	}
}
