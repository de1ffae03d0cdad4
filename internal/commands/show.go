package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/invoicematch/internal/report"
	"github.com/cleared-dev/invoicematch/internal/upload"
)

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <package-dir>",
		Short: "Print an assembled upload package and its match report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := upload.Open(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, pkg.Summary())

			f, err := os.Open(pkg.ReportPath())
			if err != nil {
				return fmt.Errorf("opening match report: %w", err)
			}
			defer f.Close()

			rows, err := report.ReadRows(f)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d matches:\n", len(rows))
			for _, r := range rows {
				fmt.Fprintf(out, "  %s  %12s  %-20s -> %s (%s) %s\n",
					r.Date.Format("2006-01-02"), r.Amount.StringFixed(2), r.Reference,
					r.InvoiceNumber, r.Confidence.String(), strings.Join(r.Reasons, "; "))
			}
			return nil
		},
	}
}
