package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/invoicematch/internal/filter"
	"github.com/cleared-dev/invoicematch/internal/importer"
	"github.com/cleared-dev/invoicematch/internal/model"
)

func newParseCommand(g *globalFlags) *cobra.Command {
	var noFilter bool

	cmd := &cobra.Command{
		Use:   "parse <statement|dir>...",
		Short: "Parse statements and print the in-scope transactions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.setup(cmd)
			if err != nil {
				return err
			}
			if noFilter {
				cfg.Filter.Enabled = false
			}

			paths, err := statementPaths(args)
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

			out := cmd.OutOrStdout()
			printRecords(out, res.Records)
			fmt.Fprintf(out, "\n%d parsed, %d duplicates, %d filtered out, %d in scope\n",
				res.Parsed, res.Duplicates, res.FilteredOut, len(res.Records))
			return failuresError(out, res.Failures, len(paths))
		},
	}

	cmd.Flags().BoolVar(&noFilter, "no-filter", false, "include every transaction")

	return cmd
}

// statementPaths expands directories into the statement files they contain.
func statementPaths(args []string) ([]string, error) {
	var paths []string
	for _, a := range args {
		info, err := os.Stat(a)
		if err != nil || !info.IsDir() {
			// Missing files are reported by the loader.
			paths = append(paths, a)
			continue
		}
		files, err := importer.Scan(a)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no statement files (.sta, .mt940) found in %v", args)
	}
	return paths, nil
}

func newLoader(fc filter.Config, log zerolog.Logger) (*importer.Loader, error) {
	f, err := filter.New(fc, log)
	if err != nil {
		return nil, err
	}
	p := importer.DefaultRegistry(log).Get("mt940")
	return importer.NewLoader(p, f, log), nil
}

func printRecords(w io.Writer, records []model.Record) {
	for _, r := range records {
		fmt.Fprintf(w, "%s  %12s  %-20s  %-30s  %s\n",
			r.Date.Format("2006-01-02"), r.Amount.StringFixed(2), r.Reference, r.CounterpartyName, r.RemittanceInfo)
	}
}

// failuresError prints per-file failures and fails only when no file loaded.
func failuresError(w io.Writer, failures []importer.FileError, total int) error {
	for _, f := range failures {
		fmt.Fprintf(w, "failed: %s: %v\n", f.Path, f.Err)
	}
	if len(failures) > 0 && len(failures) == total {
		return fmt.Errorf("no statement could be loaded")
	}
	return nil
}
