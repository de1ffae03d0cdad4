package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Entry is one reconciliation run.
type Entry struct {
	Timestamp  time.Time
	RunID      string
	Statements int
	Records    int
	Invoices   int
	Matches    int
	MatchRate  float64
	PackageDir string // empty for dry runs
}

// Header is the CSV header for run-log.csv.
const Header = "timestamp,run_id,statements,records,invoices,matches,match_rate,package_dir"

const (
	numFields     = 8
	logDir        = "logs"
	logFile       = "logs/run-log.csv"
	colTimestamp  = 0
	colRunID      = 1
	colStatements = 2
	colRecords    = 3
	colInvoices   = 4
	colMatches    = 5
	colMatchRate  = 6
	colPackageDir = 7
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colStatements] = strconv.Itoa(e.Statements)
	row[colRecords] = strconv.Itoa(e.Records)
	row[colInvoices] = strconv.Itoa(e.Invoices)
	row[colMatches] = strconv.Itoa(e.Matches)
	row[colMatchRate] = strconv.FormatFloat(e.MatchRate, 'f', 2, 64)
	row[colPackageDir] = e.PackageDir
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	var counts [4]int
	for i, col := range []int{colStatements, colRecords, colInvoices, colMatches} {
		n, err := strconv.Atoi(record[col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing %s %q: %w", strings.Split(Header, ",")[col], record[col], err)
		}
		counts[i] = n
	}

	rate, err := strconv.ParseFloat(record[colMatchRate], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing match_rate %q: %w", record[colMatchRate], err)
	}

	return Entry{
		Timestamp:  ts,
		RunID:      record[colRunID],
		Statements: counts[0],
		Records:    counts[1],
		Invoices:   counts[2],
		Matches:    counts[3],
		MatchRate:  rate,
		PackageDir: record[colPackageDir],
	}, nil
}

// Path returns the run log location under root.
func Path(root string) string {
	return filepath.Join(root, logFile)
}

// Append writes entries to <root>/logs/run-log.csv, creating the file and header if needed.
func Append(root string, entries ...Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := Path(root)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <root>/logs/run-log.csv.
// Returns an empty slice if the file does not exist.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(Path(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
