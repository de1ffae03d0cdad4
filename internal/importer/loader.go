package importer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/invoicematch/internal/model"
)

// ErrNotFound is returned when a statement path does not exist.
var ErrNotFound = errors.New("statement not found")

// ParseError is a file-level failure to decode a statement.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parsing %s: %v", e.Path, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// Includer decides whether a record is in scope (see filter.RecordFilter).
type Includer interface {
	ShouldInclude(r model.Record) bool
}

// Result is the outcome of loading one or more statement files.
type Result struct {
	Records     []model.Record // deduplicated, filtered, in file order
	Parsed      int            // records produced by the parser
	Duplicates  int
	FilteredOut int
	Failures    []FileError // per-file errors from LoadAll
}

// FileError pairs a statement path with the error that stopped it.
type FileError struct {
	Path string
	Err  error
}

// Loader reads statement files into in-scope, deduplicated records.
type Loader struct {
	parser Parser
	filter Includer
	log    zerolog.Logger
}

// NewLoader creates a Loader. A nil filter includes everything.
func NewLoader(parser Parser, filter Includer, log zerolog.Logger) *Loader {
	return &Loader{parser: parser, filter: filter, log: log}
}

// Load parses a single statement file.
func (l *Loader) Load(path string) (*Result, error) {
	d := NewDeduplicator()
	res := &Result{}
	if err := l.loadInto(path, d, res); err != nil {
		return nil, err
	}
	l.logResult(res, 1)
	return res, nil
}

// LoadAll parses every path, deduplicating across files. A file that fails is
// recorded in Result.Failures and the others still load.
func (l *Loader) LoadAll(paths []string) (*Result, error) {
	if len(paths) == 0 {
		return nil, model.ValidationError{Field: "statements", Reason: "no statement files given"}
	}
	d := NewDeduplicator()
	res := &Result{}
	for _, p := range paths {
		if err := l.loadInto(p, d, res); err != nil {
			l.log.Error().Err(err).Str("path", p).Msg("statement skipped")
			res.Failures = append(res.Failures, FileError{Path: p, Err: err})
		}
	}
	l.logResult(res, len(paths))
	return res, nil
}

func (l *Loader) loadInto(path string, d *Deduplicator, res *Result) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err != nil {
		return fmt.Errorf("opening statement %s: %w", path, err)
	}
	defer f.Close()

	records, err := l.parser.Parse(f)
	if err != nil {
		return &ParseError{Path: path, Err: err}
	}
	res.Parsed += len(records)

	for _, r := range records {
		if !d.Add(r) {
			continue
		}
		if l.filter != nil && !l.filter.ShouldInclude(r) {
			res.FilteredOut++
			continue
		}
		res.Records = append(res.Records, r)
	}
	res.Duplicates = d.Duplicates()
	return nil
}

func (l *Loader) logResult(res *Result, files int) {
	l.log.Info().
		Int("files", files).
		Int("parsed", res.Parsed).
		Int("duplicates", res.Duplicates).
		Int("filtered_out", res.FilteredOut).
		Int("records", len(res.Records)).
		Int("failed_files", len(res.Failures)).
		Msg("statements loaded")
}
