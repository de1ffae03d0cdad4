package mt940

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrNoStatements is returned when the input holds no statement fields at all.
var ErrNoStatements = errors.New("no statements found")

// Statement is one reporting period as read from the file, before any of its
// transactions are converted into records.
type Statement struct {
	Reference    string // :20:
	Account      string // :25:
	Sequence     string // :28: / :28C:
	Opening      string // :60F: / :60M:
	Closing      string // :62F: / :62M:
	Info         string // :86: not attached to a transaction
	Transactions []RawTransaction
}

// RawTransaction is a :61: field and the :86: field that follows it, exactly
// as they appear in the file. ToRecord turns it into a model.Record.
type RawTransaction struct {
	Line          int    // line number of the :61: tag
	Entry         string // first line of :61:
	Supplementary string // continuation of :61:, if any
	Details       string // :86:
	Account       string // :25: of the owning statement
}

// Text reproduces the raw field lines; it feeds the fallback reference hash.
func (t RawTransaction) Text() string {
	var b strings.Builder
	b.WriteString(":61:" + t.Entry)
	if t.Supplementary != "" {
		b.WriteString("\n" + t.Supplementary)
	}
	if t.Details != "" {
		b.WriteString("\n:86:" + t.Details)
	}
	return b.String()
}

var tagRe = regexp.MustCompile(`^:(\d{2}[A-Z]?):(.*)$`)

type field struct {
	tag   string
	line  int
	lines []string
}

// value joins continuation lines. SWIFT wraps narrative at a fixed width, so
// :86: lines are glued back together; :61: keeps its second line separate.
func (f *field) value() string {
	if f.tag == "86" {
		return strings.Join(f.lines, "")
	}
	return strings.Join(f.lines, "\n")
}

// ReadStatements splits r into statements. It only fails when the content
// cannot be decoded or carries no statement fields; malformed transactions
// are left for ToRecord to reject one by one.
func ReadStatements(r io.Reader) ([]Statement, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading statement: %w", err)
	}
	text, err := decode(data)
	if err != nil {
		return nil, err
	}

	fields, err := lex(text)
	if err != nil {
		return nil, err
	}
	stmts := assemble(fields)
	if len(stmts) == 0 {
		return nil, ErrNoStatements
	}
	return stmts, nil
}

// decode accepts UTF-8 and falls back to Windows-1252, which Dutch banks
// still use for exports.
func decode(data []byte) (string, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return "", errors.New("binary content: NUL byte in statement")
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decoding statement as windows-1252: %w", err)
	}
	return string(out), nil
}

func lex(text string) ([]*field, error) {
	var fields []*field
	var cur *field

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), " \t\r")

		// SWIFT envelope: "{1:...}{2:...}{4:" opens, "-}" closes.
		if strings.HasPrefix(line, "{") {
			i := strings.Index(line, "{4:")
			if i < 0 {
				continue
			}
			line = line[i+3:]
		}
		if line == "" || line == "-" || strings.HasPrefix(line, "-}") {
			continue
		}

		if m := tagRe.FindStringSubmatch(line); m != nil {
			cur = &field{tag: m[1], line: n, lines: []string{m[2]}}
			fields = append(fields, cur)
			continue
		}
		// Lines before the first tag are bank header noise (BIC, "940").
		if cur != nil {
			cur.lines = append(cur.lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning statement: %w", err)
	}
	return fields, nil
}

func assemble(fields []*field) []Statement {
	var stmts []Statement
	var cur *Statement
	prev := ""

	start := func() {
		if cur != nil {
			stmts = append(stmts, *cur)
		}
		cur = &Statement{}
	}

	for _, f := range fields {
		if f.tag == "20" || cur == nil {
			start()
		}
		v := f.value()
		switch f.tag {
		case "20":
			cur.Reference = strings.TrimSpace(v)
		case "25":
			cur.Account = strings.TrimSpace(v)
		case "28", "28C":
			cur.Sequence = strings.TrimSpace(v)
		case "60F", "60M":
			cur.Opening = strings.TrimSpace(v)
		case "62F", "62M":
			cur.Closing = strings.TrimSpace(v)
		case "61":
			raw := RawTransaction{Line: f.line, Entry: f.lines[0], Account: cur.Account}
			if len(f.lines) > 1 {
				raw.Supplementary = strings.Join(f.lines[1:], " ")
			}
			cur.Transactions = append(cur.Transactions, raw)
		case "86":
			if prev == "61" && len(cur.Transactions) > 0 {
				cur.Transactions[len(cur.Transactions)-1].Details = v
			} else {
				cur.Info = v
			}
		}
		prev = f.tag
	}
	if cur != nil {
		stmts = append(stmts, *cur)
	}
	return stmts
}
