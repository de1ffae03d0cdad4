package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/invoicematch/internal/model"
)

// Config is the rule set deciding which records are in scope.
type Config struct {
	Enabled       bool     `yaml:"enabled"`
	Keywords      []string `yaml:"keywords,omitempty"`
	Pattern       string   `yaml:"pattern,omitempty"`
	RequireBoth   bool     `yaml:"require_both"`
	CaseSensitive bool     `yaml:"case_sensitive"`
}

// RecordFilter applies a Config to records.
type RecordFilter struct {
	cfg      Config
	keywords []string
	pattern  *regexp.Regexp
	log      zerolog.Logger
}

// New compiles cfg. An invalid pattern is an error.
func New(cfg Config, log zerolog.Logger) (*RecordFilter, error) {
	f := &RecordFilter{cfg: cfg, log: log}
	for _, k := range cfg.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			f.keywords = append(f.keywords, f.fold(k))
		}
	}
	if cfg.Pattern != "" {
		expr := cfg.Pattern
		if !cfg.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compiling filter pattern %q: %w", cfg.Pattern, err)
		}
		f.pattern = re
	}
	return f, nil
}

// ShouldInclude reports whether r is in scope. With the filter disabled, or
// with no keywords and no pattern configured, every record is included.
func (f *RecordFilter) ShouldInclude(r model.Record) bool {
	if !f.cfg.Enabled {
		return true
	}

	hasKeywords, hasPattern := len(f.keywords) > 0, f.pattern != nil
	var ok bool
	switch {
	case hasKeywords && hasPattern:
		kw, pat := f.matchKeyword(r), f.matchPattern(r)
		if f.cfg.RequireBoth {
			ok = kw && pat
		} else {
			ok = kw || pat
		}
	case hasKeywords:
		ok = f.matchKeyword(r)
	case hasPattern:
		ok = f.matchPattern(r)
	default:
		ok = true
	}

	if !ok {
		f.log.Debug().
			Time("date", r.Date).
			Str("counterparty", r.CounterpartyName).
			Str("amount", r.Amount.String()).
			Msg("filtered out record")
	}
	return ok
}

// matchKeyword checks the counterparty name first, then the description.
func (f *RecordFilter) matchKeyword(r model.Record) bool {
	for _, text := range []string{r.CounterpartyName, r.Description} {
		if text == "" {
			continue
		}
		text = f.fold(text)
		for _, k := range f.keywords {
			if strings.Contains(text, k) {
				return true
			}
		}
	}
	return false
}

// matchPattern checks the remittance info first, then the description.
func (f *RecordFilter) matchPattern(r model.Record) bool {
	for _, text := range []string{r.RemittanceInfo, r.Description} {
		if text != "" && f.pattern.MatchString(text) {
			return true
		}
	}
	return false
}

func (f *RecordFilter) fold(s string) string {
	if f.cfg.CaseSensitive {
		return s
	}
	return strings.ToUpper(s)
}
