package reconcile

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/cleared-dev/invoicematch/internal/model"
)

// Strategy names accepted in Config.
const (
	StrategySubstring = "substring"
	StrategyFuzzy     = "fuzzy"
)

// Config selects and tunes the matching strategy.
type Config struct {
	Strategy        string  `yaml:"strategy"`
	AllowableDrift  float64 `yaml:"allowable_drift"`  // percent of the invoice number length
	AmountTolerance float64 `yaml:"amount_tolerance"` // absolute, in statement currency
}

// Verdict is a Matcher's positive answer for one record/invoice pair.
type Verdict struct {
	Confidence       decimal.Decimal
	AmountDifference decimal.Decimal
	Reasons          []string
}

// Matcher decides whether a record pays an invoice.
type Matcher interface {
	Match(r model.Record, c model.InvoiceCandidate) (Verdict, bool)
}

// NewMatcher builds the Matcher named by cfg.Strategy. An empty strategy is
// the substring matcher.
func NewMatcher(cfg Config) (Matcher, error) {
	switch strings.ToLower(cfg.Strategy) {
	case "", StrategySubstring:
		return SubstringMatcher{}, nil
	case StrategyFuzzy:
		if cfg.AllowableDrift < 0 || cfg.AllowableDrift > 100 {
			return nil, fmt.Errorf("allowable_drift %v outside [0,100]", cfg.AllowableDrift)
		}
		return FuzzyMatcher{
			AllowableDrift:  cfg.AllowableDrift,
			AmountTolerance: decimal.NewFromFloat(cfg.AmountTolerance),
		}, nil
	default:
		return nil, fmt.Errorf("unknown matching strategy %q", cfg.Strategy)
	}
}

// SubstringMatcher matches when the invoice number occurs anywhere in the
// record description, ignoring case. Amounts are not compared.
type SubstringMatcher struct{}

func (SubstringMatcher) Match(r model.Record, c model.InvoiceCandidate) (Verdict, bool) {
	if !containsFold(r.Description, c.Number) {
		return Verdict{}, false
	}
	return Verdict{
		Confidence:       decimal.NewFromInt(1),
		AmountDifference: decimal.Zero,
		Reasons:          []string{fmt.Sprintf("Found '%s' in description", c.Number)},
	}, true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// FuzzyMatcher accepts description tokens within AllowableDrift percent edit
// distance of the invoice number. When the invoice carries an amount, the
// difference beyond AmountTolerance lowers the confidence proportionally.
type FuzzyMatcher struct {
	AllowableDrift  float64
	AmountTolerance decimal.Decimal
}

func (f FuzzyMatcher) Match(r model.Record, c model.InvoiceCandidate) (Verdict, bool) {
	number := strings.ToLower(c.Number)
	var (
		best    = -1.0
		reasons []string
	)
	if containsFold(r.Description, c.Number) {
		best = 0
		reasons = append(reasons, fmt.Sprintf("Found '%s' in description", c.Number))
	} else {
		var token string
		for _, t := range tokens(r.Description) {
			d := drift(number, strings.ToLower(t))
			if d <= f.AllowableDrift && (best < 0 || d < best) {
				best, token = d, t
			}
		}
		if best < 0 {
			return Verdict{}, false
		}
		reasons = append(reasons, fmt.Sprintf("'%s' resembles '%s' (%.1f%% drift)", token, c.Number, best))
	}

	confidence := decimal.NewFromFloat(1 - best/100)
	diff := decimal.Zero
	if c.Amount.Valid {
		diff = r.Amount.Abs().Sub(c.Amount.Decimal).Abs()
		if diff.GreaterThan(f.AmountTolerance) {
			penalty := diff.Div(c.Amount.Decimal)
			if penalty.GreaterThan(decimal.NewFromInt(1)) {
				penalty = decimal.NewFromInt(1)
			}
			confidence = confidence.Mul(decimal.NewFromInt(1).Sub(penalty))
			reasons = append(reasons, fmt.Sprintf("Amount differs by %s", diff.StringFixed(2)))
		} else {
			reasons = append(reasons, "Amount agrees")
		}
	}

	return Verdict{
		Confidence:       confidence.Round(4),
		AmountDifference: diff,
		Reasons:          reasons,
	}, true
}

// drift is the edit distance between a and b as a percentage of len(a).
func drift(a, b string) float64 {
	n := len([]rune(a))
	if n == 0 {
		return 100
	}
	d := levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	return float64(d) / float64(n) * 100
}

// tokens splits s on anything that cannot be part of an invoice number.
func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
	})
}
