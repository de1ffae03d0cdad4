package reconcile

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/invoicematch/internal/model"
)

// Reconciler pairs records with invoice candidates.
type Reconciler struct {
	matcher Matcher
	log     zerolog.Logger
}

// New creates a Reconciler. A nil matcher means SubstringMatcher.
func New(m Matcher, log zerolog.Logger) *Reconciler {
	if m == nil {
		m = SubstringMatcher{}
	}
	return &Reconciler{matcher: m, log: log.With().Str("component", "reconcile").Logger()}
}

// Reconcile walks records in order and binds each to the first unused
// candidate the matcher accepts. A candidate is bound at most once. Candidates
// failing model validation are logged and left out of the run.
func (rc *Reconciler) Reconcile(records []model.Record, candidates []model.InvoiceCandidate) (*model.Summary, error) {
	candidates = rc.valid(candidates)
	used := make([]bool, len(candidates))
	var (
		matches   []model.Match
		unmatched []model.Record
	)

	for _, r := range records {
		found := false
		for i, c := range candidates {
			if used[i] {
				continue
			}
			v, ok := rc.matcher.Match(r, c)
			if !ok {
				continue
			}
			m, err := model.NewMatch(r, c, v.Confidence, v.AmountDifference, v.Reasons...)
			if err != nil {
				return nil, fmt.Errorf("matching %s to %s: %w", r.Reference, c.Number, err)
			}
			used[i] = true
			matches = append(matches, m)
			found = true
			rc.log.Debug().Str("reference", r.Reference).Str("invoice", c.Number).
				Str("confidence", v.Confidence.String()).Msg("matched")
			break
		}
		if !found {
			unmatched = append(unmatched, r)
		}
	}

	var free []model.InvoiceCandidate
	for i, c := range candidates {
		if !used[i] {
			free = append(free, c)
		}
	}

	s, err := model.NewSummary(matches, unmatched, free, len(records), len(candidates))
	if err != nil {
		return nil, err
	}
	rc.log.Info().
		Int("records", s.TotalRecords).
		Int("invoices", s.TotalInvoices).
		Int("matches", s.MatchedCount()).
		Float64("match_rate", s.MatchRate).
		Msg("reconciliation complete")
	return s, nil
}

func (rc *Reconciler) valid(candidates []model.InvoiceCandidate) []model.InvoiceCandidate {
	out := make([]model.InvoiceCandidate, 0, len(candidates))
	for _, c := range candidates {
		if _, err := model.NewInvoiceCandidate(c); err != nil {
			rc.log.Warn().Err(err).Str("invoice", c.Number).Str("source", c.SourcePath).Msg("skipping invalid invoice")
			continue
		}
		out = append(out, c)
	}
	return out
}
