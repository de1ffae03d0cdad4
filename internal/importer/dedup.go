package importer

import "github.com/cleared-dev/invoicematch/internal/model"

// Deduplicator drops records whose (date, amount, reference) was already seen.
type Deduplicator struct {
	seen       map[string]struct{}
	duplicates int
}

// NewDeduplicator creates an empty Deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Add returns true the first time r's key is seen.
func (d *Deduplicator) Add(r model.Record) bool {
	k := r.Key()
	if _, ok := d.seen[k]; ok {
		d.duplicates++
		return false
	}
	d.seen[k] = struct{}{}
	return true
}

// Duplicates returns how many records Add rejected.
func (d *Deduplicator) Duplicates() int { return d.duplicates }

// Dedup returns records with duplicates removed, order kept, plus the number dropped.
func Dedup(records []model.Record) ([]model.Record, int) {
	d := NewDeduplicator()
	var out []model.Record
	for _, r := range records {
		if d.Add(r) {
			out = append(out, r)
		}
	}
	return out, d.Duplicates()
}
