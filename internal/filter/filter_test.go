package filter

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/invoicematch/internal/model"
)

func rec(name, remi, desc string) model.Record {
	return model.Record{
		Date:             time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC),
		Description:      desc,
		Amount:           decimal.NewFromInt(-10),
		Reference:        "R1",
		CounterpartyName: name,
		RemittanceInfo:   remi,
	}
}

func newFilter(t *testing.T, cfg Config) *RecordFilter {
	t.Helper()
	f, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	return f
}

func TestShouldInclude_Keywords(t *testing.T) {
	f := newFilter(t, Config{Enabled: true, Keywords: []string{"ROYAL CANIN"}})

	tests := []struct {
		name string
		rec  model.Record
		want bool
	}{
		{"counterparty", rec("Royal Canin Nederland B.V.", "", "SEPA incasso"), true},
		{"description fallback", rec("", "", "incasso ROYAL CANIN april"), true},
		{"counterparty miss, description hit", rec("Other BV", "", "royal canin"), true},
		{"no hit", rec("Albert Heijn", "", "groceries"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.ShouldInclude(tt.rec))
		})
	}
}

func TestShouldInclude_CaseSensitive(t *testing.T) {
	f := newFilter(t, Config{Enabled: true, Keywords: []string{"ROYAL CANIN"}, CaseSensitive: true})
	assert.True(t, f.ShouldInclude(rec("ROYAL CANIN NL", "", "x")))
	assert.False(t, f.ShouldInclude(rec("Royal Canin NL", "", "x")))
}

func TestShouldInclude_Pattern(t *testing.T) {
	f := newFilter(t, Config{Enabled: true, Pattern: `sip\d{7,9}`})
	assert.True(t, f.ShouldInclude(rec("", "SIP25024251", "x")), "remittance checked first, case-insensitive")
	assert.True(t, f.ShouldInclude(rec("", "", "invoice SIP25024251")))
	assert.False(t, f.ShouldInclude(rec("", "INV-1", "none")))
}

func TestShouldInclude_Combination(t *testing.T) {
	base := Config{Enabled: true, Keywords: []string{"royal canin"}, Pattern: `SIP\d+`}

	and := base
	and.RequireBoth = true
	fAnd := newFilter(t, and)
	fOr := newFilter(t, base)

	both := rec("Royal Canin", "SIP123", "x")
	kwOnly := rec("Royal Canin", "", "x")
	patOnly := rec("Other", "SIP123", "x")
	neither := rec("Other", "", "x")

	assert.True(t, fAnd.ShouldInclude(both))
	assert.False(t, fAnd.ShouldInclude(kwOnly))
	assert.False(t, fAnd.ShouldInclude(patOnly))
	assert.False(t, fAnd.ShouldInclude(neither))

	assert.True(t, fOr.ShouldInclude(both))
	assert.True(t, fOr.ShouldInclude(kwOnly))
	assert.True(t, fOr.ShouldInclude(patOnly))
	assert.False(t, fOr.ShouldInclude(neither))
}

func TestShouldInclude_Disabled(t *testing.T) {
	f := newFilter(t, Config{Enabled: false, Keywords: []string{"NOTHING MATCHES"}, Pattern: `^$never`, RequireBoth: true})
	for _, r := range []model.Record{rec("", "", "a"), rec("x", "y", "z"), rec("ROYAL CANIN", "SIP1", "b")} {
		assert.True(t, f.ShouldInclude(r))
	}
}

func TestShouldInclude_NoRules(t *testing.T) {
	f := newFilter(t, Config{Enabled: true, Keywords: []string{"  "}})
	assert.True(t, f.ShouldInclude(rec("", "", "anything")))
}

func TestNew_BadPattern(t *testing.T) {
	_, err := New(Config{Enabled: true, Pattern: "("}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compiling filter pattern")
}
