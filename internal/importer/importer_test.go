package importer

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/invoicematch/internal/filter"
	"github.com/cleared-dev/invoicematch/internal/model"
)

const statementA = `:20:ABN AMRO BANK NV
:25:438661141
:28:41001/1
:60F:C250404EUR1000,00
:61:2504070407D177,29N249INC25015736
:86:/NAME/ROYAL CANIN/REMI/SIP25024251/IBAN/NL11RABO0154634638
:61:2504080408C50,00N654NONREF
:86:BEA   NR:XYZ SUPERMARKT
:62F:C250408EUR872,71
`

// statementB repeats the first transaction of statementA.
const statementB = `:20:ABN AMRO BANK NV
:25:438661141
:28:41002/1
:60F:C250408EUR872,71
:61:2504070407D177,29N249INC25015736
:86:/NAME/ROYAL CANIN/REMI/SIP25024251/IBAN/NL11RABO0154634638
:61:2504100410D12,50N249INC25015999
:86:/NAME/ROYAL CANIN/REMI/SIP25024299
:62F:C250410EUR860,21
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func newLoader(t *testing.T, f Includer) *Loader {
	t.Helper()
	log := zerolog.Nop()
	p := DefaultRegistry(log).Get("MT940")
	require.NotNil(t, p)
	return NewLoader(p, f, log)
}

func rec(day int, amount, reference string) model.Record {
	return model.Record{
		Date:        time.Date(2025, 4, day, 0, 0, 0, 0, time.UTC),
		Description: "x",
		Amount:      decimal.RequireFromString(amount),
		Reference:   reference,
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry(zerolog.Nop())
	assert.NotNil(t, r.Get("mt940"))
	assert.Nil(t, r.Get("camt053"))
	assert.Panics(t, func() { r.Register(r.Get("mt940")) })
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.STA", statementA)

	res, err := newLoader(t, nil).Load(p)
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, 2, res.Parsed)
	assert.Zero(t, res.Duplicates)
	assert.Equal(t, "SIP25024251", res.Records[0].RemittanceInfo)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := newLoader(t, nil).Load(filepath.Join(t.TempDir(), "missing.sta"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoad_ParseError(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "empty.sta", "just some text\n")

	_, err := newLoader(t, nil).Load(p)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, p, pe.Path)
}

func TestLoad_Filter(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.sta", statementA)
	f, err := filter.New(filter.Config{Enabled: true, Keywords: []string{"royal canin"}}, zerolog.Nop())
	require.NoError(t, err)

	res, err := newLoader(t, f).Load(p)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "INC25015736", res.Records[0].Reference)
	assert.Equal(t, 1, res.FilteredOut)
}

func TestLoadAll_DedupAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.sta", statementA)
	b := writeFile(t, dir, "b.sta", statementB)

	res, err := newLoader(t, nil).LoadAll([]string{a, b})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Parsed)
	assert.Equal(t, 1, res.Duplicates)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "INC25015999", res.Records[2].Reference)
	assert.Empty(t, res.Failures)
}

func TestLoadAll_ContinuesPastFailure(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.sta", statementA)
	missing := filepath.Join(dir, "gone.sta")

	res, err := newLoader(t, nil).LoadAll([]string{missing, a})
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, missing, res.Failures[0].Path)
	assert.ErrorIs(t, res.Failures[0].Err, ErrNotFound)
}

func TestLoadAll_NoPaths(t *testing.T) {
	_, err := newLoader(t, nil).LoadAll(nil)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestDedup(t *testing.T) {
	in := []model.Record{
		rec(7, "-177.29", "INC1"),
		rec(7, "-177.29", "INC1"),
		rec(7, "-177.290", "INC1"),
		rec(8, "-177.29", "INC1"),
		rec(7, "-177.29", "INC2"),
	}
	out, dropped := Dedup(in)
	assert.Len(t, out, 3)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, "INC2", out[2].Reference)

	again, dropped := Dedup(out)
	assert.Equal(t, out, again)
	assert.Zero(t, dropped)
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.STA", statementA)
	writeFile(t, dir, "b.mt940", statementB)
	writeFile(t, dir, "notes.txt", "ignore")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.sta"), 0o755))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.STA", files[0].Name)
	assert.Equal(t, "b.mt940", files[1].Name)
	assert.Equal(t, int64(len(statementA)), files[0].Size)
}

func TestScan_MissingDir(t *testing.T) {
	files, err := Scan(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.sta", statementA)

	dst, err := MarkProcessed(p)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "processed", "a.sta"), dst)
	assert.NoFileExists(t, p)
	assert.FileExists(t, dst)
}
