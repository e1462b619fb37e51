package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/xuri/excelize/v2"

	"github.com/SM97490/agent-produits-distrisku/internal/resolver"
	"github.com/SM97490/agent-produits-distrisku/internal/sheet"
)

func writeInput(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sh, err := f.AddSheet("Produits")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sh.AddRow()
		for _, v := range rowData {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "catalogue.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, "/tmp/catalogue_enrichi_production.xlsx", DefaultOutputPath("/tmp/catalogue.xlsx"))
	assert.Equal(t, "produits_enrichi_production.xlsx", DefaultOutputPath("produits"))
}

func TestProcessFile(t *testing.T) {
	input := writeInput(t, [][]string{
		{"SKU", "Prix d’achat"},
		{"DS-2CD1234", "100,00"},
		{"", "5"},
		{"BAD-1", "10"},
		{"DS-2CE16D0T", "20"},
	})
	p := New(&fakeResolver{}, noDelay(Options{}))

	out, err := p.ProcessFile(context.Background(), input, "", nil)
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, 3, out.ProcessedCount)
	assert.Equal(t, 2, out.ValidatedCount)
	assert.Equal(t, 1, out.SkippedCount)
	assert.Equal(t, DefaultOutputPath(input), out.OutputPath)
	assert.Empty(t, out.Error)

	f, err := excelize.OpenFile(out.OutputPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet.OutputSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, sheet.OutputColumns, rows[0])
	assert.Equal(t, "DS-2CD1234", rows[1][0])
	assert.Equal(t, "178.46", rows[1][6])
	assert.Equal(t, "DS-2CE16D0T", rows[2][0])
}

func TestProcessFile_NothingValidatesWritesHeaderOnly(t *testing.T) {
	input := writeInput(t, [][]string{{"SKU", "Prix Achat"}, {"BAD-1", "10"}})
	output := filepath.Join(t.TempDir(), "out.xlsx")

	out, err := New(&fakeResolver{}, noDelay(Options{})).ProcessFile(context.Background(), input, output, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, out.ProcessedCount)
	assert.Zero(t, out.ValidatedCount)

	f, err := excelize.OpenFile(output)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet.OutputSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestProcessFile_MissingPriceColumn(t *testing.T) {
	input := writeInput(t, [][]string{{"SKU", "Prix de vente"}, {"DS-2CD1234", "10"}})
	output := filepath.Join(t.TempDir(), "out.xlsx")

	out, err := New(resolver.New(resolver.Options{}), noDelay(Options{})).ProcessFile(context.Background(), input, output, nil)
	require.Error(t, err)

	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "missing required column")
	assert.Zero(t, out.ProcessedCount)
	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessFile_UnreadableInput(t *testing.T) {
	out, err := New(&fakeResolver{}, noDelay(Options{})).ProcessFile(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"), "", nil)
	require.Error(t, err)
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Error)
}

func TestProcessFile_TooManyProducts(t *testing.T) {
	input := writeInput(t, [][]string{
		{"SKU", "Prix d'achat"},
		{"DS-2CD1", "10"},
		{"DS-2CD2", "10"},
		{"DS-2CD3", "10"},
	})
	output := filepath.Join(t.TempDir(), "out.xlsx")
	fr := &fakeResolver{}

	out, err := New(fr, noDelay(Options{MaxRows: 2})).ProcessFile(context.Background(), input, output, nil)
	require.Error(t, err)

	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "maximum 2 per file")
	assert.Zero(t, fr.calls.Load())
	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}
