package source

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"healthdash/internal/core"
)

// worldBankCSV mimics the layout of an indicator download: BOM, two
// metadata lines, a blank line, a "Last Updated" line, then the header.
const worldBankCSV = "\ufeff\"Data Source\",\"World Development Indicators\",\n" +
	"\n" +
	"\"Last Updated Date\",\"2024-06-28\",\n" +
	"\n" +
	"\"Country Name\",\"Country Code\",\"Indicator Name\",\"Indicator Code\",\"2019\",\"2020\",\n" +
	"\"Afghanistan\",\"AFG\",\"Current health expenditure per capita (current US$)\",\"SH.XPD.CHEX.PC.CD\",\"12.3\",\"14.1\",\n" +
	"\"Albania\",\"ALB\",\"Current health expenditure per capita (current US$)\",\"SH.XPD.CHEX.PC.CD\",\"\",\"9.9\",\n"

func TestReadCSV_WorldBankLayout(t *testing.T) {
	raw, err := ReadCSV(strings.NewReader(worldBankCSV), DefaultReadOptions())
	require.NoError(t, err)

	assert.Equal(t, "Country Name", raw.Header[0])
	assert.Len(t, raw.Rows, 2)

	tbl, err := core.Load(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []int{2019, 2020}, tbl.Years())
}

func TestReadCSV_NoSkip(t *testing.T) {
	in := "Country Name,Country Code,2020\nChile,CHL,1200\n"
	raw, err := ReadCSV(strings.NewReader(in), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Country Name", "Country Code", "2020"}, raw.Header)
	assert.Equal(t, [][]string{{"Chile", "CHL", "1200"}}, raw.Rows)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("only\ntwo\n"), ReadOptions{SkipRows: 4})
	assert.ErrorIs(t, err, core.ErrMalformedInput)

	_, err = ReadCSV(strings.NewReader(""), ReadOptions{})
	assert.ErrorIs(t, err, core.ErrMalformedInput)
}

func TestDecode_TSVAndUnsupported(t *testing.T) {
	raw, err := Decode("data.tsv", strings.NewReader("Country Name\tCountry Code\t2020\nPeru\tPER\t300\n"), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Peru", "PER", "300"}}, raw.Rows)

	_, err = Decode("data.parquet", strings.NewReader(""), ReadOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func buildWorkbook(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadXLSX(t *testing.T) {
	data := buildWorkbook(t, "Data", [][]any{
		{"Data Source", "World Development Indicators"},
		{"Last Updated Date", "2024-06-28"},
		{"Country Name", "Country Code", "2019", "2020"},
		{"Afghanistan", "AFG", 12.3, 14.1},
		{"Albania", "ALB", nil, 9.9},
	})

	raw, err := ReadXLSX(bytes.NewReader(data), ReadOptions{SkipRows: 2, Sheet: "Data"})
	require.NoError(t, err)

	tbl, err := core.Load(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
	top, err := tbl.TopNByExpenditure(2020, 1)
	require.NoError(t, err)
	assert.Equal(t, "Afghanistan", top[0].CountryName)

	_, err = ReadXLSX(bytes.NewReader(data), ReadOptions{SkipRows: 10, Sheet: "Data"})
	assert.ErrorIs(t, err, core.ErrMalformedInput)

	_, err = ReadXLSX(strings.NewReader("not a workbook"), ReadOptions{})
	assert.ErrorIs(t, err, core.ErrMalformedInput)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "health_expenditure.csv")
	require.NoError(t, os.WriteFile(path, []byte(worldBankCSV), 0o644))

	src := NewFileSource(path, DefaultReadOptions())
	assert.Equal(t, "file:"+path, src.Name())

	raw, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, raw.Rows, 2)

	_, err = NewFileSource(filepath.Join(dir, "missing.csv"), DefaultReadOptions()).Fetch(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
