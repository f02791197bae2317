package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioTable() RawTable {
	return RawTable{
		Header: []string{"Country Name", "Country Code", "2019", "2020"},
		Rows: [][]string{
			{"Afghanistan", "AFG", "12.3", "14.1"},
			{"Albania", "ALB", "", "9.9"},
		},
	}
}

func TestLoad_Scenario(t *testing.T) {
	tbl, err := Load(scenarioTable())
	require.NoError(t, err)

	assert.Equal(t, []ExpenditureRecord{
		{CountryName: "Afghanistan", CountryCode: "AFG", Year: 2019, ExpenditureUSD: 12.3},
		{CountryName: "Afghanistan", CountryCode: "AFG", Year: 2020, ExpenditureUSD: 14.1},
		{CountryName: "Albania", CountryCode: "ALB", Year: 2020, ExpenditureUSD: 9.9},
	}, tbl.Records())

	assert.Equal(t, []ExpenditureRecord{
		{CountryName: "Afghanistan", CountryCode: "AFG", Year: 2019, ExpenditureUSD: 12.3},
	}, tbl.FilterByYear(2019))

	none := tbl.FilterByYear(2021)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	top, err := tbl.TopNByExpenditure(2020, 1)
	require.NoError(t, err)
	assert.Equal(t, []ExpenditureRecord{
		{CountryName: "Afghanistan", CountryCode: "AFG", Year: 2020, ExpenditureUSD: 14.1},
	}, top)
}

func TestLoad_YearLabelFilter(t *testing.T) {
	raw := RawTable{
		Header: []string{"Country Name", "Country Code", "Indicator Name", "Notes", "2020 (est.)", "19999", "2020", "  2021 ", ""},
		Rows: [][]string{
			{"Chile", "CHL", "Current health expenditure per capita", "7", "8", "9", "1200.5", "1300", "5"},
		},
	}
	tbl, err := Load(raw)
	require.NoError(t, err)

	years := tbl.Years()
	assert.Equal(t, []int{2020}, years)
	for _, r := range tbl.Records() {
		assert.NotEqual(t, 19999, r.Year)
	}
}

func TestLoad_LeadingZeroYearIgnored(t *testing.T) {
	raw := RawTable{
		Header: []string{"Country Name", "Country Code", "0999", "2020"},
		Rows: [][]string{
			{"Chile", "CHL", "10", "20"},
		},
	}
	tbl, err := Load(raw)
	require.NoError(t, err)

	assert.Equal(t, []int{2020}, tbl.Years())
	for _, r := range tbl.Records() {
		require.NoError(t, r.Validate())
	}

	_, err = Load(RawTable{
		Header: []string{"Country Name", "Country Code", "0999"},
		Rows:   [][]string{{"Chile", "CHL", "10"}},
	})
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestLoad_NullDrop(t *testing.T) {
	raw := RawTable{
		Header: []string{"Country Name", "Country Code", "2018", "2019"},
		Rows: [][]string{
			{"Peru", "PER", "300", ""},
			{"Chad", "TCD", "..", "NaN"},
			{"Cuba", "CUB", "900"}, // short row: 2019 missing
		},
	}
	tbl, err := Load(raw)
	require.NoError(t, err)

	assert.Empty(t, tbl.FilterByCountry("Chad"))
	for _, r := range tbl.FilterByYear(2019) {
		t.Fatalf("unexpected 2019 record %+v", r)
	}
	assert.Equal(t, 2, tbl.Len())
}

func TestLoad_Completeness(t *testing.T) {
	raw := RawTable{
		Header: []string{"Country Code", "Country Name", "2000", "2001", "2002", "Footnote"},
		Rows: [][]string{
			{"AAA", "Alpha", "1", "2", "3", "x"},
			{"BBB", "Beta", "", "5", "", "y"},
			{"CCC", "Gamma", "7", "", "9", ""},
		},
	}
	tbl, err := Load(raw)
	require.NoError(t, err)

	want := 0
	for _, row := range raw.Rows {
		for _, cell := range row[2:5] {
			if cell != "" {
				want++
			}
		}
	}
	assert.Equal(t, want, tbl.Len())

	seen := map[string]bool{}
	for _, r := range tbl.Records() {
		require.NoError(t, r.Validate())
		key := fmt.Sprintf("%s/%d", r.CountryCode, r.Year)
		assert.False(t, seen[key], "duplicate %s", key)
		seen[key] = true
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  RawTable
		want error
	}{
		{
			name: "missing country name",
			raw:  RawTable{Header: []string{"Country Code", "2020"}, Rows: [][]string{{"AFG", "1"}}},
			want: ErrMalformedInput,
		},
		{
			name: "missing country code",
			raw:  RawTable{Header: []string{"Country Name", "2020"}, Rows: [][]string{{"Afghanistan", "1"}}},
			want: ErrMalformedInput,
		},
		{
			name: "no year columns",
			raw:  RawTable{Header: []string{"Country Name", "Country Code", "Notes"}, Rows: [][]string{{"A", "AAA", "n"}}},
			want: ErrEmptyResult,
		},
		{
			name: "all values missing",
			raw:  RawTable{Header: []string{"Country Name", "Country Code", "2020"}, Rows: [][]string{{"A", "AAA", ""}}},
			want: ErrEmptyResult,
		},
		{
			name: "no rows",
			raw:  RawTable{Header: []string{"Country Name", "Country Code", "2020"}},
			want: ErrEmptyResult,
		},
		{
			name: "non numeric cell",
			raw:  RawTable{Header: []string{"Country Name", "Country Code", "2020"}, Rows: [][]string{{"A", "AAA", "lots"}}},
			want: ErrMalformedInput,
		},
		{
			name: "negative value",
			raw:  RawTable{Header: []string{"Country Name", "Country Code", "2020"}, Rows: [][]string{{"A", "AAA", "-4"}}},
			want: ErrMalformedInput,
		},
		{
			name: "duplicate country row",
			raw: RawTable{Header: []string{"Country Name", "Country Code", "2020"}, Rows: [][]string{
				{"A", "AAA", "1"},
				{"A", "AAA", "2"},
			}},
			want: ErrMalformedInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Load(tt.raw)
			assert.Nil(t, tbl)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestLoad_BlankIdentifiersDropped(t *testing.T) {
	raw := RawTable{
		Header: []string{"\ufeffCountry Name", "Country Code", "2020"},
		Rows: [][]string{
			{"", "XXX", "1"},
			{"Nowhere", " ", "2"},
			{"Kenya", "KEN", "3"},
		},
	}
	tbl, err := Load(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kenya"}, tbl.CountryNames())
}

func TestYearRange(t *testing.T) {
	tbl, err := Load(scenarioTable())
	require.NoError(t, err)

	minYear, maxYear, err := tbl.YearRange()
	require.NoError(t, err)

	lo, hi := 9999, 0
	for _, r := range tbl.Records() {
		lo = min(lo, r.Year)
		hi = max(hi, r.Year)
	}
	assert.Equal(t, lo, minYear)
	assert.Equal(t, hi, maxYear)

	_, _, err = NewTable(nil).YearRange()
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestFilterByYear_Idempotent(t *testing.T) {
	tbl, err := Load(scenarioTable())
	require.NoError(t, err)

	first := tbl.FilterByYear(2020)
	first[0].ExpenditureUSD = -1 // callers own the returned slice
	second := tbl.FilterByYear(2020)
	third := tbl.FilterByYear(2020)
	assert.Equal(t, second, third)
	assert.Equal(t, 14.1, second[0].ExpenditureUSD)
}

func TestTopNByExpenditure(t *testing.T) {
	raw := RawTable{
		Header: []string{"Country Name", "Country Code", "2020"},
		Rows: [][]string{
			{"Delta", "DDD", "50"},
			{"Bravo", "BBB", "70"},
			{"Alpha", "AAA", "70"},
			{"Echo", "EEE", "10"},
			{"Charlie", "CCC", "90"},
		},
	}
	tbl, err := Load(raw)
	require.NoError(t, err)

	top, err := tbl.TopNByExpenditure(2020, 3)
	require.NoError(t, err)
	names := make([]string, 0, len(top))
	for _, r := range top {
		names = append(names, r.CountryName)
	}
	assert.Equal(t, []string{"Charlie", "Alpha", "Bravo"}, names)

	// every excluded record is below the smallest included one
	included := map[string]bool{}
	for _, r := range top {
		included[r.CountryCode] = true
	}
	floor := top[len(top)-1].ExpenditureUSD
	for _, r := range tbl.FilterByYear(2020) {
		if !included[r.CountryCode] {
			assert.LessOrEqual(t, r.ExpenditureUSD, floor)
		}
	}

	all, err := tbl.TopNByExpenditure(2020, 10)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	empty, err := tbl.TopNByExpenditure(1999, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, n := range []int{0, -3} {
		_, err := tbl.TopNByExpenditure(2020, n)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestCountryNamesAndFilterByCountry(t *testing.T) {
	raw := RawTable{
		Header: []string{"Country Name", "Country Code", "2021", "2019", "2020"},
		Rows: [][]string{
			{"Zambia", "ZMB", "3", "1", "2"},
			{"Angola", "AGO", "", "4", ""},
		},
	}
	tbl, err := Load(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"Angola", "Zambia"}, tbl.CountryNames())
	assert.True(t, tbl.HasCountry("Zambia"))
	assert.False(t, tbl.HasCountry("Atlantis"))

	series := tbl.FilterByCountry("Zambia")
	require.Len(t, series, 3)
	assert.Equal(t, []int{2019, 2020, 2021}, []int{series[0].Year, series[1].Year, series[2].Year})

	unknown := tbl.FilterByCountry("Atlantis")
	assert.NotNil(t, unknown)
	assert.Empty(t, unknown)
}
