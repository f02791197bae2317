package google

import (
	"errors"
	"testing"

	"healthdash/internal/core"
)

// Build a small matrix emulating the World Bank sheet export
func TestParseValues_WorldBankExport(t *testing.T) {
	values := [][]interface{}{
		{"Data Source", "World Development Indicators"},
		{},
		{"Last Updated Date", "2024-06-28"},
		{},
		{"Country Name", "Country Code", "Indicator Name", 2019.0, 2020.0, 2021.0},
		{"Afghanistan", "AFG", "Current health expenditure per capita", 12.3, 14.1, ""},
		{},
		{"Albania", "ALB", "Current health expenditure per capita", nil, 9.9, 301.25},
	}
	raw, err := parseValues(values, 4)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	wantHeader := []string{"Country Name", "Country Code", "Indicator Name", "2019", "2020", "2021"}
	if len(raw.Header) != len(wantHeader) {
		t.Fatalf("header: got %v", raw.Header)
	}
	for i, h := range wantHeader {
		if raw.Header[i] != h {
			t.Fatalf("header[%d]: got %q want %q", i, raw.Header[i], h)
		}
	}
	if len(raw.Rows) != 2 {
		t.Fatalf("rows: got %d", len(raw.Rows))
	}

	tbl, err := core.Load(raw)
	if err != nil {
		t.Fatalf("load err: %v", err)
	}
	if tbl.Len() != 4 {
		t.Fatalf("records: got %d", tbl.Len())
	}
	alb := tbl.FilterByCountry("Albania")
	if len(alb) != 2 || alb[1].ExpenditureUSD != 301.25 {
		t.Fatalf("Albania series: %+v", alb)
	}
}

func TestParseValues_TooShort(t *testing.T) {
	_, err := parseValues([][]interface{}{{"only metadata"}}, 4)
	if !errors.Is(err, core.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}

func TestCellString(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{" AFG ", " AFG "},
		{" 2019 ", " 2019 "},
		{2020.0, "2020"},
		{14.125, "14.125"},
		{true, "true"},
		{int64(7), "7"},
	}
	for _, tt := range tests {
		if got := cellString(tt.in); got != tt.want {
			t.Errorf("cellString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSheetRange(t *testing.T) {
	if got := sheetRange("Data"); got != "'Data'!A:ZZ" {
		t.Fatalf("got %q", got)
	}
	if got := sheetRange("Bob's sheet"); got != "'Bob''s sheet'!A:ZZ" {
		t.Fatalf("got %q", got)
	}
}
