package core

import (
	"errors"
	"strings"
)

// Required column labels of the wide-format source table.
const (
	ColumnCountryName = "Country Name"
	ColumnCountryCode = "Country Code"
)

type (
	// RawTable is a wide-format table as read from a source: one row per
	// country, one column per calendar year, plus metadata columns.
	RawTable struct {
		Header []string
		Rows   [][]string
	}

	// ExpenditureRecord is one normalized (country, year) observation.
	ExpenditureRecord struct {
		CountryName    string  `json:"country_name"`
		CountryCode    string  `json:"country_code"`
		Year           int     `json:"year"`
		ExpenditureUSD float64 `json:"expenditure_usd"`
	}
)

var (
	ErrMalformedInput  = errors.New("malformed input")
	ErrEmptyResult     = errors.New("empty result")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Validate checks the invariants every record of a table must hold.
func (r ExpenditureRecord) Validate() error {
	if strings.TrimSpace(r.CountryName) == "" {
		return errors.New("empty country name")
	}
	if strings.TrimSpace(r.CountryCode) == "" {
		return errors.New("empty country code")
	}
	if r.Year < 1000 || r.Year > 9999 {
		return errors.New("year must have four digits")
	}
	if r.ExpenditureUSD < 0 {
		return errors.New("negative expenditure")
	}
	return nil
}

// Cell returns the cell at column i of row, or "" when the row is short.
func (t RawTable) Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// ColumnIndex returns the index of the header matching label, ignoring
// surrounding whitespace and a leading byte order mark. -1 if absent.
func (t RawTable) ColumnIndex(label string) int {
	for i, h := range t.Header {
		if normalizeLabel(h) == label {
			return i
		}
	}
	return -1
}

func normalizeLabel(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
}
