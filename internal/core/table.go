package core

import (
	"fmt"
	"sort"
	"strings"
)

// Table is the immutable long-format record set built from a wide table.
// All query methods are read-only and safe for concurrent use.
type Table struct {
	records   []ExpenditureRecord
	byYear    map[int][]int
	byCountry map[string][]int
}

// NewTable builds a table over already-normalized records, keeping their
// order. It does not validate; Load is the checked entry point. NewTable(nil)
// yields an empty table.
func NewTable(records []ExpenditureRecord) *Table {
	t := &Table{
		records:   append([]ExpenditureRecord(nil), records...),
		byYear:    make(map[int][]int),
		byCountry: make(map[string][]int),
	}
	for i, r := range t.records {
		t.byYear[r.Year] = append(t.byYear[r.Year], i)
		t.byCountry[r.CountryName] = append(t.byCountry[r.CountryName], i)
	}
	return t
}

// Load reshapes a wide-format table into long form.
//
// Every column whose label is exactly four digits is a year column; other
// columns besides Country Name and Country Code are ignored. Missing cells
// and rows without a name or code produce no record.
func Load(raw RawTable) (*Table, error) {
	nameCol := raw.ColumnIndex(ColumnCountryName)
	codeCol := raw.ColumnIndex(ColumnCountryCode)
	if nameCol == -1 || codeCol == -1 {
		var missing []string
		if nameCol == -1 {
			missing = append(missing, ColumnCountryName)
		}
		if codeCol == -1 {
			missing = append(missing, ColumnCountryCode)
		}
		return nil, fmt.Errorf("%w: missing column %s; got header=%v", ErrMalformedInput, strings.Join(missing, ","), raw.Header)
	}

	type yearColumn struct {
		index int
		year  int
	}
	var years []yearColumn
	for i, h := range raw.Header {
		if i == nameCol || i == codeCol {
			continue
		}
		if y, ok := ParseYearLabel(h); ok {
			years = append(years, yearColumn{index: i, year: y})
		}
	}

	type key struct {
		code string
		year int
	}
	seen := make(map[key]int)
	var records []ExpenditureRecord
	for r, row := range raw.Rows {
		name := strings.TrimSpace(raw.Cell(row, nameCol))
		code := strings.TrimSpace(raw.Cell(row, codeCol))
		for _, yc := range years {
			value, ok, err := ParseExpenditure(raw.Cell(row, yc.index))
			if err != nil {
				return nil, fmt.Errorf("%w: row %d, column %q: %v", ErrMalformedInput, r+1, raw.Header[yc.index], err)
			}
			if !ok || name == "" || code == "" {
				continue
			}
			k := key{code: code, year: yc.year}
			if first, dup := seen[k]; dup {
				return nil, fmt.Errorf("%w: duplicate %s/%d in rows %d and %d", ErrMalformedInput, code, yc.year, first, r+1)
			}
			seen[k] = r + 1
			records = append(records, ExpenditureRecord{
				CountryName:    name,
				CountryCode:    code,
				Year:           yc.year,
				ExpenditureUSD: value,
			})
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no year column with data among %d rows", ErrEmptyResult, len(raw.Rows))
	}
	return NewTable(records), nil
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.records)
}

// Records returns a copy of every record in load order.
func (t *Table) Records() []ExpenditureRecord {
	return append([]ExpenditureRecord(nil), t.records...)
}

// YearRange returns the smallest and largest year present.
func (t *Table) YearRange() (minYear, maxYear int, err error) {
	if len(t.records) == 0 {
		return 0, 0, fmt.Errorf("%w: table holds no records", ErrEmptyResult)
	}
	minYear, maxYear = t.records[0].Year, t.records[0].Year
	for year := range t.byYear {
		if year < minYear {
			minYear = year
		}
		if year > maxYear {
			maxYear = year
		}
	}
	return minYear, maxYear, nil
}

// Years returns the distinct years with at least one record, ascending.
func (t *Table) Years() []int {
	years := make([]int, 0, len(t.byYear))
	for y := range t.byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// FilterByYear returns the records of one year in load order. The result is
// empty, not nil, when no country reported data for that year.
func (t *Table) FilterByYear(year int) []ExpenditureRecord {
	return t.pick(t.byYear[year])
}

// TopNByExpenditure returns at most n records of the given year, highest
// expenditure first. Equal values are ordered by country name.
func (t *Table) TopNByExpenditure(year, n int) ([]ExpenditureRecord, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive, got %d", ErrInvalidArgument, n)
	}
	out := t.FilterByYear(year)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ExpenditureUSD != out[j].ExpenditureUSD {
			return out[i].ExpenditureUSD > out[j].ExpenditureUSD
		}
		return out[i].CountryName < out[j].CountryName
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// CountryNames returns the distinct country names, sorted.
func (t *Table) CountryNames() []string {
	names := make([]string, 0, len(t.byCountry))
	for name := range t.byCountry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasCountry reports whether any record carries the given country name.
func (t *Table) HasCountry(name string) bool {
	_, ok := t.byCountry[name]
	return ok
}

// FilterByCountry returns the records of one country by ascending year.
// Unknown names yield an empty slice.
func (t *Table) FilterByCountry(name string) []ExpenditureRecord {
	out := t.pick(t.byCountry[name])
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Year < out[j].Year
	})
	return out
}

func (t *Table) pick(idx []int) []ExpenditureRecord {
	out := make([]ExpenditureRecord, 0, len(idx))
	for _, i := range idx {
		out = append(out, t.records[i])
	}
	return out
}
