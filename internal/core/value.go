package core

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// yearLabel matches four ASCII digits without a leading zero, so every
// parsed year satisfies ExpenditureRecord.Validate.
var yearLabel = regexp.MustCompile(`^[1-9][0-9]{3}$`)

// decimalNumber is the plain decimal notation accepted in data cells.
// strconv.ParseFloat alone would also take hex floats and underscores.
var decimalNumber = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`)

// missingMarkers are the cell values treated as "no data". World Bank
// exports use ".." in some formats; the rest are the usual NA spellings.
var missingMarkers = map[string]struct{}{
	"":     {},
	"..":   {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
	"#n/a": {},
}

// ParseYearLabel reports whether label is a calendar-year column label,
// that is exactly four ASCII digits from 1000 to 9999, and returns the year.
// Only a leading byte order mark is stripped; surrounding spaces disqualify
// the label.
func ParseYearLabel(label string) (int, bool) {
	label = strings.TrimPrefix(label, "\ufeff")
	if !yearLabel.MatchString(label) {
		return 0, false
	}
	year, err := strconv.Atoi(label)
	if err != nil {
		return 0, false
	}
	return year, true
}

// ParseExpenditure parses a year-column cell. ok is false for missing cells.
// Non-numeric, non-finite or negative values are rejected.
func ParseExpenditure(cell string) (value float64, ok bool, err error) {
	s := strings.TrimSpace(cell)
	if _, missing := missingMarkers[strings.ToLower(s)]; missing {
		return 0, false, nil
	}
	if !decimalNumber.MatchString(s) {
		return 0, false, fmt.Errorf("not a number: %q", s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("not a number: %q", s)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false, fmt.Errorf("not a finite number: %q", s)
	}
	if v < 0 {
		return 0, false, fmt.Errorf("negative expenditure: %q", s)
	}
	return v, true, nil
}
