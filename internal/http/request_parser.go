// Package http provides HTTP server and handler implementations.
//
// This file parses the dashboard selection out of query strings.

package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"healthdash/internal/core"
	"healthdash/internal/services"
)

const (
	maxCountryLen = 128
	maxTopN       = 300
)

// ParseSelection reads year, country and n from query values. Absent
// parameters stay zero so the dashboard can fill in its defaults; malformed
// ones are an ErrInvalidArgument.
func ParseSelection(query url.Values) (services.Selection, error) {
	var sel services.Selection

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1000 || y > 9999 {
			return services.Selection{}, fmt.Errorf("%w: year must be a four-digit number, got %q", core.ErrInvalidArgument, v)
		}
		sel.Year = y
	}

	if v := strings.TrimSpace(query.Get("n")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxTopN {
			return services.Selection{}, fmt.Errorf("%w: n must be between 1 and %d, got %q", core.ErrInvalidArgument, maxTopN, v)
		}
		sel.TopN = n
	}

	if v := sanitizeInput(query.Get("country")); v != "" {
		if utf8.RuneCountInString(v) > maxCountryLen {
			return services.Selection{}, fmt.Errorf("%w: country name longer than %d characters", core.ErrInvalidArgument, maxCountryLen)
		}
		sel.Country = v
	}

	return sel, nil
}
