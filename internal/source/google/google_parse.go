package google

import (
	"fmt"
	"strconv"
	"strings"

	"healthdash/internal/core"
)

// parseValues converts a values matrix (as returned by the Sheets API) into a
// RawTable. The first skip rows are metadata; the next one is the header.
func parseValues(values [][]interface{}, skip int) (core.RawTable, error) {
	if skip < 0 {
		skip = 0
	}
	if len(values) <= skip {
		return core.RawTable{}, fmt.Errorf("%w: sheet has %d rows, header expected after %d", core.ErrMalformedInput, len(values), skip)
	}
	raw := core.RawTable{Header: toStrings(values[skip])}
	for _, row := range values[skip+1:] {
		if len(row) == 0 {
			continue
		}
		raw.Rows = append(raw.Rows, toStrings(row))
	}
	return raw, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = cellString(v)
	}
	return out
}

// cellString renders unformatted values without float noise, so a year
// header stored as the number 2020 reads back as "2020". Text is returned
// as typed; core.Load decides which labels and cells it accepts.
func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
