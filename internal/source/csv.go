package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"healthdash/internal/core"
)

// ReadCSV decodes a delimited file into a RawTable. The first
// opts.SkipRows physical lines are discarded, blank ones included, and the
// next record is the header.
func ReadCSV(r io.Reader, opts ReadOptions) (core.RawTable, error) {
	br := bufio.NewReader(r)
	for i := 0; i < opts.SkipRows; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				return core.RawTable{}, fmt.Errorf("%w: file ends within the %d metadata lines", core.ErrMalformedInput, opts.SkipRows)
			}
			return core.RawTable{}, fmt.Errorf("skip metadata line %d: %w", i+1, err)
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return core.RawTable{}, fmt.Errorf("%w: no header line", core.ErrMalformedInput)
		}
		return core.RawTable{}, fmt.Errorf("%w: read CSV header: %v", core.ErrMalformedInput, err)
	}

	table := core.RawTable{Header: header}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.RawTable{}, fmt.Errorf("%w: read CSV row: %v", core.ErrMalformedInput, err)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
