// Package xlsx is the local source adapter: it decodes an uploaded workbook
// payload into the row matrices the extraction pipeline consumes.
package xlsx

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unioffice/spreadsheet/reference"

	"github.com/aerissecure/keydash/source"
)

// Decoder decodes xlsx payloads with unioffice. The zero value is ready to
// use.
type Decoder struct{}

type result struct {
	tables *source.Tables
	err    error
}

// Decode takes ownership of f's payload and decodes it on a separate
// goroutine so a multi-megabyte workbook never blocks the caller's thread
// beyond the select below. Cancelling ctx abandons the worker; the payload
// is consumed either way.
func (Decoder) Decode(ctx context.Context, f *source.File) (*source.Tables, error) {
	data := f.Take()
	if data == nil {
		return nil, errors.Errorf("payload of %s already consumed", f.Name())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: errors.Errorf("decoding %s: %v", f.Name(), r)}
			}
		}()
		tables, err := decode(f.Title(), data)
		ch <- result{tables: tables, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, errors.Wrapf(r.err, "decoding %s", f.Name())
		}
		return r.tables, nil
	}
}

// decode reads the workbook and flattens every sheet into a dense row
// matrix. Workbook rows and cells can be sparse; rows are grown to the
// row number and cells placed at their true column index so the key column
// stays positionally stable.
func decode(title string, data []byte) (*source.Tables, error) {
	wb, err := spreadsheet.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	tables := &source.Tables{Title: title}
	for _, sheet := range wb.Sheets() {
		var rows [][]string
		for _, row := range sheet.Rows() {
			rowIdx := int(row.RowNumber()) - 1
			if rowIdx < 0 {
				continue
			}
			for rowIdx >= len(rows) {
				rows = append(rows, nil)
			}

			for _, cell := range row.Cells() {
				colName, err := cell.Column()
				if err != nil {
					continue
				}
				colIdx := int(reference.ColumnToIndex(colName))
				for colIdx >= len(rows[rowIdx]) {
					rows[rowIdx] = append(rows[rowIdx], "")
				}
				rows[rowIdx][colIdx] = cell.GetFormattedValue()
			}
		}
		tables.Sheets = append(tables.Sheets, source.Sheet{Name: sheet.Name(), Rows: rows})
	}

	if len(tables.Sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return tables, nil
}
