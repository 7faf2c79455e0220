package keys

// KeyColumn is the fixed column (zero-indexed, column B) that holds the
// translation key in every known sheet layout.
const KeyColumn = 1

// Extract walks a sheet's row matrix and parses the key cell of every row.
//
// Rows whose key cell is absent or empty are skipped silently; header rows
// and blank separator rows are expected. Output preserves row order and is
// never deduplicated — downstream consumers rely on positional stability.
func Extract(taskName string, rows [][]string, keyCol int) []Record {
	var records []Record
	for i, row := range rows {
		if keyCol >= len(row) {
			continue
		}
		cell := row[keyCol]
		if cell == "" {
			continue
		}
		rec, ok := Parse(cell, taskName, i)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records
}
