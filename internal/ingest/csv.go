// Package ingest reads the spreadsheet export the catalogue is maintained in.
package ingest

import (
	"regexp"
	"strings"

	"imperium_gate/internal/domain"
)

// Row is one data row keyed by trimmed header name.
type Row struct {
	Line   int // approximate source line, header is line 1
	Values map[string]string
}

// Get returns the first non-empty value among the given column aliases.
func (r Row) Get(aliases ...string) string {
	for _, a := range aliases {
		if v := r.Values[a]; v != "" {
			return v
		}
	}
	return ""
}

// datasetID matches the stray export title some sheets carry above the header.
var datasetID = regexp.MustCompile(`(?i)projects_dedup`)

// ParseCSV splits text into rows of fields. Quoted fields may contain commas,
// newlines and "" escapes. Malformed quoting is not an error: whatever was
// accumulated when the input ends becomes the last field.
func ParseCSV(text string) [][]string {
	var (
		rows     [][]string
		row      []string
		val      strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inQuotes {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					val.WriteByte('"')
					i++
					continue
				}
				inQuotes = false
				continue
			}
			val.WriteByte(c)
			continue
		}
		switch c {
		case '"':
			inQuotes = true
		case ',':
			row = append(row, val.String())
			val.Reset()
		case '\r':
		case '\n':
			row = append(row, val.String())
			rows = append(rows, row)
			row = nil
			val.Reset()
		default:
			val.WriteByte(c)
		}
	}
	row = append(row, val.String())
	return append(rows, row)
}

// ReadRows parses text and keys each data row by the header. A lone
// dataset-title cell above the header is skipped.
func ReadRows(text string) ([]Row, error) {
	rows := ParseCSV(text)
	if len(rows) == 0 || (len(rows) == 1 && len(rows[0]) == 1 && strings.TrimSpace(rows[0][0]) == "") {
		return nil, domain.ErrEmptyCSV
	}

	header, data := rows[0], rows[1:]
	if len(header) == 1 && datasetID.MatchString(header[0]) && len(rows) > 1 {
		header, data = rows[1], rows[2:]
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	out := make([]Row, 0, len(data))
	for idx, cols := range data {
		if len(cols) == 1 && strings.TrimSpace(cols[0]) == "" {
			continue // blank line, usually the trailing newline
		}
		values := make(map[string]string, len(names))
		for i, n := range names {
			if i < len(cols) {
				values[n] = strings.TrimSpace(cols[i])
			} else {
				values[n] = ""
			}
		}
		out = append(out, Row{Line: idx + 2, Values: values})
	}
	return out, nil
}
