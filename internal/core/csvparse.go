package core

// csvparse.go splits exported sheet text into rows.
//
// The export is not strict RFC 4180: quoted cells carry commas and line
// breaks, quotes are escaped by doubling, and a stray quote opens a quoted
// section that runs until the next closing quote, possibly at end of input.
// encoding/csv rejects the latter (or, with LazyQuotes, keeps the quote as
// data), so the split is done by hand.

import "strings"

// ParseStats describes how a text was split into rows.
type ParseStats struct {
	// Lines is the number of physical lines consumed.
	Lines int

	// BlankRows counts rows dropped because every field was empty.
	BlankRows int

	// UnterminatedQuoteLine is the 1-based line of a quote that was never
	// closed; 0 when quoting is balanced. Everything after it was read as
	// part of the final field.
	UnterminatedQuoteLine int
}

// ParseRecords converts raw delimited text into rows.
//
// Fields may be wrapped in double quotes; inside quotes a doubled quote is a
// literal quote, and commas and line breaks are data. A row ends at a line
// break outside quotes. Rows whose fields are all empty are dropped.
// Returns ErrEmptySource for empty or whitespace-only text. Unbalanced
// quoting is not an error; see ParseStats.UnterminatedQuoteLine.
func ParseRecords(text string) ([]RawRow, ParseStats, error) {
	var stats ParseStats
	if strings.TrimSpace(text) == "" {
		return nil, stats, ErrEmptySource
	}

	var (
		rows      []RawRow
		row       RawRow
		field     strings.Builder
		inQuotes  bool
		line      = 1
		quoteLine int
	)

	endField := func() {
		row = append(row, field.String())
		field.Reset()
	}
	endRow := func() {
		endField()
		if isBlankRow(row) {
			stats.BlankRows++
		} else {
			rows = append(rows, row)
		}
		row = nil
	}

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inQuotes {
			switch {
			case c == '"' && i+1 < len(text) && text[i+1] == '"':
				field.WriteByte('"')
				i++
			case c == '"':
				inQuotes = false
			case c == '\r' && i+1 < len(text) && text[i+1] == '\n':
				// CRLF inside a cell is stored as LF
			case c == '\n':
				line++
				field.WriteByte(c)
			default:
				field.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			inQuotes = true
			quoteLine = line
		case ',':
			endField()
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				continue
			}
			endRow()
			line++
		case '\n':
			endRow()
			line++
		default:
			field.WriteByte(c)
		}
	}

	if inQuotes || field.Len() > 0 || len(row) > 0 {
		endRow()
	} else {
		// text ended with a line break; that line was never started
		line--
	}
	if inQuotes {
		stats.UnterminatedQuoteLine = quoteLine
	}
	stats.Lines = line

	return rows, stats, nil
}

// isBlankRow reports whether every field is empty after trimming.
func isBlankRow(row RawRow) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// FormatRecords renders rows back to delimited text, quoting fields that
// need it. ParseRecords(FormatRecords(rows)) yields rows again.
func FormatRecords(rows []RawRow) string {
	var b strings.Builder
	for _, row := range rows {
		for i, f := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			if strings.ContainsAny(f, ",\"\r\n") {
				b.WriteByte('"')
				b.WriteString(strings.ReplaceAll(f, `"`, `""`))
				b.WriteByte('"')
			} else {
				b.WriteString(f)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
